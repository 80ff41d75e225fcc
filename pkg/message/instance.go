// Package message holds decoded message instances and the adapters that produce them.
package message

import "sort"

// Instance is a decoded message: a set of field values indexed by field id.
//
// Instances are built by a decoding layer and are read-only afterwards.
// An Instance must not be mutated while it is being read by another goroutine.
type Instance struct {
	values map[int32]any
	ids    []int32
}

// New creates an empty instance.
func New() *Instance {
	return &Instance{values: make(map[int32]any)}
}

// Set stores v under field id, replacing any previous value, and returns m for chaining.
func (m *Instance) Set(id int32, v any) *Instance {
	if m.values == nil {
		m.values = make(map[int32]any)
	}
	if _, exists := m.values[id]; !exists {
		i := sort.Search(len(m.ids), func(i int) bool { return m.ids[i] >= id })
		m.ids = append(m.ids, 0)
		copy(m.ids[i+1:], m.ids[i:])
		m.ids[i] = id
	}
	m.values[id] = v
	return m
}

// Get returns the value stored under id.
func (m *Instance) Get(id int32) (any, bool) {
	v, ok := m.values[id]
	return v, ok
}

// Has reports whether a value is stored under id.
func (m *Instance) Has(id int32) bool {
	_, ok := m.values[id]
	return ok
}

// Len returns the number of stored fields.
func (m *Instance) Len() int {
	return len(m.ids)
}

// IDAt returns the i-th stored field id in ascending order.
func (m *Instance) IDAt(i int) int32 {
	return m.ids[i]
}

// IDs returns the stored field ids in ascending order.
func (m *Instance) IDs() []int32 {
	return append([]int32(nil), m.ids...)
}
