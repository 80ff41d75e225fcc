package message

import (
	"encoding/binary"
	"fmt"
)

// Confluent wire format: [0x00][schema id (4 bytes, big-endian)][payload].
const (
	magicByte        = 0x00
	wireHeaderLength = 5
)

// WireFormatParser parses Confluent wire format messages.
type WireFormatParser interface {
	// Parse extracts schema ID and payload from Confluent wire format
	Parse(data []byte) (schemaID int, payload []byte, err error)
}

// WireFormatBuilder builds Confluent wire format messages.
type WireFormatBuilder interface {
	// Build prefixes payload with the magic byte and schema ID
	Build(schemaID int, payload []byte) []byte
}

type confluentWireFormat struct{}

// NewConfluentWireFormat creates a parser and builder for Confluent wire format.
func NewConfluentWireFormat() (WireFormatParser, WireFormatBuilder) {
	f := &confluentWireFormat{}
	return f, f
}

func (w *confluentWireFormat) Parse(data []byte) (int, []byte, error) {
	if len(data) < wireHeaderLength {
		return 0, nil, fmt.Errorf("data too short: expected at least %d bytes, got %d", wireHeaderLength, len(data))
	}
	if data[0] != magicByte {
		return 0, nil, fmt.Errorf("invalid magic byte: expected 0x00, got 0x%02x", data[0])
	}

	schemaID := int(binary.BigEndian.Uint32(data[1:wireHeaderLength]))
	return schemaID, data[wireHeaderLength:], nil
}

func (w *confluentWireFormat) Build(schemaID int, payload []byte) []byte {
	result := make([]byte, wireHeaderLength+len(payload))
	result[0] = magicByte
	binary.BigEndian.PutUint32(result[1:wireHeaderLength], uint32(schemaID))
	copy(result[wireHeaderLength:], payload)
	return result
}
