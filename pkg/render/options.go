package render

import "errors"

const (
	// Failed is the length returned together with a non-nil error.
	// It can never be a valid rendered length.
	Failed = -1

	// MaxNesting caps message nesting when Options.MaxDepth is 0 or larger than it.
	MaxNesting = 100

	// Placeholder replaces the contents of messages nested at or beyond the depth limit.
	Placeholder = "<truncated>"
)

var (
	// ErrSchemaMismatch is returned when a message holds a field id the descriptor does not declare.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrCorruptMessage is returned when a stored value does not match the declared
	// field kind, or when the message or descriptor is nil.
	ErrCorruptMessage = errors.New("corrupt message")
)

// Options controls the rendering layout.
type Options struct {
	// Compact puts all fields on a single line separated by spaces.
	Compact bool `mapstructure:"compact"`

	// MaxDepth caps recursion into nested messages. Top-level fields are at depth 0;
	// a message whose fields would sit at depth MaxDepth renders as Placeholder.
	// 0 means unlimited, bounded by MaxNesting.
	MaxDepth int `mapstructure:"max-depth"`
}

func (o Options) depthLimit() int {
	if o.MaxDepth <= 0 || o.MaxDepth > MaxNesting {
		return MaxNesting
	}
	return o.MaxDepth
}
