package explain

import "context"

// Serialized lets one Generate call run at a time. Waiting callers give up
// when their context ends.
type Serialized struct {
	slot chan struct{}
	gen  Generator
}

// NewSerialized wraps gen with a single-slot lock.
func NewSerialized(gen Generator) *Serialized {
	return &Serialized{
		slot: make(chan struct{}, 1),
		gen:  gen,
	}
}

// Generate waits for the slot, then delegates.
func (s *Serialized) Generate(ctx context.Context, prompt string, maxTokens int) ([]string, error) {
	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.slot }()

	return s.gen.Generate(ctx, prompt, maxTokens)
}
