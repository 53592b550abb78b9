package bridge

import "fmt"

// Subscriber satisfies the host's subscription interface for a write-only
// bridge. Nothing is ever delivered to it.
type Subscriber[T any] struct {
	topic string
}

func (s *Subscriber[T]) Topic() string { return s.topic }

// Dispatch is the delivery path. Nothing is delivered.
func (s *Subscriber[T]) Dispatch(T) {}

// DeclareSubscriber announces T under typeTag with a creator that yields
// inert subscribers. The callback is ignored and creation never fails.
func DeclareSubscriber[T any](p Plugin, typeTag string) {
	var zero T
	p.AddType(typeTag, zero)
	p.AddSubscriberCreator(typeTag, func(_ Instance, topic string, _ any) (any, error) {
		return &Subscriber[T]{topic: topic}, nil
	})
}

// RegisterConverter always fails with ErrUnsupportedConversion: records are
// written in the schema they are published with.
func RegisterConverter[T, B any](_ Plugin, typeTag string, _ func(B) T) error {
	return fmt.Errorf("register converter for %s: %w", typeTag, ErrUnsupportedConversion)
}
