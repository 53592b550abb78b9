package bridge

import (
	"fmt"

	"logbridge/pkg/codec"
)

// Publisher writes messages of type T under a fixed type tag and topic.
type Publisher[T any] struct {
	typeTag string
	topic   string
	out     Appender
	codec   *codec.Codec
}

// NewPublisher binds typeTag and topic to out.
func NewPublisher[T any](out Appender, c *codec.Codec, typeTag, topic string) *Publisher[T] {
	if c == nil {
		c = codec.Default()
	}
	return &Publisher[T]{typeTag: typeTag, topic: topic, out: out, codec: c}
}

func (p *Publisher[T]) TypeTag() string { return p.typeTag }
func (p *Publisher[T]) Topic() string   { return p.topic }

// Publish serializes msg on the calling goroutine and hands the record to
// the sink. A serialization error is returned and nothing is appended; in
// that case onComplete is not called.
func (p *Publisher[T]) Publish(msg T, onComplete func()) error {
	payload, err := p.codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("publish %s on %s: %w", p.typeTag, p.topic, err)
	}
	p.out.Append(p.typeTag, p.topic, payload, onComplete)
	return nil
}

// RegisterPublisher announces T under typeTag and lets the host create
// publishers for it. Custom sensor plugins call it for their own types.
func RegisterPublisher[T any](p Plugin, typeTag string, c *codec.Codec) {
	var zero T
	p.AddType(typeTag, zero)
	p.AddPublisherCreator(typeTag, func(inst Instance, topic string) (any, error) {
		out, ok := inst.(Appender)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrNotAppender, inst)
		}
		return NewPublisher[T](out, c, typeTag, topic), nil
	})
}
