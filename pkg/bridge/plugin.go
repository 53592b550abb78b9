// Package bridge connects typed publishers to a record sink.
//
// A plugin host learns which message types the bridge handles through the
// Plugin interface: each type is announced under a stable type tag together
// with a creator that binds a topic on a bridge Instance. Publishers created
// this way serialize messages with the canonical codec and append them to the
// instance's sink. The logging bridge is write-only, so subscriber types can
// be declared but never deliver, and converters are refused.
package bridge

import (
	"errors"
	"fmt"

	"logbridge/pkg/sink"
)

var (
	ErrUnknownType  = errors.New("bridge: unknown type")
	ErrTypeMismatch = errors.New("bridge: type mismatch")
	ErrNotAppender  = errors.New("bridge: instance does not accept records")

	// ErrUnsupportedConversion is returned for converter registration.
	ErrUnsupportedConversion = fmt.Errorf("bridge: logging bridge does not convert between schemas: %w", errors.ErrUnsupported)
)

// Instance is one bridge connection, typically owned by a single vehicle.
type Instance interface {
	Connect(connection string)
	Disconnect()
	Status() sink.Status
}

// Appender accepts serialized records.
type Appender interface {
	Append(typeTag, topic, payload string, onComplete func())
}

// PublisherCreator binds a topic on inst. The returned value is a
// *Publisher[T] for the announced type.
type PublisherCreator func(inst Instance, topic string) (any, error)

// SubscriberCreator binds a topic on inst with a func(T) callback. The
// returned value is a *Subscriber[T].
type SubscriberCreator func(inst Instance, topic string, callback any) (any, error)

// Plugin is implemented by the host that collects bridge capabilities.
type Plugin interface {
	AddType(typeTag string, sample any)
	AddPublisherCreator(typeTag string, create PublisherCreator)
	AddSubscriberCreator(typeTag string, create SubscriberCreator)
}
