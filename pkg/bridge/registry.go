package bridge

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is an in-memory Plugin host.
type Registry struct {
	mu          sync.RWMutex
	types       map[string]any
	publishers  map[string]PublisherCreator
	subscribers map[string]SubscriberCreator
}

var _ Plugin = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		types:       make(map[string]any),
		publishers:  make(map[string]PublisherCreator),
		subscribers: make(map[string]SubscriberCreator),
	}
}

// AddType records typeTag. Announcing a tag again replaces the sample.
func (r *Registry) AddType(typeTag string, sample any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[typeTag] = sample
}

func (r *Registry) AddPublisherCreator(typeTag string, create PublisherCreator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishers[typeTag] = create
}

func (r *Registry) AddSubscriberCreator(typeTag string, create SubscriberCreator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers[typeTag] = create
}

// Types returns every announced type tag in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.types))
	for tag := range r.types {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// CanPublish reports whether a publisher creator exists for typeTag.
func (r *Registry) CanPublish(typeTag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.publishers[typeTag]
	return ok
}

// CanSubscribe reports whether a subscriber creator exists for typeTag.
func (r *Registry) CanSubscribe(typeTag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subscribers[typeTag]
	return ok
}

// CreatePublisher builds a typed publisher for typeTag on inst.
func CreatePublisher[T any](r *Registry, typeTag string, inst Instance, topic string) (*Publisher[T], error) {
	r.mu.RLock()
	create, ok := r.publishers[typeTag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no publisher for %q", ErrUnknownType, typeTag)
	}

	v, err := create(inst, topic)
	if err != nil {
		return nil, err
	}
	pub, ok := v.(*Publisher[T])
	if !ok {
		return nil, fmt.Errorf("%w: publisher for %q is %T", ErrTypeMismatch, typeTag, v)
	}
	return pub, nil
}

// CreateSubscriber builds a typed subscriber for typeTag on inst.
func CreateSubscriber[T any](r *Registry, typeTag string, inst Instance, topic string, callback func(T)) (*Subscriber[T], error) {
	r.mu.RLock()
	create, ok := r.subscribers[typeTag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no subscriber for %q", ErrUnknownType, typeTag)
	}

	v, err := create(inst, topic, callback)
	if err != nil {
		return nil, err
	}
	sub, ok := v.(*Subscriber[T])
	if !ok {
		return nil, fmt.Errorf("%w: subscriber for %q is %T", ErrTypeMismatch, typeTag, v)
	}
	return sub, nil
}
