// Package lifecycle is a publish/subscribe register for pipeline lifecycle
// events. It decouples whatever learns about a change (a remote fetch, a
// feed) from whatever needs to refresh because of it.
//
// Delivery is synchronous and in registration order. Each handler runs in
// isolation: an error or panic in one handler is logged and delivery moves
// on to the next. Nothing is persisted or replayed; a subscriber only sees
// events published after it subscribed.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vk/syncgraph/internal/ctxlog"
)

// Topic names a lifecycle event.
type Topic string

// The pipeline lifecycle topics are listed below.
const (
	TopicPipelineCreated Topic = "pipeline.created"
	TopicPipelineUpdated Topic = "pipeline.updated"
	TopicPipelineDeleted Topic = "pipeline.deleted"
)

// Topics returns every supported topic.
func Topics() []Topic {
	return []Topic{TopicPipelineCreated, TopicPipelineUpdated, TopicPipelineDeleted}
}

// ErrUnknownTopic occurs when subscribing or publishing to a topic outside Topics.
var ErrUnknownTopic = errors.New("unknown lifecycle topic")

func (t Topic) valid() bool {
	switch t {
	case TopicPipelineCreated, TopicPipelineUpdated, TopicPipelineDeleted:
		return true
	}
	return false
}

// Event is what handlers receive.
type Event struct {
	Topic   Topic
	Payload any
}

// Handler reacts to an event. A returned error is logged, not propagated.
type Handler func(ctx context.Context, ev Event) error

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is the event register for one session. The zero value is not usable;
// call NewBus.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[Topic][]subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]subscription)}
}

// Subscribe registers h for topic and returns a function removing it again.
// The returned function is safe to call more than once.
func (b *Bus) Subscribe(topic Topic, h Handler) (unsubscribe func(), err error) {
	if !topic.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	if h == nil {
		return nil, errors.New("lifecycle: nil handler")
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}, nil
}

func (b *Bus) remove(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			// Copy so a Publish iterating the old slice is unaffected.
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			b.subs[topic] = append(next, subs[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every handler registered for topic at the
// time of the call, in registration order, and returns how many of them
// failed.
func (b *Bus) Publish(ctx context.Context, topic Topic, payload any) (failed int, err error) {
	if !topic.valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}

	b.mu.Lock()
	subs := b.subs[topic]
	b.mu.Unlock()

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Publishing lifecycle event.", "topic", topic, "subscribers", len(subs))

	ev := Event{Topic: topic, Payload: payload}
	for _, s := range subs {
		if err := deliver(ctx, s.handler, ev); err != nil {
			failed++
			logger.Error("Lifecycle handler failed.", "topic", topic, "subscription", s.id, "error", err)
		}
	}
	return failed, nil
}

// SubscriberCount returns the number of handlers registered for topic.
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}

func deliver(ctx context.Context, h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h(ctx, ev)
}
