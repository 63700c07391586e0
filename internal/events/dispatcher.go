package events

import (
	"errors"
	"sync"
)

// Publisher accepts raw events for asynchronous processing.
type Publisher interface {
	Publish(subject string, payload []byte) error
}

// ErrBusClosed is returned by Publish after Close.
var ErrBusClosed = errors.New("event bus closed")

// LocalBus is an in-process event bus with the same subject and queue-group
// semantics as the NATS subscriber: every plain subscriber gets each message,
// and each queue group gets it once, round robin across its members.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[string][]*localSub
	next   map[string]int
	nextID int
	closed bool
}

type localSub struct {
	id      int
	queue   string
	handler MessageHandler
}

// NewLocalBus creates a bus instance.
func NewLocalBus() *LocalBus {
	return &LocalBus{
		subs: make(map[string][]*localSub),
		next: make(map[string]int),
	}
}

// Subscribe registers handler for subject. The returned function removes it.
func (b *LocalBus) Subscribe(subject, queue string, handler MessageHandler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	b.nextID++
	sub := &localSub{id: b.nextID, queue: queue, handler: handler}
	b.subs[subject] = append(b.subs[subject], sub)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(subject, sub.id) })
	}, nil
}

func (b *LocalBus) remove(subject string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[subject]
	for i, s := range subs {
		if s.id == id {
			b.subs[subject] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish synchronously invokes the handlers chosen for payload.
func (b *LocalBus) Publish(subject string, payload []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	var targets []MessageHandler
	groups := make(map[string][]*localSub)
	for _, s := range b.subs[subject] {
		if s.queue == "" {
			targets = append(targets, s.handler)
			continue
		}
		groups[s.queue] = append(groups[s.queue], s)
	}
	for queue, members := range groups {
		key := subject + "\x00" + queue
		pick := b.next[key] % len(members)
		b.next[key] = pick + 1
		targets = append(targets, members[pick].handler)
	}
	b.mu.Unlock()

	for _, handler := range targets {
		handler(append([]byte(nil), payload...))
	}
	return nil
}

// Close drops all subscriptions and rejects further publishes.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string][]*localSub)
	return nil
}
