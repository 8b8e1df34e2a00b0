package engine

import (
	"sync"

	orderreaderv1 "github.com/muhammadchandra19/matcher/internal/domain/order-reader/v1"
)

type partitionKey struct {
	topic     string
	partition int
}

type trackedMessage struct {
	msg  orderreaderv1.Message
	done bool
}

// offsetTracker releases a message for commit only once it and every message
// read before it from the same partition have been handled. Engines of
// different instruments finish out of order, a partition offset must not.
type offsetTracker struct {
	mu      sync.Mutex
	pending map[partitionKey][]*trackedMessage
	ready   map[partitionKey]orderreaderv1.Message
	notify  chan struct{}
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{
		pending: make(map[partitionKey][]*trackedMessage),
		ready:   make(map[partitionKey]orderreaderv1.Message),
		notify:  make(chan struct{}, 1),
	}
}

// track registers msg in read order.
func (t *offsetTracker) track(msg orderreaderv1.Message) *trackedMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := partitionKey{topic: msg.Topic, partition: msg.Partition}
	m := &trackedMessage{msg: msg}
	t.pending[key] = append(t.pending[key], m)
	return m
}

// done marks m handled and moves the handled prefix of its partition to ready.
func (t *offsetTracker) done(m *trackedMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if m.done {
		return
	}
	m.done = true

	key := partitionKey{topic: m.msg.Topic, partition: m.msg.Partition}
	queue := t.pending[key]

	n := 0
	for n < len(queue) && queue[n].done {
		n++
	}
	if n == 0 {
		return
	}

	t.ready[key] = queue[n-1].msg
	clear(queue[:n])
	if n == len(queue) {
		delete(t.pending, key)
	} else {
		t.pending[key] = queue[n:]
	}

	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// take returns the newest committable message of every partition.
func (t *offsetTracker) take() []orderreaderv1.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.ready) == 0 {
		return nil
	}

	msgs := make([]orderreaderv1.Message, 0, len(t.ready))
	for key, msg := range t.ready {
		msgs = append(msgs, msg)
		delete(t.ready, key)
	}
	return msgs
}
