// Package notification provides user-facing notices and the refresh signal bus.
package notification

import (
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// Handler receives a broadcast value together with its sequence number.
type Handler[E any] func(seq uint64, e E)

// subscription represents a subscriber's subscription.
type subscription[E any] struct {
	id      string
	handler Handler[E]
}

// Manager manages subscriptions and broadcasting of refresh signals.
// Delivery is synchronous: Broadcast returns once every handler has run.
type Manager[E any] struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription[E]
	order         []string
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
}

// NewManager creates a new notification manager.
func NewManager[E any]() *Manager[E] {
	return &Manager[E]{
		subscriptions: make(map[string]*subscription[E]),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager[E]) Subscribe(h Handler[E]) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription[E]{
		id:      id,
		handler: h,
	}
	m.order = append(m.order, id)
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager[E]) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.subscriptions, subscriptionID)
	for i, id := range m.order {
		if id == subscriptionID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Broadcast delivers e to all subscribers in subscription order.
// A panicking handler is logged and does not affect the others.
func (m *Manager[E]) Broadcast(e E) {
	m.sequenceNoMu.Lock()
	m.sequenceNo++
	seq := m.sequenceNo
	m.sequenceNoMu.Unlock()

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during delivery
	subs := make([]*subscription[E], 0, len(m.order))
	for _, id := range m.order {
		subs = append(subs, m.subscriptions[id])
	}
	m.mu.RUnlock()

	for _, sub := range subs {
		deliver(sub, seq, e)
	}
}

func deliver[E any](sub *subscription[E], seq uint64, e E) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("notification: subscriber panicked: id=%s seq=%d panic=%v", sub.id, seq, r)
		}
	}()
	sub.handler(seq, e)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager[E]) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager[E]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription[E])
	m.order = nil
}
