// Package events defines the append-only event kinds and the in-process
// bus that fans committed events out to live subscribers.
package events

import (
	"encoding/json"
	"sync"
)

// Event kinds emitted by the core services.
const (
	TypeContractAnalyzed = "ContractAnalyzed"
	TypeGasEstimated     = "GasEstimated"
	TypeTreeAdded        = "TreeAdded"
	TypeTreeRemoved      = "TreeRemoved"
	TypeTreeUpdated      = "TreeUpdated"
	TypeFeeUpdated       = "FeeUpdated"
	TypeAccountSeeded    = "AccountSeeded"
)

// Event is a committed, observable event. Seq is the position in the
// persisted log; payloads are the JSON documents stored there.
type Event struct {
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"createdAt,omitempty"`
}

// subscriber channel buffer. Slow subscribers drop events rather than
// block publishers; the persisted log is the source of truth for replay.
const subscriberBuffer = 64

// Bus fans events out to subscribers. Publishing never blocks.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber. The returned cancel function must be
// called to release the subscription; the channel is closed afterwards.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers an event to all subscribers, dropping it for any
// subscriber whose buffer is full.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Close closes the bus and all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
