// Package events fans out ledger events to any number of subscribers, such
// as websocket clients watching a node.
package events

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// messageBuffer is the number of events held for a slow subscriber before
// new events are dropped for it.
const messageBuffer = 100

// Events maintains the set of subscribers by id.
type Events struct {
	mu sync.RWMutex
	m  map[string]chan string
}

// New constructs an events value ready for subscribers.
func New() *Events {
	return &Events{
		m: make(map[string]chan string),
	}
}

// Subscribe registers a new subscriber and returns its id and the channel
// the events are delivered on.
func (evt *Events) Subscribe() (string, <-chan string) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan string, messageBuffer)
	evt.m[id] = ch

	return id, ch
}

// Unsubscribe closes and removes the subscriber's channel.
func (evt *Events) Unsubscribe(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("subscriber %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)

	return nil
}

// Count returns the number of subscribers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}

// Shutdown closes every subscriber channel.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Send delivers the event to every subscriber. Send never blocks, a
// subscriber with a full buffer misses the event.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.m {
		select {
		case ch <- s:
		default:
		}
	}
}

// Handler formats the event and sends it. The signature matches the event
// handlers used by the ledger packages.
func (evt *Events) Handler(v string, args ...any) {
	evt.Send(fmt.Sprintf(v, args...))
}
