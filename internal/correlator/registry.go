package correlator

import (
	"sync"

	"github.com/google/uuid"
)

// ListenerID identifies a registered listener for the registry's lifetime.
type ListenerID string

// Registry is the concurrent-safe set of listeners consulted on every
// inbound message.
//
// Thread Safety:
//   - Add, Remove and Dispatch may be called from any goroutine.
//   - Dispatch holds the read lock for the whole fan-out, so once Remove
//     returns the removed listener is never invoked again.
//   - MatchFuncs must not call back into the Registry.
type Registry struct {
	mu        sync.RWMutex
	listeners map[ListenerID]*Listener
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		listeners: make(map[ListenerID]*Listener),
	}
}

// Add registers l and returns its identity.
func (r *Registry) Add(l *Listener) ListenerID {
	id := ListenerID(uuid.NewString())

	r.mu.Lock()
	r.listeners[id] = l
	r.mu.Unlock()

	return id
}

// Remove deregisters id. Unknown or already-removed ids are ignored.
func (r *Registry) Remove(id ListenerID) {
	r.mu.Lock()
	delete(r.listeners, id)
	r.mu.Unlock()
}

// Len returns the number of registered listeners.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// CountTopic returns the number of listeners registered with exactly topic.
func (r *Registry) CountTopic(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, l := range r.listeners {
		if l.Topic == topic {
			n++
		}
	}
	return n
}

// Dispatch offers msg to every listener whose topic filter matches.
// Undecodable messages are skipped entirely. Returns how many listeners
// recorded msg as their result.
func (r *Registry) Dispatch(msg Message) int {
	if !msg.Decoded() {
		return 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	recorded := 0
	for _, l := range r.listeners {
		if !l.accepts(msg.Topic) {
			continue
		}
		if l.offer(msg) {
			recorded++
		}
	}
	return recorded
}
