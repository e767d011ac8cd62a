package sync

import (
	"sort"
	gosync "sync"

	"github.com/dalemusser/greencrew/internal/app/store"
	"go.uber.org/zap"
)

// ListenerFactory establishes one live subscription and returns its
// teardown handle.
type ListenerFactory func() (store.Unsubscribe, error)

// Registry maps logical listener keys to teardown handles and enforces
// at most one live subscription per key. It is owned by the session
// lifecycle controller; each controller gets its own instance so tests
// can run isolated registries.
//
// The lock is not held while a factory runs, so snapshot handlers that
// fire synchronously during setup may re-enter Subscribe for other keys
// (cascading subscriptions) without deadlocking. A per-key generation
// counter keeps a teardown that raced with the factory from resurrecting
// a stale handle.
type Registry struct {
	mu        gosync.Mutex
	listeners map[string]store.Unsubscribe
	gen       map[string]uint64
	log       *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		listeners: make(map[string]store.Unsubscribe),
		gen:       make(map[string]uint64),
		log:       logger,
	}
}

// Subscribe tears down any existing listener under key, then invokes the
// factory and stores the new teardown handle. Re-subscribing the same key
// is harmless: the previous subscription is cancelled first and the new
// one re-delivers a fresh snapshot.
func (r *Registry) Subscribe(key string, factory ListenerFactory) error {
	r.mu.Lock()
	if prev, ok := r.listeners[key]; ok {
		prev()
		delete(r.listeners, key)
	}
	r.gen[key]++
	gen := r.gen[key]
	r.mu.Unlock()

	unsub, err := factory()
	if err != nil {
		r.log.Error("listener setup failed", zap.String("key", key), zap.Error(err))
		return err
	}

	r.mu.Lock()
	if r.gen[key] != gen {
		// A newer Subscribe or a teardown won the race; this
		// subscription is already obsolete.
		r.mu.Unlock()
		unsub()
		return nil
	}
	r.listeners[key] = unsub
	r.mu.Unlock()
	return nil
}

// Unsubscribe tears down the listener under key, if any. No-op when the
// key is absent.
func (r *Registry) Unsubscribe(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen[key]++
	if unsub, ok := r.listeners[key]; ok {
		unsub()
		delete(r.listeners, key)
	}
}

// UnsubscribeAll tears down every listener and clears the registry.
// Teardown handles are independent; no ordering is guaranteed. Calling
// this on an empty registry is a no-op.
func (r *Registry) UnsubscribeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.gen {
		r.gen[key]++
	}
	for key, unsub := range r.listeners {
		unsub()
		delete(r.listeners, key)
	}
}

// Keys returns the sorted keys of the live listeners.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.listeners))
	for k := range r.listeners {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of live listeners.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// Has reports whether a live listener exists under key.
func (r *Registry) Has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.listeners[key]
	return ok
}
