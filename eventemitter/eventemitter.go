// Package eventemitter provides typed event targets that allow registering
// listeners and emitting events carrying a single typed payload.
//
// Each listener is called synchronously when an event is emitted.
// If you want asynchronous (non-blocking) listeners, start a goroutine inside
// the listener.
//
// Example:
//
//	t := eventemitter.NewTarget[[]string]("put")
//	token := t.AddListener(func(ctx context.Context, keys []string) { fmt.Println(keys) })
//	t.Emit(ctx, []string{"a"}) // Output: [a]
//	t.RemoveListener(token)
package eventemitter

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
)

// ListenerToken is the token returned when a listener is added.
type ListenerToken string

var tokenSeq atomic.Uint64

func nextToken() ListenerToken {
	return ListenerToken(strconv.FormatUint(tokenSeq.Add(1), 36))
}

// Listener handles an event payload of type T.
type Listener[T any] func(ctx context.Context, payload T)

type listener[T any] struct {
	token   ListenerToken
	handler Listener[T]
}

// Target is a named event with listeners receiving payloads of type T.
// It is safe for concurrent use.
type Target[T any] struct {
	name      string
	mu        sync.RWMutex
	listeners []listener[T]
}

func NewTarget[T any](name string) *Target[T] {
	return &Target[T]{name: name}
}

func (t *Target[T]) Name() string {
	return t.name
}

// AddListener adds a listener and returns the token that removes it.
func (t *Target[T]) AddListener(l Listener[T]) ListenerToken {
	t.mu.Lock()
	defer t.mu.Unlock()

	token := nextToken()
	t.listeners = append(t.listeners, listener[T]{token: token, handler: l})
	return token
}

// RemoveListener removes the listener added with token.
func (t *Target[T]) RemoveListener(token ListenerToken) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := slices.IndexFunc(t.listeners, func(l listener[T]) bool { return l.token == token })
	if i < 0 {
		return false
	}
	t.listeners = slices.Delete(t.listeners, i, i+1)
	return true
}

// RemoveAllListeners removes every listener. It reports whether any were registered.
func (t *Target[T]) RemoveAllListeners() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	had := len(t.listeners) > 0
	t.listeners = nil
	return had
}

// ListenerCount returns the number of registered listeners.
func (t *Target[T]) ListenerCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.listeners)
}

// Emit calls each listener synchronously in registration order. It reports
// whether any listener was called.
//
// Listeners run on a snapshot, so they may add or remove listeners on the same
// target without deadlocking.
func (t *Target[T]) Emit(ctx context.Context, payload T) bool {
	t.mu.RLock()
	listeners := slices.Clone(t.listeners)
	t.mu.RUnlock()

	for _, l := range listeners {
		l.handler(ctx, payload)
	}
	return len(listeners) > 0
}
