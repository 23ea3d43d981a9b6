// Package observable implements a subscribe-to-change value cell, the Go
// analogue of the original program's Observable: a value plus an
// insertion-ordered list of observers notified synchronously on Set.
package observable

import "sync"

// Subscription is an opaque token returned by Subscribe, used to
// deterministically remove exactly that subscription later regardless of
// what else has subscribed or unsubscribed since.
type Subscription int64

// Value holds a T and notifies its subscribers, in subscription order,
// every time it changes.
type Value[T any] struct {
	mu        sync.Mutex
	value     T
	nextToken Subscription
	observers []entry[T]
}

type entry[T any] struct {
	token    Subscription
	callback func(*Value[T])
}

// New returns a Value initialized to v with no subscribers.
func New[T any](v T) *Value[T] {
	return &Value[T]{value: v}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// Set replaces the value and synchronously notifies every current
// subscriber, in subscription order, passing v itself so the callback can
// call Get. A subscriber may unsubscribe itself or another subscriber
// during notification: the notification list is snapshotted before the
// loop starts, so such a removal never reorders or skips an entry that was
// already due to be notified in this pass, it only affects future calls to
// Set.
func (v *Value[T]) Set(value T) {
	v.mu.Lock()
	v.value = value
	observers := make([]entry[T], len(v.observers))
	copy(observers, v.observers)
	v.mu.Unlock()

	for _, o := range observers {
		o.callback(v)
	}
}

// Subscribe registers observer to be called on every future Set, and
// returns a token that Unsubscribe can use to remove it.
func (v *Value[T]) Subscribe(observer func(*Value[T])) Subscription {
	v.mu.Lock()
	defer v.mu.Unlock()
	token := v.nextToken
	v.nextToken++
	v.observers = append(v.observers, entry[T]{token: token, callback: observer})
	return token
}

// Unsubscribe removes the observer registered under token, if still
// present. Safe to call from within an observer callback.
func (v *Value[T]) Unsubscribe(token Subscription) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, o := range v.observers {
		if o.token == token {
			v.observers = append(v.observers[:i], v.observers[i+1:]...)
			return
		}
	}
}
