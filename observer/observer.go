// Package observer provides an in-process implementation of the observer
// pattern.
//
// A publisher keeps an ordered registry of subscriber handles and notifies
// every one of them, in registration order, each time a message is
// published. There is no persistence, no queueing and no filtering: a
// subscriber sees a message only if it is registered when the publish
// starts.
//
// Two publishers are provided:
//   - Publisher: Notify runs to completion before the next subscriber is
//     visited and Publish returns once all subscribers were notified.
//   - AsyncPublisher: Notify receives a context and may block. Publish
//     waits for every notification, sequentially by default or
//     concurrently with WithConcurrentFanOut.
//
// Both are unsynchronized unless constructed with WithThreadSafety.
//
// Subscribers are registered through handles. A handle is shared by
// pointer: the same *Handle may be registered with several publishers,
// and Unsubscribe matches by handle identity, never by value.
//
//	p := observer.NewPublisher[string]()
//	h := observer.NewHandle[string](observer.SubscriberFunc[string](func(msg *string) {
//		fmt.Println("received", *msg)
//	}))
//	p.Subscribe(h)
//	p.Publish("hello")
//	p.Unsubscribe(h)
package observer

import "context"

// Subscriber receives messages from a Publisher.
type Subscriber[T any] interface {
	// Notify is called once per Publish with a pointer to the published
	// message. The message is shared with the other subscribers and must
	// not be modified.
	Notify(msg *T)
}

// SubscriberFunc adapts an ordinary function to a Subscriber.
type SubscriberFunc[T any] func(msg *T)

// Notify calls f(msg).
func (f SubscriberFunc[T]) Notify(msg *T) { f(msg) }

// AsyncSubscriber receives messages from an AsyncPublisher.
type AsyncSubscriber[T any] interface {
	// Notify may block. The publisher waits for it to return before the
	// surrounding Publish completes. ctx is the context given to Publish.
	Notify(ctx context.Context, msg *T)
}

// AsyncSubscriberFunc adapts an ordinary function to an AsyncSubscriber.
type AsyncSubscriberFunc[T any] func(ctx context.Context, msg *T)

// Notify calls f(ctx, msg).
func (f AsyncSubscriberFunc[T]) Notify(ctx context.Context, msg *T) { f(ctx, msg) }

// Handle is a shared reference to a Subscriber.
//
// Copies of the *Handle pointer share the subscriber; it stays alive as
// long as any publisher or caller still holds one. Two handles created
// from equal subscribers are still different handles.
type Handle[T any] struct {
	sub Subscriber[T]
}

// NewHandle wraps sub in a new handle.
func NewHandle[T any](sub Subscriber[T]) *Handle[T] {
	return &Handle[T]{sub: sub}
}

// Subscriber returns the wrapped subscriber.
func (h *Handle[T]) Subscriber() Subscriber[T] { return h.sub }

// AsyncHandle is the AsyncSubscriber counterpart of Handle.
type AsyncHandle[T any] struct {
	sub AsyncSubscriber[T]
}

// NewAsyncHandle wraps sub in a new handle.
func NewAsyncHandle[T any](sub AsyncSubscriber[T]) *AsyncHandle[T] {
	return &AsyncHandle[T]{sub: sub}
}

// Subscriber returns the wrapped subscriber.
func (h *AsyncHandle[T]) Subscriber() AsyncSubscriber[T] { return h.sub }
