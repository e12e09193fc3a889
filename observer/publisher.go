package observer

import (
	"time"

	"go.uber.org/zap"
)

// Publisher notifies its subscribers synchronously.
//
// The zero value is an empty, unsynchronized publisher ready for use.
// A Publisher must not be copied after first use; use Clone instead.
type Publisher[T any] struct {
	reg registry[*Handle[T]]
	cfg settings
}

// NewPublisher creates an empty publisher.
func NewPublisher[T any](opts ...Option) *Publisher[T] {
	cfg := newSettings(opts)
	return &Publisher[T]{
		reg: registry[*Handle[T]]{safe: cfg.threadSafe},
		cfg: cfg,
	}
}

// Subscribe appends h to the subscriber list. Registering the same handle
// twice makes it receive every message twice. A nil handle is ignored.
func (p *Publisher[T]) Subscribe(h *Handle[T]) {
	if h == nil || h.sub == nil {
		return
	}

	n := p.reg.add(h)
	p.cfg.stats().Subscribers(n)
	p.cfg.log().Debug("subscriber added", zap.Int("subscribers", n))
}

// Unsubscribe removes every registration of h. It does nothing if h is not
// registered. A Publish already in progress may still notify h.
func (p *Publisher[T]) Unsubscribe(h *Handle[T]) {
	if h == nil {
		return
	}

	removed, n := p.reg.remove(h)
	if removed == 0 {
		return
	}
	p.cfg.stats().Subscribers(n)
	p.cfg.log().Debug("subscriber removed",
		zap.Int("removed", removed),
		zap.Int("subscribers", n),
	)
}

// Publish notifies every subscriber registered at the time of the call, in
// registration order, and returns when the last Notify has returned.
//
// Subscribers may call Subscribe and Unsubscribe from Notify; the changes
// apply to the next Publish. Unless the publisher was built with
// WithPanicRecovery, a panicking subscriber stops the delivery and the
// panic propagates to the caller.
func (p *Publisher[T]) Publish(msg T) {
	subs := p.reg.snapshot()
	for _, h := range subs {
		p.notify(h, &msg)
	}
	p.cfg.stats().Published(len(subs))
}

func (p *Publisher[T]) notify(h *Handle[T], msg *T) {
	if p.cfg.recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				p.cfg.recovered(r)
			}
		}()
	}

	start := time.Now()
	h.sub.Notify(msg)
	p.cfg.stats().Notified(time.Since(start))
}

// HasSubscribers reports whether at least one handle is registered.
func (p *Publisher[T]) HasSubscribers() bool {
	return p.reg.len() > 0
}

// Len returns the number of registrations, counting duplicates.
func (p *Publisher[T]) Len() int {
	return p.reg.len()
}

// Clone returns a new publisher with the same options and the same
// handles. The two publishers are independent afterwards.
func (p *Publisher[T]) Clone() *Publisher[T] {
	return &Publisher[T]{
		reg: registry[*Handle[T]]{safe: p.cfg.threadSafe, subs: p.reg.snapshot()},
		cfg: p.cfg,
	}
}
