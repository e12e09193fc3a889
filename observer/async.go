package observer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AsyncPublisher notifies subscribers whose Notify may block.
//
// Publish passes its context to every subscriber and returns once all of
// them returned. The publisher never cancels a notification on its own: a
// subscriber that ignores ctx and never returns stalls Publish.
//
// The zero value is an empty, unsynchronized publisher with sequential
// delivery. An AsyncPublisher must not be copied after first use.
type AsyncPublisher[T any] struct {
	reg registry[*AsyncHandle[T]]
	cfg settings
}

// NewAsyncPublisher creates an empty publisher.
func NewAsyncPublisher[T any](opts ...Option) *AsyncPublisher[T] {
	cfg := newSettings(opts)
	return &AsyncPublisher[T]{
		reg: registry[*AsyncHandle[T]]{safe: cfg.threadSafe},
		cfg: cfg,
	}
}

// Subscribe appends h to the subscriber list. Duplicates are kept.
func (p *AsyncPublisher[T]) Subscribe(h *AsyncHandle[T]) {
	if h == nil || h.sub == nil {
		return
	}

	n := p.reg.add(h)
	p.cfg.stats().Subscribers(n)
	p.cfg.log().Debug("subscriber added", zap.Int("subscribers", n))
}

// Unsubscribe removes every registration of h.
func (p *AsyncPublisher[T]) Unsubscribe(h *AsyncHandle[T]) {
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

// Publish notifies every subscriber registered at the time of the call.
//
// By default subscribers are notified one after another in registration
// order, each Notify returning before the next starts. With
// WithConcurrentFanOut they run in separate goroutines; a panic in one of
// them is re-raised here after all started notifications have returned.
func (p *AsyncPublisher[T]) Publish(ctx context.Context, msg T) {
	subs := p.reg.snapshot()
	if p.cfg.concurrent && len(subs) > 1 {
		p.fanOut(ctx, subs, &msg)
	} else {
		for _, h := range subs {
			p.notify(ctx, h, &msg)
		}
	}
	p.cfg.stats().Published(len(subs))
}

func (p *AsyncPublisher[T]) fanOut(ctx context.Context, subs []*AsyncHandle[T], msg *T) {
	var g errgroup.Group
	if p.cfg.limit > 0 {
		g.SetLimit(p.cfg.limit)
	}

	var (
		once     sync.Once
		panicked bool
		value    any
	)
	for _, h := range subs {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() {
						panicked = true
						value = r
					})
				}
			}()
			p.notify(ctx, h, msg)
			return nil
		})
	}
	_ = g.Wait()

	if panicked {
		panic(value)
	}
}

func (p *AsyncPublisher[T]) notify(ctx context.Context, h *AsyncHandle[T], msg *T) {
	if p.cfg.recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				p.cfg.recovered(r)
			}
		}()
	}

	start := time.Now()
	h.sub.Notify(ctx, msg)
	p.cfg.stats().Notified(time.Since(start))
}

// HasSubscribers reports whether at least one handle is registered.
func (p *AsyncPublisher[T]) HasSubscribers() bool {
	return p.reg.len() > 0
}

// Len returns the number of registrations, counting duplicates.
func (p *AsyncPublisher[T]) Len() int {
	return p.reg.len()
}

// Clone returns a new publisher with the same options and handles.
func (p *AsyncPublisher[T]) Clone() *AsyncPublisher[T] {
	return &AsyncPublisher[T]{
		reg: registry[*AsyncHandle[T]]{safe: p.cfg.threadSafe, subs: p.reg.snapshot()},
		cfg: p.cfg,
	}
}
