package observer

import (
	"time"

	"go.uber.org/zap"
)

// Metrics receives counters from a publisher. Implementations must be safe
// for concurrent use when the publisher is.
type Metrics interface {
	// Subscribers reports the registry size after every change.
	Subscribers(n int)
	// Published is called once per Publish with the number of subscribers
	// notified.
	Published(subscribers int)
	// Notified is called after every completed Notify.
	Notified(elapsed time.Duration)
	// Panicked is called for every panic recovered from a subscriber.
	Panicked()
}

type nopMetrics struct{}

func (nopMetrics) Subscribers(int)        {}
func (nopMetrics) Published(int)          {}
func (nopMetrics) Notified(time.Duration) {}
func (nopMetrics) Panicked()              {}

// Option configures a publisher. Options are applied once, at construction.
type Option func(*settings)

// settings is the resolved option set. The zero value describes an
// unsynchronized publisher without logging or metrics.
type settings struct {
	name          string
	threadSafe    bool
	recoverPanics bool
	concurrent    bool
	limit         int
	logger        *zap.Logger
	metrics       Metrics
}

var nopLogger = zap.NewNop()

func newSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.name != "" {
		s.logger = s.log().With(zap.String("publisher", s.name))
	}
	return s
}

func (s *settings) log() *zap.Logger {
	if s.logger == nil {
		return nopLogger
	}
	return s.logger
}

func (s *settings) stats() Metrics {
	if s.metrics == nil {
		return nopMetrics{}
	}
	return s.metrics
}

// recovered logs and counts a panic raised by a subscriber.
func (s *settings) recovered(r any) {
	s.log().Error("subscriber panicked",
		zap.Any("panic", r),
		zap.StackSkip("stack", 2),
	)
	s.stats().Panicked()
}

// WithThreadSafety guards the registry with a mutex so Subscribe,
// Unsubscribe and Publish may be called from several goroutines.
// Subscribers registered with such a publisher must be safe for
// concurrent use themselves.
func WithThreadSafety() Option {
	return func(s *settings) { s.threadSafe = true }
}

// WithPanicRecovery runs every Notify inside a recover boundary. A panicking
// subscriber is logged and counted, and the remaining subscribers are still
// notified. Without it the panic reaches the caller of Publish.
func WithPanicRecovery() Option {
	return func(s *settings) { s.recoverPanics = true }
}

// WithConcurrentFanOut makes an AsyncPublisher start the notifications of a
// single Publish concurrently, at most limit at a time (limit <= 0 means no
// limit). Publish still returns only after all of them completed.
// Registration order is then no longer the completion order.
// Publisher ignores this option.
func WithConcurrentFanOut(limit int) Option {
	return func(s *settings) {
		s.concurrent = true
		s.limit = limit
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithName names the publisher in log entries.
func WithName(name string) Option {
	return func(s *settings) { s.name = name }
}

// WithMetrics reports publisher activity to m.
func WithMetrics(m Metrics) Option {
	return func(s *settings) {
		if m != nil {
			s.metrics = m
		}
	}
}
