package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithClock overrides the time source used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// MongoOption applies a configuration option to the MongoStore.
type MongoOption func(*MongoStore)

// WithDatabase selects the database holding the collections.
func WithDatabase(name string) MongoOption {
	return func(s *MongoStore) {
		if name != "" {
			s.database = name
		}
	}
}

// WithOperationTimeout bounds every single store round trip.
func WithOperationTimeout(d time.Duration) MongoOption {
	return func(s *MongoStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMongoClock overrides the time source used to stamp new records.
func WithMongoClock(now func() time.Time) MongoOption {
	return func(s *MongoStore) {
		if now != nil {
			s.now = now
		}
	}
}

// GuardOption applies a configuration option to a Guarded store.
type GuardOption func(*guardSettings)

type guardSettings struct {
	name                string
	maxRequests         uint32
	interval            time.Duration
	timeout             time.Duration
	consecutiveFailures uint32
}

// WithBreakerName names the breaker in logs and metrics.
func WithBreakerName(name string) GuardOption {
	return func(g *guardSettings) {
		if name != "" {
			g.name = name
		}
	}
}

// WithBreakerTimeout sets how long the breaker stays open before probing.
func WithBreakerTimeout(d time.Duration) GuardOption {
	return func(g *guardSettings) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithBreakerThreshold sets how many consecutive failures trip the breaker.
func WithBreakerThreshold(n uint32) GuardOption {
	return func(g *guardSettings) {
		if n > 0 {
			g.consecutiveFailures = n
		}
	}
}

// WithBreakerHalfOpenRequests caps requests let through while half-open.
func WithBreakerHalfOpenRequests(n uint32) GuardOption {
	return func(g *guardSettings) {
		if n > 0 {
			g.maxRequests = n
		}
	}
}
