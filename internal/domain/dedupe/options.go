package dedupe

import "time"

// Option applies a configuration option to the in-memory ledger.
type Option func(*inMemoryLedger)

// WithMaxSize caps outstanding nonces; the oldest is evicted when full.
// A value <= 0 means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(l *inMemoryLedger) {
		l.maxSize = maxSize
	}
}

// WithTTL sets how long an issued nonce stays valid. A value <= 0 disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(l *inMemoryLedger) {
		l.ttl = ttl
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *inMemoryLedger) {
		if now != nil {
			l.now = now
		}
	}
}
