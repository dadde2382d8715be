package lease

// Option applies a configuration option to the in-memory leaser.
type Option func(*inMemoryLeaser)

// WithMaxHeld caps how many keys may be leased at once.
// If maxHeld <= 0 the leaser is unbounded.
func WithMaxHeld(maxHeld int) Option {
	return func(l *inMemoryLeaser) {
		l.maxHeld = maxHeld
	}
}
