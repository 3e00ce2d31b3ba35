package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithInitialCapacity pre-sizes the result map.
func WithInitialCapacity(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithMaxTopCache bounds how many ranked entries are kept between writes.
func WithMaxTopCache(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxTopCache = n
		}
	}
}
