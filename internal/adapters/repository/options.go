package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithStateFile sets the file used by Load and Flush. Empty keeps the store
// purely in memory.
func WithStateFile(path string) Option {
	return func(s *MemoryStore) {
		s.path = path
	}
}

// WithRetainWeeks keeps only the most recent n weeks of entries per
// character when flushing. n <= 0 keeps everything.
func WithRetainWeeks(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.retainWeeks = n
		}
	}
}
