package repository

import "github.com/okian/jci/pkg/logger"

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxListLimit caps the number of rows a listing returns.
func WithMaxListLimit(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.maxList = n
		}
	}
}
