package cache

import "errors"

// DefaultCapacity is the LRU capacity used when callers have no preference.
const DefaultCapacity = 128

// Sentinel errors for cache operations.
var (
	ErrNilCache        = errors.New("cache: cache is nil")
	ErrInvalidCapacity = errors.New("cache: capacity must be positive")
)
