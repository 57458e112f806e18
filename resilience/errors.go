package resilience

import "errors"

// Configuration errors, reported at construction time.
var (
	// ErrInvalidMaxCalls is returned when MaxCalls is not positive.
	ErrInvalidMaxCalls = errors.New("resilience: max calls must be positive")

	// ErrInvalidPeriod is returned when Period is not positive.
	ErrInvalidPeriod = errors.New("resilience: period must be positive")
)
