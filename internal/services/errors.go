package services

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks failures caused by missing or invalid relay setup
	// (for example no signing key). Never retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks a trade request rejected before any network call.
	ErrValidation = errors.New("validation error")
	// ErrMarketData marks a failed tick size or midpoint lookup. The pipeline
	// recovers from it locally with defaults.
	ErrMarketData = errors.New("market data error")
	// ErrSubmission marks a venue rejection or transport failure on order posting.
	ErrSubmission = errors.New("submission error")
)

// ValidationError is a request rejection whose message is shown to the caller as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Is makes errors.Is(err, ErrValidation) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
