package pages

import "errors"

// Reasons a page range expression can be rejected. A *ValidationError wraps one of these.
var (
	ErrEmptyInput         = errors.New("page range input cannot be empty")
	ErrInvalidRangeFormat = errors.New("invalid range format")
	ErrInvalidNumber      = errors.New("invalid number")
	ErrStartAfterEnd      = errors.New("start page greater than end page")
	ErrPageOutOfBounds    = errors.New("page out of bounds")
	ErrNoValidPages       = errors.New("no valid pages were specified")
)

// ValidationError reports a malformed or out-of-bounds page range expression.
// It is always recoverable: the caller should ask for a corrected expression.
type ValidationError struct {
	// Segment is the offending comma-separated fragment, empty for whole-input errors
	Segment string
	Reason  error
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// IsValidationError reports whether err is or wraps a *ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
