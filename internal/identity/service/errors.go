package service

import (
	"errors"
	"strings"
)

// ErrUnauthorized is the single authentication failure. Unknown email, wrong
// password, missing role, inactive account and invalid tokens all surface as
// this one error so callers cannot probe which accounts exist.
var ErrUnauthorized = errors.New("unauthorized")

// ValidationError aggregates every reason an input was rejected, so callers
// can show all of them at once instead of one per round-trip.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// IsValidation reports whether err is a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
