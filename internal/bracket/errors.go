package bracket

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by the stores in place of sql.ErrNoRows.
	ErrNotFound = errors.New("record not found")

	// ErrSeedingUnavailable means the participant count is not a power of two.
	ErrSeedingUnavailable = errors.New("seeding unavailable: participant count is not a power of two")

	// ErrMembershipNotFound means a team has no membership row in a round.
	ErrMembershipNotFound = errors.New("team has no membership in round")
)

// ValidationError reports a write that breaks one of the record invariants.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
