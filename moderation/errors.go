package moderation

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that a referenced case or punishment does not exist.
// Callers surface it directly; it is never retried.
var ErrNotFound = errors.New("not found")

// ErrPermission reports that the enforcement gateway lacks the authority to
// perform an action, e.g. a role-hierarchy violation.
var ErrPermission = errors.New("gateway permission denied")

// ValidationError rejects bad input before anything is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
