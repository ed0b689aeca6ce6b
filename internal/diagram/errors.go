package diagram

import (
	"errors"
	"fmt"
)

// ErrLayoutVersionConflict is returned by layout stores when a conditional
// write finds a version other than the expected one.
var ErrLayoutVersionConflict = errors.New("layout version conflict")

// NotFoundError reports a missing stream, app, integration or connection type.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

// ValidationError rejects caller input without touching persisted state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// ConflictError refuses an operation that would break existing data.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}
