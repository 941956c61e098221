package storage

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials is returned when authentication fails. The API layer
// deliberately maps it to a generic unauthorized response.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError reports missing or malformed input fields.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NotFoundError reports that an entity ID did not resolve.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// AuthorizationError reports that the acting user is not permitted to modify
// the entity, typically because they do not own it.
type AuthorizationError struct {
	Entity string
	ID     string
}

func (e AuthorizationError) Error() string {
	return fmt.Sprintf("not authorized to modify %s %s", e.Entity, e.ID)
}

// InvalidStateError reports a lifecycle transition attempted from the wrong
// state, such as starting a stream that is already live.
type InvalidStateError struct {
	Entity string
	ID     string
	State  string
	Reason string
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s is %s: %s", e.Entity, e.ID, e.State, e.Reason)
}

// PersistenceError wraps an unexpected failure in the underlying store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e PersistenceError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// IsAuthorization reports whether err is an AuthorizationError.
func IsAuthorization(err error) bool {
	var ae AuthorizationError
	return errors.As(err, &ae)
}

// IsInvalidState reports whether err is an InvalidStateError.
func IsInvalidState(err error) bool {
	var se InvalidStateError
	return errors.As(err, &se)
}
