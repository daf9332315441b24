package services

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed or disallowed input value.
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

// NotFoundError is returned when an entity is absent or hidden from the caller.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	if e.Message == "" {
		return "access denied"
	}
	return e.Message
}

// ConflictError signals a concurrent modification or a blocked delete.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// DependencyFailure wraps an error from an external collaborator
// (mail server, object store, broker). It is logged, not surfaced.
type DependencyFailure struct {
	Dependency string
	Err        error
}

func (e *DependencyFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.Dependency, e.Err)
}

func (e *DependencyFailure) Unwrap() error {
	return e.Err
}

var (
	ErrInvalidStatus    = &ValidationError{Field: "status", Message: "invalid status"}
	ErrNoFieldsToUpdate = &ValidationError{Message: "no fields to update"}
	ErrRepairNotFound   = &NotFoundError{Entity: "repair"}
	ErrStaleRepair      = &ConflictError{Message: "repair was modified by another request"}
)

func newValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
