package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors classify catalog failures. Callers match them with errors.Is.
var (
	// ErrNotFound reports an identifier that does not resolve to a stored entity.
	ErrNotFound = errors.New("not found")
	// ErrConstraintViolation is the family of business-rule failures.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrAlreadyLinked reports a duplicate association row.
	ErrAlreadyLinked = &constraintError{msg: "already linked"}
	// ErrNotLinked reports an unlink of an absent association row.
	ErrNotLinked = &constraintError{msg: "not linked"}
	// ErrStillInUse reports a delete refused because the entity is referenced.
	ErrStillInUse = &constraintError{msg: "still in use"}
	// ErrInvalidValue reports input rejected before persistence.
	ErrInvalidValue = errors.New("invalid value")
)

type constraintError struct{ msg string }

func (e *constraintError) Error() string { return e.msg }

// Is lets every member of the family match ErrConstraintViolation.
func (e *constraintError) Is(target error) bool { return target == ErrConstraintViolation }

// NotFoundError carries the kind and id of a missing entity.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Is matches ErrNotFound.
func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// LinkError describes a failed link or unlink. Err is ErrAlreadyLinked or ErrNotLinked.
type LinkError struct {
	Association Association
	LeftID      string
	RightID     string
	Err         error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("%s %s -> %s: %v", e.Association, e.LeftID, e.RightID, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

// InUseError reports that Entity/ID is still referenced by Count rows of ReferencedBy.
type InUseError struct {
	Entity       EntityType
	ID           string
	ReferencedBy string
	Count        int
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("%s %s still in use: referenced by %d %s", e.Entity, e.ID, e.Count, e.ReferencedBy)
}

func (e *InUseError) Unwrap() error { return ErrStillInUse }

// InvalidValueError reports a rejected field value.
type InvalidValueError struct {
	Entity EntityType
	Field  string
	Reason string
}

func (e *InvalidValueError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("invalid %s.%s: %s", e.Entity, e.Field, e.Reason)
}

func (e *InvalidValueError) Unwrap() error { return ErrInvalidValue }

// NewNotFound builds a NotFoundError.
func NewNotFound(kind EntityType, id string) error {
	return NotFoundError{Entity: kind, ID: id}
}

// NewInvalidValue builds an InvalidValueError.
func NewInvalidValue(kind EntityType, field, reason string) error {
	return &InvalidValueError{Entity: kind, Field: field, Reason: reason}
}
