package store

import (
	"errors"
	"fmt"
)

// NotFoundError is the constant-shape error for reads that resolve to no
// visible row. It is deliberately identical whether the id does not exist
// or exists under another tenant, so existence never leaks across the
// isolation boundary.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return e.Kind + " not found"
	}
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// ConstraintError surfaces a uniqueness or foreign-key violation verbatim
// to the caller. Never retried.
type ConstraintError struct {
	Constraint string
	Err        error
}

func (e ConstraintError) Error() string {
	return fmt.Sprintf("constraint %s violated: %v", e.Constraint, e.Err)
}

func (e ConstraintError) Unwrap() error { return e.Err }

// IsConstraint reports whether err is a ConstraintError.
func IsConstraint(err error) bool {
	var ce ConstraintError
	return errors.As(err, &ce)
}
