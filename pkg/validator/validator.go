// Package validator decides whether a component record is eligible to
// join an assembly session. It is pure predicate logic: no side effects,
// same answer for the same inputs.
package validator

import (
	"errors"
	"fmt"

	"github.com/luxtrace/assembler/pkg/registry"
)

// Rejection reasons. Callers classify with errors.Is.
var (
	ErrNotFound         = errors.New("component not found")
	ErrNotCertified     = errors.New("component not certified")
	ErrAlreadyUsed      = errors.New("component already used in another watch")
	ErrAlreadyInSession = errors.New("component already added to this session")
)

// Validate checks a component record against the session membership
// predicate. inSession is re-checked here even when the caller has
// already checked it: two near-simultaneous scans of the same code must
// not both pass.
func Validate(rec *registry.Component, inSession func(id string) bool) error {
	if rec == nil {
		return ErrNotFound
	}
	if inSession != nil && inSession(rec.ID) {
		return fmt.Errorf("%w: %s", ErrAlreadyInSession, rec.ID)
	}
	if rec.Status == registry.StatusUsed {
		return fmt.Errorf("%w: %s", ErrAlreadyUsed, rec.ID)
	}
	if rec.Status != registry.StatusCertified {
		return fmt.Errorf("%w: %s has status %s", ErrNotCertified, rec.ID, registry.StatusName(rec.Status))
	}
	return nil
}

// Message returns the operator-facing text for a rejection.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyInSession):
		return "This component is already added to the current assembly."
	case errors.Is(err, ErrAlreadyUsed):
		return "This component has already been used in an assembled watch."
	case errors.Is(err, ErrNotCertified):
		return "This component has not been certified yet."
	case errors.Is(err, ErrNotFound):
		return "No certified record was found for this component."
	default:
		return err.Error()
	}
}
