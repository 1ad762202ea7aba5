/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error categories in one place. Engine packages return these (or
  structured errors that unwrap to them); callers classify with errors.Is.

ERROR CATEGORIES:
  1. InvalidInput         - a specific call's arguments are wrong
  2. InvalidTransition    - state machine violation
  3. InvalidOperation     - structurally valid but forbidden by a business rule
  4. InvalidConfiguration - global settings make the computation impossible
  5. NotFound             - referenced entity does not exist
  6. Persistence          - the persistence collaborator failed

  No transition is ever partially applied: whenever one of these is returned
  by state.Apply the snapshot is unchanged.

USAGE:
  if errors.Is(err, generic.ErrInvalidTransition) {
      // show "already processed" in the UI
  }

  var cfgErr *generic.ConfigError
  if errors.As(err, &cfgErr) {
      log.Printf("fix setting %s", cfgErr.Setting)
  }

SEE ALSO:
  - api/handlers.go: maps categories to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for negative amounts, zero installment
	// counts and similar argument problems.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition is returned when a status change skips or reverses
	// a state machine edge.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInvalidOperation is returned when a rule forbids the operation, e.g.
	// deleting an advance that is no longer pending.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInvalidConfiguration is returned when payroll settings cannot be
	// used for computation (zero working days, tax bracket gaps).
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrNotFound is returned when an intent targets an unknown entity.
	ErrNotFound = errors.New("not found")

	// ErrPersistence is returned when loading or saving a snapshot fails.
	ErrPersistence = errors.New("persistence failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InputError describes a rejected argument.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// TransitionError describes an illegal status change.
type TransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s %s cannot move from %s to %s", e.Entity, e.ID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// OperationError describes an operation refused by a business rule.
type OperationError struct {
	Op     string
	Reason string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("invalid operation: %s: %s", e.Op, e.Reason)
}

func (e *OperationError) Unwrap() error { return ErrInvalidOperation }

// ConfigError points at the setting that makes computation impossible.
type ConfigError struct {
	Setting string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Setting, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfiguration }

// NotFoundError names the missing entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is caused by the caller's input or
// by a rule the caller can act on.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidOperation) ||
		errors.Is(err, ErrInvalidConfiguration)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
