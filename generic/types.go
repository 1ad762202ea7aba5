/*
Package generic provides the primitives shared by every engine package.

PURPOSE:
  The payroll, advance, notification and state packages all speak the same
  vocabulary: money, identifiers, clocks and a small error taxonomy. Keeping
  them here stops the domain packages from importing each other just to
  agree on what "an amount" is.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: decimal amounts helpers (never float64)
  - IDs: type-safe identifiers for every entity kind
  - IDGenerator: injectable source of fresh identifiers

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, floats only at config boundaries
  2. Type Safety: EmployeeID and AdvanceID cannot be mixed up
  3. Determinism: time and ids are injected, never read from globals

USAGE:
  salary := generic.MustParseDecimal("12000.50")
  if err := generic.RequireNonNegative("basicSalary", salary); err != nil {
      return err
  }

SEE ALSO:
  - errors.go: error taxonomy
  - time.go: clocks and calendar arithmetic
*/
package generic

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - decimal helpers
// =============================================================================

// Percent is 100 as a decimal, used to turn percentage points into ratios.
var Percent = decimal.NewFromInt(100)

// MonthsPerYear converts annual figures to monthly ones.
var MonthsPerYear = decimal.NewFromInt(12)

// MustParseDecimal parses a decimal literal and panics when it is malformed.
// Use it for constants only.
func MustParseDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// RequireNonNegative returns an InputError when v < 0.
func RequireNonNegative(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return &InputError{Field: field, Reason: "must not be negative, got " + v.String()}
	}
	return nil
}

// RequirePositive returns an InputError when v <= 0.
func RequirePositive(field string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return &InputError{Field: field, Reason: "must be greater than zero, got " + v.String()}
	}
	return nil
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type DepartmentID string
type PositionID string
type PayrollRecordID string
type AdvanceID string
type InstallmentID string
type NotificationID string
type AttendanceID string
type LeaveID string

// ActorID identifies whoever triggered a transition. It is recorded, never
// authenticated.
type ActorID string

// IDGenerator hands out fresh opaque identifiers.
type IDGenerator func() string

// UUIDGenerator returns random UUIDv4 strings.
func UUIDGenerator() IDGenerator {
	return uuid.NewString
}

// SequenceGenerator returns prefix-1, prefix-2, ... Useful in tests.
func SequenceGenerator(prefix string) IDGenerator {
	n := 0
	return func() string {
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
