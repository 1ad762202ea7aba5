/*
Package personnel holds the organisation entities: employees, departments
and positions.

PURPOSE:
  These are the records the payroll and advance engines read from. The
  package only knows how to validate them and how to shallow-merge a partial
  update onto them; storage and ordering belong to the state package.

PATCHES:
  Updates are expressed as *Patch structs with pointer fields. A nil field
  means "leave as is", which gives the same shallow-merge semantics as
  spreading a partial object over the existing one.

SEE ALSO:
  - state/reducer.go: AddEmployee / UpdateEmployee / DeleteEmployee
  - payroll/builder.go: consumes Employee
*/
package personnel

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusOnLeave  Status = "on_leave"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusOnLeave:
		return true
	}
	return false
}

// JobPosition is the position an employee holds, denormalised onto the
// employee record.
type JobPosition struct {
	Title        string               `json:"title"`
	DepartmentID generic.DepartmentID `json:"department"`
	Code         string               `json:"code"`
}

type Employee struct {
	ID       generic.EmployeeID `json:"id"`
	Code     string             `json:"code"`
	Name     string             `json:"name"`
	Position JobPosition        `json:"position"`

	// Compensation
	BasicSalary       decimal.Decimal `json:"basicSalary"`
	MonthlyIncentives decimal.Decimal `json:"monthlyIncentives"`
	Bonus             decimal.Decimal `json:"bonus"`

	// Period inputs
	OvertimeHours    decimal.Decimal `json:"overtimeHours"`
	AbsenceDays      decimal.Decimal `json:"absenceDays"`
	Penalties        decimal.Decimal `json:"penalties"`
	PenaltyDays      decimal.Decimal `json:"penaltyDays"`
	Advances         decimal.Decimal `json:"advances"` // unpaid advance principal
	Purchases        decimal.Decimal `json:"purchases"`
	HourlyDeductions decimal.Decimal `json:"hourlyDeductions"`

	Status   Status    `json:"status"`
	JoinDate time.Time `json:"joinDate"`

	// Contact & banking
	NationalID  string `json:"nationalId,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Email       string `json:"email,omitempty"`
	BankAccount string `json:"bankAccount,omitempty"`
	BankName    string `json:"bankName,omitempty"`

	// Payroll history
	LastPayrollDate   *time.Time       `json:"lastPayrollDate,omitempty"`
	LastPayrollAmount *decimal.Decimal `json:"lastPayrollAmount,omitempty"`
}

// Validate checks the employee invariants. now bounds the join date.
func (e Employee) Validate(now time.Time) error {
	if e.ID == "" {
		return &generic.InputError{Field: "id", Reason: "is required"}
	}
	if e.Name == "" {
		return &generic.InputError{Field: "name", Reason: "is required"}
	}
	if err := generic.RequirePositive("basicSalary", e.BasicSalary); err != nil {
		return err
	}
	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"monthlyIncentives", e.MonthlyIncentives},
		{"bonus", e.Bonus},
		{"overtimeHours", e.OvertimeHours},
		{"absenceDays", e.AbsenceDays},
		{"penalties", e.Penalties},
		{"penaltyDays", e.PenaltyDays},
		{"advances", e.Advances},
		{"purchases", e.Purchases},
		{"hourlyDeductions", e.HourlyDeductions},
	} {
		if err := generic.RequireNonNegative(f.name, f.value); err != nil {
			return err
		}
	}
	if !e.Status.Valid() {
		return &generic.InputError{Field: "status", Reason: fmt.Sprintf("unknown status %q", e.Status)}
	}
	if !e.JoinDate.IsZero() && e.JoinDate.After(now) {
		return &generic.InputError{Field: "joinDate", Reason: "must not be in the future"}
	}
	return nil
}

// ValidateAbsence enforces absenceDays <= working days in the period.
func (e Employee) ValidateAbsence(workingDays decimal.Decimal) error {
	if e.AbsenceDays.GreaterThan(workingDays) {
		return &generic.InputError{
			Field:  "absenceDays",
			Reason: fmt.Sprintf("%s exceeds the %s working days of the period", e.AbsenceDays, workingDays),
		}
	}
	return nil
}

// EmployeePatch is a partial update. Nil fields are left untouched.
type EmployeePatch struct {
	Code              *string               `json:"code,omitempty"`
	Name              *string               `json:"name,omitempty"`
	Position          *JobPosition          `json:"position,omitempty"`
	BasicSalary       *decimal.Decimal      `json:"basicSalary,omitempty"`
	MonthlyIncentives *decimal.Decimal      `json:"monthlyIncentives,omitempty"`
	Bonus             *decimal.Decimal      `json:"bonus,omitempty"`
	OvertimeHours     *decimal.Decimal      `json:"overtimeHours,omitempty"`
	AbsenceDays       *decimal.Decimal      `json:"absenceDays,omitempty"`
	Penalties         *decimal.Decimal      `json:"penalties,omitempty"`
	PenaltyDays       *decimal.Decimal      `json:"penaltyDays,omitempty"`
	Advances          *decimal.Decimal      `json:"advances,omitempty"`
	Purchases         *decimal.Decimal      `json:"purchases,omitempty"`
	HourlyDeductions  *decimal.Decimal      `json:"hourlyDeductions,omitempty"`
	Status            *Status               `json:"status,omitempty"`
	JoinDate          *time.Time            `json:"joinDate,omitempty"`
	NationalID        *string               `json:"nationalId,omitempty"`
	PhoneNumber       *string               `json:"phoneNumber,omitempty"`
	Email             *string               `json:"email,omitempty"`
	BankAccount       *string               `json:"bankAccount,omitempty"`
	BankName          *string               `json:"bankName,omitempty"`
	DepartmentID      *generic.DepartmentID `json:"departmentId,omitempty"`
}

// Apply returns e with every non-nil patch field copied over.
func (p EmployeePatch) Apply(e Employee) Employee {
	setString(&e.Code, p.Code)
	setString(&e.Name, p.Name)
	if p.Position != nil {
		e.Position = *p.Position
	}
	if p.DepartmentID != nil {
		e.Position.DepartmentID = *p.DepartmentID
	}
	setDecimal(&e.BasicSalary, p.BasicSalary)
	setDecimal(&e.MonthlyIncentives, p.MonthlyIncentives)
	setDecimal(&e.Bonus, p.Bonus)
	setDecimal(&e.OvertimeHours, p.OvertimeHours)
	setDecimal(&e.AbsenceDays, p.AbsenceDays)
	setDecimal(&e.Penalties, p.Penalties)
	setDecimal(&e.PenaltyDays, p.PenaltyDays)
	setDecimal(&e.Advances, p.Advances)
	setDecimal(&e.Purchases, p.Purchases)
	setDecimal(&e.HourlyDeductions, p.HourlyDeductions)
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.JoinDate != nil {
		e.JoinDate = *p.JoinDate
	}
	setString(&e.NationalID, p.NationalID)
	setString(&e.PhoneNumber, p.PhoneNumber)
	setString(&e.Email, p.Email)
	setString(&e.BankAccount, p.BankAccount)
	setString(&e.BankName, p.BankName)
	return e
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDecimal(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}
