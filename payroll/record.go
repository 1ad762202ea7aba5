package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// STATUS - pending -> processed -> paid, forward only
// =============================================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusPaid      Status = "paid"
)

// next is the transition table. A status missing from the table is terminal.
var next = map[Status]Status{
	StatusPending:   StatusProcessed,
	StatusProcessed: StatusPaid,
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusPaid:
		return true
	}
	return false
}

// CanTransitionTo reports whether to is the single legal successor of s.
func (s Status) CanTransitionTo(to Status) bool {
	n, ok := next[s]
	return ok && n == to
}

// =============================================================================
// RECORD
// =============================================================================

// Record is the salary breakdown of one employee for one month. Amounts are a
// snapshot taken at build time and never change; only the status and its
// metadata move.
type Record struct {
	ID           generic.PayrollRecordID `json:"id"`
	EmployeeID   generic.EmployeeID      `json:"employeeId"`
	EmployeeCode string                  `json:"employeeCode"`
	EmployeeName string                  `json:"employeeName"`
	Position     string                  `json:"position"`
	DepartmentID generic.DepartmentID    `json:"departmentId,omitempty"`
	Month        int                     `json:"month"`
	Year         int                     `json:"year"`

	// Rates
	BasicSalary  decimal.Decimal `json:"basicSalary"`
	DailyRate    decimal.Decimal `json:"dailyRate"`
	OvertimeRate decimal.Decimal `json:"overtimeRate"`

	// Work details
	WorkingDays   decimal.Decimal `json:"workingDays"`
	AbsentDays    decimal.Decimal `json:"absentDays"`
	OvertimeHours decimal.Decimal `json:"overtimeHours"`

	// Additions
	Incentives        decimal.Decimal `json:"incentives"`
	MonthlyIncentives decimal.Decimal `json:"monthlyIncentives"`
	Bonus             decimal.Decimal `json:"bonus"`
	OvertimeAmount    decimal.Decimal `json:"overtimeAmount"`
	TotalSalary       decimal.Decimal `json:"totalSalary"`

	// Deductions
	SocialInsurance   decimal.Decimal `json:"socialInsurance"`
	HealthInsurance   decimal.Decimal `json:"healthInsurance"`
	IncomeTax         decimal.Decimal `json:"incomeTax"`
	AbsenceDeductions decimal.Decimal `json:"absenceDeductions"`
	Penalties         decimal.Decimal `json:"penalties"`
	PenaltyDays       decimal.Decimal `json:"penaltyDays"`
	Advances          decimal.Decimal `json:"advances"`
	Purchases         decimal.Decimal `json:"purchases"`
	HourlyDeductions  decimal.Decimal `json:"hourlyDeductions"`
	TotalDeductions   decimal.Decimal `json:"totalDeductions"`

	// NetSalary may be negative. That is reported, not clamped.
	NetSalary               decimal.Decimal `json:"netSalary"`
	DailyRateWithIncentives decimal.Decimal `json:"dailyRateWithIncentives"`

	Status      Status          `json:"status"`
	ProcessedAt *time.Time      `json:"processedAt,omitempty"`
	ProcessedBy generic.ActorID `json:"processedBy,omitempty"`
	PaidAt      *time.Time      `json:"paidAt,omitempty"`
	PaidBy      generic.ActorID `json:"paidBy,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// RecordID is the composite identity of a payroll record.
func RecordID(employeeID generic.EmployeeID, month, year int) generic.PayrollRecordID {
	return generic.PayrollRecordID(fmt.Sprintf("%s-%d-%d", employeeID, year, month))
}

// Period reports whether r belongs to month/year.
func (r Record) Period(month, year int) bool {
	return r.Month == month && r.Year == year
}

// Process moves a pending record to processed. r is never modified; the
// updated copy is returned.
func (r Record) Process(actor generic.ActorID, at time.Time) (Record, error) {
	if err := r.transition(StatusProcessed); err != nil {
		return r, err
	}
	r.Status = StatusProcessed
	r.ProcessedAt = &at
	r.ProcessedBy = actor
	return r, nil
}

// MarkPaid moves a processed record to paid.
func (r Record) MarkPaid(actor generic.ActorID, at time.Time) (Record, error) {
	if err := r.transition(StatusPaid); err != nil {
		return r, err
	}
	r.Status = StatusPaid
	r.PaidAt = &at
	r.PaidBy = actor
	return r, nil
}

func (r Record) transition(to Status) error {
	if !r.Status.CanTransitionTo(to) {
		return &generic.TransitionError{
			Entity: "payroll record",
			ID:     string(r.ID),
			From:   string(r.Status),
			To:     string(to),
		}
	}
	return nil
}

// NetSalaryConsistent checks net = total - deductions for a record.
func (r Record) NetSalaryConsistent() bool {
	deductions := generic.Sum(r.SocialInsurance, r.HealthInsurance, r.IncomeTax, r.AbsenceDeductions, r.Penalties, r.Advances)
	return r.TotalDeductions.Equal(deductions) && r.NetSalary.Equal(r.TotalSalary.Sub(deductions))
}
