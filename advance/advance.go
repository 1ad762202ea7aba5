/*
Package advance implements salary advances and their installment schedule.

PURPOSE:
  An advance is a short-term loan to an employee, repaid in monthly
  installments. This package creates the schedule, drives the advance
  state machine and keeps the money figures of an advance consistent with
  its installments.

KEY CONCEPTS:
  Advance status:
    pending --Approve--> approved --(all installments paid)--> completed
    pending --Reject---> rejected

  completed is derived: nothing sets it directly, RecomputeDerivedStatus
  does once every installment is paid.

  Installment status:
    pending --(fully paid)--> paid
    pending --(due date passed)--> overdue --(fully paid)--> paid

INVARIANTS:
  sum(installment.amount)              == advance.amount
  sum(installment.amount - paidAmount) == advance.remainingAmount

SEE ALSO:
  - schedule.go: Request, ApplyPayment, MarkOverdue
  - state/reducer.go: applies these atomically to the snapshot
*/
package advance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// transitions lists the legal successors of each status.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusCompleted},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, n := range transitions[s] {
		if n == to {
			return true
		}
	}
	return false
}

// =============================================================================
// ADVANCE
// =============================================================================

type Advance struct {
	ID                generic.AdvanceID  `json:"id"`
	EmployeeID        generic.EmployeeID `json:"employeeId"`
	Amount            decimal.Decimal    `json:"amount"`
	Date              time.Time          `json:"date"`
	Reason            string             `json:"reason"`
	InstallmentsCount int                `json:"installments"`
	RemainingAmount   decimal.Decimal    `json:"remainingAmount"`
	Status            Status             `json:"status"`
	ApprovedBy        generic.ActorID    `json:"approvedBy,omitempty"`
	ApprovalDate      *time.Time         `json:"approvalDate,omitempty"`
	Notes             string             `json:"notes,omitempty"`
}

// Approve moves a pending advance to approved.
func (a Advance) Approve(actor generic.ActorID, at time.Time) (Advance, error) {
	return a.decide(StatusApproved, actor, at)
}

// Reject moves a pending advance to rejected. Rejected is terminal.
func (a Advance) Reject(actor generic.ActorID, at time.Time) (Advance, error) {
	return a.decide(StatusRejected, actor, at)
}

func (a Advance) decide(to Status, actor generic.ActorID, at time.Time) (Advance, error) {
	if a.Status != StatusPending {
		return a, a.transitionError(to)
	}
	a.Status = to
	a.ApprovedBy = actor
	a.ApprovalDate = &at
	return a, nil
}

// CheckDeletable allows deleting only pending advances. Anything else is
// history.
func (a Advance) CheckDeletable() error {
	if a.Status != StatusPending {
		return &generic.OperationError{
			Op:     "delete advance",
			Reason: fmt.Sprintf("advance %s is %s, only pending advances can be deleted", a.ID, a.Status),
		}
	}
	return nil
}

func (a Advance) transitionError(to Status) error {
	return &generic.TransitionError{
		Entity: "advance",
		ID:     string(a.ID),
		From:   string(a.Status),
		To:     string(to),
	}
}

// =============================================================================
// INSTALLMENT
// =============================================================================

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentOverdue InstallmentStatus = "overdue"
)

func (s InstallmentStatus) Valid() bool {
	switch s {
	case InstallmentPending, InstallmentPaid, InstallmentOverdue:
		return true
	}
	return false
}

type Installment struct {
	ID         generic.InstallmentID `json:"id"`
	AdvanceID  generic.AdvanceID     `json:"advanceId"`
	Amount     decimal.Decimal       `json:"amount"`
	DueDate    time.Time             `json:"dueDate"`
	PaidAmount decimal.Decimal       `json:"paidAmount"`
	PaidDate   *time.Time            `json:"paidDate,omitempty"`
	Status     InstallmentStatus     `json:"status"`
}

// Outstanding is the unpaid part of the installment.
func (i Installment) Outstanding() decimal.Decimal {
	return i.Amount.Sub(i.PaidAmount)
}

// IsOverdueAt reports whether the installment is past due and not fully paid.
func (i Installment) IsOverdueAt(now time.Time) bool {
	return i.Status != InstallmentPaid && i.DueDate.Before(now) && i.PaidAmount.LessThan(i.Amount)
}

// InstallmentID is installment n (1-based) of an advance.
func InstallmentID(advanceID generic.AdvanceID, n int) generic.InstallmentID {
	return generic.InstallmentID(fmt.Sprintf("%s-%d", advanceID, n))
}

// Of returns the installments belonging to advanceID, in schedule order.
func Of(advanceID generic.AdvanceID, all []Installment) []Installment {
	var out []Installment
	for _, i := range all {
		if i.AdvanceID == advanceID {
			out = append(out, i)
		}
	}
	return out
}
