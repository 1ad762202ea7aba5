package advance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// MaxInstallments bounds the schedule length (ten years of monthly payments).
const MaxInstallments = 120

// =============================================================================
// REQUEST - Create an advance and its schedule
// =============================================================================

// RequestInput is what an employee asks for.
type RequestInput struct {
	EmployeeID        generic.EmployeeID
	Amount            decimal.Decimal
	Reason            string
	InstallmentsCount int
	Notes             string
}

func (in RequestInput) Validate() error {
	if in.EmployeeID == "" {
		return &generic.InputError{Field: "employeeId", Reason: "is required"}
	}
	if err := generic.RequirePositive("amount", in.Amount); err != nil {
		return err
	}
	if in.InstallmentsCount < 1 || in.InstallmentsCount > MaxInstallments {
		return &generic.InputError{
			Field:  "installmentsCount",
			Reason: fmt.Sprintf("must be between 1 and %d, got %d", MaxInstallments, in.InstallmentsCount),
		}
	}
	return nil
}

// Request creates a pending advance with its installment schedule.
//
// Every installment but the last is ceil(amount/count); the last takes the
// remainder so the schedule sums to amount exactly. Installment n is due n
// calendar months after now, clamped to the end of shorter months
// (Jan 31 + 1 month = Feb 28/29).
//
// A request whose remainder would be zero or negative (amount 5 in 4
// installments gives 2, 2, 2, -1) is rejected.
func Request(id generic.AdvanceID, in RequestInput, now time.Time) (Advance, []Installment, error) {
	if err := in.Validate(); err != nil {
		return Advance{}, nil, err
	}
	amounts, err := Split(in.Amount, in.InstallmentsCount)
	if err != nil {
		return Advance{}, nil, err
	}

	adv := Advance{
		ID:                id,
		EmployeeID:        in.EmployeeID,
		Amount:            in.Amount,
		Date:              now,
		Reason:            in.Reason,
		InstallmentsCount: in.InstallmentsCount,
		RemainingAmount:   in.Amount,
		Status:            StatusPending,
		Notes:             in.Notes,
	}

	schedule := make([]Installment, len(amounts))
	for i, amt := range amounts {
		schedule[i] = Installment{
			ID:         InstallmentID(id, i+1),
			AdvanceID:  id,
			Amount:     amt,
			DueDate:    generic.AddMonthsClamped(now, i+1),
			PaidAmount: decimal.Zero,
			Status:     InstallmentPending,
		}
	}
	return adv, schedule, nil
}

// Split divides amount into count installment amounts.
func Split(amount decimal.Decimal, count int) ([]decimal.Decimal, error) {
	n := decimal.NewFromInt(int64(count))
	per := amount.Div(n).Ceil()
	last := amount.Sub(per.Mul(n.Sub(decimal.NewFromInt(1))))
	if !last.IsPositive() {
		return nil, &generic.InputError{
			Field:  "installmentsCount",
			Reason: fmt.Sprintf("%s cannot be split into %d positive installments", amount, count),
		}
	}

	out := make([]decimal.Decimal, count)
	for i := 0; i < count-1; i++ {
		out[i] = per
	}
	out[count-1] = last
	return out, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

// ApplyPayment records a payment of amount against inst. The advance must be
// approved and the payment may not exceed what is still owed on the
// installment. Overdue installments can still be paid.
func ApplyPayment(adv Advance, inst Installment, amount decimal.Decimal, now time.Time) (Advance, Installment, error) {
	if inst.AdvanceID != adv.ID {
		return adv, inst, &generic.InputError{
			Field:  "installmentId",
			Reason: fmt.Sprintf("%s does not belong to advance %s", inst.ID, adv.ID),
		}
	}
	if adv.Status != StatusApproved {
		return adv, inst, &generic.OperationError{
			Op:     "pay installment",
			Reason: fmt.Sprintf("advance %s is %s, payments need an approved advance", adv.ID, adv.Status),
		}
	}
	if inst.Status == InstallmentPaid {
		return adv, inst, &generic.OperationError{
			Op:     "pay installment",
			Reason: fmt.Sprintf("installment %s is already paid", inst.ID),
		}
	}
	if err := generic.RequirePositive("amount", amount); err != nil {
		return adv, inst, err
	}
	if amount.GreaterThan(inst.Outstanding()) {
		return adv, inst, &generic.InputError{
			Field:  "amount",
			Reason: fmt.Sprintf("%s exceeds the outstanding %s", amount, inst.Outstanding()),
		}
	}

	inst.PaidAmount = inst.PaidAmount.Add(amount)
	if inst.Outstanding().IsZero() {
		inst.Status = InstallmentPaid
		inst.PaidDate = &now
	}
	adv.RemainingAmount = adv.RemainingAmount.Sub(amount)
	return adv, inst, nil
}

// MarkOverdue flags every installment that is past its due date and not
// fully paid. It returns a new slice and whether anything changed.
func MarkOverdue(installments []Installment, now time.Time) ([]Installment, bool) {
	out := make([]Installment, len(installments))
	changed := false
	for i, inst := range installments {
		if inst.Status == InstallmentPending && inst.IsOverdueAt(now) {
			inst.Status = InstallmentOverdue
			changed = true
		}
		out[i] = inst
	}
	return out, changed
}

// =============================================================================
// DERIVED STATUS & INVARIANTS
// =============================================================================

// RecomputeDerivedStatus completes an approved advance once all of its
// installments are paid. The second result reports whether the advance is
// approved with at least one overdue installment; the status itself is not
// changed for that.
func RecomputeDerivedStatus(adv Advance, installments []Installment) (Advance, bool) {
	if adv.Status != StatusApproved || len(installments) == 0 {
		return adv, false
	}
	allPaid := true
	overdue := false
	for _, i := range installments {
		if i.Status != InstallmentPaid {
			allPaid = false
		}
		if i.Status == InstallmentOverdue {
			overdue = true
		}
	}
	if allPaid {
		adv.Status = StatusCompleted
		return adv, false
	}
	return adv, overdue
}

// CheckInvariant verifies the schedule sums to the advance amount and the
// remaining amount equals the unpaid portion of the schedule.
func CheckInvariant(adv Advance, installments []Installment) error {
	total := decimal.Zero
	unpaid := decimal.Zero
	for _, i := range installments {
		if i.AdvanceID != adv.ID {
			return &generic.OperationError{
				Op:     "check advance",
				Reason: fmt.Sprintf("installment %s belongs to %s, not %s", i.ID, i.AdvanceID, adv.ID),
			}
		}
		total = total.Add(i.Amount)
		unpaid = unpaid.Add(i.Outstanding())
	}
	if !total.Equal(adv.Amount) {
		return &generic.OperationError{
			Op:     "check advance",
			Reason: fmt.Sprintf("installments of %s sum to %s, advance amount is %s", adv.ID, total, adv.Amount),
		}
	}
	if !unpaid.Equal(adv.RemainingAmount) {
		return &generic.OperationError{
			Op:     "check advance",
			Reason: fmt.Sprintf("advance %s remaining %s, unpaid installments %s", adv.ID, adv.RemainingAmount, unpaid),
		}
	}
	return nil
}
