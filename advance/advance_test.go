package advance_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/advance"
	"github.com/warp/payroll-engine/generic"
)

var requestedAt = time.Date(2025, time.January, 31, 10, 0, 0, 0, time.UTC)

func request(t *testing.T, amount string, count int) (advance.Advance, []advance.Installment) {
	t.Helper()
	adv, schedule, err := advance.Request("adv-1", advance.RequestInput{
		EmployeeID:        "emp-1",
		Amount:            generic.MustParseDecimal(amount),
		Reason:            "rent",
		InstallmentsCount: count,
	}, requestedAt)
	require.NoError(t, err)
	return adv, schedule
}

func approved(t *testing.T, amount string, count int) (advance.Advance, []advance.Installment) {
	t.Helper()
	adv, schedule := request(t, amount, count)
	adv, err := adv.Approve("manager", requestedAt)
	require.NoError(t, err)
	return adv, schedule
}

func payAll(t *testing.T, adv advance.Advance, schedule []advance.Installment, n int) (advance.Advance, []advance.Installment) {
	t.Helper()
	out := append([]advance.Installment(nil), schedule...)
	for i := 0; i < n; i++ {
		var err error
		adv, out[i], err = advance.ApplyPayment(adv, out[i], out[i].Outstanding(), requestedAt.AddDate(0, i+1, 0))
		require.NoError(t, err)
	}
	return adv, out
}

// =============================================================================
// SCHEDULE
// =============================================================================

func TestRequest_RemainderGoesToLastInstallment(t *testing.T) {
	// GIVEN: 1000 in 3 installments
	adv, schedule := request(t, "1000", 3)

	// THEN: 334, 334, 332
	require.Len(t, schedule, 3)
	assert.Equal(t, "334", schedule[0].Amount.String())
	assert.Equal(t, "334", schedule[1].Amount.String())
	assert.Equal(t, "332", schedule[2].Amount.String())

	assert.Equal(t, advance.StatusPending, adv.Status)
	assert.True(t, adv.RemainingAmount.Equal(adv.Amount))
	assert.Equal(t, generic.InstallmentID("adv-1-1"), schedule[0].ID)
	assert.Equal(t, generic.InstallmentID("adv-1-3"), schedule[2].ID)
	assert.NoError(t, advance.CheckInvariant(adv, schedule))
}

func TestRequest_SumIsExactForAllCounts(t *testing.T) {
	amounts := []string{"1", "7", "100", "999", "1000", "1234.56", "50000", "77777"}
	for _, a := range amounts {
		amount := generic.MustParseDecimal(a)
		for count := 1; count <= 24; count++ {
			parts, err := advance.Split(amount, count)
			if err != nil {
				// only small amounts that cannot be split into positive parts
				assert.ErrorIs(t, err, generic.ErrInvalidInput)
				continue
			}
			per := amount.Div(decimal.NewFromInt(int64(count))).Ceil()
			sum := decimal.Zero
			for i, p := range parts {
				sum = sum.Add(p)
				assert.True(t, p.IsPositive(), "amount %s count %d part %d", a, count, i)
				if i < count-1 {
					assert.True(t, p.Equal(per), "amount %s count %d part %d", a, count, i)
				}
			}
			assert.True(t, sum.Equal(amount), "amount %s count %d sums to %s", a, count, sum)
		}
	}
}

func TestRequest_SingleInstallmentIsWholeAmount(t *testing.T) {
	_, schedule := request(t, "1234.56", 1)

	require.Len(t, schedule, 1)
	assert.Equal(t, "1234.56", schedule[0].Amount.String())
}

func TestRequest_NonPositiveLastInstallmentRejected(t *testing.T) {
	// 5 in 4: ceil = 2, last = 5 - 6 = -1
	_, _, err := advance.Request("adv-x", advance.RequestInput{
		EmployeeID:        "emp-1",
		Amount:            decimal.NewFromInt(5),
		InstallmentsCount: 4,
	}, requestedAt)

	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestRequest_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   advance.RequestInput
	}{
		{"zero amount", advance.RequestInput{EmployeeID: "e", Amount: decimal.Zero, InstallmentsCount: 1}},
		{"negative amount", advance.RequestInput{EmployeeID: "e", Amount: decimal.NewFromInt(-10), InstallmentsCount: 1}},
		{"zero count", advance.RequestInput{EmployeeID: "e", Amount: decimal.NewFromInt(10), InstallmentsCount: 0}},
		{"too many", advance.RequestInput{EmployeeID: "e", Amount: decimal.NewFromInt(1000), InstallmentsCount: advance.MaxInstallments + 1}},
		{"no employee", advance.RequestInput{Amount: decimal.NewFromInt(10), InstallmentsCount: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := advance.Request("adv", tt.in, requestedAt)
			assert.ErrorIs(t, err, generic.ErrInvalidInput)
		})
	}
}

func TestRequest_DueDatesClampToMonthEnd(t *testing.T) {
	// GIVEN: a request on January 31st
	_, schedule := request(t, "400", 4)

	// THEN: one due date per month, clamped where the month is shorter
	expected := []time.Time{
		time.Date(2025, time.February, 28, 10, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 31, 10, 0, 0, 0, time.UTC),
		time.Date(2025, time.April, 30, 10, 0, 0, 0, time.UTC),
		time.Date(2025, time.May, 31, 10, 0, 0, 0, time.UTC),
	}
	for i, due := range expected {
		assert.Equal(t, due, schedule[i].DueDate, "installment %d", i+1)
	}
}

// =============================================================================
// STATE MACHINE
// =============================================================================

func TestApproveReject_OnlyFromPending(t *testing.T) {
	adv, _ := request(t, "1000", 2)

	ok, err := adv.Approve("manager", requestedAt)
	require.NoError(t, err)
	assert.Equal(t, advance.StatusApproved, ok.Status)
	assert.Equal(t, generic.ActorID("manager"), ok.ApprovedBy)
	require.NotNil(t, ok.ApprovalDate)

	_, err = ok.Reject("manager", requestedAt)
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	_, err = ok.Approve("manager", requestedAt)
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)

	rejected, err := adv.Reject("hr", requestedAt)
	require.NoError(t, err)
	assert.Equal(t, advance.StatusRejected, rejected.Status)
	assert.Equal(t, generic.ActorID("hr"), rejected.ApprovedBy)

	_, err = rejected.Approve("hr", requestedAt)
	assert.ErrorIs(t, err, generic.ErrInvalidTransition, "rejected is terminal")
}

func TestCheckDeletable(t *testing.T) {
	adv, _ := request(t, "1000", 2)
	assert.NoError(t, adv.CheckDeletable())

	ok, _ := adv.Approve("m", requestedAt)
	assert.ErrorIs(t, ok.CheckDeletable(), generic.ErrInvalidOperation)

	rejected, _ := adv.Reject("m", requestedAt)
	assert.ErrorIs(t, rejected.CheckDeletable(), generic.ErrInvalidOperation)
}

// =============================================================================
// PAYMENTS & DERIVED STATUS
// =============================================================================

func TestRecompute_CompletesWhenAllPaid(t *testing.T) {
	// GIVEN: an approved advance with 3 installments
	adv, schedule := approved(t, "1000", 3)

	// WHEN: only 2 are paid
	partial, partialSchedule := payAll(t, adv, schedule, 2)
	got, _ := advance.RecomputeDerivedStatus(partial, partialSchedule)

	// THEN: still approved
	assert.Equal(t, advance.StatusApproved, got.Status)
	assert.Equal(t, "332", got.RemainingAmount.String())
	assert.NoError(t, advance.CheckInvariant(partial, partialSchedule))

	// WHEN: all 3 are paid
	full, fullSchedule := payAll(t, adv, schedule, 3)
	got, overdue := advance.RecomputeDerivedStatus(full, fullSchedule)

	// THEN: completed
	assert.Equal(t, advance.StatusCompleted, got.Status)
	assert.False(t, overdue)
	assert.True(t, got.RemainingAmount.IsZero())
	assert.NoError(t, advance.CheckInvariant(got, fullSchedule))
}

func TestRecompute_PendingAdvanceNeverCompletes(t *testing.T) {
	adv, schedule := request(t, "300", 3)
	for i := range schedule {
		schedule[i].Status = advance.InstallmentPaid
	}

	got, overdue := advance.RecomputeDerivedStatus(adv, schedule)

	assert.Equal(t, advance.StatusPending, got.Status)
	assert.False(t, overdue)
}

func TestRecompute_OverdueIsReportedNotApplied(t *testing.T) {
	adv, schedule := approved(t, "900", 3)

	marked, changed := advance.MarkOverdue(schedule, requestedAt.AddDate(0, 2, 5))
	require.True(t, changed)
	assert.Equal(t, advance.InstallmentOverdue, marked[0].Status)
	assert.Equal(t, advance.InstallmentOverdue, marked[1].Status)
	assert.Equal(t, advance.InstallmentPending, marked[2].Status)
	assert.Equal(t, advance.InstallmentPending, schedule[0].Status, "input slice untouched")

	got, overdue := advance.RecomputeDerivedStatus(adv, marked)

	assert.True(t, overdue)
	assert.Equal(t, advance.StatusApproved, got.Status)
}

func TestApplyPayment_Rules(t *testing.T) {
	pending, schedule := request(t, "1000", 2)

	_, _, err := advance.ApplyPayment(pending, schedule[0], decimal.NewFromInt(100), requestedAt)
	assert.ErrorIs(t, err, generic.ErrInvalidOperation, "advance not approved")

	adv, _ := pending.Approve("m", requestedAt)

	_, _, err = advance.ApplyPayment(adv, schedule[0], decimal.NewFromInt(501), requestedAt)
	assert.ErrorIs(t, err, generic.ErrInvalidInput, "more than outstanding")

	_, _, err = advance.ApplyPayment(adv, schedule[0], decimal.Zero, requestedAt)
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	// partial payment keeps the installment open
	adv, inst, err := advance.ApplyPayment(adv, schedule[0], decimal.NewFromInt(200), requestedAt)
	require.NoError(t, err)
	assert.Equal(t, advance.InstallmentPending, inst.Status)
	assert.Nil(t, inst.PaidDate)
	assert.Equal(t, "800", adv.RemainingAmount.String())

	adv, inst, err = advance.ApplyPayment(adv, inst, decimal.NewFromInt(300), requestedAt)
	require.NoError(t, err)
	assert.Equal(t, advance.InstallmentPaid, inst.Status)
	require.NotNil(t, inst.PaidDate)
	assert.Equal(t, "500", adv.RemainingAmount.String())

	_, _, err = advance.ApplyPayment(adv, inst, decimal.NewFromInt(1), requestedAt)
	assert.ErrorIs(t, err, generic.ErrInvalidOperation, "already paid")
}

func TestApplyPayment_OverdueCanBePaid(t *testing.T) {
	adv, schedule := approved(t, "600", 2)
	marked, _ := advance.MarkOverdue(schedule, requestedAt.AddDate(1, 0, 0))

	_, inst, err := advance.ApplyPayment(adv, marked[0], marked[0].Amount, requestedAt.AddDate(1, 0, 0))

	require.NoError(t, err)
	assert.Equal(t, advance.InstallmentPaid, inst.Status)
}

func TestCheckInvariant_DetectsDrift(t *testing.T) {
	adv, schedule := request(t, "1000", 3)
	schedule[2].Amount = decimal.NewFromInt(331)

	assert.ErrorIs(t, advance.CheckInvariant(adv, schedule), generic.ErrInvalidOperation)
}
