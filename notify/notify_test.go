package notify_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/notify"
)

var now = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func TestEmit_AdvanceRequested(t *testing.T) {
	n, err := notify.Emit(notify.Event{
		Kind:         notify.AdvanceRequested,
		TargetID:     "adv-7",
		EmployeeID:   "emp-1",
		EmployeeName: "Mona Adel",
		Amount:       decimal.NewFromInt(1500),
	}, "n-1", now)

	require.NoError(t, err)
	assert.Equal(t, generic.NotificationID("n-1"), n.ID)
	assert.Equal(t, notify.TypeAdvance, n.Type)
	assert.Equal(t, notify.StatusUnread, n.Status)
	assert.Equal(t, now, n.CreatedAt)
	assert.Equal(t, "adv-7", n.TargetID)
	assert.Equal(t, notify.TargetAdvance, n.TargetType)
	assert.Contains(t, n.Message, "Mona Adel")
	assert.Contains(t, n.Message, "1500.00")
}

func TestEmit_EveryKindHasATemplate(t *testing.T) {
	kinds := []notify.EventKind{
		notify.AdvanceRequested, notify.AdvanceApproved, notify.AdvanceRejected,
		notify.InstallmentOverdue, notify.PayrollGenerated, notify.PayrollProcessed,
		notify.PayrollPaid, notify.EmployeeAdded, notify.EmployeeUpdated,
		notify.LeaveRequested, notify.AttendanceIssue, notify.SystemNotice,
	}
	for _, k := range kinds {
		n, err := notify.Emit(notify.Event{Kind: k, EmployeeID: "emp-1", Detail: "details"}, "id", now)
		require.NoError(t, err, "kind %s", k)
		assert.NotEmpty(t, n.Title, "kind %s", k)
		assert.NotEmpty(t, n.Message, "kind %s", k)
		assert.Empty(t, n.TargetType, "no target id, no target type")
	}
}

func TestEmit_PayrollTargetsRecord(t *testing.T) {
	n, err := notify.Emit(notify.Event{Kind: notify.PayrollGenerated, TargetID: "emp-1-2025-6", EmployeeName: "Omar", Month: 6, Year: 2025}, "n", now)

	require.NoError(t, err)
	assert.Equal(t, notify.TypePayroll, n.Type)
	assert.Equal(t, notify.TargetPayrollRecord, n.TargetType)
	assert.Contains(t, n.Message, "06/2025")
}

func TestEmit_RepeatedEventsAreNotDeduplicated(t *testing.T) {
	e := notify.Event{Kind: notify.InstallmentOverdue, TargetID: "adv-1", EmployeeID: "emp-1"}

	a, _ := notify.Emit(e, "n-1", now)
	b, _ := notify.Emit(e, "n-2", now)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Message, b.Message)
}

func TestEmit_UnknownKind(t *testing.T) {
	_, err := notify.Emit(notify.Event{Kind: "birthday"}, "n", now)
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestPrune_RetentionBoundary(t *testing.T) {
	// GIVEN: notifications at, just inside and just outside 30 days
	list := []notify.Notification{
		{ID: "fresh", CreatedAt: now.Add(-time.Hour)},
		{ID: "exactly-30-days", CreatedAt: now.Add(-notify.RetentionWindow)},
		{ID: "old", CreatedAt: now.Add(-notify.RetentionWindow - time.Second)},
	}

	kept := notify.Prune(list, now)

	// THEN: only strictly older than 30 days is dropped
	require.Len(t, kept, 2)
	assert.Equal(t, generic.NotificationID("fresh"), kept[0].ID)
	assert.Equal(t, generic.NotificationID("exactly-30-days"), kept[1].ID)
	assert.Len(t, list, 3)
}

func TestMarkReadAndCount(t *testing.T) {
	list := []notify.Notification{
		{ID: "a", Status: notify.StatusUnread},
		{ID: "b", Status: notify.StatusUnread},
	}
	list[0] = list[0].MarkRead()

	assert.Equal(t, 1, notify.CountUnread(list))
	assert.Equal(t, notify.StatusRead, list[0].MarkRead().Status)
}
