package state_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/advance"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/notify"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/personnel"
	"github.com/warp/payroll-engine/state"
	"github.com/warp/payroll-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var start = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctx     context.Context
	clock   *generic.FixedClock
	mem     *memory.Memory
	store   *state.Store
	saveErr []error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		clock: generic.NewFixedClock(start),
		mem:   memory.New(),
	}
	var err error
	f.store, err = state.New(f.ctx, f.mem,
		state.WithClock(f.clock),
		state.WithIDGenerator(generic.SequenceGenerator("id")),
		state.WithSaveErrorHandler(func(err error) { f.saveErr = append(f.saveErr, err) }),
	)
	require.NoError(t, err)

	f.mustDispatch(t, state.AddEmployee{Employee: employee("emp-1", "Mona Adel", "22000")})
	f.mustDispatch(t, state.AddEmployee{Employee: employee("emp-2", "Omar Said", "11000")})
	return f
}

func employee(id, name, salary string) personnel.Employee {
	return personnel.Employee{
		ID:          generic.EmployeeID(id),
		Code:        "C-" + id,
		Name:        name,
		Position:    personnel.JobPosition{Title: "Cashier", DepartmentID: "sales"},
		BasicSalary: generic.MustParseDecimal(salary),
		Status:      personnel.StatusActive,
		JoinDate:    start.AddDate(-1, 0, 0),
	}
}

func (f *fixture) mustDispatch(t *testing.T, in state.Intent) state.Snapshot {
	t.Helper()
	snap, err := f.store.Dispatch(f.ctx, in)
	require.NoError(t, err)
	return snap
}

func (f *fixture) requestAdvance(t *testing.T, id string, amount int64, count int) state.Snapshot {
	t.Helper()
	return f.mustDispatch(t, state.RequestAdvance{
		ID: generic.AdvanceID(id),
		Input: advance.RequestInput{
			EmployeeID:        "emp-1",
			Amount:            decimal.NewFromInt(amount),
			Reason:            "car repair",
			InstallmentsCount: count,
		},
	})
}

// =============================================================================
// ADVANCES
// =============================================================================

func TestRequestAdvance_InsertsAdvanceAndScheduleTogether(t *testing.T) {
	f := newFixture(t)

	snap := f.requestAdvance(t, "adv-1", 1000, 3)

	adv, ok := snap.Advance("adv-1")
	require.True(t, ok)
	assert.Equal(t, advance.StatusPending, adv.Status)
	schedule := snap.InstallmentsOf("adv-1")
	require.Len(t, schedule, 3)
	assert.Equal(t, "332", schedule[2].Amount.String())

	require.NotEmpty(t, snap.Notifications)
	assert.Equal(t, notify.TypeAdvance, snap.Notifications[0].Type)
	assert.Equal(t, "adv-1", snap.Notifications[0].TargetID)
}

func TestRequestAdvance_UnknownEmployee(t *testing.T) {
	f := newFixture(t)
	before := f.store.Snapshot()

	_, err := f.store.Dispatch(f.ctx, state.RequestAdvance{Input: advance.RequestInput{
		EmployeeID: "ghost", Amount: decimal.NewFromInt(100), InstallmentsCount: 1,
	}})

	assert.ErrorIs(t, err, generic.ErrNotFound)
	assert.Equal(t, before, f.store.Snapshot())
}

func TestDeleteAdvance_ReferentialIntegrity(t *testing.T) {
	f := newFixture(t)
	f.requestAdvance(t, "adv-1", 1000, 3)
	f.requestAdvance(t, "adv-2", 600, 2)

	// WHEN: deleting a pending advance
	snap := f.mustDispatch(t, state.DeleteAdvance{ID: "adv-1"})

	// THEN: its installments go with it, the other schedule stays
	_, ok := snap.Advance("adv-1")
	assert.False(t, ok)
	assert.Empty(t, snap.InstallmentsOf("adv-1"))
	assert.Len(t, snap.AdvanceInstallments, 2)

	// WHEN: deleting an approved advance
	f.mustDispatch(t, state.ApproveAdvance{ID: "adv-2", Actor: "manager"})
	before := f.store.Snapshot()
	_, err := f.store.Dispatch(f.ctx, state.DeleteAdvance{ID: "adv-2"})

	// THEN: rejected and nothing changes
	assert.ErrorIs(t, err, generic.ErrInvalidOperation)
	assert.Equal(t, before.AdvanceInstallments, f.store.Snapshot().AdvanceInstallments)
}

func TestAdvanceLifecycle_PaymentsCompleteTheAdvance(t *testing.T) {
	f := newFixture(t)
	f.requestAdvance(t, "adv-1", 1000, 3)

	snap := f.mustDispatch(t, state.ApproveAdvance{ID: "adv-1", Actor: "manager"})
	emp, _ := snap.Employee("emp-1")
	assert.Equal(t, "1000", emp.Advances.String(), "approval adds the principal")

	for i, inst := range snap.InstallmentsOf("adv-1") {
		snap = f.mustDispatch(t, state.PayInstallment{ID: inst.ID, Amount: inst.Amount})
		adv, _ := snap.Advance("adv-1")
		if i < 2 {
			assert.Equal(t, advance.StatusApproved, adv.Status, "after %d payments", i+1)
		}
	}

	adv, _ := snap.Advance("adv-1")
	assert.Equal(t, advance.StatusCompleted, adv.Status)
	assert.True(t, adv.RemainingAmount.IsZero())
	emp, _ = snap.Employee("emp-1")
	assert.True(t, emp.Advances.IsZero())
}

func TestApproveAdvance_Twice(t *testing.T) {
	f := newFixture(t)
	f.requestAdvance(t, "adv-1", 500, 1)
	f.mustDispatch(t, state.RejectAdvance{ID: "adv-1", Actor: "manager"})

	_, err := f.store.Dispatch(f.ctx, state.ApproveAdvance{ID: "adv-1", Actor: "manager"})

	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
}

func TestPayInstallment_PendingAdvanceRefused(t *testing.T) {
	f := newFixture(t)
	snap := f.requestAdvance(t, "adv-1", 500, 2)

	_, err := f.store.Dispatch(f.ctx, state.PayInstallment{ID: snap.InstallmentsOf("adv-1")[0].ID, Amount: decimal.NewFromInt(10)})

	assert.ErrorIs(t, err, generic.ErrInvalidOperation)
}

func TestMarkOverdue_FlagsAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.requestAdvance(t, "adv-1", 900, 3)
	f.requestAdvance(t, "adv-pending", 900, 3)
	f.mustDispatch(t, state.ApproveAdvance{ID: "adv-1", Actor: "manager"})

	// GIVEN: six weeks later, the first installment is past due
	f.clock.Advance(42 * 24 * time.Hour)
	snap := f.mustDispatch(t, state.MarkOverdueInstallments{})

	schedule := snap.InstallmentsOf("adv-1")
	assert.Equal(t, advance.InstallmentOverdue, schedule[0].Status)
	assert.Equal(t, advance.InstallmentPending, schedule[1].Status)
	for _, inst := range snap.InstallmentsOf("adv-pending") {
		assert.Equal(t, advance.InstallmentPending, inst.Status, "only approved advances go overdue")
	}

	adv, _ := snap.Advance("adv-1")
	assert.Equal(t, advance.StatusApproved, adv.Status)
	assert.Equal(t, "Installment overdue", snap.Notifications[0].Title)
	assert.Equal(t, "adv-1", snap.Notifications[0].TargetID)

	// running again changes nothing, so no new notification
	again := f.mustDispatch(t, state.MarkOverdueInstallments{})
	assert.Len(t, again.Notifications, len(snap.Notifications))
}

// =============================================================================
// PAYROLL
// =============================================================================

func TestGeneratePayroll_OncePerPeriod(t *testing.T) {
	f := newFixture(t)
	f.mustDispatch(t, state.AddEmployee{Employee: func() personnel.Employee {
		e := employee("emp-3", "Left Company", "9000")
		e.Status = personnel.StatusInactive
		return e
	}()})

	snap := f.mustDispatch(t, state.GeneratePayroll{Month: 3, Year: 2025})

	require.Len(t, snap.PayrollRecords, 2, "inactive employees are skipped")
	for _, r := range snap.PayrollRecords {
		assert.Equal(t, payroll.StatusPending, r.Status)
		assert.True(t, r.NetSalaryConsistent())
	}

	_, err := f.store.Dispatch(f.ctx, state.GeneratePayroll{Month: 3, Year: 2025})
	assert.ErrorIs(t, err, generic.ErrInvalidOperation)
}

func TestGeneratePayroll_IsAtomic(t *testing.T) {
	f := newFixture(t)
	// GIVEN: the second employee has more absences than working days
	f.mustDispatch(t, state.UpdateEmployee{ID: "emp-2", Patch: personnel.EmployeePatch{AbsenceDays: ptr(decimal.NewFromInt(30))}})
	before := f.store.Snapshot()

	_, err := f.store.Dispatch(f.ctx, state.GeneratePayroll{Month: 4, Year: 2025})

	// THEN: no record at all, not even for the valid employee
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
	assert.Equal(t, before, f.store.Snapshot())
}

func TestAddPayrollRecord_Import(t *testing.T) {
	f := newFixture(t)
	rec := payroll.Record{
		EmployeeID:   "emp-1",
		EmployeeName: "Mona Adel",
		Month:        1,
		Year:         2025,
		TotalSalary:  decimal.NewFromInt(20000),
		NetSalary:    decimal.NewFromInt(20000),
	}

	snap := f.mustDispatch(t, state.AddPayrollRecord{Record: rec})

	stored, ok := snap.PayrollRecord(payroll.RecordID("emp-1", 1, 2025))
	require.True(t, ok)
	assert.Equal(t, payroll.StatusPending, stored.Status)

	_, err := f.store.Dispatch(f.ctx, state.AddPayrollRecord{Record: rec})
	assert.ErrorIs(t, err, generic.ErrInvalidOperation, "one record per employee and period")

	unknown := rec
	unknown.EmployeeID = "emp-9"
	_, err = f.store.Dispatch(f.ctx, state.AddPayrollRecord{Record: unknown})
	assert.True(t, generic.IsNotFound(err))

	broken := rec
	broken.Month = 2
	broken.NetSalary = decimal.NewFromInt(1)
	_, err = f.store.Dispatch(f.ctx, state.AddPayrollRecord{Record: broken})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestPayrollStateMachine(t *testing.T) {
	f := newFixture(t)
	f.mustDispatch(t, state.GeneratePayroll{Month: 3, Year: 2025})
	id := payroll.RecordID("emp-1", 3, 2025)

	_, err := f.store.Dispatch(f.ctx, state.MarkPayrollPaid{ID: id, Actor: "cashier"})
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	rec, _ := f.store.Snapshot().PayrollRecord(id)
	assert.Equal(t, payroll.StatusPending, rec.Status)

	f.mustDispatch(t, state.ProcessPayroll{ID: id, Actor: "hr"})
	snap := f.mustDispatch(t, state.MarkPayrollPaid{ID: id, Actor: "cashier"})

	rec, _ = snap.PayrollRecord(id)
	assert.Equal(t, payroll.StatusPaid, rec.Status)
	assert.Equal(t, generic.ActorID("cashier"), rec.PaidBy)
	emp, _ := snap.Employee("emp-1")
	require.NotNil(t, emp.LastPayrollAmount)
	assert.True(t, emp.LastPayrollAmount.Equal(rec.NetSalary))

	_, err = f.store.Dispatch(f.ctx, state.ProcessPayroll{ID: "nope", Actor: "hr"})
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

// =============================================================================
// ORGANISATION
// =============================================================================

func TestUpdateEmployee_UnknownIDIsNoOp(t *testing.T) {
	f := newFixture(t)
	before := f.store.Snapshot()

	snap, err := f.store.Dispatch(f.ctx, state.UpdateEmployee{ID: "ghost", Patch: personnel.EmployeePatch{Name: ptr("Someone")}})

	require.NoError(t, err)
	assert.Equal(t, before.Employees, snap.Employees)
	_, ok := snap.Employee("ghost")
	assert.False(t, ok)
}

func TestUpdateEmployee_ShallowMerge(t *testing.T) {
	f := newFixture(t)

	snap := f.mustDispatch(t, state.UpdateEmployee{ID: "emp-1", Patch: personnel.EmployeePatch{
		Bonus: ptr(decimal.NewFromInt(750)),
	}})

	emp, _ := snap.Employee("emp-1")
	assert.Equal(t, "750", emp.Bonus.String())
	assert.Equal(t, "Mona Adel", emp.Name)
	assert.Equal(t, "22000", emp.BasicSalary.String())
}

func TestUpdateEmployee_InvalidMergeRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.Dispatch(f.ctx, state.UpdateEmployee{ID: "emp-1", Patch: personnel.EmployeePatch{
		BasicSalary: ptr(decimal.NewFromInt(-1)),
	}})

	assert.ErrorIs(t, err, generic.ErrInvalidInput)
	emp, _ := f.store.Snapshot().Employee("emp-1")
	assert.Equal(t, "22000", emp.BasicSalary.String())
}

func TestDeleteEmployee_RefusedWhileReferenced(t *testing.T) {
	f := newFixture(t)
	f.requestAdvance(t, "adv-1", 100, 1)

	_, err := f.store.Dispatch(f.ctx, state.DeleteEmployee{ID: "emp-1"})
	assert.ErrorIs(t, err, generic.ErrInvalidOperation)

	snap := f.mustDispatch(t, state.DeleteEmployee{ID: "emp-2"})
	_, ok := snap.Employee("emp-2")
	assert.False(t, ok)
}

func TestSetEmployees_RefusedWhenDroppingReferenced(t *testing.T) {
	// GIVEN: emp-1 has payroll for March
	f := newFixture(t)
	f.mustDispatch(t, state.GeneratePayroll{Month: 3, Year: 2025})

	// WHEN: An import leaves emp-1 out
	_, err := f.store.Dispatch(f.ctx, state.SetEmployees{Employees: []personnel.Employee{employee("emp-2", "Omar Said", "11000")}})

	// THEN: The import is refused and emp-1 stays
	assert.ErrorIs(t, err, generic.ErrInvalidOperation)
	assert.Contains(t, err.Error(), "emp-1 has payroll records")
	_, ok := f.store.Snapshot().Employee("emp-1")
	assert.True(t, ok)
}

func TestSetEmployees_ReplacesUnreferenced(t *testing.T) {
	f := newFixture(t)
	f.requestAdvance(t, "adv-1", 100, 1)
	before, _ := f.mustDispatch(t, state.ApproveAdvance{ID: "adv-1", Actor: "manager"}).Employee("emp-1")
	require.Equal(t, "100", before.Advances.String())

	// emp-1 is referenced but kept, emp-2 is dropped, emp-3 is new
	hana := employee("emp-3", "Hana Fawzy", "9000")
	hana.Status = ""
	snap := f.mustDispatch(t, state.SetEmployees{Employees: []personnel.Employee{
		employee("emp-1", "Mona Adel", "23000"),
		hana,
	}})

	require.Len(t, snap.Employees, 2)
	mona, _ := snap.Employee("emp-1")
	assert.Equal(t, "23000", mona.BasicSalary.String())
	assert.Equal(t, "100", mona.Advances.String(), "the advance balance survives the import")
	assert.Equal(t, personnel.StatusActive, snap.Employees[1].Status)
	_, ok := snap.Employee("emp-2")
	assert.False(t, ok)

	_, err := f.store.Dispatch(f.ctx, state.SetEmployees{Employees: []personnel.Employee{
		employee("emp-1", "Mona Adel", "23000"),
		employee("emp-1", "Mona Again", "23000"),
	}})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestSetDepartmentsAndPositions_ReplaceLists(t *testing.T) {
	f := newFixture(t)
	f.mustDispatch(t, state.AddDepartment{Department: personnel.Department{ID: "old", Name: "Old", Active: true}})

	snap := f.mustDispatch(t, state.SetDepartments{Departments: []personnel.Department{
		{ID: "sales", Name: "Sales", Active: true},
		{ID: "ops", Name: "Operations", Active: true},
	}})
	require.Len(t, snap.Departments, 2)
	assert.Equal(t, generic.DepartmentID("sales"), snap.Departments[0].ID)

	snap = f.mustDispatch(t, state.SetPositions{Positions: []personnel.Position{
		{ID: "cashier", Title: "Cashier", DepartmentID: "sales", BaseSalary: decimal.NewFromInt(8000)},
	}})
	require.Len(t, snap.Positions, 1)

	_, err := f.store.Dispatch(f.ctx, state.SetPositions{Positions: []personnel.Position{{ID: "x"}}})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
	assert.Len(t, f.store.Snapshot().Positions, 1, "a rejected import keeps the old list")
}

func TestDepartmentsAndPositions(t *testing.T) {
	f := newFixture(t)

	f.mustDispatch(t, state.AddDepartment{Department: personnel.Department{ID: "sales", Name: "Sales", Active: true}})
	f.mustDispatch(t, state.AddPosition{Position: personnel.Position{ID: "cashier", Title: "Cashier", DepartmentID: "sales"}})
	snap := f.mustDispatch(t, state.UpdateDepartment{ID: "sales", Patch: personnel.DepartmentPatch{Name: ptr("Retail")}})

	require.Len(t, snap.Departments, 1)
	assert.Equal(t, "Retail", snap.Departments[0].Name)
	require.Len(t, snap.Positions, 1)

	_, err := f.store.Dispatch(f.ctx, state.AddDepartment{Department: personnel.Department{ID: "sales", Name: "Dup"}})
	assert.ErrorIs(t, err, generic.ErrInvalidOperation)
}

// =============================================================================
// NOTIFICATIONS & SETTINGS
// =============================================================================

func TestNotifications_NewestFirstAndPruned(t *testing.T) {
	f := newFixture(t)
	f.mustDispatch(t, state.ClearNotifications{})

	f.mustDispatch(t, state.AddNotification{Notification: notify.Notification{Title: "first", Type: notify.TypeSystem}})
	f.clock.Advance(time.Hour)
	snap := f.mustDispatch(t, state.AddNotification{Notification: notify.Notification{Title: "second", Type: notify.TypeSystem, Status: notify.StatusRead}})

	require.Len(t, snap.Notifications, 2)
	assert.Equal(t, "second", snap.Notifications[0].Title)
	assert.Equal(t, notify.StatusUnread, snap.Notifications[0].Status)
	assert.Equal(t, f.clock.Now(), snap.Notifications[0].CreatedAt)

	snap = f.mustDispatch(t, state.MarkNotificationRead{ID: snap.Notifications[1].ID})
	assert.Equal(t, 1, notify.CountUnread(snap.Notifications))

	// WHEN: 31 days pass
	f.clock.Advance(31 * 24 * time.Hour)
	snap = f.mustDispatch(t, state.PruneNotifications{})

	assert.Empty(t, snap.Notifications)
}

func TestAddNotification_UnknownTypeRejected(t *testing.T) {
	f := newFixture(t)
	before := len(f.store.Snapshot().Notifications)

	_, err := f.store.Dispatch(f.ctx, state.AddNotification{Notification: notify.Notification{Title: "x", Type: "bogus"}})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	_, err = f.store.Dispatch(f.ctx, state.AddNotification{Notification: notify.Notification{
		Title: "x", Type: notify.TypeSystem, TargetType: "nowhere",
	}})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	assert.Len(t, f.store.Snapshot().Notifications, before)
}

func TestUpdateSettings_InvalidRejected(t *testing.T) {
	f := newFixture(t)
	bad := payroll.DefaultSettings()
	bad.Rates.WorkingDaysPerMonth = decimal.Zero

	_, err := f.store.Dispatch(f.ctx, state.UpdateSettings{Settings: bad})

	assert.ErrorIs(t, err, generic.ErrInvalidConfiguration)
	assert.Equal(t, "22", f.store.Snapshot().Settings.Rates.WorkingDaysPerMonth.String())
}

func TestUpdateSettings_AppliesToNextPayroll(t *testing.T) {
	f := newFixture(t)
	s := payroll.DefaultSettings()
	s.Toggles.EnableIncomeTax = false
	f.mustDispatch(t, state.UpdateSettings{Settings: s})

	snap := f.mustDispatch(t, state.GeneratePayroll{Month: 2, Year: 2025})

	for _, r := range snap.PayrollRecords {
		assert.True(t, r.IncomeTax.IsZero())
	}
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func TestStore_SavesAfterEveryAcceptedTransition(t *testing.T) {
	f := newFixture(t)
	saves := f.mem.Saves()

	f.requestAdvance(t, "adv-1", 100, 1)
	_, err := f.store.Dispatch(f.ctx, state.ApproveAdvance{ID: "missing"})
	require.Error(t, err)

	assert.Equal(t, saves+1, f.mem.Saves(), "rejected transitions are not saved")

	reopened, err := state.New(f.ctx, f.mem, state.WithClock(f.clock))
	require.NoError(t, err)
	_, ok := reopened.Snapshot().Advance("adv-1")
	assert.True(t, ok)
}

func TestStore_SaveFailureIsReportedNotFatal(t *testing.T) {
	f := newFixture(t)
	f.mem.FailSaves(errors.New("disk full"))

	snap, err := f.store.Dispatch(f.ctx, state.AddDepartment{Department: personnel.Department{ID: "ops", Name: "Operations"}})

	require.NoError(t, err)
	assert.Len(t, snap.Departments, 1)
	require.Len(t, f.saveErr, 1)
	assert.ErrorIs(t, f.saveErr[0], generic.ErrPersistence)
	assert.ErrorIs(t, f.store.Close(f.ctx), generic.ErrPersistence)
}

func TestStore_LoadsPartialSnapshot(t *testing.T) {
	// GIVEN: only employees and an orphan installment were saved
	mem := memory.NewWith(state.Documents{
		state.KeyEmployees:           []byte(`[{"id":"e1","name":"Nour","basicSalary":"5000","status":"active"}]`),
		state.KeyAdvanceInstallments: []byte(`[{"id":"gone-1","advanceId":"gone","amount":"10","paidAmount":"0","status":"pending"}]`),
		state.KeyNotifications:       []byte(`[{"id":"old","title":"x","status":"unread","createdAt":"2024-01-01T00:00:00Z"}]`),
	})

	store, err := state.New(context.Background(), mem, state.WithClock(generic.NewFixedClock(start)))
	require.NoError(t, err)
	snap := store.Snapshot()

	assert.Len(t, snap.Employees, 1)
	assert.NotNil(t, snap.Advances)
	assert.Empty(t, snap.Advances)
	assert.Empty(t, snap.AdvanceInstallments, "orphans are dropped")
	assert.Empty(t, snap.Notifications, "expired notifications are pruned")
	assert.Equal(t, payroll.DefaultSettings(), snap.Settings)
	assert.Equal(t, state.DefaultSystemSettings(), snap.SystemSettings)
}

func TestStore_CorruptDocumentFailsLoad(t *testing.T) {
	mem := memory.NewWith(state.Documents{state.KeyEmployees: []byte(`{not json`)})

	_, err := state.New(context.Background(), mem)

	assert.ErrorIs(t, err, generic.ErrPersistence)
}

func TestRestoreSnapshot_RoundTrip(t *testing.T) {
	f := newFixture(t)
	f.requestAdvance(t, "adv-1", 1000, 4)
	backup := f.store.Snapshot()

	other := newFixture(t)
	snap := other.mustDispatch(t, state.RestoreSnapshot{Snapshot: backup})

	assert.Equal(t, backup.Advances, snap.Advances)
	assert.Equal(t, backup.AdvanceInstallments, snap.AdvanceInstallments)
}

func TestRestoreSnapshot_DoesNotRepeatOverdueNotice(t *testing.T) {
	// GIVEN: A backup taken after an installment went overdue
	f := newFixture(t)
	f.requestAdvance(t, "adv-1", 900, 3)
	f.mustDispatch(t, state.ApproveAdvance{ID: "adv-1", Actor: "manager"})
	f.clock.Advance(42 * 24 * time.Hour)
	f.mustDispatch(t, state.MarkOverdueInstallments{})
	backup := f.store.Snapshot()
	require.Equal(t, "Installment overdue", backup.Notifications[0].Title)
	count := len(backup.Notifications)

	// WHEN: It is restored three times
	for i := 0; i < 3; i++ {
		snap := f.mustDispatch(t, state.RestoreSnapshot{Snapshot: backup})

		// THEN: The schedule is checked but nothing is notified again
		assert.Len(t, snap.Notifications, count)
		assert.Equal(t, advance.InstallmentOverdue, snap.InstallmentsOf("adv-1")[0].Status)
	}
}

func TestRestoreSnapshot_BrokenScheduleRejected(t *testing.T) {
	f := newFixture(t)
	f.requestAdvance(t, "adv-1", 1000, 4)
	backup := f.store.Snapshot()
	backup.AdvanceInstallments[0].Amount = decimal.NewFromInt(1)

	other := newFixture(t)
	_, err := other.store.Dispatch(other.ctx, state.RestoreSnapshot{Snapshot: backup})

	assert.ErrorIs(t, err, generic.ErrInvalidOperation)
	assert.Empty(t, other.store.Snapshot().Advances)
}

// =============================================================================
// ATTENDANCE & LEAVE
// =============================================================================

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) attend(t *testing.T, id string, d int, checkIn, checkOut string) state.Snapshot {
	t.Helper()
	return f.mustDispatch(t, state.RecordAttendance{ID: generic.AttendanceID(id), Input: attendance.Input{
		EmployeeID: "emp-1", Date: day(d), CheckIn: checkIn, CheckOut: checkOut,
	}})
}

func TestRecordAttendance_IssuesNotify(t *testing.T) {
	f := newFixture(t)
	before := len(f.store.Snapshot().Notifications)

	// GIVEN: An on-time day
	snap := f.attend(t, "att-1", 3, "09:00", "17:00")
	assert.Len(t, snap.Notifications, before, "a normal day is not notified")

	// WHEN: A late day is recorded
	snap = f.attend(t, "att-2", 4, "09:45", "18:00")

	// THEN: The record is derived and an attendance notification is raised
	rec, ok := snap.AttendanceRecord("att-2")
	require.True(t, ok)
	assert.Equal(t, attendance.StatusLate, rec.Status)
	assert.Equal(t, "1", rec.OvertimeHours.String())
	require.Len(t, snap.Notifications, before+1)
	n := snap.Notifications[0]
	assert.Equal(t, notify.TypeAttendance, n.Type)
	assert.Equal(t, notify.TargetAttendance, n.TargetType)
	assert.Equal(t, "att-2", n.TargetID)
	assert.Contains(t, n.Message, "late on 2025-03-04")
}

func TestRecordAttendance_OnePerDay(t *testing.T) {
	f := newFixture(t)
	f.attend(t, "att-1", 3, "09:00", "17:00")

	_, err := f.store.Dispatch(f.ctx, state.RecordAttendance{Input: attendance.Input{
		EmployeeID: "emp-1", Date: day(3).Add(14 * time.Hour), CheckIn: "09:00",
	}})
	assert.ErrorIs(t, err, generic.ErrInvalidOperation)

	_, err = f.store.Dispatch(f.ctx, state.RecordAttendance{Input: attendance.Input{
		EmployeeID: "emp-9", Date: day(3), CheckIn: "09:00",
	}})
	assert.True(t, generic.IsNotFound(err))

	// another employee on the same day is fine, and gets a generated id
	snap := f.mustDispatch(t, state.RecordAttendance{Input: attendance.Input{
		EmployeeID: "emp-2", Date: day(3), CheckIn: "09:00", CheckOut: "17:00",
	}})
	assert.Len(t, snap.AttendanceRecords, 2)
	assert.NotEmpty(t, snap.AttendanceRecords[1].ID)
}

func TestUpdateAttendance(t *testing.T) {
	f := newFixture(t)
	f.attend(t, "att-1", 3, "09:00", "17:00")
	before := len(f.store.Snapshot().Notifications)

	// WHEN: The check-out is corrected to before the end of the day
	snap := f.mustDispatch(t, state.UpdateAttendance{ID: "att-1", Patch: attendance.Patch{CheckOut: ptr("15:30")}})

	// THEN: The day becomes an early leave and is notified once
	rec, _ := snap.AttendanceRecord("att-1")
	assert.Equal(t, attendance.StatusEarlyLeave, rec.Status)
	assert.Len(t, snap.Notifications, before+1)

	snap = f.mustDispatch(t, state.UpdateAttendance{ID: "att-1", Patch: attendance.Patch{Notes: ptr("doctor")}})
	assert.Len(t, snap.Notifications, before+1, "unchanged status is not notified again")

	_, err := f.store.Dispatch(f.ctx, state.UpdateAttendance{ID: "nope", Patch: attendance.Patch{Notes: ptr("x")}})
	assert.True(t, generic.IsNotFound(err))
}

func TestRequestLeave_NotifiesAndRefusesOverlap(t *testing.T) {
	f := newFixture(t)

	snap := f.mustDispatch(t, state.RequestLeave{ID: "lv-1", Input: attendance.LeaveInput{
		EmployeeID: "emp-1", Type: attendance.LeaveAnnual, StartDate: day(17), EndDate: day(19), Reason: "trip",
	}})

	l, ok := snap.Leave("lv-1")
	require.True(t, ok)
	assert.Equal(t, 3, l.Days)
	assert.Equal(t, attendance.LeavePending, l.Status)
	n := snap.Notifications[0]
	assert.Equal(t, notify.TypeLeave, n.Type)
	assert.Equal(t, notify.TargetLeave, n.TargetType)
	assert.Equal(t, "lv-1", n.TargetID)
	assert.Contains(t, n.Message, "3 day(s) of annual leave")

	// overlapping a pending request is refused
	_, err := f.store.Dispatch(f.ctx, state.RequestLeave{Input: attendance.LeaveInput{
		EmployeeID: "emp-1", Type: attendance.LeaveSick, StartDate: day(19), EndDate: day(20),
	}})
	assert.ErrorIs(t, err, generic.ErrInvalidOperation)

	// once rejected the days are free again
	f.mustDispatch(t, state.RejectLeave{ID: "lv-1", Actor: "hr"})
	f.mustDispatch(t, state.RequestLeave{ID: "lv-2", Input: attendance.LeaveInput{
		EmployeeID: "emp-1", Type: attendance.LeaveSick, StartDate: day(19), EndDate: day(20),
	}})

	_, err = f.store.Dispatch(f.ctx, state.ApproveLeave{ID: "lv-1", Actor: "hr"})
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	_, err = f.store.Dispatch(f.ctx, state.ApproveLeave{ID: "nope", Actor: "hr"})
	assert.True(t, generic.IsNotFound(err))
}

func TestApplyAttendance_FeedsPayroll(t *testing.T) {
	// GIVEN: One absent day, two hours of overtime and two approved unpaid leave days
	f := newFixture(t)
	f.attend(t, "att-1", 3, "09:00", "18:00")
	f.attend(t, "att-2", 4, "", "")
	f.attend(t, "att-3", 5, "09:00", "18:00")
	f.mustDispatch(t, state.RequestLeave{ID: "lv-1", Input: attendance.LeaveInput{
		EmployeeID: "emp-1", Type: attendance.LeaveUnpaid, StartDate: day(24), EndDate: day(25),
	}})
	f.mustDispatch(t, state.ApproveLeave{ID: "lv-1", Actor: "hr"})

	// WHEN: The month is applied and payroll generated
	snap := f.mustDispatch(t, state.ApplyAttendance{EmployeeID: "emp-1", Month: 3, Year: 2025})
	emp, _ := snap.Employee("emp-1")
	assert.Equal(t, "3", emp.AbsenceDays.String())
	assert.Equal(t, "2", emp.OvertimeHours.String())

	snap = f.mustDispatch(t, state.GeneratePayroll{Month: 3, Year: 2025})

	// THEN: The payroll record carries the attendance figures
	rec, ok := snap.PayrollRecord(payroll.RecordID("emp-1", 3, 2025))
	require.True(t, ok)
	assert.Equal(t, "3", rec.AbsentDays.String())
	assert.Equal(t, "2", rec.OvertimeHours.String())
	assert.True(t, rec.AbsenceDeductions.IsPositive())

	_, err := f.store.Dispatch(f.ctx, state.ApplyAttendance{EmployeeID: "emp-1", Month: 13, Year: 2025})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
	_, err = f.store.Dispatch(f.ctx, state.ApplyAttendance{EmployeeID: "emp-9", Month: 3, Year: 2025})
	assert.True(t, generic.IsNotFound(err))
}

func TestDeleteEmployee_RefusedWithAttendanceOrLeave(t *testing.T) {
	f := newFixture(t)
	f.attend(t, "att-1", 3, "09:00", "17:00")
	f.mustDispatch(t, state.RequestLeave{Input: attendance.LeaveInput{
		EmployeeID: "emp-2", Type: attendance.LeaveSick, StartDate: day(3), EndDate: day(3),
	}})

	_, err := f.store.Dispatch(f.ctx, state.DeleteEmployee{ID: "emp-1"})
	assert.ErrorIs(t, err, generic.ErrInvalidOperation)
	assert.Contains(t, err.Error(), "attendance records")

	_, err = f.store.Dispatch(f.ctx, state.DeleteEmployee{ID: "emp-2"})
	assert.ErrorIs(t, err, generic.ErrInvalidOperation)
	assert.Contains(t, err.Error(), "leave requests")
}

// =============================================================================
// PURE APPLY
// =============================================================================

func TestApply_DoesNotMutateInput(t *testing.T) {
	s := state.Empty()
	env := state.Env{Now: start, NewID: generic.SequenceGenerator("x")}
	s, err := state.Apply(s, state.AddEmployee{Employee: employee("e", "Hana", "8000")}, env)
	require.NoError(t, err)
	before := s.Clone()

	_, err = state.Apply(s, state.UpdateEmployee{ID: "e", Patch: personnel.EmployeePatch{Name: ptr("Changed")}}, env)

	require.NoError(t, err)
	assert.Equal(t, before, s)
}

func ptr[T any](v T) *T { return &v }
