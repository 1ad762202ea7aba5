package state

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/advance"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/notify"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/personnel"
)

// Env carries what Apply needs from the outside world.
type Env struct {
	Now   time.Time
	NewID generic.IDGenerator
}

// =============================================================================
// APPLY
// =============================================================================

// Apply returns the snapshot after in. On error s is returned unchanged.
//
// After the intent itself, every advance whose installments were touched has
// its derived status recomputed (emitting an overdue notification where one
// applies) and its installment invariant checked, and expired notifications
// are pruned.
func Apply(s Snapshot, in Intent, env Env) (Snapshot, error) {
	if env.NewID == nil {
		env.NewID = generic.UUIDGenerator()
	}
	t := &tx{next: s.Clone(), env: env, touched: make(map[generic.AdvanceID]bool)}
	if err := t.apply(in); err != nil {
		return s, err
	}
	if err := t.settle(); err != nil {
		return s, err
	}
	return t.next, nil
}

// tx is one transition in progress. It owns next exclusively.
//
// touched holds the advances settle must recheck. The value is true when
// their installments were mutated in this transition, false when they only
// need checking (restore).
type tx struct {
	next    Snapshot
	env     Env
	touched map[generic.AdvanceID]bool
	order   []generic.AdvanceID
}

func (t *tx) apply(in Intent) error {
	switch in := in.(type) {
	case SetEmployees:
		return t.setEmployees(in.Employees)
	case AddEmployee:
		return t.addEmployee(in.Employee)
	case UpdateEmployee:
		return t.updateEmployee(in.ID, in.Patch)
	case DeleteEmployee:
		return t.deleteEmployee(in.ID)
	case SetDepartments:
		return t.setDepartments(in.Departments)
	case AddDepartment:
		return t.addDepartment(in.Department)
	case UpdateDepartment:
		return t.updateDepartment(in.ID, in.Patch)
	case SetPositions:
		return t.setPositions(in.Positions)
	case AddPosition:
		return t.addPosition(in.Position)
	case UpdatePosition:
		return t.updatePosition(in.ID, in.Patch)
	case RecordAttendance:
		return t.recordAttendance(in.ID, in.Input)
	case UpdateAttendance:
		return t.updateAttendance(in.ID, in.Patch)
	case ApplyAttendance:
		return t.applyAttendance(in.EmployeeID, in.Month, in.Year)
	case RequestLeave:
		return t.requestLeave(in.ID, in.Input)
	case ApproveLeave:
		return t.decideLeave(in.ID, in.Actor, true)
	case RejectLeave:
		return t.decideLeave(in.ID, in.Actor, false)
	case GeneratePayroll:
		return t.generatePayroll(in.Month, in.Year)
	case AddPayrollRecord:
		return t.addPayrollRecord(in.Record)
	case ProcessPayroll:
		return t.processPayroll(in.ID, in.Actor)
	case MarkPayrollPaid:
		return t.markPayrollPaid(in.ID, in.Actor)
	case RequestAdvance:
		return t.requestAdvance(in.ID, in.Input)
	case ApproveAdvance:
		return t.decideAdvance(in.ID, in.Actor, true)
	case RejectAdvance:
		return t.decideAdvance(in.ID, in.Actor, false)
	case DeleteAdvance:
		return t.deleteAdvance(in.ID)
	case PayInstallment:
		return t.payInstallment(in.ID, in.Amount)
	case MarkOverdueInstallments:
		return t.markOverdue()
	case AddNotification:
		return t.addNotification(in.Notification)
	case MarkNotificationRead:
		if i := slices.IndexFunc(t.next.Notifications, func(n notify.Notification) bool { return n.ID == in.ID }); i >= 0 {
			t.next.Notifications[i] = t.next.Notifications[i].MarkRead()
		}
		return nil
	case MarkAllNotificationsRead:
		for i := range t.next.Notifications {
			t.next.Notifications[i] = t.next.Notifications[i].MarkRead()
		}
		return nil
	case ClearNotifications:
		t.next.Notifications = []notify.Notification{}
		return nil
	case PruneNotifications:
		// settle prunes after every intent
		return nil
	case UpdateSettings:
		if err := in.Settings.Validate(); err != nil {
			return err
		}
		t.next.Settings = in.Settings.Clone()
		return nil
	case UpdateSystemSettings:
		if err := in.Settings.Validate(); err != nil {
			return err
		}
		t.next.SystemSettings = in.Settings
		return nil
	case RestoreSnapshot:
		return t.restore(in.Snapshot)
	default:
		return &generic.OperationError{Op: "apply", Reason: fmt.Sprintf("unsupported intent %T", in)}
	}
}

// settle runs the derived-state steps shared by every intent.
func (t *tx) settle() error {
	for _, id := range t.order {
		i := t.advanceIndex(id)
		if i < 0 {
			continue
		}
		schedule := t.next.InstallmentsOf(id)
		updated, overdue := advance.RecomputeDerivedStatus(t.next.Advances[i], schedule)
		if err := advance.CheckInvariant(updated, schedule); err != nil {
			return err
		}
		t.next.Advances[i] = updated
		if overdue && t.touched[id] {
			if err := t.emit(notify.Event{
				Kind:         notify.InstallmentOverdue,
				TargetID:     string(id),
				EmployeeID:   updated.EmployeeID,
				EmployeeName: t.employeeName(updated.EmployeeID),
			}); err != nil {
				return err
			}
		}
	}
	t.next.Notifications = notify.Prune(t.next.Notifications, t.env.Now)
	return nil
}

// touch marks an advance whose installments changed.
func (t *tx) touch(id generic.AdvanceID) {
	if _, seen := t.touched[id]; !seen {
		t.order = append(t.order, id)
	}
	t.touched[id] = true
}

// recheck marks an advance for the invariant check only.
func (t *tx) recheck(id generic.AdvanceID) {
	if _, seen := t.touched[id]; !seen {
		t.touched[id] = false
		t.order = append(t.order, id)
	}
}

func (t *tx) emit(e notify.Event) error {
	n, err := notify.Emit(e, generic.NotificationID(t.env.NewID()), t.env.Now)
	if err != nil {
		return err
	}
	t.next.Notifications = append([]notify.Notification{n}, t.next.Notifications...)
	return nil
}

// =============================================================================
// ORGANISATION
// =============================================================================

func (t *tx) employeeIndex(id generic.EmployeeID) int {
	return slices.IndexFunc(t.next.Employees, func(e personnel.Employee) bool { return e.ID == id })
}

func (t *tx) employeeName(id generic.EmployeeID) string {
	if i := t.employeeIndex(id); i >= 0 {
		return t.next.Employees[i].Name
	}
	return ""
}

// referencedBy names what still points at the employee, or "" when nothing
// does.
func (t *tx) referencedBy(id generic.EmployeeID) string {
	switch {
	case slices.ContainsFunc(t.next.PayrollRecords, func(r payroll.Record) bool { return r.EmployeeID == id }):
		return "payroll records"
	case slices.ContainsFunc(t.next.Advances, func(a advance.Advance) bool { return a.EmployeeID == id }):
		return "advances"
	case slices.ContainsFunc(t.next.AttendanceRecords, func(r attendance.Record) bool { return r.EmployeeID == id }):
		return "attendance records"
	case slices.ContainsFunc(t.next.LeaveRequests, func(l attendance.Leave) bool { return l.EmployeeID == id }):
		return "leave requests"
	}
	return ""
}

// withDefaults fills the status and join date an employee may be created
// without.
func (t *tx) withDefaults(e personnel.Employee) personnel.Employee {
	if e.Status == "" {
		e.Status = personnel.StatusActive
	}
	if e.JoinDate.IsZero() {
		e.JoinDate = t.env.Now
	}
	return e
}

// setEmployees replaces the list. The outstanding advance balance of a kept
// employee is carried over since only the advance engine maintains it.
func (t *tx) setEmployees(in []personnel.Employee) error {
	list := make([]personnel.Employee, 0, len(in))
	seen := make(map[generic.EmployeeID]bool, len(in))
	for _, e := range in {
		e = t.withDefaults(e)
		if i := t.employeeIndex(e.ID); i >= 0 {
			e.Advances = t.next.Employees[i].Advances
		}
		if err := e.Validate(t.env.Now); err != nil {
			return fmt.Errorf("employee %s: %w", e.ID, err)
		}
		if seen[e.ID] {
			return &generic.InputError{Field: "id", Reason: fmt.Sprintf("duplicate employee %s", e.ID)}
		}
		seen[e.ID] = true
		list = append(list, e)
	}
	for _, e := range t.next.Employees {
		if seen[e.ID] {
			continue
		}
		if ref := t.referencedBy(e.ID); ref != "" {
			return &generic.OperationError{
				Op:     "set employees",
				Reason: fmt.Sprintf("employee %s has %s and cannot be dropped, set the status to inactive instead", e.ID, ref),
			}
		}
	}
	t.next.Employees = list
	return nil
}

func (t *tx) addEmployee(e personnel.Employee) error {
	if e.ID == "" {
		e.ID = generic.EmployeeID(t.env.NewID())
	}
	e = t.withDefaults(e)
	if err := e.Validate(t.env.Now); err != nil {
		return err
	}
	if t.employeeIndex(e.ID) >= 0 {
		return &generic.OperationError{Op: "add employee", Reason: fmt.Sprintf("employee %s already exists", e.ID)}
	}
	t.next.Employees = append(t.next.Employees, e)
	return t.emit(notify.Event{Kind: notify.EmployeeAdded, TargetID: string(e.ID), EmployeeID: e.ID, EmployeeName: e.Name})
}

func (t *tx) updateEmployee(id generic.EmployeeID, patch personnel.EmployeePatch) error {
	i := t.employeeIndex(id)
	if i < 0 {
		return nil
	}
	merged := patch.Apply(t.next.Employees[i])
	if err := merged.Validate(t.env.Now); err != nil {
		return err
	}
	t.next.Employees[i] = merged
	return t.emit(notify.Event{Kind: notify.EmployeeUpdated, TargetID: string(id), EmployeeID: id, EmployeeName: merged.Name})
}

func (t *tx) deleteEmployee(id generic.EmployeeID) error {
	i := t.employeeIndex(id)
	if i < 0 {
		return nil
	}
	if ref := t.referencedBy(id); ref != "" {
		return &generic.OperationError{
			Op:     "delete employee",
			Reason: fmt.Sprintf("employee %s has %s, set the status to inactive instead", id, ref),
		}
	}
	t.next.Employees = slices.Delete(t.next.Employees, i, i+1)
	return nil
}

func (t *tx) setDepartments(list []personnel.Department) error {
	for _, d := range list {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	t.next.Departments = append([]personnel.Department{}, list...)
	return nil
}

func (t *tx) addDepartment(d personnel.Department) error {
	if d.ID == "" {
		d.ID = generic.DepartmentID(t.env.NewID())
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if slices.ContainsFunc(t.next.Departments, func(x personnel.Department) bool { return x.ID == d.ID }) {
		return &generic.OperationError{Op: "add department", Reason: fmt.Sprintf("department %s already exists", d.ID)}
	}
	t.next.Departments = append(t.next.Departments, d)
	return nil
}

func (t *tx) updateDepartment(id generic.DepartmentID, patch personnel.DepartmentPatch) error {
	i := slices.IndexFunc(t.next.Departments, func(d personnel.Department) bool { return d.ID == id })
	if i < 0 {
		return nil
	}
	merged := patch.Apply(t.next.Departments[i])
	if err := merged.Validate(); err != nil {
		return err
	}
	t.next.Departments[i] = merged
	return nil
}

func (t *tx) setPositions(list []personnel.Position) error {
	for _, p := range list {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	t.next.Positions = append([]personnel.Position{}, list...)
	return nil
}

func (t *tx) addPosition(p personnel.Position) error {
	if p.ID == "" {
		p.ID = generic.PositionID(t.env.NewID())
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if slices.ContainsFunc(t.next.Positions, func(x personnel.Position) bool { return x.ID == p.ID }) {
		return &generic.OperationError{Op: "add position", Reason: fmt.Sprintf("position %s already exists", p.ID)}
	}
	t.next.Positions = append(t.next.Positions, p)
	return nil
}

func (t *tx) updatePosition(id generic.PositionID, patch personnel.PositionPatch) error {
	i := slices.IndexFunc(t.next.Positions, func(p personnel.Position) bool { return p.ID == id })
	if i < 0 {
		return nil
	}
	merged := patch.Apply(t.next.Positions[i])
	if err := merged.Validate(); err != nil {
		return err
	}
	t.next.Positions[i] = merged
	return nil
}

// =============================================================================
// ATTENDANCE & LEAVE
// =============================================================================

func (t *tx) attendanceIndex(id generic.AttendanceID) int {
	return slices.IndexFunc(t.next.AttendanceRecords, func(r attendance.Record) bool { return r.ID == id })
}

func (t *tx) recordAttendance(id generic.AttendanceID, in attendance.Input) error {
	e := t.employeeIndex(in.EmployeeID)
	if e < 0 {
		return &generic.NotFoundError{Kind: "employee", ID: string(in.EmployeeID)}
	}
	if id == "" {
		id = generic.AttendanceID(t.env.NewID())
	}
	if t.attendanceIndex(id) >= 0 {
		return &generic.OperationError{Op: "record attendance", Reason: fmt.Sprintf("record %s already exists", id)}
	}
	r, err := attendance.NewRecord(id, in, t.next.SystemSettings.WorkingHours)
	if err != nil {
		return err
	}
	if slices.ContainsFunc(t.next.AttendanceRecords, func(o attendance.Record) bool {
		return o.EmployeeID == r.EmployeeID && o.On(r.Date)
	}) {
		return &generic.OperationError{
			Op:     "record attendance",
			Reason: fmt.Sprintf("employee %s already has a record on %s", r.EmployeeID, r.Date.Format(time.DateOnly)),
		}
	}
	t.next.AttendanceRecords = append(t.next.AttendanceRecords, r)
	if !r.Status.IsIssue() {
		return nil
	}
	return t.emitAttendanceIssue(r, t.next.Employees[e].Name)
}

func (t *tx) updateAttendance(id generic.AttendanceID, patch attendance.Patch) error {
	i := t.attendanceIndex(id)
	if i < 0 {
		return &generic.NotFoundError{Kind: "attendance record", ID: string(id)}
	}
	before := t.next.AttendanceRecords[i]
	after, err := attendance.Update(before, patch, t.next.SystemSettings.WorkingHours)
	if err != nil {
		return err
	}
	t.next.AttendanceRecords[i] = after
	if !after.Status.IsIssue() || after.Status == before.Status {
		return nil
	}
	return t.emitAttendanceIssue(after, t.employeeName(after.EmployeeID))
}

func (t *tx) emitAttendanceIssue(r attendance.Record, name string) error {
	return t.emit(notify.Event{
		Kind:         notify.AttendanceIssue,
		TargetID:     string(r.ID),
		EmployeeID:   r.EmployeeID,
		EmployeeName: name,
		Detail:       fmt.Sprintf("%s on %s", strings.ReplaceAll(string(r.Status), "_", " "), r.Date.Format(time.DateOnly)),
	})
}

// applyAttendance writes the month's absence days and overtime onto the
// employee. The absence days may not exceed the working days per month.
func (t *tx) applyAttendance(id generic.EmployeeID, month, year int) error {
	e := t.employeeIndex(id)
	if e < 0 {
		return &generic.NotFoundError{Kind: "employee", ID: string(id)}
	}
	if err := generic.ValidPeriod(month, year); err != nil {
		return err
	}
	summary := attendance.Summarize(id, month, year, t.next.AttendanceRecords, t.next.LeaveRequests)
	emp := t.next.Employees[e]
	emp.AbsenceDays = summary.AbsenceDays()
	emp.OvertimeHours = summary.TotalOvertime
	if err := emp.ValidateAbsence(t.next.Settings.Rates.WorkingDaysPerMonth); err != nil {
		return err
	}
	t.next.Employees[e] = emp
	return nil
}

func (t *tx) leaveIndex(id generic.LeaveID) int {
	return slices.IndexFunc(t.next.LeaveRequests, func(l attendance.Leave) bool { return l.ID == id })
}

func (t *tx) requestLeave(id generic.LeaveID, in attendance.LeaveInput) error {
	e := t.employeeIndex(in.EmployeeID)
	if e < 0 {
		return &generic.NotFoundError{Kind: "employee", ID: string(in.EmployeeID)}
	}
	if id == "" {
		id = generic.LeaveID(t.env.NewID())
	}
	if t.leaveIndex(id) >= 0 {
		return &generic.OperationError{Op: "request leave", Reason: fmt.Sprintf("leave %s already exists", id)}
	}
	l, err := attendance.RequestLeave(id, in, t.env.Now)
	if err != nil {
		return err
	}
	for _, o := range t.next.LeaveRequests {
		if o.EmployeeID == l.EmployeeID && o.Blocking() && o.Overlaps(l) {
			return &generic.OperationError{
				Op:     "request leave",
				Reason: fmt.Sprintf("overlaps leave %s from %s to %s", o.ID, o.StartDate.Format(time.DateOnly), o.EndDate.Format(time.DateOnly)),
			}
		}
	}
	t.next.LeaveRequests = append(t.next.LeaveRequests, l)
	return t.emit(notify.Event{
		Kind:         notify.LeaveRequested,
		TargetID:     string(id),
		EmployeeID:   l.EmployeeID,
		EmployeeName: t.next.Employees[e].Name,
		Detail: fmt.Sprintf("%d day(s) of %s leave from %s to %s",
			l.Days, l.Type, l.StartDate.Format(time.DateOnly), l.EndDate.Format(time.DateOnly)),
	})
}

func (t *tx) decideLeave(id generic.LeaveID, actor generic.ActorID, approve bool) error {
	i := t.leaveIndex(id)
	if i < 0 {
		return &generic.NotFoundError{Kind: "leave", ID: string(id)}
	}
	var (
		decided attendance.Leave
		err     error
	)
	if approve {
		decided, err = t.next.LeaveRequests[i].Approve(actor, t.env.Now)
	} else {
		decided, err = t.next.LeaveRequests[i].Reject(actor, t.env.Now)
	}
	if err != nil {
		return err
	}
	t.next.LeaveRequests[i] = decided
	return nil
}

// =============================================================================
// PAYROLL
// =============================================================================

func (t *tx) recordIndex(id generic.PayrollRecordID) int {
	return slices.IndexFunc(t.next.PayrollRecords, func(r payroll.Record) bool { return r.ID == id })
}

func (t *tx) generatePayroll(month, year int) error {
	if err := generic.ValidPeriod(month, year); err != nil {
		return err
	}
	if err := t.next.Settings.Validate(); err != nil {
		return err
	}
	if slices.ContainsFunc(t.next.PayrollRecords, func(r payroll.Record) bool { return r.Period(month, year) }) {
		return &generic.OperationError{
			Op:     "generate payroll",
			Reason: fmt.Sprintf("payroll for %02d/%d has already been generated", month, year),
		}
	}
	for _, e := range t.next.Employees {
		if e.Status == personnel.StatusInactive {
			continue
		}
		rec, err := payroll.Build(e, month, year, t.next.Settings)
		if err != nil {
			return fmt.Errorf("employee %s: %w", e.ID, err)
		}
		t.next.PayrollRecords = append(t.next.PayrollRecords, rec)
		if err := t.emit(notify.Event{
			Kind:         notify.PayrollGenerated,
			TargetID:     string(rec.ID),
			EmployeeID:   e.ID,
			EmployeeName: e.Name,
			Month:        month,
			Year:         year,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) addPayrollRecord(r payroll.Record) error {
	if t.employeeIndex(r.EmployeeID) < 0 {
		return &generic.NotFoundError{Kind: "employee", ID: string(r.EmployeeID)}
	}
	if err := generic.ValidPeriod(r.Month, r.Year); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = payroll.RecordID(r.EmployeeID, r.Month, r.Year)
	}
	if r.Status == "" {
		r.Status = payroll.StatusPending
	}
	if !r.Status.Valid() {
		return &generic.InputError{Field: "status", Reason: fmt.Sprintf("unknown status %q", r.Status)}
	}
	if !r.NetSalaryConsistent() {
		return &generic.InputError{Field: "netSalary", Reason: "does not equal totalSalary minus deductions"}
	}
	if t.recordIndex(r.ID) >= 0 {
		return &generic.OperationError{Op: "add payroll record", Reason: fmt.Sprintf("record %s already exists", r.ID)}
	}
	t.next.PayrollRecords = append(t.next.PayrollRecords, r)
	return nil
}

func (t *tx) processPayroll(id generic.PayrollRecordID, actor generic.ActorID) error {
	i := t.recordIndex(id)
	if i < 0 {
		return &generic.NotFoundError{Kind: "payroll record", ID: string(id)}
	}
	rec, err := t.next.PayrollRecords[i].Process(actor, t.env.Now)
	if err != nil {
		return err
	}
	t.next.PayrollRecords[i] = rec
	return t.emit(payrollEvent(notify.PayrollProcessed, rec))
}

func (t *tx) markPayrollPaid(id generic.PayrollRecordID, actor generic.ActorID) error {
	i := t.recordIndex(id)
	if i < 0 {
		return &generic.NotFoundError{Kind: "payroll record", ID: string(id)}
	}
	rec, err := t.next.PayrollRecords[i].MarkPaid(actor, t.env.Now)
	if err != nil {
		return err
	}
	t.next.PayrollRecords[i] = rec

	if e := t.employeeIndex(rec.EmployeeID); e >= 0 {
		paidAt := t.env.Now
		amount := rec.NetSalary
		t.next.Employees[e].LastPayrollDate = &paidAt
		t.next.Employees[e].LastPayrollAmount = &amount
	}
	return t.emit(payrollEvent(notify.PayrollPaid, rec))
}

func payrollEvent(kind notify.EventKind, r payroll.Record) notify.Event {
	return notify.Event{
		Kind:         kind,
		TargetID:     string(r.ID),
		EmployeeID:   r.EmployeeID,
		EmployeeName: r.EmployeeName,
		Amount:       r.NetSalary,
		Month:        r.Month,
		Year:         r.Year,
	}
}

// =============================================================================
// ADVANCES
// =============================================================================

func (t *tx) advanceIndex(id generic.AdvanceID) int {
	return slices.IndexFunc(t.next.Advances, func(a advance.Advance) bool { return a.ID == id })
}

func (t *tx) requestAdvance(id generic.AdvanceID, in advance.RequestInput) error {
	e := t.employeeIndex(in.EmployeeID)
	if e < 0 {
		return &generic.NotFoundError{Kind: "employee", ID: string(in.EmployeeID)}
	}
	if id == "" {
		id = generic.AdvanceID(t.env.NewID())
	}
	if t.advanceIndex(id) >= 0 {
		return &generic.OperationError{Op: "request advance", Reason: fmt.Sprintf("advance %s already exists", id)}
	}
	adv, schedule, err := advance.Request(id, in, t.env.Now)
	if err != nil {
		return err
	}
	t.next.Advances = append(t.next.Advances, adv)
	t.next.AdvanceInstallments = append(t.next.AdvanceInstallments, schedule...)
	t.touch(id)
	return t.emit(notify.Event{
		Kind:         notify.AdvanceRequested,
		TargetID:     string(id),
		EmployeeID:   adv.EmployeeID,
		EmployeeName: t.next.Employees[e].Name,
		Amount:       adv.Amount,
	})
}

func (t *tx) decideAdvance(id generic.AdvanceID, actor generic.ActorID, approve bool) error {
	i := t.advanceIndex(id)
	if i < 0 {
		return &generic.NotFoundError{Kind: "advance", ID: string(id)}
	}
	var (
		decided advance.Advance
		kind    notify.EventKind
		err     error
	)
	if approve {
		decided, err = t.next.Advances[i].Approve(actor, t.env.Now)
		kind = notify.AdvanceApproved
	} else {
		decided, err = t.next.Advances[i].Reject(actor, t.env.Now)
		kind = notify.AdvanceRejected
	}
	if err != nil {
		return err
	}
	t.next.Advances[i] = decided
	if approve {
		t.adjustEmployeeAdvances(decided.EmployeeID, decided.Amount)
	}
	t.touch(id)
	return t.emit(notify.Event{
		Kind:         kind,
		TargetID:     string(id),
		EmployeeID:   decided.EmployeeID,
		EmployeeName: t.employeeName(decided.EmployeeID),
		Amount:       decided.Amount,
	})
}

func (t *tx) deleteAdvance(id generic.AdvanceID) error {
	i := t.advanceIndex(id)
	if i < 0 {
		return &generic.NotFoundError{Kind: "advance", ID: string(id)}
	}
	if err := t.next.Advances[i].CheckDeletable(); err != nil {
		return err
	}
	t.next.Advances = slices.Delete(t.next.Advances, i, i+1)
	t.next.AdvanceInstallments = slices.DeleteFunc(t.next.AdvanceInstallments, func(inst advance.Installment) bool {
		return inst.AdvanceID == id
	})
	return nil
}

func (t *tx) payInstallment(id generic.InstallmentID, amount decimal.Decimal) error {
	k := slices.IndexFunc(t.next.AdvanceInstallments, func(i advance.Installment) bool { return i.ID == id })
	if k < 0 {
		return &generic.NotFoundError{Kind: "installment", ID: string(id)}
	}
	inst := t.next.AdvanceInstallments[k]
	i := t.advanceIndex(inst.AdvanceID)
	if i < 0 {
		return &generic.NotFoundError{Kind: "advance", ID: string(inst.AdvanceID)}
	}
	adv, paid, err := advance.ApplyPayment(t.next.Advances[i], inst, amount, t.env.Now)
	if err != nil {
		return err
	}
	t.next.Advances[i] = adv
	t.next.AdvanceInstallments[k] = paid
	t.adjustEmployeeAdvances(adv.EmployeeID, amount.Neg())
	t.touch(adv.ID)
	return nil
}

func (t *tx) markOverdue() error {
	for _, adv := range t.next.Advances {
		if adv.Status != advance.StatusApproved {
			continue
		}
		var idx []int
		var schedule []advance.Installment
		for k, inst := range t.next.AdvanceInstallments {
			if inst.AdvanceID == adv.ID {
				idx = append(idx, k)
				schedule = append(schedule, inst)
			}
		}
		marked, changed := advance.MarkOverdue(schedule, t.env.Now)
		if !changed {
			continue
		}
		for n, k := range idx {
			t.next.AdvanceInstallments[k] = marked[n]
		}
		t.touch(adv.ID)
	}
	return nil
}

// adjustEmployeeAdvances keeps the employee's unpaid principal in step with
// approvals and payments. It never goes below zero.
func (t *tx) adjustEmployeeAdvances(id generic.EmployeeID, delta decimal.Decimal) {
	e := t.employeeIndex(id)
	if e < 0 {
		return
	}
	t.next.Employees[e].Advances = decimal.Max(t.next.Employees[e].Advances.Add(delta), decimal.Zero)
}

// =============================================================================
// NOTIFICATIONS & BACKUP
// =============================================================================

func (t *tx) addNotification(n notify.Notification) error {
	if n.ID == "" {
		n.ID = generic.NotificationID(t.env.NewID())
	}
	if n.Title == "" {
		return &generic.InputError{Field: "title", Reason: "is required"}
	}
	if !n.Type.Valid() {
		return &generic.InputError{Field: "type", Reason: fmt.Sprintf("unknown type %q", n.Type)}
	}
	if !n.TargetType.Valid() {
		return &generic.InputError{Field: "targetType", Reason: fmt.Sprintf("unknown target type %q", n.TargetType)}
	}
	n.Status = notify.StatusUnread
	n.CreatedAt = t.env.Now
	t.next.Notifications = append([]notify.Notification{n}, t.next.Notifications...)
	return nil
}

func (t *tx) restore(s Snapshot) error {
	restored := s.Normalize(t.env.Now)
	if err := restored.Settings.Validate(); err != nil {
		return err
	}
	if err := restored.SystemSettings.Validate(); err != nil {
		return err
	}
	t.next = restored
	for _, a := range restored.Advances {
		t.recheck(a.ID)
	}
	return nil
}
