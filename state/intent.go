package state

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/advance"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/notify"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/personnel"
)

// Intent is a request to change the snapshot. The set is closed: only the
// types in this file implement it.
type Intent interface {
	intent()
}

// =============================================================================
// ORGANISATION
// =============================================================================

// SetEmployees replaces the employee list, e.g. from a bulk import. It is
// refused when it would drop an employee that is still referenced. Kept
// employees keep their outstanding advance balance.
type SetEmployees struct{ Employees []personnel.Employee }

type AddEmployee struct{ Employee personnel.Employee }

// UpdateEmployee merges Patch onto the employee. Unknown ids are a no-op.
type UpdateEmployee struct {
	ID    generic.EmployeeID
	Patch personnel.EmployeePatch
}

// DeleteEmployee is refused while payroll records, advances, attendance or
// leave reference the employee; set the status to inactive instead.
type DeleteEmployee struct{ ID generic.EmployeeID }

type SetDepartments struct{ Departments []personnel.Department }

type AddDepartment struct{ Department personnel.Department }

type UpdateDepartment struct {
	ID    generic.DepartmentID
	Patch personnel.DepartmentPatch
}

type SetPositions struct{ Positions []personnel.Position }

type AddPosition struct{ Position personnel.Position }

type UpdatePosition struct {
	ID    generic.PositionID
	Patch personnel.PositionPatch
}

// =============================================================================
// ATTENDANCE & LEAVE
// =============================================================================

// RecordAttendance adds one day of attendance. An employee has at most one
// record per day. ID is generated when empty.
type RecordAttendance struct {
	ID    generic.AttendanceID
	Input attendance.Input
}

// UpdateAttendance corrects a record. Unknown ids are NotFound.
type UpdateAttendance struct {
	ID    generic.AttendanceID
	Patch attendance.Patch
}

// ApplyAttendance copies the employee's monthly summary onto the period
// inputs payroll reads: absenceDays and overtimeHours.
type ApplyAttendance struct {
	EmployeeID generic.EmployeeID
	Month      int
	Year       int
}

// RequestLeave files a pending leave request. It may not overlap another
// pending or approved request of the same employee.
type RequestLeave struct {
	ID    generic.LeaveID
	Input attendance.LeaveInput
}

type ApproveLeave struct {
	ID    generic.LeaveID
	Actor generic.ActorID
}

type RejectLeave struct {
	ID    generic.LeaveID
	Actor generic.ActorID
}

// =============================================================================
// PAYROLL
// =============================================================================

// GeneratePayroll builds a pending record for every employee that is not
// inactive. A period can be generated once.
type GeneratePayroll struct {
	Month int
	Year  int
}

// AddPayrollRecord imports a record computed elsewhere, e.g. a period paid
// before this system was in use. The employee must exist.
type AddPayrollRecord struct{ Record payroll.Record }

type ProcessPayroll struct {
	ID    generic.PayrollRecordID
	Actor generic.ActorID
}

type MarkPayrollPaid struct {
	ID    generic.PayrollRecordID
	Actor generic.ActorID
}

// =============================================================================
// ADVANCES
// =============================================================================

// RequestAdvance creates an advance and its schedule together. ID is
// generated when empty.
type RequestAdvance struct {
	ID    generic.AdvanceID
	Input advance.RequestInput
}

type ApproveAdvance struct {
	ID    generic.AdvanceID
	Actor generic.ActorID
}

type RejectAdvance struct {
	ID    generic.AdvanceID
	Actor generic.ActorID
}

// DeleteAdvance removes a pending advance with all of its installments.
type DeleteAdvance struct{ ID generic.AdvanceID }

type PayInstallment struct {
	ID     generic.InstallmentID
	Amount decimal.Decimal
}

// MarkOverdueInstallments flags past-due installments of approved advances.
type MarkOverdueInstallments struct{}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// AddNotification prepends a notification as unread, created now.
type AddNotification struct{ Notification notify.Notification }

type MarkNotificationRead struct{ ID generic.NotificationID }

type MarkAllNotificationsRead struct{}

type ClearNotifications struct{}

type PruneNotifications struct{}

// =============================================================================
// SETTINGS & BACKUP
// =============================================================================

type UpdateSettings struct{ Settings payroll.Settings }

type UpdateSystemSettings struct{ Settings SystemSettings }

// RestoreSnapshot replaces the whole snapshot, e.g. from a backup.
type RestoreSnapshot struct{ Snapshot Snapshot }

func (SetEmployees) intent()             {}
func (AddEmployee) intent()              {}
func (UpdateEmployee) intent()           {}
func (DeleteEmployee) intent()           {}
func (SetDepartments) intent()           {}
func (AddDepartment) intent()            {}
func (UpdateDepartment) intent()         {}
func (SetPositions) intent()             {}
func (AddPosition) intent()              {}
func (UpdatePosition) intent()           {}
func (RecordAttendance) intent()         {}
func (UpdateAttendance) intent()         {}
func (ApplyAttendance) intent()          {}
func (RequestLeave) intent()             {}
func (ApproveLeave) intent()             {}
func (RejectLeave) intent()              {}
func (GeneratePayroll) intent()          {}
func (AddPayrollRecord) intent()         {}
func (ProcessPayroll) intent()           {}
func (MarkPayrollPaid) intent()          {}
func (RequestAdvance) intent()           {}
func (ApproveAdvance) intent()           {}
func (RejectAdvance) intent()            {}
func (DeleteAdvance) intent()            {}
func (PayInstallment) intent()           {}
func (MarkOverdueInstallments) intent()  {}
func (AddNotification) intent()          {}
func (MarkNotificationRead) intent()     {}
func (MarkAllNotificationsRead) intent() {}
func (ClearNotifications) intent()       {}
func (PruneNotifications) intent()       {}
func (UpdateSettings) intent()           {}
func (UpdateSystemSettings) intent()     {}
func (RestoreSnapshot) intent()          {}
