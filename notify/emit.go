package notify

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// EVENTS
// =============================================================================

type EventKind string

const (
	AdvanceRequested   EventKind = "advance_requested"
	AdvanceApproved    EventKind = "advance_approved"
	AdvanceRejected    EventKind = "advance_rejected"
	InstallmentOverdue EventKind = "installment_overdue"
	PayrollGenerated   EventKind = "payroll_generated"
	PayrollProcessed   EventKind = "payroll_processed"
	PayrollPaid        EventKind = "payroll_paid"
	EmployeeAdded      EventKind = "employee_added"
	EmployeeUpdated    EventKind = "employee_updated"
	LeaveRequested     EventKind = "leave_requested"
	AttendanceIssue    EventKind = "attendance_issue"
	SystemNotice       EventKind = "system_notice"
)

// Event is something that happened. Only the fields relevant to Kind are
// read; the rest are ignored.
type Event struct {
	Kind EventKind

	// TargetID is the id of the entity the event is about.
	TargetID     string
	EmployeeID   generic.EmployeeID
	EmployeeName string
	Amount       decimal.Decimal
	Month        int
	Year         int

	// Title and Detail carry free text for leave, attendance and system
	// events.
	Title  string
	Detail string
}

type template struct {
	typ    Type
	target TargetType
	title  string
	body   func(Event) string
}

var templates = map[EventKind]template{
	AdvanceRequested: {TypeAdvance, TargetAdvance, "New advance request", func(e Event) string {
		return fmt.Sprintf("%s requested an advance of %s", e.who(), e.Amount.StringFixed(2))
	}},
	AdvanceApproved: {TypeAdvance, TargetAdvance, "Advance approved", func(e Event) string {
		return fmt.Sprintf("The advance of %s for %s was approved", e.Amount.StringFixed(2), e.who())
	}},
	AdvanceRejected: {TypeAdvance, TargetAdvance, "Advance rejected", func(e Event) string {
		return fmt.Sprintf("The advance of %s for %s was rejected", e.Amount.StringFixed(2), e.who())
	}},
	InstallmentOverdue: {TypeAdvance, TargetAdvance, "Installment overdue", func(e Event) string {
		return fmt.Sprintf("An installment of the advance of employee %s is overdue", e.who())
	}},
	PayrollGenerated: {TypePayroll, TargetPayrollRecord, "Payroll record created", func(e Event) string {
		return fmt.Sprintf("Payroll for %s was generated for %02d/%d", e.who(), e.Month, e.Year)
	}},
	PayrollProcessed: {TypePayroll, TargetPayrollRecord, "Payroll processed", func(e Event) string {
		return fmt.Sprintf("Payroll for %s for %02d/%d was processed", e.who(), e.Month, e.Year)
	}},
	PayrollPaid: {TypePayroll, TargetPayrollRecord, "Salary paid", func(e Event) string {
		return fmt.Sprintf("Salary of %s for %02d/%d was paid: %s", e.who(), e.Month, e.Year, e.Amount.StringFixed(2))
	}},
	EmployeeAdded: {TypeSystem, TargetEmployee, "Employee added", func(e Event) string {
		return fmt.Sprintf("%s was added", e.who())
	}},
	EmployeeUpdated: {TypeSystem, TargetEmployee, "Employee updated", func(e Event) string {
		return fmt.Sprintf("The record of %s was updated", e.who())
	}},
	LeaveRequested: {TypeLeave, TargetLeave, "New leave request", func(e Event) string {
		return fmt.Sprintf("%s requested leave. %s", e.who(), e.Detail)
	}},
	AttendanceIssue: {TypeAttendance, TargetAttendance, "Attendance issue", func(e Event) string {
		return fmt.Sprintf("%s: %s", e.who(), e.Detail)
	}},
	SystemNotice: {TypeSystem, "", "System update", func(e Event) string {
		return e.Detail
	}},
}

// who names the employee, falling back to the id.
func (e Event) who() string {
	if e.EmployeeName != "" {
		return e.EmployeeName
	}
	return string(e.EmployeeID)
}

// Emit maps an event to its notification. The result is always unread and
// created at now.
func Emit(e Event, id generic.NotificationID, now time.Time) (Notification, error) {
	t, ok := templates[e.Kind]
	if !ok {
		return Notification{}, &generic.InputError{Field: "event", Reason: fmt.Sprintf("unknown kind %q", e.Kind)}
	}
	title := t.title
	if e.Title != "" {
		title = e.Title
	}
	n := Notification{
		ID:        id,
		Type:      t.typ,
		Title:     title,
		Message:   t.body(e),
		Status:    StatusUnread,
		CreatedAt: now,
		TargetID:  e.TargetID,
	}
	if e.TargetID != "" {
		n.TargetType = t.target
	}
	return n, nil
}
