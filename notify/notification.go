/*
Package notify derives notification records from business events.

PURPOSE:
  Every observable state change (an advance requested, a payroll processed,
  an installment gone overdue) produces exactly one notification. Emit is a
  pure mapping from an Event to a Notification; appending it to the list
  and persisting it is the state package's job.

KEY CONCEPTS:
  - No batching and no deduplication: the same event twice gives two
    notifications.
  - Status moves forward only: unread -> read.
  - Retention: a notification whose age exceeds RetentionWindow is never
    presented. Prune drops them.

SEE ALSO:
  - emit.go: Event kinds and the Event -> Notification mapping
  - state/reducer.go: prepends emitted notifications, newest first
*/
package notify

import (
	"time"

	"github.com/warp/payroll-engine/generic"
)

// RetentionWindow is how long a notification is kept.
const RetentionWindow = 30 * 24 * time.Hour

// =============================================================================
// TYPES
// =============================================================================

type Type string

const (
	TypePayroll    Type = "payroll"
	TypeAdvance    Type = "advance"
	TypeLeave      Type = "leave"
	TypeAttendance Type = "attendance"
	TypeSystem     Type = "system"
)

func (t Type) Valid() bool {
	switch t {
	case TypePayroll, TypeAdvance, TypeLeave, TypeAttendance, TypeSystem:
		return true
	}
	return false
}

type Status string

const (
	StatusUnread Status = "unread"
	StatusRead   Status = "read"
)

// TargetType names the kind of entity a notification points at.
type TargetType string

const (
	TargetAdvance       TargetType = "advance"
	TargetPayrollRecord TargetType = "payroll_record"
	TargetEmployee      TargetType = "employee"
	TargetPayrollPeriod TargetType = "payroll_period"
	TargetAttendance    TargetType = "attendance"
	TargetLeave         TargetType = "leave"
)

// Valid accepts the known targets and the empty target.
func (t TargetType) Valid() bool {
	switch t {
	case "", TargetAdvance, TargetPayrollRecord, TargetEmployee, TargetPayrollPeriod, TargetAttendance, TargetLeave:
		return true
	}
	return false
}

type Notification struct {
	ID         generic.NotificationID `json:"id"`
	Type       Type                   `json:"type"`
	Title      string                 `json:"title"`
	Message    string                 `json:"message"`
	Status     Status                 `json:"status"`
	CreatedAt  time.Time              `json:"createdAt"`
	TargetID   string                 `json:"targetId,omitempty"`
	TargetType TargetType             `json:"targetType,omitempty"`
}

// MarkRead returns n as read. Reading twice is harmless.
func (n Notification) MarkRead() Notification {
	n.Status = StatusRead
	return n
}

// Expired reports whether n is older than the retention window at now.
func (n Notification) Expired(now time.Time) bool {
	return now.Sub(n.CreatedAt) > RetentionWindow
}

// Prune returns the notifications still inside the retention window, in the
// original order. The input slice is not modified.
func Prune(list []Notification, now time.Time) []Notification {
	out := make([]Notification, 0, len(list))
	for _, n := range list {
		if !n.Expired(now) {
			out = append(out, n)
		}
	}
	return out
}

// CountUnread counts notifications that have not been read.
func CountUnread(list []Notification) int {
	count := 0
	for _, n := range list {
		if n.Status == StatusUnread {
			count++
		}
	}
	return count
}
