package attendance

import (
	"fmt"
	"time"

	"github.com/warp/payroll-engine/generic"
)

// MaxLeaveDays bounds a single leave request.
const MaxLeaveDays = 365

// =============================================================================
// LEAVE
// =============================================================================

type LeaveType string

const (
	LeaveAnnual    LeaveType = "annual"
	LeaveSick      LeaveType = "sick"
	LeaveEmergency LeaveType = "emergency"
	LeaveUnpaid    LeaveType = "unpaid"
)

func (t LeaveType) Valid() bool {
	switch t {
	case LeaveAnnual, LeaveSick, LeaveEmergency, LeaveUnpaid:
		return true
	}
	return false
}

type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

// Leave is a request for whole days off, both ends included.
type Leave struct {
	ID         generic.LeaveID    `json:"id"`
	EmployeeID generic.EmployeeID `json:"employeeId"`
	Type       LeaveType          `json:"type"`
	StartDate  time.Time          `json:"startDate"`
	EndDate    time.Time          `json:"endDate"`
	Days       int                `json:"days"`
	Reason     string             `json:"reason"`
	Status     LeaveStatus        `json:"status"`
	DecidedBy  generic.ActorID    `json:"approvedBy,omitempty"`
	DecidedAt  *time.Time         `json:"approvedAt,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
}

type LeaveInput struct {
	EmployeeID generic.EmployeeID
	Type       LeaveType
	StartDate  time.Time
	EndDate    time.Time
	Reason     string
}

func (in LeaveInput) Validate() error {
	if in.EmployeeID == "" {
		return &generic.InputError{Field: "employeeId", Reason: "is required"}
	}
	if !in.Type.Valid() {
		return &generic.InputError{Field: "type", Reason: fmt.Sprintf("unknown leave type %q", in.Type)}
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return &generic.InputError{Field: "startDate", Reason: "start and end dates are required"}
	}
	if day(in.EndDate).Before(day(in.StartDate)) {
		return &generic.InputError{Field: "endDate", Reason: "must not be before the start date"}
	}
	if n := spanDays(in.StartDate, in.EndDate); n > MaxLeaveDays {
		return &generic.InputError{Field: "endDate", Reason: fmt.Sprintf("%d days exceeds the %d day limit", n, MaxLeaveDays)}
	}
	return nil
}

// RequestLeave creates a pending leave request.
func RequestLeave(id generic.LeaveID, in LeaveInput, now time.Time) (Leave, error) {
	if err := in.Validate(); err != nil {
		return Leave{}, err
	}
	return Leave{
		ID:         id,
		EmployeeID: in.EmployeeID,
		Type:       in.Type,
		StartDate:  day(in.StartDate),
		EndDate:    day(in.EndDate),
		Days:       spanDays(in.StartDate, in.EndDate),
		Reason:     in.Reason,
		Status:     LeavePending,
		CreatedAt:  now,
	}, nil
}

func (l Leave) Approve(actor generic.ActorID, at time.Time) (Leave, error) {
	return l.decide(LeaveApproved, actor, at)
}

func (l Leave) Reject(actor generic.ActorID, at time.Time) (Leave, error) {
	return l.decide(LeaveRejected, actor, at)
}

func (l Leave) decide(to LeaveStatus, actor generic.ActorID, at time.Time) (Leave, error) {
	if l.Status != LeavePending {
		return l, &generic.TransitionError{Entity: "leave", ID: string(l.ID), From: string(l.Status), To: string(to)}
	}
	l.Status = to
	l.DecidedBy = actor
	l.DecidedAt = &at
	return l, nil
}

// Blocking reports whether the request still holds its days.
func (l Leave) Blocking() bool {
	return l.Status == LeavePending || l.Status == LeaveApproved
}

// Overlaps reports whether l and o share at least one day.
func (l Leave) Overlaps(o Leave) bool {
	return !l.EndDate.Before(o.StartDate) && !o.EndDate.Before(l.StartDate)
}

// DaysIn returns the days of l that fall in the given month.
func (l Leave) DaysIn(month, year int) []time.Time {
	var out []time.Time
	for d := day(l.StartDate); !d.After(day(l.EndDate)); d = d.AddDate(0, 0, 1) {
		if d.Year() == year && int(d.Month()) == month {
			out = append(out, d)
		}
	}
	return out
}

func spanDays(start, end time.Time) int {
	return int(day(end).Sub(day(start))/(24*time.Hour)) + 1
}
