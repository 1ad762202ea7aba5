/*
Package attendance records daily attendance and leave, and folds them into
the period inputs payroll reads.

PURPOSE:
  Payroll needs the absence days and overtime hours of each employee for a
  month. They come from here: one Record per employee and day, plus Leave
  requests spanning whole days. Summarize turns one month of both into the
  figures copied onto the employee before payroll is generated.

KEY CONCEPTS:
  Record status, derived from the clock times unless given explicitly:
    no check-in                        -> absent
    check-in after start + grace       -> late
    check-out before end               -> early_leave
    otherwise                          -> present
  on_leave is never derived, only set.

  Overtime is the time checked out after the end of the working day, in
  hours, capped at MaxOvertimeHours.

  Leave status:
    pending --Approve--> approved
    pending --Reject---> rejected

SEE ALSO:
  - summary.go: monthly summary and absence days
  - leave.go: leave requests
  - state/reducer.go: RecordAttendance, ApplyAttendance, RequestLeave
*/
package attendance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// WORKING HOURS
// =============================================================================

// WorkingHours is the company's working day. Times are "HH:MM".
type WorkingHours struct {
	Start            string `json:"start"`
	End              string `json:"end"`
	GraceMinutes     int    `json:"graceMinutes"`
	MaxOvertimeHours int    `json:"maxOvertimeHours"`
}

func DefaultWorkingHours() WorkingHours {
	return WorkingHours{
		Start:            "09:00",
		End:              "17:00",
		GraceMinutes:     15,
		MaxOvertimeHours: 4,
	}
}

func (w WorkingHours) Validate() error {
	start, err := minutesOf("workingHours.start", w.Start)
	if err != nil {
		return err
	}
	end, err := minutesOf("workingHours.end", w.End)
	if err != nil {
		return err
	}
	if end <= start {
		return &generic.InputError{Field: "workingHours.end", Reason: "must be after the start of the day"}
	}
	if w.GraceMinutes < 0 {
		return &generic.InputError{Field: "workingHours.graceMinutes", Reason: "must not be negative"}
	}
	if w.MaxOvertimeHours < 0 {
		return &generic.InputError{Field: "workingHours.maxOvertimeHours", Reason: "must not be negative"}
	}
	return nil
}

// minutesOf parses an "HH:MM" clock time into minutes after midnight.
func minutesOf(field, v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, &generic.InputError{Field: field, Reason: fmt.Sprintf("%q is not an HH:MM time", v)}
	}
	return t.Hour()*60 + t.Minute(), nil
}

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPresent    Status = "present"
	StatusAbsent     Status = "absent"
	StatusLate       Status = "late"
	StatusEarlyLeave Status = "early_leave"
	StatusOnLeave    Status = "on_leave"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusEarlyLeave, StatusOnLeave:
		return true
	}
	return false
}

// IsIssue reports whether the status deserves a notification.
func (s Status) IsIssue() bool {
	return s == StatusAbsent || s == StatusLate || s == StatusEarlyLeave
}

// DetermineStatus derives the status of a day from its clock times.
func DetermineStatus(checkIn, checkOut string, wh WorkingHours) (Status, error) {
	if checkIn == "" {
		return StatusAbsent, nil
	}
	in, err := minutesOf("checkIn", checkIn)
	if err != nil {
		return "", err
	}
	start, err := minutesOf("workingHours.start", wh.Start)
	if err != nil {
		return "", err
	}
	if in > start+wh.GraceMinutes {
		return StatusLate, nil
	}
	if checkOut != "" {
		out, err := minutesOf("checkOut", checkOut)
		if err != nil {
			return "", err
		}
		end, err := minutesOf("workingHours.end", wh.End)
		if err != nil {
			return "", err
		}
		if out < end {
			return StatusEarlyLeave, nil
		}
	}
	return StatusPresent, nil
}

// Overtime is the time worked after the end of the day in hours, rounded to
// two places and capped at wh.MaxOvertimeHours. No check-out means none.
func Overtime(checkOut string, wh WorkingHours) (decimal.Decimal, error) {
	if checkOut == "" {
		return decimal.Zero, nil
	}
	out, err := minutesOf("checkOut", checkOut)
	if err != nil {
		return decimal.Zero, err
	}
	end, err := minutesOf("workingHours.end", wh.End)
	if err != nil {
		return decimal.Zero, err
	}
	if out <= end {
		return decimal.Zero, nil
	}
	hours := decimal.NewFromInt(int64(out - end)).Div(decimal.NewFromInt(60)).Round(2)
	return decimal.Min(hours, decimal.NewFromInt(int64(wh.MaxOvertimeHours))), nil
}

// =============================================================================
// RECORD
// =============================================================================

// Record is one employee's attendance on one day.
type Record struct {
	ID            generic.AttendanceID `json:"id"`
	EmployeeID    generic.EmployeeID   `json:"employeeId"`
	Date          time.Time            `json:"date"`
	CheckIn       string               `json:"checkIn,omitempty"`
	CheckOut      string               `json:"checkOut,omitempty"`
	Status        Status               `json:"status"`
	OvertimeHours decimal.Decimal      `json:"overtimeHours"`
	Notes         string               `json:"notes,omitempty"`
}

func (r Record) Validate() error {
	if r.ID == "" {
		return &generic.InputError{Field: "id", Reason: "is required"}
	}
	if r.EmployeeID == "" {
		return &generic.InputError{Field: "employeeId", Reason: "is required"}
	}
	if r.Date.IsZero() {
		return &generic.InputError{Field: "date", Reason: "is required"}
	}
	if !r.Status.Valid() {
		return &generic.InputError{Field: "status", Reason: fmt.Sprintf("unknown status %q", r.Status)}
	}
	if err := generic.RequireNonNegative("overtimeHours", r.OvertimeHours); err != nil {
		return err
	}
	if r.CheckOut != "" && r.CheckIn == "" {
		return &generic.InputError{Field: "checkOut", Reason: "requires a check-in"}
	}
	if r.CheckIn == "" {
		return nil
	}
	in, err := minutesOf("checkIn", r.CheckIn)
	if err != nil {
		return err
	}
	if r.CheckOut == "" {
		return nil
	}
	out, err := minutesOf("checkOut", r.CheckOut)
	if err != nil {
		return err
	}
	if out <= in {
		return &generic.InputError{Field: "checkOut", Reason: "must be after the check-in"}
	}
	return nil
}

// On reports whether r is for the given calendar day.
func (r Record) On(day time.Time) bool {
	return sameDay(r.Date, day)
}

// In reports whether r falls in the given month.
func (r Record) In(month, year int) bool {
	return r.Date.Year() == year && int(r.Date.Month()) == month
}

// derive fills the status and overtime from the clock times.
func (r *Record) derive(wh WorkingHours, status, overtime bool) error {
	if status {
		s, err := DetermineStatus(r.CheckIn, r.CheckOut, wh)
		if err != nil {
			return err
		}
		r.Status = s
	}
	if overtime {
		ot, err := Overtime(r.CheckOut, wh)
		if err != nil {
			return err
		}
		r.OvertimeHours = ot
	}
	return nil
}

// Input is one day of attendance as it is entered.
type Input struct {
	EmployeeID generic.EmployeeID
	Date       time.Time
	CheckIn    string
	CheckOut   string
	// Status is derived from the clock times when empty.
	Status Status
	// OvertimeHours is derived from the check-out when nil.
	OvertimeHours *decimal.Decimal
	Notes         string
}

// NewRecord builds a validated record for in.Date, truncated to the day.
func NewRecord(id generic.AttendanceID, in Input, wh WorkingHours) (Record, error) {
	r := Record{
		ID:         id,
		EmployeeID: in.EmployeeID,
		Date:       day(in.Date),
		CheckIn:    in.CheckIn,
		CheckOut:   in.CheckOut,
		Status:     in.Status,
		Notes:      in.Notes,
	}
	if err := r.derive(wh, in.Status == "", in.OvertimeHours == nil); err != nil {
		return Record{}, err
	}
	if in.OvertimeHours != nil {
		r.OvertimeHours = *in.OvertimeHours
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Patch is a correction to a record. Nil fields are left untouched.
type Patch struct {
	CheckIn       *string          `json:"checkIn,omitempty"`
	CheckOut      *string          `json:"checkOut,omitempty"`
	Status        *Status          `json:"status,omitempty"`
	OvertimeHours *decimal.Decimal `json:"overtimeHours,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
}

// Update applies p to r. When p changes a clock time, status and overtime
// are derived again unless p sets them too.
func Update(r Record, p Patch, wh WorkingHours) (Record, error) {
	if p.CheckIn != nil {
		r.CheckIn = *p.CheckIn
	}
	if p.CheckOut != nil {
		r.CheckOut = *p.CheckOut
	}
	if p.CheckIn != nil || p.CheckOut != nil {
		if err := r.derive(wh, p.Status == nil, p.OvertimeHours == nil); err != nil {
			return Record{}, err
		}
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.OvertimeHours != nil {
		r.OvertimeHours = *p.OvertimeHours
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
