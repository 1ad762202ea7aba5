package attendance

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// MONTHLY SUMMARY
// =============================================================================

// Summary is one employee's attendance for one month.
type Summary struct {
	EmployeeID     generic.EmployeeID `json:"employeeId"`
	Month          int                `json:"month"`
	Year           int                `json:"year"`
	TotalDays      int                `json:"totalDays"`
	PresentDays    int                `json:"presentDays"`
	AbsentDays     int                `json:"absentDays"`
	LateDays       int                `json:"lateDays"`
	EarlyLeaveDays int                `json:"earlyLeaveDays"`
	LeaveDays      int                `json:"leaveDays"`
	// UnpaidLeaveDays counts approved unpaid leave days in the month that
	// are not already recorded as absent.
	UnpaidLeaveDays int             `json:"unpaidLeaveDays"`
	TotalOvertime   decimal.Decimal `json:"totalOvertime"`
	// AttendanceRate is presentDays / totalDays in percent, 0 without records.
	AttendanceRate decimal.Decimal `json:"attendanceRate"`
}

// Summarize folds the employee's records and leave for the month. Records
// and leave of other employees or months are ignored.
func Summarize(employeeID generic.EmployeeID, month, year int, records []Record, leaves []Leave) Summary {
	s := Summary{
		EmployeeID:     employeeID,
		Month:          month,
		Year:           year,
		TotalOvertime:  decimal.Zero,
		AttendanceRate: decimal.Zero,
	}

	absent := make(map[int]bool)
	for _, r := range records {
		if r.EmployeeID != employeeID || !r.In(month, year) {
			continue
		}
		s.TotalDays++
		switch r.Status {
		case StatusPresent:
			s.PresentDays++
		case StatusAbsent:
			s.AbsentDays++
			absent[r.Date.Day()] = true
		case StatusLate:
			s.LateDays++
		case StatusEarlyLeave:
			s.EarlyLeaveDays++
		case StatusOnLeave:
			s.LeaveDays++
		}
		s.TotalOvertime = s.TotalOvertime.Add(r.OvertimeHours)
	}

	for _, l := range leaves {
		if l.EmployeeID != employeeID || l.Status != LeaveApproved || l.Type != LeaveUnpaid {
			continue
		}
		for _, d := range l.DaysIn(month, year) {
			if !absent[d.Day()] {
				absent[d.Day()] = true
				s.UnpaidLeaveDays++
			}
		}
	}

	if s.TotalDays > 0 {
		s.AttendanceRate = decimal.NewFromInt(int64(s.PresentDays)).
			Mul(generic.Percent).
			Div(decimal.NewFromInt(int64(s.TotalDays))).
			Round(2)
	}
	return s
}

// AbsenceDays is what payroll deducts for: absent days plus unpaid leave.
func (s Summary) AbsenceDays() decimal.Decimal {
	return decimal.NewFromInt(int64(s.AbsentDays + s.UnpaidLeaveDays))
}
