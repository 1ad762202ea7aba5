/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types already
  carry camelCase JSON tags and are returned as they are; DTOs exist where
  a request needs validation or a response combines several entities.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Employees:     EmployeeRequest, ImportEmployeesRequest
  Organisation:  DepartmentRequest, PositionRequest, Import*Request
  Payroll:       GeneratePayrollRequest, PayrollListDTO
  Attendance:    AttendanceRequest, ApplyAttendanceRequest, LeaveRequest
  Advances:      RequestAdvanceRequest, PayInstallmentRequest, AdvanceDTO
  Notifications: NotificationRequest, NotificationListDTO
  Scenarios:     ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Request types carry go-playground/validator tags. Shape checks (required,
  ranges, enums) happen here; business rules stay in the engines, so a
  request can pass validation and still be rejected by the reducer.

SEE ALSO:
  - handlers.go: Uses these types
  - state/intent.go: what each request turns into
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/advance"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/notify"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/personnel"
)

// =============================================================================
// EMPLOYEES & ORGANISATION
// =============================================================================

// EmployeeRequest is the request to create an employee.
type EmployeeRequest struct {
	ID                string                `json:"id"`
	Code              string                `json:"code" validate:"max=32"`
	Name              string                `json:"name" validate:"required,max=200"`
	Position          personnel.JobPosition `json:"position"`
	BasicSalary       decimal.Decimal       `json:"basicSalary"`
	MonthlyIncentives decimal.Decimal       `json:"monthlyIncentives"`
	Bonus             decimal.Decimal       `json:"bonus"`
	OvertimeHours     decimal.Decimal       `json:"overtimeHours"`
	AbsenceDays       decimal.Decimal       `json:"absenceDays"`
	Penalties         decimal.Decimal       `json:"penalties"`
	PenaltyDays       decimal.Decimal       `json:"penaltyDays"`
	Purchases         decimal.Decimal       `json:"purchases"`
	HourlyDeductions  decimal.Decimal       `json:"hourlyDeductions"`
	Status            string                `json:"status" validate:"omitempty,oneof=active inactive on_leave"`
	JoinDate          *time.Time            `json:"joinDate"`
	NationalID        string                `json:"nationalId"`
	PhoneNumber       string                `json:"phoneNumber"`
	Email             string                `json:"email" validate:"omitempty,email"`
	BankAccount       string                `json:"bankAccount"`
	BankName          string                `json:"bankName"`
}

func (r EmployeeRequest) toEmployee() personnel.Employee {
	e := personnel.Employee{
		ID:                generic.EmployeeID(r.ID),
		Code:              r.Code,
		Name:              r.Name,
		Position:          r.Position,
		BasicSalary:       r.BasicSalary,
		MonthlyIncentives: r.MonthlyIncentives,
		Bonus:             r.Bonus,
		OvertimeHours:     r.OvertimeHours,
		AbsenceDays:       r.AbsenceDays,
		Penalties:         r.Penalties,
		PenaltyDays:       r.PenaltyDays,
		Purchases:         r.Purchases,
		HourlyDeductions:  r.HourlyDeductions,
		Status:            personnel.Status(r.Status),
		NationalID:        r.NationalID,
		PhoneNumber:       r.PhoneNumber,
		Email:             r.Email,
		BankAccount:       r.BankAccount,
		BankName:          r.BankName,
	}
	if r.JoinDate != nil {
		e.JoinDate = *r.JoinDate
	}
	return e
}

type DepartmentRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required,max=200"`
	Code        string `json:"code" validate:"max=32"`
	Description string `json:"description"`
	ManagerID   string `json:"managerId"`
	Active      *bool  `json:"active"`
}

func (r DepartmentRequest) toDepartment() personnel.Department {
	d := personnel.Department{
		ID:          generic.DepartmentID(r.ID),
		Name:        r.Name,
		Code:        r.Code,
		Description: r.Description,
		ManagerID:   generic.EmployeeID(r.ManagerID),
		Active:      true,
	}
	if r.Active != nil {
		d.Active = *r.Active
	}
	return d
}

type PositionRequest struct {
	ID           string          `json:"id"`
	Title        string          `json:"title" validate:"required,max=200"`
	DepartmentID string          `json:"departmentId"`
	Code         string          `json:"code" validate:"max=32"`
	BaseSalary   decimal.Decimal `json:"baseSalary"`
}

func (r PositionRequest) toPosition() personnel.Position {
	return personnel.Position{
		ID:           generic.PositionID(r.ID),
		Title:        r.Title,
		DepartmentID: generic.DepartmentID(r.DepartmentID),
		Code:         r.Code,
		BaseSalary:   r.BaseSalary,
	}
}

// ImportEmployeesRequest replaces the whole employee list.
type ImportEmployeesRequest struct {
	Employees []EmployeeRequest `json:"employees" validate:"dive"`
}

type ImportDepartmentsRequest struct {
	Departments []DepartmentRequest `json:"departments" validate:"dive"`
}

type ImportPositionsRequest struct {
	Positions []PositionRequest `json:"positions" validate:"dive"`
}

// =============================================================================
// PAYROLL
// =============================================================================

type GeneratePayrollRequest struct {
	Month int `json:"month" validate:"required,min=1,max=12"`
	Year  int `json:"year" validate:"required,min=1900,max=9999"`
}

// PayrollListDTO is a filtered record list with its totals.
type PayrollListDTO struct {
	Records []payroll.Record `json:"records"`
	Summary payroll.Summary  `json:"summary"`
}

// =============================================================================
// ADVANCES
// =============================================================================

type RequestAdvanceRequest struct {
	EmployeeID   string          `json:"employeeId" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	Reason       string          `json:"reason" validate:"max=500"`
	Installments int             `json:"installments" validate:"required,min=1,max=120"`
	Notes        string          `json:"notes" validate:"max=1000"`
}

func (r RequestAdvanceRequest) toInput() advance.RequestInput {
	return advance.RequestInput{
		EmployeeID:        generic.EmployeeID(r.EmployeeID),
		Amount:            r.Amount,
		Reason:            r.Reason,
		InstallmentsCount: r.Installments,
		Notes:             r.Notes,
	}
}

type PayInstallmentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// AdvanceDTO is an advance together with its schedule.
type AdvanceDTO struct {
	advance.Advance
	Installments []advance.Installment `json:"installmentSchedule"`
}

// =============================================================================
// ATTENDANCE & LEAVE
// =============================================================================

// AttendanceRequest records one day. Status and overtime are derived from
// the clock times when left out.
type AttendanceRequest struct {
	EmployeeID    string           `json:"employeeId" validate:"required"`
	Date          string           `json:"date" validate:"required,datetime=2006-01-02"`
	CheckIn       string           `json:"checkIn" validate:"omitempty,datetime=15:04"`
	CheckOut      string           `json:"checkOut" validate:"omitempty,datetime=15:04"`
	Status        string           `json:"status" validate:"omitempty,oneof=present absent late early_leave on_leave"`
	OvertimeHours *decimal.Decimal `json:"overtimeHours"`
	Notes         string           `json:"notes" validate:"max=1000"`
}

func (r AttendanceRequest) toInput() (attendance.Input, error) {
	date, err := parseDay("date", r.Date)
	if err != nil {
		return attendance.Input{}, err
	}
	return attendance.Input{
		EmployeeID:    generic.EmployeeID(r.EmployeeID),
		Date:          date,
		CheckIn:       r.CheckIn,
		CheckOut:      r.CheckOut,
		Status:        attendance.Status(r.Status),
		OvertimeHours: r.OvertimeHours,
		Notes:         r.Notes,
	}, nil
}

type ApplyAttendanceRequest struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	Month      int    `json:"month" validate:"required,min=1,max=12"`
	Year       int    `json:"year" validate:"required,min=1900,max=9999"`
}

type LeaveRequest struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	Type       string `json:"type" validate:"required,oneof=annual sick emergency unpaid"`
	StartDate  string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"endDate" validate:"required,datetime=2006-01-02"`
	Reason     string `json:"reason" validate:"max=500"`
}

func (r LeaveRequest) toInput() (attendance.LeaveInput, error) {
	from, err := parseDay("startDate", r.StartDate)
	if err != nil {
		return attendance.LeaveInput{}, err
	}
	to, err := parseDay("endDate", r.EndDate)
	if err != nil {
		return attendance.LeaveInput{}, err
	}
	return attendance.LeaveInput{
		EmployeeID: generic.EmployeeID(r.EmployeeID),
		Type:       attendance.LeaveType(r.Type),
		StartDate:  from,
		EndDate:    to,
		Reason:     r.Reason,
	}, nil
}

func parseDay(field, v string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, &generic.InputError{Field: field, Reason: "must be a YYYY-MM-DD date"}
	}
	return d, nil
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// NotificationRequest adds a notification by hand, e.g. a system notice.
type NotificationRequest struct {
	Type       string `json:"type" validate:"required,oneof=payroll advance leave attendance system"`
	Title      string `json:"title" validate:"required,max=200"`
	Message    string `json:"message" validate:"max=2000"`
	TargetID   string `json:"targetId"`
	TargetType string `json:"targetType" validate:"omitempty,oneof=advance payroll_record employee payroll_period attendance leave"`
}

func (r NotificationRequest) toNotification() notify.Notification {
	return notify.Notification{
		Type:       notify.Type(r.Type),
		Title:      r.Title,
		Message:    r.Message,
		TargetID:   r.TargetID,
		TargetType: notify.TargetType(r.TargetType),
	}
}

type NotificationListDTO struct {
	Notifications []notify.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
