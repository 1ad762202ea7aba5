/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the state store via REST API. Handles HTTP request/response and
  JSON serialization, and turns every mutating request into one state.Intent
  dispatched through Store.Dispatch. Handlers never change entities
  themselves.

ENDPOINTS:
  Employees:
    GET    /api/employees                 List employees (?status=, ?department=)
    POST   /api/employees                 Create employee
    GET    /api/employees/{id}            Get employee
    PUT    /api/employees/{id}            Merge a partial update
    DELETE /api/employees/{id}            Delete (refused while referenced)
    PUT    /api/employees                 Replace the list (bulk import)

  Organisation:
    GET/POST/PUT /api/departments, PUT /api/departments/{id}
    GET/POST/PUT /api/positions,   PUT /api/positions/{id}

  Payroll:
    GET    /api/payroll                   Records + totals (?month=&year=&status=&department=)
    GET    /api/payroll/summary           Totals only
    POST   /api/payroll/generate          Generate a period
    POST   /api/payroll/records           Import a finished record
    GET    /api/payroll/{id}              Get record
    POST   /api/payroll/{id}/process      pending -> processed
    POST   /api/payroll/{id}/pay          processed -> paid

  Advances:
    GET    /api/advances                  List (?employee=&status=)
    POST   /api/advances                  Request an advance
    POST   /api/advances/overdue          Flag overdue installments now
    GET    /api/advances/{id}             Advance with schedule
    DELETE /api/advances/{id}             Delete a pending advance
    POST   /api/advances/{id}/approve
    POST   /api/advances/{id}/reject
    GET    /api/advances/{id}/installments
    POST   /api/installments/{id}/pay     Record a payment

  Attendance & leave:
    GET    /api/attendance                List (?employee=&month=&year=)
    POST   /api/attendance                Record a day
    GET    /api/attendance/summary        Monthly summary (?employee=&month=&year=)
    POST   /api/attendance/apply          Copy a month onto the employee
    PUT    /api/attendance/{id}           Correct a record
    GET    /api/leaves                    List (?employee=&status=)
    POST   /api/leaves                    Request leave
    POST   /api/leaves/{id}/approve
    POST   /api/leaves/{id}/reject

  Notifications, settings, backup, maintenance: see server.go.

ACTORS:
  The acting user is read from the X-Actor-ID header and defaults to
  "system". It is recorded, never authenticated.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: invalid input or configuration
  - 404: unknown id
  - 409: invalid transition or operation
  - 500: everything else (persistence, bugs)

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/warp/payroll-engine/advance"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/notify"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/personnel"
	"github.com/warp/payroll-engine/state"
	"go.uber.org/zap"
)

// ActorHeader names the request header carrying the acting user.
const ActorHeader = "X-Actor-ID"

const defaultActor generic.ActorID = "system"

// maxDocumentBytes bounds settings and backup uploads.
const maxDocumentBytes = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *state.Store
	Scheduler *MaintenanceScheduler // optional; maintenance routes answer 503 without it

	// NewID names entities created through the API, so the response can
	// point at them.
	NewID generic.IDGenerator

	logger   *zap.Logger
	validate *validator.Validate

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler around store. The logger defaults to the
// global zap logger.
func NewHandler(store *state.Store, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("api")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("api")
	}
	return &Handler{
		Store:    store,
		NewID:    generic.UUIDGenerator(),
		logger:   l,
		validate: newValidator(),
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns employees, optionally filtered by status and
// department.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	status := personnel.Status(r.URL.Query().Get("status"))
	dept := generic.DepartmentID(r.URL.Query().Get("department"))

	snap := h.Store.Snapshot()
	out := make([]personnel.Employee, 0, len(snap.Employees))
	for _, e := range snap.Employees {
		if status != "" && e.Status != status {
			continue
		}
		if dept != "" && e.Position.DepartmentID != dept {
			continue
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := generic.EmployeeID(chi.URLParam(r, "id"))
	e, ok := h.Store.Snapshot().Employee(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.ID == "" {
		req.ID = h.NewID()
	}

	snap, ok := h.dispatch(w, r, state.AddEmployee{Employee: req.toEmployee()})
	if !ok {
		return
	}
	e, _ := snap.Employee(generic.EmployeeID(req.ID))
	h.logger.Info("employee created", zap.String("employee_id", req.ID))
	writeJSON(w, http.StatusCreated, e)
}

// UpdateEmployee merges the posted fields onto the employee.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id := generic.EmployeeID(chi.URLParam(r, "id"))
	var patch personnel.EmployeePatch
	if err := h.decode(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}

	snap, ok := h.dispatch(w, r, state.UpdateEmployee{ID: id, Patch: patch})
	if !ok {
		return
	}
	e, found := snap.Employee(id)
	if !found {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := generic.EmployeeID(chi.URLParam(r, "id"))
	if _, ok := h.Store.Snapshot().Employee(id); !ok {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	if _, ok := h.dispatch(w, r, state.DeleteEmployee{ID: id}); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ImportEmployees replaces the employee list. Employees that still have
// payroll, advances, attendance or leave cannot be left out.
func (h *Handler) ImportEmployees(w http.ResponseWriter, r *http.Request) {
	var req ImportEmployeesRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	list := make([]personnel.Employee, 0, len(req.Employees))
	for _, e := range req.Employees {
		if e.ID == "" {
			e.ID = h.NewID()
		}
		list = append(list, e.toEmployee())
	}

	snap, ok := h.dispatch(w, r, state.SetEmployees{Employees: list})
	if !ok {
		return
	}
	h.logger.Info("employees imported", zap.Int("count", len(list)))
	writeJSON(w, http.StatusOK, snap.Employees)
}

// =============================================================================
// DEPARTMENT & POSITION HANDLERS
// =============================================================================

func (h *Handler) ImportDepartments(w http.ResponseWriter, r *http.Request) {
	var req ImportDepartmentsRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	list := make([]personnel.Department, 0, len(req.Departments))
	for _, d := range req.Departments {
		if d.ID == "" {
			d.ID = h.NewID()
		}
		list = append(list, d.toDepartment())
	}

	snap, ok := h.dispatch(w, r, state.SetDepartments{Departments: list})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.Departments)
}

func (h *Handler) ImportPositions(w http.ResponseWriter, r *http.Request) {
	var req ImportPositionsRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	list := make([]personnel.Position, 0, len(req.Positions))
	for _, p := range req.Positions {
		if p.ID == "" {
			p.ID = h.NewID()
		}
		list = append(list, p.toPosition())
	}

	snap, ok := h.dispatch(w, r, state.SetPositions{Positions: list})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.Positions)
}

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Snapshot().Departments)
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req DepartmentRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.ID == "" {
		req.ID = h.NewID()
	}

	snap, ok := h.dispatch(w, r, state.AddDepartment{Department: req.toDepartment()})
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, findDepartment(snap, generic.DepartmentID(req.ID)))
}

func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	id := generic.DepartmentID(chi.URLParam(r, "id"))
	var patch personnel.DepartmentPatch
	if err := h.decode(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}

	snap, ok := h.dispatch(w, r, state.UpdateDepartment{ID: id, Patch: patch})
	if !ok {
		return
	}
	d := findDepartment(snap, id)
	if d == nil {
		writeError(w, http.StatusNotFound, "Department not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Snapshot().Positions)
}

func (h *Handler) CreatePosition(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.ID == "" {
		req.ID = h.NewID()
	}

	snap, ok := h.dispatch(w, r, state.AddPosition{Position: req.toPosition()})
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, findPosition(snap, generic.PositionID(req.ID)))
}

func (h *Handler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	id := generic.PositionID(chi.URLParam(r, "id"))
	var patch personnel.PositionPatch
	if err := h.decode(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}

	snap, ok := h.dispatch(w, r, state.UpdatePosition{ID: id, Patch: patch})
	if !ok {
		return
	}
	p := findPosition(snap, id)
	if p == nil {
		writeError(w, http.StatusNotFound, "Position not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// ListPayroll returns the matching records with their totals.
func (h *Handler) ListPayroll(w http.ResponseWriter, r *http.Request) {
	f, err := payrollFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	records := f.Apply(h.Store.Snapshot().PayrollRecords)
	writeJSON(w, http.StatusOK, PayrollListDTO{Records: records, Summary: payroll.Summarize(records)})
}

func (h *Handler) PayrollSummary(w http.ResponseWriter, r *http.Request) {
	f, err := payrollFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payroll.Summarize(f.Apply(h.Store.Snapshot().PayrollRecords)))
}

// GeneratePayroll builds the records of one period and returns them.
func (h *Handler) GeneratePayroll(w http.ResponseWriter, r *http.Request) {
	var req GeneratePayrollRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	snap, ok := h.dispatch(w, r, state.GeneratePayroll{Month: req.Month, Year: req.Year})
	if !ok {
		return
	}
	records := payroll.Filter{Month: req.Month, Year: req.Year}.Apply(snap.PayrollRecords)
	h.logger.Info("payroll generated",
		zap.Int("month", req.Month), zap.Int("year", req.Year), zap.Int("records", len(records)))
	writeJSON(w, http.StatusCreated, PayrollListDTO{Records: records, Summary: payroll.Summarize(records)})
}

// AddPayrollRecord imports a record computed elsewhere. Its figures are
// stored as given once they add up.
func (h *Handler) AddPayrollRecord(w http.ResponseWriter, r *http.Request) {
	var rec payroll.Record
	if err := h.decode(r, &rec); err != nil {
		h.fail(w, r, err)
		return
	}
	if rec.ID == "" {
		rec.ID = payroll.RecordID(rec.EmployeeID, rec.Month, rec.Year)
	}

	snap, ok := h.dispatch(w, r, state.AddPayrollRecord{Record: rec})
	if !ok {
		return
	}
	stored, _ := snap.PayrollRecord(rec.ID)
	h.logger.Info("payroll record imported", zap.String("record_id", string(rec.ID)))
	writeJSON(w, http.StatusCreated, stored)
}

func (h *Handler) GetPayrollRecord(w http.ResponseWriter, r *http.Request) {
	id := generic.PayrollRecordID(chi.URLParam(r, "id"))
	rec, ok := h.Store.Snapshot().PayrollRecord(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Payroll record not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) ProcessPayroll(w http.ResponseWriter, r *http.Request) {
	id := generic.PayrollRecordID(chi.URLParam(r, "id"))
	snap, ok := h.dispatch(w, r, state.ProcessPayroll{ID: id, Actor: actorFrom(r)})
	if !ok {
		return
	}
	rec, _ := snap.PayrollRecord(id)
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) MarkPayrollPaid(w http.ResponseWriter, r *http.Request) {
	id := generic.PayrollRecordID(chi.URLParam(r, "id"))
	snap, ok := h.dispatch(w, r, state.MarkPayrollPaid{ID: id, Actor: actorFrom(r)})
	if !ok {
		return
	}
	rec, _ := snap.PayrollRecord(id)
	writeJSON(w, http.StatusOK, rec)
}

func payrollFilter(r *http.Request) (payroll.Filter, error) {
	q := r.URL.Query()
	f := payroll.Filter{
		Status:       payroll.Status(q.Get("status")),
		DepartmentID: generic.DepartmentID(q.Get("department")),
	}
	var err error
	if f.Month, err = queryInt(r, "month"); err != nil {
		return f, err
	}
	if f.Year, err = queryInt(r, "year"); err != nil {
		return f, err
	}
	return f, nil
}

// =============================================================================
// ADVANCE HANDLERS
// =============================================================================

// ListAdvances returns advances with their schedules, optionally filtered by
// employee and status.
func (h *Handler) ListAdvances(w http.ResponseWriter, r *http.Request) {
	emp := generic.EmployeeID(r.URL.Query().Get("employee"))
	status := advance.Status(r.URL.Query().Get("status"))

	snap := h.Store.Snapshot()
	out := make([]AdvanceDTO, 0, len(snap.Advances))
	for _, a := range snap.Advances {
		if emp != "" && a.EmployeeID != emp {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, toAdvanceDTO(snap, a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) RequestAdvance(w http.ResponseWriter, r *http.Request) {
	var req RequestAdvanceRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	id := generic.AdvanceID(h.NewID())
	snap, ok := h.dispatch(w, r, state.RequestAdvance{ID: id, Input: req.toInput()})
	if !ok {
		return
	}
	a, _ := snap.Advance(id)
	h.logger.Info("advance requested",
		zap.String("advance_id", string(id)),
		zap.String("employee_id", req.EmployeeID),
		zap.String("amount", req.Amount.String()))
	writeJSON(w, http.StatusCreated, toAdvanceDTO(snap, a))
}

func (h *Handler) GetAdvance(w http.ResponseWriter, r *http.Request) {
	snap := h.Store.Snapshot()
	a, ok := snap.Advance(generic.AdvanceID(chi.URLParam(r, "id")))
	if !ok {
		writeError(w, http.StatusNotFound, "Advance not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toAdvanceDTO(snap, a))
}

func (h *Handler) ApproveAdvance(w http.ResponseWriter, r *http.Request) {
	id := generic.AdvanceID(chi.URLParam(r, "id"))
	h.decideAdvance(w, r, id, state.ApproveAdvance{ID: id, Actor: actorFrom(r)})
}

func (h *Handler) RejectAdvance(w http.ResponseWriter, r *http.Request) {
	id := generic.AdvanceID(chi.URLParam(r, "id"))
	h.decideAdvance(w, r, id, state.RejectAdvance{ID: id, Actor: actorFrom(r)})
}

func (h *Handler) decideAdvance(w http.ResponseWriter, r *http.Request, id generic.AdvanceID, in state.Intent) {
	snap, ok := h.dispatch(w, r, in)
	if !ok {
		return
	}
	a, _ := snap.Advance(id)
	h.logger.Info("advance decided",
		zap.String("advance_id", string(id)),
		zap.String("status", string(a.Status)),
		zap.String("actor", string(actorFrom(r))))
	writeJSON(w, http.StatusOK, toAdvanceDTO(snap, a))
}

func (h *Handler) DeleteAdvance(w http.ResponseWriter, r *http.Request) {
	id := generic.AdvanceID(chi.URLParam(r, "id"))
	if _, ok := h.dispatch(w, r, state.DeleteAdvance{ID: id}); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) ListInstallments(w http.ResponseWriter, r *http.Request) {
	snap := h.Store.Snapshot()
	id := generic.AdvanceID(chi.URLParam(r, "id"))
	if _, ok := snap.Advance(id); !ok {
		writeError(w, http.StatusNotFound, "Advance not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, snap.InstallmentsOf(id))
}

// PayInstallment records a payment and returns the advance it belongs to.
func (h *Handler) PayInstallment(w http.ResponseWriter, r *http.Request) {
	id := generic.InstallmentID(chi.URLParam(r, "id"))
	var req PayInstallmentRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	snap, ok := h.dispatch(w, r, state.PayInstallment{ID: id, Amount: req.Amount})
	if !ok {
		return
	}
	for _, inst := range snap.AdvanceInstallments {
		if inst.ID == id {
			a, _ := snap.Advance(inst.AdvanceID)
			writeJSON(w, http.StatusOK, toAdvanceDTO(snap, a))
			return
		}
	}
	writeError(w, http.StatusNotFound, "Installment not found", nil)
}

// MarkOverdue flags overdue installments now instead of waiting for the
// maintenance run, and returns every overdue installment.
func (h *Handler) MarkOverdue(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.dispatch(w, r, state.MarkOverdueInstallments{})
	if !ok {
		return
	}
	out := []advance.Installment{}
	for _, inst := range snap.AdvanceInstallments {
		if inst.Status == advance.InstallmentOverdue {
			out = append(out, inst)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func toAdvanceDTO(snap state.Snapshot, a advance.Advance) AdvanceDTO {
	return AdvanceDTO{Advance: a, Installments: snap.InstallmentsOf(a.ID)}
}

// =============================================================================
// ATTENDANCE & LEAVE HANDLERS
// =============================================================================

// ListAttendance returns attendance records, optionally filtered by
// employee and month.
func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	emp := generic.EmployeeID(r.URL.Query().Get("employee"))
	month, err := queryInt(r, "month")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	year, err := queryInt(r, "year")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	snap := h.Store.Snapshot()
	out := make([]attendance.Record, 0, len(snap.AttendanceRecords))
	for _, rec := range snap.AttendanceRecords {
		if emp != "" && rec.EmployeeID != emp {
			continue
		}
		if month != 0 && int(rec.Date.Month()) != month {
			continue
		}
		if year != 0 && rec.Date.Year() != year {
			continue
		}
		out = append(out, rec)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	var req AttendanceRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	id := generic.AttendanceID(h.NewID())
	snap, ok := h.dispatch(w, r, state.RecordAttendance{ID: id, Input: in})
	if !ok {
		return
	}
	rec, _ := snap.AttendanceRecord(id)
	h.logger.Info("attendance recorded",
		zap.String("attendance_id", string(id)),
		zap.String("employee_id", req.EmployeeID),
		zap.String("status", string(rec.Status)))
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) UpdateAttendance(w http.ResponseWriter, r *http.Request) {
	id := generic.AttendanceID(chi.URLParam(r, "id"))
	var patch attendance.Patch
	if err := h.decode(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}

	snap, ok := h.dispatch(w, r, state.UpdateAttendance{ID: id, Patch: patch})
	if !ok {
		return
	}
	rec, _ := snap.AttendanceRecord(id)
	writeJSON(w, http.StatusOK, rec)
}

// AttendanceSummary folds one employee's month. employee, month and year
// are required.
func (h *Handler) AttendanceSummary(w http.ResponseWriter, r *http.Request) {
	emp := generic.EmployeeID(r.URL.Query().Get("employee"))
	if emp == "" {
		h.fail(w, r, &generic.InputError{Field: "employee", Reason: "is required"})
		return
	}
	month, err := queryInt(r, "month")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	year, err := queryInt(r, "year")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := generic.ValidPeriod(month, year); err != nil {
		h.fail(w, r, err)
		return
	}

	snap := h.Store.Snapshot()
	if _, ok := snap.Employee(emp); !ok {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, attendance.Summarize(emp, month, year, snap.AttendanceRecords, snap.LeaveRequests))
}

// ApplyAttendance copies a month's absence days and overtime onto the
// employee and returns the employee.
func (h *Handler) ApplyAttendance(w http.ResponseWriter, r *http.Request) {
	var req ApplyAttendanceRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	id := generic.EmployeeID(req.EmployeeID)
	snap, ok := h.dispatch(w, r, state.ApplyAttendance{EmployeeID: id, Month: req.Month, Year: req.Year})
	if !ok {
		return
	}
	e, _ := snap.Employee(id)
	h.logger.Info("attendance applied",
		zap.String("employee_id", req.EmployeeID),
		zap.Int("month", req.Month), zap.Int("year", req.Year),
		zap.String("absence_days", e.AbsenceDays.String()))
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	emp := generic.EmployeeID(r.URL.Query().Get("employee"))
	status := attendance.LeaveStatus(r.URL.Query().Get("status"))

	snap := h.Store.Snapshot()
	out := make([]attendance.Leave, 0, len(snap.LeaveRequests))
	for _, l := range snap.LeaveRequests {
		if emp != "" && l.EmployeeID != emp {
			continue
		}
		if status != "" && l.Status != status {
			continue
		}
		out = append(out, l)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) RequestLeave(w http.ResponseWriter, r *http.Request) {
	var req LeaveRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	id := generic.LeaveID(h.NewID())
	snap, ok := h.dispatch(w, r, state.RequestLeave{ID: id, Input: in})
	if !ok {
		return
	}
	l, _ := snap.Leave(id)
	h.logger.Info("leave requested",
		zap.String("leave_id", string(id)),
		zap.String("employee_id", req.EmployeeID),
		zap.Int("days", l.Days))
	writeJSON(w, http.StatusCreated, l)
}

func (h *Handler) ApproveLeave(w http.ResponseWriter, r *http.Request) {
	id := generic.LeaveID(chi.URLParam(r, "id"))
	h.decideLeave(w, r, id, state.ApproveLeave{ID: id, Actor: actorFrom(r)})
}

func (h *Handler) RejectLeave(w http.ResponseWriter, r *http.Request) {
	id := generic.LeaveID(chi.URLParam(r, "id"))
	h.decideLeave(w, r, id, state.RejectLeave{ID: id, Actor: actorFrom(r)})
}

func (h *Handler) decideLeave(w http.ResponseWriter, r *http.Request, id generic.LeaveID, in state.Intent) {
	snap, ok := h.dispatch(w, r, in)
	if !ok {
		return
	}
	l, _ := snap.Leave(id)
	h.logger.Info("leave decided",
		zap.String("leave_id", string(id)),
		zap.String("status", string(l.Status)),
		zap.String("actor", string(actorFrom(r))))
	writeJSON(w, http.StatusOK, l)
}

// =============================================================================
// NOTIFICATION HANDLERS
// =============================================================================

// ListNotifications returns notifications newest first (?status=unread).
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	status := notify.Status(r.URL.Query().Get("status"))
	all := h.Store.Snapshot().Notifications

	out := make([]notify.Notification, 0, len(all))
	for _, n := range all {
		if status == "" || n.Status == status {
			out = append(out, n)
		}
	}
	writeJSON(w, http.StatusOK, NotificationListDTO{Notifications: out, Unread: notify.CountUnread(all)})
}

func (h *Handler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var req NotificationRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	n := req.toNotification()
	n.ID = generic.NotificationID(h.NewID())

	snap, ok := h.dispatch(w, r, state.AddNotification{Notification: n})
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, snap.Notifications[0])
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := generic.NotificationID(chi.URLParam(r, "id"))
	snap, ok := h.dispatch(w, r, state.MarkNotificationRead{ID: id})
	if !ok {
		return
	}
	for _, n := range snap.Notifications {
		if n.ID == id {
			writeJSON(w, http.StatusOK, n)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Notification not found", nil)
}

func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.dispatch(w, r, state.MarkAllNotificationsRead{}); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.dispatch(w, r, state.ClearNotifications{}); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Snapshot().Settings)
}

// UpdateSettings merges a YAML or JSON settings document (snake_case keys,
// see factory/settings.go) onto the current settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}
	merged, err := factory.MergeSettings(h.Store.Snapshot().Settings, body)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	snap, ok := h.dispatch(w, r, state.UpdateSettings{Settings: merged})
	if !ok {
		return
	}
	h.logger.Info("payroll settings updated", zap.String("actor", string(actorFrom(r))))
	writeJSON(w, http.StatusOK, snap.Settings)
}

// ExportSettings renders the current settings as a YAML document that
// UpdateSettings and SETTINGS_FILE accept.
func (h *Handler) ExportSettings(w http.ResponseWriter, r *http.Request) {
	data, err := factory.MarshalSettings(h.Store.Snapshot().Settings)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export settings", err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) GetSystemSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Snapshot().SystemSettings)
}

// UpdateSystemSettings decodes the body over the current system settings, so
// omitted fields are kept.
func (h *Handler) UpdateSystemSettings(w http.ResponseWriter, r *http.Request) {
	sys := h.Store.Snapshot().SystemSettings
	if err := json.NewDecoder(r.Body).Decode(&sys); err != nil {
		h.fail(w, r, &generic.InputError{Field: "body", Reason: err.Error()})
		return
	}

	snap, ok := h.dispatch(w, r, state.UpdateSystemSettings{Settings: sys})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.SystemSettings)
}

// =============================================================================
// BACKUP HANDLERS
// =============================================================================

// ExportBackup downloads the whole snapshot as one JSON document.
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	now := h.Store.Clock().Now()
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="payroll-backup-%s.json"`, now.Format("2006-01-02")))
	writeJSON(w, http.StatusOK, h.Store.Snapshot())
}

// RestoreBackup replaces the whole snapshot with the uploaded one.
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	var snap state.Snapshot
	if err := json.NewDecoder(io.LimitReader(r.Body, maxDocumentBytes)).Decode(&snap); err != nil {
		h.fail(w, r, &generic.InputError{Field: "body", Reason: err.Error()})
		return
	}

	restored, ok := h.dispatch(w, r, state.RestoreSnapshot{Snapshot: snap})
	if !ok {
		return
	}
	h.setScenario("")
	h.logger.Info("backup restored",
		zap.Int("employees", len(restored.Employees)),
		zap.Int("advances", len(restored.Advances)),
		zap.Int("payroll_records", len(restored.PayrollRecords)))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "restored",
		"employees":      len(restored.Employees),
		"advances":       len(restored.Advances),
		"payrollRecords": len(restored.PayrollRecords),
	})
}

// =============================================================================
// MAINTENANCE HANDLERS
// =============================================================================

// RunMaintenance runs the maintenance pass immediately.
func (h *Handler) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "Maintenance scheduler not configured", nil)
		return
	}
	run, err := h.Scheduler.RunNow(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) LastMaintenance(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "Maintenance scheduler not configured", nil)
		return
	}
	run, ok := h.Scheduler.LastRun()
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// =============================================================================
// HELPERS
// =============================================================================

// dispatch applies in and writes the error response when it is refused.
func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, in state.Intent) (state.Snapshot, bool) {
	snap, err := h.Store.Dispatch(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return snap, false
	}
	return snap, true
}

// decode reads a JSON body into dst and validates its tags.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &generic.InputError{Field: "body", Reason: err.Error()}
	}
	if err := h.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError reports the first failed field.
func validationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &generic.InputError{Field: "body", Reason: err.Error()}
	}
	e := errs[0]
	reason := "is invalid"
	switch e.Tag() {
	case "required":
		reason = "is required"
	case "oneof":
		reason = "must be one of " + e.Param()
	case "min":
		reason = "must be at least " + e.Param()
	case "max":
		reason = "must be at most " + e.Param()
	case "email":
		reason = "must be an email address"
	case "datetime":
		reason = "must match " + e.Param()
	}
	return &generic.InputError{Field: e.Field(), Reason: reason}
}

// fail maps an error to its HTTP status and writes it.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		h.logger.Debug("request refused",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, generic.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, generic.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, generic.ErrInvalidConfiguration):
		return http.StatusBadRequest, "invalid_configuration"
	case errors.Is(err, generic.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, generic.ErrInvalidOperation):
		return http.StatusConflict, "invalid_operation"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func actorFrom(r *http.Request) generic.ActorID {
	if a := strings.TrimSpace(r.Header.Get(ActorHeader)); a != "" {
		return generic.ActorID(a)
	}
	return defaultActor
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &generic.InputError{Field: key, Reason: fmt.Sprintf("%q is not a number", v)}
	}
	return n, nil
}

func findDepartment(snap state.Snapshot, id generic.DepartmentID) *personnel.Department {
	for i := range snap.Departments {
		if snap.Departments[i].ID == id {
			return &snap.Departments[i]
		}
	}
	return nil
}

func findPosition(snap state.Snapshot, id generic.PositionID) *personnel.Position {
	for i := range snap.Positions {
		if snap.Positions[i].ID == id {
			return &snap.Positions[i]
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
