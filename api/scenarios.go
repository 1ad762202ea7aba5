/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that replace the current data with a
	realistic company for demos and manual testing. Each scenario restores a
	base snapshot and then drives the rest through ordinary intents, so the
	loaded data went through the same rules as user input.

AVAILABLE SCENARIOS:

	small-company:  departments, positions and five employees, nothing else
	advances:       small-company plus a pending advance and an approved one
	                that is three installments in (one paid, two overdue)
	month-end:      small-company with last month's payroll generated,
	                partly processed and paid

HOW SCENARIOS WORK:
 1. Build the base snapshot (organisation and employees)
 2. Dispatch RestoreSnapshot with it (replaces everything, keeps nothing)
 3. Dispatch scenario-specific intents (advances, payroll)

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "advances"}

NOTE:

	Scenarios replace all data. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: backup restore uses the same RestoreSnapshot intent
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/advance"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/personnel"
	"github.com/warp/payroll-engine/state"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "small-company",
		Name:        "Small Company",
		Description: "Three departments and five employees, no payroll or advances yet",
	},
	{
		ID:          "advances",
		Name:        "Advances",
		Description: "A pending advance awaiting approval and an approved one with overdue installments",
	},
	{
		ID:          "month-end",
		Name:        "Month End",
		Description: "Last month's payroll generated, one record processed and one paid",
	},
	{
		ID:          "attendance",
		Name:        "Attendance",
		Description: "A week of attendance for two employees, an approved unpaid leave and a pending annual leave",
	},
}

var scenarioLoaders = map[string]func(h *Handler, ctx context.Context) error{
	"small-company": (*Handler).loadSmallCompanyScenario,
	"advances":      (*Handler).loadAdvancesScenario,
	"month-end":     (*Handler).loadMonthEndScenario,
	"attendance":    (*Handler).loadAttendanceScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.scenario()
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario replaces all data with a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.setScenario("")
	if err := load(h, r.Context()); err != nil {
		h.fail(w, r, fmt.Errorf("load scenario %s: %w", req.ScenarioID, err))
		return
	}
	h.setScenario(req.ScenarioID)
	h.logger.Info("scenario loaded", zap.String("scenario", req.ScenarioID))

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetData clears all data and restores the default settings.
func (h *Handler) ResetData(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.dispatch(w, r, state.RestoreSnapshot{Snapshot: state.Empty()}); !ok {
		return
	}
	h.setScenario("")
	h.logger.Warn("all data reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) scenario() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentScenario
}

func (h *Handler) setScenario(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = id
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadSmallCompanyScenario(ctx context.Context) error {
	now := h.Store.Clock().Now()
	_, err := h.Store.Dispatch(ctx, state.RestoreSnapshot{Snapshot: companySnapshot(now)})
	return err
}

// loadAdvancesScenario adds two advances on top of the small company. The
// approved one is restored as requested 100 days ago so its first three
// installments are past due; the pending one goes through RequestAdvance.
func (h *Handler) loadAdvancesScenario(ctx context.Context) error {
	now := h.Store.Clock().Now()
	snap := companySnapshot(now)

	requested := now.AddDate(0, 0, -100)
	adv, insts, err := advance.Request("adv-001", advance.RequestInput{
		EmployeeID:        "emp-003",
		Amount:            decimal.NewFromInt(6000),
		Reason:            "Medical expenses",
		InstallmentsCount: 6,
	}, requested)
	if err != nil {
		return err
	}
	adv, err = adv.Approve("hr-manager", requested.Add(24*time.Hour))
	if err != nil {
		return err
	}
	for i := range snap.Employees {
		if snap.Employees[i].ID == adv.EmployeeID {
			snap.Employees[i].Advances = adv.Amount
		}
	}
	snap.Advances = append(snap.Advances, adv)
	snap.AdvanceInstallments = append(snap.AdvanceInstallments, insts...)

	if _, err := h.Store.Dispatch(ctx, state.RestoreSnapshot{Snapshot: snap}); err != nil {
		return err
	}

	// first installment paid on time, the next two are left overdue
	if _, err := h.Store.Dispatch(ctx, state.PayInstallment{ID: insts[0].ID, Amount: insts[0].Amount}); err != nil {
		return err
	}
	if _, err := h.Store.Dispatch(ctx, state.MarkOverdueInstallments{}); err != nil {
		return err
	}

	_, err = h.Store.Dispatch(ctx, state.RequestAdvance{
		ID: "adv-002",
		Input: advance.RequestInput{
			EmployeeID:        "emp-002",
			Amount:            decimal.NewFromInt(3000),
			Reason:            "School fees",
			InstallmentsCount: 3,
		},
	})
	return err
}

// loadMonthEndScenario generates last month's payroll, processes the first
// record and pays the second.
func (h *Handler) loadMonthEndScenario(ctx context.Context) error {
	if err := h.loadSmallCompanyScenario(ctx); err != nil {
		return err
	}

	now := h.Store.Clock().Now()
	last := generic.StartOfMonth(now.Year(), now.Month()).AddDate(0, -1, 0)
	month, year := int(last.Month()), last.Year()
	snap, err := h.Store.Dispatch(ctx, state.GeneratePayroll{Month: month, Year: year})
	if err != nil {
		return err
	}

	records := payroll.Filter{Month: month, Year: year}.Apply(snap.PayrollRecords)
	if len(records) < 2 {
		return fmt.Errorf("expected at least 2 payroll records, got %d", len(records))
	}
	for _, rec := range records[:2] {
		if _, err := h.Store.Dispatch(ctx, state.ProcessPayroll{ID: rec.ID, Actor: "payroll-officer"}); err != nil {
			return err
		}
	}
	_, err = h.Store.Dispatch(ctx, state.MarkPayrollPaid{ID: records[1].ID, Actor: "payroll-officer"})
	return err
}

// loadAttendanceScenario records the first working week of this month for
// emp-001 and emp-002, gives emp-002 two approved unpaid leave days and
// applies the month to emp-002.
func (h *Handler) loadAttendanceScenario(ctx context.Context) error {
	if err := h.loadSmallCompanyScenario(ctx); err != nil {
		return err
	}

	now := h.Store.Clock().Now()
	first := generic.StartOfMonth(now.Year(), now.Month())
	week := []struct {
		employee generic.EmployeeID
		day      int
		in, out  string
	}{
		{"emp-001", 0, "08:55", "17:05"},
		{"emp-001", 1, "09:05", "18:30"},
		{"emp-001", 2, "09:00", "17:00"},
		{"emp-002", 0, "09:35", "17:00"},
		{"emp-002", 1, "", ""},
		{"emp-002", 2, "09:00", "16:15"},
	}
	for _, d := range week {
		if _, err := h.Store.Dispatch(ctx, state.RecordAttendance{Input: attendance.Input{
			EmployeeID: d.employee,
			Date:       first.AddDate(0, 0, d.day),
			CheckIn:    d.in,
			CheckOut:   d.out,
		}}); err != nil {
			return err
		}
	}

	if _, err := h.Store.Dispatch(ctx, state.RequestLeave{ID: "leave-001", Input: attendance.LeaveInput{
		EmployeeID: "emp-002",
		Type:       attendance.LeaveUnpaid,
		StartDate:  first.AddDate(0, 0, 13),
		EndDate:    first.AddDate(0, 0, 14),
		Reason:     "Family matters",
	}}); err != nil {
		return err
	}
	if _, err := h.Store.Dispatch(ctx, state.ApproveLeave{ID: "leave-001", Actor: "hr-manager"}); err != nil {
		return err
	}
	if _, err := h.Store.Dispatch(ctx, state.RequestLeave{ID: "leave-002", Input: attendance.LeaveInput{
		EmployeeID: "emp-001",
		Type:       attendance.LeaveAnnual,
		StartDate:  first.AddDate(0, 0, 20),
		EndDate:    first.AddDate(0, 0, 24),
		Reason:     "Vacation",
	}}); err != nil {
		return err
	}

	_, err := h.Store.Dispatch(ctx, state.ApplyAttendance{EmployeeID: "emp-002", Month: int(now.Month()), Year: now.Year()})
	return err
}

// companySnapshot is the organisation every scenario starts from.
func companySnapshot(now time.Time) state.Snapshot {
	snap := state.Empty()
	snap.SystemSettings.CompanyName = "Nile Trading Co."

	snap.Departments = []personnel.Department{
		{ID: "dept-eng", Name: "Engineering", Code: "ENG", Active: true},
		{ID: "dept-fin", Name: "Finance", Code: "FIN", Active: true},
		{ID: "dept-ops", Name: "Operations", Code: "OPS", Active: true},
	}
	snap.Positions = []personnel.Position{
		{ID: "pos-dev", Title: "Software Engineer", DepartmentID: "dept-eng", Code: "SE", BaseSalary: decimal.NewFromInt(18000)},
		{ID: "pos-acc", Title: "Accountant", DepartmentID: "dept-fin", Code: "AC", BaseSalary: decimal.NewFromInt(12000)},
		{ID: "pos-sup", Title: "Warehouse Supervisor", DepartmentID: "dept-ops", Code: "WS", BaseSalary: decimal.NewFromInt(9000)},
	}

	joined := now.AddDate(-2, 0, 0)
	emp := func(id, code, name, title string, dept generic.DepartmentID, salary, incentives int64) personnel.Employee {
		return personnel.Employee{
			ID:                generic.EmployeeID(id),
			Code:              code,
			Name:              name,
			Position:          personnel.JobPosition{Title: title, DepartmentID: dept},
			BasicSalary:       decimal.NewFromInt(salary),
			MonthlyIncentives: decimal.NewFromInt(incentives),
			Status:            personnel.StatusActive,
			JoinDate:          joined,
		}
	}

	snap.Employees = []personnel.Employee{
		emp("emp-001", "E001", "Omar Hassan", "Software Engineer", "dept-eng", 22000, 2000),
		emp("emp-002", "E002", "Mona Adel", "Software Engineer", "dept-eng", 18000, 1500),
		emp("emp-003", "E003", "Karim Fathy", "Accountant", "dept-fin", 12000, 1000),
		emp("emp-004", "E004", "Sara Nabil", "Warehouse Supervisor", "dept-ops", 9000, 500),
		emp("emp-005", "E005", "Youssef Samir", "Accountant", "dept-fin", 11000, 0),
	}
	snap.Employees[1].OvertimeHours = decimal.NewFromInt(6)
	snap.Employees[2].AbsenceDays = decimal.NewFromInt(1)
	snap.Employees[3].Status = personnel.StatusOnLeave
	snap.Employees[4].Status = personnel.StatusInactive
	return snap
}
