/*
Package state owns the application snapshot and the transitions on it.

PURPOSE:
  One authoritative in-memory snapshot holds every entity: employees,
  departments, positions, attendance and leave, advances and their
  installments, payroll records, notifications and settings. Changes are expressed as Intents and applied
  by a single pure function, Apply. The Store serializes Apply calls and
  mirrors every accepted snapshot to a Persister.

KEY CONCEPTS:
  Snapshot: plain data, JSON-serializable, one document per top-level key.
  Intent:   closed set of transition requests (intent.go).
  Apply:    Snapshot x Intent -> Snapshot, all or nothing (reducer.go).
  Store:    mutex-guarded owner of the current snapshot (store.go).

ATOMICITY:
  Apply works on a copy. On any error the copy is dropped and the caller's
  snapshot is returned as it was, so no transition ever partially applies.

LOADING:
  A persisted snapshot may be partial. Missing keys load as empty
  collections, missing settings load as the defaults, installments whose
  advance is gone are dropped and expired notifications are pruned.

SEE ALSO:
  - store/memory, store/sqlite: Persister implementations
  - api/handlers.go: the HTTP adapter dispatching Intents
*/
package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/warp/payroll-engine/advance"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/notify"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/personnel"
)

// =============================================================================
// SYSTEM SETTINGS
// =============================================================================

// SystemSettings is the non-payroll application configuration.
type SystemSettings struct {
	CompanyName             string `json:"companyName"`
	Currency                string `json:"currency"`
	DateFormat              string `json:"dateFormat"`
	AutoBackupIntervalHours int    `json:"autoBackupInterval"`
	Theme                   string `json:"theme"`
	Language                string `json:"language"`

	// WorkingHours drives attendance status and overtime.
	WorkingHours attendance.WorkingHours `json:"workingHours"`
}

func DefaultSystemSettings() SystemSettings {
	return SystemSettings{
		CompanyName:             "My Company",
		Currency:                "EGP",
		DateFormat:              "dd/MM/yyyy",
		AutoBackupIntervalHours: 24,
		Theme:                   "light",
		Language:                "ar",
		WorkingHours:            attendance.DefaultWorkingHours(),
	}
}

func (s SystemSettings) Validate() error {
	if s.Currency == "" {
		return &generic.InputError{Field: "currency", Reason: "is required"}
	}
	if s.AutoBackupIntervalHours < 0 {
		return &generic.InputError{Field: "autoBackupInterval", Reason: "must not be negative"}
	}
	return s.WorkingHours.Validate()
}

// =============================================================================
// SNAPSHOT
// =============================================================================

type Snapshot struct {
	Employees           []personnel.Employee   `json:"employees"`
	Departments         []personnel.Department `json:"departments"`
	Positions           []personnel.Position   `json:"positions"`
	AttendanceRecords   []attendance.Record    `json:"attendanceRecords"`
	LeaveRequests       []attendance.Leave     `json:"leaveRequests"`
	Advances            []advance.Advance      `json:"advances"`
	AdvanceInstallments []advance.Installment  `json:"advanceInstallments"`
	PayrollRecords      []payroll.Record       `json:"payrollRecords"`
	Notifications       []notify.Notification  `json:"notifications"`
	Settings            payroll.Settings       `json:"settings"`
	SystemSettings      SystemSettings         `json:"systemSettings"`
}

// Empty is the snapshot of a fresh installation.
func Empty() Snapshot {
	return Snapshot{
		Employees:           []personnel.Employee{},
		Departments:         []personnel.Department{},
		Positions:           []personnel.Position{},
		AttendanceRecords:   []attendance.Record{},
		LeaveRequests:       []attendance.Leave{},
		Advances:            []advance.Advance{},
		AdvanceInstallments: []advance.Installment{},
		PayrollRecords:      []payroll.Record{},
		Notifications:       []notify.Notification{},
		Settings:            payroll.DefaultSettings(),
		SystemSettings:      DefaultSystemSettings(),
	}
}

// Clone copies every collection so the result can be changed freely.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Employees:           append([]personnel.Employee{}, s.Employees...),
		Departments:         append([]personnel.Department{}, s.Departments...),
		Positions:           append([]personnel.Position{}, s.Positions...),
		AttendanceRecords:   append([]attendance.Record{}, s.AttendanceRecords...),
		LeaveRequests:       append([]attendance.Leave{}, s.LeaveRequests...),
		Advances:            append([]advance.Advance{}, s.Advances...),
		AdvanceInstallments: append([]advance.Installment{}, s.AdvanceInstallments...),
		PayrollRecords:      append([]payroll.Record{}, s.PayrollRecords...),
		Notifications:       append([]notify.Notification{}, s.Notifications...),
		Settings:            s.Settings.Clone(),
		SystemSettings:      s.SystemSettings,
	}
}

// Normalize fills what a partial snapshot left out and drops what can no
// longer be presented.
func (s Snapshot) Normalize(now time.Time) Snapshot {
	out := s.Clone()
	if settingsMissing(s.Settings) {
		out.Settings = payroll.DefaultSettings()
	}
	if s.SystemSettings == (SystemSettings{}) {
		out.SystemSettings = DefaultSystemSettings()
	}
	if out.SystemSettings.WorkingHours == (attendance.WorkingHours{}) {
		out.SystemSettings.WorkingHours = attendance.DefaultWorkingHours()
	}

	advances := make(map[generic.AdvanceID]bool, len(out.Advances))
	for _, a := range out.Advances {
		advances[a.ID] = true
	}
	kept := out.AdvanceInstallments[:0]
	for _, i := range out.AdvanceInstallments {
		if advances[i.AdvanceID] {
			kept = append(kept, i)
		}
	}
	out.AdvanceInstallments = kept
	out.Notifications = notify.Prune(out.Notifications, now)
	return out
}

func settingsMissing(s payroll.Settings) bool {
	return len(s.TaxBrackets) == 0 && s.Rates.WorkingDaysPerMonth.IsZero() && s.Rates.WorkingHoursPerDay.IsZero()
}

// =============================================================================
// LOOKUPS
// =============================================================================

func (s Snapshot) Employee(id generic.EmployeeID) (personnel.Employee, bool) {
	for _, e := range s.Employees {
		if e.ID == id {
			return e, true
		}
	}
	return personnel.Employee{}, false
}

func (s Snapshot) Advance(id generic.AdvanceID) (advance.Advance, bool) {
	for _, a := range s.Advances {
		if a.ID == id {
			return a, true
		}
	}
	return advance.Advance{}, false
}

func (s Snapshot) AttendanceRecord(id generic.AttendanceID) (attendance.Record, bool) {
	for _, r := range s.AttendanceRecords {
		if r.ID == id {
			return r, true
		}
	}
	return attendance.Record{}, false
}

func (s Snapshot) Leave(id generic.LeaveID) (attendance.Leave, bool) {
	for _, l := range s.LeaveRequests {
		if l.ID == id {
			return l, true
		}
	}
	return attendance.Leave{}, false
}

func (s Snapshot) PayrollRecord(id generic.PayrollRecordID) (payroll.Record, bool) {
	for _, r := range s.PayrollRecords {
		if r.ID == id {
			return r, true
		}
	}
	return payroll.Record{}, false
}

// InstallmentsOf returns the schedule of one advance.
func (s Snapshot) InstallmentsOf(id generic.AdvanceID) []advance.Installment {
	return advance.Of(id, s.AdvanceInstallments)
}

// =============================================================================
// DOCUMENTS - The persisted form
// =============================================================================

// Documents is a snapshot split into one JSON document per top-level key.
type Documents map[string][]byte

const (
	KeyEmployees           = "employees"
	KeyDepartments         = "departments"
	KeyPositions           = "positions"
	KeyAttendanceRecords   = "attendanceRecords"
	KeyLeaveRequests       = "leaveRequests"
	KeyAdvances            = "advances"
	KeyAdvanceInstallments = "advanceInstallments"
	KeyPayrollRecords      = "payrollRecords"
	KeyNotifications       = "notifications"
	KeySettings            = "settings"
	KeySystemSettings      = "systemSettings"
)

func (s *Snapshot) fields() map[string]any {
	return map[string]any{
		KeyEmployees:           &s.Employees,
		KeyDepartments:         &s.Departments,
		KeyPositions:           &s.Positions,
		KeyAttendanceRecords:   &s.AttendanceRecords,
		KeyLeaveRequests:       &s.LeaveRequests,
		KeyAdvances:            &s.Advances,
		KeyAdvanceInstallments: &s.AdvanceInstallments,
		KeyPayrollRecords:      &s.PayrollRecords,
		KeyNotifications:       &s.Notifications,
		KeySettings:            &s.Settings,
		KeySystemSettings:      &s.SystemSettings,
	}
}

// Documents encodes every key of s.
func (s Snapshot) Documents() (Documents, error) {
	docs := make(Documents)
	for key, v := range s.fields() {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: encode %s: %v", generic.ErrPersistence, key, err)
		}
		docs[key] = data
	}
	return docs, nil
}

// FromDocuments decodes whatever keys docs holds and normalizes the result.
// Unknown keys are ignored.
func FromDocuments(docs Documents, now time.Time) (Snapshot, error) {
	var s Snapshot
	for key, v := range s.fields() {
		data, ok := docs[key]
		if !ok || len(data) == 0 || string(data) == "null" {
			continue
		}
		if err := json.Unmarshal(data, v); err != nil {
			return Snapshot{}, fmt.Errorf("%w: decode %s: %v", generic.ErrPersistence, key, err)
		}
	}
	return s.Normalize(now), nil
}
