/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend (CORS_ORIGINS)

ROUTE GROUPS:
  /api/employees/*      Employee management
  /api/departments/*    Departments
  /api/positions/*      Positions
  /api/payroll/*        Payroll generation and lifecycle
  /api/advances/*       Advances and their schedules
  /api/installments/*   Installment payments
  /api/attendance/*     Daily attendance and monthly summaries
  /api/leaves/*         Leave requests
  /api/notifications/*  Notification center
  /api/settings/*       Payroll and system settings
  /api/backup/*         Snapshot export and restore
  /api/maintenance/*    Overdue flagging and notification pruning
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public and the
  X-Actor-ID header is trusted as given.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. allowedOrigins
// defaults to every origin when empty.
func NewRouter(h *Handler, allowedOrigins ...string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ActorHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Put("/", h.ImportEmployees)
			r.Get("/{id}", h.GetEmployee)
			r.Put("/{id}", h.UpdateEmployee)
			r.Delete("/{id}", h.DeleteEmployee)
		})

		// Organisation routes
		r.Route("/departments", func(r chi.Router) {
			r.Get("/", h.ListDepartments)
			r.Post("/", h.CreateDepartment)
			r.Put("/", h.ImportDepartments)
			r.Put("/{id}", h.UpdateDepartment)
		})
		r.Route("/positions", func(r chi.Router) {
			r.Get("/", h.ListPositions)
			r.Post("/", h.CreatePosition)
			r.Put("/", h.ImportPositions)
			r.Put("/{id}", h.UpdatePosition)
		})

		// Payroll routes
		r.Route("/payroll", func(r chi.Router) {
			r.Get("/", h.ListPayroll)
			r.Get("/summary", h.PayrollSummary)
			r.Post("/generate", h.GeneratePayroll)
			r.Post("/records", h.AddPayrollRecord)
			r.Get("/{id}", h.GetPayrollRecord)
			r.Post("/{id}/process", h.ProcessPayroll)
			r.Post("/{id}/pay", h.MarkPayrollPaid)
		})

		// Advance routes
		r.Route("/advances", func(r chi.Router) {
			r.Get("/", h.ListAdvances)
			r.Post("/", h.RequestAdvance)
			r.Post("/overdue", h.MarkOverdue)
			r.Get("/{id}", h.GetAdvance)
			r.Delete("/{id}", h.DeleteAdvance)
			r.Post("/{id}/approve", h.ApproveAdvance)
			r.Post("/{id}/reject", h.RejectAdvance)
			r.Get("/{id}/installments", h.ListInstallments)
		})
		r.Post("/installments/{id}/pay", h.PayInstallment)

		// Attendance and leave routes
		r.Route("/attendance", func(r chi.Router) {
			r.Get("/", h.ListAttendance)
			r.Post("/", h.RecordAttendance)
			r.Get("/summary", h.AttendanceSummary)
			r.Post("/apply", h.ApplyAttendance)
			r.Put("/{id}", h.UpdateAttendance)
		})
		r.Route("/leaves", func(r chi.Router) {
			r.Get("/", h.ListLeaves)
			r.Post("/", h.RequestLeave)
			r.Post("/{id}/approve", h.ApproveLeave)
			r.Post("/{id}/reject", h.RejectLeave)
		})

		// Notification routes
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Post("/", h.CreateNotification)
			r.Delete("/", h.ClearNotifications)
			r.Post("/read-all", h.MarkAllNotificationsRead)
			r.Post("/{id}/read", h.MarkNotificationRead)
		})

		// Settings routes
		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.GetSettings)
			r.Put("/", h.UpdateSettings)
			r.Get("/export", h.ExportSettings)
			r.Get("/system", h.GetSystemSettings)
			r.Put("/system", h.UpdateSystemSettings)
		})

		// Backup routes
		r.Route("/backup", func(r chi.Router) {
			r.Get("/", h.ExportBackup)
			r.Post("/restore", h.RestoreBackup)
		})

		// Maintenance routes
		r.Route("/maintenance", func(r chi.Router) {
			r.Post("/run", h.RunMaintenance)
			r.Get("/last", h.LastMaintenance)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetData)
		})
	})

	return r
}
