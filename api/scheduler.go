/*
scheduler.go - Periodic maintenance scheduler

PURPOSE:
  Periodically flags overdue advance installments and prunes expired
  notifications. Both run as ordinary intents through Store.Dispatch, so a
  maintenance pass is ordered with user requests like any other transition.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on Start
  - Keeps the result of the last pass for the UI (GET /api/maintenance/last)
  - RunNow runs a pass synchronously (POST /api/maintenance/run, tests)

CONFIGURATION:
  - Interval: How often to run (default: 1 hour, MAINTENANCE_INTERVAL)
  - Enabled:  Whether the ticker is started (default: true)

USAGE:
  scheduler := NewMaintenanceScheduler(store, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - state/reducer.go: MarkOverdueInstallments, PruneNotifications
  - notify/notification.go: retention window
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/payroll-engine/advance"
	"github.com/warp/payroll-engine/state"
	"go.uber.org/zap"
)

// MaintenanceRun is the outcome of one maintenance pass.
type MaintenanceRun struct {
	StartedAt time.Time `json:"startedAt"`
	Duration  string    `json:"duration"`
	Overdue   int       `json:"overdue"` // installments newly flagged overdue
	Pruned    int       `json:"pruned"`  // notifications past retention
	Error     string    `json:"error,omitempty"`
}

// MaintenanceScheduler runs maintenance passes on a ticker.
type MaintenanceScheduler struct {
	Store    *state.Store
	Interval time.Duration
	Enabled  bool

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	lastMu  sync.Mutex
	last    MaintenanceRun
	hasLast bool
}

// NewMaintenanceScheduler creates a new scheduler. The logger defaults to
// the global zap logger.
func NewMaintenanceScheduler(store *state.Store, logger ...*zap.Logger) *MaintenanceScheduler {
	l := zap.L().Named("maintenance")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("maintenance")
	}
	return &MaintenanceScheduler{
		Store:    store,
		Interval: time.Hour,
		Enabled:  true,
		logger:   l,
	}
}

// Start begins the scheduler.
func (ms *MaintenanceScheduler) Start() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if !ms.Enabled {
		ms.logger.Info("scheduler disabled, not starting")
		return
	}
	if ms.ticker != nil {
		return
	}

	ms.ticker = time.NewTicker(ms.Interval)
	ms.stop = make(chan struct{})
	ms.wg.Add(1)

	go ms.run(ms.ticker, ms.stop)

	ms.logger.Info("scheduler started", zap.Duration("interval", ms.Interval))
}

// Stop stops the scheduler and waits for a running pass to finish.
func (ms *MaintenanceScheduler) Stop() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.ticker == nil {
		return
	}
	ms.ticker.Stop()
	close(ms.stop)
	ms.wg.Wait()
	ms.ticker = nil
	ms.logger.Info("scheduler stopped")
}

func (ms *MaintenanceScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer ms.wg.Done()

	// Run immediately on start
	ms.RunNow(context.Background())

	for {
		select {
		case <-ticker.C:
			ms.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow runs one maintenance pass and records it as the last run.
func (ms *MaintenanceScheduler) RunNow(ctx context.Context) (MaintenanceRun, error) {
	now := ms.Store.Clock().Now()
	run := MaintenanceRun{StartedAt: now}
	started := time.Now()

	before := ms.Store.Snapshot()
	for _, n := range before.Notifications {
		if n.Expired(now) {
			run.Pruned++
		}
	}

	after, err := ms.Store.Dispatch(ctx, state.MarkOverdueInstallments{})
	if err == nil {
		run.Overdue = countOverdue(after) - countOverdue(before)
		_, err = ms.Store.Dispatch(ctx, state.PruneNotifications{})
	}
	run.Duration = time.Since(started).String()

	if err != nil {
		run.Error = err.Error()
		ms.logger.Error("maintenance failed", zap.Error(err))
	} else if run.Overdue > 0 || run.Pruned > 0 {
		ms.logger.Info("maintenance completed",
			zap.Int("overdue", run.Overdue), zap.Int("pruned", run.Pruned))
	}

	ms.lastMu.Lock()
	ms.last, ms.hasLast = run, true
	ms.lastMu.Unlock()
	return run, err
}

// LastRun returns the most recent pass, if any ran yet.
func (ms *MaintenanceScheduler) LastRun() (MaintenanceRun, bool) {
	ms.lastMu.Lock()
	defer ms.lastMu.Unlock()
	return ms.last, ms.hasLast
}

func countOverdue(s state.Snapshot) int {
	n := 0
	for _, inst := range s.AdvanceInstallments {
		if inst.Status == advance.InstallmentOverdue {
			n++
		}
	}
	return n
}
