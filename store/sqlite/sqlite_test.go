package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/advance"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/personnel"
	"github.com/warp/payroll-engine/state"
	"github.com/warp/payroll-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoad_EmptyDatabase(t *testing.T) {
	s := newStore(t)

	docs, err := s.Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSave_ReplacesDocuments(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Save(ctx, state.Documents{"employees": []byte(`[]`), "settings": []byte(`{}`)}))
	require.NoError(t, s.Save(ctx, state.Documents{"employees": []byte(`[{"id":"e1"}]`)}))

	docs, err := s.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"e1"}]`, string(docs["employees"]))
	assert.JSONEq(t, `{}`, string(docs["settings"]))

	at, ok, err := s.UpdatedAt(ctx, "employees")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now(), at, time.Minute)

	_, ok, err = s.UpdatedAt(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateStore_SurvivesRestart(t *testing.T) {
	// GIVEN: a database file and a store that requested an advance
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "payroll.db")
	clock := generic.NewFixedClock(time.Date(2025, time.May, 1, 8, 0, 0, 0, time.UTC))

	db, err := sqlite.New(path)
	require.NoError(t, err)
	st, err := state.New(ctx, db, state.WithClock(clock))
	require.NoError(t, err)

	_, err = st.Dispatch(ctx, state.AddEmployee{Employee: personnel.Employee{
		ID: "emp-1", Name: "Sara", BasicSalary: decimal.NewFromInt(8000), Status: personnel.StatusActive,
	}})
	require.NoError(t, err)
	_, err = st.Dispatch(ctx, state.RequestAdvance{ID: "adv-1", Input: advance.RequestInput{
		EmployeeID: "emp-1", Amount: decimal.NewFromInt(1000), InstallmentsCount: 3,
	}})
	require.NoError(t, err)
	require.NoError(t, st.Close(ctx))
	require.NoError(t, db.Close())

	// WHEN: reopened
	db, err = sqlite.New(path)
	require.NoError(t, err)
	defer db.Close()
	reopened, err := state.New(ctx, db, state.WithClock(clock))
	require.NoError(t, err)

	// THEN: the advance comes back with its schedule
	snap := reopened.Snapshot()
	adv, ok := snap.Advance("adv-1")
	require.True(t, ok)
	assert.Equal(t, "1000", adv.Amount.String())
	assert.Len(t, snap.InstallmentsOf("adv-1"), 3)
	assert.NoError(t, advance.CheckInvariant(adv, snap.InstallmentsOf("adv-1")))
}
