package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bonus-engine/engine"
	"github.com/warp/bonus-engine/source"
	"github.com/warp/bonus-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func consultant() engine.Employee {
	return engine.Employee{
		ID: 1, FirstName: "Ann", LastName: "Lee", JobCode: "C", Role: engine.RoleConsultant,
		BasePay: d("50000"), Hours: d("2080"), Utilization: d("100"),
		Evaluation: decimal.NewNullDecimal(d("5")), Sales: decimal.Zero,
		Bonus: d("5000"), Eligible: true,
	}
}

func director() engine.Employee {
	return engine.Employee{
		ID: 3, FirstName: "Cara", LastName: "Díaz", JobCode: "D", Role: engine.RoleDirector,
		BasePay: d("100000"), Hours: decimal.Zero, Utilization: decimal.Zero,
		Sales: d("2000000.50"), Bonus: d("150000"), Eligible: true,
	}
}

func result(id engine.RunID, employees ...engine.Employee) *engine.Result {
	started := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	ledger := engine.NewLedger()
	ledger.RecordTimesheet(99, 12)
	ledger.RecordMissing(2)
	return &engine.Result{
		Run: engine.RunInfo{
			ID:                 id,
			StartedAt:          started,
			FinishedAt:         started.Add(1500 * time.Millisecond),
			Employees:          len(employees),
			LedgerEntries:      ledger.Len(),
			SkippedStages:      []string{engine.SourceSales},
			AverageUtilization: d("50"),
			Threshold:          decimal.NewNullDecimal(d("100")),
			TotalPayout:        d("155000"),
		},
		Employees: employees,
		Ledger:    ledger,
	}
}

// =============================================================================
// RUN TESTS
// =============================================================================

func TestStore_EmptyDatabase(t *testing.T) {
	store := newStore(t)

	_, err := store.LatestRun(context.Background())
	assert.ErrorIs(t, err, engine.ErrNotFound)

	_, err = store.LoadEmployees(context.Background(), "run-1")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestStore_SaveRunRoundTrip(t *testing.T) {
	// GIVEN: A completed run with one Consultant and one Director
	// WHEN: Saving and loading it back
	// THEN: Metadata, decimals and absent values survive exactly

	ctx := context.Background()
	store := newStore(t)
	res := result("run-1", consultant(), director())

	require.NoError(t, store.SaveRun(ctx, res))

	run, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.RunID("run-1"), run.ID)
	assert.True(t, run.StartedAt.Equal(res.Run.StartedAt))
	assert.True(t, run.FinishedAt.Equal(res.Run.FinishedAt))
	assert.Equal(t, 2, run.Employees)
	assert.Equal(t, 2, run.LedgerEntries)
	assert.Equal(t, []string{engine.SourceSales}, run.SkippedStages)
	require.True(t, run.Threshold.Valid)
	assert.True(t, run.Threshold.Decimal.Equal(d("100")))
	assert.True(t, run.TotalPayout.Equal(d("155000")))

	emps, err := store.LoadEmployees(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, emps, 2)

	ann := emps[0]
	assert.Equal(t, engine.EmployeeID(1), ann.ID)
	assert.Equal(t, engine.RoleConsultant, ann.Role)
	require.True(t, ann.HasEvaluation())
	assert.True(t, ann.Evaluation.Decimal.Equal(d("5")))
	assert.True(t, ann.Eligible)

	cara := emps[1]
	assert.Equal(t, "Díaz", cara.LastName)
	assert.False(t, cara.HasEvaluation())
	assert.True(t, cara.Sales.Equal(d("2000000.50")))
	assert.True(t, cara.Bonus.Equal(d("150000")))
}

func TestStore_LedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.SaveRun(ctx, result("run-1", consultant())))

	ledger, err := store.LoadLedger(ctx, "run-1")
	require.NoError(t, err)

	entries := ledger.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, engine.CategoryTimesheet, entries[0].Category)
	assert.Equal(t, engine.EmployeeID(99), entries[0].EmployeeID)
	assert.Equal(t, 12, entries[0].Line)
	assert.Equal(t, []engine.EmployeeID{2}, ledger.MissingIDs())
}

func TestStore_SaveRunReplacesPrevious(t *testing.T) {
	// GIVEN: Two runs saved in sequence
	// WHEN: Loading
	// THEN: Only the latest run's dataset is readable, both runs are in history

	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SaveRun(ctx, result("run-1", consultant(), director())))
	second := result("run-2", director())
	second.Ledger = engine.NewLedger()
	require.NoError(t, store.SaveRun(ctx, second))

	emps, err := store.LoadEmployees(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, emps, 1)
	assert.Equal(t, engine.EmployeeID(3), emps[0].ID)

	_, err = store.LoadEmployees(ctx, "run-1")
	assert.ErrorIs(t, err, engine.ErrNotFound)

	ledger, err := store.LoadLedger(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, 0, ledger.Len())

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, engine.RunID("run-2"), runs[0].ID)
	assert.Equal(t, engine.RunID("run-1"), runs[1].ID)
}

func TestStore_SaveIntermediateReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	pre := consultant()
	pre.Bonus, pre.Eligible = decimal.Zero, false

	require.NoError(t, store.SaveIntermediate(ctx, engine.RunInfo{ID: "run-1"}, []engine.Employee{pre, director()}))
	require.NoError(t, store.SaveIntermediate(ctx, engine.RunInfo{ID: "run-2"}, []engine.Employee{pre}))

	emps, err := store.LoadIntermediate(ctx)
	require.NoError(t, err)
	require.Len(t, emps, 1)
	assert.Equal(t, "Ann", emps[0].FirstName)
	assert.True(t, emps[0].Bonus.IsZero())
}

func TestStore_PipelineSink(t *testing.T) {
	// GIVEN: A pipeline writing into the store
	// WHEN: Running over a two-line roster
	// THEN: The run is readable back

	ctx := context.Background()
	store := newStore(t)

	logger, _ := test.NewNullLogger()
	pipeline := engine.NewPipeline(engine.DefaultPolicy(), logger, store)
	res, err := pipeline.Run(ctx, source.Memory{
		engine.SourceRoster: "ID,FirstName,LastName,JobCode,BasePay\n1,Ann,Lee,C,50000\n2,Bob,Ray,D,90000\n",
	})
	require.NoError(t, err)

	run, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Run.ID, run.ID)

	emps, err := store.LoadEmployees(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, emps, 2)
}

func TestStore_FileDatabase(t *testing.T) {
	// GIVEN: A database file
	// WHEN: Reopening it
	// THEN: The saved run is still there

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bonus.db")

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveRun(ctx, result("run-1", consultant())))
	require.NoError(t, store.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	run, err := reopened.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.RunID("run-1"), run.ID)
}

func TestStore_RunPolicyRoundTrip(t *testing.T) {
	// GIVEN: A run computed with a non-default policy
	// WHEN: Loading the run back
	// THEN: The policy comes back with it; a run without one has none

	ctx := context.Background()
	store := newStore(t)

	policy := engine.DefaultPolicy()
	policy.MinEvaluation = d("4")
	policy.Director.Cap = d("100000")
	res := result("run-1", consultant())
	res.Run.Policy = &policy
	require.NoError(t, store.SaveRun(ctx, res))

	run, err := store.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, run.Policy)
	assert.True(t, run.Policy.MinEvaluation.Equal(d("4")))
	assert.True(t, run.Policy.Director.Cap.Equal(d("100000")))
	assert.True(t, run.Policy.Consultant.Rate.Equal(d("0.10")))
	assert.Equal(t, policy.Keywords, run.Policy.Keywords)

	require.NoError(t, store.SaveRun(ctx, result("run-2", consultant())))
	run, err = store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, run.Policy)
}

func TestStore_CorruptDecimalIsAnError(t *testing.T) {
	// GIVEN: A stored run whose decimal columns were damaged outside the store
	// WHEN: Loading it
	// THEN: Loading fails instead of reading zero

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bonus.db")

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveRun(ctx, result("run-1", consultant())))
	require.NoError(t, store.Close())

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`UPDATE employees SET base_pay = 'fifty thousand'`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	store, err = sqlite.New(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.LoadEmployees(ctx, "run-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_pay")

	raw, err = sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`UPDATE runs SET total_payout = ''`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	_, err = store.LatestRun(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total_payout")
}

func TestStore_AddsPolicyColumnToOldDatabase(t *testing.T) {
	// GIVEN: A database whose runs table predates the policy column
	// WHEN: Opening it
	// THEN: The column is added and runs can be saved

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bonus.db")

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		employees INTEGER NOT NULL,
		ledger_entries INTEGER NOT NULL,
		skipped_stages_json TEXT NOT NULL,
		average_utilization TEXT NOT NULL,
		threshold TEXT,
		total_payout TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	store, err := sqlite.New(path)
	require.NoError(t, err)
	defer store.Close()

	policy := engine.DefaultPolicy()
	res := result("run-1", consultant())
	res.Run.Policy = &policy
	require.NoError(t, store.SaveRun(ctx, res))

	run, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.NotNil(t, run.Policy)
}
