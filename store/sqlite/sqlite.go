/*
Package sqlite provides a SQLite-backed implementation of engine.Store.

PURPOSE:
  Persists the outcome of each pipeline run so the query server can answer
  without re-reading the source files. In production, the same patterns
  apply to PostgreSQL with minor SQL dialect differences.

REWRITE CONTRACT:
  The employee result set, the intermediate dataset and the error ledger
  always describe exactly one run: each save deletes the previous rows and
  inserts the new ones in a single transaction. Results of two runs are
  never merged. Only the runs table keeps history.

KEY TABLES:
  runs:                   One row per completed run (history)
  employees:              Final dataset of the latest run
  intermediate_employees: Pre-bonus dataset of the latest run
  ledger_entries:         Error ledger of the latest run

NUMERIC STORAGE:
  Decimals are stored as TEXT to keep exact values. An absent evaluation or
  threshold is NULL. A stored value that no longer parses is an error, never
  a silent zero.

POLICY:
  runs.policy_json keeps the bonus policy of each run in factory JSON form so
  the query server simulates with the rules the run was computed with.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened in WAL mode so the
  query server can read while a batch run writes.

USAGE:
  store, err := sqlite.New("./bonus.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  pipeline := engine.NewPipeline(policy, logger, store)

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/engine"
	"github.com/warp/bonus-engine/factory"
)

// Store implements engine.Store using SQLite.
type Store struct {
	db       *sql.DB
	mu       sync.RWMutex
	policies *factory.PolicyFactory
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, policies: factory.NewPolicyFactory()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		employees INTEGER NOT NULL,
		ledger_entries INTEGER NOT NULL,
		skipped_stages_json TEXT NOT NULL,
		average_utilization TEXT NOT NULL,
		threshold TEXT,
		total_payout TEXT NOT NULL,
		policy_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES runs(id),
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		job_code TEXT NOT NULL,
		role TEXT NOT NULL,
		base_pay TEXT NOT NULL,
		hours TEXT NOT NULL,
		utilization TEXT NOT NULL,
		evaluation TEXT,
		sales TEXT NOT NULL,
		bonus TEXT NOT NULL,
		eligible INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_job_code ON employees(job_code);

	-- written before the bonus pass, so no run row exists yet
	CREATE TABLE IF NOT EXISTS intermediate_employees (
		id INTEGER PRIMARY KEY,
		run_id TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		job_code TEXT NOT NULL,
		role TEXT NOT NULL,
		base_pay TEXT NOT NULL,
		hours TEXT NOT NULL,
		utilization TEXT NOT NULL,
		evaluation TEXT,
		sales TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ledger_entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		category TEXT NOT NULL,
		employee_id INTEGER NOT NULL,
		line INTEGER NOT NULL,
		source TEXT NOT NULL,
		reason TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_category ON ledger_entries(category, employee_id, line);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	// databases created before policies were kept
	return s.ensureColumn("runs", "policy_json", "TEXT")
}

func (s *Store) ensureColumn(table, column, decl string) error {
	rows, err := s.db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_, err = s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SINK (engine.Sink interface)
// =============================================================================

// SaveIntermediate replaces the stored pre-bonus dataset.
func (s *Store) SaveIntermediate(ctx context.Context, run engine.RunInfo, employees []engine.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM intermediate_employees"); err != nil {
		return fmt.Errorf("failed to clear intermediate dataset: %w", err)
	}

	query := `
		INSERT INTO intermediate_employees
		(id, run_id, first_name, last_name, job_code, role, base_pay, hours, utilization, evaluation, sales)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, e := range employees {
		_, err := sqlTx.ExecContext(ctx, query,
			int64(e.ID), run.ID, e.FirstName, e.LastName, e.JobCode, string(e.Role),
			e.BasePay.String(), e.Hours.String(), e.Utilization.String(),
			nullDecimal(e.Evaluation), e.Sales.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to save intermediate employee %d: %w", e.ID, err)
		}
	}

	return sqlTx.Commit()
}

// SaveRun records the run and replaces the employee set and the ledger.
func (s *Store) SaveRun(ctx context.Context, result *engine.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, table := range []string{"employees", "ledger_entries"} {
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := s.insertRun(ctx, sqlTx, result.Run); err != nil {
		return err
	}
	for _, e := range result.Employees {
		if err := insertEmployee(ctx, sqlTx, result.Run.ID, e); err != nil {
			return err
		}
	}
	for _, entry := range result.Ledger.Entries() {
		if err := insertEntry(ctx, sqlTx, result.Run.ID, entry); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

func (s *Store) insertRun(ctx context.Context, db execer, run engine.RunInfo) error {
	skipped, err := json.Marshal(append([]string{}, run.SkippedStages...))
	if err != nil {
		return err
	}
	var policy sql.NullString
	if run.Policy != nil {
		data, err := json.Marshal(s.policies.ToJSON(*run.Policy))
		if err != nil {
			return fmt.Errorf("failed to encode policy: %w", err)
		}
		policy = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO runs
		(id, started_at, finished_at, employees, ledger_entries, skipped_stages_json,
		 average_utilization, threshold, total_payout, policy_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.ExecContext(ctx, query,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Employees,
		run.LedgerEntries,
		string(skipped),
		run.AverageUtilization.String(),
		nullDecimal(run.Threshold),
		run.TotalPayout.String(),
		policy,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func insertEmployee(ctx context.Context, db execer, runID engine.RunID, e engine.Employee) error {
	query := `
		INSERT INTO employees
		(id, run_id, first_name, last_name, job_code, role, base_pay, hours, utilization,
		 evaluation, sales, bonus, eligible)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		int64(e.ID), runID, e.FirstName, e.LastName, e.JobCode, string(e.Role),
		e.BasePay.String(), e.Hours.String(), e.Utilization.String(),
		nullDecimal(e.Evaluation), e.Sales.String(), e.Bonus.String(), e.Eligible,
	)
	if err != nil {
		return fmt.Errorf("failed to save employee %d: %w", e.ID, err)
	}
	return nil
}

func insertEntry(ctx context.Context, db execer, runID engine.RunID, e engine.Entry) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO ledger_entries (run_id, category, employee_id, line, source, reason)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, string(e.Category), int64(e.EmployeeID), e.Line, e.Source, e.Reason)
	if err != nil {
		return fmt.Errorf("failed to save ledger entry: %w", err)
	}
	return nil
}

// =============================================================================
// QUERIES (engine.Store interface)
// =============================================================================

const runColumns = `id, started_at, finished_at, employees, ledger_entries, skipped_stages_json,
	average_utilization, threshold, total_payout, policy_json`

// LatestRun returns the most recently saved run.
func (s *Store) LatestRun(ctx context.Context) (engine.RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.latestRun(ctx)
}

func (s *Store) latestRun(ctx context.Context) (engine.RunInfo, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY rowid DESC LIMIT 1")
	run, err := s.scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.RunInfo{}, engine.ErrNotFound
	}
	return run, err
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]engine.RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []engine.RunInfo
	for rows.Next() {
		run, err := s.scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LoadEmployees returns the final dataset of runID, which must be the latest
// run.
func (s *Store) LoadEmployees(ctx context.Context, runID engine.RunID) ([]engine.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkLatest(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, job_code, role, base_pay, hours, utilization,
		       evaluation, sales, bonus, eligible
		FROM employees WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []engine.Employee
	for rows.Next() {
		var (
			e                                    engine.Employee
			id                                   int64
			role, basePay, hours, util, sales, b string
			evaluation                           sql.NullString
		)
		if err := rows.Scan(&id, &e.FirstName, &e.LastName, &e.JobCode, &role,
			&basePay, &hours, &util, &evaluation, &sales, &b, &e.Eligible); err != nil {
			return nil, err
		}
		e.ID = engine.EmployeeID(id)
		e.Role = engine.Role(role)
		var p decimalParser
		e.BasePay = p.parse("base_pay", basePay)
		e.Hours = p.parse("hours", hours)
		e.Utilization = p.parse("utilization", util)
		e.Evaluation = p.parseNull("evaluation", evaluation)
		e.Sales = p.parse("sales", sales)
		e.Bonus = p.parse("bonus", b)
		if p.err != nil {
			return nil, fmt.Errorf("employee %d: %w", id, p.err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// LoadIntermediate returns the stored pre-bonus dataset.
func (s *Store) LoadIntermediate(ctx context.Context) ([]engine.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, job_code, role, base_pay, hours, utilization, evaluation, sales
		FROM intermediate_employees ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []engine.Employee
	for rows.Next() {
		var (
			e                                 engine.Employee
			id                                int64
			role, basePay, hours, util, sales string
			evaluation                        sql.NullString
		)
		if err := rows.Scan(&id, &e.FirstName, &e.LastName, &e.JobCode, &role,
			&basePay, &hours, &util, &evaluation, &sales); err != nil {
			return nil, err
		}
		e.ID = engine.EmployeeID(id)
		e.Role = engine.Role(role)
		var p decimalParser
		e.BasePay = p.parse("base_pay", basePay)
		e.Hours = p.parse("hours", hours)
		e.Utilization = p.parse("utilization", util)
		e.Evaluation = p.parseNull("evaluation", evaluation)
		e.Sales = p.parse("sales", sales)
		e.Bonus = decimal.Zero
		if p.err != nil {
			return nil, fmt.Errorf("intermediate employee %d: %w", id, p.err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// LoadLedger rebuilds the error ledger of runID, which must be the latest run.
func (s *Store) LoadLedger(ctx context.Context, runID engine.RunID) (*engine.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkLatest(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, employee_id, line, source, reason
		FROM ledger_entries WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ledger := engine.NewLedger()
	for rows.Next() {
		var (
			e          engine.Entry
			category   string
			employeeID int64
		)
		if err := rows.Scan(&category, &employeeID, &e.Line, &e.Source, &e.Reason); err != nil {
			return nil, err
		}
		e.Category = engine.Category(category)
		e.EmployeeID = engine.EmployeeID(employeeID)
		ledger.Append(e)
	}
	return ledger, rows.Err()
}

func (s *Store) checkLatest(ctx context.Context, runID engine.RunID) error {
	latest, err := s.latestRun(ctx)
	if err != nil {
		return err
	}
	if latest.ID != runID {
		return fmt.Errorf("run %s superseded by %s: %w", runID, latest.ID, engine.ErrNotFound)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanRun(row scanner) (engine.RunInfo, error) {
	var (
		run                            engine.RunInfo
		id, started, finished, skipped string
		avgUtil, payout                string
		threshold, policy              sql.NullString
	)
	err := row.Scan(&id, &started, &finished, &run.Employees, &run.LedgerEntries, &skipped,
		&avgUtil, &threshold, &payout, &policy)
	if err != nil {
		return engine.RunInfo{}, err
	}
	run.ID = engine.RunID(id)
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return engine.RunInfo{}, fmt.Errorf("run %s: invalid started_at: %w", id, err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return engine.RunInfo{}, fmt.Errorf("run %s: invalid finished_at: %w", id, err)
	}
	if err := json.Unmarshal([]byte(skipped), &run.SkippedStages); err != nil {
		return engine.RunInfo{}, fmt.Errorf("failed to parse skipped stages: %w", err)
	}

	var p decimalParser
	run.AverageUtilization = p.parse("average_utilization", avgUtil)
	run.Threshold = p.parseNull("threshold", threshold)
	run.TotalPayout = p.parse("total_payout", payout)
	if p.err != nil {
		return engine.RunInfo{}, fmt.Errorf("run %s: %w", id, p.err)
	}

	if policy.Valid {
		pol, err := s.policies.ParsePolicy(policy.String)
		if err != nil {
			return engine.RunInfo{}, fmt.Errorf("run %s: %w", id, err)
		}
		run.Policy = &pol
	}
	return run, nil
}

func nullDecimal(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}

// decimalParser parses stored decimal columns and keeps the first failure.
type decimalParser struct {
	err error
}

func (p *decimalParser) parse(column, s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("invalid %s %q: %w", column, s, err)
		}
		return decimal.Zero
	}
	return d
}

func (p *decimalParser) parseNull(column string, s sql.NullString) decimal.NullDecimal {
	if !s.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(p.parse(column, s.String))
}

var _ engine.Store = (*Store)(nil)
