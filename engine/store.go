/*
store.go - Persistence interfaces for run results

PURPOSE:
  Defines the boundary between the pipeline and its outputs. A Sink receives
  the datasets of a run; a Store can also be queried back by the read-only
  query layer.

REWRITE CONTRACT:
  SaveRun replaces the previously stored employee set and error ledger.
  Results of two runs are never merged. Run metadata is kept as history.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - engine/store/memory.go: In-memory for testing
  - report/files.go: CSV/text files (Sink only)

SEE ALSO:
  - pipeline.go: Calls the sinks after the intermediate and final stages
*/
package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RunInfo is the metadata of one pipeline run.
type RunInfo struct {
	ID            RunID
	StartedAt     time.Time
	FinishedAt    time.Time
	Employees     int
	LedgerEntries int
	SkippedStages []string

	AverageUtilization decimal.Decimal
	Threshold          decimal.NullDecimal
	TotalPayout        decimal.Decimal

	// Policy the run was computed with. nil when unknown.
	Policy *Policy
}

// Sink receives the datasets produced by a run.
type Sink interface {
	// SaveIntermediate persists the enriched dataset before the bonus pass.
	SaveIntermediate(ctx context.Context, run RunInfo, employees []Employee) error

	// SaveRun persists the final dataset and the error ledger.
	SaveRun(ctx context.Context, result *Result) error
}

// Store is a Sink that can be read back.
type Store interface {
	Sink

	// LatestRun returns the most recent completed run, or ErrNotFound.
	LatestRun(ctx context.Context) (RunInfo, error)

	// LoadEmployees returns the final dataset of a run, ordered by identity.
	LoadEmployees(ctx context.Context, runID RunID) ([]Employee, error)

	// LoadLedger rebuilds the error ledger of a run.
	LoadLedger(ctx context.Context, runID RunID) (*Ledger, error)
}
