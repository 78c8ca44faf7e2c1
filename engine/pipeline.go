/*
pipeline.go - Ordered stage pipeline for one annual bonus pass

PURPOSE:
  Owns the mutable roster for the duration of a run and executes the stages
  strictly in sequence. Each stage fully consumes its source before the next
  one starts; nothing runs concurrently.

STAGE ORDER:
  1. roster       - identity universe, duplicates, sequence gaps
  2. timesheet    - hours per employee
  3. evaluation   - evaluation score per employee
  4. sales        - sales per Director
  5. utilization  - utilization percentage + summary
  6. intermediate - Sink.SaveIntermediate
  7. bonus        - eligibility + capped amounts
  8. final        - Sink.SaveRun

FAILURE POLICY:
  A source that cannot be opened degrades its stage to empty input and the
  run continues. Record-level problems go to the Ledger. Only sink failures
  are returned, after every sink has been tried.

SEE ALSO:
  - source/: Sources implementation over a data directory
  - report/: File sink
  - store/sqlite/: SQLite sink
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Sources opens the named input feeds (SourceRoster, SourceTimesheet,
// SourceEvaluation, SourceSales). A source that does not exist returns an
// error matching ErrMissingFile.
type Sources interface {
	Open(name string) (io.ReadCloser, error)
}

// Result is everything a run produced.
type Result struct {
	Run         RunInfo
	Employees   []Employee
	Ledger      *Ledger
	Utilization UtilizationSummary
	Eligibility EligibilityOutcome

	Roster      RosterStats
	Timesheets  FeedStats
	Evaluations FeedStats
	Sales       FeedStats
}

// Pipeline runs the bonus pass. The zero value is not usable; use NewPipeline.
type Pipeline struct {
	Policy Policy
	Sinks  []Sink
	Logger logrus.FieldLogger
	Now    func() time.Time
}

func NewPipeline(p Policy, log logrus.FieldLogger, sinks ...Sink) *Pipeline {
	return &Pipeline{
		Policy: p,
		Sinks:  sinks,
		Logger: log,
		Now:    time.Now,
	}
}

// Run executes all stages against src. A fresh roster and ledger are built on
// every call.
func (p *Pipeline) Run(ctx context.Context, src Sources) (*Result, error) {
	policy := p.Policy
	res := &Result{
		Run: RunInfo{
			ID:        RunID(uuid.NewString()),
			StartedAt: p.Now(),
			Policy:    &policy,
		},
		Ledger: NewLedger(),
	}
	log := p.Logger.WithField("run_id", res.Run.ID)
	log.Info("starting performance metrics and bonus computation")

	roster := NewRoster()
	err := p.stage(ctx, src, SourceRoster, res, log, func(r io.Reader) error {
		loaded, stats, err := LoadRoster(r, res.Ledger, log)
		roster, res.Roster = loaded, stats
		return err
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"accepted": res.Roster.Accepted, "duplicates": res.Roster.Duplicates,
		"malformed": res.Roster.Malformed, "missing": res.Roster.Missing,
	}).Info("roster loaded")

	if err := p.stage(ctx, src, SourceTimesheet, res, log, func(r io.Reader) (err error) {
		res.Timesheets, err = AggregateTimesheets(roster, r, res.Ledger, log)
		return err
	}); err != nil {
		return nil, err
	}

	scorer := NewScorer(p.Policy)
	if err := p.stage(ctx, src, SourceEvaluation, res, log, func(r io.Reader) (err error) {
		res.Evaluations, err = ScoreEvaluations(roster, r, scorer, res.Ledger, log)
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.stage(ctx, src, SourceSales, res, log, func(r io.Reader) (err error) {
		res.Sales, err = LoadSales(roster, r, res.Ledger, log)
		return err
	}); err != nil {
		return nil, err
	}

	res.Utilization = CalculateUtilization(roster, p.Policy)
	res.Run.Employees = roster.Len()
	res.Run.AverageUtilization = res.Utilization.Average
	log.WithFields(logrus.Fields{
		"total_hours":       res.Utilization.TotalHours.StringFixed(2),
		"total_utilization": res.Utilization.TotalUtilization.StringFixed(2),
		"average":           res.Utilization.Average.StringFixed(2),
	}).Info("utilization calculated")

	var sinkErrs []error
	intermediate := roster.Snapshot()
	for _, s := range p.Sinks {
		if err := s.SaveIntermediate(ctx, res.Run, intermediate); err != nil {
			sinkErrs = append(sinkErrs, fmt.Errorf("save intermediate dataset: %w", err))
		}
	}

	res.Eligibility = ApplyBonuses(roster, p.Policy)
	if !res.Eligibility.HasPopulation() {
		log.Warn(ErrNoEligiblePopulation.Error() + ": no Consultant bonuses")
	}
	res.Employees = roster.Snapshot()
	res.Run.Threshold = res.Eligibility.Threshold
	res.Run.TotalPayout = res.Eligibility.TotalPayout()
	res.Run.LedgerEntries = res.Ledger.Len()
	res.Run.FinishedAt = p.Now()

	for _, s := range p.Sinks {
		if err := s.SaveRun(ctx, res); err != nil {
			sinkErrs = append(sinkErrs, fmt.Errorf("save run: %w", err))
		}
	}

	log.WithFields(logrus.Fields{
		"employees":      res.Run.Employees,
		"ledger_entries": res.Run.LedgerEntries,
		"total_payout":   res.Run.TotalPayout.StringFixed(2),
	}).Info("processing complete")

	return res, errors.Join(sinkErrs...)
}

// stage opens one source and feeds it to fn. Open and read failures are
// logged and the stage is marked skipped; only context cancellation is
// returned.
func (p *Pipeline) stage(ctx context.Context, src Sources, name string, res *Result, log logrus.FieldLogger, fn func(io.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stageLog := log.WithField("stage", name)

	var r io.Reader = strings.NewReader("")
	rc, err := src.Open(name)
	if err != nil {
		if IsMissingFile(err) {
			stageLog.WithError(err).Error("source missing, continuing with empty " + name)
		} else {
			stageLog.WithError(err).Error("source unreadable, continuing with empty " + name)
		}
		res.Run.SkippedStages = append(res.Run.SkippedStages, name)
	} else {
		defer rc.Close()
		r = rc
	}

	if err := fn(r); err != nil {
		stageLog.WithError(err).Error("stage ended early")
	}
	return nil
}
