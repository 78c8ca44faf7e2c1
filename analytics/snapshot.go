/*
Package analytics is the read-only query layer over a completed run.

PURPOSE:
  Answers the questions asked of the final dataset after the pipeline has
  finished: employee lookup, descriptive statistics, recognition and
  probation lists, the error ledger, and what-if bonus simulations.

CRITICAL INVARIANT:
  A Snapshot is immutable. Every accessor returns copies, and a simulation
  never touches stored bonuses, so one Snapshot can serve concurrent
  requests without locking.

SEE ALSO:
  - api/: HTTP surface over a Snapshot
  - store/sqlite/: Source of the persisted run
*/
package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/warp/bonus-engine/engine"
	"golang.org/x/text/unicode/norm"
)

// Snapshot is the final dataset of one run.
type Snapshot struct {
	run       engine.RunInfo
	policy    engine.Policy
	employees []engine.Employee
	byID      map[engine.EmployeeID]int
	ledger    []engine.Entry
}

// NewSnapshot copies employees (ordered by identity) and the ledger entries.
// ledger may be nil.
func NewSnapshot(run engine.RunInfo, employees []engine.Employee, ledger *engine.Ledger, p engine.Policy) *Snapshot {
	emps := append([]engine.Employee(nil), employees...)
	sort.Slice(emps, func(i, j int) bool { return emps[i].ID < emps[j].ID })

	s := &Snapshot{
		run:       run,
		policy:    p,
		employees: emps,
		byID:      make(map[engine.EmployeeID]int, len(emps)),
	}
	for i, e := range emps {
		s.byID[e.ID] = i
	}
	if ledger != nil {
		s.ledger = ledger.Entries()
	}
	return s
}

func (s *Snapshot) Run() engine.RunInfo { return s.run }

func (s *Snapshot) Policy() engine.Policy { return s.policy }

func (s *Snapshot) Len() int { return len(s.employees) }

// Employees returns a copy of the dataset ordered by identity.
func (s *Snapshot) Employees() []engine.Employee {
	return append([]engine.Employee(nil), s.employees...)
}

func (s *Snapshot) Get(id engine.EmployeeID) (engine.Employee, bool) {
	i, ok := s.byID[id]
	if !ok {
		return engine.Employee{}, false
	}
	return s.employees[i], true
}

// Ledger rebuilds the run's error ledger.
func (s *Snapshot) Ledger() *engine.Ledger {
	l := engine.NewLedger()
	for _, e := range s.ledger {
		l.Append(e)
	}
	return l
}

// =============================================================================
// SEARCH
// =============================================================================

// Query selects employees. Zero fields are ignored; set fields are ANDed.
type Query struct {
	ID      engine.EmployeeID
	Name    string // substring of "First Last", case and accent insensitive
	JobCode string // case insensitive
}

// Search returns matching employees ordered by identity.
func (s *Snapshot) Search(q Query) []engine.Employee {
	name := foldName(q.Name)
	var out []engine.Employee
	for _, e := range s.employees {
		if q.ID != 0 && e.ID != q.ID {
			continue
		}
		if q.JobCode != "" && !strings.EqualFold(e.JobCode, strings.TrimSpace(q.JobCode)) {
			continue
		}
		if name != "" && !strings.Contains(foldName(e.FullName()), name) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// foldName lower-cases, strips diacritics and collapses whitespace.
func foldName(s string) string {
	decomposed := norm.NFD.String(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// =============================================================================
// LOADING
// =============================================================================

// Load builds a Snapshot of the latest run in store. The run's own policy is
// used when the store kept it, p otherwise. It returns an error matching
// engine.ErrNotFound when no run has completed.
func Load(ctx context.Context, store engine.Store, p engine.Policy) (*Snapshot, error) {
	run, err := store.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	employees, err := store.LoadEmployees(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("load employees of run %s: %w", run.ID, err)
	}
	ledger, err := store.LoadLedger(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("load ledger of run %s: %w", run.ID, err)
	}
	if run.Policy != nil {
		p = *run.Policy
	}
	return NewSnapshot(run, employees, ledger, p), nil
}
