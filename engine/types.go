/*
Package engine provides the annual performance-metrics and bonus pipeline.

PURPOSE:
  Reads the beginning-of-year roster and the timesheet, evaluation and sales
  feeds, reconciles them against the roster, derives utilization and
  evaluation scores, and computes capped, role-dependent bonuses. Data-quality
  problems never abort a run; they are recorded in the error Ledger.

KEY CONCEPTS IN THIS FILE (types.go):
  - EmployeeID: positive integer identity shared by every source
  - Role: Consultant, Director or Other (derived from the roster JobCode)
  - Employee: the unified per-employee record mutated stage by stage
  - Roster: the identity universe for one run

DESIGN PRINCIPLES:
  1. Precision: money, hours and scores use decimal.Decimal
  2. First seen wins: roster duplicates never replace the original record
  3. Stages overwrite, never accumulate across loads: re-running a stage on
     the same roster yields the same values

USAGE:
  roster := engine.NewRoster()
  emp, ok := roster.Get(42)
  if ok && emp.Role == engine.RoleDirector { ... }

SEE ALSO:
  - pipeline.go: Stage ordering
  - ledger.go: Error ledger
  - policy.go: Rates, caps and thresholds
*/
package engine

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EmployeeID is the roster-assigned identity. Always positive.
type EmployeeID int64

func (id EmployeeID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseEmployeeID parses a positive integer identity.
func ParseEmployeeID(s string) (EmployeeID, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return EmployeeID(n), true
}

// RunID identifies one pipeline execution.
type RunID string

// =============================================================================
// ROLE
// =============================================================================

type Role string

const (
	RoleConsultant Role = "consultant"
	RoleDirector   Role = "director"
	RoleOther      Role = "other"
)

// Roster job codes.
const (
	JobCodeConsultant = "C"
	JobCodeDirector   = "D"
)

// RoleForJobCode maps a roster job code to a Role. Unknown codes are passed
// through inertly as RoleOther.
func RoleForJobCode(code string) Role {
	switch code {
	case JobCodeConsultant:
		return RoleConsultant
	case JobCodeDirector:
		return RoleDirector
	default:
		return RoleOther
	}
}

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is the unified record for one identity.
//
// Name, JobCode, Role and BasePay are fixed at roster load. Hours, Sales and
// Evaluation are assigned by the enrichment stages, Utilization by the
// utilization calculator and Bonus/Eligible by the bonus engine.
type Employee struct {
	ID        EmployeeID
	FirstName string
	LastName  string
	JobCode   string
	Role      Role
	BasePay   decimal.Decimal

	Hours       decimal.Decimal
	Utilization decimal.Decimal     // percent, [0, 100]
	Evaluation  decimal.NullDecimal // Valid=false when no evaluation exists
	Sales       decimal.Decimal     // always zero unless Role == RoleDirector

	Bonus    decimal.Decimal
	Eligible bool
}

// FullName returns "First Last".
func (e *Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// HasEvaluation reports whether an evaluation score was assigned.
func (e *Employee) HasEvaluation() bool { return e.Evaluation.Valid }

// =============================================================================
// ROSTER
// =============================================================================

// Roster is the authoritative identity set for one run, owned by the pipeline.
type Roster struct {
	employees map[EmployeeID]*Employee
}

func NewRoster() *Roster {
	return &Roster{employees: make(map[EmployeeID]*Employee)}
}

// Add inserts a new employee. Returns false (and leaves the roster unchanged)
// when the identity already exists.
func (r *Roster) Add(e *Employee) bool {
	if _, exists := r.employees[e.ID]; exists {
		return false
	}
	r.employees[e.ID] = e
	return true
}

func (r *Roster) Get(id EmployeeID) (*Employee, bool) {
	e, ok := r.employees[id]
	return e, ok
}

func (r *Roster) Len() int { return len(r.employees) }

// IDs returns identities in ascending order.
func (r *Roster) IDs() []EmployeeID {
	ids := make([]EmployeeID, 0, len(r.employees))
	for id := range r.employees {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Employees returns records ordered by identity.
func (r *Roster) Employees() []*Employee {
	ids := r.IDs()
	out := make([]*Employee, len(ids))
	for i, id := range ids {
		out[i] = r.employees[id]
	}
	return out
}

// ByRole returns records with the given role, ordered by identity.
func (r *Roster) ByRole(role Role) []*Employee {
	var out []*Employee
	for _, e := range r.Employees() {
		if e.Role == role {
			out = append(out, e)
		}
	}
	return out
}

// Snapshot returns value copies of all records, ordered by identity.
func (r *Roster) Snapshot() []Employee {
	emps := r.Employees()
	out := make([]Employee, len(emps))
	for i, e := range emps {
		out[i] = *e
	}
	return out
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

var (
	hundred = decimal.NewFromInt(100)
)

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
