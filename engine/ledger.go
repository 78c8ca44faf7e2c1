/*
ledger.go - Append-only error ledger for one pipeline run

PURPOSE:
  Collects every recoverable data anomaly detected by the stages so the
  source data can be located and fixed. The ledger is the replayable record
  of a run: it is persisted next to the results and fully rewritten by the
  next run, never merged.

CATEGORIES:
  timesheet  - timesheet line for an unknown identity
  missing    - gap in the roster identity sequence (informational)
  evaluation - evaluation line for an unknown identity
  sales      - sales line for an unknown identity or a non-Director
  duplicate  - repeated roster identity (first record kept)
  malformed  - unparseable line in any source

CRITICAL INVARIANTS:
  1. APPEND-ONLY during a run: no removal, no edit
  2. DETERMINISTIC OUTPUT: entries sorted by identity, then line number

REPORT FORMAT:
  Error Log Generated at: 2024-12-04 00:09:40

  Timesheet Errors:
  Timesheet error: Employee ID 99 not found at line 12.

  Missing Employee IDs:
  {3, 7}

SEE ALSO:
  - errors.go: Error types recorded here
  - report/report.go: Writes the rendered report to error.txt
*/
package engine

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// ENTRIES
// =============================================================================

type Category string

const (
	CategoryTimesheet  Category = "timesheet"
	CategoryMissing    Category = "missing"
	CategoryEvaluation Category = "evaluation"
	CategorySales      Category = "sales"
	CategoryDuplicate  Category = "duplicate"
	CategoryMalformed  Category = "malformed"
)

// Categories lists categories in report order.
var Categories = []Category{
	CategoryTimesheet,
	CategoryMissing,
	CategoryEvaluation,
	CategorySales,
	CategoryDuplicate,
	CategoryMalformed,
}

// Entry is one ledger record. Line is 0 when not applicable.
type Entry struct {
	Category   Category
	EmployeeID EmployeeID
	Line       int
	Source     string
	Reason     string
}

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	entries []Entry
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Append adds an entry. This is the ONLY write operation.
func (l *Ledger) Append(e Entry) {
	l.entries = append(l.entries, e)
}

func (l *Ledger) RecordTimesheet(id EmployeeID, line int) {
	l.Append(Entry{Category: CategoryTimesheet, EmployeeID: id, Line: line, Source: SourceTimesheet, Reason: "not found"})
}

func (l *Ledger) RecordMissing(id EmployeeID) {
	l.Append(Entry{Category: CategoryMissing, EmployeeID: id, Source: SourceRoster, Reason: "missing from sequence"})
}

func (l *Ledger) RecordEvaluation(id EmployeeID, line int) {
	l.Append(Entry{Category: CategoryEvaluation, EmployeeID: id, Line: line, Source: SourceEvaluation, Reason: "not found"})
}

func (l *Ledger) RecordSales(id EmployeeID, line int, reason string) {
	l.Append(Entry{Category: CategorySales, EmployeeID: id, Line: line, Source: SourceSales, Reason: reason})
}

func (l *Ledger) RecordDuplicate(id EmployeeID, line int) {
	l.Append(Entry{Category: CategoryDuplicate, EmployeeID: id, Line: line, Source: SourceRoster, Reason: "found multiple times"})
}

func (l *Ledger) RecordMalformed(err *RecordError) {
	l.Append(Entry{Category: CategoryMalformed, Line: err.Line, Source: err.Source, Reason: err.Reason})
}

// Len returns the total number of entries.
func (l *Ledger) Len() int { return len(l.entries) }

// Entries returns all entries in report order: by category, then identity,
// then line.
func (l *Ledger) Entries() []Entry {
	var out []Entry
	for _, c := range Categories {
		out = append(out, l.Category(c)...)
	}
	return out
}

// Category returns the sorted entries for one category.
func (l *Ledger) Category(c Category) []Entry {
	var out []Entry
	for _, e := range l.entries {
		if e.Category == c {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// Counts returns the number of entries per category.
func (l *Ledger) Counts() map[Category]int {
	counts := make(map[Category]int, len(Categories))
	for _, e := range l.entries {
		counts[e.Category]++
	}
	return counts
}

// MissingIDs returns the identity gaps in ascending order.
func (l *Ledger) MissingIDs() []EmployeeID {
	var ids []EmployeeID
	for _, e := range l.Category(CategoryMissing) {
		ids = append(ids, e.EmployeeID)
	}
	return ids
}

// =============================================================================
// REPORT
// =============================================================================

// ReportTimeLayout is the timestamp layout of the report header.
const ReportTimeLayout = "2006-01-02 15:04:05"

var sectionTitles = map[Category]string{
	CategoryTimesheet:  "Timesheet Errors:",
	CategoryMissing:    "Missing Employee IDs:",
	CategoryEvaluation: "Evaluation Errors:",
	CategorySales:      "Sales Errors:",
	CategoryDuplicate:  "Duplicate Errors:",
	CategoryMalformed:  "Malformed Records:",
}

// Title is the report section heading of a category.
func (c Category) Title() string { return sectionTitles[c] }

// WriteReport renders the ledger as a sectioned text report. Empty categories
// are omitted.
func (l *Ledger) WriteReport(w io.Writer, generatedAt time.Time) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Error Log Generated at: %s\n\n", generatedAt.Format(ReportTimeLayout))

	for _, c := range Categories {
		entries := l.Category(c)
		if len(entries) == 0 {
			continue
		}
		b.WriteString(sectionTitles[c])
		b.WriteString("\n")

		if c == CategoryMissing {
			ids := make([]string, len(entries))
			for i, e := range entries {
				ids[i] = e.EmployeeID.String()
			}
			fmt.Fprintf(&b, "{%s}\n\n", strings.Join(ids, ", "))
			continue
		}

		for _, e := range entries {
			b.WriteString(formatEntry(e))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatEntry(e Entry) string {
	switch e.Category {
	case CategoryTimesheet:
		return fmt.Sprintf("Timesheet error: Employee ID %d not found at line %d.", e.EmployeeID, e.Line)
	case CategoryEvaluation:
		return fmt.Sprintf("Evaluation error: Employee ID %d not found at line %d.", e.EmployeeID, e.Line)
	case CategorySales:
		return fmt.Sprintf("Sales error: Employee ID %d %s at line %d.", e.EmployeeID, e.Reason, e.Line)
	case CategoryDuplicate:
		return fmt.Sprintf("Duplicate error: Employee ID %d found multiple times (line %d).", e.EmployeeID, e.Line)
	case CategoryMalformed:
		return fmt.Sprintf("Malformed record: %s line %d: %s.", e.Source, e.Line, e.Reason)
	default:
		return fmt.Sprintf("%s: Employee ID %d %s.", e.Category, e.EmployeeID, e.Reason)
	}
}
