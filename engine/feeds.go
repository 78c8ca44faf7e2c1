package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Source names, used in ledger entries and log fields.
const (
	SourceRoster     = "roster"
	SourceTimesheet  = "timesheet"
	SourceEvaluation = "evaluation"
	SourceSales      = "sales"
)

// FeedStats summarizes one line-oriented feed.
type FeedStats struct {
	Lines     int
	Accepted  int
	Unknown   int
	Rejected  int // known identity, but not allowed (sales for non-Directors)
	Malformed int
}

const maxLineBytes = 1 << 20

// scanLines calls fn for every non-blank line with its 1-based line number.
// A line longer than maxLineBytes is skipped and handed to tooLong; reading
// continues with the next line.
func scanLines(src io.Reader, source string, fn func(no int, text string), tooLong func(err *RecordError)) error {
	r := bufio.NewReaderSize(src, 64*1024)
	no := 0
	for {
		line, oversize, err := readLine(r)
		if len(line) > 0 || oversize {
			no++
			if oversize {
				tooLong(&RecordError{Source: source, Line: no, Reason: fmt.Sprintf("line exceeds %d bytes", maxLineBytes)})
			} else {
				text := strings.TrimSpace(string(line))
				if no == 1 {
					text = strings.TrimPrefix(text, "\ufeff")
				}
				if text != "" {
					fn(no, text)
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// readLine returns the next line including its terminator. Once a line grows
// past maxLineBytes the rest of it is consumed and discarded.
func readLine(r *bufio.Reader) (line []byte, oversize bool, err error) {
	for {
		var chunk []byte
		chunk, err = r.ReadSlice('\n')
		if !oversize {
			if len(line)+len(chunk) > maxLineBytes+1 {
				oversize = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, oversize, err
	}
}

// rejectLine counts and records a line that could not be read.
func (s *FeedStats) rejectLine(ledger *Ledger, log logrus.FieldLogger) func(*RecordError) {
	return func(err *RecordError) {
		s.Lines++
		s.Malformed++
		recordMalformed(ledger, log, err)
	}
}

func recordMalformed(ledger *Ledger, log logrus.FieldLogger, err *RecordError) {
	ledger.RecordMalformed(err)
	log.WithFields(logrus.Fields{"stage": err.Source, "line": err.Line}).Warn(err.Error())
}

func warnIdentity(log logrus.FieldLogger, err *IdentityError) {
	log.WithFields(logrus.Fields{"stage": err.Source, "line": err.Line, "employee_id": err.EmployeeID}).Warn(err.Error())
}

// parsePair splits "id,amount" and validates both fields. amount must be a
// non-negative decimal.
func parsePair(source string, no int, text string) (EmployeeID, decimal.Decimal, *RecordError) {
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return 0, decimal.Zero, &RecordError{Source: source, Line: no, Reason: fmt.Sprintf("expected 2 fields, got %d", len(parts))}
	}
	id, ok := ParseEmployeeID(strings.TrimSpace(parts[0]))
	if !ok {
		return 0, decimal.Zero, &RecordError{Source: source, Line: no, Reason: fmt.Sprintf("invalid employee ID %q", strings.TrimSpace(parts[0]))}
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil || amount.IsNegative() {
		return 0, decimal.Zero, &RecordError{Source: source, Line: no, Reason: fmt.Sprintf("invalid amount %q", strings.TrimSpace(parts[1]))}
	}
	return id, amount, nil
}

// =============================================================================
// TIMESHEET AGGREGATOR
// =============================================================================

// AggregateTimesheets sums "id,hours" lines per employee.
//
// Lines for the same identity accumulate. Unknown identities are recorded in
// the ledger and never create a record. The totals replace each employee's
// Hours, so aggregating the same feed twice does not double the hours.
func AggregateTimesheets(roster *Roster, src io.Reader, ledger *Ledger, log logrus.FieldLogger) (FeedStats, error) {
	var stats FeedStats
	totals := make(map[EmployeeID]decimal.Decimal)

	err := scanLines(src, SourceTimesheet, func(no int, text string) {
		stats.Lines++
		id, hours, rerr := parsePair(SourceTimesheet, no, text)
		if rerr != nil {
			recordMalformed(ledger, log, rerr)
			stats.Malformed++
			return
		}
		if _, ok := roster.Get(id); !ok {
			ledger.RecordTimesheet(id, no)
			warnIdentity(log, &IdentityError{Source: SourceTimesheet, EmployeeID: id, Line: no})
			stats.Unknown++
			return
		}
		totals[id] = totals[id].Add(hours)
		stats.Accepted++
	}, stats.rejectLine(ledger, log))

	for _, e := range roster.Employees() {
		e.Hours = totals[e.ID]
	}
	return stats, err
}

// =============================================================================
// SALES LOADER
// =============================================================================

// LoadSales attaches "id,amount" lines to Directors.
//
// A line is accepted only when the identity is known and its role is
// Director; anything else is a sales error. The last line for an identity
// wins. Sales of every non-Director are forced to zero.
func LoadSales(roster *Roster, src io.Reader, ledger *Ledger, log logrus.FieldLogger) (FeedStats, error) {
	var stats FeedStats
	for _, e := range roster.Employees() {
		e.Sales = decimal.Zero
	}

	err := scanLines(src, SourceSales, func(no int, text string) {
		stats.Lines++
		id, amount, rerr := parsePair(SourceSales, no, text)
		if rerr != nil {
			recordMalformed(ledger, log, rerr)
			stats.Malformed++
			return
		}
		emp, ok := roster.Get(id)
		if !ok {
			ledger.RecordSales(id, no, "not found")
			warnIdentity(log, &IdentityError{Source: SourceSales, EmployeeID: id, Line: no})
			stats.Unknown++
			return
		}
		if emp.Role != RoleDirector {
			ledger.RecordSales(id, no, "is not a Director")
			log.WithFields(logrus.Fields{"stage": SourceSales, "line": no, "employee_id": id}).Warn("sales for non-Director ignored")
			stats.Rejected++
			return
		}
		emp.Sales = amount
		stats.Accepted++
	}, stats.rejectLine(ledger, log))
	return stats, err
}
