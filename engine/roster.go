package engine

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Roster columns. Header names are matched after trimming whitespace.
const (
	ColID        = "ID"
	ColFirstName = "FirstName"
	ColLastName  = "LastName"
	ColJobCode   = "JobCode"
	ColBasePay   = "BasePay"
)

var rosterColumns = []string{ColID, ColFirstName, ColLastName, ColJobCode, ColBasePay}

// RosterStats summarizes one roster load.
type RosterStats struct {
	Rows       int
	Accepted   int
	Duplicates int
	Malformed  int
	Missing    int
}

// LoadRoster reads the beginning-of-year roster and establishes the identity
// universe for the run.
//
// Malformed rows are rejected and the load continues. A repeated identity is
// recorded as a duplicate and the first record is kept unchanged. After all
// rows are read, every integer between the lowest and highest accepted
// identity that was never seen is recorded as missing.
//
// The returned roster is never nil; err is set only when the header itself
// cannot be read.
func LoadRoster(src io.Reader, ledger *Ledger, log logrus.FieldLogger) (*Roster, RosterStats, error) {
	roster := NewRoster()
	var stats RosterStats

	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return roster, stats, nil
		}
		return roster, stats, fmt.Errorf("read roster header: %w", err)
	}
	index, herr := headerIndex(header)
	if herr != nil {
		recordMalformed(ledger, log, herr)
		return roster, stats, herr
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		stats.Rows++

		if err != nil {
			var perr *csv.ParseError
			line := 0
			if errors.As(err, &perr) {
				line = perr.Line
			}
			recordMalformed(ledger, log, &RecordError{Source: SourceRoster, Line: line, Reason: err.Error()})
			stats.Malformed++
			continue
		}

		line, _ := reader.FieldPos(0)
		emp, rerr := parseRosterRow(row, index, line)
		if rerr != nil {
			recordMalformed(ledger, log, rerr)
			stats.Malformed++
			continue
		}

		if !roster.Add(emp) {
			ledger.RecordDuplicate(emp.ID, line)
			warnIdentity(log, &IdentityError{Source: SourceRoster, EmployeeID: emp.ID, Line: line, Duplicate: true})
			stats.Duplicates++
			continue
		}
		stats.Accepted++
	}

	for _, id := range sequenceGaps(roster.IDs()) {
		ledger.RecordMissing(id)
		stats.Missing++
	}

	return roster, stats, nil
}

func headerIndex(header []string) (map[string]int, *RecordError) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	var missing []string
	for _, col := range rosterColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &RecordError{Source: SourceRoster, Line: 1, Reason: "header missing columns " + strings.Join(missing, ", ")}
	}
	return index, nil
}

func parseRosterRow(row []string, index map[string]int, line int) (*Employee, *RecordError) {
	field := func(col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	reject := func(reason string) *RecordError {
		return &RecordError{Source: SourceRoster, Line: line, Reason: reason}
	}

	id, ok := ParseEmployeeID(field(ColID))
	if !ok {
		return nil, reject(fmt.Sprintf("invalid ID %q", field(ColID)))
	}
	basePay, err := decimal.NewFromString(field(ColBasePay))
	if err != nil || basePay.IsNegative() {
		return nil, reject(fmt.Sprintf("invalid BasePay %q for employee ID %d", field(ColBasePay), id))
	}

	jobCode := field(ColJobCode)
	return &Employee{
		ID:        id,
		FirstName: field(ColFirstName),
		LastName:  field(ColLastName),
		JobCode:   jobCode,
		Role:      RoleForJobCode(jobCode),
		BasePay:   basePay,
	}, nil
}

// sequenceGaps returns every integer in [min(ids), max(ids)] absent from ids.
// ids must be sorted ascending.
func sequenceGaps(ids []EmployeeID) []EmployeeID {
	if len(ids) == 0 {
		return nil
	}
	var gaps []EmployeeID
	next := ids[0]
	for _, id := range ids {
		for ; next < id; next++ {
			gaps = append(gaps, next)
		}
		next = id + 1
	}
	return gaps
}
