package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/warp/bonus-engine/engine"
)

// =============================================================================
// ERROR REPORT READER
// =============================================================================

var (
	reportHeader   = regexp.MustCompile(`^Error Log Generated at: (.+)$`)
	timesheetLine  = regexp.MustCompile(`^Timesheet error: Employee ID (\d{1,18}) not found at line (\d{1,18})\.$`)
	evaluationLine = regexp.MustCompile(`^Evaluation error: Employee ID (\d{1,18}) not found at line (\d{1,18})\.$`)
	salesLine      = regexp.MustCompile(`^Sales error: Employee ID (\d{1,18}) (.+) at line (\d{1,18})\.$`)
	duplicateLine  = regexp.MustCompile(`^Duplicate error: Employee ID (\d{1,18}) found multiple times \(line (\d{1,18})\)\.$`)
	malformedLine  = regexp.MustCompile(`^Malformed record: (\S+) line (\d{1,18}): (.*)\.$`)
	missingLine    = regexp.MustCompile(`^\{(.*)\}$`)
)

// ReadLedger parses an error report written by engine.Ledger.WriteReport back
// into a ledger. generatedAt is zero when the header is absent. A line that
// matches no known entry format is an error.
func ReadLedger(r io.Reader) (ledger *engine.Ledger, generatedAt time.Time, err error) {
	ledger = engine.NewLedger()
	sections := make(map[string]bool)
	for _, c := range engine.Categories {
		sections[c.Title()] = true
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	no := 0
	for scanner.Scan() {
		no++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || sections[text] {
			continue
		}
		if m := reportHeader.FindStringSubmatch(text); m != nil {
			generatedAt, err = time.ParseInLocation(engine.ReportTimeLayout, m[1], time.Local)
			if err != nil {
				return nil, time.Time{}, fmt.Errorf("error report line %d: %w", no, err)
			}
			continue
		}
		if err := parseReportLine(ledger, text); err != nil {
			return nil, time.Time{}, fmt.Errorf("error report line %d: %w", no, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, time.Time{}, err
	}
	return ledger, generatedAt, nil
}

func parseReportLine(ledger *engine.Ledger, text string) error {
	if m := timesheetLine.FindStringSubmatch(text); m != nil {
		ledger.RecordTimesheet(employeeID(m[1]), atoi(m[2]))
		return nil
	}
	if m := evaluationLine.FindStringSubmatch(text); m != nil {
		ledger.RecordEvaluation(employeeID(m[1]), atoi(m[2]))
		return nil
	}
	if m := salesLine.FindStringSubmatch(text); m != nil {
		ledger.RecordSales(employeeID(m[1]), atoi(m[3]), m[2])
		return nil
	}
	if m := duplicateLine.FindStringSubmatch(text); m != nil {
		ledger.RecordDuplicate(employeeID(m[1]), atoi(m[2]))
		return nil
	}
	if m := malformedLine.FindStringSubmatch(text); m != nil {
		ledger.RecordMalformed(&engine.RecordError{Source: m[1], Line: atoi(m[2]), Reason: m[3]})
		return nil
	}
	if m := missingLine.FindStringSubmatch(text); m != nil {
		for _, field := range strings.Split(m[1], ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			id, ok := engine.ParseEmployeeID(field)
			if !ok {
				return fmt.Errorf("invalid missing employee ID %q", field)
			}
			ledger.RecordMissing(id)
		}
		return nil
	}
	return fmt.Errorf("unrecognized entry %q", text)
}

// the patterns match at most 18 digits, so conversion cannot fail
func employeeID(s string) engine.EmployeeID {
	n, _ := strconv.ParseInt(s, 10, 64)
	return engine.EmployeeID(n)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// LoadLedger reads an error report file from disk.
func LoadLedger(path string) (*engine.Ledger, time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer f.Close()
	return ReadLedger(f)
}
