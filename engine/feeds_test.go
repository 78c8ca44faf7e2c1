package engine_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bonus-engine/engine"
)

// =============================================================================
// TIMESHEET AGGREGATOR TESTS
// =============================================================================

func TestAggregateTimesheets_SumsPerEmployee(t *testing.T) {
	// GIVEN: Three lines for employee 1 and one for employee 2
	// WHEN: Aggregating
	// THEN: Hours are summed per identity

	roster, ledger := loadRoster(t, "1,Ann,Lee,C,1\n2,Bob,Ray,C,1\n")

	stats, err := engine.AggregateTimesheets(roster, strings.NewReader("1,100\n1,50.5\n2,8\n1,0.25\n"), ledger, nullLogger())
	require.NoError(t, err)

	ann, _ := roster.Get(1)
	bob, _ := roster.Get(2)
	assertDecimal(t, "150.75", ann.Hours)
	assertDecimal(t, "8", bob.Hours)
	assert.Equal(t, 4, stats.Accepted)
	assert.Equal(t, 0, ledger.Len())
}

func TestAggregateTimesheets_UnknownIdentity(t *testing.T) {
	// GIVEN: A line for identity 99 which is not in the roster
	// WHEN: Aggregating
	// THEN: A timesheet error with its line number, and no record is created

	roster, ledger := loadRoster(t, "1,Ann,Lee,C,1\n")

	stats, err := engine.AggregateTimesheets(roster, strings.NewReader("1,10\n99,5\n"), ledger, nullLogger())
	require.NoError(t, err)

	assert.Equal(t, 1, roster.Len())
	assert.Equal(t, 1, stats.Unknown)
	entries := ledger.Category(engine.CategoryTimesheet)
	require.Len(t, entries, 1)
	assert.Equal(t, engine.EmployeeID(99), entries[0].EmployeeID)
	assert.Equal(t, 2, entries[0].Line)
}

func TestAggregateTimesheets_Idempotent(t *testing.T) {
	// GIVEN: The same timesheet aggregated twice on one roster
	// WHEN: Reading hours
	// THEN: Hours are not doubled

	roster, ledger := loadRoster(t, "1,Ann,Lee,C,1\n")
	feed := "1,10\n1,20\n"

	_, err := engine.AggregateTimesheets(roster, strings.NewReader(feed), ledger, nullLogger())
	require.NoError(t, err)
	_, err = engine.AggregateTimesheets(roster, strings.NewReader(feed), ledger, nullLogger())
	require.NoError(t, err)

	ann, _ := roster.Get(1)
	assertDecimal(t, "30", ann.Hours)
}

func TestAggregateTimesheets_MalformedLines(t *testing.T) {
	// GIVEN: Lines with a bad ID, a bad amount, a negative amount and too many fields
	// WHEN: Aggregating
	// THEN: Each is a malformed entry; blank lines are ignored

	roster, ledger := loadRoster(t, "1,Ann,Lee,C,1\n")

	stats, err := engine.AggregateTimesheets(roster, strings.NewReader("abc,10\n1,ten\n\n1,-4\n1,2,3\n1,7\n"), ledger, nullLogger())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Malformed)
	assert.Equal(t, 1, stats.Accepted)
	ann, _ := roster.Get(1)
	assertDecimal(t, "7", ann.Hours)

	malformed := ledger.Category(engine.CategoryMalformed)
	require.Len(t, malformed, 4)
	lines := []int{malformed[0].Line, malformed[1].Line, malformed[2].Line, malformed[3].Line}
	assert.Equal(t, []int{1, 2, 4, 5}, lines)
}

func TestAggregateTimesheets_OversizeLineSkipped(t *testing.T) {
	// GIVEN: A 2 MiB line between two valid lines
	// WHEN: Aggregating
	// THEN: The long line is a malformed entry and the following line still counts

	roster, ledger := loadRoster(t, "1,Ann,Lee,C,1\n2,Bob,Ray,C,1\n")
	feed := "1,100\n" + strings.Repeat("x", 2<<20) + "\n2,200\n"

	stats, err := engine.AggregateTimesheets(roster, strings.NewReader(feed), ledger, nullLogger())
	require.NoError(t, err)

	ann, _ := roster.Get(1)
	bob, _ := roster.Get(2)
	assertDecimal(t, "100", ann.Hours)
	assertDecimal(t, "200", bob.Hours)
	assert.Equal(t, 3, stats.Lines)
	assert.Equal(t, 2, stats.Accepted)
	assert.Equal(t, 1, stats.Malformed)

	malformed := ledger.Category(engine.CategoryMalformed)
	require.Len(t, malformed, 1)
	assert.Equal(t, engine.SourceTimesheet, malformed[0].Source)
	assert.Equal(t, 2, malformed[0].Line)
}

func TestAggregateTimesheets_LastLineWithoutNewline(t *testing.T) {
	roster, ledger := loadRoster(t, "1,Ann,Lee,C,1\n")

	stats, err := engine.AggregateTimesheets(roster, strings.NewReader("1,10\r\n1,5"), ledger, nullLogger())
	require.NoError(t, err)

	ann, _ := roster.Get(1)
	assertDecimal(t, "15", ann.Hours)
	assert.Equal(t, 2, stats.Accepted)
}

// =============================================================================
// SALES LOADER TESTS
// =============================================================================

func TestLoadSales_DirectorsOnly(t *testing.T) {
	// GIVEN: Sales for a Director, a Consultant and an unknown identity
	// WHEN: Loading sales
	// THEN: Only the Director gets sales; the other two are sales errors

	roster, ledger := loadRoster(t, "1,Ann,Lee,C,1\n2,Bob,Ray,D,1\n")

	stats, err := engine.LoadSales(roster, strings.NewReader("2,12000\n1,500\n7,300\n"), ledger, nullLogger())
	require.NoError(t, err)

	ann, _ := roster.Get(1)
	bob, _ := roster.Get(2)
	assertDecimal(t, "0", ann.Sales)
	assertDecimal(t, "12000", bob.Sales)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 1, stats.Unknown)

	sales := ledger.Category(engine.CategorySales)
	require.Len(t, sales, 2)
	assert.Equal(t, engine.EmployeeID(1), sales[0].EmployeeID)
	assert.Equal(t, "is not a Director", sales[0].Reason)
	assert.Equal(t, engine.EmployeeID(7), sales[1].EmployeeID)
	assert.Equal(t, "not found", sales[1].Reason)
}

func TestLoadSales_LastLineWins(t *testing.T) {
	roster, ledger := loadRoster(t, "2,Bob,Ray,D,1\n")

	_, err := engine.LoadSales(roster, strings.NewReader("2,100\n2,250\n"), ledger, nullLogger())
	require.NoError(t, err)

	bob, _ := roster.Get(2)
	assertDecimal(t, "250", bob.Sales)
}
