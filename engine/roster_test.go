package engine_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bonus-engine/engine"
)

// =============================================================================
// ROSTER LOADER TESTS
// =============================================================================

func TestLoadRoster_AcceptsRowsAndDerivesRoles(t *testing.T) {
	// GIVEN: A roster with a Consultant, a Director and an unknown job code
	// WHEN: Loading it
	// THEN: Every row is accepted and roles follow the job code

	roster, ledger := loadRoster(t, "1,Ann,Lee,C,50000\n2,Bob,Ray,D,90000\n3,Eve,Fox,X,1\n")

	require.Equal(t, 3, roster.Len())
	assert.Equal(t, 0, ledger.Len())

	ann, ok := roster.Get(1)
	require.True(t, ok)
	assert.Equal(t, engine.RoleConsultant, ann.Role)
	assert.Equal(t, "Ann Lee", ann.FullName())
	assertDecimal(t, "50000", ann.BasePay)
	assert.False(t, ann.HasEvaluation())

	bob, _ := roster.Get(2)
	assert.Equal(t, engine.RoleDirector, bob.Role)

	eve, _ := roster.Get(3)
	assert.Equal(t, engine.RoleOther, eve.Role)
	assert.Equal(t, "X", eve.JobCode)
}

func TestLoadRoster_Duplicate_KeepsFirstRecord(t *testing.T) {
	// GIVEN: Identity 1 appears twice
	// WHEN: Loading the roster
	// THEN: The first record is kept and one duplicate entry is logged

	roster, ledger := loadRoster(t, "1,Ann,Lee,C,50000\n2,Bob,Ray,D,90000\n1,Dup,Person,D,1\n")

	require.Equal(t, 2, roster.Len())
	ann, _ := roster.Get(1)
	assert.Equal(t, "Ann", ann.FirstName)
	assert.Equal(t, engine.RoleConsultant, ann.Role)

	dups := ledger.Category(engine.CategoryDuplicate)
	require.Len(t, dups, 1)
	assert.Equal(t, engine.EmployeeID(1), dups[0].EmployeeID)
	assert.Equal(t, 4, dups[0].Line)
}

func TestLoadRoster_EveryDuplicateOccurrenceRecorded(t *testing.T) {
	// GIVEN: Identity 2 appears three times
	// WHEN: Loading the roster
	// THEN: Two duplicate entries, one per repeated occurrence

	_, ledger := loadRoster(t, "2,A,A,C,1\n2,B,B,C,1\n2,C,C,C,1\n")

	dups := ledger.Category(engine.CategoryDuplicate)
	require.Len(t, dups, 2)
	assert.Equal(t, 3, dups[0].Line)
	assert.Equal(t, 4, dups[1].Line)
}

func TestLoadRoster_SequenceGaps(t *testing.T) {
	// GIVEN: Identities {1, 2, 4, 5}
	// WHEN: Loading the roster
	// THEN: 3 is reported missing

	_, ledger := loadRoster(t, "1,A,A,C,1\n2,B,B,C,1\n4,D,D,C,1\n5,E,E,C,1\n")

	assert.Equal(t, []engine.EmployeeID{3}, ledger.MissingIDs())
}

func TestLoadRoster_GapsUseMinimumNotOne(t *testing.T) {
	// GIVEN: Identities start at 10
	// WHEN: Loading the roster
	// THEN: Only gaps inside [10, 13] are reported

	_, ledger := loadRoster(t, "13,A,A,C,1\n10,B,B,C,1\n")

	assert.Equal(t, []engine.EmployeeID{11, 12}, ledger.MissingIDs())
}

func TestLoadRoster_MalformedRowsSkipped(t *testing.T) {
	// GIVEN: Rows with a bad ID and a bad base pay
	// WHEN: Loading the roster
	// THEN: Both rows are rejected into the malformed category, others load

	ledger := engine.NewLedger()
	roster, stats, err := engine.LoadRoster(strings.NewReader(rosterHeader+
		"1,Ann,Lee,C,50000\n"+
		"abc,Bad,Id,C,1\n"+
		"2,Bad,Pay,C,lots\n"+
		"3,Neg,Pay,C,-5\n"), ledger, nullLogger())
	require.NoError(t, err)

	assert.Equal(t, 1, roster.Len())
	assert.Equal(t, 3, stats.Malformed)
	assert.Equal(t, 1, stats.Accepted)

	malformed := ledger.Category(engine.CategoryMalformed)
	require.Len(t, malformed, 3)
	assert.Equal(t, engine.SourceRoster, malformed[0].Source)
	assert.Equal(t, 3, malformed[0].Line)
}

func TestLoadRoster_HeaderOrderIndependent(t *testing.T) {
	// GIVEN: Columns in a different order, with a byte order mark
	// WHEN: Loading the roster
	// THEN: Fields are matched by header name

	ledger := engine.NewLedger()
	roster, _, err := engine.LoadRoster(strings.NewReader(
		"\ufeffBasePay,JobCode,LastName,FirstName,ID\n75000,D,Lee,Ann,7\n"), ledger, nullLogger())
	require.NoError(t, err)

	ann, ok := roster.Get(7)
	require.True(t, ok)
	assert.Equal(t, engine.RoleDirector, ann.Role)
	assertDecimal(t, "75000", ann.BasePay)
}

func TestLoadRoster_MissingHeaderColumn(t *testing.T) {
	// GIVEN: A header without BasePay
	// WHEN: Loading the roster
	// THEN: A malformed error is returned and recorded, roster is empty

	ledger := engine.NewLedger()
	roster, _, err := engine.LoadRoster(strings.NewReader("ID,FirstName,LastName,JobCode\n1,A,B,C\n"), ledger, nullLogger())

	require.Error(t, err)
	assert.True(t, engine.IsMalformed(err))
	assert.Equal(t, 0, roster.Len())
	assert.Len(t, ledger.Category(engine.CategoryMalformed), 1)
}

func TestLoadRoster_EmptyInput(t *testing.T) {
	ledger := engine.NewLedger()
	roster, _, err := engine.LoadRoster(strings.NewReader(""), ledger, nullLogger())

	require.NoError(t, err)
	assert.Equal(t, 0, roster.Len())
	assert.Equal(t, 0, ledger.Len())
}

func TestParseEmployeeID(t *testing.T) {
	id, ok := engine.ParseEmployeeID("42")
	assert.True(t, ok)
	assert.Equal(t, engine.EmployeeID(42), id)

	for _, s := range []string{"", "0", "-1", "4.2", "x"} {
		_, ok := engine.ParseEmployeeID(s)
		assert.False(t, ok, s)
	}
}
