package engine_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/warp/bonus-engine/engine"
	"github.com/warp/bonus-engine/source"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const rosterHeader = "ID,FirstName,LastName,JobCode,BasePay\n"

func nullLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "expected %s, got %s %v", want, got.String(), msgAndArgs)
}

func loadRoster(t *testing.T, body string) (*engine.Roster, *engine.Ledger) {
	t.Helper()
	ledger := engine.NewLedger()
	roster, _, err := engine.LoadRoster(strings.NewReader(rosterHeader+body), ledger, nullLogger())
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}
	return roster, ledger
}

// companySources is a small but complete data set:
//
//	1 Ann  C  hours 2250 -> 100%   excellent (5)   eligible
//	2 Bob  C  hours 1125 -> 50%    good (4)        below threshold
//	3 Cara D  sales 2,000,000 -> capped bonus
//	4 Dan  C  hours 2500 -> 100%   poor (2)        low evaluation
//	5 Eve  X  no activity
func companySources() source.Memory {
	return source.Memory{
		engine.SourceRoster: rosterHeader +
			"1,Ann,Lee,C,50000\n" +
			"2,Bob,Ray,C,60000\n" +
			"3,Cara,Diaz,D,100000\n" +
			"4,Dan,Moe,C,70000\n" +
			"5,Eve,Fox,X,40000\n",
		engine.SourceTimesheet: "1,2250\n2,1125\n4,2000\n4,500\n9,10\n",
		engine.SourceEvaluation: "1#Excellent work all year\n" +
			"2#good communicator\n" +
			"4#late and poor quality\n",
		engine.SourceSales: "3,2000000\n1,500\n",
	}
}
