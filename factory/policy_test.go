package factory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bonus-engine/engine"
	"github.com/warp/bonus-engine/factory"
)

func TestParsePolicy_EmptyObjectIsDefault(t *testing.T) {
	p, err := factory.NewPolicyFactory().ParsePolicy(`{}`)
	require.NoError(t, err)

	assert.Equal(t, engine.DefaultPolicy(), p)
}

func TestParsePolicy_Overrides(t *testing.T) {
	// GIVEN: A policy overriding hours, percentile, director rule, scorer and keywords
	// WHEN: Parsing
	// THEN: Overridden fields change, the rest keep their defaults

	p, err := factory.NewPolicyFactory().ParsePolicy(`{
		"standard_annual_hours": 2000,
		"eligibility_percentile": 50,
		"director": {"rate": 0.2, "cap": 100000},
		"scorer": "ratio",
		"keywords": [{"keyword": " Stellar ", "score": 5}, {"keyword": "slow", "score": 2}]
	}`)
	require.NoError(t, err)

	assert.True(t, p.StandardAnnualHours.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, 50, p.EligibilityPercentile)
	assert.True(t, p.Director.Rate.Equal(decimal.RequireFromString("0.2")))
	assert.True(t, p.Director.Cap.Equal(decimal.NewFromInt(100000)))
	assert.Equal(t, engine.ScorerRatio, p.Scorer)
	assert.Equal(t, []engine.KeywordScore{{Keyword: "stellar", Score: 5}, {Keyword: "slow", Score: 2}}, p.Keywords)

	def := engine.DefaultPolicy()
	assert.True(t, p.MinEvaluation.Equal(def.MinEvaluation))
	assert.True(t, p.Consultant.Cap.Equal(def.Consultant.Cap))
}

func TestParsePolicy_RatioScorerUsesRatioTable(t *testing.T) {
	p, err := factory.NewPolicyFactory().ParsePolicy(`{"scorer": "ratio"}`)
	require.NoError(t, err)

	assert.Equal(t, engine.ScorerRatio, p.Scorer)
	assert.Equal(t, engine.RatioKeywords(), p.Keywords)
}

func TestParsePolicy_Invalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"not json", `{`},
		{"unknown field", `{"bonus_pool": 1}`},
		{"zero hours", `{"standard_annual_hours": 0.0}`},
		{"negative hours", `{"standard_annual_hours": -1}`},
		{"percentile 100", `{"eligibility_percentile": 100}`},
		{"rate above 1", `{"consultant": {"rate": 1.5, "cap": 10}}`},
		{"negative cap", `{"director": {"rate": 0.1, "cap": -1}}`},
		{"unknown scorer", `{"scorer": "sentiment"}`},
		{"empty keyword", `{"keywords": [{"keyword": "", "score": 3}]}`},
		{"keyword score out of range", `{"keywords": [{"keyword": "great", "score": 9}]}`},
	}
	f := factory.NewPolicyFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParsePolicy(tt.json)
			assert.ErrorIs(t, err, engine.ErrInvalidPolicy)
		})
	}
}

func TestToJSON_RoundTrip(t *testing.T) {
	f := factory.NewPolicyFactory()
	want := engine.DefaultPolicy()

	got, err := f.FromJSON(f.ToJSON(want))
	require.NoError(t, err)

	assert.True(t, got.StandardAnnualHours.Equal(want.StandardAnnualHours))
	assert.True(t, got.MinEvaluation.Equal(want.MinEvaluation))
	assert.True(t, got.Consultant.Rate.Equal(want.Consultant.Rate))
	assert.True(t, got.Director.Cap.Equal(want.Director.Cap))
	assert.Equal(t, want.Keywords, got.Keywords)
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"min_evaluation": 4}`), 0o644))

	p, err := factory.NewPolicyFactory().LoadPolicyFile(path)
	require.NoError(t, err)
	assert.True(t, p.MinEvaluation.Equal(decimal.NewFromInt(4)))

	_, err = factory.NewPolicyFactory().LoadPolicyFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
