/*
Package factory provides JSON to Go bonus policy conversion.

PURPOSE:
  Converts a JSON bonus policy into engine.Policy so rates, caps and
  thresholds can change between years without a code change. Every field is
  optional; omitted fields keep the standard company value.

JSON SCHEMA:
  {
    "standard_annual_hours": 2250,
    "eligibility_percentile": 65,
    "min_evaluation": 3.5,
    "consultant": {"rate": 0.10, "cap": 50000},
    "director":   {"rate": 0.15, "cap": 150000},
    "scorer": "keyword",
    "keywords": [
      {"keyword": "excellent", "score": 5},
      {"keyword": "bad", "score": 1}
    ]
  }

VALIDATION:
  standard_annual_hours > 0, 0 < eligibility_percentile < 100,
  0 <= rate <= 1, cap >= 0, scorer in {keyword, ratio}, keyword scores 1..5.
  Failures wrap engine.ErrInvalidPolicy.

KEYWORDS:
  Without "keywords" each scorer uses its own table: engine.DefaultKeywords
  for keyword, engine.RatioKeywords for ratio.

USAGE:
  f := factory.NewPolicyFactory()
  policy, err := f.ParsePolicy(jsonString)

SEE ALSO:
  - engine/policy.go: Policy type definition
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a bonus policy.
type PolicyJSON struct {
	StandardAnnualHours   *float64      `json:"standard_annual_hours,omitempty" validate:"omitempty,gt=0"`
	EligibilityPercentile *int          `json:"eligibility_percentile,omitempty" validate:"omitempty,gt=0,lt=100"`
	MinEvaluation         *float64      `json:"min_evaluation,omitempty" validate:"omitempty,gte=0"`
	Consultant            *RoleRuleJSON `json:"consultant,omitempty"`
	Director              *RoleRuleJSON `json:"director,omitempty"`
	Scorer                string        `json:"scorer,omitempty" validate:"omitempty,oneof=keyword ratio"`
	Keywords              []KeywordJSON `json:"keywords,omitempty" validate:"omitempty,dive"`
}

// RoleRuleJSON is a role's bonus rate (fraction) and cap (currency).
type RoleRuleJSON struct {
	Rate float64 `json:"rate" validate:"gte=0,lte=1"`
	Cap  float64 `json:"cap" validate:"gte=0"`
}

// KeywordJSON is one evaluation keyword. Order is significant.
type KeywordJSON struct {
	Keyword string `json:"keyword" validate:"required"`
	Score   int    `json:"score" validate:"min=1,max=5"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON policies to engine.Policy.
type PolicyFactory struct {
	validate *validator.Validate
}

func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{validate: validator.New()}
}

// ParsePolicy parses a JSON string into a Policy.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (engine.Policy, error) {
	var pj PolicyJSON
	dec := json.NewDecoder(strings.NewReader(jsonStr))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pj); err != nil {
		return engine.Policy{}, fmt.Errorf("%w: failed to parse policy JSON: %v", engine.ErrInvalidPolicy, err)
	}
	return f.FromJSON(pj)
}

// LoadPolicyFile reads and parses a policy file.
func (f *PolicyFactory) LoadPolicyFile(path string) (engine.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Policy{}, fmt.Errorf("read policy %s: %w", path, err)
	}
	return f.ParsePolicy(string(data))
}

// FromJSON validates pj and overlays it on DefaultPolicy.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (engine.Policy, error) {
	if err := f.validate.Struct(&pj); err != nil {
		return engine.Policy{}, fmt.Errorf("%w: %v", engine.ErrInvalidPolicy, err)
	}

	p := engine.DefaultPolicy()
	if pj.StandardAnnualHours != nil {
		p.StandardAnnualHours = decimal.NewFromFloat(*pj.StandardAnnualHours)
	}
	if pj.EligibilityPercentile != nil {
		p.EligibilityPercentile = *pj.EligibilityPercentile
	}
	if pj.MinEvaluation != nil {
		p.MinEvaluation = decimal.NewFromFloat(*pj.MinEvaluation)
	}
	if pj.Consultant != nil {
		p.Consultant = parseRoleRule(*pj.Consultant)
	}
	if pj.Director != nil {
		p.Director = parseRoleRule(*pj.Director)
	}
	if pj.Scorer != "" {
		p.Scorer = engine.ScorerKind(pj.Scorer)
	}
	if p.Scorer == engine.ScorerRatio {
		p.Keywords = engine.RatioKeywords()
	}
	if len(pj.Keywords) > 0 {
		p.Keywords = make([]engine.KeywordScore, len(pj.Keywords))
		for i, k := range pj.Keywords {
			p.Keywords[i] = engine.KeywordScore{Keyword: strings.ToLower(strings.TrimSpace(k.Keyword)), Score: k.Score}
		}
	}
	return p, nil
}

// ToJSON converts a Policy to PolicyJSON with every field set.
func (f *PolicyFactory) ToJSON(p engine.Policy) PolicyJSON {
	hours := p.StandardAnnualHours.InexactFloat64()
	percentile := p.EligibilityPercentile
	minEval := p.MinEvaluation.InexactFloat64()
	consultant := toRoleRuleJSON(p.Consultant)
	director := toRoleRuleJSON(p.Director)

	pj := PolicyJSON{
		StandardAnnualHours:   &hours,
		EligibilityPercentile: &percentile,
		MinEvaluation:         &minEval,
		Consultant:            &consultant,
		Director:              &director,
		Scorer:                string(p.Scorer),
	}
	for _, k := range p.Keywords {
		pj.Keywords = append(pj.Keywords, KeywordJSON{Keyword: k.Keyword, Score: k.Score})
	}
	return pj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseRoleRule(rj RoleRuleJSON) engine.RoleRule {
	return engine.RoleRule{
		Rate: decimal.NewFromFloat(rj.Rate),
		Cap:  decimal.NewFromFloat(rj.Cap),
	}
}

func toRoleRuleJSON(r engine.RoleRule) RoleRuleJSON {
	return RoleRuleJSON{Rate: r.Rate.InexactFloat64(), Cap: r.Cap.InexactFloat64()}
}
