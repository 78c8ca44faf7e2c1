/*
policy.go - Bonus policy: rates, caps and thresholds

PURPOSE:
  Holds every tunable constant of the annual bonus pass in one value so the
  stages stay free of magic numbers. DefaultPolicy reproduces the standard
  company rules; factory/policy.go builds a Policy from JSON.

DEFAULT RULES:
  Utilization:  hours / 2250 * 100, rounded to 2 dp, capped at 100
  Consultant:   utilization >= 65th percentile of Consultants
                AND evaluation present AND evaluation >= 3.5
                bonus = min(base_pay * 0.10, 50000)
  Director:     always evaluated
                bonus = min(sales * 0.15, 150000)
  Other roles:  no bonus

SEE ALSO:
  - bonus.go: Applies the rules
  - evaluation.go: Scorer selected by Policy.Scorer
  - factory/policy.go: JSON representation
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// ScorerKind selects the evaluation scoring algorithm for a run.
type ScorerKind string

const (
	// ScorerKeyword maps the first matching keyword to a fixed score (1..5).
	ScorerKeyword ScorerKind = "keyword"
	// ScorerRatio divides positive by negative keyword hits (ceiling 10.0).
	ScorerRatio ScorerKind = "ratio"
)

// RoleRule is the bonus rate and cap of one role.
type RoleRule struct {
	Rate decimal.Decimal
	Cap  decimal.Decimal
}

// Amount returns min(basis * Rate, Cap).
func (r RoleRule) Amount(basis decimal.Decimal) decimal.Decimal {
	return minDecimal(basis.Mul(r.Rate), r.Cap)
}

// AmountAt returns min(basis * rate, Cap) for an arbitrary rate.
func (r RoleRule) AmountAt(basis, rate decimal.Decimal) decimal.Decimal {
	return minDecimal(basis.Mul(rate), r.Cap)
}

// Policy configures one bonus pass.
type Policy struct {
	StandardAnnualHours   decimal.Decimal
	EligibilityPercentile int // 0 < p < 100
	MinEvaluation         decimal.Decimal

	Consultant RoleRule
	Director   RoleRule

	Scorer   ScorerKind
	Keywords []KeywordScore // ordered; first match wins for ScorerKeyword; empty uses the scorer's own table
}

// Rule returns the bonus rule of a role. ok is false for roles that never
// receive a bonus.
func (p Policy) Rule(role Role) (RoleRule, bool) {
	switch role {
	case RoleConsultant:
		return p.Consultant, true
	case RoleDirector:
		return p.Director, true
	default:
		return RoleRule{}, false
	}
}

// DefaultKeywords is the discrete evaluation keyword table in match order.
func DefaultKeywords() []KeywordScore {
	return []KeywordScore{
		{Keyword: "excellent", Score: 5},
		{Keyword: "good", Score: 4},
		{Keyword: "average", Score: 3},
		{Keyword: "poor", Score: 2},
		{Keyword: "bad", Score: 1},
	}
}

// RatioKeywords is the keyword table of the ratio scorer. Scores of 4 and
// above count as positive hits.
func RatioKeywords() []KeywordScore {
	return []KeywordScore{
		{Keyword: "excellent", Score: 5},
		{Keyword: "good", Score: 4},
		{Keyword: "dependable", Score: 4},
		{Keyword: "prompt", Score: 4},
		{Keyword: "poor", Score: 2},
		{Keyword: "error", Score: 2},
		{Keyword: "unreliable", Score: 2},
		{Keyword: "late", Score: 2},
	}
}

// DefaultPolicy returns the standard company bonus rules.
func DefaultPolicy() Policy {
	return Policy{
		StandardAnnualHours:   decimal.NewFromInt(2250),
		EligibilityPercentile: 65,
		MinEvaluation:         decimal.RequireFromString("3.5"),
		Consultant: RoleRule{
			Rate: decimal.RequireFromString("0.10"),
			Cap:  decimal.NewFromInt(50000),
		},
		Director: RoleRule{
			Rate: decimal.RequireFromString("0.15"),
			Cap:  decimal.NewFromInt(150000),
		},
		Scorer:   ScorerKeyword,
		Keywords: DefaultKeywords(),
	}
}
