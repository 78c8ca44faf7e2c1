package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// EligibilityOutcome summarizes one bonus pass.
type EligibilityOutcome struct {
	// Threshold is the Consultant utilization percentile. Valid is false when
	// there is no Consultant population.
	Threshold decimal.NullDecimal

	Consultants         int
	EligibleConsultants int
	Directors           int

	ConsultantPayout decimal.Decimal
	DirectorPayout   decimal.Decimal
}

// HasPopulation reports whether a Consultant percentile could be computed.
func (o EligibilityOutcome) HasPopulation() bool { return o.Threshold.Valid }

// TotalPayout is the sum of all bonuses.
func (o EligibilityOutcome) TotalPayout() decimal.Decimal {
	return o.ConsultantPayout.Add(o.DirectorPayout)
}

// Percentile returns the value at index floor(len(values) * p / 100) of the
// ascending-sorted values. It does not interpolate. values is not modified.
func Percentile(values []decimal.Decimal, p int) (decimal.Decimal, error) {
	if len(values) == 0 {
		return decimal.Zero, ErrNoEligiblePopulation
	}
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	index := len(sorted) * p / 100
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index], nil
}

// ApplyBonuses determines eligibility and bonus amounts for every employee.
//
// Bonus and Eligible are recomputed from scratch, so repeated calls on the
// same roster give identical results. With no Consultants the outcome has no
// threshold and no Consultant receives a bonus.
func ApplyBonuses(roster *Roster, p Policy) EligibilityOutcome {
	outcome := EligibilityOutcome{
		ConsultantPayout: decimal.Zero,
		DirectorPayout:   decimal.Zero,
	}

	consultants := roster.ByRole(RoleConsultant)
	utilizations := make([]decimal.Decimal, len(consultants))
	for i, e := range consultants {
		utilizations[i] = e.Utilization
	}
	outcome.Consultants = len(consultants)
	if threshold, err := Percentile(utilizations, p.EligibilityPercentile); err == nil {
		outcome.Threshold = decimal.NewNullDecimal(threshold)
	}

	for _, e := range roster.Employees() {
		e.Bonus = decimal.Zero
		e.Eligible = false

		switch e.Role {
		case RoleConsultant:
			if !consultantEligible(e, outcome.Threshold, p) {
				continue
			}
			e.Eligible = true
			e.Bonus = p.Consultant.Amount(e.BasePay)
			outcome.EligibleConsultants++
			outcome.ConsultantPayout = outcome.ConsultantPayout.Add(e.Bonus)
		case RoleDirector:
			e.Eligible = true
			e.Bonus = p.Director.Amount(e.Sales)
			outcome.Directors++
			outcome.DirectorPayout = outcome.DirectorPayout.Add(e.Bonus)
		}
	}
	return outcome
}

func consultantEligible(e *Employee, threshold decimal.NullDecimal, p Policy) bool {
	if !threshold.Valid || !e.HasEvaluation() {
		return false
	}
	return e.Utilization.GreaterThanOrEqual(threshold.Decimal) &&
		e.Evaluation.Decimal.GreaterThanOrEqual(p.MinEvaluation)
}
