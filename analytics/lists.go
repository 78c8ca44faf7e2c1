package analytics

import (
	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/engine"
)

// =============================================================================
// RECOGNITION AND PROBATION
// =============================================================================

// Recognition lists the top performers. Ties are all kept.
type Recognition struct {
	TopUtilization decimal.Decimal
	Consultants    []engine.Employee // Consultants at TopUtilization
	TopSales       decimal.Decimal
	Directors      []engine.Employee // Directors at TopSales
}

// Recognize finds the Consultants with the highest utilization and the
// Directors with the highest sales.
func (s *Snapshot) Recognize() Recognition {
	var r Recognition
	r.TopUtilization, r.Consultants = s.top(engine.RoleConsultant, MetricUtilization)
	r.TopSales, r.Directors = s.top(engine.RoleDirector, MetricSales)
	return r
}

func (s *Snapshot) top(role engine.Role, m Metric) (decimal.Decimal, []engine.Employee) {
	var (
		best decimal.Decimal
		out  []engine.Employee
	)
	for _, e := range s.employees {
		if e.Role != role {
			continue
		}
		v := m.value(e)
		switch {
		case out == nil || v.GreaterThan(best):
			best, out = v, []engine.Employee{e}
		case v.Equal(best):
			out = append(out, e)
		}
	}
	return best, out
}

// Probation is the probation list and the utilization cutoff it used.
type Probation struct {
	Cutoff    decimal.Decimal // mean - sample stddev of all utilizations
	Employees []engine.Employee
}

// ProbationMaxEvaluation is the exclusive evaluation bound for probation.
var ProbationMaxEvaluation = decimal.NewFromInt(1)

// Probation lists Consultants whose utilization is below the cutoff and whose
// evaluation is below ProbationMaxEvaluation. An absent evaluation counts as
// zero. The cutoff is taken over every employee, not only Consultants.
func (s *Snapshot) Probation() Probation {
	utils := make([]decimal.Decimal, len(s.employees))
	for i, e := range s.employees {
		utils[i] = e.Utilization
	}
	cutoff := mean(utils)
	if sd, ok := sampleStdDev(utils); ok {
		cutoff = cutoff.Sub(sd)
	}

	p := Probation{Cutoff: cutoff.Round(2)}
	for _, e := range s.employees {
		if e.Role != engine.RoleConsultant {
			continue
		}
		if e.Utilization.LessThan(cutoff) && MetricEvaluation.value(e).LessThan(ProbationMaxEvaluation) {
			p.Employees = append(p.Employees, e)
		}
	}
	return p
}

// =============================================================================
// SIMULATION
// =============================================================================

// Simulation is a what-if payout at a uniform rate.
type Simulation struct {
	RatePercent decimal.Decimal
	Total       decimal.Decimal
	Consultants int
	Directors   int
	Average     decimal.Decimal // per contributing employee, 2 dp
}

// Simulate computes the payout if every role used ratePercent (e.g. 12.5)
// with the policy's caps. Consultants contribute when their evaluation meets
// the policy minimum, Directors when they have sales. Stored bonuses are not
// changed.
func (s *Snapshot) Simulate(ratePercent decimal.Decimal) Simulation {
	rate := ratePercent.Div(decimal.NewFromInt(100))
	sim := Simulation{RatePercent: ratePercent, Total: decimal.Zero, Average: decimal.Zero}

	for _, e := range s.employees {
		switch e.Role {
		case engine.RoleConsultant:
			if !e.HasEvaluation() || e.Evaluation.Decimal.LessThan(s.policy.MinEvaluation) {
				continue
			}
			sim.Total = sim.Total.Add(s.policy.Consultant.AmountAt(e.BasePay, rate))
			sim.Consultants++
		case engine.RoleDirector:
			if !e.Sales.IsPositive() {
				continue
			}
			sim.Total = sim.Total.Add(s.policy.Director.AmountAt(e.Sales, rate))
			sim.Directors++
		}
	}
	if n := sim.Consultants + sim.Directors; n > 0 {
		sim.Average = sim.Total.Div(decimal.NewFromInt(int64(n))).Round(2)
	}
	return sim
}
