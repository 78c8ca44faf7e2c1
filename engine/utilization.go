package engine

import (
	"github.com/shopspring/decimal"
)

// UtilizationSummary aggregates utilization over the whole roster.
// HasData is false for an empty roster; the totals are then zero.
type UtilizationSummary struct {
	Employees        int
	TotalHours       decimal.Decimal
	TotalUtilization decimal.Decimal
	Average          decimal.Decimal
	HasData          bool
}

// Utilization returns min(round(hours / standardHours * 100, 2), 100).
func Utilization(hours, standardHours decimal.Decimal) decimal.Decimal {
	if !standardHours.IsPositive() {
		return decimal.Zero
	}
	rate := hours.Div(standardHours).Mul(hundred).Round(2)
	return minDecimal(rate, hundred)
}

// CalculateUtilization derives each employee's utilization from the hours
// accumulated by the timesheet stage.
func CalculateUtilization(roster *Roster, p Policy) UtilizationSummary {
	summary := UtilizationSummary{
		TotalHours:       decimal.Zero,
		TotalUtilization: decimal.Zero,
		Average:          decimal.Zero,
	}
	for _, e := range roster.Employees() {
		e.Utilization = Utilization(e.Hours, p.StandardAnnualHours)
		summary.TotalHours = summary.TotalHours.Add(e.Hours)
		summary.TotalUtilization = summary.TotalUtilization.Add(e.Utilization)
		summary.Employees++
	}
	if summary.Employees > 0 {
		summary.HasData = true
		summary.Average = summary.TotalUtilization.Div(decimal.NewFromInt(int64(summary.Employees))).Round(2)
	}
	return summary
}
