package analytics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/engine"
)

// Metric names a numeric employee field.
type Metric string

const (
	MetricUtilization Metric = "utilization"
	MetricEvaluation  Metric = "evaluation"
	MetricSales       Metric = "sales"
	MetricBonus       Metric = "bonus"
)

// Metrics lists metrics in report order.
var Metrics = []Metric{MetricUtilization, MetricEvaluation, MetricSales, MetricBonus}

func (m Metric) value(e engine.Employee) decimal.Decimal {
	switch m {
	case MetricUtilization:
		return e.Utilization
	case MetricEvaluation:
		if !e.HasEvaluation() {
			return decimal.Zero
		}
		return e.Evaluation.Decimal
	case MetricSales:
		return e.Sales
	case MetricBonus:
		return e.Bonus
	default:
		return decimal.Zero
	}
}

// Stats describes the positive values of one metric. HasData is false when
// no value is positive; StdDev is invalid below two values. Mean, Median and
// StdDev are rounded to two decimals.
type Stats struct {
	Metric  Metric
	HasData bool
	Count   int
	Mean    decimal.Decimal
	Median  decimal.Decimal
	StdDev  decimal.NullDecimal
	Min     decimal.Decimal
	Max     decimal.Decimal
}

// Describe computes statistics over the strictly positive values of m.
func (s *Snapshot) Describe(m Metric) Stats {
	var values []decimal.Decimal
	for _, e := range s.employees {
		if v := m.value(e); v.IsPositive() {
			values = append(values, v)
		}
	}
	stats := describe(values)
	stats.Metric = m
	return stats
}

// DescribeAll returns Describe for every metric in Metrics order.
func (s *Snapshot) DescribeAll() []Stats {
	out := make([]Stats, len(Metrics))
	for i, m := range Metrics {
		out[i] = s.Describe(m)
	}
	return out
}

func describe(values []decimal.Decimal) Stats {
	if len(values) == 0 {
		return Stats{Mean: decimal.Zero, Median: decimal.Zero, Min: decimal.Zero, Max: decimal.Zero}
	}
	sorted := append([]decimal.Decimal(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	n := len(sorted)
	stats := Stats{
		HasData: true,
		Count:   n,
		Mean:    mean(sorted).Round(2),
		Min:     sorted[0],
		Max:     sorted[n-1],
	}
	if n%2 == 1 {
		stats.Median = sorted[n/2]
	} else {
		stats.Median = sorted[n/2-1].Add(sorted[n/2]).Div(decimal.NewFromInt(2))
	}
	stats.Median = stats.Median.Round(2)
	if sd, ok := sampleStdDev(sorted); ok {
		stats.StdDev = decimal.NewNullDecimal(sd.Round(2))
	}
	return stats
}

func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(decimal.Zero, values...).Div(decimal.NewFromInt(int64(len(values))))
}

// sampleStdDev is the n-1 standard deviation; ok is false below two values.
func sampleStdDev(values []decimal.Decimal) (decimal.Decimal, bool) {
	if len(values) < 2 {
		return decimal.Zero, false
	}
	m := mean(values)
	sumSq := decimal.Zero
	for _, v := range values {
		d := v.Sub(m)
		sumSq = sumSq.Add(d.Mul(d))
	}
	variance := sumSq.Div(decimal.NewFromInt(int64(len(values) - 1)))
	return decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64())), true
}
