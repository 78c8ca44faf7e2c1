/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Params: Query string types from clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

NUMBERS:
  Money, hours and percentages are rendered as decimal strings so clients
  never see float rounding. An absent evaluation or threshold is null.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: PolicyJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/analytics"
	"github.com/warp/bonus-engine/engine"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// SearchParams are the query parameters of GET /api/employees.
type SearchParams struct {
	ID      int64  `validate:"gte=0"`
	Name    string `validate:"max=200"`
	JobCode string `validate:"omitempty,max=16"`
}

// SimulateParams are the query parameters of GET /api/simulate.
type SimulateParams struct {
	Rate string `validate:"required,numeric"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// RunsParams are the query parameters of GET /api/runs.
type RunsParams struct {
	Limit int `validate:"gte=1,lte=100"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID          int64   `json:"id"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	JobCode     string  `json:"jobCode"`
	Role        string  `json:"role"`
	BasePay     string  `json:"basePay"`
	Hours       string  `json:"hours"`
	Utilization string  `json:"utilization"`
	Evaluation  *string `json:"evaluation"`
	Sales       string  `json:"sales"`
	Bonus       string  `json:"bonus"`
	Eligible    bool    `json:"eligible"`
}

// RunDTO describes one pipeline run.
type RunDTO struct {
	ID                 string    `json:"id"`
	StartedAt          time.Time `json:"startedAt"`
	FinishedAt         time.Time `json:"finishedAt"`
	Employees          int       `json:"employees"`
	LedgerEntries      int       `json:"ledgerEntries"`
	SkippedStages      []string  `json:"skippedStages"`
	AverageUtilization string    `json:"averageUtilization"`
	Threshold          *string   `json:"threshold"`
	TotalPayout        string    `json:"totalPayout"`
}

// StatsDTO is the description of one metric.
type StatsDTO struct {
	Metric  string  `json:"metric"`
	HasData bool    `json:"hasData"`
	Count   int     `json:"count"`
	Mean    string  `json:"mean"`
	Median  string  `json:"median"`
	StdDev  *string `json:"stdDev"`
	Min     string  `json:"min"`
	Max     string  `json:"max"`
}

// AnalyticsResponse is returned by GET /api/analytics.
type AnalyticsResponse struct {
	Run   RunDTO     `json:"run"`
	Stats []StatsDTO `json:"stats"`
}

// RecognitionDTO lists top performers.
type RecognitionDTO struct {
	TopUtilization string        `json:"topUtilization"`
	Consultants    []EmployeeDTO `json:"consultants"`
	TopSales       string        `json:"topSales"`
	Directors      []EmployeeDTO `json:"directors"`
}

// ProbationDTO lists Consultants on probation.
type ProbationDTO struct {
	Cutoff    string        `json:"cutoff"`
	Employees []EmployeeDTO `json:"employees"`
}

// RecognitionResponse is returned by GET /api/recognition.
type RecognitionResponse struct {
	Recognition RecognitionDTO `json:"recognition"`
	Probation   ProbationDTO   `json:"probation"`
}

// LedgerEntryDTO is one error ledger record.
type LedgerEntryDTO struct {
	Category   string `json:"category"`
	EmployeeID int64  `json:"employeeId"`
	Line       int    `json:"line,omitempty"`
	Source     string `json:"source"`
	Reason     string `json:"reason"`
}

// ErrorsResponse is returned by GET /api/errors.
type ErrorsResponse struct {
	Counts     map[string]int   `json:"counts"`
	MissingIDs []int64          `json:"missingIds"`
	Entries    []LedgerEntryDTO `json:"entries"`
}

// SimulationDTO is a what-if payout.
type SimulationDTO struct {
	RatePercent string `json:"ratePercent"`
	Total       string `json:"total"`
	Consultants int    `json:"consultants"`
	Directors   int    `json:"directors"`
	Average     string `json:"average"`
}

// ScenarioDTO describes a demo data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioResponse is returned by POST /api/scenarios/load.
type LoadScenarioResponse struct {
	Scenario ScenarioDTO `json:"scenario"`
	Run      RunDTO      `json:"run"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func nullString(d decimal.NullDecimal, places int32) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(places)
	return &s
}

func toEmployeeDTO(e engine.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:          int64(e.ID),
		FirstName:   e.FirstName,
		LastName:    e.LastName,
		JobCode:     e.JobCode,
		Role:        string(e.Role),
		BasePay:     money(e.BasePay),
		Hours:       e.Hours.String(),
		Utilization: money(e.Utilization),
		Evaluation:  nullString(e.Evaluation, 1),
		Sales:       money(e.Sales),
		Bonus:       money(e.Bonus),
		Eligible:    e.Eligible,
	}
}

func toEmployeeDTOs(emps []engine.Employee) []EmployeeDTO {
	dtos := make([]EmployeeDTO, len(emps))
	for i, e := range emps {
		dtos[i] = toEmployeeDTO(e)
	}
	return dtos
}

func toRunDTO(run engine.RunInfo) RunDTO {
	skipped := run.SkippedStages
	if skipped == nil {
		skipped = []string{}
	}
	return RunDTO{
		ID:                 string(run.ID),
		StartedAt:          run.StartedAt,
		FinishedAt:         run.FinishedAt,
		Employees:          run.Employees,
		LedgerEntries:      run.LedgerEntries,
		SkippedStages:      skipped,
		AverageUtilization: money(run.AverageUtilization),
		Threshold:          nullString(run.Threshold, 2),
		TotalPayout:        money(run.TotalPayout),
	}
}

func toStatsDTO(s analytics.Stats) StatsDTO {
	return StatsDTO{
		Metric:  string(s.Metric),
		HasData: s.HasData,
		Count:   s.Count,
		Mean:    money(s.Mean),
		Median:  money(s.Median),
		StdDev:  nullString(s.StdDev, 2),
		Min:     money(s.Min),
		Max:     money(s.Max),
	}
}

func toLedgerEntryDTO(e engine.Entry) LedgerEntryDTO {
	return LedgerEntryDTO{
		Category:   string(e.Category),
		EmployeeID: int64(e.EmployeeID),
		Line:       e.Line,
		Source:     e.Source,
		Reason:     e.Reason,
	}
}
