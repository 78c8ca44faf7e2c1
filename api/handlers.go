/*
handlers.go - HTTP API handlers for the bonus query server

PURPOSE:
  Exposes the latest completed run via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the analytics
  layer. The server never runs the pipeline itself.

ENDPOINTS:
  Employees:
    GET    /api/employees?id=&name=&job=  Search employees
    GET    /api/employees/{id}            Get one employee

  Analytics:
    GET    /api/analytics                 Descriptive statistics
    GET    /api/recognition               Top performers and probation list
    GET    /api/simulate?rate=            What-if payout at rate%

  Errors:
    GET    /api/errors                    Error ledger entries
    GET    /api/errors/report             Error ledger as text

  Runs:
    GET    /api/runs/latest               Metadata of the served run
    GET    /api/runs?limit=               Run history
    POST   /api/runs/reload               Reload the latest run from the store

  Scenarios:
    GET    /api/scenarios                 List demo data sets
    GET    /api/scenarios/current         Loaded demo data set, if any
    POST   /api/scenarios/load            Run the pipeline over a demo data set

  Other:
    GET    /api/policy                    Policy in effect
    GET    /api/export.xlsx               Final dataset as a workbook

ARCHITECTURE:
  Handler serves an immutable analytics.Snapshot held in an atomic pointer.
  Reload swaps the pointer; requests in flight keep the snapshot they
  started with.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors
  - 503: No completed run loaded yet

SEE ALSO:
  - dto.go: Response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/bonus-engine/analytics"
	"github.com/warp/bonus-engine/config"
	"github.com/warp/bonus-engine/engine"
	"github.com/warp/bonus-engine/factory"
	"github.com/warp/bonus-engine/report"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// RunLister lists run history, newest first.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]engine.RunInfo, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Logger logrus.FieldLogger

	// Reload builds a fresh snapshot. Nil disables POST /api/runs/reload.
	Reload func(ctx context.Context) (*analytics.Snapshot, error)

	// Runs serves GET /api/runs. Nil when the server has no store.
	Runs RunLister

	// Policy is used when running demo scenarios.
	Policy engine.Policy

	Now func() time.Time

	snapshot      atomic.Pointer[analytics.Snapshot]
	scenarioMu    sync.Mutex
	scenario      string
	policyFactory *factory.PolicyFactory
	validate      *validator.Validate
}

// NewHandler creates a handler serving snap, which may be nil until a run
// completes.
func NewHandler(snap *analytics.Snapshot, log logrus.FieldLogger) *Handler {
	h := &Handler{
		Logger:        log,
		Policy:        engine.DefaultPolicy(),
		Now:           time.Now,
		policyFactory: factory.NewPolicyFactory(),
		validate:      validator.New(),
	}
	h.SetSnapshot(snap)
	return h
}

// SetSnapshot replaces the served snapshot and clears the loaded scenario.
func (h *Handler) SetSnapshot(snap *analytics.Snapshot) {
	h.setSnapshot(snap, "")
}

func (h *Handler) setSnapshot(snap *analytics.Snapshot, scenario string) {
	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()
	h.snapshot.Store(snap)
	h.scenario = scenario
}

// Snapshot returns the served snapshot, or nil.
func (h *Handler) Snapshot() *analytics.Snapshot {
	return h.snapshot.Load()
}

// current writes 503 and returns nil when no run is loaded.
func (h *Handler) current(w http.ResponseWriter) *analytics.Snapshot {
	snap := h.snapshot.Load()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "No completed run available", nil)
	}
	return snap
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees searches employees. Parameters are ANDed; none returns all.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := SearchParams{
		Name:    strings.TrimSpace(q.Get("name")),
		JobCode: strings.TrimSpace(q.Get("job")),
	}
	if raw := strings.TrimSpace(q.Get("id")); raw != "" {
		id, ok := engine.ParseEmployeeID(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid employee ID", fmt.Errorf("id %q is not a positive integer", raw))
			return
		}
		params.ID = int64(id)
	}
	if err := h.validate.Struct(&params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid search", err)
		return
	}

	snap := h.current(w)
	if snap == nil {
		return
	}

	found := snap.Search(analytics.Query{
		ID:      engine.EmployeeID(params.ID),
		Name:    params.Name,
		JobCode: params.JobCode,
	})
	writeJSON(w, http.StatusOK, toEmployeeDTOs(found))
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, ok := engine.ParseEmployeeID(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid employee ID", fmt.Errorf("id %q is not a positive integer", raw))
		return
	}

	snap := h.current(w)
	if snap == nil {
		return
	}

	e, ok := snap.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(e))
}

// =============================================================================
// ANALYTICS HANDLERS
// =============================================================================

// GetAnalytics returns descriptive statistics for every metric.
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	snap := h.current(w)
	if snap == nil {
		return
	}

	all := snap.DescribeAll()
	stats := make([]StatsDTO, len(all))
	for i, s := range all {
		stats[i] = toStatsDTO(s)
	}
	writeJSON(w, http.StatusOK, AnalyticsResponse{Run: toRunDTO(snap.Run()), Stats: stats})
}

// GetRecognition returns top performers and the probation list.
func (h *Handler) GetRecognition(w http.ResponseWriter, r *http.Request) {
	snap := h.current(w)
	if snap == nil {
		return
	}

	rec := snap.Recognize()
	prob := snap.Probation()
	writeJSON(w, http.StatusOK, RecognitionResponse{
		Recognition: RecognitionDTO{
			TopUtilization: money(rec.TopUtilization),
			Consultants:    toEmployeeDTOs(rec.Consultants),
			TopSales:       money(rec.TopSales),
			Directors:      toEmployeeDTOs(rec.Directors),
		},
		Probation: ProbationDTO{
			Cutoff:    money(prob.Cutoff),
			Employees: toEmployeeDTOs(prob.Employees),
		},
	})
}

var maxRatePercent = decimal.NewFromInt(100)

// Simulate computes a what-if payout. rate is a percentage in [0, 100].
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	params := SimulateParams{Rate: strings.TrimSpace(r.URL.Query().Get("rate"))}
	if err := h.validate.Struct(&params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate", err)
		return
	}
	rate, err := decimal.NewFromString(params.Rate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate", err)
		return
	}
	if rate.IsNegative() || rate.GreaterThan(maxRatePercent) {
		writeError(w, http.StatusBadRequest, "Invalid rate", fmt.Errorf("rate %s outside [0, 100]", rate))
		return
	}

	snap := h.current(w)
	if snap == nil {
		return
	}

	sim := snap.Simulate(rate)
	writeJSON(w, http.StatusOK, SimulationDTO{
		RatePercent: sim.RatePercent.String(),
		Total:       money(sim.Total),
		Consultants: sim.Consultants,
		Directors:   sim.Directors,
		Average:     money(sim.Average),
	})
}

// =============================================================================
// ERROR LEDGER HANDLERS
// =============================================================================

// GetErrors returns the error ledger of the served run.
func (h *Handler) GetErrors(w http.ResponseWriter, r *http.Request) {
	snap := h.current(w)
	if snap == nil {
		return
	}

	ledger := snap.Ledger()
	resp := ErrorsResponse{
		Counts:     make(map[string]int),
		MissingIDs: []int64{},
		Entries:    []LedgerEntryDTO{},
	}
	for c, n := range ledger.Counts() {
		resp.Counts[string(c)] = n
	}
	for _, id := range ledger.MissingIDs() {
		resp.MissingIDs = append(resp.MissingIDs, int64(id))
	}
	for _, e := range ledger.Entries() {
		resp.Entries = append(resp.Entries, toLedgerEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetErrorReport renders the error ledger in the error.txt format.
func (h *Handler) GetErrorReport(w http.ResponseWriter, r *http.Request) {
	snap := h.current(w)
	if snap == nil {
		return
	}

	generatedAt := snap.Run().FinishedAt
	if generatedAt.IsZero() {
		generatedAt = h.Now()
	}

	var buf bytes.Buffer
	if err := snap.Ledger().WriteReport(&buf, generatedAt); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render error report", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// GetLatestRun returns the metadata of the served run.
func (h *Handler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	snap := h.current(w)
	if snap == nil {
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(snap.Run()))
}

// ListRuns returns run history, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	params := RunsParams{Limit: 20}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		params.Limit = n
	}
	if err := h.validate.Struct(&params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	if h.Runs == nil {
		writeError(w, http.StatusNotFound, "Run history not available", nil)
		return
	}
	runs, err := h.Runs.ListRuns(r.Context(), params.Limit)
	if err != nil {
		h.logError("ListRuns", err)
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReloadRun swaps in the latest run from the store.
func (h *Handler) ReloadRun(w http.ResponseWriter, r *http.Request) {
	if h.Reload == nil {
		writeError(w, http.StatusNotFound, "Reload not available", nil)
		return
	}

	snap, err := h.Reload(r.Context())
	if errors.Is(err, engine.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No completed run found", err)
		return
	}
	if err != nil {
		h.logError("ReloadRun", err)
		writeError(w, http.StatusInternalServerError, "Failed to reload run", err)
		return
	}

	h.SetSnapshot(snap)
	h.Logger.WithFields(logrus.Fields{
		"run_id":    snap.Run().ID,
		"employees": snap.Len(),
	}).Info("snapshot reloaded")
	writeJSON(w, http.StatusOK, toRunDTO(snap.Run()))
}

// =============================================================================
// POLICY AND EXPORT HANDLERS
// =============================================================================

// GetPolicy returns the policy used by the served run.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	snap := h.current(w)
	if snap == nil {
		return
	}
	writeJSON(w, http.StatusOK, h.policyFactory.ToJSON(snap.Policy()))
}

const workbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportWorkbook returns the final dataset as an Excel workbook.
func (h *Handler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	snap := h.current(w)
	if snap == nil {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, snap.Employees()); err != nil {
		h.logError("ExportWorkbook", err)
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}
	w.Header().Set("Content-Type", workbookContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.WorkbookFile))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) logError(funcName string, err error) {
	config.LogError(h.Logger, "api", funcName, "request failed", nil, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
