/*
scenarios.go - Demo data sets for testing and demonstrations

PURPOSE:

	Provides built-in input feeds that exercise specific behaviours of the
	bonus pass. Loading a scenario runs the full pipeline over in-memory
	feeds and serves the result in place of the stored run.

AVAILABLE SCENARIOS:

	year-end-sample: Clean data set with an eligible Consultant and a capped Director
	messy-feeds:     Every error ledger section populated
	directors-only:  No Consultants, so no eligibility threshold
	roster-only:     Activity feeds missing, stages degrade to empty

HOW SCENARIOS WORK:
 1. Look up the scenario feeds
 2. Run the pipeline with the handler's policy and no sinks
 3. Swap the result in as the served snapshot

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "messy-feeds"}

ADDING NEW SCENARIOS:
 1. Add an entry to 'scenarios' with ID, name, description and feeds

NOTE:

	Scenarios never write to the store or the output files. The refresh
	scheduler replaces a loaded scenario once a new batch run is stored.

SEE ALSO:
  - handlers.go: Handler and snapshot swapping
  - source/memory.go: In-memory feeds
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/bonus-engine/analytics"
	"github.com/warp/bonus-engine/engine"
	"github.com/warp/bonus-engine/source"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

const rosterHeader = "ID,FirstName,LastName,JobCode,BasePay\n"

type scenario struct {
	ScenarioDTO
	feeds source.Memory
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "year-end-sample",
			Name:        "Year-End Sample",
			Description: "Clean feeds: one eligible Consultant, one capped Director",
		},
		feeds: source.Memory{
			engine.SourceRoster: rosterHeader +
				"1,Ann,Lee,C,50000\n" +
				"2,Bob,Ray,C,60000\n" +
				"3,Cara,Diaz,D,100000\n" +
				"4,Dan,Moe,C,70000\n" +
				"5,Eve,Fox,X,40000\n",
			engine.SourceTimesheet:  "1,2250\n2,1125\n4,2000\n4,500\n",
			engine.SourceEvaluation: "1#Excellent work all year\n2#good communicator\n4#late and poor quality\n",
			engine.SourceSales:      "3,2000000\n",
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "messy-feeds",
			Name:        "Messy Feeds",
			Description: "Duplicates, gaps, unknown identities and malformed lines in every feed",
		},
		feeds: source.Memory{
			engine.SourceRoster: rosterHeader +
				"1,Ann,Lee,C,50000\n" +
				"2,Bob,Ray,C,60000\n" +
				"2,Bob,Ray,C,61000\n" +
				"4,Dan,Moe,D,70000\n" +
				"5,Eve,Fox,C,not-a-number\n",
			engine.SourceTimesheet:  "1,2000\n2,1800\n9,40\nabc,10\n",
			engine.SourceEvaluation: "1#good and prompt\n2#average\n8#excellent\n",
			engine.SourceSales:      "4,300000\n1,500\n7,100\n",
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "directors-only",
			Name:        "Directors Only",
			Description: "No Consultants: no eligibility threshold, Directors still paid",
		},
		feeds: source.Memory{
			engine.SourceRoster: rosterHeader +
				"1,Ines,Ortiz,D,120000\n" +
				"2,Yuki,Sato,D,110000\n",
			engine.SourceTimesheet:  "",
			engine.SourceEvaluation: "",
			engine.SourceSales:      "1,500000\n2,2000000\n",
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "roster-only",
			Name:        "Roster Only",
			Description: "Timesheet, evaluation and sales feeds missing",
		},
		feeds: source.Memory{
			engine.SourceRoster: rosterHeader +
				"1,Ann,Lee,C,50000\n" +
				"2,Cara,Diaz,D,100000\n",
		},
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	id := h.scenario
	h.scenarioMu.Unlock()

	if s, ok := findScenario(id); ok {
		writeJSON(w, http.StatusOK, s.ScenarioDTO)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario runs the pipeline over a scenario's feeds and serves the
// result.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	pipeline := engine.NewPipeline(h.Policy, h.Logger.WithField("scenario", s.ID))
	pipeline.Now = h.Now
	res, err := pipeline.Run(r.Context(), s.feeds)
	if err != nil {
		status := http.StatusInternalServerError
		if r.Context().Err() != nil {
			status = http.StatusServiceUnavailable
		}
		h.logError("LoadScenario", err)
		writeError(w, status, "Failed to run scenario", err)
		return
	}

	snap := analytics.NewSnapshot(res.Run, res.Employees, res.Ledger, h.Policy)
	h.setSnapshot(snap, s.ID)
	writeJSON(w, http.StatusOK, LoadScenarioResponse{
		Scenario: s.ScenarioDTO,
		Run:      toRunDTO(res.Run),
	})
}
