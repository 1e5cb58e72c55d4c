package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/svyatogor45/linekeeper/internal/models"
	"github.com/svyatogor45/linekeeper/internal/wsadmin"
)

// SchedulerController is the subset of *scheduler.Scheduler the admin API
// surfaces. A narrow interface instead of the concrete type keeps this
// handler testable against a fake.
type SchedulerController interface {
	Pairings() map[string]models.EventPairing
	LineStates() map[string]models.LineState
	Positions() map[string]models.LinePosition
	Stats() wsadmin.CycleSummary
	AddOverride(referenceEventID string, exchangeEventID int)
	RemoveOverride(referenceEventID string)
	Start()
	Stop()
	IsRunning() bool
}

// SchedulerHandler exposes the cycle loop's state and controls to the
// admin console.
//
// Endpoints:
// - GET /api/v1/pairings - currently resolved event pairings
// - GET /api/v1/lines - currently tracked LineStates
// - GET /api/v1/positions - per-line Position Store aggregates
// - GET /api/v1/stats - last completed cycle's counters
// - POST /api/v1/overrides - register a manual reference/exchange pairing
// - DELETE /api/v1/overrides/{reference_event_id} - clear a manual pairing
// - POST /api/v1/scheduler/start - resume cycle execution
// - POST /api/v1/scheduler/stop - pause cycle execution
type SchedulerHandler struct {
	scheduler SchedulerController
}

// NewSchedulerHandler создает новый SchedulerHandler с внедрением зависимостей.
func NewSchedulerHandler(scheduler SchedulerController) *SchedulerHandler {
	return &SchedulerHandler{scheduler: scheduler}
}

func (h *SchedulerHandler) GetPairings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scheduler.Pairings())
}

func (h *SchedulerHandler) GetLines(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scheduler.LineStates())
}

func (h *SchedulerHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scheduler.Positions())
}

func (h *SchedulerHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.scheduler.Stats()
	respondJSON(w, http.StatusOK, struct {
		wsadmin.CycleSummary
		Running bool `json:"running"`
	}{CycleSummary: stats, Running: h.scheduler.IsRunning()})
}

type overrideRequest struct {
	ReferenceEventID string `json:"reference_event_id"`
	ExchangeEventID  int    `json:"exchange_event_id"`
}

// AddOverride registers a manual reference/exchange event pairing, read
// fresh by the next cycle's Event Resolver pass.
//
// POST /api/v1/overrides
func (h *SchedulerHandler) AddOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ReferenceEventID == "" {
		respondError(w, http.StatusBadRequest, "reference_event_id is required")
		return
	}

	h.scheduler.AddOverride(req.ReferenceEventID, req.ExchangeEventID)
	respondJSON(w, http.StatusCreated, SuccessResponse{Message: "override registered"})
}

// RemoveOverride clears a manual pairing.
//
// DELETE /api/v1/overrides/{reference_event_id}
func (h *SchedulerHandler) RemoveOverride(w http.ResponseWriter, r *http.Request) {
	refEventID := mux.Vars(r)["reference_event_id"]
	if refEventID == "" {
		respondError(w, http.StatusBadRequest, "reference_event_id is required")
		return
	}

	h.scheduler.RemoveOverride(refEventID)
	w.WriteHeader(http.StatusNoContent)
}

// Start resumes cycle execution.
//
// POST /api/v1/scheduler/start
func (h *SchedulerHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Start()
	respondJSON(w, http.StatusOK, SuccessResponse{Message: "scheduler started"})
}

// Stop pauses cycle execution; the currently running cycle, if any, still
// completes.
//
// POST /api/v1/scheduler/stop
func (h *SchedulerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Stop()
	respondJSON(w, http.StatusOK, SuccessResponse{Message: "scheduler stopped"})
}
