package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/svyatogor45/linekeeper/internal/service"
)

// BlacklistHandler отвечает за операторское исключение событий источника
// котировок из репликации.
//
// Endpoints:
// - GET /api/v1/excluded-events - список исключённых событий
// - POST /api/v1/excluded-events - исключить событие
// - DELETE /api/v1/excluded-events/{reference_event_id} - вернуть событие в репликацию
type BlacklistHandler struct {
	blacklistService *service.BlacklistService
}

// NewBlacklistHandler создает новый BlacklistHandler с внедрением зависимостей.
func NewBlacklistHandler(blacklistService *service.BlacklistService) *BlacklistHandler {
	return &BlacklistHandler{blacklistService: blacklistService}
}

type excludeEventRequest struct {
	ReferenceEventID string `json:"reference_event_id"`
	Reason           string `json:"reason"`
}

type excludedEventResponse struct {
	ID               int    `json:"id"`
	ReferenceEventID string `json:"reference_event_id"`
	Reason           string `json:"reason"`
	CreatedAt        string `json:"created_at"`
}

type excludedEventsResponse struct {
	Events []excludedEventResponse `json:"events"`
	Total  int                     `json:"total"`
}

// GetExcludedEvents возвращает все исключённые события.
//
// GET /api/v1/excluded-events
func (h *BlacklistHandler) GetExcludedEvents(w http.ResponseWriter, r *http.Request) {
	entries, err := h.blacklistService.GetAll()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get excluded events")
		return
	}

	resp := excludedEventsResponse{
		Events: make([]excludedEventResponse, 0, len(entries)),
		Total:  len(entries),
	}
	for _, e := range entries {
		resp.Events = append(resp.Events, excludedEventResponse{
			ID:               e.ID,
			ReferenceEventID: e.ReferenceEventID,
			Reason:           e.Reason,
			CreatedAt:        e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

// ExcludeEvent исключает событие источника котировок из репликации.
//
// POST /api/v1/excluded-events
func (h *BlacklistHandler) ExcludeEvent(w http.ResponseWriter, r *http.Request) {
	var req excludeEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.blacklistService.Exclude(req.ReferenceEventID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExcludedEventIDEmpty):
			respondError(w, http.StatusBadRequest, "reference_event_id is required")
		case errors.Is(err, service.ErrExcludedEventExists):
			respondError(w, http.StatusConflict, "event already excluded")
		default:
			respondError(w, http.StatusInternalServerError, "failed to exclude event")
		}
		return
	}

	respondJSON(w, http.StatusCreated, excludedEventResponse{
		ID:               entry.ID,
		ReferenceEventID: entry.ReferenceEventID,
		Reason:           entry.Reason,
		CreatedAt:        entry.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

// IncludeEvent возвращает событие обратно в репликацию.
//
// DELETE /api/v1/excluded-events/{reference_event_id}
func (h *BlacklistHandler) IncludeEvent(w http.ResponseWriter, r *http.Request) {
	refEventID := mux.Vars(r)["reference_event_id"]
	if refEventID == "" {
		respondError(w, http.StatusBadRequest, "reference_event_id is required")
		return
	}

	if err := h.blacklistService.Include(refEventID); err != nil {
		switch {
		case errors.Is(err, service.ErrExcludedEventIDEmpty):
			respondError(w, http.StatusBadRequest, "reference_event_id is required")
		case errors.Is(err, service.ErrExcludedEventMissing):
			respondError(w, http.StatusNotFound, "event not excluded")
		default:
			respondError(w, http.StatusInternalServerError, "failed to include event")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
