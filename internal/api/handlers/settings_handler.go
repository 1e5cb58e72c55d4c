package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/svyatogor45/linekeeper/internal/service"
)

// SettingsHandler отвечает за runtime-настройки, изменяемые без
// перезапуска процесса (цикл опроса, размер доливки, cool-down,
// предпочтения по уведомлениям).
//
// Endpoints:
// - GET /api/v1/settings - получение настроек
// - PATCH /api/v1/settings - обновление настроек (частичное)
type SettingsHandler struct {
	settingsService *service.SettingsService
}

// NewSettingsHandler создает новый SettingsHandler.
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// GetSettings возвращает текущие настройки.
//
// GET /api/v1/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsService.GetSettings()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}

	respondJSON(w, http.StatusOK, settings)
}

// UpdateSettings обновляет только переданные поля настроек.
//
// PATCH /api/v1/settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings, err := h.settingsService.UpdateSettings(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPollInterval), errors.Is(err, service.ErrInvalidBasePlusStake):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "failed to update settings")
		}
		return
	}

	respondJSON(w, http.StatusOK, settings)
}
