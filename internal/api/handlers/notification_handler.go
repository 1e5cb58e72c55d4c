package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/svyatogor45/linekeeper/internal/models"
	"github.com/svyatogor45/linekeeper/internal/service"
)

// NotificationHandler отвечает за журнал уведомлений оператора.
//
// Endpoints:
// - GET /api/v1/notifications - список уведомлений, с фильтрацией по типу
// - GET /api/v1/notifications/{line_id} - журнал по конкретной линии
// - DELETE /api/v1/notifications - очистка журнала
type NotificationHandler struct {
	notificationService *service.NotificationService
}

// NewNotificationHandler создает новый NotificationHandler.
func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

type notificationDTO struct {
	ID        int                    `json:"id"`
	Timestamp string                 `json:"timestamp"`
	Type      string                 `json:"type"`
	Severity  string                 `json:"severity"`
	LineID    *string                `json:"line_id,omitempty"`
	Message   string                 `json:"message"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

type notificationsResponse struct {
	Notifications []notificationDTO `json:"notifications"`
	Total         int               `json:"total"`
}

// GetNotifications возвращает последние уведомления, опционально
// отфильтрованные по типу (query-параметр types, через запятую).
//
// GET /api/v1/notifications?types=fill,error&limit=50
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	var types []string
	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if t := strings.TrimSpace(part); t != "" {
				types = append(types, strings.ToUpper(t))
			}
		}
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	notifications, err := h.notificationService.GetRecent(types, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get notifications")
		return
	}

	respondJSON(w, http.StatusOK, toNotificationsResponse(notifications))
}

// GetByLineID возвращает журнал уведомлений по конкретной линии.
//
// GET /api/v1/notifications/{line_id}
func (h *NotificationHandler) GetByLineID(w http.ResponseWriter, r *http.Request, lineID string) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	notifications, err := h.notificationService.GetByLineID(lineID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get notifications")
		return
	}

	respondJSON(w, http.StatusOK, toNotificationsResponse(notifications))
}

// ClearNotifications очищает весь журнал уведомлений.
//
// DELETE /api/v1/notifications
func (h *NotificationHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	if err := h.notificationService.Clear(); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to clear notifications")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "notifications cleared"})
}

func toNotificationsResponse(notifications []*models.Notification) notificationsResponse {
	resp := notificationsResponse{
		Notifications: make([]notificationDTO, 0, len(notifications)),
		Total:         len(notifications),
	}
	for _, n := range notifications {
		resp.Notifications = append(resp.Notifications, notificationDTO{
			ID:        n.ID,
			Timestamp: n.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			Type:      n.Type,
			Severity:  n.Severity,
			LineID:    n.LineID,
			Message:   n.Message,
			Meta:      n.Meta,
		})
	}
	return resp
}
