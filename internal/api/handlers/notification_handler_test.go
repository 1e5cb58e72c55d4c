package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/svyatogor45/linekeeper/internal/models"
	"github.com/svyatogor45/linekeeper/internal/service"
)

func newTestNotificationHandler() (*NotificationHandler, *mockNotificationRepository) {
	notifRepo := newMockNotificationRepository()
	settingsRepo := newMockSettingsRepository()
	svc := service.NewNotificationService(notifRepo, settingsRepo)
	return NewNotificationHandler(svc), notifRepo
}

func addTestNotification(repo *mockNotificationRepository, notifType string) {
	repo.notifications = append(repo.notifications, &models.Notification{
		Type:     notifType,
		Severity: models.SeverityInfo,
		Message:  "test",
	})
}

func TestNotificationHandler_GetNotifications(t *testing.T) {
	t.Run("returns empty list when no notifications", func(t *testing.T) {
		handler, _ := newTestNotificationHandler()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
		w := httptest.NewRecorder()

		handler.GetNotifications(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response notificationsResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Total != 0 || len(response.Notifications) != 0 {
			t.Errorf("expected empty response, got %+v", response)
		}
	})

	t.Run("returns existing notifications", func(t *testing.T) {
		handler, repo := newTestNotificationHandler()
		addTestNotification(repo, models.NotificationTypePlacement)
		addTestNotification(repo, models.NotificationTypeFill)
		addTestNotification(repo, models.NotificationTypeError)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
		w := httptest.NewRecorder()

		handler.GetNotifications(w, req)

		var response notificationsResponse
		json.NewDecoder(w.Body).Decode(&response)
		if response.Total != 3 {
			t.Errorf("expected total 3, got %d", response.Total)
		}
	})

	t.Run("filters by types", func(t *testing.T) {
		handler, repo := newTestNotificationHandler()
		addTestNotification(repo, models.NotificationTypePlacement)
		addTestNotification(repo, models.NotificationTypeCancel)
		addTestNotification(repo, models.NotificationTypeError)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?types=placement,cancel", nil)
		w := httptest.NewRecorder()

		handler.GetNotifications(w, req)

		var response notificationsResponse
		json.NewDecoder(w.Body).Decode(&response)
		if response.Total != 2 {
			t.Errorf("expected total 2 (filtered), got %d", response.Total)
		}
	})

	t.Run("respects limit parameter", func(t *testing.T) {
		handler, repo := newTestNotificationHandler()
		for i := 0; i < 10; i++ {
			addTestNotification(repo, models.NotificationTypePlacement)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=5", nil)
		w := httptest.NewRecorder()

		handler.GetNotifications(w, req)

		var response notificationsResponse
		json.NewDecoder(w.Body).Decode(&response)
		if response.Total != 5 {
			t.Errorf("expected total 5 (limited), got %d", response.Total)
		}
	})

	t.Run("returns 500 on repository error", func(t *testing.T) {
		handler, repo := newTestNotificationHandler()
		repo.getErr = ErrMockDatabase

		req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
		w := httptest.NewRecorder()

		handler.GetNotifications(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})
}

func TestNotificationHandler_GetByLineID(t *testing.T) {
	handler, repo := newTestNotificationHandler()
	lineID := "line-1"
	other := "line-2"
	repo.notifications = []*models.Notification{
		{Type: models.NotificationTypeFill, LineID: &lineID},
		{Type: models.NotificationTypeFill, LineID: &other},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/line-1", nil)
	w := httptest.NewRecorder()

	handler.GetByLineID(w, req, "line-1")

	var response notificationsResponse
	json.NewDecoder(w.Body).Decode(&response)
	if response.Total != 1 {
		t.Errorf("expected 1 notification for line-1, got %d", response.Total)
	}
}

func TestNotificationHandler_ClearNotifications(t *testing.T) {
	handler, repo := newTestNotificationHandler()
	addTestNotification(repo, models.NotificationTypePlacement)
	addTestNotification(repo, models.NotificationTypeCancel)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/notifications", nil)
	w := httptest.NewRecorder()

	handler.ClearNotifications(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if len(repo.notifications) != 0 {
		t.Errorf("expected 0 notifications after clear, got %d", len(repo.notifications))
	}
}

func TestNotificationHandler_DefaultLimit(t *testing.T) {
	handler, repo := newTestNotificationHandler()
	for i := 0; i < 150; i++ {
		addTestNotification(repo, models.NotificationTypePlacement)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	w := httptest.NewRecorder()

	handler.GetNotifications(w, req)

	var response notificationsResponse
	json.NewDecoder(w.Body).Decode(&response)
	if response.Total != 100 {
		t.Errorf("expected default limit 100, got %d", response.Total)
	}
}
