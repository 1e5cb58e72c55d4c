package service

import (
	"errors"
	"testing"

	"github.com/svyatogor45/linekeeper/internal/models"
)

func TestSettingsService_GetSettings(t *testing.T) {
	svc := NewSettingsService(NewMockSettingsRepository())
	settings, err := svc.GetSettings()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.PollIntervalSeconds != 60 {
		t.Errorf("expected default poll interval 60, got %d", settings.PollIntervalSeconds)
	}
}

func TestSettingsService_UpdateSettings(t *testing.T) {
	tests := []struct {
		name    string
		req     *UpdateSettingsRequest
		setup   func(*MockSettingsRepository)
		check   func(*testing.T, *models.Settings)
		wantErr error
	}{
		{
			name: "обновление poll_interval_seconds",
			req:  &UpdateSettingsRequest{PollIntervalSeconds: intPtr(30)},
			check: func(t *testing.T, s *models.Settings) {
				if s.PollIntervalSeconds != 30 {
					t.Errorf("expected 30, got %d", s.PollIntervalSeconds)
				}
			},
		},
		{
			name:    "невалидный poll_interval_seconds",
			req:     &UpdateSettingsRequest{PollIntervalSeconds: intPtr(1)},
			wantErr: ErrInvalidPollInterval,
		},
		{
			name:    "невалидный base_plus_stake",
			req:     &UpdateSettingsRequest{BasePlusStake: float64Ptr(0)},
			wantErr: ErrInvalidBasePlusStake,
		},
		{
			name: "обновление notification_prefs",
			req: &UpdateSettingsRequest{
				NotificationPrefs: &models.NotificationPreferences{Skip: true},
			},
			check: func(t *testing.T, s *models.Settings) {
				if !s.NotificationPrefs.Skip {
					t.Error("expected Skip to be true")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockSettingsRepository()
			if tt.setup != nil {
				tt.setup(repo)
			}

			svc := NewSettingsService(repo)
			settings, err := svc.UpdateSettings(tt.req)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, settings)
			}
		})
	}
}

func TestSettingsService_GetNotificationPrefs(t *testing.T) {
	svc := NewSettingsService(NewMockSettingsRepository())
	prefs, err := svc.GetNotificationPrefs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !prefs.Placement {
		t.Error("expected placement notifications enabled by default")
	}
}

func intPtr(i int) *int          { return &i }
func float64Ptr(f float64) *float64 { return &f }
