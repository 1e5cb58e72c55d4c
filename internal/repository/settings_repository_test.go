package repository

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/svyatogor45/linekeeper/internal/models"
)

func TestNewSettingsRepository(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewSettingsRepository(db)
	if repo == nil || repo.db != db {
		t.Fatal("NewSettingsRepository did not wire db correctly")
	}
}

func TestSettingsRepositoryGet_Existing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	prefsJSON, _ := json.Marshal(defaultNotificationPrefs())
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "poll_interval_seconds", "base_plus_stake", "cool_down_seconds", "notification_prefs", "updated_at"}).
		AddRow(1, 60, 100.0, 300, prefsJSON, now)
	mock.ExpectQuery(`SELECT .+ FROM settings WHERE id = 1`).WillReturnRows(rows)

	repo := NewSettingsRepository(db)
	s, err := repo.Get()
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if s.PollIntervalSeconds != 60 || s.BasePlusStake != 100 {
		t.Errorf("unexpected settings: %+v", s)
	}
}

func TestSettingsRepositoryGet_CreatesDefault(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM settings WHERE id = 1`).WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO settings`).
		WithArgs(60, 100.0, 300, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewSettingsRepository(db)
	s, err := repo.Get()
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if s.ID != 1 || s.PollIntervalSeconds != 60 {
		t.Errorf("expected default settings, got %+v", s)
	}
}

func TestSettingsRepositoryUpdateNotificationPrefs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE settings SET notification_prefs`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewSettingsRepository(db)
	prefs := models.NotificationPreferences{Placement: true}
	if err := repo.UpdateNotificationPrefs(prefs); err != nil {
		t.Fatalf("UpdateNotificationPrefs returned error: %v", err)
	}
}
