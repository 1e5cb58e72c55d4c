package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/svyatogor45/linekeeper/internal/models"
)

// SettingsRepository работает с таблицей settings - единственной строкой
// (id=1) runtime-конфигурации, изменяемой через административный API без
// перезапуска процесса.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository создает новый экземпляр репозитория.
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func defaultNotificationPrefs() models.NotificationPreferences {
	return models.NotificationPreferences{
		Placement:   true,
		TopUp:       true,
		Fill:        true,
		Invalidated: true,
		Cancel:      true,
		Error:       true,
		Skip:        false,
	}
}

// Get возвращает текущие настройки, создавая строку по умолчанию при первом
// обращении.
func (r *SettingsRepository) Get() (*models.Settings, error) {
	query := `
		SELECT id, poll_interval_seconds, base_plus_stake, cool_down_seconds, notification_prefs, updated_at
		FROM settings WHERE id = 1`

	var s models.Settings
	var prefsJSON []byte
	err := r.db.QueryRow(query).Scan(&s.ID, &s.PollIntervalSeconds, &s.BasePlusStake, &s.CoolDownSeconds, &prefsJSON, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r.createDefault()
	}
	if err != nil {
		return nil, err
	}

	if len(prefsJSON) > 0 {
		if err := json.Unmarshal(prefsJSON, &s.NotificationPrefs); err != nil {
			return nil, err
		}
	}

	return &s, nil
}

func (r *SettingsRepository) createDefault() (*models.Settings, error) {
	prefs := defaultNotificationPrefs()
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return nil, err
	}

	s := &models.Settings{
		PollIntervalSeconds: 60,
		BasePlusStake:       100,
		CoolDownSeconds:     300,
		NotificationPrefs:   prefs,
		UpdatedAt:           time.Now(),
	}

	query := `
		INSERT INTO settings (id, poll_interval_seconds, base_plus_stake, cool_down_seconds, notification_prefs, updated_at)
		VALUES (1, $1, $2, $3, $4, $5)`
	_, err = r.db.Exec(query, s.PollIntervalSeconds, s.BasePlusStake, s.CoolDownSeconds, prefsJSON, s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	s.ID = 1
	return s, nil
}

// Update persists the full settings row.
func (r *SettingsRepository) Update(s *models.Settings) error {
	prefsJSON, err := json.Marshal(s.NotificationPrefs)
	if err != nil {
		return err
	}

	s.UpdatedAt = time.Now()
	query := `
		UPDATE settings
		SET poll_interval_seconds = $1, base_plus_stake = $2, cool_down_seconds = $3,
		    notification_prefs = $4, updated_at = $5
		WHERE id = 1`
	_, err = r.db.Exec(query, s.PollIntervalSeconds, s.BasePlusStake, s.CoolDownSeconds, prefsJSON, s.UpdatedAt)
	return err
}

// UpdateNotificationPrefs обновляет только preferences уведомлений.
func (r *SettingsRepository) UpdateNotificationPrefs(prefs models.NotificationPreferences) error {
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return err
	}

	query := `UPDATE settings SET notification_prefs = $1, updated_at = $2 WHERE id = 1`
	_, err = r.db.Exec(query, prefsJSON, time.Now())
	return err
}
