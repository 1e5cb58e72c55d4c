package models

import "time"

// Settings содержит параметры, которые можно менять во время работы через
// административный API без перезапуска процесса (spec §6 "configuration
// updates").
type Settings struct {
	ID                 int       `json:"id" db:"id"`
	PollIntervalSeconds int      `json:"poll_interval_seconds" db:"poll_interval_seconds"`
	BasePlusStake      float64   `json:"base_plus_stake" db:"base_plus_stake"`
	CoolDownSeconds    int       `json:"cool_down_seconds" db:"cool_down_seconds"`
	NotificationPrefs  NotificationPreferences `json:"notification_prefs" db:"notification_prefs"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// NotificationPreferences включает/выключает классы уведомлений.
type NotificationPreferences struct {
	Placement   bool `json:"placement"`
	TopUp       bool `json:"top_up"`
	Fill        bool `json:"fill"`
	Invalidated bool `json:"invalidated"`
	Cancel      bool `json:"cancel"`
	Error       bool `json:"error"`
	Skip        bool `json:"skip"`
}
