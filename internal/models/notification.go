package models

import "time"

// Notification — событие, достойное внимания оператора: размещение,
// топ-ап, инвалидация, ошибка подсистемы.
type Notification struct {
	ID        int                    `json:"id" db:"id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	Type      string                 `json:"type" db:"type"`
	Severity  string                 `json:"severity" db:"severity"`
	LineID    *string                `json:"line_id,omitempty" db:"line_id"`
	Message   string                 `json:"message" db:"message"`
	Meta      map[string]interface{} `json:"meta,omitempty" db:"meta"`
}

// Типы уведомлений.
const (
	NotificationTypePlacement   = "PLACEMENT"
	NotificationTypeTopUp       = "TOP_UP"
	NotificationTypeFill        = "FILL"
	NotificationTypeInvalidated = "INVALIDATED"
	NotificationTypeCancel      = "CANCEL"
	NotificationTypeError       = "ERROR"
	NotificationTypeSkip        = "SKIP"
)

// Уровни важности.
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)
