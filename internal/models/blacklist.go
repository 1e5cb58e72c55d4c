package models

import "time"

// ExcludedEvent — событие источника котировок, исключённое оператором из
// репликации независимо от результата Event Resolver. Используется, когда
// событие сопоставляется корректно, но оператор по иной причине не хочет
// выставлять на нём ликвидность (например, подозрение на договорной матч).
type ExcludedEvent struct {
	ID               int       `json:"id" db:"id"`
	ReferenceEventID string    `json:"reference_event_id" db:"reference_event_id"`
	Reason           string    `json:"reason" db:"reason"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
