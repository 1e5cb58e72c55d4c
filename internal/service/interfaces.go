package service

import (
	"time"

	"github.com/svyatogor45/linekeeper/internal/models"
	"github.com/svyatogor45/linekeeper/internal/repository"
)

// BlacklistRepositoryInterface определяет интерфейс репозитория исключённых событий.
type BlacklistRepositoryInterface interface {
	Create(entry *models.ExcludedEvent) error
	GetAll() ([]*models.ExcludedEvent, error)
	GetByID(id int) (*models.ExcludedEvent, error)
	GetByReferenceEventID(refEventID string) (*models.ExcludedEvent, error)
	IsExcluded(refEventID string) (bool, error)
	Delete(refEventID string) error
	UpdateReason(refEventID, reason string) error
	Count() (int, error)
}

// SettingsRepositoryInterface определяет интерфейс репозитория runtime-настроек.
type SettingsRepositoryInterface interface {
	Get() (*models.Settings, error)
	Update(settings *models.Settings) error
	UpdateNotificationPrefs(prefs models.NotificationPreferences) error
}

// NotificationRepositoryInterface определяет интерфейс репозитория уведомлений.
type NotificationRepositoryInterface interface {
	Create(notif *models.Notification) error
	GetRecent(limit int) ([]*models.Notification, error)
	GetByTypes(types []string, limit int) ([]*models.Notification, error)
	GetByLineID(lineID string, limit int) ([]*models.Notification, error)
	DeleteAll() error
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// WebSocketBroadcaster абстрагирует push-уведомления на admin-консоль так,
// чтобы сервис уведомлений не зависел от конкретной реализации хаба.
type WebSocketBroadcaster interface {
	BroadcastNotification(notif *models.Notification)
}

// Проверяем, что реальные репозитории реализуют интерфейсы.
var _ BlacklistRepositoryInterface = (*repository.BlacklistRepository)(nil)
var _ SettingsRepositoryInterface = (*repository.SettingsRepository)(nil)
var _ NotificationRepositoryInterface = (*repository.NotificationRepository)(nil)
