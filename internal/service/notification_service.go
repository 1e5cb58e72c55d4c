package service

import (
	"strings"
	"time"

	"github.com/svyatogor45/linekeeper/internal/models"
)

// NotificationService создает и управляет журналом уведомлений оператора.
//
// Перед сохранением проверяет notification_prefs из настроек - отключенный
// класс уведомлений не попадает в журнал и не идет на WebSocket. После
// сохранения рассылает уведомление всем admin-клиентам через wsHub, если
// он подключен (SetBroadcaster).
type NotificationService struct {
	notificationRepo NotificationRepositoryInterface
	settingsRepo     SettingsRepositoryInterface
	wsHub            WebSocketBroadcaster
}

// NewNotificationService создает новый экземпляр NotificationService.
func NewNotificationService(notifRepo NotificationRepositoryInterface, settingsRepo SettingsRepositoryInterface) *NotificationService {
	return &NotificationService{
		notificationRepo: notifRepo,
		settingsRepo:     settingsRepo,
	}
}

// SetBroadcaster подключает WebSocket hub для push-рассылки новых уведомлений.
func (s *NotificationService) SetBroadcaster(hub WebSocketBroadcaster) {
	s.wsHub = hub
}

// Create сохраняет уведомление, если соответствующий класс включен в
// настройках, и рассылает его подключенным admin-клиентам.
func (s *NotificationService) Create(notif *models.Notification) error {
	enabled, err := s.isEnabled(notif.Type)
	if err != nil {
		// fail-safe: при ошибке чтения настроек уведомление все равно создается,
		// чтобы не потерять сигнал об инциденте из-за сбоя в settings
	} else if !enabled {
		return nil
	}

	if err := s.notificationRepo.Create(notif); err != nil {
		return err
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastNotification(notif)
	}

	return nil
}

// PlacementNotification фиксирует размещение ставки на линии.
func (s *NotificationService) PlacementNotification(lineID, message string, meta map[string]interface{}) error {
	return s.Create(&models.Notification{
		Type:     models.NotificationTypePlacement,
		Severity: models.SeverityInfo,
		LineID:   &lineID,
		Message:  message,
		Meta:     meta,
	})
}

// TopUpNotification фиксирует доливку ставки после частичного сопоставления.
func (s *NotificationService) TopUpNotification(lineID, message string, meta map[string]interface{}) error {
	return s.Create(&models.Notification{
		Type:     models.NotificationTypeTopUp,
		Severity: models.SeverityInfo,
		LineID:   &lineID,
		Message:  message,
		Meta:     meta,
	})
}

// FillNotification фиксирует сопоставление (частичное или полное) ставки.
func (s *NotificationService) FillNotification(lineID, message string, meta map[string]interface{}) error {
	return s.Create(&models.Notification{
		Type:     models.NotificationTypeFill,
		Severity: models.SeverityInfo,
		LineID:   &lineID,
		Message:  message,
		Meta:     meta,
	})
}

// InvalidatedNotification фиксирует инвалидацию линии (пропажа селекшена,
// остановка маркета, исчезновение события на бирже).
func (s *NotificationService) InvalidatedNotification(lineID, message string, meta map[string]interface{}) error {
	return s.Create(&models.Notification{
		Type:     models.NotificationTypeInvalidated,
		Severity: models.SeverityWarn,
		LineID:   &lineID,
		Message:  message,
		Meta:     meta,
	})
}

// CancelNotification фиксирует отмену неисполненной ставки.
func (s *NotificationService) CancelNotification(lineID, message string, meta map[string]interface{}) error {
	return s.Create(&models.Notification{
		Type:     models.NotificationTypeCancel,
		Severity: models.SeverityInfo,
		LineID:   &lineID,
		Message:  message,
		Meta:     meta,
	})
}

// ErrorNotification фиксирует ошибку подсистемы. lineID опционален - общие
// ошибки (например, сбой обращения к источнику котировок) передают nil.
func (s *NotificationService) ErrorNotification(lineID *string, message string, meta map[string]interface{}) error {
	return s.Create(&models.Notification{
		Type:     models.NotificationTypeError,
		Severity: models.SeverityError,
		LineID:   lineID,
		Message:  message,
		Meta:     meta,
	})
}

// SkipNotification фиксирует пропуск цикла на линии (например, из-за
// дедупликации значимого движения или stop margin).
func (s *NotificationService) SkipNotification(lineID, message string, meta map[string]interface{}) error {
	return s.Create(&models.Notification{
		Type:     models.NotificationTypeSkip,
		Severity: models.SeverityInfo,
		LineID:   &lineID,
		Message:  message,
		Meta:     meta,
	})
}

// GetRecent возвращает последние уведомления с фильтрацией по типу.
//
// types пустой означает "без фильтра". limit зажимается в [1, 500],
// по умолчанию 100.
func (s *NotificationService) GetRecent(types []string, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	normalized := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" && isKnownType(t) {
			normalized = append(normalized, t)
		}
	}

	if len(normalized) > 0 {
		return s.notificationRepo.GetByTypes(normalized, limit)
	}

	return s.notificationRepo.GetRecent(limit)
}

// GetByLineID возвращает журнал уведомлений по конкретной линии.
func (s *NotificationService) GetByLineID(lineID string, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.notificationRepo.GetByLineID(lineID, limit)
}

// Clear очищает весь журнал уведомлений.
func (s *NotificationService) Clear() error {
	return s.notificationRepo.DeleteAll()
}

// Prune удаляет уведомления старше retention и возвращает число удаленных
// строк.
func (s *NotificationService) Prune(retention time.Duration) (int64, error) {
	return s.notificationRepo.DeleteOlderThan(time.Now().Add(-retention))
}

func (s *NotificationService) isEnabled(notifType string) (bool, error) {
	prefs, err := s.settingsRepo.Get()
	if err != nil {
		return true, err
	}

	switch notifType {
	case models.NotificationTypePlacement:
		return prefs.NotificationPrefs.Placement, nil
	case models.NotificationTypeTopUp:
		return prefs.NotificationPrefs.TopUp, nil
	case models.NotificationTypeFill:
		return prefs.NotificationPrefs.Fill, nil
	case models.NotificationTypeInvalidated:
		return prefs.NotificationPrefs.Invalidated, nil
	case models.NotificationTypeCancel:
		return prefs.NotificationPrefs.Cancel, nil
	case models.NotificationTypeError:
		return prefs.NotificationPrefs.Error, nil
	case models.NotificationTypeSkip:
		return prefs.NotificationPrefs.Skip, nil
	default:
		return true, nil
	}
}

func isKnownType(t string) bool {
	switch t {
	case models.NotificationTypePlacement, models.NotificationTypeTopUp, models.NotificationTypeFill,
		models.NotificationTypeInvalidated, models.NotificationTypeCancel, models.NotificationTypeError,
		models.NotificationTypeSkip:
		return true
	default:
		return false
	}
}
