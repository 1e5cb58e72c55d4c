package service

import (
	"errors"

	"github.com/svyatogor45/linekeeper/internal/models"
	"github.com/svyatogor45/linekeeper/pkg/utils"
)

// Ошибки сервиса настроек.
var (
	ErrInvalidPollInterval = errors.New("poll_interval_seconds must be >= 5")
	ErrInvalidBasePlusStake = errors.New("base_plus_stake must be > 0")
)

// SettingsService предоставляет бизнес-логику для управления runtime-
// настройками, изменяемыми через административный API без перезапуска
// процесса (цикл опроса, размер доливки, cool-down, предпочтения по
// уведомлениям).
type SettingsService struct {
	settingsRepo SettingsRepositoryInterface
}

// NewSettingsService создает новый экземпляр SettingsService.
func NewSettingsService(settingsRepo SettingsRepositoryInterface) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
	}
}

// GetSettings возвращает текущие настройки.
//
// Если записи в БД нет, создается запись с дефолтными значениями.
func (s *SettingsService) GetSettings() (*models.Settings, error) {
	return s.settingsRepo.Get()
}

// UpdateSettingsRequest представляет запрос на обновление настроек.
// Все поля опциональны - обновляются только переданные.
type UpdateSettingsRequest struct {
	PollIntervalSeconds *int                             `json:"poll_interval_seconds,omitempty"`
	BasePlusStake       *float64                         `json:"base_plus_stake,omitempty"`
	CoolDownSeconds     *int                             `json:"cool_down_seconds,omitempty"`
	NotificationPrefs   *models.NotificationPreferences  `json:"notification_prefs,omitempty"`
}

// UpdateSettings обновляет настройки, принимая только переданные поля.
func (s *SettingsService) UpdateSettings(req *UpdateSettingsRequest) (*models.Settings, error) {
	settings, err := s.settingsRepo.Get()
	if err != nil {
		return nil, err
	}

	if req.PollIntervalSeconds != nil {
		if err := utils.ValidatePollIntervalSeconds(*req.PollIntervalSeconds); err != nil {
			return nil, ErrInvalidPollInterval
		}
		settings.PollIntervalSeconds = *req.PollIntervalSeconds
	}

	if req.BasePlusStake != nil {
		if err := utils.ValidateStakeAmount(*req.BasePlusStake); err != nil {
			return nil, ErrInvalidBasePlusStake
		}
		settings.BasePlusStake = *req.BasePlusStake
	}

	if req.CoolDownSeconds != nil {
		settings.CoolDownSeconds = *req.CoolDownSeconds
	}

	if req.NotificationPrefs != nil {
		settings.NotificationPrefs = *req.NotificationPrefs
	}

	if err := s.settingsRepo.Update(settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// UpdateNotificationPrefs обновляет только настройки уведомлений.
func (s *SettingsService) UpdateNotificationPrefs(prefs models.NotificationPreferences) error {
	return s.settingsRepo.UpdateNotificationPrefs(prefs)
}

// GetNotificationPrefs возвращает только настройки уведомлений.
func (s *SettingsService) GetNotificationPrefs() (*models.NotificationPreferences, error) {
	settings, err := s.settingsRepo.Get()
	if err != nil {
		return nil, err
	}
	return &settings.NotificationPrefs, nil
}
