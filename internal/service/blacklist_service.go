package service

import (
	"errors"
	"strings"

	"github.com/svyatogor45/linekeeper/internal/models"
	"github.com/svyatogor45/linekeeper/internal/repository"
	"github.com/svyatogor45/linekeeper/pkg/utils"
)

// Ошибки сервиса исключённых событий.
var (
	ErrExcludedEventIDEmpty = errors.New("reference_event_id cannot be empty")
	ErrExcludedEventExists  = errors.New("event already excluded")
	ErrExcludedEventMissing = errors.New("excluded event not found")
)

// BlacklistService предоставляет бизнес-логику для оператора, исключающего
// события источника котировок из репликации.
//
// Список носит ОПЕРАТОРСКИЙ характер - это ручное решение, отдельное от
// автоматического сопоставления Event Resolver. Планировщик обязан
// проверять IsExcluded перед тем как вообще рассматривать событие.
type BlacklistService struct {
	blacklistRepo BlacklistRepositoryInterface
}

// NewBlacklistService создает новый экземпляр BlacklistService.
func NewBlacklistService(blacklistRepo BlacklistRepositoryInterface) *BlacklistService {
	return &BlacklistService{
		blacklistRepo: blacklistRepo,
	}
}

// Exclude исключает событие источника котировок из репликации.
func (s *BlacklistService) Exclude(refEventID, reason string) (*models.ExcludedEvent, error) {
	refEventID = strings.TrimSpace(refEventID)
	if err := utils.ValidateEventID(refEventID); err != nil {
		return nil, ErrExcludedEventIDEmpty
	}

	already, err := s.blacklistRepo.IsExcluded(refEventID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, ErrExcludedEventExists
	}

	entry := &models.ExcludedEvent{
		ReferenceEventID: refEventID,
		Reason:           strings.TrimSpace(reason),
	}

	if err := s.blacklistRepo.Create(entry); err != nil {
		if errors.Is(err, repository.ErrExcludedEventExists) {
			return nil, ErrExcludedEventExists
		}
		return nil, err
	}

	return entry, nil
}

// GetAll возвращает все исключённые события, от новых к старым.
func (s *BlacklistService) GetAll() ([]*models.ExcludedEvent, error) {
	entries, err := s.blacklistRepo.GetAll()
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.ExcludedEvent{}
	}
	return entries, nil
}

// GetByID возвращает запись по внутреннему ID.
func (s *BlacklistService) GetByID(id int) (*models.ExcludedEvent, error) {
	entry, err := s.blacklistRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrExcludedEventNotFound) {
			return nil, ErrExcludedEventMissing
		}
		return nil, err
	}
	return entry, nil
}

// Include возвращает событие обратно в репликацию, удаляя исключение.
func (s *BlacklistService) Include(refEventID string) error {
	refEventID = strings.TrimSpace(refEventID)
	if err := utils.ValidateEventID(refEventID); err != nil {
		return ErrExcludedEventIDEmpty
	}

	if err := s.blacklistRepo.Delete(refEventID); err != nil {
		if errors.Is(err, repository.ErrExcludedEventNotFound) {
			return ErrExcludedEventMissing
		}
		return err
	}

	return nil
}

// IsExcluded проверяет, исключено ли событие оператором.
//
// Вызывается планировщиком каждый цикл перед тем, как событие вообще
// попадает на вход Event Resolver.
func (s *BlacklistService) IsExcluded(refEventID string) (bool, error) {
	refEventID = strings.TrimSpace(refEventID)
	if err := utils.ValidateEventID(refEventID); err != nil {
		return false, ErrExcludedEventIDEmpty
	}
	return s.blacklistRepo.IsExcluded(refEventID)
}

// UpdateReason обновляет причину исключения.
func (s *BlacklistService) UpdateReason(refEventID, reason string) error {
	refEventID = strings.TrimSpace(refEventID)
	if err := utils.ValidateEventID(refEventID); err != nil {
		return ErrExcludedEventIDEmpty
	}

	if err := s.blacklistRepo.UpdateReason(refEventID, strings.TrimSpace(reason)); err != nil {
		if errors.Is(err, repository.ErrExcludedEventNotFound) {
			return ErrExcludedEventMissing
		}
		return err
	}

	return nil
}

// GetCount возвращает количество исключённых событий.
func (s *BlacklistService) GetCount() (int, error) {
	return s.blacklistRepo.Count()
}
