package handlers

import (
	"errors"
	"sync"
	"time"

	"github.com/svyatogor45/linekeeper/internal/models"
	"github.com/svyatogor45/linekeeper/internal/repository"
)

// ============ Mock Blacklist Repository ============

type mockBlacklistRepository struct {
	mu      sync.RWMutex
	entries map[string]*models.ExcludedEvent
	nextID  int

	createErr error
	getErr    error
	deleteErr error
	updateErr error
}

func newMockBlacklistRepository() *mockBlacklistRepository {
	return &mockBlacklistRepository{entries: make(map[string]*models.ExcludedEvent), nextID: 1}
}

func (m *mockBlacklistRepository) Create(entry *models.ExcludedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.entries[entry.ReferenceEventID]; exists {
		return repository.ErrExcludedEventExists
	}
	entry.ID = m.nextID
	m.nextID++
	entry.CreatedAt = time.Now()
	m.entries[entry.ReferenceEventID] = entry
	return nil
}

func (m *mockBlacklistRepository) GetAll() ([]*models.ExcludedEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	result := make([]*models.ExcludedEvent, 0, len(m.entries))
	for _, e := range m.entries {
		result = append(result, e)
	}
	return result, nil
}

func (m *mockBlacklistRepository) GetByID(id int) (*models.ExcludedEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, repository.ErrExcludedEventNotFound
}

func (m *mockBlacklistRepository) GetByReferenceEventID(refEventID string) (*models.ExcludedEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, exists := m.entries[refEventID]; exists {
		return e, nil
	}
	return nil, repository.ErrExcludedEventNotFound
}

func (m *mockBlacklistRepository) IsExcluded(refEventID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.entries[refEventID]
	return exists, nil
}

func (m *mockBlacklistRepository) Delete(refEventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, exists := m.entries[refEventID]; !exists {
		return repository.ErrExcludedEventNotFound
	}
	delete(m.entries, refEventID)
	return nil
}

func (m *mockBlacklistRepository) UpdateReason(refEventID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	e, exists := m.entries[refEventID]
	if !exists {
		return repository.ErrExcludedEventNotFound
	}
	e.Reason = reason
	return nil
}

func (m *mockBlacklistRepository) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// ============ Mock Settings Repository ============

type mockSettingsRepository struct {
	mu       sync.RWMutex
	settings *models.Settings
	getErr   error
	updErr   error
}

func newMockSettingsRepository() *mockSettingsRepository {
	return &mockSettingsRepository{
		settings: &models.Settings{
			ID:                  1,
			PollIntervalSeconds: 60,
			BasePlusStake:       100,
			CoolDownSeconds:     300,
			NotificationPrefs: models.NotificationPreferences{
				Placement:   true,
				TopUp:       true,
				Fill:        true,
				Invalidated: true,
				Cancel:      true,
				Error:       true,
				Skip:        false,
			},
			UpdatedAt: time.Now(),
		},
	}
}

func (m *mockSettingsRepository) Get() (*models.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	settingsCopy := *m.settings
	return &settingsCopy, nil
}

func (m *mockSettingsRepository) Update(settings *models.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updErr != nil {
		return m.updErr
	}
	settings.UpdatedAt = time.Now()
	m.settings = settings
	return nil
}

func (m *mockSettingsRepository) UpdateNotificationPrefs(prefs models.NotificationPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updErr != nil {
		return m.updErr
	}
	m.settings.NotificationPrefs = prefs
	return nil
}

// ============ Mock Notification Repository ============

type mockNotificationRepository struct {
	mu            sync.RWMutex
	notifications []*models.Notification
	nextID        int
	createErr     error
	getErr        error
}

func newMockNotificationRepository() *mockNotificationRepository {
	return &mockNotificationRepository{nextID: 1}
}

func (m *mockNotificationRepository) Create(notif *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	notif.ID = m.nextID
	m.nextID++
	if notif.Timestamp.IsZero() {
		notif.Timestamp = time.Now()
	}
	m.notifications = append(m.notifications, notif)
	return nil
}

func (m *mockNotificationRepository) GetRecent(limit int) ([]*models.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	result := append([]*models.Notification{}, m.notifications...)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockNotificationRepository) GetByTypes(types []string, limit int) ([]*models.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}
	result := make([]*models.Notification, 0, len(m.notifications))
	for _, n := range m.notifications {
		if typeSet[n.Type] {
			result = append(result, n)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockNotificationRepository) GetByLineID(lineID string, limit int) ([]*models.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	result := make([]*models.Notification, 0)
	for _, n := range m.notifications {
		if n.LineID != nil && *n.LineID == lineID {
			result = append(result, n)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockNotificationRepository) DeleteAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = nil
	return nil
}

func (m *mockNotificationRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]*models.Notification, 0, len(m.notifications))
	var deleted int64
	for _, n := range m.notifications {
		if n.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	m.notifications = kept
	return deleted, nil
}

// ============ Helper errors for tests ============

var ErrMockDatabase = errors.New("mock database error")
