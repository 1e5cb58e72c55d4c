package service

import (
	"time"

	"github.com/svyatogor45/linekeeper/internal/models"
	"github.com/svyatogor45/linekeeper/internal/repository"
)

// ============ Mock BlacklistRepository ============

type MockBlacklistRepository struct {
	entries   map[string]*models.ExcludedEvent
	createErr error
	getErr    error
	deleteErr error
	existsErr error
	updateErr error
	nextID    int
}

func NewMockBlacklistRepository() *MockBlacklistRepository {
	return &MockBlacklistRepository{
		entries: make(map[string]*models.ExcludedEvent),
		nextID:  1,
	}
}

func (m *MockBlacklistRepository) Create(entry *models.ExcludedEvent) error {
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

func (m *MockBlacklistRepository) GetAll() ([]*models.ExcludedEvent, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	result := make([]*models.ExcludedEvent, 0, len(m.entries))
	for _, e := range m.entries {
		result = append(result, e)
	}
	return result, nil
}

func (m *MockBlacklistRepository) GetByID(id int) (*models.ExcludedEvent, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, repository.ErrExcludedEventNotFound
}

func (m *MockBlacklistRepository) GetByReferenceEventID(refEventID string) (*models.ExcludedEvent, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if entry, exists := m.entries[refEventID]; exists {
		return entry, nil
	}
	return nil, repository.ErrExcludedEventNotFound
}

func (m *MockBlacklistRepository) IsExcluded(refEventID string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, exists := m.entries[refEventID]
	return exists, nil
}

func (m *MockBlacklistRepository) Delete(refEventID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, exists := m.entries[refEventID]; !exists {
		return repository.ErrExcludedEventNotFound
	}
	delete(m.entries, refEventID)
	return nil
}

func (m *MockBlacklistRepository) UpdateReason(refEventID, reason string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if entry, exists := m.entries[refEventID]; exists {
		entry.Reason = reason
		return nil
	}
	return repository.ErrExcludedEventNotFound
}

func (m *MockBlacklistRepository) Count() (int, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	return len(m.entries), nil
}

// ============ Mock SettingsRepository ============

type MockSettingsRepository struct {
	settings  *models.Settings
	getErr    error
	updateErr error
}

func NewMockSettingsRepository() *MockSettingsRepository {
	return &MockSettingsRepository{
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

func (m *MockSettingsRepository) Get() (*models.Settings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.settings, nil
}

func (m *MockSettingsRepository) Update(settings *models.Settings) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.settings = settings
	m.settings.UpdatedAt = time.Now()
	return nil
}

func (m *MockSettingsRepository) UpdateNotificationPrefs(prefs models.NotificationPreferences) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.settings.NotificationPrefs = prefs
	m.settings.UpdatedAt = time.Now()
	return nil
}

// ============ Mock NotificationRepository ============

type MockNotificationRepository struct {
	notifications []*models.Notification
	createErr     error
	getErr        error
	deleteErr     error
	nextID        int
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make([]*models.Notification, 0),
		nextID:        1,
	}
}

func (m *MockNotificationRepository) Create(n *models.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	n.ID = m.nextID
	m.nextID++
	n.Timestamp = time.Now()
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *MockNotificationRepository) GetRecent(limit int) ([]*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if limit <= 0 || limit > len(m.notifications) {
		limit = len(m.notifications)
	}
	start := len(m.notifications) - limit
	if start < 0 {
		start = 0
	}
	return m.notifications[start:], nil
}

func (m *MockNotificationRepository) GetByTypes(types []string, limit int) ([]*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}
	var result []*models.Notification
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

func (m *MockNotificationRepository) GetByLineID(lineID string, limit int) ([]*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.Notification
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

func (m *MockNotificationRepository) DeleteAll() error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.notifications = make([]*models.Notification, 0)
	return nil
}

func (m *MockNotificationRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	var kept []*models.Notification
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

// ============ Mock WebSocket Broadcaster ============

type MockWebSocketBroadcaster struct {
	notifications []*models.Notification
}

func NewMockWebSocketBroadcaster() *MockWebSocketBroadcaster {
	return &MockWebSocketBroadcaster{
		notifications: make([]*models.Notification, 0),
	}
}

func (m *MockWebSocketBroadcaster) BroadcastNotification(notif *models.Notification) {
	m.notifications = append(m.notifications, notif)
}
