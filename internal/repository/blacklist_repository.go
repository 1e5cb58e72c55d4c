package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/svyatogor45/linekeeper/internal/models"
)

// Ошибки репозитория исключённых событий.
var (
	ErrExcludedEventNotFound = errors.New("excluded event not found")
	ErrExcludedEventExists   = errors.New("reference event already excluded")
)

// BlacklistRepository работает с таблицей excluded_events - операторским
// списком событий, выведенных из репликации независимо от Event Resolver.
type BlacklistRepository struct {
	db *sql.DB
}

// NewBlacklistRepository создает новый экземпляр репозитория.
func NewBlacklistRepository(db *sql.DB) *BlacklistRepository {
	return &BlacklistRepository{db: db}
}

// Create исключает событие источника котировок из репликации.
func (r *BlacklistRepository) Create(entry *models.ExcludedEvent) error {
	query := `
		INSERT INTO excluded_events (reference_event_id, reason, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	entry.CreatedAt = time.Now()

	err := r.db.QueryRow(
		query,
		entry.ReferenceEventID,
		entry.Reason,
		entry.CreatedAt,
	).Scan(&entry.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrExcludedEventExists
		}
		return err
	}

	return nil
}

// GetAll возвращает все исключённые события.
func (r *BlacklistRepository) GetAll() ([]*models.ExcludedEvent, error) {
	query := `
		SELECT id, reference_event_id, reason, created_at
		FROM excluded_events
		ORDER BY created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.ExcludedEvent
	for rows.Next() {
		entry := &models.ExcludedEvent{}
		if err := rows.Scan(&entry.ID, &entry.ReferenceEventID, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// GetByID возвращает запись по ID.
func (r *BlacklistRepository) GetByID(id int) (*models.ExcludedEvent, error) {
	query := `
		SELECT id, reference_event_id, reason, created_at
		FROM excluded_events
		WHERE id = $1`

	entry := &models.ExcludedEvent{}
	err := r.db.QueryRow(query, id).Scan(&entry.ID, &entry.ReferenceEventID, &entry.Reason, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExcludedEventNotFound
		}
		return nil, err
	}

	return entry, nil
}

// GetByReferenceEventID возвращает исключение по идентификатору события
// источника, если оно существует.
func (r *BlacklistRepository) GetByReferenceEventID(refEventID string) (*models.ExcludedEvent, error) {
	query := `
		SELECT id, reference_event_id, reason, created_at
		FROM excluded_events
		WHERE reference_event_id = $1`

	entry := &models.ExcludedEvent{}
	err := r.db.QueryRow(query, refEventID).Scan(&entry.ID, &entry.ReferenceEventID, &entry.Reason, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExcludedEventNotFound
		}
		return nil, err
	}

	return entry, nil
}

// IsExcluded сообщает, исключено ли событие оператором - используется
// каждый цикл перед тем, как Event Resolver вообще рассматривает событие.
func (r *BlacklistRepository) IsExcluded(refEventID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM excluded_events WHERE reference_event_id = $1)`

	var exists bool
	err := r.db.QueryRow(query, refEventID).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// Delete возвращает событие обратно в репликацию, удаляя исключение.
func (r *BlacklistRepository) Delete(refEventID string) error {
	query := `DELETE FROM excluded_events WHERE reference_event_id = $1`

	result, err := r.db.Exec(query, refEventID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrExcludedEventNotFound
	}

	return nil
}

// UpdateReason обновляет причину исключения.
func (r *BlacklistRepository) UpdateReason(refEventID, reason string) error {
	query := `
		UPDATE excluded_events
		SET reason = $1
		WHERE reference_event_id = $2`

	result, err := r.db.Exec(query, reason, refEventID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrExcludedEventNotFound
	}

	return nil
}

// Count возвращает количество исключённых событий.
func (r *BlacklistRepository) Count() (int, error) {
	query := `SELECT COUNT(*) FROM excluded_events`

	var count int
	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "23505")
}
