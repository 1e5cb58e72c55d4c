package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/svyatogor45/linekeeper/internal/models"
)

// NotificationRepository работает с таблицей notifications - журналом
// событий, достойных внимания оператора (размещения, топ-апы, инвалидации,
// ошибки подсистем).
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создает новый экземпляр репозитория.
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create сохраняет новое уведомление.
func (r *NotificationRepository) Create(n *models.Notification) error {
	var metaJSON []byte
	var err error
	if n.Meta != nil {
		metaJSON, err = json.Marshal(n.Meta)
		if err != nil {
			return err
		}
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	query := `
		INSERT INTO notifications (timestamp, type, severity, line_id, message, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	return r.db.QueryRow(query, n.Timestamp, n.Type, n.Severity, n.LineID, n.Message, metaJSON).Scan(&n.ID)
}

// GetRecent возвращает последние limit уведомлений, от новых к старым.
func (r *NotificationRepository) GetRecent(limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, line_id, message, meta
		FROM notifications
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// GetByTypes возвращает уведомления указанных типов, от новых к старым.
func (r *NotificationRepository) GetByTypes(types []string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, line_id, message, meta
		FROM notifications
		WHERE type = ANY($1)
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.Query(query, pqStringArray(types), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// GetByLineID возвращает журнал уведомлений по конкретной линии.
func (r *NotificationRepository) GetByLineID(lineID string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, line_id, message, meta
		FROM notifications
		WHERE line_id = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.Query(query, lineID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// DeleteAll очищает весь журнал уведомлений.
func (r *NotificationRepository) DeleteAll() error {
	_, err := r.db.Exec(`DELETE FROM notifications`)
	return err
}

// DeleteOlderThan удаляет уведомления старше указанного момента.
func (r *NotificationRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM notifications WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanNotifications(rows *sql.Rows) ([]*models.Notification, error) {
	var out []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		var metaJSON []byte
		if err := rows.Scan(&n.ID, &n.Timestamp, &n.Type, &n.Severity, &n.LineID, &n.Message, &metaJSON); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &n.Meta); err != nil {
				return nil, err
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// pqStringArray форматирует строковый срез как литерал массива Postgres,
// без подключения дополнительного драйвера только ради одного запроса.
func pqStringArray(values []string) string {
	out := "{"
	for i, v := range values {
		if i > 0 {
			out += ","
		}
		out += `"` + v + `"`
	}
	return out + "}"
}
