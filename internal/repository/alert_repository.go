package repository

import (
	"database/sql"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"

	"riskengine/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ошибки репозитория алертов
var (
	ErrAlertNotFound = errors.New("alert not found")
)

// AlertRepository - работа с таблицей risk_alerts
//
// Журнал алертов переживает рестарты движка: in-memory буфер трекера
// держит только последнюю сотню, полная история живёт здесь.
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository создает новый экземпляр репозитория
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create сохраняет алерт, ID присваивается базой
func (r *AlertRepository) Create(alert *models.RiskAlert) error {
	query := `
		INSERT INTO risk_alerts (created_at, type, level, message, data, acknowledged)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(alert.Data)
	if err != nil {
		return err
	}

	return r.db.QueryRow(
		query,
		alert.Timestamp,
		alert.Type,
		alert.Level,
		alert.Message,
		data,
		alert.Acknowledged,
	).Scan(&alert.ID)
}

// GetRecent возвращает последние limit алертов, новые первыми
func (r *AlertRepository) GetRecent(limit int) ([]models.RiskAlert, error) {
	query := `
		SELECT id, created_at, type, level, message, data, acknowledged
		FROM risk_alerts
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// GetByTypes возвращает алерты указанных типов, новые первыми
func (r *AlertRepository) GetByTypes(types []string, limit int) ([]models.RiskAlert, error) {
	query := `
		SELECT id, created_at, type, level, message, data, acknowledged
		FROM risk_alerts
		WHERE type = ANY($1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(query, pq.Array(types), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// GetUnacknowledged возвращает неподтверждённые алерты
func (r *AlertRepository) GetUnacknowledged(limit int) ([]models.RiskAlert, error) {
	query := `
		SELECT id, created_at, type, level, message, data, acknowledged
		FROM risk_alerts
		WHERE acknowledged = FALSE
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// Acknowledge помечает алерт подтверждённым
func (r *AlertRepository) Acknowledge(id int64) error {
	query := `
		UPDATE risk_alerts
		SET acknowledged = TRUE
		WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrAlertNotFound
	}

	return nil
}

// DeleteAll очищает журнал алертов
func (r *AlertRepository) DeleteAll() error {
	_, err := r.db.Exec(`DELETE FROM risk_alerts`)
	return err
}

// DeleteOlderThan удаляет алерты старше указанного момента,
// возвращает число удалённых строк
func (r *AlertRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM risk_alerts WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Count возвращает общее количество алертов
func (r *AlertRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM risk_alerts`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// scanAlerts читает строки выборки в модели
func scanAlerts(rows *sql.Rows) ([]models.RiskAlert, error) {
	var alerts []models.RiskAlert

	for rows.Next() {
		var alert models.RiskAlert
		var data []byte

		err := rows.Scan(
			&alert.ID,
			&alert.Timestamp,
			&alert.Type,
			&alert.Level,
			&alert.Message,
			&data,
			&alert.Acknowledged,
		)
		if err != nil {
			return nil, err
		}

		if len(data) > 0 {
			if err := json.Unmarshal(data, &alert.Data); err != nil {
				return nil, err
			}
		}

		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return alerts, nil
}
