package repository

import (
	"database/sql"
	"errors"
	"time"

	"riskengine/internal/models"
)

// Ошибки репозитория срезов
var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// SnapshotRepository - работа с таблицей risk_snapshots
//
// Один срез на торговый день (day UNIQUE). Из срезов считаются
// недельные и месячные агрегаты PNL для лимитов потерь.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository создает новый экземпляр репозитория
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Upsert создаёт или обновляет срез за день
func (r *SnapshotRepository) Upsert(snap *models.RiskSnapshot) error {
	query := `
		INSERT INTO risk_snapshots (day, daily_pnl, max_drawdown_pct, peak_value, risk_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (day) DO UPDATE
		SET daily_pnl = EXCLUDED.daily_pnl,
		    max_drawdown_pct = EXCLUDED.max_drawdown_pct,
		    peak_value = EXCLUDED.peak_value,
		    risk_score = EXCLUDED.risk_score
		RETURNING id`

	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	return r.db.QueryRow(
		query,
		snap.Day,
		snap.DailyPnl,
		snap.MaxDrawdownPct,
		snap.PeakValue,
		snap.RiskScore,
		snap.CreatedAt,
	).Scan(&snap.ID)
}

// GetByDay возвращает срез за конкретный день
func (r *SnapshotRepository) GetByDay(day time.Time) (*models.RiskSnapshot, error) {
	query := `
		SELECT id, day, daily_pnl, max_drawdown_pct, peak_value, risk_score, created_at
		FROM risk_snapshots
		WHERE day = $1`

	snap := &models.RiskSnapshot{}
	err := r.db.QueryRow(query, day).Scan(
		&snap.ID,
		&snap.Day,
		&snap.DailyPnl,
		&snap.MaxDrawdownPct,
		&snap.PeakValue,
		&snap.RiskScore,
		&snap.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}

	return snap, nil
}

// GetRange возвращает срезы за период [from, to], старые первыми
func (r *SnapshotRepository) GetRange(from, to time.Time) ([]models.RiskSnapshot, error) {
	query := `
		SELECT id, day, daily_pnl, max_drawdown_pct, peak_value, risk_score, created_at
		FROM risk_snapshots
		WHERE day >= $1 AND day <= $2
		ORDER BY day ASC`

	rows, err := r.db.Query(query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []models.RiskSnapshot
	for rows.Next() {
		var snap models.RiskSnapshot
		err := rows.Scan(
			&snap.ID,
			&snap.Day,
			&snap.DailyPnl,
			&snap.MaxDrawdownPct,
			&snap.PeakValue,
			&snap.RiskScore,
			&snap.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return snapshots, nil
}

// SumPnlSince возвращает суммарный PNL срезов начиная с указанного дня.
// Используется для недельных и месячных лимитов потерь.
func (r *SnapshotRepository) SumPnlSince(since time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(daily_pnl), 0)
		FROM risk_snapshots
		WHERE day >= $1`

	var sum float64
	if err := r.db.QueryRow(query, since).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

// MaxDrawdownSince возвращает худший дневной дроудаун с указанного дня
func (r *SnapshotRepository) MaxDrawdownSince(since time.Time) (float64, error) {
	query := `
		SELECT COALESCE(MAX(max_drawdown_pct), 0)
		FROM risk_snapshots
		WHERE day >= $1`

	var dd float64
	if err := r.db.QueryRow(query, since).Scan(&dd); err != nil {
		return 0, err
	}
	return dd, nil
}

// DeleteOlderThan удаляет срезы старше указанного дня
func (r *SnapshotRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM risk_snapshots WHERE day < $1`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
