package repository

import (
	"context"
	"database/sql"
)

// Схема создается при старте: отдельная система миграций избыточна
// для двух таблиц, а IF NOT EXISTS делает вызов идемпотентным.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS risk_alerts (
		id           BIGSERIAL PRIMARY KEY,
		created_at   TIMESTAMPTZ NOT NULL,
		type         TEXT        NOT NULL,
		level        TEXT        NOT NULL,
		message      TEXT        NOT NULL,
		data         JSONB,
		acknowledged BOOLEAN     NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_risk_alerts_created_at
		ON risk_alerts (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_risk_alerts_type
		ON risk_alerts (type)`,
	`CREATE TABLE IF NOT EXISTS risk_snapshots (
		id               SERIAL PRIMARY KEY,
		day              DATE             NOT NULL UNIQUE,
		daily_pnl        DOUBLE PRECISION NOT NULL,
		max_drawdown_pct DOUBLE PRECISION NOT NULL,
		peak_value       DOUBLE PRECISION NOT NULL,
		risk_score       INTEGER          NOT NULL,
		created_at       TIMESTAMPTZ      NOT NULL
	)`,
}

// EnsureSchema создает таблицы репозиториев, если их еще нет
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
