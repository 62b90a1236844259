package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/duetable-api/internal/models"
)

const overrideSchema = `CREATE TABLE IF NOT EXISTS assignment_overrides (
	assignment_id TEXT NOT NULL,
	term TEXT NOT NULL,
	email TEXT NOT NULL,
	finished BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (assignment_id, term, email)
)`

// OverrideRepository persists local finished flags so they survive restarts.
type OverrideRepository struct {
	db *sqlx.DB
}

// NewOverrideRepository creates a new instance of OverrideRepository.
func NewOverrideRepository(db *sqlx.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// EnsureSchema creates the overrides table when missing.
func (r *OverrideRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, overrideSchema); err != nil {
		return fmt.Errorf("ensure assignment_overrides: %w", err)
	}
	return nil
}

// ListByUser returns every stored flag for one user and term.
func (r *OverrideRepository) ListByUser(ctx context.Context, term, email string) ([]models.FinishedOverride, error) {
	const query = `SELECT assignment_id, term, email, finished, updated_at FROM assignment_overrides WHERE term = $1 AND email = $2 ORDER BY assignment_id`
	var overrides []models.FinishedOverride
	if err := r.db.SelectContext(ctx, &overrides, query, term, email); err != nil {
		return nil, fmt.Errorf("list assignment overrides: %w", err)
	}
	return overrides, nil
}

// Upsert writes one flag, replacing any previous value.
func (r *OverrideRepository) Upsert(ctx context.Context, override *models.FinishedOverride) error {
	if override.UpdatedAt.IsZero() {
		override.UpdatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assignment_overrides (assignment_id, term, email, finished, updated_at)
VALUES (:assignment_id, :term, :email, :finished, :updated_at)
ON CONFLICT (assignment_id, term, email) DO UPDATE SET finished = EXCLUDED.finished, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, override); err != nil {
		return fmt.Errorf("upsert assignment override: %w", err)
	}
	return nil
}

// Ping checks database reachability for readiness probes.
func (r *OverrideRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
