package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
	apperrors "github.com/Freakycoder/decentralized-uptime-monitoring/internal/errors"
)

type ValidatorRepo struct {
	pool *pgxpool.Pool
}

func NewValidatorRepo(pool *pgxpool.Pool) *ValidatorRepo {
	return &ValidatorRepo{pool: pool}
}

// GetValidator looks one validator up by id.
func (r *ValidatorRepo) GetValidator(ctx context.Context, id uuid.UUID) (*domain.Validator, error) {
	const query = `
		SELECT id, user_id, latitude, longitude, created_at
		FROM validators
		WHERE id = $1`

	var (
		v        domain.Validator
		lat, lon *float64
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(&v.ID, &v.UserID, &lat, &lon, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundError("validator not found")
	}
	if err != nil {
		return nil, apperrors.InternalError("failed to load validator", err)
	}

	if lat != nil && lon != nil {
		v.Location = &domain.Location{Latitude: *lat, Longitude: *lon}
	}
	return &v, nil
}

// Exists reports whether a validator id is known.
func (r *ValidatorRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM validators WHERE id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, apperrors.InternalError("failed to check validator", err)
	}
	return exists, nil
}
