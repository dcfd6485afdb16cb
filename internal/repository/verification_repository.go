package repository

import (
	"context"

	"fintrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type VerificationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewVerificationRepository(db *pgxpool.Pool, logger *zap.Logger) *VerificationRepository {
	return &VerificationRepository{
		db:     db,
		logger: logger,
	}
}

func (r *VerificationRepository) Create(ctx context.Context, v *models.Verification) error {
	query := squirrel.Insert("verifications").
		Columns("id", "identifier", "value", "expires_at", "created_at").
		Values(v.ID, v.Identifier, v.Value, v.ExpiresAt, v.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// Consume fetches a verification row by identifier and deletes it in the
// same statement, so a token can be redeemed at most once.
func (r *VerificationRepository) Consume(ctx context.Context, identifier string) (*models.Verification, error) {
	query := squirrel.Delete("verifications").
		Where(squirrel.Eq{"identifier": identifier}).
		Suffix("RETURNING id, identifier, value, expires_at, created_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var v models.Verification
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&v.ID, &v.Identifier, &v.Value, &v.ExpiresAt, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &v, nil
}
