package repository

import (
	"context"

	"fintrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type AccountRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAccountRepository(db *pgxpool.Pool, logger *zap.Logger) *AccountRepository {
	return &AccountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := squirrel.Insert("accounts").
		Columns("id", "user_id", "provider_id", "account_id", "password", "created_at", "updated_at").
		Values(account.ID, account.UserID, account.ProviderID, account.AccountID, account.Password, account.CreatedAt, account.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *AccountRepository) GetByProvider(ctx context.Context, providerID, accountID string) (*models.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"provider_id": providerID, "account_id": accountID})
}

func (r *AccountRepository) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, providerID string) (*models.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"user_id": userID, "provider_id": providerID})
}

func (r *AccountRepository) getOne(ctx context.Context, pred squirrel.Eq) (*models.Account, error) {
	query := squirrel.Select("id", "user_id", "provider_id", "account_id", "password", "created_at", "updated_at").
		From("accounts").
		Where(pred).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var account models.Account
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&account.ID, &account.UserID, &account.ProviderID, &account.AccountID,
		&account.Password, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &account, nil
}
