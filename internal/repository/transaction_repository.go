package repository

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrNoRow is returned by conditional single-row operations when no row
// matched both the id and the owner.
var ErrNoRow = errors.New("no matching row")

type TransactionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTransactionRepository(db *pgxpool.Pool, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

// TransactionUpdate carries the mutable fields of an update. A nil
// OccurredAt leaves the stored event time unchanged.
type TransactionUpdate struct {
	Title      string
	Amount     string
	Currency   string
	Type       models.TransactionType
	Category   *string
	Note       *string
	OccurredAt *time.Time
}

func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	query := squirrel.Insert("transactions").
		Columns("id", "user_id", "title", "amount", "currency", "type", "category", "note", "occurred_at", "created_at", "updated_at").
		Values(tx.ID, tx.UserID, tx.Title, tx.Amount, tx.Currency, tx.Type, tx.Category, tx.Note, tx.OccurredAt, tx.CreatedAt, tx.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// ListByUser returns the owner's transactions ordered by occurred_at
// descending. When from/to are set the window is [from, to). Limit caps
// the result size.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, from, to *time.Time, limit uint64) ([]*models.Transaction, error) {
	query := squirrel.Select("id", "user_id", "title", "amount", "currency", "type", "category", "note", "occurred_at", "created_at", "updated_at").
		From("transactions").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("occurred_at DESC").
		Limit(limit).
		PlaceholderFormat(squirrel.Dollar)

	if from != nil {
		query = query.Where(squirrel.GtOrEq{"occurred_at": *from})
	}
	if to != nil {
		query = query.Where(squirrel.Lt{"occurred_at": *to})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.Title, &tx.Amount, &tx.Currency, &tx.Type,
			&tx.Category, &tx.Note, &tx.OccurredAt, &tx.CreatedAt, &tx.UpdatedAt,
		); err != nil {
			return nil, err
		}
		transactions = append(transactions, &tx)
	}

	return transactions, rows.Err()
}

// Update mutates a row only when both id and user_id match, which is what
// hides other users' rows behind ErrNoRow.
func (r *TransactionRepository) Update(ctx context.Context, id, userID uuid.UUID, upd *TransactionUpdate) (*models.Transaction, error) {
	query := squirrel.Update("transactions").
		Set("title", upd.Title).
		Set("amount", upd.Amount).
		Set("currency", upd.Currency).
		Set("type", upd.Type).
		Set("category", upd.Category).
		Set("note", upd.Note).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		Suffix("RETURNING id, user_id, title, amount, currency, type, category, note, occurred_at, created_at, updated_at").
		PlaceholderFormat(squirrel.Dollar)

	if upd.OccurredAt != nil {
		query = query.Set("occurred_at", *upd.OccurredAt)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var tx models.Transaction
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&tx.ID, &tx.UserID, &tx.Title, &tx.Amount, &tx.Currency, &tx.Type,
		&tx.Category, &tx.Note, &tx.OccurredAt, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRow
		}
		return nil, err
	}

	return &tx, nil
}

// Delete removes a row only when both id and user_id match.
func (r *TransactionRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := squirrel.Delete("transactions").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRow
	}

	return nil
}
