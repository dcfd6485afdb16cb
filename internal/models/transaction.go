package models

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Transaction is a single monetary record owned by exactly one user.
// Amount is kept as its exact decimal text so values like "12.50" survive
// round-trips without floating-point drift.
type Transaction struct {
	ID         uuid.UUID       `db:"id"`
	UserID     uuid.UUID       `db:"user_id"`
	Title      string          `db:"title"`
	Amount     string          `db:"amount"`
	Currency   string          `db:"currency"`
	Type       TransactionType `db:"type"`
	Category   *string         `db:"category"`
	Note       *string         `db:"note"`
	OccurredAt time.Time       `db:"occurred_at"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}
