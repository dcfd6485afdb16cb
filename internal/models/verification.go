package models

import (
	"time"

	"github.com/google/uuid"
)

// Verification is a short-lived identifier/value pair, used for email
// verification tokens and OAuth state.
type Verification struct {
	ID         uuid.UUID `db:"id"`
	Identifier string    `db:"identifier"`
	Value      string    `db:"value"`
	ExpiresAt  time.Time `db:"expires_at"`
	CreatedAt  time.Time `db:"created_at"`
}
