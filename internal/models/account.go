package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProviderCredential = "credential"
	ProviderGoogle     = "google"
)

// Account links a user to an authentication provider. For the credential
// provider AccountID is the user's email and Password holds the bcrypt
// hash; for social providers AccountID is the provider's subject id.
type Account struct {
	ID         uuid.UUID `db:"id"`
	UserID     uuid.UUID `db:"user_id"`
	ProviderID string    `db:"provider_id"`
	AccountID  string    `db:"account_id"`
	Password   *string   `db:"password"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}
