package dto

import (
	"encoding/json"
	"time"

	"fintrack/internal/models"
)

type CreateFromTextRequest struct {
	Text     string `json:"text"`
	Currency string `json:"currency"`
}

// ParsedTransaction is the raw draft the extraction service produced,
// returned to the caller alongside the persisted record.
type ParsedTransaction struct {
	Title      string      `json:"title"`
	Amount     json.Number `json:"amount"`
	Currency   string      `json:"currency"`
	Type       string      `json:"type"`
	Category   string      `json:"category,omitempty"`
	Note       *string     `json:"note,omitempty"`
	OccurredAt *string     `json:"occurredAt,omitempty"`
}

type UpdateTransactionRequest struct {
	Title      string      `json:"title" validate:"required"`
	Amount     json.Number `json:"amount" validate:"required"`
	Currency   string      `json:"currency" validate:"required"`
	Type       string      `json:"type" validate:"required,oneof=income expense"`
	Category   *string     `json:"category"`
	Note       *string     `json:"note"`
	OccurredAt *time.Time  `json:"occurredAt"`
}

type TransactionResponse struct {
	ID         string      `json:"id"`
	UserID     string      `json:"userId"`
	Title      string      `json:"title"`
	Amount     json.Number `json:"amount"`
	Currency   string      `json:"currency"`
	Type       string      `json:"type"`
	Category   *string     `json:"category"`
	Note       *string     `json:"note"`
	OccurredAt time.Time   `json:"occurredAt"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

type CreateFromTextResponse struct {
	Parsed      ParsedTransaction   `json:"parsed"`
	Transaction TransactionResponse `json:"transaction"`
}

type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

func NewTransactionResponse(tx *models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:         tx.ID.String(),
		UserID:     tx.UserID.String(),
		Title:      tx.Title,
		Amount:     json.Number(tx.Amount),
		Currency:   tx.Currency,
		Type:       string(tx.Type),
		Category:   tx.Category,
		Note:       tx.Note,
		OccurredAt: tx.OccurredAt,
		CreatedAt:  tx.CreatedAt,
		UpdatedAt:  tx.UpdatedAt,
	}
}

func NewTransactionResponses(txs []*models.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, NewTransactionResponse(tx))
	}
	return out
}
