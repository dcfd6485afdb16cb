package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/dto"
	"fintrack/internal/models"
	"fintrack/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrMissingText means the free-text input was empty after trimming.
	ErrMissingText = errors.New("missing text")
	// ErrInvalidDateFilter means date/tzOffset did not parse.
	ErrInvalidDateFilter = errors.New("invalid date or tzOffset")
	// ErrInvalidPayload means a required update field was missing.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrTransactionNotFound covers both an absent id and another user's
	// row; the two are deliberately indistinguishable.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// listLimit caps every listing; there is no pagination beyond it.
const listLimit = 50

type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	ListByUser(ctx context.Context, userID uuid.UUID, from, to *time.Time, limit uint64) ([]*models.Transaction, error)
	Update(ctx context.Context, id, userID uuid.UUID, upd *repository.TransactionUpdate) (*models.Transaction, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type Extractor interface {
	Extract(ctx context.Context, text, preferredCurrency string, ref time.Time) (*dto.ParsedTransaction, error)
}

type TransactionService struct {
	store     TransactionStore
	extractor Extractor
	logger    *zap.Logger
	now       func() time.Time
}

func NewTransactionService(store TransactionStore, extractor Extractor, logger *zap.Logger) *TransactionService {
	return &TransactionService{
		store:     store,
		extractor: extractor,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateFromText runs the extraction pipeline once and persists the result.
// The extractor is never invoked for empty input, and nothing is persisted
// when extraction fails.
func (s *TransactionService) CreateFromText(ctx context.Context, userID uuid.UUID, text, currency string) (*dto.ParsedTransaction, *models.Transaction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, ErrMissingText
	}

	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}

	now := s.now()
	parsed, err := s.extractor.Extract(ctx, text, currency, now)
	if err != nil {
		return nil, nil, err
	}

	occurredAt := now
	if parsed.OccurredAt != nil {
		if t, err := parseOccurredAt(*parsed.OccurredAt); err == nil {
			occurredAt = t
		}
	}

	tx := &models.Transaction{
		ID:         uuid.New(),
		UserID:     userID,
		Title:      parsed.Title,
		Amount:     parsed.Amount.String(),
		Currency:   parsed.Currency,
		Type:       models.TransactionType(parsed.Type),
		Category:   nilIfEmpty(parsed.Category),
		Note:       normalizeOptional(parsed.Note),
		OccurredAt: occurredAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.Create(ctx, tx); err != nil {
		return nil, nil, err
	}

	s.logger.Info("Transaction created from text",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("user_id", userID.String()),
	)

	return parsed, tx, nil
}

// List returns the owner's transactions, optionally narrowed to one
// calendar day in the caller's local timezone.
func (s *TransactionService) List(ctx context.Context, userID uuid.UUID, date, tzOffset string) ([]*models.Transaction, error) {
	if date == "" {
		return s.store.ListByUser(ctx, userID, nil, nil, listLimit)
	}

	from, to, err := dayWindow(date, tzOffset)
	if err != nil {
		return nil, ErrInvalidDateFilter
	}

	return s.store.ListByUser(ctx, userID, &from, &to, listLimit)
}

// dayWindow interprets a calendar date as midnight in the caller's local
// timezone. tzOffset is signed minutes east of UTC, so local midnight in
// UTC is midnight minus the offset; the window is exactly 24 hours.
func dayWindow(date, tzOffset string) (time.Time, time.Time, error) {
	offset, err := strconv.Atoi(tzOffset)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	lower := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).
		Add(-time.Duration(offset) * time.Minute)
	return lower, lower.Add(24 * time.Hour), nil
}

// Update mutates a transaction the caller owns. The ownership check and
// the existence check share one failure.
func (s *TransactionService) Update(ctx context.Context, userID, id uuid.UUID, req *dto.UpdateTransactionRequest) (*models.Transaction, error) {
	if err := dto.Validate(req); err != nil {
		return nil, ErrInvalidPayload
	}

	title := strings.TrimSpace(req.Title)
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if title == "" || currency == "" {
		return nil, ErrInvalidPayload
	}

	upd := &repository.TransactionUpdate{
		Title:      title,
		Amount:     req.Amount.String(),
		Currency:   currency,
		Type:       models.TransactionType(req.Type),
		Category:   normalizeOptional(req.Category),
		Note:       normalizeOptional(req.Note),
		OccurredAt: req.OccurredAt,
	}

	tx, err := s.store.Update(ctx, id, userID, upd)
	if err != nil {
		if errors.Is(err, repository.ErrNoRow) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	return tx, nil
}

// Delete permanently removes a transaction the caller owns.
func (s *TransactionService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	err := s.store.Delete(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNoRow) {
			return ErrTransactionNotFound
		}
		return err
	}

	s.logger.Info("Transaction deleted",
		zap.String("transaction_id", id.String()),
		zap.String("user_id", userID.String()),
	)
	return nil
}

func nilIfEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// normalizeOptional maps empty strings to absent, stored as NULL.
func normalizeOptional(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
