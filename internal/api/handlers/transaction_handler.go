package handlers

import (
	"context"
	"errors"

	"fintrack/internal/dto"
	"fintrack/internal/models"
	"fintrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TransactionProvider interface {
	CreateFromText(ctx context.Context, userID uuid.UUID, text, currency string) (*dto.ParsedTransaction, *models.Transaction, error)
	List(ctx context.Context, userID uuid.UUID, date, tzOffset string) ([]*models.Transaction, error)
	Update(ctx context.Context, userID, id uuid.UUID, req *dto.UpdateTransactionRequest) (*models.Transaction, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type TransactionHandler struct {
	txService TransactionProvider
	logger    *zap.Logger
}

func NewTransactionHandler(txService TransactionProvider, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		txService: txService,
		logger:    logger,
	}
}

// CreateFromText godoc
// @Summary Create a transaction from free text
// @Description Extract a structured transaction from natural language and persist it
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body dto.CreateFromTextRequest true "Free text and optional preferred currency"
// @Security Bearer
// @Success 201 {object} dto.CreateFromTextResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /ai [post]
func (h *TransactionHandler) CreateFromText(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var req dto.CreateFromTextRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	parsed, tx, err := h.txService.CreateFromText(c.Context(), userID, req.Text, req.Currency)
	if err != nil {
		if errors.Is(err, service.ErrMissingText) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing text",
			})
		}
		h.logger.Error("Create from text failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create transaction",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.CreateFromTextResponse{
		Parsed:      *parsed,
		Transaction: dto.NewTransactionResponse(tx),
	})
}

// List godoc
// @Summary List transactions
// @Description List the caller's transactions, optionally narrowed to one local calendar day
// @Tags transactions
// @Produce json
// @Param date query string false "Calendar date, YYYY-MM-DD"
// @Param tzOffset query string false "Signed timezone offset in minutes; required with date"
// @Security Bearer
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /transactions [get]
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	transactions, err := h.txService.List(c.Context(), userID, c.Query("date"), c.Query("tzOffset"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidDateFilter) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid date or tzOffset",
			})
		}
		h.logger.Error("List transactions failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list transactions",
		})
	}

	return c.JSON(dto.ListTransactionsResponse{
		Transactions: dto.NewTransactionResponses(transactions),
	})
}

// Update godoc
// @Summary Update a transaction
// @Description Update a transaction the caller owns
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body dto.UpdateTransactionRequest true "Updated fields"
// @Security Bearer
// @Success 200 {object} map[string]dto.TransactionResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /transactions/{id} [put]
func (h *TransactionHandler) Update(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Not found",
		})
	}

	var req dto.UpdateTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid payload",
		})
	}

	tx, err := h.txService.Update(c.Context(), userID, id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPayload):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid payload",
			})
		case errors.Is(err, service.ErrTransactionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Not found",
			})
		}
		h.logger.Error("Update transaction failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update transaction",
		})
	}

	return c.JSON(fiber.Map{
		"transaction": dto.NewTransactionResponse(tx),
	})
}

// Delete godoc
// @Summary Delete a transaction
// @Description Permanently delete a transaction the caller owns
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Security Bearer
// @Success 200 {object} map[string]bool
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Not found",
		})
	}

	if err := h.txService.Delete(c.Context(), userID, id); err != nil {
		if errors.Is(err, service.ErrTransactionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Not found",
			})
		}
		h.logger.Error("Delete transaction failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete transaction",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}
