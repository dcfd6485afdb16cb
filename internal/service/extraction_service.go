package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/dto"
	"fintrack/internal/models"
	"fintrack/pkg/config"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

// ErrExtraction means the generation service could not produce a
// schema-conforming transaction. The enclosing request fails without a
// retry and without persisting anything.
var ErrExtraction = errors.New("could not extract a transaction")

// textGenerator is the single call-out the extraction service makes.
type textGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type gigaGenerator struct {
	model *gigago.GenerativeModel
}

func (g *gigaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.Generate(ctx, []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from LLM")
	}
	return resp.Choices[0].Message.Content, nil
}

// ExtractionService turns free text into a structured transaction draft
// via a single GigaChat completion.
type ExtractionService struct {
	client *gigago.Client
	gen    textGenerator
	logger *zap.Logger
}

const systemInstruction = `You are a personal finance assistant. You convert short free-text notes about money into structured transaction records. You always answer with strictly valid JSON and nothing else, you never invent data the text does not support, and you keep amounts exactly as written.`

func NewExtractionService(cfg *config.GigaChatConfig, logger *zap.Logger) (*ExtractionService, error) {
	ctx := context.Background()

	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := client.GenerativeModel("GigaChat")
	model.SystemInstruction = systemInstruction
	model.Temperature = 0.3

	return &ExtractionService{
		client: client,
		gen:    &gigaGenerator{model: model},
		logger: logger,
	}, nil
}

func (s *ExtractionService) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}

func buildExtractionPrompt(text, preferredCurrency string, ref time.Time) string {
	return fmt.Sprintf(`Extract a single financial transaction from the text below.

IMPORTANT: Return ONLY a valid JSON object, without commentary or markdown.

Text:
%s

Context:
- Preferred currency: %s (use it when the text names no currency)
- Current date and time: %s

Return a JSON object in the following format:
{
  "title": "short label for the transaction",
  "amount": number,
  "currency": "3-letter code",
  "type": "income|expense",
  "category": "free-text category, e.g. groceries",
  "note": "optional extra detail",
  "occurredAt": "YYYY-MM-DD"
}

RULES:
- Return ONLY the JSON object, no markdown fences, no text before or after
- "type" must be exactly "income" or "expense"
- Omit "note" and "occurredAt" instead of inventing them`,
		text, preferredCurrency, ref.UTC().Format(time.RFC3339))
}

// Extract makes one attempt against the model; any non-conforming output
// fails the call.
func (s *ExtractionService) Extract(ctx context.Context, text, preferredCurrency string, ref time.Time) (*dto.ParsedTransaction, error) {
	prompt := buildExtractionPrompt(text, preferredCurrency, ref)

	content, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("Extraction call failed", zap.Error(err))
		return nil, ErrExtraction
	}

	parsed, err := parseExtraction(content)
	if err != nil {
		s.logger.Warn("Model returned a non-conforming transaction",
			zap.Error(err),
			zap.String("content", content),
		)
		return nil, ErrExtraction
	}

	if parsed.Currency == "" {
		parsed.Currency = preferredCurrency
	}
	parsed.Currency = strings.ToUpper(parsed.Currency)

	return parsed, nil
}

// parseExtraction pulls the JSON object out of the model output and checks
// it against the fixed schema. Model replies are often wrapped in markdown
// fences despite the prompt, so the object is located positionally first.
func parseExtraction(content string) (*dto.ParsedTransaction, error) {
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in response")
	}
	jsonStr := content[start : end+1]

	var parsed dto.ParsedTransaction
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	parsed.Title = strings.TrimSpace(parsed.Title)
	if parsed.Title == "" {
		return nil, errors.New("missing title")
	}
	if parsed.Amount.String() == "" {
		return nil, errors.New("missing amount")
	}
	if !models.TransactionType(parsed.Type).Valid() {
		return nil, fmt.Errorf("invalid type %q", parsed.Type)
	}
	if parsed.OccurredAt != nil {
		normalized, err := parseOccurredAt(*parsed.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("invalid occurredAt %q", *parsed.OccurredAt)
		}
		formatted := normalized.Format(time.RFC3339)
		parsed.OccurredAt = &formatted
	}

	return &parsed, nil
}

// parseOccurredAt accepts the calendar-date form the prompt asks for as
// well as a full RFC3339 timestamp.
func parseOccurredAt(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
