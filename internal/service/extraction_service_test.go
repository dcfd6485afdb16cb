package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGenerator struct {
	content    string
	err        error
	calls      int
	lastPrompt string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	return f.content, f.err
}

func newTestExtractionService(gen textGenerator) *ExtractionService {
	return &ExtractionService{
		gen:    gen,
		logger: zap.NewNop(),
	}
}

var refTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestExtract_ConformingObject(t *testing.T) {
	gen := &fakeGenerator{content: `{
		"title": "Coffee at Blue Bottle",
		"amount": 12.50,
		"currency": "usd",
		"type": "expense",
		"category": "coffee",
		"note": "with Sam"
	}`}
	svc := newTestExtractionService(gen)

	parsed, err := svc.Extract(context.Background(), "coffee with sam 12.50", "USD", refTime)
	require.NoError(t, err)

	assert.Equal(t, "Coffee at Blue Bottle", parsed.Title)
	// The amount keeps its exact decimal text.
	assert.Equal(t, "12.50", parsed.Amount.String())
	assert.Equal(t, "USD", parsed.Currency)
	assert.Equal(t, "expense", parsed.Type)
	assert.Equal(t, "coffee", parsed.Category)
	require.NotNil(t, parsed.Note)
	assert.Equal(t, "with Sam", *parsed.Note)
	assert.Nil(t, parsed.OccurredAt)
}

func TestExtract_StripsMarkdownWrapping(t *testing.T) {
	gen := &fakeGenerator{content: "Here is the transaction:\n```json\n{\"title\":\"Salary\",\"amount\":4200,\"currency\":\"USD\",\"type\":\"income\"}\n```"}
	svc := newTestExtractionService(gen)

	parsed, err := svc.Extract(context.Background(), "got paid 4200", "USD", refTime)
	require.NoError(t, err)
	assert.Equal(t, "Salary", parsed.Title)
	assert.Equal(t, "income", parsed.Type)
}

func TestExtract_DefaultsCurrency(t *testing.T) {
	gen := &fakeGenerator{content: `{"title":"Lunch","amount":9,"type":"expense"}`}
	svc := newTestExtractionService(gen)

	parsed, err := svc.Extract(context.Background(), "lunch 9", "eur", refTime)
	require.NoError(t, err)
	assert.Equal(t, "EUR", parsed.Currency)
}

func TestExtract_NormalizesOccurredAt(t *testing.T) {
	gen := &fakeGenerator{content: `{"title":"Rent","amount":900,"currency":"USD","type":"expense","occurredAt":"2024-05-28"}`}
	svc := newTestExtractionService(gen)

	parsed, err := svc.Extract(context.Background(), "rent on may 28", "USD", refTime)
	require.NoError(t, err)
	require.NotNil(t, parsed.OccurredAt)
	assert.Equal(t, "2024-05-28T00:00:00Z", *parsed.OccurredAt)
}

func TestExtract_NonConformingObjects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no JSON at all", "I could not find a transaction in that text."},
		{"missing title", `{"amount":5,"currency":"USD","type":"expense"}`},
		{"blank title", `{"title":"  ","amount":5,"currency":"USD","type":"expense"}`},
		{"missing amount", `{"title":"Lunch","currency":"USD","type":"expense"}`},
		{"non-numeric amount", `{"title":"Lunch","amount":"a few dollars","currency":"USD","type":"expense"}`},
		{"invalid type", `{"title":"Lunch","amount":5,"currency":"USD","type":"transfer"}`},
		{"invalid occurredAt", `{"title":"Lunch","amount":5,"currency":"USD","type":"expense","occurredAt":"yesterday"}`},
		{"truncated JSON", `{"title":"Lunch","amount":5`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestExtractionService(&fakeGenerator{content: tt.content})
			_, err := svc.Extract(context.Background(), "lunch", "USD", refTime)
			assert.ErrorIs(t, err, ErrExtraction)
		})
	}
}

func TestExtract_GeneratorFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("upstream unavailable")}
	svc := newTestExtractionService(gen)

	_, err := svc.Extract(context.Background(), "lunch 9", "USD", refTime)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.Equal(t, 1, gen.calls)
}

func TestExtract_PromptCarriesHints(t *testing.T) {
	gen := &fakeGenerator{content: `{"title":"Lunch","amount":9,"currency":"GBP","type":"expense"}`}
	svc := newTestExtractionService(gen)

	_, err := svc.Extract(context.Background(), "lunch 9", "GBP", refTime)
	require.NoError(t, err)
	assert.Contains(t, gen.lastPrompt, "GBP")
	assert.Contains(t, gen.lastPrompt, "2024-06-01T12:00:00Z")
	assert.Contains(t, gen.lastPrompt, "lunch 9")
}
