// Package ai implements the external AI categorizer over the OpenAI chat
// completion API. The client is an optional collaborator: the orchestrator
// treats it as nilable and falls back to deterministic rules when it is
// absent or failing.
package ai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/service"
)

const systemPrompt = `You are a bookkeeping assistant for childcare businesses.
Given a bank transaction, suggest the ledger account it belongs to.
You MUST respond with ONLY a valid JSON object of this exact shape:
{"account_code": "...", "account_name": "...", "confidence": 0-100, "reasoning": "...", "vat_type": "STANDARD|ZERO_RATED|EXEMPT|NONE", "is_split": false}
Do not include any text, markdown, or commentary outside the JSON object.`

// Client calls the OpenAI chat completion API to categorize transactions.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewClient creates an AI categorizer client.
func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{
		api:         openai.NewClient(apiKey),
		model:       model,
		temperature: 0.2,
		maxTokens:   300,
	}, nil
}

// Categorize asks the model for a ledger account suggestion.
func (c *Client) Categorize(ctx context.Context, txn model.Transaction, tenantID string) (*service.AISuggestion, error) {
	prompt := buildPrompt(txn)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	suggestion, err := ParseSuggestion(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse suggestion: %w", err)
	}
	return suggestion, nil
}

func buildPrompt(txn model.Transaction) string {
	direction := "debit"
	if txn.IsCredit {
		direction = "credit"
	}
	return fmt.Sprintf(
		"Transaction:\nDescription: %s\nPayee: %s\nAmount (cents): %s\nDirection: %s\nDate: %s",
		txn.Description,
		txn.PayeeName,
		txn.Amount.String(),
		direction,
		txn.Date.Format("2006-01-02"),
	)
}
