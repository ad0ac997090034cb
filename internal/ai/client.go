package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/hray3182/tincan/internal/models"
)

type Client struct {
	client *openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Summary is the structured reply to a digest summary request.
type Summary struct {
	Summary     string `json:"summary"`
	TopPriority string `json:"top_priority"`
}

const summaryPrompt = `You summarize personal finance alerts for a daily digest.
Write one short paragraph (at most three sentences) in plain language.
Mention the most urgent item first. Do not invent numbers that are not in the alerts.`

var summarySchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"summary": {"type": "string"},
		"top_priority": {"type": "string"}
	},
	"required": ["summary", "top_priority"],
	"additionalProperties": false
}`)

// SummarizeAlerts asks the model for a one-paragraph digest summary.
func (c *Client) SummarizeAlerts(ctx context.Context, alerts []models.Alert) (*Summary, error) {
	if len(alerts) == 0 {
		return nil, fmt.Errorf("no alerts to summarize")
	}

	var b strings.Builder
	for _, a := range alerts {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", a.Priority, a.Title, a.Message)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: summaryPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: b.String(),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "digest_summary",
				Schema: summarySchema,
				Strict: true,
			},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("AI request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from AI")
	}

	var s Summary
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &s); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}
	if strings.TrimSpace(s.Summary) == "" {
		return nil, fmt.Errorf("empty summary from AI")
	}
	return &s, nil
}
