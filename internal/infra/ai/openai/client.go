package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	domai "github.com/edaccred/horus-backend/internal/domain/ai"
)

const maxTokens = 4096

// Client talks to an OpenAI-compatible chat endpoint (the deployment points it
// at the provider configured in config.yaml).
type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

func (c *Client) model() string {
	if c.Model != "" {
		return c.Model
	}
	return "gpt-4o-mini"
}

// Generate sends a single prompt and returns the raw text reply.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     c.model(),
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	return c.complete(ctx, req)
}

// Chat sends a conversation history with an optional system context block.
func (c *Client) Chat(ctx context.Context, history []domai.ChatMessage, systemContext string) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if systemContext != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: systemContext,
		})
	}
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	req := openai.ChatCompletionRequest{
		Model:     c.model(),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	return c.complete(ctx, req)
}

// AnalyzeFile sends the prompt together with one base64-encoded document part.
func (c *Client) AnalyzeFile(ctx context.Context, prompt string, file domai.FilePayload) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s",
		file.MimeType, base64.StdEncoding.EncodeToString(file.Data))

	req := openai.ChatCompletionRequest{
		Model:     c.model(),
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
	}
	return c.complete(ctx, req)
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return "", domai.ErrQuotaExceeded
		}
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
