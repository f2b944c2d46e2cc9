package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	anthropicURL     = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
	defaultClaude    = "claude-sonnet-4-5"
)

// jsonOnlyInstruction is appended to the system prompt for JSON requests,
// since the Messages API has no response format switch.
const jsonOnlyInstruction = "Respond with ONLY a single JSON object, no other text."

// ClaudeClient calls the Anthropic Messages API.
type ClaudeClient struct {
	transport
	apiKey string
	url    string
}

// NewClaudeClient builds a client from opts; Provider is ignored.
func NewClaudeClient(opts Options) *ClaudeClient {
	url := anthropicURL
	if opts.BaseURL != "" {
		url = strings.TrimRight(opts.BaseURL, "/") + "/v1/messages"
	}
	return &ClaudeClient{
		transport: newTransport(opts, defaultClaude),
		apiKey:    opts.APIKey,
		url:       url,
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends req as a single user turn.
func (c *ClaudeClient) Complete(ctx context.Context, req Request) (string, error) {
	system := req.System
	if req.JSON {
		system = strings.TrimSpace(system + "\n\n" + jsonOnlyInstruction)
	}
	temp := req.Temperature
	body := anthropicRequest{
		Model:       c.model,
		MaxTokens:   orDefault(req.MaxTokens, c.maxTokens),
		System:      system,
		Temperature: &temp,
		Messages:    []anthropicMessage{{Role: "user", Content: req.User}},
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}

	return c.call(ctx, func(ctx context.Context) (string, error) {
		raw, err := postJSON(ctx, c.httpClient, c.url, headers, body)
		if err != nil {
			return "", fmt.Errorf("claude api: %w", err)
		}

		var resp anthropicResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return "", fmt.Errorf("decode claude response: %w", err)
		}
		if resp.Error != nil {
			return "", fmt.Errorf("claude error: %s: %s", resp.Error.Type, resp.Error.Message)
		}

		var out strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				out.WriteString(block.Text)
			}
		}
		if out.Len() == 0 {
			return "", fmt.Errorf("empty response from claude")
		}
		return out.String(), nil
	})
}

func orDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
