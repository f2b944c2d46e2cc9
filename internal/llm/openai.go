package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	openAIURL     = "https://api.openai.com/v1/chat/completions"
	defaultOpenAI = "gpt-4o"
)

// OpenAIClient calls the OpenAI Chat Completions API.
type OpenAIClient struct {
	transport
	apiKey string
	url    string
}

// NewOpenAIClient builds a client from opts; Provider is ignored.
func NewOpenAIClient(opts Options) *OpenAIClient {
	url := openAIURL
	if opts.BaseURL != "" {
		url = strings.TrimRight(opts.BaseURL, "/") + "/v1/chat/completions"
	}
	return &OpenAIClient{
		transport: newTransport(opts, defaultOpenAI),
		apiKey:    opts.APIKey,
		url:       url,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends req as a system plus user message pair. JSON requests use
// the json_object response format.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	var msgs []chatMessage
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.System})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.User})

	body := chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   orDefault(req.MaxTokens, c.maxTokens),
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	return c.call(ctx, func(ctx context.Context) (string, error) {
		raw, err := postJSON(ctx, c.httpClient, c.url, headers, body)
		if err != nil {
			return "", fmt.Errorf("openai api: %w", err)
		}

		var resp chatResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return "", fmt.Errorf("decode openai response: %w", err)
		}
		if resp.Error != nil {
			return "", fmt.Errorf("openai error: %s: %s", resp.Error.Type, resp.Error.Message)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("empty response from openai")
		}
		return resp.Choices[0].Message.Content, nil
	})
}
