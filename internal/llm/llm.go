package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to an Ollama-compatible generate endpoint. Summaries are
// optional: callers should degrade gracefully when the endpoint is down.
type Client struct {
	url   string
	model string
	hc    *http.Client
}

const maxPromptContent = 4000

func NewClient(url, model string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{url: url, model: model, hc: httpClient}
}

// Summarize asks the model for a 2-3 sentence summary of the article.
func (c *Client) Summarize(ctx context.Context, title, content string) (string, error) {
	if len(content) > maxPromptContent {
		content = content[:maxPromptContent]
	}
	prompt := fmt.Sprintf(
		"Summarize the following news article in 2-3 sentences. Title: %s\n\nArticle: %s\n\nSummary:",
		title, content)

	body, err := json.Marshal(map[string]any{
		"model":      c.model,
		"prompt":     prompt,
		"max_tokens": 256,
		"stream":     false,
	})
	if err != nil {
		return "", fmt.Errorf("llm marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("llm request failed: status=%d body=%s", resp.StatusCode, respBody)
	}
	return extractText(respBody), nil
}

// extractText pulls the generated text out of whichever response shape the
// endpoint speaks: Ollama {"response"}, plain {"text"}, or OpenAI-style
// choices. Unrecognized bodies are returned as-is.
func extractText(body []byte) string {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return strings.TrimSpace(string(body))
	}
	if s, ok := m["response"].(string); ok && s != "" {
		return strings.TrimSpace(s)
	}
	if s, ok := m["text"].(string); ok && s != "" {
		return strings.TrimSpace(s)
	}
	if choices, ok := m["choices"].([]any); ok && len(choices) > 0 {
		if first, ok := choices[0].(map[string]any); ok {
			if s, ok := first["text"].(string); ok && s != "" {
				return strings.TrimSpace(s)
			}
			if msg, ok := first["message"].(map[string]any); ok {
				if s, ok := msg["content"].(string); ok && s != "" {
					return strings.TrimSpace(s)
				}
			}
		}
	}
	return strings.TrimSpace(string(body))
}
