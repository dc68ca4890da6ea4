// Package oracle invokes the external reasoning capability that proposes task
// reorganizations. The model is opaque and non-deterministic; everything it
// returns is schema-validated here and deterministically filtered downstream.
package oracle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"tidyboard-api/domain"
	"tidyboard-api/organize"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1/messages"
	defaultModel     = "claude-sonnet-4-20250514"
	anthropicVersion = "2023-06-01"
	defaultTimeout   = 60 * time.Second
	maxOutputTokens  = 4096
)

// Client calls the Anthropic Messages API. One generation is one attempt:
// whole-operation retry is user-initiated, never automatic.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// New creates an oracle client. Empty model and zero timeout select defaults.
func New(apiKey, model string, timeout time.Duration) *Client {
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   model,
		http:    &http.Client{Timeout: timeout},
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Generate renders the workload context into the fixed request contract,
// invokes the model once, and returns the schema-validated suggestion list.
func (c *Client) Generate(ctx context.Context, wc domain.WorkloadContext) (organize.OracleResult, error) {
	if c.apiKey == "" {
		return organize.OracleResult{}, fmt.Errorf("oracle api key not configured")
	}

	req := messagesRequest{
		Model:     c.model,
		MaxTokens: maxOutputTokens,
		System:    systemGuidance,
		Messages:  []message{{Role: "user", Content: renderContext(wc)}},
	}
	body, err := sonic.Marshal(req)
	if err != nil {
		return organize.OracleResult{}, fmt.Errorf("marshal oracle request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return organize.OracleResult{}, fmt.Errorf("create oracle request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return organize.OracleResult{}, fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return organize.OracleResult{}, fmt.Errorf("read oracle response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return organize.OracleResult{}, fmt.Errorf("oracle api error (%d): %s", resp.StatusCode, snippet(respBody))
	}

	var apiResp messagesResponse
	if err := sonic.Unmarshal(respBody, &apiResp); err != nil {
		return organize.OracleResult{}, fmt.Errorf("decode oracle response: %w", err)
	}
	text := ""
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return organize.OracleResult{}, fmt.Errorf("empty oracle response")
	}

	return DecodeResult(text)
}

const maxSnippetLen = 300

func snippet(body []byte) string {
	if len(body) > maxSnippetLen {
		body = body[:maxSnippetLen]
	}
	return string(body)
}
