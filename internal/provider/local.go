package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultLocalBaseURL = "http://localhost:11434"

// LocalAdapter invokes a local Ollama-style backend over its
// OpenAI-compatible chat endpoint. Local backends carry zero cost and are
// the only legal target for sensitive payloads.
type LocalAdapter struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

// localRequest is the OpenAI-compatible request shape.
type localRequest struct {
	Model    string         `json:"model"`
	Messages []localMessage `json:"messages"`
	Stream   bool           `json:"stream"`
}

type localMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// localResponse is the OpenAI-compatible response shape.
type localResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewLocalAdapter creates an adapter for a local backend. An empty baseURL
// uses the default Ollama endpoint.
func NewLocalAdapter(name, baseURL string) *LocalAdapter {
	if baseURL == "" {
		baseURL = defaultLocalBaseURL
	}
	return &LocalAdapter{
		name:       name,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Name returns the adapter's provider name.
func (a *LocalAdapter) Name() string {
	return a.name
}

// Invoke sends a payload to the local backend and returns the text output.
func (a *LocalAdapter) Invoke(ctx context.Context, model, payload string) (*Result, error) {
	reqBody := localRequest{
		Model: model,
		Messages: []localMessage{
			{Role: "user", Content: payload},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/v1/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &CallError{Temporary: true, Err: fmt.Errorf("local backend %s unreachable: %w", a.name, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &CallError{Temporary: true, Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &CallError{Status: resp.StatusCode, Err: fmt.Errorf("local backend %s returned status %d: %s", a.name, resp.StatusCode, string(body))}
	}

	var localResp localResponse
	if err := json.Unmarshal(body, &localResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if localResp.Error != nil {
		return nil, &CallError{Temporary: true, Err: fmt.Errorf("local backend error: %s (type: %s)", localResp.Error.Message, localResp.Error.Type)}
	}

	if len(localResp.Choices) == 0 {
		return nil, &CallError{Temporary: true, Err: fmt.Errorf("local backend %s returned no choices", a.name)}
	}

	return &Result{
		Content: localResp.Choices[0].Message.Content,
		Usage: &Usage{
			PromptTokens:     localResp.Usage.PromptTokens,
			CompletionTokens: localResp.Usage.CompletionTokens,
			TotalTokens:      localResp.Usage.TotalTokens,
		},
	}, nil
}
