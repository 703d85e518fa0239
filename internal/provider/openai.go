package provider

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIAdapter invokes OpenAI models via the Chat Completions API.
type OpenAIAdapter struct {
	client openai.Client
	name   string
}

// NewOpenAIAdapter creates a new OpenAI adapter.
// If apiKey is empty it falls back to the OPENAI_API_KEY environment variable.
func NewOpenAIAdapter(apiKey string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}

	return &OpenAIAdapter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		name:   "openai",
	}, nil
}

// Name returns the adapter's provider name.
func (a *OpenAIAdapter) Name() string {
	return a.name
}

// Invoke sends a payload to the given OpenAI model and returns the text output.
func (a *OpenAIAdapter) Invoke(ctx context.Context, model, payload string) (*Result, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(payload),
		},
		MaxCompletionTokens: openai.Int(4096),
	})
	if err != nil {
		return nil, wrapOpenAIErr(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &CallError{Temporary: true, Err: fmt.Errorf("openai returned no choices")}
	}

	return &Result{
		Content: resp.Choices[0].Message.Content,
		Usage: &Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// wrapOpenAIErr attaches HTTP status metadata so governance can map the
// failure onto a fallback reason code.
func wrapOpenAIErr(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return &CallError{Status: apierr.StatusCode, Err: err}
	}
	return &CallError{Temporary: true, Err: err}
}
