package completion

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/af-corp/taskmind/internal/config"
)

// OpenAI talks to the OpenAI chat completions API, or any server speaking it.
type OpenAI struct {
	client *openai.Client
	model  string
}

var _ Service = (*OpenAI)(nil)

// NewOpenAI builds a client from cfg. Unknown provider types fall back to the
// OpenAI-compatible wire format.
func NewOpenAI(cfg *config.CompletionConfig) *OpenAI {
	if cfg.Provider != "" && cfg.Provider != "openai" {
		slog.Warn("unknown completion provider, using openai-compatible client", "provider", cfg.Provider)
	}

	oaiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaiCfg.BaseURL = cfg.BaseURL
	}
	oaiCfg.OrgID = cfg.Organization
	oaiCfg.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}

	model := cfg.Model
	if model == "" {
		model = config.DefaultCompletionModel
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(oaiCfg),
		model:  model,
	}
}

// Complete sends prompt as the only user message and returns the content of
// the first choice.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
