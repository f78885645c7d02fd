package openrouter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
	"github.com/kirillkom/smart-file-explorer/internal/infrastructure/resilience"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

type Config struct {
	BaseURL string
	APIKey  string
	// AppURL and AppName are sent as OpenRouter attribution headers when set.
	AppURL  string
	AppName string
}

// Client calls an OpenAI-compatible chat completions endpoint.
// It never substitutes fallback values; callers decide what a failure means.
type Client struct {
	cfg        Config
	httpClient *http.Client
	executor   *resilience.Executor
	logger     *slog.Logger
}

func New(cfg Config, executor *resilience.Executor, logger *slog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.InferenceConfig(false))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg: cfg,
		// Per-call deadlines come from the caller's context.
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
		logger:     logger,
	}
}

type chatRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func (c *Client) Complete(ctx context.Context, messages []domain.ChatMessage, model string) (string, error) {
	start := time.Now()
	var response chatResponse

	err := c.executor.Execute(ctx, "openrouter.chat_completions", func(callCtx context.Context) error {
		response = chatResponse{}
		return c.postJSON(callCtx, "/chat/completions", chatRequest{Model: model, Messages: messages}, &response, "chat completions")
	}, classifyOpenRouterError)
	if err != nil {
		c.logger.Warn("llm.complete.failed",
			"model", model,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", wrapInferenceError("chat completions", err)
	}

	if response.Error != nil {
		return "", domain.WrapError(domain.ErrMalformedResponse, "chat completions",
			fmt.Errorf("provider error: %s", strings.TrimSpace(response.Error.Message)))
	}
	if len(response.Choices) == 0 {
		return "", domain.WrapError(domain.ErrMalformedResponse, "chat completions", errors.New("no choices in response"))
	}

	attrs := []any{
		"model", model,
		"response_id", response.ID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	if response.Usage != nil {
		attrs = append(attrs,
			"prompt_tokens", response.Usage.PromptTokens,
			"completion_tokens", response.Usage.CompletionTokens,
		)
	}
	c.logger.Info("llm.complete.ok", attrs...)

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
