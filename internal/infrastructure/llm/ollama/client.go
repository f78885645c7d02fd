package ollama

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

const DefaultBaseURL = "http://localhost:11434"

// Client sends chat requests to a self-hosted Ollama server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
	logger     *slog.Logger
}

func New(baseURL string, executor *resilience.Executor, logger *slog.Logger) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.InferenceConfig(false))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
		logger:     logger,
	}
}

type chatRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	Error           string `json:"error"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (c *Client) Complete(ctx context.Context, messages []domain.ChatMessage, model string) (string, error) {
	start := time.Now()
	var response chatResponse

	err := c.executor.Execute(ctx, "ollama.chat", func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/api/chat", chatRequest{
			Model:    model,
			Messages: messages,
			Stream:   false,
		}, &response, "chat")
	}, classifyOllamaError)
	if err != nil {
		err = wrapTemporaryIfNeeded("ollama chat", err)
		c.logger.Warn("llm.complete.failed", "provider", "ollama", "model", model, "error", err)
		return "", err
	}

	if response.Error != "" {
		return "", domain.WrapError(domain.ErrMalformedResponse, "ollama chat", errors.New(response.Error))
	}
	if !response.Done {
		return "", domain.WrapError(domain.ErrMalformedResponse, "ollama chat", fmt.Errorf("response is incomplete"))
	}

	c.logger.Info("llm.complete.ok",
		"provider", "ollama",
		"model", model,
		"prompt_tokens", response.PromptEvalCount,
		"completion_tokens", response.EvalCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return strings.TrimSpace(response.Message.Content), nil
}
