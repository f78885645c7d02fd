package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
	"github.com/kirillkom/smart-file-explorer/internal/core/ports"
)

const summarizerSystemPrompt = "You are a helpful assistant that summarizes documents."

type Summarizer struct {
	completer ports.ChatCompleter
	model     string
	maxChars  int
	timeout   time.Duration
	logger    *slog.Logger
}

func NewSummarizer(completer ports.ChatCompleter, model string, maxChars int, timeout time.Duration, logger *slog.Logger) *Summarizer {
	if maxChars <= 0 {
		maxChars = 4000
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{
		completer: completer,
		model:     model,
		maxChars:  maxChars,
		timeout:   timeout,
		logger:    logger,
	}
}

func (s *Summarizer) Summarize(ctx context.Context, text, filename string) domain.Summary {
	snippet, truncated := truncateRunes(text, s.maxChars)

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	reply, err := s.completer.Complete(callCtx, []domain.ChatMessage{
		{Role: "system", Content: summarizerSystemPrompt},
		{Role: "user", Content: buildSummaryPrompt(filename, snippet)},
	}, s.model)
	if err != nil {
		s.logger.Warn("summarize.remote_failed", "filename", filename, "error", err)
		return domain.Summary{Truncated: truncated, Err: err}
	}
	return domain.Summary{Text: strings.TrimSpace(reply), Truncated: truncated}
}

func buildSummaryPrompt(filename, content string) string {
	return fmt.Sprintf(`Summarize the content of the file '%s' in 3-5 concise bullet points.
Keep it simple and clear.

File Content:
%s`, filename, content)
}

// truncateRunes keeps the first limit characters of text without splitting a rune.
func truncateRunes(text string, limit int) (string, bool) {
	if len(text) <= limit {
		return text, false
	}
	count := 0
	for idx := range text {
		if count == limit {
			return text[:idx], true
		}
		count++
	}
	return text, false
}
