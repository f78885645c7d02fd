package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
	"github.com/kirillkom/smart-file-explorer/internal/core/ports"
)

var extensionCategories = map[string]domain.Category{
	".pdf":      domain.CategoryPDF,
	".doc":      domain.CategoryDocument,
	".docx":     domain.CategoryDocument,
	".odt":      domain.CategoryDocument,
	".rtf":      domain.CategoryDocument,
	".txt":      domain.CategoryText,
	".md":       domain.CategoryText,
	".markdown": domain.CategoryText,
	".ppt":      domain.CategoryPPT,
	".pptx":     domain.CategoryPPT,
	".odp":      domain.CategoryPPT,
	".xls":      domain.CategorySpreadsheet,
	".xlsx":     domain.CategorySpreadsheet,
	".xlsm":     domain.CategorySpreadsheet,
	".ods":      domain.CategorySpreadsheet,
	".csv":      domain.CategorySpreadsheet,
	".tsv":      domain.CategorySpreadsheet,
	".jpg":      domain.CategoryImage,
	".jpeg":     domain.CategoryImage,
	".png":      domain.CategoryImage,
	".gif":      domain.CategoryImage,
	".webp":     domain.CategoryImage,
	".bmp":      domain.CategoryImage,
	".svg":      domain.CategoryImage,
	".mp4":      domain.CategoryVideo,
	".avi":      domain.CategoryVideo,
	".mov":      domain.CategoryVideo,
	".mkv":      domain.CategoryVideo,
	".webm":     domain.CategoryVideo,
	".mp3":      domain.CategoryAudio,
	".wav":      domain.CategoryAudio,
	".flac":     domain.CategoryAudio,
	".ogg":      domain.CategoryAudio,
	".m4a":      domain.CategoryAudio,
	".ipynb":    domain.CategoryNotebook,
	".zip":      domain.CategoryZip,
	".rar":      domain.CategoryZip,
	".7z":       domain.CategoryZip,
	".tar":      domain.CategoryZip,
	".gz":       domain.CategoryZip,
	".py":       domain.CategoryCode,
	".go":       domain.CategoryCode,
	".js":       domain.CategoryCode,
	".ts":       domain.CategoryCode,
	".java":     domain.CategoryCode,
	".c":        domain.CategoryCode,
	".cpp":      domain.CategoryCode,
	".rs":       domain.CategoryCode,
	".rb":       domain.CategoryCode,
	".sh":       domain.CategoryCode,
}

// CategoryForExtension reports the statically mapped category of filename, if any.
func CategoryForExtension(filename string) (domain.Category, bool) {
	category, ok := extensionCategories[strings.ToLower(filepath.Ext(filename))]
	return category, ok
}

type Classifier struct {
	completer ports.ChatCompleter
	model     string
	timeout   time.Duration
	logger    *slog.Logger
}

func NewClassifier(completer ports.ChatCompleter, model string, timeout time.Duration, logger *slog.Logger) *Classifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		completer: completer,
		model:     model,
		timeout:   timeout,
		logger:    logger,
	}
}

// Classify tries the extension table first and asks the remote model only on a miss.
// The remote call outlives a cancelled inbound request but not its own timeout.
func (c *Classifier) Classify(ctx context.Context, filename string) domain.Classification {
	if category, ok := CategoryForExtension(filename); ok {
		return domain.Classification{Category: category, Outcome: domain.ClassifiedByExtension}
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	reply, err := c.completer.Complete(callCtx, []domain.ChatMessage{
		{Role: "user", Content: buildClassificationPrompt(filename)},
	}, c.model)
	if err != nil {
		c.logger.Warn("classify.remote_failed", "filename", filename, "error", err)
		return domain.Classification{Outcome: domain.ClassificationFailed, Err: err}
	}

	category, ok := domain.ParseCategory(reply)
	if !ok {
		c.logger.Info("classify.out_of_taxonomy", "filename", filename, "reply", reply)
		return domain.Classification{Outcome: domain.ClassifiedOutOfTaxonomy, Raw: reply}
	}
	return domain.Classification{Category: category, Outcome: domain.ClassifiedByModel, Raw: reply}
}

func buildClassificationPrompt(filename string) string {
	names := make([]string, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		names = append(names, string(c))
	}
	return fmt.Sprintf(`Categorize the file '%s' into one of these categories:
%s.
Only return the category name.`, filename, strings.Join(names, ", "))
}
