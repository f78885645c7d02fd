package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
)

var formatsByExtension = map[string]domain.Format{
	".pdf":      domain.FormatPDF,
	".docx":     domain.FormatWordDoc,
	".doc":      domain.FormatWordDoc,
	".pptx":     domain.FormatSlides,
	".ppt":      domain.FormatSlides,
	".csv":      domain.FormatTabular,
	".tsv":      domain.FormatTabular,
	".xlsx":     domain.FormatTabular,
	".xlsm":     domain.FormatTabular,
	".txt":      domain.FormatPlainText,
	".md":       domain.FormatPlainText,
	".markdown": domain.FormatPlainText,
	".html":     domain.FormatHTML,
	".htm":      domain.FormatHTML,
}

// DetectFormat maps the lower-cased extension of filename to an extraction variant.
func DetectFormat(filename string) domain.Format {
	if format, ok := formatsByExtension[extension(filename)]; ok {
		return format
	}
	return domain.FormatUnsupported
}

type Extractor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract turns stored bytes into plain text. Parser failures, including panics
// raised inside third-party parsers, are reported in the result's Err field.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename string) (result domain.Extraction) {
	format := DetectFormat(filename)
	result.Format = format

	defer func() {
		if r := recover(); r != nil {
			result = domain.Extraction{
				Format: format,
				Err:    domain.WrapError(domain.ErrExtraction, "extract "+string(format), fmt.Errorf("parser panic: %v", r)),
			}
		}
		e.logger.DebugContext(ctx, "extract.done",
			"filename", filename,
			"format", format,
			"text_len", len(result.Text),
			"failed", result.Err != nil,
		)
	}()

	var (
		text string
		err  error
	)
	switch format {
	case domain.FormatPDF:
		text, err = extractPDF(data)
	case domain.FormatWordDoc:
		text, err = extractWordDoc(data)
	case domain.FormatSlides:
		text, err = extractSlides(data)
	case domain.FormatTabular:
		text, err = extractTabular(data, extension(filename))
	case domain.FormatPlainText:
		text = decodeText(data)
	case domain.FormatHTML:
		text, err = extractHTML(data)
	default:
		text = "Unsupported file type: " + extension(filename)
	}
	if err != nil {
		return domain.Extraction{
			Format: format,
			Err:    domain.WrapError(domain.ErrExtraction, "extract "+string(format), err),
		}
	}
	return domain.Extraction{Format: format, Text: text}
}

func extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
