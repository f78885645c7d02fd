package domain

import "strings"

// Category is the closed taxonomy a stored file can be tagged with.
type Category string

const (
	CategoryText        Category = "text"
	CategoryDocument    Category = "document"
	CategoryPDF         Category = "pdf"
	CategoryPPT         Category = "ppt"
	CategoryImage       Category = "image"
	CategoryVideo       Category = "video"
	CategorySpreadsheet Category = "spreadsheet"
	CategoryAudio       Category = "audio"
	CategoryCode        Category = "code"
	CategoryZip         Category = "zip"
	CategoryNotebook    Category = "notebook"

	// CategoryUnknown marks a file whose classification failed or never ran.
	CategoryUnknown Category = "unknown"
)

// Categories lists the taxonomy in prompt order. CategoryUnknown is not a member.
var Categories = []Category{
	CategoryText,
	CategoryDocument,
	CategoryPDF,
	CategoryPPT,
	CategoryImage,
	CategoryVideo,
	CategorySpreadsheet,
	CategoryAudio,
	CategoryCode,
	CategoryZip,
	CategoryNotebook,
}

// ParseCategory trims and lower-cases raw and reports whether it names a taxonomy member.
func ParseCategory(raw string) (Category, bool) {
	candidate := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, c := range Categories {
		if c == candidate {
			return c, true
		}
	}
	return "", false
}

// Storable reports whether c may be written into the index.
func (c Category) Storable() bool {
	if c == CategoryUnknown {
		return true
	}
	for _, member := range Categories {
		if member == c {
			return true
		}
	}
	return false
}

const (
	ExtractionFailedText   = "Could not extract text from file."
	SummaryUnavailableText = "Summary not available."
)

// FileEntry is the enrichment stored for one filename.
type FileEntry struct {
	Tag     Category `json:"tag,omitempty"`
	Summary string   `json:"summary,omitempty"`
}

// MetadataIndex maps filename to its enrichment. It is serialized as one document.
type MetadataIndex map[string]FileEntry

func (idx MetadataIndex) Clone() MetadataIndex {
	out := make(MetadataIndex, len(idx))
	for name, entry := range idx {
		out[name] = entry
	}
	return out
}

// FileRecord is a stored file joined with its enrichment.
type FileRecord struct {
	Filename string   `json:"filename"`
	Tag      Category `json:"tag"`
	Summary  string   `json:"summary"`
}

type SearchHit struct {
	Filename string   `json:"filename"`
	Tag      Category `json:"tag"`
}

type UploadResult struct {
	Filename string   `json:"filename"`
	Tag      Category `json:"tag"`
}

type SummaryResult struct {
	Filename string `json:"filename"`
	Summary  string `json:"summary"`
}

type FileEventType string

const (
	FileUploaded   FileEventType = "uploaded"
	FileClassified FileEventType = "classified"
	FileSummarized FileEventType = "summarized"
	FileDeleted    FileEventType = "deleted"
)

// FileEvent notifies downstream consumers about a change to a stored file.
type FileEvent struct {
	Type     FileEventType `json:"type"`
	Filename string        `json:"filename"`
	Tag      Category      `json:"tag,omitempty"`
}
