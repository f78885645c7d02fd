package domain

// Format is the closed set of extraction variants selected by file extension.
type Format string

const (
	FormatPDF         Format = "pdf"
	FormatWordDoc     Format = "word"
	FormatSlides      Format = "slides"
	FormatTabular     Format = "tabular"
	FormatPlainText   Format = "plaintext"
	FormatHTML        Format = "html"
	FormatUnsupported Format = "unsupported"
)

// Extraction is the outcome of turning stored bytes into text.
// Err is set when the format parser failed; Text is then empty.
type Extraction struct {
	Format Format
	Text   string
	Err    error
}

type ClassificationOutcome string

const (
	ClassifiedByExtension   ClassificationOutcome = "extension"
	ClassifiedByModel       ClassificationOutcome = "model"
	ClassifiedOutOfTaxonomy ClassificationOutcome = "out_of_taxonomy"
	ClassificationFailed    ClassificationOutcome = "failed"
)

// Classification is the outcome of tagging a filename.
// Category is set only for the extension and model outcomes.
type Classification struct {
	Category Category
	Outcome  ClassificationOutcome
	Raw      string
	Err      error
}

// Summary is the outcome of a summarization request.
type Summary struct {
	Text      string
	Truncated bool
	Err       error
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
