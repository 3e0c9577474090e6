package domain

import "time"

// Document is an uploaded document after text extraction. Immutable once
// stored; replaced, never edited.
type Document struct {
	ID          string
	OwnerID     string
	Filename    string
	Text        string
	ContentHash string
	CharCount   int
	ChunkCount  int
	CreatedAt   time.Time
}

// Chunk is a bounded contiguous span of a document's text, the unit of
// retrieval. Offsets are rune offsets into the cleaned document text.
type Chunk struct {
	ID    string
	DocID string
	// Seq is the chunk's position within the document, contiguous from 0.
	Seq          int
	Start        int
	End          int
	SectionTitle string
	Text         string
}

// ScoredChunk pairs a chunk with its similarity score for a query.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Section is one detected section of a document.
type Section struct {
	Title string
	Body  string
	// Start is the rune offset of the section's heading line in the
	// cleaned text; the body follows it.
	Start int
}

// SectionSummary is one section's summary. Failed sections are marked, not
// dropped, so callers can tell "no sections" from "some sections failed".
type SectionSummary struct {
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	Failed  bool   `json:"failed,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Summary is the derived summary artifact of a document.
type Summary struct {
	DocID       string           `json:"doc_id"`
	Overall     string           `json:"overall_summary"`
	Sections    []SectionSummary `json:"sections"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Citation references a chunk that grounded an answer, carrying the cited
// text for display.
type Citation struct {
	ChunkID      string `json:"source"`
	Seq          int    `json:"seq"`
	SectionTitle string `json:"section,omitempty"`
	Text         string `json:"text"`
}

// Answer is the derived artifact of one (document, question) pair. The
// citation list is the retrieval set in rank order, surfaced as grounding
// evidence whether or not the model's text names each source.
type Answer struct {
	DocID         string     `json:"doc_id"`
	Question      string     `json:"question"`
	Text          string     `json:"answer"`
	Citations     []Citation `json:"citations"`
	LowConfidence bool       `json:"low_confidence,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ReadyState is the RAG readiness of a (user, document) pair.
type ReadyState int

const (
	NotIndexed ReadyState = iota
	Indexing
	Ready
	Stale
)

func (s ReadyState) String() string {
	switch s {
	case NotIndexed:
		return "not-indexed"
	case Indexing:
		return "indexing"
	case Ready:
		return "ready"
	case Stale:
		return "stale"
	}
	return "unknown"
}

// Mode is the user's interaction mode.
type Mode string

const (
	ModeQA        Mode = "qa"
	ModeSummarize Mode = "summarize"
)
