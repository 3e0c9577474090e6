package domain

import "errors"

// Error kinds for the document Q&A core. These are distinct sentinel values
// so callers can map each failure class to its own user-visible message with
// errors.Is; adapters wrap them with stage context via fmt.Errorf("...: %w").
var (
	// ErrInvalidInput indicates malformed or empty input. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates inconsistent vector dimensions.
	// A programmer or data error, fatal for the operation.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingService indicates the embedding service failed.
	ErrEmbeddingService = errors.New("embedding service failed")

	// ErrSummarizationService indicates the completion service failed
	// while generating a summary.
	ErrSummarizationService = errors.New("summarization service failed")

	// ErrAnswerService indicates the completion service failed while
	// answering a question. Distinct from "no relevant context found".
	ErrAnswerService = errors.New("answer service failed")

	// ErrExtraction indicates text extraction from an uploaded file failed.
	ErrExtraction = errors.New("text extraction failed")

	// ErrNotReady indicates a question was asked before the active
	// document's index was built. User-correctable.
	ErrNotReady = errors.New("document index not ready")

	// ErrBuildInProgress indicates an index build is already running for
	// the same user and document. Callers may retry after a short delay.
	ErrBuildInProgress = errors.New("index build already in progress")

	// ErrEmptyIndex indicates a search against an index with zero chunks.
	ErrEmptyIndex = errors.New("vector index is empty")

	// ErrIndexBuild wraps the first underlying chunker, embedder or index
	// failure during Initialize.
	ErrIndexBuild = errors.New("index build failed")

	// ErrNotFound indicates a requested document does not exist.
	ErrNotFound = errors.New("not found")
)
