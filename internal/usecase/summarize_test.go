package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/llm"
	"docqa/internal/domain"
)

func sectionedDocument(t *testing.T) (domain.Document, []domain.Chunk) {
	t.Helper()
	text := "Background\n" +
		"The project began as a prototype in 2019. A small grant funded the first year. " +
		"The team grew to five people by the end of the second year.\n\n" +
		"Risks\n" +
		"Funding may run out before completion. Key team members may leave. " +
		"The regulatory landscape remains uncertain."

	doc := domain.Document{ID: "doc1", OwnerID: "alice", Filename: "report.txt", Text: text}
	chunks, err := chunker.NewTextChunker(160, 20).Chunk(doc.ID, text)
	require.NoError(t, err)
	return doc, chunks
}

func TestSummarizeWithSections(t *testing.T) {
	completer := &llm.MockCompleter{Fn: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, `titled "Background"`):
			return "How the project began.", nil
		case strings.Contains(prompt, `titled "Risks"`):
			return "What could go wrong.", nil
		default:
			return "A project report covering origins and risks.", nil
		}
	}}
	s := NewSummarizer(completer, fastRetry())
	doc, chunks := sectionedDocument(t)

	summary, err := s.Summarize(context.Background(), doc, chunks, SummarizeOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, summary.Overall)
	require.Len(t, summary.Sections, 2)
	assert.Equal(t, "Background", summary.Sections[0].Title)
	assert.Equal(t, "Risks", summary.Sections[1].Title)
	assert.Equal(t, "How the project began.", summary.Sections[0].Summary)
	assert.Equal(t, "What could go wrong.", summary.Sections[1].Summary)
	for _, sec := range summary.Sections {
		assert.False(t, sec.Failed)
	}
}

func TestSummarizePartialSectionFailure(t *testing.T) {
	completer := &llm.MockCompleter{Fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, `titled "Risks"`) {
			return "", errors.New("model overloaded")
		}
		return "fine", nil
	}}
	s := NewSummarizer(completer, fastRetry())
	doc, chunks := sectionedDocument(t)

	summary, err := s.Summarize(context.Background(), doc, chunks, SummarizeOptions{})
	require.NoError(t, err, "partial section failure must not fail the whole summary")

	require.Len(t, summary.Sections, 2, "failed sections are marked, never omitted")
	assert.False(t, summary.Sections[0].Failed)
	assert.True(t, summary.Sections[1].Failed)
	assert.Contains(t, summary.Sections[1].Error, "overloaded")
	assert.Empty(t, summary.Sections[1].Summary)
}

func TestSummarizeOverallFailure(t *testing.T) {
	completer := &llm.MockCompleter{Err: errors.New("service down")}
	s := NewSummarizer(completer, fastRetry())
	doc, chunks := sectionedDocument(t)

	_, err := s.Summarize(context.Background(), doc, chunks, SummarizeOptions{})
	assert.ErrorIs(t, err, domain.ErrSummarizationService)
}

func TestSummarizeNoSections(t *testing.T) {
	completer := &llm.MockCompleter{Response: "a summary."}
	s := NewSummarizer(completer, fastRetry())

	doc := domain.Document{ID: "doc1", Text: "plain text with no headings at all. it just keeps going for a while."}
	chunks, err := chunker.NewTextChunker(200, 20).Chunk(doc.ID, doc.Text)
	require.NoError(t, err)

	summary, err := s.Summarize(context.Background(), doc, chunks, SummarizeOptions{})
	require.NoError(t, err)
	assert.Empty(t, summary.Sections)
	assert.Equal(t, "a summary.", summary.Overall)
}

func TestSummarizeTruncatesRunawayOutput(t *testing.T) {
	long := strings.Repeat("word ", 500)
	completer := &llm.MockCompleter{Response: strings.TrimSpace(long)}
	s := NewSummarizer(completer, fastRetry())
	doc, chunks := sectionedDocument(t)

	summary, err := s.Summarize(context.Background(), doc, chunks, SummarizeOptions{MaxWords: 20, MinWords: 5, SlackFactor: 1.5})
	require.NoError(t, err)

	if got := len(strings.Fields(summary.Overall)); got > 30 {
		t.Errorf("overall summary has %d words, want at most 30", got)
	}
}

func TestSummarizeEmptyDocument(t *testing.T) {
	s := NewSummarizer(&llm.MockCompleter{}, fastRetry())
	_, err := s.Summarize(context.Background(), domain.Document{ID: "d", Text: "  "}, nil, SummarizeOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
