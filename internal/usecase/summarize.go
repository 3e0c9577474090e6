package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docqa/internal/adapter/chunker"
	"docqa/internal/domain"
	"docqa/internal/port"
	"docqa/internal/retry"
)

// SummarizeOptions bounds generated summary lengths in words. The bounds are
// passed to the completion service as prompt hints; output exceeding
// MaxWords by more than SlackFactor is truncated defensively.
type SummarizeOptions struct {
	MaxWords    int
	MinWords    int
	SlackFactor float64
}

func (o SummarizeOptions) withDefaults() SummarizeOptions {
	if o.MaxWords <= 0 {
		o.MaxWords = 150
	}
	if o.MinWords <= 0 {
		o.MinWords = 40
	}
	if o.SlackFactor < 1 {
		o.SlackFactor = 1.5
	}
	return o
}

// Summarizer produces an overall document summary plus one summary per
// detected section, delegating to the completion service.
type Summarizer struct {
	completer port.Completer
	policy    retry.Policy
}

func NewSummarizer(completer port.Completer, policy retry.Policy) *Summarizer {
	if policy.MaxAttempts == 0 {
		policy = retry.DefaultPolicy()
	}
	return &Summarizer{completer: completer, policy: policy}
}

// Summarize generates the overall summary and, for each distinct section
// title the chunks carry, a section summary in document order. A failed
// section is marked Failed with its error rather than omitted, so callers
// can tell "no sections" from "some sections failed". Overall-summary
// failure fails the whole call with ErrSummarizationService.
func (s *Summarizer) Summarize(ctx context.Context, doc domain.Document, chunks []domain.Chunk, opts SummarizeOptions) (domain.Summary, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return domain.Summary{}, fmt.Errorf("summarize: document %s has no text: %w", doc.ID, domain.ErrInvalidInput)
	}
	opts = opts.withDefaults()

	overall, err := s.complete(ctx, func() (string, error) {
		return renderOverallSummaryPrompt(doc.Text, opts.MinWords, opts.MaxWords)
	}, opts)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("summarize: document %s: %v: %w", doc.ID, err, domain.ErrSummarizationService)
	}

	summary := domain.Summary{
		DocID:       doc.ID,
		Overall:     overall,
		GeneratedAt: time.Now().UTC(),
	}

	for _, sec := range sectionSpans(doc.Text, chunks) {
		text, err := s.complete(ctx, func() (string, error) {
			return renderSectionSummaryPrompt(sec.Title, sec.Body, opts.MinWords, opts.MaxWords)
		}, opts)
		if err != nil {
			summary.Sections = append(summary.Sections, domain.SectionSummary{
				Title:  sec.Title,
				Failed: true,
				Error:  err.Error(),
			})
			continue
		}
		summary.Sections = append(summary.Sections, domain.SectionSummary{
			Title:   sec.Title,
			Summary: text,
		})
	}

	return summary, nil
}

func (s *Summarizer) complete(ctx context.Context, render func() (string, error), opts SummarizeOptions) (string, error) {
	prompt, err := render()
	if err != nil {
		return "", err
	}

	var text string
	err = retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var compErr error
		// Words to tokens is roughly 1:1.3; leave headroom for the hint.
		text, compErr = s.completer.Complete(ctx, prompt, port.CompleteOptions{MaxTokens: opts.MaxWords * 2})
		return compErr
	})
	if err != nil {
		return "", err
	}
	return truncateWords(text, int(float64(opts.MaxWords)*opts.SlackFactor)), nil
}

// sectionSpans returns the document's sections to summarize, in document
// order. Section boundaries come from heading detection over the full text
// (exact bodies, no chunk-overlap duplication); a section is summarized only
// when at least one chunk carries its title, so "no sections" means the
// chunker saw none either.
func sectionSpans(text string, chunks []domain.Chunk) []domain.Section {
	titled := make(map[string]bool)
	for _, ch := range chunks {
		if ch.SectionTitle != "" {
			titled[ch.SectionTitle] = true
		}
	}
	if len(titled) == 0 {
		return nil
	}

	var sections []domain.Section
	for _, sec := range chunker.DetectSections(text) {
		if titled[sec.Title] {
			sections = append(sections, sec)
		}
	}
	return sections
}

func truncateWords(text string, maxWords int) string {
	if maxWords <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ")
}
