package usecase

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"docqa/internal/domain"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

var prompts = template.Must(template.ParseFS(promptTemplates, "templates/*.txt"))

type answerPassage struct {
	Tag     string
	Section string
	Text    string
}

type answerPromptData struct {
	Question string
	Passages []answerPassage
}

// renderAnswerPrompt builds the grounded Q&A prompt: the question plus the
// retrieved chunks verbatim in retrieval-rank order, each tagged with its
// citation identity.
func renderAnswerPrompt(question string, retrieved []domain.ScoredChunk) (string, error) {
	data := answerPromptData{Question: question}
	for i, sc := range retrieved {
		data.Passages = append(data.Passages, answerPassage{
			Tag:     fmt.Sprintf("source %d", i+1),
			Section: sc.Chunk.SectionTitle,
			Text:    sc.Chunk.Text,
		})
	}
	return renderPrompt("answer.txt", data)
}

type summaryPromptData struct {
	Title    string
	Text     string
	MinWords int
	MaxWords int
}

func renderOverallSummaryPrompt(text string, minWords, maxWords int) (string, error) {
	return renderPrompt("summary_overall.txt", summaryPromptData{Text: text, MinWords: minWords, MaxWords: maxWords})
}

func renderSectionSummaryPrompt(title, text string, minWords, maxWords int) (string, error) {
	return renderPrompt("summary_section.txt", summaryPromptData{Title: title, Text: text, MinWords: minWords, MaxWords: maxWords})
}

func renderPrompt(name string, data any) (string, error) {
	var b strings.Builder
	if err := prompts.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return b.String(), nil
}
