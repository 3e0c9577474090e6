package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"docqa/internal/adapter/chunker"
	"docqa/internal/domain"
	"docqa/internal/usecase"
)

var (
	askQuestion string
	askDocID    string
	askTopK     int
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question against an ingested document",
	Long: `Retrieve the most relevant passages of a document and answer the question
grounded in them, with citations back to the source chunks.

Examples:
  docqa ask -q "when is the deadline?"
  docqa ask -q "who are the parties?" --doc 3f2a91bc --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer (required)")
	askCmd.Flags().StringVar(&askDocID, "doc", "", "document ID or prefix (default is the latest document)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of passages to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("question")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := requireStore()
	if err != nil {
		return err
	}
	defer st.Close()

	doc, err := resolveDocument(st, userID, askDocID)
	if err != nil {
		return err
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	completer, err := buildCompleter(cfg)
	if err != nil {
		return err
	}

	engine := usecase.NewEngine(
		chunker.NewTextChunker(cfg.Chunking.Size, cfg.Chunking.Overlap),
		embedder,
		completer,
		usecase.EngineConfig{
			TopK:            cfg.Retrieve.TopK,
			MinScore:        cfg.Retrieve.MinScore,
			MaxAnswerTokens: cfg.Completion.MaxTokens,
			Retry:           retryPolicy(cfg),
		},
	)

	handle, err := rehydrate(st, engine, doc)
	if err != nil {
		return fmt.Errorf("failed to load index for %s: %w", shortID(doc.ID), err)
	}

	manager := usecase.NewSessionManager(engine)
	manager.Attach(userID, handle)

	answer, err := manager.Ask(cmd.Context(), userID, askQuestion, askTopK)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	// Best effort; the answer is already on screen if this fails.
	if err := st.AppendAnswer(answer); err != nil {
		fmt.Printf("warning: failed to record answer: %v\n", err)
	}

	return printAnswer(doc, answer)
}

func printAnswer(doc domain.Document, answer domain.Answer) error {
	if askJSON {
		output, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Document: %s (%s)\n\n", doc.Filename, shortID(doc.ID))
	fmt.Println(answer.Text)
	if answer.LowConfidence {
		fmt.Println("\nNote: no passage matched the question closely; the answer may be off-topic.")
	}
	if len(answer.Citations) > 0 {
		fmt.Println("\nSources:")
		for i, c := range answer.Citations {
			title := c.SectionTitle
			if title == "" {
				title = fmt.Sprintf("chunk %d", c.Seq)
			}
			fmt.Printf("  [%d] %s: %s\n", i+1, title, excerpt(c.Text, 100))
		}
	}
	return nil
}

// excerpt truncates text for single-line display.
func excerpt(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
