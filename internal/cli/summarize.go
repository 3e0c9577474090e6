package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"docqa/internal/domain"
	"docqa/internal/usecase"
)

var (
	summarizeDocID string
	summarizeJSON  bool
	summarizeFresh bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize an ingested document",
	Long: `Produce a length-bounded summary of a document: one overall summary plus
one per detected section. A stored summary is reused when present.

Examples:
  docqa summarize
  docqa summarize --doc 3f2a91bc --json
  docqa summarize --fresh             # Regenerate even if stored`,
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().StringVar(&summarizeDocID, "doc", "", "document ID or prefix (default is the latest document)")
	summarizeCmd.Flags().BoolVar(&summarizeJSON, "json", false, "output as JSON")
	summarizeCmd.Flags().BoolVar(&summarizeFresh, "fresh", false, "regenerate instead of reusing a stored summary")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := requireStore()
	if err != nil {
		return err
	}
	defer st.Close()

	doc, err := resolveDocument(st, userID, summarizeDocID)
	if err != nil {
		return err
	}

	if !summarizeFresh {
		if summary, err := st.GetSummary(doc.ID); err == nil {
			return printSummary(doc, summary)
		}
	}

	chunks, err := st.GetChunks(doc.ID)
	if err != nil {
		return fmt.Errorf("failed to load chunks for %s: %w", shortID(doc.ID), err)
	}

	completer, err := buildCompleter(cfg)
	if err != nil {
		return err
	}

	summarizer := usecase.NewSummarizer(completer, retryPolicy(cfg))
	summary, err := summarizer.Summarize(cmd.Context(), doc, chunks, usecase.SummarizeOptions{
		MaxWords:    cfg.Summarize.MaxWords,
		MinWords:    cfg.Summarize.MinWords,
		SlackFactor: cfg.Summarize.SlackFactor,
	})
	if err != nil {
		return fmt.Errorf("summarize failed: %w", err)
	}

	if err := st.PutSummary(summary); err != nil {
		fmt.Printf("warning: failed to store summary: %v\n", err)
	}

	return printSummary(doc, summary)
}

func printSummary(doc domain.Document, summary domain.Summary) error {
	if summarizeJSON {
		output, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Document: %s (%s)\n\n", doc.Filename, shortID(doc.ID))
	fmt.Println(summary.Overall)

	for _, section := range summary.Sections {
		fmt.Printf("\n--- %s ---\n", section.Title)
		if section.Failed {
			fmt.Printf("(summary unavailable: %s)\n", section.Error)
			continue
		}
		fmt.Println(section.Summary)
	}
	return nil
}
