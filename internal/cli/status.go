package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store contents and configuration",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := requireStore()
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats()
	if err != nil {
		return fmt.Errorf("failed to read store stats: %w", err)
	}

	docs, err := st.ListDocuments(userID)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if statusJSON {
		output, err := json.MarshalIndent(map[string]any{
			"store":     storePath(),
			"stats":     stats,
			"documents": docs,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Store: %s\n", storePath())
	fmt.Printf("  Documents: %d\n", stats.Documents)
	fmt.Printf("  Chunks:    %d\n", stats.Chunks)
	fmt.Printf("  Answers:   %d\n", stats.Answers)
	fmt.Printf("\nEmbedding:  %s (%s, dim %d)\n", cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.Dimension)
	fmt.Printf("Completion: %s (%s)\n", cfg.Completion.Provider, cfg.Completion.Model)

	if len(docs) == 0 {
		fmt.Printf("\nNo documents for user %s.\n", userID)
		return nil
	}

	fmt.Printf("\nDocuments for %s:\n", userID)
	for _, doc := range docs {
		fmt.Printf("  %s  %-30s  %d chunks  %s\n",
			shortID(doc.ID), doc.Filename, doc.ChunkCount, doc.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
