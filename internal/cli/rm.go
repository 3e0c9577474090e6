package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <doc-id>",
	Short: "Delete an ingested document and its derived data",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

func init() {
	rootCmd.AddCommand(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	st, err := requireStore()
	if err != nil {
		return err
	}
	defer st.Close()

	doc, err := resolveDocument(st, userID, args[0])
	if err != nil {
		return err
	}

	if err := st.DeleteDocument(doc.ID); err != nil {
		return fmt.Errorf("failed to delete %s: %w", shortID(doc.ID), err)
	}

	fmt.Printf("Deleted %s (%s)\n", doc.Filename, shortID(doc.ID))
	return nil
}
