package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"docqa/config"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	userID  string
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Document QA - Upload documents, ask grounded questions, get summaries",
	Long: `docqa ingests plain-text documents, chunks and embeds them into a local
vector index, and answers questions grounded in the retrieved passages with
citations back to the source. It can also produce length-bounded summaries,
overall and per section.

Example usage:
  docqa ingest contract.txt                # Upload and index a document
  docqa ask -q "when is the deadline?"     # Ask against the latest document
  docqa summarize                          # Summarize the latest document
  docqa chat                               # Interactive session`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docqa.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "data directory (default is current directory)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "default", "user the session belongs to")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
