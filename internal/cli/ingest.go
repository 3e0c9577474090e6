package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/extract"
	"docqa/internal/adapter/fs"
	"docqa/internal/usecase"
)

var (
	ingestForce    bool
	ingestIncludes []string
	ingestExcludes []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path> [path...]",
	Short: "Upload documents into the index",
	Long: `Extract text from the given files, chunk and embed it, and persist the
result in the local document store. Directories are walked for supported
file types. A file whose content was already ingested for the same user is
skipped unless --force is given.

Examples:
  docqa ingest contract.txt           # Ingest one file
  docqa ingest ./docs                 # Ingest a directory
  docqa ingest report.md --force      # Reprocess even if unchanged`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVarP(&ingestForce, "force", "f", false, "reprocess documents even if already ingested")
	ingestCmd.Flags().StringSliceVar(&ingestIncludes, "include", nil, "glob patterns to include when walking directories")
	ingestCmd.Flags().StringSliceVar(&ingestExcludes, "exclude", nil, "glob patterns to exclude when walking directories")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no ingestable files found")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}

	ingestor := usecase.NewIngestor(
		extract.NewPlainText(),
		chunker.NewTextChunker(cfg.Chunking.Size, cfg.Chunking.Overlap),
		embedder,
		st,
		retryPolicy(cfg),
	)

	var ingested, cached, failed int
	for _, path := range files {
		result, err := ingestFile(cmd, ingestor, path)
		if err != nil {
			failed++
			fmt.Printf("  %s: %v\n", path, err)
			continue
		}
		if result.Cached {
			cached++
			fmt.Printf("  %s: already ingested (doc %s)\n", filepath.Base(path), shortID(result.Document.ID))
			continue
		}
		ingested++
		fmt.Printf("  %s: %d chunks (doc %s)\n", filepath.Base(path), len(result.Chunks), shortID(result.Document.ID))
	}

	fmt.Printf("\nIngest complete:\n")
	fmt.Printf("  Documents ingested: %d\n", ingested)
	fmt.Printf("  Already known:      %d\n", cached)
	if failed > 0 {
		fmt.Printf("  Failed:             %d\n", failed)
	}
	fmt.Printf("\nStore: %s\n", storePath())
	return nil
}

func ingestFile(cmd *cobra.Command, ingestor *usecase.Ingestor, path string) (usecase.IngestResult, error) {
	var bar *progressbar.ProgressBar

	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription(fmt.Sprintf("[cyan]Embedding[reset] %s", filepath.Base(path))),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	}

	return ingestor.IngestFile(cmd.Context(), userID, path, ingestForce, progress)
}

// collectFiles expands the arguments into a flat file list: files are taken
// as-is, directories are walked with the configured patterns.
func collectFiles(args []string) ([]string, error) {
	cfg := GetConfig()

	includes := cfg.Ingest.Includes
	if len(ingestIncludes) > 0 {
		includes = ingestIncludes
	}
	excludes := cfg.Ingest.Excludes
	if len(ingestExcludes) > 0 {
		excludes = ingestExcludes
	}
	walker := fs.NewWalker(includes, excludes)

	var files []string
	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid path %s: %w", arg, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("path does not exist: %w", err)
		}

		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		found, err := walker.Walk(path)
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", path, err)
		}
		for _, f := range found {
			files = append(files, f.Path)
		}
	}
	return files, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
