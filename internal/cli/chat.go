package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/store"
	"docqa/internal/domain"
	"docqa/internal/usecase"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question-answering session",
	Long: `Start an interactive session against the user's documents. Plain input is
answered in the current mode; slash commands control the session:

  /docs             list ingested documents
  /doc <id>         switch the active document
  /mode qa          answer questions with citations (default)
  /mode summarize   respond with document summaries
  /status           show session state
  /quit             exit`,
}

func init() {
	chatCmd.RunE = runChat
	rootCmd.AddCommand(chatCmd)
}

// chatState carries the wiring a chat session needs across turns.
type chatState struct {
	st         *store.Bolt
	engine     *usecase.Engine
	manager    *usecase.SessionManager
	summarizer *usecase.Summarizer
	active     domain.Document
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := requireStore()
	if err != nil {
		return err
	}
	defer st.Close()

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

	state := &chatState{
		st:         st,
		engine:     engine,
		manager:    usecase.NewSessionManager(engine),
		summarizer: usecase.NewSummarizer(completer, retryPolicy(cfg)),
	}

	// Start on the most recent document when one exists.
	if doc, err := resolveDocument(st, userID, ""); err == nil {
		if err := state.activate(doc); err != nil {
			fmt.Printf("warning: %v\n", err)
		} else {
			fmt.Printf("Active document: %s (%s)\n", doc.Filename, shortID(doc.ID))
		}
	} else {
		fmt.Println("No documents yet. Run 'docqa ingest' in another terminal, then /doc <id>.")
	}
	fmt.Println("Type a question, or /help for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := state.command(cmd, line); quit {
				return nil
			}
			continue
		}

		state.respond(cmd, line)
	}
}

// command handles a slash command; it returns true when the session should
// end.
func (c *chatState) command(cmd *cobra.Command, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Println(chatCmd.Long)

	case "/docs":
		docs, err := c.st.ListDocuments(userID)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			break
		}
		if len(docs) == 0 {
			fmt.Println("No documents ingested.")
			break
		}
		for _, doc := range docs {
			marker := " "
			if doc.ID == c.active.ID {
				marker = "*"
			}
			fmt.Printf("%s %s  %s  %d chunks\n", marker, shortID(doc.ID), doc.Filename, doc.ChunkCount)
		}

	case "/doc":
		if len(fields) < 2 {
			fmt.Println("usage: /doc <id>")
			break
		}
		doc, err := resolveDocument(c.st, userID, fields[1])
		if err != nil {
			fmt.Printf("error: %v\n", err)
			break
		}
		if err := c.activate(doc); err != nil {
			fmt.Printf("error: %v\n", err)
			break
		}
		fmt.Printf("Active document: %s (%s)\n", doc.Filename, shortID(doc.ID))

	case "/mode":
		if len(fields) < 2 {
			fmt.Printf("mode: %s\n", c.manager.Get(userID).Mode)
			break
		}
		if err := c.manager.SwitchMode(userID, domain.Mode(fields[1])); err != nil {
			fmt.Printf("error: %v\n", err)
			break
		}
		fmt.Printf("mode: %s\n", fields[1])

	case "/status":
		session := c.manager.Get(userID)
		fmt.Printf("user:     %s\n", userID)
		fmt.Printf("mode:     %s\n", session.Mode)
		if c.active.ID == "" {
			fmt.Println("document: none")
		} else {
			fmt.Printf("document: %s (%s)\n", c.active.Filename, shortID(c.active.ID))
			fmt.Printf("index:    %s\n", c.manager.Readiness(userID))
		}

	default:
		fmt.Printf("unknown command %s (try /help)\n", fields[0])
	}
	return false
}

// respond answers plain input in the current mode.
func (c *chatState) respond(cmd *cobra.Command, line string) {
	if c.active.ID == "" {
		fmt.Println("No active document. Use /doc <id> first.")
		return
	}

	if c.manager.Get(userID).Mode == domain.ModeSummarize {
		c.summarize(cmd)
		return
	}

	answer, err := c.manager.Ask(cmd.Context(), userID, line, 0)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if err := c.st.AppendAnswer(answer); err != nil {
		fmt.Printf("warning: failed to record answer: %v\n", err)
	}

	fmt.Println(answer.Text)
	if answer.LowConfidence {
		fmt.Println("(no passage matched closely; the answer may be off-topic)")
	}
	for i, cit := range answer.Citations {
		title := cit.SectionTitle
		if title == "" {
			title = fmt.Sprintf("chunk %d", cit.Seq)
		}
		fmt.Printf("  [%d] %s: %s\n", i+1, title, excerpt(cit.Text, 80))
	}
}

func (c *chatState) summarize(cmd *cobra.Command) {
	cfg := GetConfig()

	if summary, err := c.st.GetSummary(c.active.ID); err == nil {
		printChatSummary(summary)
		return
	}

	chunks, err := c.st.GetChunks(c.active.ID)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	summary, err := c.summarizer.Summarize(cmd.Context(), c.active, chunks, usecase.SummarizeOptions{
		MaxWords:    cfg.Summarize.MaxWords,
		MinWords:    cfg.Summarize.MinWords,
		SlackFactor: cfg.Summarize.SlackFactor,
	})
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if err := c.st.PutSummary(summary); err != nil {
		fmt.Printf("warning: failed to store summary: %v\n", err)
	}
	printChatSummary(summary)
}

func printChatSummary(summary domain.Summary) {
	fmt.Println(summary.Overall)
	for _, section := range summary.Sections {
		fmt.Printf("\n--- %s ---\n", section.Title)
		if section.Failed {
			fmt.Printf("(summary unavailable: %s)\n", section.Error)
			continue
		}
		fmt.Println(section.Summary)
	}
}

// activate rebuilds the index for doc and makes it the session's active
// document.
func (c *chatState) activate(doc domain.Document) error {
	handle, err := rehydrate(c.st, c.engine, doc)
	if err != nil {
		return fmt.Errorf("failed to load index for %s: %w", shortID(doc.ID), err)
	}
	c.manager.Attach(userID, handle)
	c.active = doc
	return nil
}
