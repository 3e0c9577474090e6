package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/llm"
	"docqa/internal/domain"
	"docqa/internal/retry"
)

// gatedEmbedder wraps the mock embedder with optional blocking and failure
// injection for state machine tests.
type gatedEmbedder struct {
	*embedding.MockEmbedder
	gate chan struct{} // when set, Embed blocks until the gate closes
	err  error
}

func (g *gatedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if g.gate != nil {
		<-g.gate
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.MockEmbedder.Embed(ctx, texts)
}

func fastRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 1}
}

func waitState(t *testing.T, engine *Engine, ownerID, docID string, want domain.ReadyState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for engine.State(ownerID, docID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for state %s", want)
		}
		time.Sleep(time.Millisecond)
	}
}

func testDocument() domain.Document {
	text := "The agreement covers delivery of industrial equipment to the buyer. " +
		"Both parties signed the contract in January after extended talks.\n\n" +
		"Payment terms require settlement within sixty days of invoicing. " +
		"For the final milestone the deadline is March 5th as agreed.\n\n" +
		"Either party may terminate the agreement with thirty days notice. " +
		"Disputes are resolved through binding arbitration in Geneva."
	return domain.Document{ID: "doc1", OwnerID: "alice", Filename: "contract.txt", Text: text}
}

func newTestEngine(completer *llm.MockCompleter) *Engine {
	return NewEngine(
		chunker.NewTextChunker(140, 20),
		embedding.NewMockEmbedder(256),
		completer,
		EngineConfig{TopK: 2, Retry: fastRetry()},
	)
}

func TestAskBeforeInitialize(t *testing.T) {
	completer := &llm.MockCompleter{Response: "should not be called"}
	engine := newTestEngine(completer)

	handle := &IndexHandle{OwnerID: "alice", DocID: "doc1"}
	_, err := engine.Ask(context.Background(), handle, "what is the deadline?", 0)
	assert.ErrorIs(t, err, domain.ErrNotReady)
	assert.Equal(t, 0, completer.Calls(), "no completion call may be made before the index is ready")
}

func TestInitializeThenAskWithCitations(t *testing.T) {
	completer := &llm.MockCompleter{Response: "The deadline is March 5th."}
	engine := newTestEngine(completer)
	doc := testDocument()

	handle, err := engine.Initialize(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, domain.Ready, engine.State("alice", "doc1"))
	assert.Greater(t, handle.ChunkCount, 1)

	answer, err := engine.Ask(context.Background(), handle, "what is the deadline?", 0)
	require.NoError(t, err)

	assert.Contains(t, answer.Text, "March 5th")
	require.NotEmpty(t, answer.Citations)
	assert.Contains(t, answer.Citations[0].Text, "March 5th",
		"top citation should point at the chunk containing the deadline")

	// The grounded prompt carries the retrieved passages and the question.
	prompts := completer.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "what is the deadline?")
	assert.Contains(t, prompts[0], "[source 1]")
	assert.Contains(t, prompts[0], "only")
}

func TestAskEmptyQuestion(t *testing.T) {
	completer := &llm.MockCompleter{Response: "x"}
	engine := newTestEngine(completer)

	handle, err := engine.Initialize(context.Background(), testDocument())
	require.NoError(t, err)

	_, err = engine.Ask(context.Background(), handle, "   ", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, completer.Calls())
}

func TestConcurrentInitializeRejected(t *testing.T) {
	gate := make(chan struct{})
	embedder := &gatedEmbedder{MockEmbedder: embedding.NewMockEmbedder(64), gate: gate}
	engine := NewEngine(chunker.NewTextChunker(140, 20), embedder, &llm.MockCompleter{}, EngineConfig{Retry: fastRetry()})
	doc := testDocument()

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := engine.Initialize(context.Background(), doc)
		done <- err
	}()
	<-started
	waitState(t, engine, "alice", "doc1", domain.Indexing)

	_, err := engine.Initialize(context.Background(), doc)
	assert.ErrorIs(t, err, domain.ErrBuildInProgress)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, domain.Ready, engine.State("alice", "doc1"))
}

func TestInitializeFailureLeavesNotIndexed(t *testing.T) {
	embedder := &gatedEmbedder{MockEmbedder: embedding.NewMockEmbedder(64), err: domain.ErrEmbeddingService}
	completer := &llm.MockCompleter{}
	engine := NewEngine(chunker.NewTextChunker(140, 20), embedder, completer, EngineConfig{Retry: fastRetry()})

	_, err := engine.Initialize(context.Background(), testDocument())
	assert.ErrorIs(t, err, domain.ErrIndexBuild)
	assert.Equal(t, domain.NotIndexed, engine.State("alice", "doc1"))
	assert.Equal(t, 0, completer.Calls())
}

func TestSupersededBuildDiscarded(t *testing.T) {
	gate := make(chan struct{})
	embedder := &gatedEmbedder{MockEmbedder: embedding.NewMockEmbedder(64), gate: gate}
	engine := NewEngine(chunker.NewTextChunker(140, 20), embedder, &llm.MockCompleter{}, EngineConfig{Retry: fastRetry()})
	doc := testDocument()

	done := make(chan error, 1)
	go func() {
		_, err := engine.Initialize(context.Background(), doc)
		done <- err
	}()
	waitState(t, engine, "alice", "doc1", domain.Indexing)

	// A new upload supersedes the in-flight build.
	engine.Invalidate("alice", "doc1")
	close(gate)

	err := <-done
	assert.ErrorIs(t, err, domain.ErrIndexBuild)
	assert.NotEqual(t, domain.Ready, engine.State("alice", "doc1"),
		"a superseded build must not install its index")
}

func TestSequentialReinitializeDeterministic(t *testing.T) {
	completer := &llm.MockCompleter{Response: "answer"}
	engine := newTestEngine(completer)
	doc := testDocument()

	first, err := engine.Initialize(context.Background(), doc)
	require.NoError(t, err)
	a1, err := engine.Ask(context.Background(), first, "what is the deadline?", 3)
	require.NoError(t, err)

	second, err := engine.Initialize(context.Background(), doc)
	require.NoError(t, err)
	a2, err := engine.Ask(context.Background(), second, "what is the deadline?", 3)
	require.NoError(t, err)

	assert.Equal(t, first.ChunkCount, second.ChunkCount)
	assert.Equal(t, a1.Citations, a2.Citations, "rebuild must preserve search behavior")
}

func TestConcurrentAsks(t *testing.T) {
	completer := &llm.MockCompleter{Fn: func(prompt string) (string, error) {
		return "grounded answer", nil
	}}
	engine := newTestEngine(completer)
	doc := testDocument()

	handle, err := engine.Initialize(context.Background(), doc)
	require.NoError(t, err)

	chunkIDs := map[string]bool{}
	for _, ch := range handle.Chunks() {
		chunkIDs[ch.ID] = true
	}

	questions := []string{"what is the deadline?", "how can the agreement be terminated?"}
	var wg sync.WaitGroup
	answers := make([]domain.Answer, len(questions))
	errs := make([]error, len(questions))
	for i, q := range questions {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			answers[i], errs[i] = engine.Ask(context.Background(), handle, q, 2)
		}(i, q)
	}
	wg.Wait()

	for i := range questions {
		require.NoError(t, errs[i])
		require.NotEmpty(t, answers[i].Citations)
		for _, c := range answers[i].Citations {
			assert.True(t, chunkIDs[c.ChunkID], "citation must come from the document's own chunks")
		}
	}
}

func TestAskCompletionFailure(t *testing.T) {
	completer := &llm.MockCompleter{Err: domain.ErrAnswerService}
	engine := newTestEngine(completer)

	handle, err := engine.Initialize(context.Background(), testDocument())
	require.NoError(t, err)

	_, err = engine.Ask(context.Background(), handle, "what is the deadline?", 0)
	assert.ErrorIs(t, err, domain.ErrAnswerService,
		"completion failure must surface, not degrade to an empty answer")
}

func TestAskLowConfidenceFlag(t *testing.T) {
	completer := &llm.MockCompleter{Response: "the document does not mention this"}
	engine := NewEngine(
		chunker.NewTextChunker(140, 20),
		embedding.NewMockEmbedder(256),
		completer,
		EngineConfig{TopK: 2, MinScore: 0.95, Retry: fastRetry()},
	)

	handle, err := engine.Initialize(context.Background(), testDocument())
	require.NoError(t, err)

	answer, err := engine.Ask(context.Background(), handle, "zebra quantum volcano?", 0)
	require.NoError(t, err)
	assert.True(t, answer.LowConfidence)
	assert.NotEmpty(t, answer.Text, "low confidence still returns the best-effort answer")
}

func TestInitializePrepared(t *testing.T) {
	completer := &llm.MockCompleter{Response: "answer"}
	engine := newTestEngine(completer)
	doc := testDocument()

	c := chunker.NewTextChunker(140, 20)
	chunks, err := c.Chunk(doc.ID, doc.Text)
	require.NoError(t, err)
	vectors, err := embedding.NewMockEmbedder(256).Embed(context.Background(), chunkTexts(chunks))
	require.NoError(t, err)

	handle, err := engine.InitializePrepared("alice", doc.ID, chunks, vectors)
	require.NoError(t, err)
	assert.Equal(t, domain.Ready, engine.State("alice", doc.ID))

	_, err = engine.Ask(context.Background(), handle, "what is the deadline?", 0)
	require.NoError(t, err)
}

func chunkTexts(chunks []domain.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	return texts
}
