package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/llm"
	"docqa/internal/domain"
)

func newTestManager(completer *llm.MockCompleter) *SessionManager {
	return NewSessionManager(newTestEngine(completer))
}

func TestAskWithoutUpload(t *testing.T) {
	completer := &llm.MockCompleter{Response: "should not run"}
	m := newTestManager(completer)

	_, err := m.Ask(context.Background(), "alice", "what is the deadline?", 0)
	assert.ErrorIs(t, err, domain.ErrNotReady)
	assert.Equal(t, 0, completer.Calls(), "no completion call without an active document")
}

func TestUploadThenAsk(t *testing.T) {
	completer := &llm.MockCompleter{Response: "The deadline is March 5th."}
	m := newTestManager(completer)

	handle, err := m.Upload(context.Background(), testDocument())
	require.NoError(t, err)
	assert.Equal(t, domain.Ready, m.Readiness("alice"))
	assert.Greater(t, handle.ChunkCount, 0)

	answer, err := m.Ask(context.Background(), "alice", "what is the deadline?", 0)
	require.NoError(t, err)
	assert.Contains(t, answer.Text, "March 5th")
}

func TestModeSwitchKeepsIndex(t *testing.T) {
	completer := &llm.MockCompleter{Response: "answer"}
	m := newTestManager(completer)

	_, err := m.Upload(context.Background(), testDocument())
	require.NoError(t, err)

	require.NoError(t, m.SwitchMode("alice", domain.ModeSummarize))

	// Q&A is gated while in summarize mode.
	_, err = m.Ask(context.Background(), "alice", "what is the deadline?", 0)
	assert.ErrorIs(t, err, domain.ErrNotReady)

	// Switching back finds the index still built.
	require.NoError(t, m.SwitchMode("alice", domain.ModeQA))
	assert.Equal(t, domain.Ready, m.Readiness("alice"))

	_, err = m.Ask(context.Background(), "alice", "what is the deadline?", 0)
	require.NoError(t, err)
}

func TestConcurrentAskAndModeSwitch(t *testing.T) {
	completer := &llm.MockCompleter{Response: "answer"}
	m := newTestManager(completer)

	_, err := m.Upload(context.Background(), testDocument())
	require.NoError(t, err)

	// Asks racing mode switches and readiness checks must stay safe; each
	// Ask either answers or reports not-ready, depending on which side of
	// a switch it lands.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Ask(context.Background(), "alice", "what is the deadline?", 0)
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrNotReady)
			}
		}()
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mode := domain.ModeSummarize
			if i%2 == 0 {
				mode = domain.ModeQA
			}
			assert.NoError(t, m.SwitchMode("alice", mode))
			m.Readiness("alice")
		}(i)
	}
	wg.Wait()

	require.NoError(t, m.SwitchMode("alice", domain.ModeQA))
	_, err = m.Ask(context.Background(), "alice", "what is the deadline?", 0)
	assert.NoError(t, err)
}

func TestSwitchModeValidation(t *testing.T) {
	m := newTestManager(&llm.MockCompleter{})
	err := m.SwitchMode("alice", domain.Mode("chat"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUploadReplacesActiveDocument(t *testing.T) {
	completer := &llm.MockCompleter{Response: "answer"}
	m := newTestManager(completer)

	first := testDocument()
	_, err := m.Upload(context.Background(), first)
	require.NoError(t, err)

	second := testDocument()
	second.ID = "doc2"
	second.Text = "A different report entirely. The budget was approved in full. Spending begins next quarter."
	_, err = m.Upload(context.Background(), second)
	require.NoError(t, err)

	s := m.Get("alice")
	assert.Equal(t, "doc2", s.ActiveDocID)
	assert.Equal(t, domain.Ready, m.Readiness("alice"))

	answer, err := m.Ask(context.Background(), "alice", "was the budget approved?", 0)
	require.NoError(t, err)
	assert.Equal(t, "doc2", answer.DocID)
}

func TestUsersAreIsolated(t *testing.T) {
	completer := &llm.MockCompleter{Response: "answer"}
	m := newTestManager(completer)

	doc := testDocument()
	_, err := m.Upload(context.Background(), doc)
	require.NoError(t, err)

	// Bob has no session; Alice's upload must not leak to him.
	_, err = m.Ask(context.Background(), "bob", "what is the deadline?", 0)
	assert.ErrorIs(t, err, domain.ErrNotReady)
	assert.Equal(t, domain.NotIndexed, m.Readiness("bob"))
}

func TestAttachRehydratedHandle(t *testing.T) {
	completer := &llm.MockCompleter{Response: "answer"}
	engine := newTestEngine(completer)
	m := NewSessionManager(engine)
	doc := testDocument()

	c := chunker.NewTextChunker(140, 20)
	chunks, err := c.Chunk(doc.ID, doc.Text)
	require.NoError(t, err)
	vectors, err := embedding.NewMockEmbedder(256).Embed(context.Background(), chunkTexts(chunks))
	require.NoError(t, err)

	handle, err := engine.InitializePrepared("alice", doc.ID, chunks, vectors)
	require.NoError(t, err)
	m.Attach("alice", handle)

	assert.Equal(t, domain.Ready, m.Readiness("alice"))
	_, err = m.Ask(context.Background(), "alice", "what is the deadline?", 0)
	require.NoError(t, err)
}
