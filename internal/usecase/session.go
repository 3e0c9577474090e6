package usecase

import (
	"context"
	"fmt"
	"sync"

	"docqa/internal/domain"
)

// Session is one user's interaction state: at most one active document for
// Q&A, and the current mode. Readiness lives in the engine's state machine;
// the session only points at the pair. Sessions are in-memory and bound to
// the process lifetime.
type Session struct {
	UserID      string
	ActiveDocID string
	Mode        domain.Mode
}

// SessionManager tracks per-user sessions and mediates between uploads,
// mode switches and the RAG engine. Unrelated users never contend on one
// lock for engine work; the manager's own map lock is held only for
// pointer-sized bookkeeping.
type SessionManager struct {
	engine *Engine

	mu       sync.RWMutex
	sessions map[string]*Session
	handles  map[string]*IndexHandle
}

func NewSessionManager(engine *Engine) *SessionManager {
	return &SessionManager{
		engine:   engine,
		sessions: make(map[string]*Session),
		handles:  make(map[string]*IndexHandle),
	}
}

// Get returns a snapshot of the user's session, creating a default one on
// first use.
func (m *SessionManager) Get(userID string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.session(userID)
}

func (m *SessionManager) session(userID string) *Session {
	s, ok := m.sessions[userID]
	if !ok {
		s = &Session{UserID: userID, Mode: domain.ModeQA}
		m.sessions[userID] = s
	}
	return s
}

// Readiness returns the engine state of the user's active document, or
// NotIndexed when no document is active.
func (m *SessionManager) Readiness(userID string) domain.ReadyState {
	m.mu.RLock()
	var activeDocID string
	if s, ok := m.sessions[userID]; ok {
		activeDocID = s.ActiveDocID
	}
	m.mu.RUnlock()
	if activeDocID == "" {
		return domain.NotIndexed
	}
	return m.engine.State(userID, activeDocID)
}

// Upload makes doc the user's active document and builds its index. Any
// previous active document's index is invalidated first, superseding an
// in-flight build for it; the new pair starts NotIndexed regardless of
// prior state.
func (m *SessionManager) Upload(ctx context.Context, doc domain.Document) (*IndexHandle, error) {
	m.mu.Lock()
	s := m.session(doc.OwnerID)
	previous := s.ActiveDocID
	s.ActiveDocID = doc.ID
	delete(m.handles, doc.OwnerID)
	m.mu.Unlock()

	if previous != "" && previous != doc.ID {
		m.engine.Invalidate(doc.OwnerID, previous)
	}

	handle, err := m.engine.Initialize(ctx, doc)
	if err != nil {
		return nil, err
	}
	m.setHandle(doc.OwnerID, doc.ID, handle)
	return handle, nil
}

// Attach installs an already-built handle (e.g. rehydrated from the store)
// as the user's active document.
func (m *SessionManager) Attach(userID string, handle *IndexHandle) {
	m.mu.Lock()
	s := m.session(userID)
	s.ActiveDocID = handle.DocID
	m.handles[userID] = handle
	m.mu.Unlock()
}

func (m *SessionManager) setHandle(userID, docID string, handle *IndexHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Only install if the document is still the active one; a concurrent
	// upload wins otherwise.
	if s := m.session(userID); s.ActiveDocID == docID {
		m.handles[userID] = handle
	}
}

// SwitchMode changes the user's interaction mode. The active document and
// its built index are untouched: switching to summarize and back to qa
// finds the index still Ready.
func (m *SessionManager) SwitchMode(userID string, mode domain.Mode) error {
	if mode != domain.ModeQA && mode != domain.ModeSummarize {
		return fmt.Errorf("unknown mode %q: %w", mode, domain.ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session(userID).Mode = mode
	return nil
}

// Ask answers a question against the user's active document. It fails with
// ErrNotReady when no document is active, the session is not in qa mode, or
// the index is not Ready — in each case before any completion call is made.
func (m *SessionManager) Ask(ctx context.Context, userID, question string, k int) (domain.Answer, error) {
	// Snapshot the session under the lock; Upload and SwitchMode mutate
	// these fields concurrently.
	m.mu.RLock()
	var (
		session Session
		handle  *IndexHandle
	)
	if s, ok := m.sessions[userID]; ok {
		session = *s
		handle = m.handles[userID]
	}
	m.mu.RUnlock()

	if session.ActiveDocID == "" {
		return domain.Answer{}, fmt.Errorf("no document uploaded: %w", domain.ErrNotReady)
	}
	if session.Mode != domain.ModeQA {
		return domain.Answer{}, fmt.Errorf("session is in %s mode, switch to qa first: %w", session.Mode, domain.ErrNotReady)
	}
	if handle == nil {
		return domain.Answer{}, fmt.Errorf("document %s is %s: %w", session.ActiveDocID, m.engine.State(userID, session.ActiveDocID), domain.ErrNotReady)
	}
	return m.engine.Ask(ctx, handle, question, k)
}
