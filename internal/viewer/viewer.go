// Package viewer coordinates the per-profile viewing session: panel view
// state, the interaction router, responsive scale seeding and document
// opening. One session exists per anonymous profile, shared by all of that
// profile's tabs.
package viewer

import (
	"context"
	"fmt"
	"sync"

	"github.com/liutentor/tentor/internal/exams"
	"github.com/liutentor/tentor/internal/interaction"
	"github.com/liutentor/tentor/internal/pdfdoc"
	"github.com/liutentor/tentor/internal/scale"
	"github.com/liutentor/tentor/internal/viewstate"
)

// Session is one profile's viewer: the shared view state store, the router
// bound to it, and the epoch-gated document fetcher.
type Session struct {
	Store   *viewstate.Store
	Router  *interaction.Router
	fetcher *pdfdoc.Fetcher

	mu        sync.Mutex
	documents map[viewstate.PanelKey]string // panel -> open document id
}

// Manager hands out viewer sessions keyed by anonymous profile id.
type Manager struct {
	exams   *exams.Store
	fetcher *pdfdoc.Fetcher

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a viewer session manager.
func NewManager(examStore *exams.Store, fetcher *pdfdoc.Fetcher) *Manager {
	return &Manager{
		exams:    examStore,
		fetcher:  fetcher,
		sessions: map[string]*Session{},
	}
}

// Session returns the viewer session for the profile, creating it on first
// use.
func (m *Manager) Session(anonID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[anonID]; ok {
		return s
	}
	store := viewstate.NewStore()
	s := &Session{
		Store:     store,
		Router:    interaction.NewRouter(store),
		fetcher:   m.fetcher,
		documents: map[viewstate.PanelKey]string{},
	}
	m.sessions[anonID] = s
	return s
}

// OpenDocument points the panel at a document: it resets document-scoped
// state, fetches the bytes through the cache under a fresh epoch, parses the
// structure and seeds page count plus native rotations. A navigation racing
// ahead of a slow fetch leaves the panel untouched (ErrStaleFetch).
func (m *Manager) OpenDocument(ctx context.Context, sess *Session, panel viewstate.PanelKey, documentID string) (*pdfdoc.Info, error) {
	doc, err := m.exams.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s not found", documentID)
	}

	sess.Store.ResetDocument(panel)
	sess.setDocument(panel, documentID)

	token := m.fetcher.Begin(string(panel) + ":" + sess.id())
	blob, err := m.fetcher.Fetch(ctx, string(panel)+":"+sess.id(), token, "doc:"+documentID, func(ctx context.Context) ([]byte, error) {
		content, err := m.exams.GetDocumentContent(ctx, documentID)
		if err != nil {
			return nil, err
		}
		if content == nil {
			return nil, fmt.Errorf("document %s not found", documentID)
		}
		return content, nil
	})
	if err != nil {
		return nil, err
	}

	info := &pdfdoc.Info{PageCount: doc.PageCount, NativeRotations: doc.Rotations}
	if info.PageCount == 0 {
		// Structure was not recorded at upload time; parse it now.
		parsed, err := pdfdoc.Load(blob)
		if err != nil {
			return nil, fmt.Errorf("parsing document %s: %w", documentID, err)
		}
		info = parsed
	}

	sess.Store.SetPageCount(panel, info.PageCount)
	for page, deg := range info.NativeRotations {
		sess.Store.SetNativeRotation(panel, page, deg)
	}
	return info, nil
}

// ApplyResponsiveScale seeds both panels from the viewport dimensions.
func (s *Session) ApplyResponsiveScale(viewportWidth, viewportHeight float64, mode scale.LayoutMode, isMobile bool) scale.Result {
	r := scale.Compute(viewportWidth, viewportHeight, mode, isMobile)
	s.Store.SetScale(viewstate.PanelExam, r.ExamScale)
	s.Store.SetScale(viewstate.PanelSolution, r.FacitScale)
	return r
}

// Document returns the id of the document open in the panel, if any.
func (s *Session) Document(panel viewstate.PanelKey) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documents[panel]
}

func (s *Session) setDocument(panel viewstate.PanelKey, id string) {
	s.mu.Lock()
	s.documents[panel] = id
	s.mu.Unlock()
}

// id derives a stable epoch namespace for the session.
func (s *Session) id() string {
	return fmt.Sprintf("%p", s)
}
