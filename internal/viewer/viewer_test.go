package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/liutentor/tentor/internal/blobcache"
	"github.com/liutentor/tentor/internal/db"
	"github.com/liutentor/tentor/internal/exams"
	"github.com/liutentor/tentor/internal/pdfdoc"
	"github.com/liutentor/tentor/internal/viewstate"
)

func setup(t *testing.T) (*Manager, *exams.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	examStore := exams.NewStore(database)
	fetcher := pdfdoc.NewFetcher(blobcache.NewSQLiteCache(database))
	return NewManager(examStore, fetcher), examStore
}

func seedDocument(t *testing.T, store *exams.Store) *exams.Document {
	t.Helper()
	ctx := context.Background()
	if err := store.UpsertCourse(ctx, exams.Course{Code: "TATA24", Name: "Linjär algebra"}); err != nil {
		t.Fatalf("UpsertCourse: %v", err)
	}
	exam, err := store.CreateExam(ctx, exams.Exam{CourseCode: "TATA24", ExamDate: "2025-01-10"})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	doc, err := store.AddDocument(ctx, exams.Document{
		ExamID: exam.ID, Kind: exams.KindExam, Filename: "tenta.pdf",
		PageCount: 8, Rotations: map[int]int{2: 90},
	}, []byte("%PDF-1.7 body"))
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	return doc
}

func TestSessionPerProfile(t *testing.T) {
	mgr, _ := setup(t)
	a := mgr.Session("anon-a")
	b := mgr.Session("anon-b")
	if a == b {
		t.Error("expected distinct sessions per profile")
	}
	if mgr.Session("anon-a") != a {
		t.Error("expected stable session per profile")
	}
}

func TestOpenDocumentSeedsPanelState(t *testing.T) {
	mgr, examStore := setup(t)
	doc := seedDocument(t, examStore)
	sess := mgr.Session("anon-a")

	info, err := mgr.OpenDocument(context.Background(), sess, viewstate.PanelExam, doc.ID)
	if err != nil {
		t.Fatalf("OpenDocument: %v", err)
	}
	if info.PageCount != 8 {
		t.Errorf("expected 8 pages, got %d", info.PageCount)
	}

	state := sess.Store.State(viewstate.PanelExam)
	if state.PageCount != 8 {
		t.Errorf("expected panel page count 8, got %d", state.PageCount)
	}
	if got := state.EffectiveRotation(2); got != 90 {
		t.Errorf("expected native rotation 90 on page 2, got %d", got)
	}
	if sess.Document(viewstate.PanelExam) != doc.ID {
		t.Errorf("expected open document recorded")
	}
}

func TestOpenDocumentClearsPreviousRotations(t *testing.T) {
	mgr, examStore := setup(t)
	doc := seedDocument(t, examStore)

	// A second document without rotations.
	exam, err := examStore.CreateExam(context.Background(), exams.Exam{CourseCode: "TATA24", ExamDate: "2024-08-20"})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	plain, err := examStore.AddDocument(context.Background(), exams.Document{
		ExamID: exam.ID, Kind: exams.KindExam, Filename: "tenta2.pdf", PageCount: 3,
	}, []byte("%PDF-1.7 other"))
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}

	sess := mgr.Session("anon-a")
	if _, err := mgr.OpenDocument(context.Background(), sess, viewstate.PanelExam, doc.ID); err != nil {
		t.Fatalf("OpenDocument(first): %v", err)
	}
	if _, err := mgr.OpenDocument(context.Background(), sess, viewstate.PanelExam, plain.ID); err != nil {
		t.Fatalf("OpenDocument(second): %v", err)
	}

	state := sess.Store.State(viewstate.PanelExam)
	if got := state.EffectiveRotation(2); got != 0 {
		t.Errorf("previous document's rotation leaked: got %d", got)
	}
	if state.PageCount != 3 {
		t.Errorf("expected 3 pages, got %d", state.PageCount)
	}
}

func newRouter(t *testing.T, mgr *Manager) chi.Router {
	t.Helper()
	r := chi.NewRouter()
	RegisterRoutes(r, mgr)
	return r
}

func TestInputRoute(t *testing.T) {
	mgr, _ := setup(t)
	router := newRouter(t, mgr)

	body := strings.NewReader(`{"kind":"key","key":"+"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/viewer/input", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Handled bool `json:"handled"`
		State   struct {
			Exam struct {
				Scale float64 `json:"scale"`
			} `json:"exam"`
		} `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if !resp.Handled {
		t.Error("expected key consumed")
	}
	if resp.State.Exam.Scale != 1.2 {
		t.Errorf("expected scale 1.2, got %v", resp.State.Exam.Scale)
	}
}

func TestResponsiveRoute(t *testing.T) {
	mgr, _ := setup(t)
	router := newRouter(t, mgr)

	body := strings.NewReader(`{"viewport_width":1440,"viewport_height":900,"layout_mode":"exam-with-facit"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/viewer/responsive", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// The computed scale is seeded into both panels.
	sess := mgr.Session("anonymous")
	exam := sess.Store.State(viewstate.PanelExam)
	sol := sess.Store.State(viewstate.PanelSolution)
	if exam.Scale != sol.Scale {
		t.Errorf("expected equal seeded scales, got %v vs %v", exam.Scale, sol.Scale)
	}
	if exam.Scale == viewstate.DefaultScale {
		t.Error("expected responsive scale to replace the default")
	}
}

func TestWindowRoute(t *testing.T) {
	mgr, examStore := setup(t)
	doc := seedDocument(t, examStore)
	sess := mgr.Session("anonymous")
	if _, err := mgr.OpenDocument(context.Background(), sess, viewstate.PanelExam, doc.ID); err != nil {
		t.Fatalf("OpenDocument: %v", err)
	}

	router := newRouter(t, mgr)
	req := httptest.NewRequest(http.MethodGet,
		"/api/viewer/window?panel=exam&scroll_top=0&container_height=600&estimated_page_height=800", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Window struct {
			StartPage int `json:"start_page"`
			EndPage   int `json:"end_page"`
		} `json:"window"`
		Rotations map[string]int `json:"rotations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Window.StartPage != 1 || resp.Window.EndPage != 3 {
		t.Errorf("expected window [1,3], got [%d,%d]", resp.Window.StartPage, resp.Window.EndPage)
	}
	if resp.Rotations["2"] != 90 {
		t.Errorf("expected page 2 rotation 90, got %d", resp.Rotations["2"])
	}
}
