package lockin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/liutentor/tentor/internal/db"
)

func setupManager(t *testing.T) (*Manager, *Store, *Hub) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	store := NewStore(database)
	hub := NewHub()
	return NewManager(store, hub), store, hub
}

func TestInitializeNoSession(t *testing.T) {
	mgr, _, _ := setupManager(t)
	sess, err := mgr.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if sess != nil {
		t.Errorf("expected no session, got %+v", sess)
	}
}

func TestStartAndInitialize(t *testing.T) {
	mgr, _, _ := setupManager(t)
	ctx := context.Background()

	started, err := mgr.Start(ctx, "exam-1", 60)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.ExamID != "exam-1" {
		t.Errorf("expected exam-1, got %q", started.ExamID)
	}

	sess, err := mgr.Initialize(ctx)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if sess == nil || sess.ExamID != "exam-1" || sess.DurationMinutes != 60 {
		t.Errorf("expected active exam-1 session, got %+v", sess)
	}
}

func TestStartRejectsInvalidDuration(t *testing.T) {
	mgr, _, _ := setupManager(t)
	if _, err := mgr.Start(context.Background(), "exam-1", 45); err == nil {
		t.Error("expected error for duration 45")
	}
	if _, err := mgr.Start(context.Background(), "", 60); err == nil {
		t.Error("expected error for empty exam id")
	}
}

func TestExpiredSessionClearedOnInitialize(t *testing.T) {
	mgr, store, _ := setupManager(t)
	ctx := context.Background()

	// 60 minute session started 3601 seconds ago.
	started := time.Now().Add(-3601 * time.Second)
	if err := store.Save(ctx, &Session{
		ExamID: "exam-1", StartedAt: started, DurationMinutes: 60, LastActivityAt: started,
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	sess, err := mgr.Initialize(ctx)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if sess != nil {
		t.Errorf("expected expired session to yield nil, got %+v", sess)
	}

	// Storage must be cleared, not just masked.
	raw, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if raw != nil {
		t.Errorf("expected storage cleared after expiry, got %+v", raw)
	}
}

func TestStartReplacesActiveSession(t *testing.T) {
	mgr, store, _ := setupManager(t)
	ctx := context.Background()

	if _, err := mgr.Start(ctx, "exam-a", 60); err != nil {
		t.Fatalf("Start A: %v", err)
	}
	if _, err := mgr.Start(ctx, "exam-b", 120); err != nil {
		t.Fatalf("Start B: %v", err)
	}

	sess, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sess == nil || sess.ExamID != "exam-b" || sess.DurationMinutes != 120 {
		t.Errorf("expected only session B observable, got %+v", sess)
	}
}

func TestCrossTabConvergence(t *testing.T) {
	// Two managers sharing the same store and hub model two tabs of the
	// same browser profile.
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	store := NewStore(database)
	hub := NewHub()
	writer := NewManager(store, hub)
	reader := NewManager(store, hub)

	var observed *Session
	hub.Listen(func(ev Event) {
		// The event only signals change; the reader re-initializes
		// and converges on the slot content.
		observed, _ = reader.Initialize(context.Background())
	})

	if _, err := writer.Start(context.Background(), "exam-1", 60); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if observed == nil || observed.ExamID != "exam-1" {
		t.Errorf("expected reader tab to observe exam-1, got %+v", observed)
	}

	if err := writer.Exit(context.Background()); err != nil {
		t.Fatalf("Exit: %v", err)
	}
	if observed != nil {
		t.Errorf("expected reader tab to observe no session after exit, got %+v", observed)
	}
}

func TestActivityDoesNotExtendTimer(t *testing.T) {
	mgr, store, _ := setupManager(t)
	ctx := context.Background()

	if _, err := mgr.Start(ctx, "exam-1", 60); err != nil {
		t.Fatalf("Start: %v", err)
	}
	before, _ := store.Load(ctx)

	if err := mgr.UpdateActivity(ctx); err != nil {
		t.Fatalf("UpdateActivity: %v", err)
	}

	after, _ := store.Load(ctx)
	if !after.StartedAt.Equal(before.StartedAt) || after.DurationMinutes != before.DurationMinutes {
		t.Error("activity must not change the wall-clock timer")
	}
	if after.LastActivityAt.Before(before.LastActivityAt) {
		t.Error("expected last activity to move forward")
	}
}

func TestCorruptSlotFailsOpen(t *testing.T) {
	mgr, _, _ := setupManager(t)
	ctx := context.Background()

	// Bypass Save to plant a corrupt row (empty exam id).
	database := mgr.store.db
	if _, err := database.Exec(
		`INSERT INTO lockin_session (slot, exam_id, started_at, duration_minutes, last_activity_at)
		 VALUES (1, '', datetime('now'), 60, datetime('now'))`,
	); err != nil {
		t.Fatalf("planting corrupt row: %v", err)
	}

	sess, err := mgr.Initialize(ctx)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if sess != nil {
		t.Errorf("corrupt slot must fail open to unlocked, got %+v", sess)
	}
}

func TestCheckRouteInvariant(t *testing.T) {
	mgr, _, _ := setupManager(t)
	ctx := context.Background()

	// Not active: lock-in routes redirect away.
	redirect, err := mgr.CheckRoute(ctx, "exam-1", true)
	if err != nil {
		t.Fatalf("CheckRoute: %v", err)
	}
	if redirect != "/" {
		t.Errorf("expected redirect away from lock-in route, got %q", redirect)
	}

	if _, err := mgr.Start(ctx, "exam-1", 60); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Active: non-lock-in navigation is forced back to the locked exam.
	redirect, _ = mgr.CheckRoute(ctx, "", false)
	if redirect != "/lockin/exam-1" {
		t.Errorf("expected forced navigation to /lockin/exam-1, got %q", redirect)
	}

	// Active: lock-in route for a different exam redirects to the locked one.
	redirect, _ = mgr.CheckRoute(ctx, "exam-2", true)
	if redirect != "/lockin/exam-1" {
		t.Errorf("expected redirect to locked exam, got %q", redirect)
	}

	// Active: lock-in route for the locked exam is allowed.
	redirect, _ = mgr.CheckRoute(ctx, "exam-1", true)
	if redirect != "" {
		t.Errorf("expected access allowed, got redirect %q", redirect)
	}
}

func TestHistoryPurgedOnInitialize(t *testing.T) {
	mgr, store, _ := setupManager(t)
	ctx := context.Background()

	if _, err := mgr.Start(ctx, "exam-1", 60); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := mgr.RecordNavigation(ctx, "/exams/exam-1"); err != nil {
		t.Fatalf("RecordNavigation: %v", err)
	}

	if _, err := mgr.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	n, err := store.HistoryCount(ctx)
	if err != nil {
		t.Fatalf("HistoryCount: %v", err)
	}
	if n != 0 {
		t.Errorf("expected history purged, got %d entries", n)
	}
}

func TestGuardExamAccess(t *testing.T) {
	mgr, _, _ := setupManager(t)
	ctx := context.Background()

	handler := mgr.GuardExamAccess(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// No session: everything passes through.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/exams/exam-b", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected pass-through without session, got %d", rec.Code)
	}

	if _, err := mgr.Start(ctx, "exam-a", 60); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Locked exam is reachable.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/exams/exam-a", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected access to the locked exam, got %d", rec.Code)
	}

	// Other exams are redirected.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/exams/exam-b", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for another exam, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["redirect"] != "/lockin/exam-a" {
		t.Errorf("expected redirect to the locked exam, got %q", body["redirect"])
	}

	// Non-exam routes are untouched.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/courses", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected pass-through for non-exam route, got %d", rec.Code)
	}
}

func TestStartRouteErrorBodyIsJSON(t *testing.T) {
	mgr, _, hub := setupManager(t)
	r := chi.NewRouter()
	RegisterRoutes(r, mgr, hub)

	req := httptest.NewRequest(http.MethodPost, "/api/lockin/start",
		strings.NewReader(`{"exam_id":"exam-1","duration_minutes":7}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not valid JSON: %v: %s", err, rec.Body.String())
	}
	if body["error"] == "" {
		t.Error("expected a non-empty error message")
	}
}
