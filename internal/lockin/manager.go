// Package lockin implements the focused exam-taking mode: a wall-clock
// countdown session held in a single shared storage slot, converged across
// tabs through change events on a hub.
package lockin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/liutentor/tentor/internal/metrics"
)

// Manager drives the session state machine:
//
//	NoSession -> Active -> {Expired, ExitedByUser, Replaced}
//
// Expiry is observed lazily: every Initialize call re-reads the slot and
// clears it if the timer has run out.
type Manager struct {
	store *Store
	hub   *Hub
	now   func() time.Time
}

// NewManager creates a manager over the shared store and hub.
func NewManager(store *Store, hub *Hub) *Manager {
	return &Manager{store: store, hub: hub, now: time.Now}
}

// Initialize reads the persisted session and returns the live one, or nil
// when there is none. An expired session is cleared from storage before nil
// is returned. Obsolete navigation history is purged alongside every check.
// Callers invoke this on every route change, focus change and hub event.
func (m *Manager) Initialize(ctx context.Context) (*Session, error) {
	m.store.PurgeHistory(ctx)

	sess, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}

	if sess.Expired(m.now()) {
		if err := m.store.Clear(ctx); err != nil {
			return nil, err
		}
		metrics.IncLockinTransition("expired")
		log.Info().Str("exam_id", sess.ExamID).Msg("lock-in session expired")
		m.hub.Broadcast(Event{Transition: "expired", ExamID: sess.ExamID})
		return nil, nil
	}

	return sess, nil
}

// Start creates a session for the exam. An already active session is
// replaced, not merged: afterwards only the new session is observable.
func (m *Manager) Start(ctx context.Context, examID string, durationMinutes int) (*Session, error) {
	if examID == "" {
		return nil, fmt.Errorf("exam id is required")
	}
	if !ValidDuration(durationMinutes) {
		return nil, fmt.Errorf("invalid duration %d: must be one of 30, 60, 120, 180, 240, 300", durationMinutes)
	}

	existing, err := m.Initialize(ctx)
	if err != nil {
		return nil, err
	}

	now := m.now()
	sess := &Session{
		ExamID:          examID,
		StartedAt:       now,
		DurationMinutes: durationMinutes,
		LastActivityAt:  now,
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	transition := "started"
	if existing != nil {
		transition = "replaced"
		log.Info().Str("old_exam_id", existing.ExamID).Str("exam_id", examID).Msg("lock-in session replaced")
	} else {
		log.Info().Str("exam_id", examID).Int("duration_minutes", durationMinutes).Msg("lock-in session started")
	}
	metrics.IncLockinTransition(transition)
	m.hub.Broadcast(Event{Transition: transition, ExamID: examID})
	return sess, nil
}

// UpdateActivity refreshes last_activity_at on qualifying user interaction.
// It never extends the exam timer; expiry is wall-clock, not idle-based.
func (m *Manager) UpdateActivity(ctx context.Context) error {
	sess, err := m.Initialize(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	return m.store.Touch(ctx, m.now())
}

// Exit clears the session on explicit user exit.
func (m *Manager) Exit(ctx context.Context) error {
	sess, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	metrics.IncLockinTransition("exited")
	log.Info().Str("exam_id", sess.ExamID).Msg("lock-in session exited")
	m.hub.Broadcast(Event{Transition: "exited", ExamID: sess.ExamID})
	return nil
}

// RecordNavigation notes a navigation entry while locked in, so the history
// purge on the next check can remove it.
func (m *Manager) RecordNavigation(ctx context.Context, path string) error {
	sess, err := m.store.Load(ctx)
	if err != nil || sess == nil {
		return err
	}
	return m.store.RecordHistory(ctx, sess.ExamID, path)
}

// CheckRoute applies the two-way route invariant for a request targeting the
// given exam (empty examID means a non-exam route):
//
//   - while a session is active, any exam access is forced to the locked
//     exam: requests for other exams return the locked exam to redirect to;
//   - while no session is active, lock-in routes redirect away.
//
// The returned redirect is empty when access is allowed as requested.
func (m *Manager) CheckRoute(ctx context.Context, examID string, isLockinRoute bool) (redirect string, err error) {
	sess, err := m.Initialize(ctx)
	if err != nil {
		return "", err
	}

	if sess == nil {
		if isLockinRoute {
			return "/", nil
		}
		return "", nil
	}

	if !isLockinRoute || examID != sess.ExamID {
		return "/lockin/" + sess.ExamID, nil
	}
	return "", nil
}

// GuardExamAccess is middleware for the exam API. While a session is
// active, detail requests for any other exam are answered with a redirect
// to the locked exam instead of content.
func (m *Manager) GuardExamAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		examID := strings.TrimPrefix(r.URL.Path, "/api/exams/")
		if examID == r.URL.Path || examID == "" || strings.Contains(examID, "/") {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := m.Initialize(r.Context())
		if err != nil {
			log.Warn().Err(err).Msg("lock-in guard check failed")
			next.ServeHTTP(w, r)
			return
		}
		if sess != nil && sess.ExamID != examID {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{
				"error":    "locked in to another exam",
				"redirect": "/lockin/" + sess.ExamID,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
