package lockin

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/liutentor/tentor/internal/db"
)

// Store persists the lock-in session in its single shared slot, plus the
// navigation history recorded while locked in.
type Store struct {
	db *db.DB
}

// NewStore creates a lock-in store on the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Load reads the session slot. A missing slot returns (nil, nil). An
// unreadable or corrupt slot is logged, cleared and also returns (nil, nil):
// a corrupted lock must never trap the user, so corruption fails open to the
// unlocked state.
func (s *Store) Load(ctx context.Context) (*Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx,
		`SELECT exam_id, started_at, duration_minutes, last_activity_at FROM lockin_session WHERE slot = 1`,
	).Scan(&sess.ExamID, &sess.StartedAt, &sess.DurationMinutes, &sess.LastActivityAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("lock-in slot unreadable, failing open to unlocked")
		if clearErr := s.Clear(ctx); clearErr != nil {
			return nil, fmt.Errorf("clearing corrupt lock-in slot: %w", clearErr)
		}
		return nil, nil
	}
	if sess.ExamID == "" || sess.DurationMinutes <= 0 {
		log.Warn().Msg("lock-in slot corrupt, failing open to unlocked")
		if clearErr := s.Clear(ctx); clearErr != nil {
			return nil, fmt.Errorf("clearing corrupt lock-in slot: %w", clearErr)
		}
		return nil, nil
	}
	return &sess, nil
}

// Save writes the session to the slot, replacing any existing one.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lockin_session (slot, exam_id, started_at, duration_minutes, last_activity_at)
		 VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET
		   exam_id = excluded.exam_id,
		   started_at = excluded.started_at,
		   duration_minutes = excluded.duration_minutes,
		   last_activity_at = excluded.last_activity_at`,
		sess.ExamID, sess.StartedAt, sess.DurationMinutes, sess.LastActivityAt,
	)
	if err != nil {
		return fmt.Errorf("saving lock-in session: %w", err)
	}
	return nil
}

// Clear empties the slot.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM lockin_session WHERE slot = 1`); err != nil {
		return fmt.Errorf("clearing lock-in session: %w", err)
	}
	return nil
}

// Touch refreshes last_activity_at without touching the timer fields.
func (s *Store) Touch(ctx context.Context, at time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE lockin_session SET last_activity_at = ? WHERE slot = 1`, at,
	); err != nil {
		return fmt.Errorf("updating lock-in activity: %w", err)
	}
	return nil
}

// RecordHistory notes a navigation entry made while locked in, so it can be
// purged later and back-navigation cannot escape the lock screen.
func (s *Store) RecordHistory(ctx context.Context, examID, path string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO lockin_history (exam_id, path) VALUES (?, ?)`, examID, path,
	); err != nil {
		return fmt.Errorf("recording lock-in history: %w", err)
	}
	return nil
}

// PurgeHistory removes accumulated navigation history entries. Best effort:
// failures are logged, not propagated.
func (s *Store) PurgeHistory(ctx context.Context) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM lockin_history`); err != nil {
		log.Warn().Err(err).Msg("lock-in history purge failed")
	}
}

// HistoryCount returns the number of recorded navigation entries.
func (s *Store) HistoryCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lockin_history`).Scan(&n)
	return n, err
}
