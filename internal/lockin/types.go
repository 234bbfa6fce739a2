package lockin

import "time"

// Session is the single process-wide lock-in session. It lives in one shared
// storage slot: every tab observes the same session.
type Session struct {
	ExamID          string    `json:"exam_id"`
	StartedAt       time.Time `json:"started_at"`
	DurationMinutes int       `json:"duration_minutes"`
	LastActivityAt  time.Time `json:"last_activity_at"`
}

// validDurations is the enumerated set of selectable exam durations.
var validDurations = map[int]bool{
	30: true, 60: true, 120: true, 180: true, 240: true, 300: true,
}

// ValidDuration reports whether minutes is a selectable exam duration.
func ValidDuration(minutes int) bool { return validDurations[minutes] }

// Remaining returns the wall-clock time left on the exam timer. Activity
// never extends it.
func (s *Session) Remaining(now time.Time) time.Duration {
	return time.Duration(s.DurationMinutes)*time.Minute - now.Sub(s.StartedAt)
}

// Expired reports whether the session's timer has run out.
func (s *Session) Expired(now time.Time) bool {
	return s.Remaining(now) <= 0
}
