package chat

import "time"

// Session is one assistant conversation, optionally anchored to an exam.
type Session struct {
	ID        string    `json:"id"`
	AnonID    string    `json:"anon_id"`
	ExamID    string    `json:"exam_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn in a session.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // user | assistant | system
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
