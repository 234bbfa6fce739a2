// Package prefs persists per-user preference slots (theme, font size,
// language, layout mode), keyed by an anonymous identifier that is created
// once and never rotated.
package prefs

import (
	"context"
	"fmt"

	"github.com/liutentor/tentor/internal/db"
)

// Known preference keys. Unknown keys are rejected on write.
const (
	KeyTheme      = "theme"
	KeyFontSize   = "font_size"
	KeyLanguage   = "language"
	KeyLayoutMode = "layout_mode"
)

var validKeys = map[string]bool{
	KeyTheme:      true,
	KeyFontSize:   true,
	KeyLanguage:   true,
	KeyLayoutMode: true,
}

// ValidKey reports whether key is a known preference slot.
func ValidKey(key string) bool { return validKeys[key] }

// Preferences is the full preference set for one anonymous user. Unset slots
// are empty strings; the client applies its own defaults.
type Preferences struct {
	Theme      string `json:"theme"`
	FontSize   string `json:"font_size"`
	Language   string `json:"language"`
	LayoutMode string `json:"layout_mode"`
}

// Store manages preference persistence.
type Store struct {
	db *db.DB
}

// NewStore creates a preference store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Get returns all preference slots for the anonymous user.
func (s *Store) Get(ctx context.Context, anonID string) (*Preferences, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM preferences WHERE anon_id = ?`, anonID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying preferences: %w", err)
	}
	defer rows.Close()

	p := &Preferences{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning preference: %w", err)
		}
		switch key {
		case KeyTheme:
			p.Theme = value
		case KeyFontSize:
			p.FontSize = value
		case KeyLanguage:
			p.Language = value
		case KeyLayoutMode:
			p.LayoutMode = value
		}
	}
	return p, rows.Err()
}

// Set writes one preference slot.
func (s *Store) Set(ctx context.Context, anonID, key, value string) error {
	if !ValidKey(key) {
		return fmt.Errorf("unknown preference key %q", key)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (anon_id, key, value, updated_at) VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT(anon_id, key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`,
		anonID, key, value,
	)
	if err != nil {
		return fmt.Errorf("setting preference: %w", err)
	}
	return nil
}
