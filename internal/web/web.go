// Package web holds small helpers shared by the HTTP handlers.
package web

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Error writes a JSON error body with the given status. The message is
// encoded, never interpolated, so it stays valid JSON whatever it contains.
func Error(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// ParseFloat parses a decimal query parameter, falling back when the value
// is empty or malformed.
func ParseFloat(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}
