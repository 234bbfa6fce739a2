package prefs

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/liutentor/tentor/internal/web"
)

// anonCookie is the browser slot holding the anonymous identifier.
const anonCookie = "tentor_anon_id"

// RegisterRoutes mounts the preference API.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/prefs", func(r chi.Router) {
		r.Get("/", handleGet(store))
		r.Put("/", handleSet(store))
	})
}

// anonID returns the request's anonymous identifier, minting and setting one
// if absent. The identifier is created once and never rotated.
func anonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookie,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().AddDate(5, 0, 0),
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := anonID(w, r)
		p, err := store.Get(r.Context(), id)
		if err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p)
	}
}

type setRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func handleSet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			web.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !ValidKey(req.Key) {
			web.Error(w, http.StatusBadRequest, "unknown preference key")
			return
		}

		id := anonID(w, r)
		if err := store.Set(r.Context(), id, req.Key, req.Value); err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
