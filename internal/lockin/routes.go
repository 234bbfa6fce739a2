package lockin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/liutentor/tentor/internal/web"
)

// RegisterRoutes mounts the lock-in API.
func RegisterRoutes(r chi.Router, mgr *Manager, hub *Hub) {
	r.Route("/api/lockin", func(r chi.Router) {
		r.Get("/", handleStatus(mgr))
		r.Post("/start", handleStart(mgr))
		r.Post("/activity", handleActivity(mgr))
		r.Post("/exit", handleExit(mgr))
		r.Get("/check", handleCheckRoute(mgr))
		r.Get("/ws", hub.HandleWebSocket)
	})
}

// statusResponse mirrors what a tab needs to render the lock screen.
type statusResponse struct {
	Active           bool     `json:"active"`
	Session          *Session `json:"session,omitempty"`
	RemainingSeconds int      `json:"remaining_seconds,omitempty"`
}

func handleStatus(mgr *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := mgr.Initialize(r.Context())
		if err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}

		resp := statusResponse{Active: sess != nil, Session: sess}
		if sess != nil {
			resp.RemainingSeconds = int(sess.Remaining(time.Now()).Seconds())
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

type startRequest struct {
	ExamID          string `json:"exam_id"`
	DurationMinutes int    `json:"duration_minutes"`
}

func handleStart(mgr *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			web.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sess, err := mgr.Start(r.Context(), req.ExamID, req.DurationMinutes)
		if err != nil {
			web.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sess)
	}
}

func handleActivity(mgr *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := mgr.UpdateActivity(r.Context()); err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleExit(mgr *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := mgr.Exit(r.Context()); err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleCheckRoute lets the client validate a navigation target against the
// two-way lock invariant before committing to it.
func handleCheckRoute(mgr *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := r.URL.Query().Get("exam_id")
		isLockin := r.URL.Query().Get("lockin") == "true"

		redirect, err := mgr.CheckRoute(r.Context(), examID, isLockin)
		if err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"redirect": redirect})
	}
}
