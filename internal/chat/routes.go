package chat

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/liutentor/tentor/internal/web"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterRoutes mounts the assistant API: REST plus a WebSocket channel.
func RegisterRoutes(r chi.Router, store *Store, assistant *Assistant) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Post("/sessions", handleCreateSession(store))
		r.Get("/sessions/{id}/messages", handleGetMessages(store))
		r.Post("/ask", handleAsk(assistant))
		r.Get("/ws", handleWebSocket(store, assistant))
	})
}

type createSessionRequest struct {
	AnonID string `json:"anon_id"`
	ExamID string `json:"exam_id"`
}

func handleCreateSession(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			req.AnonID = "anonymous"
		}

		sess, err := store.CreateSession(r.Context(), req.AnonID, req.ExamID)
		if err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sess)
	}
}

func handleGetMessages(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")
		messages, err := store.GetMessages(r.Context(), sessionID)
		if err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		if messages == nil {
			messages = []Message{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messages)
	}
}

type askRequest struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

func handleAsk(assistant *Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			web.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.SessionID == "" || req.Content == "" {
			web.Error(w, http.StatusBadRequest, "session_id and content are required")
			return
		}

		answer, err := assistant.Ask(r.Context(), req.SessionID, req.Content)
		if err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"answer": answer})
	}
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	SessionID string `json:"session_id"` // empty for new sessions
	ExamID    string `json:"exam_id"`
	Content   string `json:"content"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type      string `json:"type"` // "response" or "error"
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

func handleWebSocket(store *Store, assistant *Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("chat websocket upgrade failed")
			return
		}
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Msg("chat websocket read failed")
				}
				return
			}

			var req chatRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				sendError(conn, "", "invalid message format")
				continue
			}
			if req.Content == "" {
				sendError(conn, req.SessionID, "content is required")
				continue
			}
			if !assistant.Configured() {
				sendError(conn, req.SessionID, "assistant not configured")
				continue
			}

			sessionID := req.SessionID
			if sessionID == "" {
				sess, err := store.CreateSession(r.Context(), "anonymous", req.ExamID)
				if err != nil {
					sendError(conn, "", "failed to create session: "+err.Error())
					continue
				}
				sessionID = sess.ID
			}

			answer, err := assistant.Ask(r.Context(), sessionID, req.Content)
			if err != nil {
				sendError(conn, sessionID, "question failed: "+err.Error())
				continue
			}

			send(conn, chatResponse{Type: "response", SessionID: sessionID, Content: answer})
		}
	}
}

func send(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Debug().Err(err).Msg("chat websocket write failed")
	}
}

func sendError(conn *websocket.Conn, sessionID, message string) {
	send(conn, chatResponse{Type: "error", SessionID: sessionID, Content: message})
}
