package viewer

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/liutentor/tentor/internal/interaction"
	"github.com/liutentor/tentor/internal/pagewindow"
	"github.com/liutentor/tentor/internal/scale"
	"github.com/liutentor/tentor/internal/viewstate"
	"github.com/liutentor/tentor/internal/web"
)

// RegisterRoutes mounts the viewer API. The anonymous profile id comes from
// the tentor_anon_id cookie; absent a cookie the shared "anonymous" session
// is used.
func RegisterRoutes(r chi.Router, mgr *Manager) {
	r.Route("/api/viewer", func(r chi.Router) {
		r.Get("/state", handleState(mgr))
		r.Post("/open", handleOpen(mgr))
		r.Post("/input", handleInput(mgr))
		r.Post("/responsive", handleResponsive(mgr))
		r.Get("/window", handleWindow(mgr))
	})
}

func sessionFor(mgr *Manager, r *http.Request) *Session {
	anonID := "anonymous"
	if c, err := r.Cookie("tentor_anon_id"); err == nil && c.Value != "" {
		anonID = c.Value
	}
	return mgr.Session(anonID)
}

func panelFrom(s string) (viewstate.PanelKey, bool) {
	switch viewstate.PanelKey(s) {
	case viewstate.PanelExam, viewstate.PanelSolution:
		return viewstate.PanelKey(s), true
	}
	return "", false
}

// stateResponse is the full view state a tab needs to render.
type stateResponse struct {
	Exam            panelJSON `json:"exam"`
	Solution        panelJSON `json:"solution"`
	SplitPercent    int       `json:"split_percent"`
	SolutionBlurred bool      `json:"solution_blurred"`
	SolutionVisible bool      `json:"solution_visible"`
	ControlsVisible bool      `json:"controls_visible"`
}

type panelJSON struct {
	Scale           float64 `json:"scale"`
	RotationDegrees int     `json:"rotation_degrees"`
	PageCount       int     `json:"page_count"`
	DocumentID      string  `json:"document_id,omitempty"`
}

func snapshot(sess *Session) stateResponse {
	exam := sess.Store.State(viewstate.PanelExam)
	sol := sess.Store.State(viewstate.PanelSolution)
	return stateResponse{
		Exam: panelJSON{
			Scale: exam.Scale, RotationDegrees: exam.RotationDegrees,
			PageCount: exam.PageCount, DocumentID: sess.Document(viewstate.PanelExam),
		},
		Solution: panelJSON{
			Scale: sol.Scale, RotationDegrees: sol.RotationDegrees,
			PageCount: sol.PageCount, DocumentID: sess.Document(viewstate.PanelSolution),
		},
		SplitPercent:    sess.Router.SplitPercent(),
		SolutionBlurred: sess.Router.SolutionBlurred(),
		SolutionVisible: sess.Router.SolutionVisible(),
		ControlsVisible: sess.Router.ControlsVisible(),
	}
}

func handleState(mgr *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFor(mgr, r)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snapshot(sess))
	}
}

type openRequest struct {
	Panel      string `json:"panel"`
	DocumentID string `json:"document_id"`
}

func handleOpen(mgr *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req openRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			web.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		panel, ok := panelFrom(req.Panel)
		if !ok {
			web.Error(w, http.StatusBadRequest, "panel must be exam or solution")
			return
		}

		sess := sessionFor(mgr, r)
		info, err := mgr.OpenDocument(r.Context(), sess, panel, req.DocumentID)
		if err != nil {
			web.Error(w, http.StatusBadGateway, "failed to load document")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(info)
	}
}

// inputRequest is a normalized input event from the client.
type inputRequest struct {
	Kind             string  `json:"kind"` // key | wheel | pointer
	Key              string  `json:"key,omitempty"`
	Ctrl             bool    `json:"ctrl,omitempty"`
	Meta             bool    `json:"meta,omitempty"`
	DeltaY           float64 `json:"delta_y,omitempty"`
	OverlayOpen      bool    `json:"overlay_open,omitempty"`
	LayoutMode       string  `json:"layout_mode,omitempty"`
	HoveringControls bool    `json:"hovering_controls,omitempty"`
}

func handleInput(mgr *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req inputRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			web.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sess := sessionFor(mgr, r)
		ctx := interaction.Context{
			OverlayOpen:      req.OverlayOpen,
			LayoutMode:       scale.LayoutMode(req.LayoutMode),
			HoveringControls: req.HoveringControls,
		}

		handled := false
		switch req.Kind {
		case "key":
			handled = sess.Router.HandleKey(interaction.KeyEvent{Key: req.Key, Ctrl: req.Ctrl, Meta: req.Meta}, ctx)
		case "wheel":
			handled = sess.Router.HandleWheel(interaction.WheelEvent{DeltaY: req.DeltaY, Ctrl: req.Ctrl, Meta: req.Meta}, ctx)
		case "pointer":
			sess.Router.HandlePointerMove(ctx)
			handled = true
		default:
			web.Error(w, http.StatusBadRequest, "kind must be key, wheel or pointer")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"handled": handled,
			"state":   snapshot(sess),
		})
	}
}

type responsiveRequest struct {
	ViewportWidth  float64 `json:"viewport_width"`
	ViewportHeight float64 `json:"viewport_height"`
	LayoutMode     string  `json:"layout_mode"`
	IsMobile       bool    `json:"is_mobile"`
}

func handleResponsive(mgr *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req responsiveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			web.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sess := sessionFor(mgr, r)
		result := sess.ApplyResponsiveScale(req.ViewportWidth, req.ViewportHeight, scale.LayoutMode(req.LayoutMode), req.IsMobile)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

// handleWindow computes the visible page window for the panel using its
// current scale and page count.
func handleWindow(mgr *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		panel, ok := panelFrom(r.URL.Query().Get("panel"))
		if !ok {
			web.Error(w, http.StatusBadRequest, "panel must be exam or solution")
			return
		}

		sess := sessionFor(mgr, r)
		state := sess.Store.State(panel)
		q := r.URL.Query()

		win := pagewindow.Compute(pagewindow.Input{
			NumPages:            state.PageCount,
			Scale:               state.Scale,
			ScrollTop:           web.ParseFloat(q.Get("scroll_top"), 0),
			ContainerHeight:     web.ParseFloat(q.Get("container_height"), 0),
			EstimatedPageHeight: web.ParseFloat(q.Get("estimated_page_height"), pagewindow.DefaultEstimatedPageHeight),
		})

		// Report each visible page's effective rotation alongside the
		// window, so the client renders without a second round trip.
		rotations := map[string]int{}
		for page := win.StartPage; page <= win.EndPage && win.Len() > 0; page++ {
			rotations[strconv.Itoa(page)] = state.EffectiveRotation(page)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"window":    win,
			"rotations": rotations,
		})
	}
}
