// Package server assembles the HTTP surface: router, middleware, and the
// feature packages' routes.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/liutentor/tentor/internal/admin"
	"github.com/liutentor/tentor/internal/chat"
	"github.com/liutentor/tentor/internal/config"
	"github.com/liutentor/tentor/internal/db"
	"github.com/liutentor/tentor/internal/exams"
	"github.com/liutentor/tentor/internal/lockin"
	"github.com/liutentor/tentor/internal/metrics"
	"github.com/liutentor/tentor/internal/pdfdoc"
	"github.com/liutentor/tentor/internal/prefs"
	"github.com/liutentor/tentor/internal/viewer"
)

// Deps carries everything the server wires into routes.
type Deps struct {
	DB        *db.DB
	Exams     *exams.Store
	Prefs     *prefs.Store
	Fetcher   *pdfdoc.Fetcher
	Viewer    *viewer.Manager
	Lockin    *lockin.Manager
	LockinHub *lockin.Hub
	ChatStore *chat.Store
	Assistant *chat.Assistant
}

// Server is the tentor HTTP server.
type Server struct {
	cfg        config.Config
	deps       Deps
	router     chi.Router
	httpServer *http.Server
}

// New builds the server and its router.
func New(cfg config.Config, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAllCORS {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.deps.Lockin.GuardExamAccess)
		exams.RegisterRoutes(r, s.deps.Exams, s.deps.Fetcher)
	})
	prefs.RegisterRoutes(r, s.deps.Prefs)
	viewer.RegisterRoutes(r, s.deps.Viewer)
	lockin.RegisterRoutes(r, s.deps.Lockin, s.deps.LockinHub)
	chat.RegisterRoutes(r, s.deps.ChatStore, s.deps.Assistant)
	admin.RegisterRoutes(r, s.deps.Exams, s.cfg.AdminToken)

	return r
}

// requestLogger logs each request through zerolog and records the latency
// histogram.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		dur := time.Since(start)
		metrics.ObserveHTTP(r.URL.Path, strconv.Itoa(ww.Status()), dur)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", dur).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("tentor server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
