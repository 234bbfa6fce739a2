package exams

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/liutentor/tentor/internal/pagewindow"
	"github.com/liutentor/tentor/internal/pdfdoc"
	"github.com/liutentor/tentor/internal/web"
)

// RegisterRoutes mounts the exam archive API.
func RegisterRoutes(r chi.Router, store *Store, fetcher *pdfdoc.Fetcher) {
	r.Route("/api/courses", func(r chi.Router) {
		r.Get("/", handleSearchCourses(store))
		r.Get("/{code}/exams", handleListExams(store))
	})
	r.Route("/api/exams", func(r chi.Router) {
		r.Get("/{id}", handleExamDetail(store))
	})
	r.Route("/api/documents", func(r chi.Router) {
		r.Get("/{id}", handleDocumentInfo(store))
		r.Get("/{id}/content", handleDocumentContent(store, fetcher))
		r.Get("/{id}/window", handleDocumentWindow(store))
	})
}

func handleSearchCourses(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		limit := 50
		if l := r.URL.Query().Get("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		courses, err := store.SearchCourses(r.Context(), query, limit)
		if err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		if courses == nil {
			courses = []Course{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(courses)
	}
}

func handleListExams(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		exams, err := store.ListExams(r.Context(), code)
		if err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		if exams == nil {
			exams = []Exam{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(exams)
	}
}

func handleExamDetail(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		detail, err := store.GetDetail(r.Context(), id)
		if err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		if detail == nil {
			web.Error(w, http.StatusNotFound, "not found")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(detail)
	}
}

func handleDocumentInfo(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		doc, err := store.GetDocument(r.Context(), id)
		if err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		if doc == nil {
			web.Error(w, http.StatusNotFound, "not found")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(doc)
	}
}

// handleDocumentContent serves the PDF bytes through the blob cache. The
// epoch query parameter ties the request to the client's current
// navigation: an epoch-less request is a fresh navigation and mints a new
// epoch (returned in X-Content-Epoch), a request carrying a stale epoch
// yields 409 so a late response is never applied to the wrong document.
// Epochs are scoped per client profile so one client's navigation can
// never invalidate another's outstanding fetch.
func handleDocumentContent(store *Store, fetcher *pdfdoc.Fetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		load := func(ctx context.Context) ([]byte, error) {
			blob, err := store.GetDocumentContent(ctx, id)
			if err != nil {
				return nil, err
			}
			if blob == nil {
				return nil, fmt.Errorf("document %s not found", id)
			}
			return blob, nil
		}

		scope := contentScope(r)
		var token uint64
		if e := r.URL.Query().Get("epoch"); e != "" {
			parsed, err := strconv.ParseUint(e, 10, 64)
			if err != nil {
				web.Error(w, http.StatusBadRequest, "invalid epoch")
				return
			}
			token = parsed
		} else {
			token = fetcher.Begin(scope)
		}

		content, err := fetcher.Fetch(r.Context(), scope, token, "doc:"+id, load)
		if err == pdfdoc.ErrStaleFetch {
			web.Error(w, http.StatusConflict, "stale fetch")
			return
		}
		if err != nil {
			web.Error(w, http.StatusBadGateway, "failed to load document")
			return
		}

		w.Header().Set("X-Content-Epoch", strconv.FormatUint(token, 10))
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(content)
	}
}

// contentScope derives the epoch namespace for a content request: the
// panel qualified by the anonymous profile cookie.
func contentScope(r *http.Request) string {
	panel := r.URL.Query().Get("panel")
	if panel == "" {
		panel = "exam"
	}
	anon := "anonymous"
	if c, err := r.Cookie("tentor_anon_id"); err == nil && c.Value != "" {
		anon = c.Value
	}
	return panel + ":" + anon
}

// handleDocumentWindow computes the visible page window for a scroll
// position, so the client mounts only the pages overlapping its viewport.
func handleDocumentWindow(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		doc, err := store.GetDocument(r.Context(), id)
		if err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		if doc == nil {
			web.Error(w, http.StatusNotFound, "not found")
			return
		}

		q := r.URL.Query()
		win := pagewindow.Compute(pagewindow.Input{
			NumPages:            doc.PageCount,
			Scale:               web.ParseFloat(q.Get("scale"), 1),
			ScrollTop:           web.ParseFloat(q.Get("scroll_top"), 0),
			ContainerHeight:     web.ParseFloat(q.Get("container_height"), 0),
			EstimatedPageHeight: web.ParseFloat(q.Get("estimated_page_height"), pagewindow.DefaultEstimatedPageHeight),
		})

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(win)
	}
}
