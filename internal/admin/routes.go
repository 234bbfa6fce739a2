// Package admin exposes the maintenance API: course and exam creation,
// PDF upload and document removal. Every route requires the configured
// admin token.
package admin

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/liutentor/tentor/internal/exams"
	"github.com/liutentor/tentor/internal/pdfdoc"
	"github.com/liutentor/tentor/internal/web"
)

// maxUploadBytes caps a single PDF upload at 64 MiB.
const maxUploadBytes = 64 << 20

// RegisterRoutes mounts the admin API behind token auth.
func RegisterRoutes(r chi.Router, store *exams.Store, token string) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(requireToken(token))
		r.Post("/courses", handleUpsertCourse(store))
		r.Post("/exams", handleCreateExam(store))
		r.Post("/exams/{id}/documents", handleUpload(store))
		r.Delete("/documents/{id}", handleRemove(store))
	})
}

// requireToken rejects requests that do not carry the admin bearer token.
// An empty configured token disables the admin API entirely.
func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				web.Error(w, http.StatusForbidden, "admin API disabled")
				return
			}
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				web.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func handleUpsertCourse(store *exams.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var course exams.Course
		if err := json.NewDecoder(r.Body).Decode(&course); err != nil {
			web.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if course.Code == "" {
			web.Error(w, http.StatusBadRequest, "code is required")
			return
		}

		if err := store.UpsertCourse(r.Context(), course); err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(course)
	}
}

func handleCreateExam(store *exams.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var exam exams.Exam
		if err := json.NewDecoder(r.Body).Decode(&exam); err != nil {
			web.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if exam.CourseCode == "" || exam.ExamDate == "" {
			web.Error(w, http.StatusBadRequest, "course_code and exam_date are required")
			return
		}

		created, err := store.CreateExam(r.Context(), exam)
		if err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(created)
	}
}

// handleUpload ingests a PDF for an exam. Multipart fields: "file" holds
// the PDF, "kind" is exam or solution. The document structure (page count
// and per-page rotation) is parsed at upload time so viewers never pay for
// it.
func handleUpload(store *exams.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "id")
		exam, err := store.GetExam(r.Context(), examID)
		if err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		if exam == nil {
			web.Error(w, http.StatusNotFound, "exam not found")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			web.Error(w, http.StatusBadRequest, "invalid multipart body")
			return
		}

		kind := exams.DocumentKind(r.FormValue("kind"))
		if kind != exams.KindExam && kind != exams.KindSolution {
			web.Error(w, http.StatusBadRequest, "kind must be exam or solution")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			web.Error(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			web.Error(w, http.StatusInternalServerError, "reading upload")
			return
		}

		info, err := pdfdoc.Load(content)
		if err != nil {
			log.Warn().Err(err).Str("filename", header.Filename).Msg("uploaded file is not a readable pdf")
			web.Error(w, http.StatusUnprocessableEntity, "file is not a readable PDF")
			return
		}

		doc, err := store.AddDocument(r.Context(), exams.Document{
			ExamID:    examID,
			Kind:      kind,
			Filename:  header.Filename,
			PageCount: info.PageCount,
			Rotations: info.NativeRotations,
		}, content)
		if err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}

		log.Info().Str("exam_id", examID).Str("document_id", doc.ID).
			Str("kind", string(kind)).Int("pages", info.PageCount).
			Msg("document uploaded")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(doc)
	}
}

func handleRemove(store *exams.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		documentID := chi.URLParam(r, "id")
		removed, err := store.RemoveDocument(r.Context(), documentID)
		if err != nil {
			web.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !removed {
			web.Error(w, http.StatusNotFound, "document not found")
			return
		}

		log.Info().Str("document_id", documentID).Msg("document removed")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"removed": true})
	}
}
