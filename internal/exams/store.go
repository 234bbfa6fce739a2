package exams

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/liutentor/tentor/internal/db"
)

// Store manages persistence of courses, exams and their documents.
type Store struct {
	db *db.DB
}

// NewStore creates an exam archive store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// UpsertCourse inserts or updates a course by code.
func (s *Store) UpsertCourse(ctx context.Context, c Course) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO courses (code, name, name_en) VALUES (?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET name = excluded.name, name_en = excluded.name_en`,
		c.Code, c.Name, c.NameEn,
	)
	if err != nil {
		return fmt.Errorf("upserting course: %w", err)
	}
	return nil
}

// SearchCourses returns courses matching the query by code or name. An empty
// query lists all courses.
func (s *Store) SearchCourses(ctx context.Context, query string, limit int) ([]Course, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, name, name_en, created_at FROM courses
		 WHERE code LIKE ? OR name LIKE ? OR name_en LIKE ?
		 ORDER BY code ASC LIMIT ?`,
		"%"+query+"%", "%"+query+"%", "%"+query+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching courses: %w", err)
	}
	defer rows.Close()

	var courses []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.Code, &c.Name, &c.NameEn, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// CreateExam creates an exam occasion for a course.
func (s *Store) CreateExam(ctx context.Context, e Exam) (*Exam, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exams (id, course_code, exam_date, name, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.CourseCode, e.ExamDate, e.Name, e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating exam: %w", err)
	}
	return &e, nil
}

// ListExams returns the exams of a course, newest first.
func (s *Store) ListExams(ctx context.Context, courseCode string) ([]Exam, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, course_code, exam_date, name, created_at FROM exams
		 WHERE course_code = ? ORDER BY exam_date DESC`,
		courseCode,
	)
	if err != nil {
		return nil, fmt.Errorf("listing exams: %w", err)
	}
	defer rows.Close()

	var exams []Exam
	for rows.Next() {
		var e Exam
		if err := rows.Scan(&e.ID, &e.CourseCode, &e.ExamDate, &e.Name, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning exam: %w", err)
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// GetExam retrieves an exam by ID. Returns (nil, nil) when absent.
func (s *Store) GetExam(ctx context.Context, id string) (*Exam, error) {
	var e Exam
	err := s.db.QueryRowContext(ctx,
		`SELECT id, course_code, exam_date, name, created_at FROM exams WHERE id = ?`, id,
	).Scan(&e.ID, &e.CourseCode, &e.ExamDate, &e.Name, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting exam: %w", err)
	}
	return &e, nil
}

// GetDetail returns the exam with its exam document and solutions.
func (s *Store) GetDetail(ctx context.Context, examID string) (*Detail, error) {
	exam, err := s.GetExam(ctx, examID)
	if err != nil || exam == nil {
		return nil, err
	}

	docs, err := s.listDocuments(ctx, examID)
	if err != nil {
		return nil, err
	}

	detail := &Detail{Exam: *exam, Solutions: []Document{}}
	for i := range docs {
		if docs[i].Kind == KindExam && detail.Document == nil {
			detail.Document = &docs[i]
		} else if docs[i].Kind == KindSolution {
			detail.Solutions = append(detail.Solutions, docs[i])
		}
	}
	return detail, nil
}

// AddDocument stores a PDF with its parsed structure.
func (s *Store) AddDocument(ctx context.Context, d Document, content []byte) (*Document, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.CreatedAt = time.Now().UTC()

	rotations, err := marshalRotations(d.Rotations)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exam_documents (id, exam_id, kind, filename, page_count, rotations, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ExamID, string(d.Kind), d.Filename, d.PageCount, rotations, content, d.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("adding document: %w", err)
	}
	return &d, nil
}

// GetDocument retrieves document metadata by ID. Returns (nil, nil) when
// absent.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	var d Document
	var kind, rotations string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, exam_id, kind, filename, page_count, rotations, created_at
		 FROM exam_documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.ExamID, &kind, &d.Filename, &d.PageCount, &rotations, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	d.Kind = DocumentKind(kind)
	d.Rotations, err = unmarshalRotations(rotations)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDocumentContent retrieves the raw PDF bytes. Returns (nil, nil) when
// absent.
func (s *Store) GetDocumentContent(ctx context.Context, id string) ([]byte, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM exam_documents WHERE id = ?`, id,
	).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting document content: %w", err)
	}
	return content, nil
}

// RemoveDocument deletes a document. Reports whether a row was removed.
func (s *Store) RemoveDocument(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exam_documents WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("removing document: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) listDocuments(ctx context.Context, examID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, exam_id, kind, filename, page_count, rotations, created_at
		 FROM exam_documents WHERE exam_id = ? ORDER BY created_at ASC`,
		examID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var kind, rotations string
		if err := rows.Scan(&d.ID, &d.ExamID, &kind, &d.Filename, &d.PageCount, &rotations, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		d.Kind = DocumentKind(kind)
		if d.Rotations, err = unmarshalRotations(rotations); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// marshalRotations stores the sparse page rotation map as JSON text.
func marshalRotations(m map[int]int) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	keyed := make(map[string]int, len(m))
	for page, deg := range m {
		keyed[strconv.Itoa(page)] = deg
	}
	b, err := json.Marshal(keyed)
	if err != nil {
		return "", fmt.Errorf("marshalling rotations: %w", err)
	}
	return string(b), nil
}

func unmarshalRotations(s string) (map[int]int, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var keyed map[string]int
	if err := json.Unmarshal([]byte(s), &keyed); err != nil {
		return nil, fmt.Errorf("unmarshalling rotations: %w", err)
	}
	m := make(map[int]int, len(keyed))
	for k, v := range keyed {
		page, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("invalid rotation page key %q", k)
		}
		m[page] = v
	}
	return m, nil
}
