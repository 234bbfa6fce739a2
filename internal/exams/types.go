package exams

import "time"

// Course is a university course whose exams are archived.
type Course struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	NameEn    string    `json:"name_en,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Exam is one exam occasion for a course.
type Exam struct {
	ID         string    `json:"id"`
	CourseCode string    `json:"course_code"`
	ExamDate   string    `json:"exam_date"`
	Name       string    `json:"name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// DocumentKind distinguishes the exam PDF from its solutions.
type DocumentKind string

const (
	KindExam     DocumentKind = "exam"
	KindSolution DocumentKind = "solution"
)

// Document is a stored PDF: the exam itself or a facit.
type Document struct {
	ID        string       `json:"id"`
	ExamID    string       `json:"exam_id"`
	Kind      DocumentKind `json:"kind"`
	Filename  string       `json:"filename"`
	PageCount int          `json:"page_count"`
	// Rotations maps 1-based page numbers to intrinsic page rotation.
	Rotations map[int]int `json:"rotations,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Detail is the exam detail payload: the exam with its exam document and
// paired solution documents.
type Detail struct {
	Exam      Exam       `json:"exam"`
	Document  *Document  `json:"exam_document,omitempty"`
	Solutions []Document `json:"solutions"`
}
