package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/liutentor/tentor/internal/config"
	"github.com/liutentor/tentor/internal/db"
	"github.com/liutentor/tentor/internal/exams"
	"github.com/liutentor/tentor/internal/pdfdoc"
)

var (
	uploadCourse string
	uploadName   string
	uploadDate   string
	uploadKind   string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Maintain the exam archive directly",
}

var uploadCmd = &cobra.Command{
	Use:   "upload <pdf-file>",
	Short: "Upload an exam or solution PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if uploadCourse == "" || uploadDate == "" {
			return fmt.Errorf("--course and --date are required")
		}
		kind := exams.DocumentKind(uploadKind)
		if kind != exams.KindExam && kind != exams.KindSolution {
			return fmt.Errorf("--kind must be exam or solution")
		}

		info, err := pdfdoc.LoadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		store, closeDB, err := openStore()
		if err != nil {
			return err
		}
		defer closeDB()
		ctx := cmd.Context()

		if err := store.UpsertCourse(ctx, exams.Course{Code: uploadCourse, Name: uploadName}); err != nil {
			return fmt.Errorf("upserting course: %w", err)
		}

		// Reuse the exam for this course and date if it already exists, so
		// an exam and its facit land on the same row.
		exam, err := findOrCreateExam(cmd, store, uploadCourse, uploadDate)
		if err != nil {
			return err
		}

		doc, err := store.AddDocument(ctx, exams.Document{
			ExamID:    exam.ID,
			Kind:      kind,
			Filename:  filepath.Base(path),
			PageCount: info.PageCount,
			Rotations: info.NativeRotations,
		}, content)
		if err != nil {
			return fmt.Errorf("storing document: %w", err)
		}

		fmt.Printf("Uploaded %s (%d pages) as %s document %s for %s %s\n",
			filepath.Base(path), info.PageCount, kind, doc.ID, uploadCourse, uploadDate)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <document-id>",
	Short: "Remove a document from the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeDB, err := openStore()
		if err != nil {
			return err
		}
		defer closeDB()

		removed, err := store.RemoveDocument(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("document %s not found", args[0])
		}
		fmt.Printf("Removed document %s\n", args[0])
		return nil
	},
}

func openStore() (*exams.Store, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	database, err := db.Open(filepath.Join(cfg.DataDir, "tentor.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return exams.NewStore(database), func() { database.Close() }, nil
}

func findOrCreateExam(cmd *cobra.Command, store *exams.Store, course, date string) (*exams.Exam, error) {
	list, err := store.ListExams(cmd.Context(), course)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ExamDate == date {
			return &list[i], nil
		}
	}
	return store.CreateExam(cmd.Context(), exams.Exam{CourseCode: course, ExamDate: date})
}

func init() {
	uploadCmd.Flags().StringVar(&uploadCourse, "course", "", "course code, e.g. TATA24")
	uploadCmd.Flags().StringVar(&uploadName, "name", "", "course name (stored on first upload)")
	uploadCmd.Flags().StringVar(&uploadDate, "date", "", "exam date, e.g. 2025-01-10")
	uploadCmd.Flags().StringVar(&uploadKind, "kind", "exam", "document kind: exam or solution")

	adminCmd.AddCommand(uploadCmd)
	adminCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(adminCmd)
}
