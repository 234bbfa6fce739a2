package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tentor",
	Short: "Exam archive server for LiU students",
	Long: `Tentor serves an archive of past exams and solutions. It hosts the
exam metadata, the PDF documents with their viewer state, distraction-free
lock-in sessions and an AI study assistant.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "tentor.yml", "config file path")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
