package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docreporter",
		Short: "Structured document summarization",
		Long: `docreporter turns long documents (PDF, DOCX, Markdown, HTML, CSV,
plain text) into compact structured reports: sections condensed under a
global length budget, large tables reduced to digests or charts, and a
manifest of everything that was dropped or truncated.

Compression uses an external text backend selected with COMPRESS_BACKEND
(groq or gemini); set GROQ_API_KEY or GEMINI_API_KEY accordingly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewReportCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
