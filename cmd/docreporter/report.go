package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/VishnuVamsi7/DocReporter/internal/blocksource"
	"github.com/VishnuVamsi7/DocReporter/internal/compress"
	"github.com/VishnuVamsi7/DocReporter/internal/config"
	"github.com/VishnuVamsi7/DocReporter/internal/pipeline"
	"github.com/VishnuVamsi7/DocReporter/internal/render"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <file>",
		Short: "Generate a condensed report from a document",
		Long: `Report runs the full pipeline on one document and writes a Markdown
report next to it (or to --output). Numeric tables are rendered as PNG
charts in a charts/ directory beside the report.

Examples:
  # Summarize a PDF with the default budget
  docreporter report whitepaper.pdf

  # Tighter budget, explicit output
  docreporter report annual-report.docx -o summary.md --budget 8000

  # Raw JSON document instead of Markdown
  docreporter report notes.md --json`,
		Args: cobra.ExactArgs(1),
		RunE: runReportCmd,
	}

	cmd.Flags().StringP("output", "o", "", "Output path (default: <input>.report.md)")
	cmd.Flags().String("title", "", "Report title (default: inferred from the document)")
	cmd.Flags().IntP("budget", "b", 0, "Global output budget in characters")
	cmd.Flags().Bool("json", false, "Write the report document as JSON instead of Markdown")
	cmd.Flags().Bool("no-charts", false, "Skip PNG chart rendering")
	cmd.Flags().String("tuning", "", "YAML tuning file overriding pipeline thresholds")

	return cmd
}

func runReportCmd(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	verbose, _ := cmd.Flags().GetBool("verbose")
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.Load()
	if tuningPath, _ := cmd.Flags().GetString("tuning"); tuningPath != "" {
		cfg.TuningPath = tuningPath
	}
	tuning, err := cfg.ResolveTuning()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := newCLIBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("backend init: %w", err)
	}
	defer closeBackend()

	limiter := rate.NewLimiter(rate.Limit(cfg.BackendRPS), 1)
	engine := compress.NewEngine(backend, limiter, compress.NewStats(15*time.Minute), log, tuning.EngineConfig())
	runner := pipeline.NewRunner(engine, tuning, cfg.MaxConcurrentUnits, log)

	src, err := blocksource.ForFile(inputPath)
	if err != nil {
		return err
	}
	f, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	blocks, err := src.Blocks(f, filepath.Base(inputPath))
	f.Close()
	if err != nil {
		return fmt.Errorf("extract blocks: %w", err)
	}

	title, _ := cmd.Flags().GetString("title")
	budget, _ := cmd.Flags().GetInt("budget")

	doc, err := runner.Run(ctx, pipeline.RunRequest{
		Title:        title,
		Blocks:       blocks,
		GlobalBudget: budget,
	})
	if err != nil {
		return err
	}

	outPath, _ := cmd.Flags().GetString("output")
	asJSON, _ := cmd.Flags().GetBool("json")
	if outPath == "" {
		ext := ".report.md"
		if asJSON {
			ext = ".report.json"
		}
		outPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ext
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	writer := render.NewMarkdownWriter(out)
	if noCharts, _ := cmd.Flags().GetBool("no-charts"); !noCharts {
		chartDir := filepath.Join(filepath.Dir(outPath), "charts")
		paths, err := render.RenderCharts(doc, chartDir)
		if err != nil {
			return err
		}
		if len(paths) > 0 {
			writer.ChartDir = "charts"
			log.Info("charts rendered", "count", len(paths), "dir", chartDir)
		}
	}
	if err := writer.Write(doc); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "report written to %s (%d units, %d dropped, %d truncated)\n",
		outPath, doc.Manifest.TotalUnits, doc.Manifest.Dropped, doc.Manifest.Truncated)
	return nil
}

func newCLIBackend(ctx context.Context, cfg config.Config) (compress.Compressor, func(), error) {
	switch cfg.Backend {
	case "groq":
		if cfg.GroqAPIKey == "" {
			return nil, nil, fmt.Errorf("GROQ_API_KEY is not set")
		}
		c := compress.NewGroqClient(cfg.GroqAPIKey, cfg.GroqModel, cfg.GroqBaseURL)
		return c, c.Close, nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, nil, fmt.Errorf("GEMINI_API_KEY is not set")
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, nil, err
		}
		return compress.NewGeminiClient(client, cfg.GeminiModel), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown COMPRESS_BACKEND %q", cfg.Backend)
}
