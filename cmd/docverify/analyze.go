package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shoaibzaak/visa-docverify/internal/bootstrap"
	"github.com/Shoaibzaak/visa-docverify/internal/config"
	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
	"github.com/Shoaibzaak/visa-docverify/internal/infrastructure/mediatype"
	"github.com/Shoaibzaak/visa-docverify/internal/infrastructure/report/xlsx"
	"github.com/Shoaibzaak/visa-docverify/internal/observability/logging"
)

type analyzeOptions struct {
	documentType string
	concurrency  int
	xlsxPath     string
	format       string
	apiURL       string
	timeout      time.Duration
	verbose      bool
}

func newAnalyzeCmd() *cobra.Command {
	opts := analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Analyze one or more document images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.documentType, "type", "t", string(domain.DefaultDocumentType), "document type sent with every file")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", -1, "maximum parallel analyses (0 = unbounded, default from ANALYSIS_MAX_CONCURRENCY)")
	cmd.Flags().StringVar(&opts.xlsxPath, "xlsx", "", "write an Excel report to this path")
	cmd.Flags().StringVarP(&opts.format, "output", "o", formatText, "output format: text, json or yaml")
	cmd.Flags().StringVar(&opts.apiURL, "api-url", "", "fraud detection service base URL (default from FRAUD_API_URL)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "per-document request timeout (default from FRAUD_API_TIMEOUT_SECONDS)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every analysis step to stderr")
	return cmd
}

func runAnalyze(cmd *cobra.Command, opts analyzeOptions, paths []string) error {
	docType, err := domain.ParseDocumentType(opts.documentType)
	if err != nil {
		return err
	}
	switch opts.format {
	case formatText, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unsupported output format %q", opts.format)
	}

	previewDir, err := os.MkdirTemp("", "docverify-*")
	if err != nil {
		return fmt.Errorf("create preview dir: %w", err)
	}
	defer os.RemoveAll(previewDir)

	cfg := analyzeConfig(config.Load(), opts, previewDir)
	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger := logging.New(cmd.ErrOrStderr(), "docverify", level, "text")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Close(closeCtx)
	}()

	uploads, err := readUploads(paths, docType)
	if err != nil {
		return err
	}

	// Progress and notices go to stderr when stdout carries a structured report.
	out, status := cmd.OutOrStdout(), cmd.OutOrStdout()
	if opts.format != formatText {
		status = cmd.ErrOrStderr()
	}

	result, err := app.Intake.Intake(ctx, uploads)
	if err != nil {
		return err
	}
	if result.Notice != nil {
		colorYellow.Fprintln(status, result.Notice.Message)
	}
	if len(result.Accepted) == 0 {
		return errors.New("no supported files to analyze")
	}

	colorCyan.Fprintf(status, "Analyzing %d document(s) as %s against %s\n",
		len(result.Accepted), docType.Label(), cfg.FraudAPIURL)
	app.Coordinator.AnalyzeAll(ctx)

	items := app.Registry.List()
	stats := app.Registry.Stats()
	if opts.format == formatText {
		for _, item := range items {
			printItem(out, item)
		}
		printStats(out, stats)
	} else if err := writeStructured(out, opts.format, newBatchOutput(items, stats)); err != nil {
		return err
	}

	if opts.xlsxPath != "" {
		if err := writeWorkbook(opts.xlsxPath, items); err != nil {
			return err
		}
		colorFaint.Fprintf(status, "Report written to %s\n", opts.xlsxPath)
	}
	return nil
}

// analyzeConfig keeps previews in a throwaway directory and applies flag overrides.
func analyzeConfig(cfg config.Config, opts analyzeOptions, previewDir string) config.Config {
	cfg.StorageBackend = "localfs"
	cfg.StoragePath = previewDir
	if opts.concurrency >= 0 {
		cfg.AnalysisMaxConcurrency = opts.concurrency
	}
	if opts.apiURL != "" {
		cfg.FraudAPIURL = opts.apiURL
	}
	if opts.timeout > 0 {
		cfg.FraudAPITimeout = opts.timeout
	}
	return cfg
}

func readUploads(paths []string, docType domain.DocumentType) ([]domain.Upload, error) {
	uploads := make([]domain.Upload, 0, len(paths))
	for _, path := range paths {
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		name := filepath.Base(path)
		uploads = append(uploads, domain.Upload{
			File: domain.FileRef{
				Name:      name,
				MediaType: mediatype.FromFilename(name),
				Size:      int64(len(body)),
			},
			DocumentType: docType,
			Body:         body,
		})
	}
	return uploads, nil
}

func writeWorkbook(path string, items []domain.DocumentItem) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := xlsx.Write(f, items); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
