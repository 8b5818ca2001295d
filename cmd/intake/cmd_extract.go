package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coverlight/intake/document"
	"github.com/coverlight/intake/events"
	"github.com/coverlight/intake/pipeline"
)

var extractFlags struct {
	output string
	setID  string
}

var extractCmd = &cobra.Command{
	Use:   "extract <file>...",
	Short: "Extract a filing record from cover sheet documents",
	Long: `Extract runs the full pipeline over one submission. All the given
files form a single document set.

Usage:
  intake extract coversheet.txt
  intake extract pages/*.txt metadata.xml
  intake extract --output result.json "submission/**/*.txt"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringVarP(&extractFlags.output, "output", "o", "", "Result path (default: stdout)")
	f.StringVar(&extractFlags.setID, "set-id", "", "Submission ID (default: generated)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	logger := newLogger(rootFlags.logLevel)
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	files, err := expandInputs(args)
	if err != nil {
		return err
	}
	var docs []document.Document
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		docs = append(docs, document.FromFile(filepath.Base(path), content))
	}
	set := document.NewSet(docs...)
	if extractFlags.setID != "" {
		set.ID = extractFlags.setID
	}

	p, closeAudit, err := buildPipeline(cfg, logger, pipeline.NewMetrics(nil))
	if err != nil {
		return err
	}
	defer closeAudit()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res, err := p.Extract(ctx, set)
	if err != nil {
		return err
	}

	if cfg.NATS.URL != "" {
		pub, err := events.Connect(cfg.NATS.URL, events.WithLogger(logger))
		if err != nil {
			logger.Warn("NATS unavailable; completion event not published", "error", err)
		} else {
			defer pub.Close()
			if err := pub.Completed(ctx, set, res); err != nil {
				logger.Warn("Failed to publish completion event", "error", err)
			}
		}
	}

	var data []byte
	if cfg.Output.Pretty {
		data, err = json.MarshalIndent(res, "", "  ")
	} else {
		data, err = json.Marshal(res)
	}
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if extractFlags.output == "" {
		if _, err := os.Stdout.Write(append(data, '\n')); err != nil {
			return err
		}
	} else {
		if err := os.WriteFile(extractFlags.output, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", extractFlags.output, err)
		}
		logger.Info("Result written", "path", extractFlags.output)
	}

	if res.ManualReviewRequired {
		logger.Warn("Extraction flagged for manual review",
			"overall", res.Metrics.Overall,
			"errors", res.Metrics.ErrorCount)
	}
	return nil
}
