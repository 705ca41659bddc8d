package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	"flowengine/internal/report"
	"flowengine/pkg/apperror"
	"flowengine/pkg/logger"
	"flowengine/pkg/telemetry"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// writeReport renders runs in the selected format to --output, to
// report.output_dir, or to stdout.
func (c *cli) writeReport(cmd *cobra.Command, runs []report.Run) (err error) {
	ctx, span := telemetry.StartSpan(cmd.Context(), "flowsolve.report")
	defer func() { telemetry.EndSpan(span, err) }()

	name := c.format
	if name == "" {
		name = c.cfg.Report.Format
	}
	format, err := report.ParseFormat(name)
	if err != nil {
		return err
	}
	gen, err := report.New(format)
	if err != nil {
		return err
	}

	maxRows := c.maxRows
	if maxRows < 0 {
		maxRows = c.cfg.Report.MaxRows
	}

	data := &report.Data{
		GeneratedAt: time.Now(),
		Runs:        runs,
		MaxRows:     maxRows,
	}
	out, err := gen.Generate(ctx, data)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "failed to generate report").WithDetails("format", string(format))
	}

	path := c.output
	if path == "" && c.cfg.Report.OutputDir != "" {
		path = filepath.Join(c.cfg.Report.OutputDir, reportFileName(runs)+format.Extension())
	}

	if path == "" || path == "-" {
		if path == "" && format.Binary() {
			return apperror.Newf(apperror.CodeInvalidArgument,
				"%s reports are binary: set --output (or \"-\" to force stdout)", format).WithField("output")
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	logger.WithContext(ctx).Info("report written", "path", path, "format", string(format), "bytes", len(out))
	return nil
}

// reportFileName names a report after its single run, or after the time for
// a batch.
func reportFileName(runs []report.Run) string {
	if len(runs) == 1 && runs[0].Result != nil {
		r := runs[0].Result
		return unsafeFileChars.ReplaceAllString(r.Instance+"-"+r.Operation, "_")
	}
	return "batch-" + time.Now().Format("20060102-150405")
}
