// Package report renders run results as CSV, Markdown, JSON, Excel or PDF.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"flowengine/internal/instance"
	"flowengine/internal/service"
	"flowengine/pkg/apperror"
)

// Format is a report output format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatXLSX     Format = "xlsx"
	FormatPDF      Format = "pdf"
)

// ParseFormat resolves a format name. "md" and "excel" are accepted aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", apperror.Newf(apperror.CodeInvalidArgument,
		"unknown report format %q: want csv, markdown, json, xlsx or pdf", name).WithField("format")
}

// Extension returns the file extension for the format, dot included.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return ".md"
	}
	return "." + string(f)
}

// Binary reports whether the format should not be written to a terminal.
func (f Format) Binary() bool {
	return f == FormatXLSX || f == FormatPDF
}

// Run pairs an instance with the outcome of running it.
type Run struct {
	Instance *instance.Instance
	Result   *service.Result
	Err      error
}

// Data is the input of every generator.
type Data struct {
	Title       string
	Author      string
	Description string
	GeneratedAt time.Time
	Runs        []Run

	// MaxRows limits edge rows per run. Zero means unlimited.
	MaxRows int
}

// Generator renders Data in one format.
type Generator interface {
	Generate(ctx context.Context, data *Data) ([]byte, error)
	Format() Format
}

// New returns the generator for format.
func New(format Format) (Generator, error) {
	switch format {
	case FormatCSV:
		return NewCSVGenerator(), nil
	case FormatMarkdown:
		return NewMarkdownGenerator(), nil
	case FormatJSON:
		return NewJSONGenerator(), nil
	case FormatXLSX:
		return NewExcelGenerator(), nil
	case FormatPDF:
		return NewPDFGenerator(), nil
	}
	return nil, apperror.Newf(apperror.CodeInvalidArgument, "unknown report format %q", format)
}

// baseGenerator holds helpers shared by the generators.
type baseGenerator struct{}

func (baseGenerator) title(data *Data) string {
	if data.Title != "" {
		return data.Title
	}
	if len(data.Runs) == 1 && data.Runs[0].Instance != nil && data.Runs[0].Instance.Name != "" {
		return "Flow Report: " + data.Runs[0].Instance.Name
	}
	return "Flow Report"
}

func (baseGenerator) author(data *Data) string {
	if data.Author != "" {
		return data.Author
	}
	return "flowsolve"
}

func (baseGenerator) generatedAt(data *Data) time.Time {
	if data.GeneratedAt.IsZero() {
		return time.Now()
	}
	return data.GeneratedAt
}

func (baseGenerator) formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func (baseGenerator) formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2f ms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.2f s", d.Seconds())
}

func (baseGenerator) formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// =====================================================
// Rows
// =====================================================

// SummaryRow is one run in the summary table.
type SummaryRow struct {
	Instance   string
	Operation  string
	Algorithm  string
	Status     string
	Flow       uint64
	Cost       int64
	Iterations int
	Duration   time.Duration
	CacheHit   bool
	Verified   bool
	Error      string
}

// EdgeRow is one instance edge with its flow.
type EdgeRow struct {
	Index       int
	From        int
	To          int
	Label       string
	Lower       int64
	Capacity    instance.Capacity
	Cost        int64
	Flow        int64
	Utilization float64
	InCut       bool
}

// CapacityString renders the capacity, "inf" for unbounded edges.
func (r EdgeRow) CapacityString() string {
	if r.Capacity == instance.Infinite {
		return "inf"
	}
	return fmt.Sprintf("%d", r.Capacity)
}

func summaryRow(run Run) SummaryRow {
	row := SummaryRow{}
	if run.Instance != nil {
		row.Instance = run.Instance.Name
	}
	if run.Err != nil {
		row.Status = "error"
		row.Error = run.Err.Error()
	}
	if r := run.Result; r != nil {
		if row.Instance == "" {
			row.Instance = r.Instance
		}
		row.Operation = r.Operation
		row.Algorithm = string(r.Algorithm)
		if row.Status == "" {
			row.Status = string(r.Status)
		}
		row.Flow = r.Flow
		row.Cost = r.Cost
		row.Iterations = r.Iterations
		row.Duration = r.Duration
		row.CacheHit = r.CacheHit
		row.Verified = r.Verified
	}
	return row
}

// edgeRows joins the instance edges with the run's flows. At most maxRows
// rows are returned (0 means all); omitted counts the rest.
func edgeRows(run Run, maxRows int) (rows []EdgeRow, omitted int) {
	if run.Instance == nil || run.Result == nil || len(run.Result.EdgeFlows) != len(run.Instance.Edges) {
		return nil, 0
	}

	inCut := make(map[int]bool)
	if run.Result.Cut != nil {
		for _, i := range run.Result.Cut.Edges {
			inCut[i] = true
		}
	}

	for i := range run.Instance.Edges {
		if maxRows > 0 && len(rows) == maxRows {
			return rows, len(run.Instance.Edges) - maxRows
		}
		rows = append(rows, edgeRow(run, i, inCut[i]))
	}
	return rows, 0
}

// cutRows lists the edges of the run's cut. Flows are zero when the run
// reports none.
func cutRows(run Run) []EdgeRow {
	if run.Instance == nil || run.Result == nil || run.Result.Cut == nil {
		return nil
	}
	rows := make([]EdgeRow, 0, len(run.Result.Cut.Edges))
	for _, i := range run.Result.Cut.Edges {
		if i >= 0 && i < len(run.Instance.Edges) {
			rows = append(rows, edgeRow(run, i, true))
		}
	}
	return rows
}

func edgeRow(run Run, i int, inCut bool) EdgeRow {
	e := run.Instance.Edges[i]
	row := EdgeRow{
		Index:    i,
		From:     e.From,
		To:       e.To,
		Label:    e.Label,
		Lower:    e.Lower,
		Capacity: e.Capacity,
		Cost:     e.Cost,
		InCut:    inCut,
	}
	if flows := run.Result.EdgeFlows; i < len(flows) {
		row.Flow = flows[i]
	}
	if e.Capacity > 0 && e.Capacity != instance.Infinite {
		row.Utilization = float64(row.Flow) / float64(e.Capacity)
	}
	return row
}

// ColName converts a zero-based column index to letters (0 -> A, 26 -> AA).
func ColName(index int) string {
	result := ""
	for {
		result = string(rune('A'+index%26)) + result
		index = index/26 - 1
		if index < 0 {
			break
		}
	}
	return result
}

// Cell returns the address of a cell by zero-based column and one-based row.
func Cell(col, row int) string {
	return fmt.Sprintf("%s%d", ColName(col), row)
}
