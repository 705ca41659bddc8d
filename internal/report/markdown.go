package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// MarkdownGenerator renders a human-readable report.
type MarkdownGenerator struct {
	baseGenerator
}

// NewMarkdownGenerator creates a Markdown generator.
func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

// Format returns FormatMarkdown.
func (g *MarkdownGenerator) Format() Format {
	return FormatMarkdown
}

// Generate renders data as Markdown.
func (g *MarkdownGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	var buf bytes.Buffer

	g.writeHeader(&buf, data)

	if len(data.Runs) > 1 {
		g.writeSummary(&buf, data)
	}

	for _, run := range data.Runs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g.writeRun(&buf, run, data.MaxRows)
	}

	buf.WriteString("---\n\n")
	buf.WriteString("*Generated by flowsolve*\n")

	return buf.Bytes(), nil
}

func (g *MarkdownGenerator) writeHeader(buf *bytes.Buffer, data *Data) {
	fmt.Fprintf(buf, "# %s\n\n", g.title(data))
	fmt.Fprintf(buf, "- **Generated:** %s\n", g.formatTimestamp(g.generatedAt(data)))
	fmt.Fprintf(buf, "- **Author:** %s\n", g.author(data))
	if data.Description != "" {
		fmt.Fprintf(buf, "- **Description:** %s\n", data.Description)
	}
	buf.WriteString("\n")
}

func (g *MarkdownGenerator) writeSummary(buf *bytes.Buffer, data *Data) {
	buf.WriteString("## Summary\n\n")
	buf.WriteString("| Instance | Operation | Algorithm | Status | Flow | Cost | Duration |\n")
	buf.WriteString("|----------|-----------|-----------|--------|-----:|-----:|---------:|\n")
	for _, run := range data.Runs {
		row := summaryRow(run)
		fmt.Fprintf(buf, "| %s | %s | %s | %s | %d | %d | %s |\n",
			escapeCell(row.Instance), row.Operation, row.Algorithm, row.Status,
			row.Flow, row.Cost, g.formatDuration(row.Duration))
	}
	buf.WriteString("\n")
}

func (g *MarkdownGenerator) writeRun(buf *bytes.Buffer, run Run, maxRows int) {
	row := summaryRow(run)
	fmt.Fprintf(buf, "## %s\n\n", escapeCell(row.Instance))

	if run.Instance != nil {
		fmt.Fprintf(buf, "- **Nodes:** %d\n", run.Instance.Nodes)
		fmt.Fprintf(buf, "- **Edges:** %d\n", len(run.Instance.Edges))
		if !run.Instance.IsCirculation() {
			fmt.Fprintf(buf, "- **Source / Sink:** %d / %d\n", run.Instance.Source, run.Instance.Sink)
		}
	}

	if row.Error != "" {
		fmt.Fprintf(buf, "- **Error:** %s\n\n", row.Error)
		return
	}

	r := run.Result
	if r == nil {
		buf.WriteString("\n")
		return
	}

	fmt.Fprintf(buf, "- **Operation:** %s\n", r.Operation)
	fmt.Fprintf(buf, "- **Algorithm:** %s\n", r.Algorithm)
	fmt.Fprintf(buf, "- **Status:** %s\n", r.Status)
	fmt.Fprintf(buf, "- **Flow:** %d\n", r.Flow)
	fmt.Fprintf(buf, "- **Cost:** %d\n", r.Cost)
	if r.Required > 0 {
		fmt.Fprintf(buf, "- **Required:** %d (feasible: %t)\n", r.Required, r.Feasible)
	}
	fmt.Fprintf(buf, "- **Iterations:** %d\n", r.Iterations)
	if sum := r.Summary; sum != nil {
		fmt.Fprintf(buf, "- **Saturated edges:** %d of %d carrying flow (average utilization %s)\n",
			sum.SaturatedEdges, sum.ActiveEdges, g.formatPercent(sum.AverageUtilization))
	}
	fmt.Fprintf(buf, "- **Duration:** %s\n", g.formatDuration(r.Duration))
	if r.CacheHit {
		buf.WriteString("- **Cache:** hit\n")
	}
	fmt.Fprintf(buf, "- **Run ID:** `%s`\n", r.RunID)
	buf.WriteString("\n")

	for _, w := range r.Warnings {
		fmt.Fprintf(buf, "> **Warning:** %s\n", w)
	}
	if len(r.Warnings) > 0 {
		buf.WriteString("\n")
	}

	if rows, omitted := edgeRows(run, maxRows); len(rows) > 0 {
		buf.WriteString("### Edge Flows\n\n")
		buf.WriteString("| # | From | To | Label | Lower | Capacity | Cost | Flow | Utilization |\n")
		buf.WriteString("|--:|-----:|---:|-------|------:|---------:|-----:|-----:|------------:|\n")
		for _, e := range rows {
			mark := ""
			if e.InCut {
				mark = " ✂"
			}
			fmt.Fprintf(buf, "| %d | %d | %d | %s | %d | %s | %d | %d%s | %s |\n",
				e.Index, e.From, e.To, escapeCell(e.Label), e.Lower, e.CapacityString(),
				e.Cost, e.Flow, mark, g.formatPercent(e.Utilization))
		}
		if omitted > 0 {
			fmt.Fprintf(buf, "\n*... and %d more edges*\n", omitted)
		}
		buf.WriteString("\n")
	}

	if cut := r.Cut; cut != nil {
		buf.WriteString("### Minimum Cut\n\n")
		fmt.Fprintf(buf, "- **Capacity:** %d\n", cut.Capacity)
		fmt.Fprintf(buf, "- **Separates:** %d from %d\n", cut.Source, cut.Sink)
		fmt.Fprintf(buf, "- **Source side:** %s\n", joinInts(cut.SourceNodes))
		fmt.Fprintf(buf, "- **Cut edges:** %s\n\n", joinInts(cut.Edges))
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func joinInts(xs []int) string {
	if len(xs) == 0 {
		return "none"
	}
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%d", x)
	}
	return strings.Join(parts, ", ")
}
