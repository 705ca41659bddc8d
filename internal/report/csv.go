package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
)

// CSVGenerator writes a summary block followed by one edge table per run.
type CSVGenerator struct {
	baseGenerator
}

// NewCSVGenerator creates a CSV generator.
func NewCSVGenerator() *CSVGenerator {
	return &CSVGenerator{}
}

// Format returns FormatCSV.
func (g *CSVGenerator) Format() Format {
	return FormatCSV
}

// csvWriter keeps the first write error.
type csvWriter struct {
	w   *csv.Writer
	err error
}

func (cw *csvWriter) Write(record ...string) {
	if cw.err != nil {
		return
	}
	cw.err = cw.w.Write(record)
}

func (cw *csvWriter) Flush() error {
	if cw.err != nil {
		return cw.err
	}
	cw.w.Flush()
	return cw.w.Error()
}

// Generate renders data as CSV.
func (g *CSVGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	var buf bytes.Buffer
	w := &csvWriter{w: csv.NewWriter(&buf)}

	w.Write("# " + g.title(data))
	w.Write("generated", g.formatTimestamp(g.generatedAt(data)))
	w.Write()

	w.Write("instance", "operation", "algorithm", "status", "flow", "cost", "iterations", "duration_ms", "cache_hit", "verified", "error")
	for _, run := range data.Runs {
		row := summaryRow(run)
		w.Write(
			row.Instance,
			row.Operation,
			row.Algorithm,
			row.Status,
			strconv.FormatUint(row.Flow, 10),
			strconv.FormatInt(row.Cost, 10),
			strconv.Itoa(row.Iterations),
			fmt.Sprintf("%.3f", float64(row.Duration.Microseconds())/1000),
			strconv.FormatBool(row.CacheHit),
			strconv.FormatBool(row.Verified),
			row.Error,
		)
	}

	for _, run := range data.Runs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, omitted := edgeRows(run, data.MaxRows)
		if len(rows) == 0 {
			continue
		}

		w.Write()
		w.Write("# edges: " + summaryRow(run).Instance)
		w.Write("index", "from", "to", "label", "lower", "capacity", "cost", "flow", "utilization", "in_cut")
		for _, r := range rows {
			w.Write(
				strconv.Itoa(r.Index),
				strconv.Itoa(r.From),
				strconv.Itoa(r.To),
				r.Label,
				strconv.FormatInt(r.Lower, 10),
				r.CapacityString(),
				strconv.FormatInt(r.Cost, 10),
				strconv.FormatInt(r.Flow, 10),
				fmt.Sprintf("%.4f", r.Utilization),
				strconv.FormatBool(r.InCut),
			)
		}
		if omitted > 0 {
			w.Write(fmt.Sprintf("# %d more edges omitted", omitted))
		}
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("csv write error: %w", err)
	}
	return buf.Bytes(), nil
}
