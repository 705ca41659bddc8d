package report

import (
	"context"
	"encoding/json"
	"time"

	"flowengine/internal/service"
)

// JSONGenerator renders a machine-readable report.
type JSONGenerator struct {
	baseGenerator
}

// NewJSONGenerator creates a JSON generator.
func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

// Format returns FormatJSON.
func (g *JSONGenerator) Format() Format {
	return FormatJSON
}

// JSONReport is the document written by JSONGenerator.
type JSONReport struct {
	Metadata JSONMetadata `json:"metadata"`
	Runs     []JSONRun    `json:"runs"`
}

type JSONMetadata struct {
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

type JSONRun struct {
	Instance   string        `json:"instance"`
	Nodes      int           `json:"nodes,omitempty"`
	Operation  string        `json:"operation,omitempty"`
	Algorithm  string        `json:"algorithm,omitempty"`
	Status     string        `json:"status"`
	Flow       uint64        `json:"flow"`
	Cost       int64         `json:"cost"`
	Iterations int           `json:"iterations"`
	DurationMs float64       `json:"duration_ms"`
	CacheHit   bool          `json:"cache_hit"`
	Verified   bool          `json:"verified"`
	RunID      string        `json:"run_id,omitempty"`
	Feasible   *bool         `json:"feasible,omitempty"`
	Error      string        `json:"error,omitempty"`
	Warnings   []string      `json:"warnings,omitempty"`
	Edges      []JSONEdge    `json:"edges,omitempty"`
	Omitted    int           `json:"omitted_edges,omitempty"`
	Cut        *JSONCut      `json:"cut,omitempty"`
	Paths      []JSONFlowRun `json:"paths,omitempty"`

	Summary *service.FlowSummary `json:"summary,omitempty"`
}

type JSONEdge struct {
	Index       int     `json:"index"`
	From        int     `json:"from"`
	To          int     `json:"to"`
	Label       string  `json:"label,omitempty"`
	Lower       int64   `json:"lower,omitempty"`
	Capacity    string  `json:"capacity"`
	Cost        int64   `json:"cost"`
	Flow        int64   `json:"flow"`
	Utilization float64 `json:"utilization"`
}

type JSONCut struct {
	Capacity    uint64 `json:"capacity"`
	Source      int    `json:"source"`
	Sink        int    `json:"sink"`
	SourceNodes []int  `json:"source_nodes"`
	Edges       []int  `json:"edges"`
}

type JSONFlowRun struct {
	Nodes []int  `json:"nodes"`
	Flow  uint64 `json:"flow"`
	Cost  int64  `json:"cost"`
}

// Generate renders data as indented JSON.
func (g *JSONGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	report := JSONReport{
		Metadata: JSONMetadata{
			Title:       g.title(data),
			Author:      g.author(data),
			Description: data.Description,
			GeneratedAt: g.generatedAt(data),
		},
		Runs: make([]JSONRun, 0, len(data.Runs)),
	}

	for _, run := range data.Runs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Runs = append(report.Runs, g.convertRun(run, data.MaxRows))
	}

	return json.MarshalIndent(report, "", "  ")
}

func (g *JSONGenerator) convertRun(run Run, maxRows int) JSONRun {
	row := summaryRow(run)
	out := JSONRun{
		Instance:   row.Instance,
		Operation:  row.Operation,
		Algorithm:  row.Algorithm,
		Status:     row.Status,
		Flow:       row.Flow,
		Cost:       row.Cost,
		Iterations: row.Iterations,
		DurationMs: float64(row.Duration.Microseconds()) / 1000,
		CacheHit:   row.CacheHit,
		Verified:   row.Verified,
		Error:      row.Error,
	}
	if run.Instance != nil {
		out.Nodes = run.Instance.Nodes
	}

	r := run.Result
	if r == nil {
		return out
	}
	out.RunID = r.RunID
	out.Warnings = r.Warnings
	if r.Required > 0 || r.Operation == service.OperationCirculation {
		feasible := r.Feasible
		out.Feasible = &feasible
	}

	rows, omitted := edgeRows(run, maxRows)
	for _, e := range rows {
		out.Edges = append(out.Edges, JSONEdge{
			Index:       e.Index,
			From:        e.From,
			To:          e.To,
			Label:       e.Label,
			Lower:       e.Lower,
			Capacity:    e.CapacityString(),
			Cost:        e.Cost,
			Flow:        e.Flow,
			Utilization: e.Utilization,
		})
	}
	out.Omitted = omitted

	if c := r.Cut; c != nil {
		out.Cut = &JSONCut{
			Capacity:    c.Capacity,
			Source:      c.Source,
			Sink:        c.Sink,
			SourceNodes: c.SourceNodes,
			Edges:       c.Edges,
		}
	}

	for _, p := range r.Paths {
		out.Paths = append(out.Paths, JSONFlowRun{Nodes: p.Nodes, Flow: p.Flow, Cost: p.Cost})
	}
	out.Summary = r.Summary
	return out
}
