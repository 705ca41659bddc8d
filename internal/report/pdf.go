package report

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// pdfMaxEdgeRows caps the edge table when Data.MaxRows is unset.
const pdfMaxEdgeRows = 40

// PDFGenerator renders a printable report.
type PDFGenerator struct {
	baseGenerator
}

// NewPDFGenerator creates a PDF generator.
func NewPDFGenerator() *PDFGenerator {
	return &PDFGenerator{}
}

// Format returns FormatPDF.
func (g *PDFGenerator) Format() Format {
	return FormatPDF
}

var (
	primaryColor   = &props.Color{Red: 52, Green: 152, Blue: 219}
	headerBgColor  = &props.Color{Red: 44, Green: 62, Blue: 80}
	successColor   = &props.Color{Red: 39, Green: 174, Blue: 96}
	warningColor   = &props.Color{Red: 243, Green: 156, Blue: 18}
	dangerColor    = &props.Color{Red: 231, Green: 76, Blue: 60}
	lightGrayColor = &props.Color{Red: 236, Green: 240, Blue: 241}
	darkGrayColor  = &props.Color{Red: 127, Green: 140, Blue: 141}

	titleStyle = props.Text{
		Size:  22,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: headerBgColor,
	}

	h2Style = props.Text{
		Size:  15,
		Style: fontstyle.Bold,
		Color: headerBgColor,
		Top:   4,
	}

	normalStyle = props.Text{Size: 10}

	boldStyle = props.Text{Size: 10, Style: fontstyle.Bold}

	smallStyle = props.Text{Size: 8, Color: darkGrayColor}

	metricValueStyle = props.Text{
		Size:  18,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: primaryColor,
	}

	metricLabelStyle = props.Text{
		Size:  9,
		Top:   10,
		Align: align.Center,
		Color: darkGrayColor,
	}

	tableHeaderStyle = &props.Cell{BackgroundColor: primaryColor}

	tableHeaderTextStyle = props.Text{
		Size:  9,
		Style: fontstyle.Bold,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
		Align: align.Center,
	}

	tableCellStyle = &props.Cell{
		BorderType:  border.Bottom,
		BorderColor: lightGrayColor,
	}

	tableCellTextStyle = props.Text{Size: 9, Align: align.Center}
)

// Generate renders data as PDF.
func (g *PDFGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	g.addHeader(m, data)

	if len(data.Runs) > 1 {
		g.addSummaryTable(m, data)
	}

	maxRows := data.MaxRows
	if maxRows <= 0 {
		maxRows = pdfMaxEdgeRows
	}
	for _, run := range data.Runs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g.addRun(m, run, maxRows)
	}

	g.addFooter(m, data)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func (g *PDFGenerator) addHeader(m core.Maroto, data *Data) {
	m.AddRow(15, text.NewCol(12, g.title(data), titleStyle))
	m.AddRow(5, line.NewCol(12))

	m.AddRow(6,
		text.NewCol(6, fmt.Sprintf("Author: %s", g.author(data)), smallStyle),
		text.NewCol(6, fmt.Sprintf("Generated: %s", g.formatTimestamp(g.generatedAt(data))),
			props.Text{Size: 8, Color: darkGrayColor, Align: align.Right}),
	)
	if data.Description != "" {
		m.AddRow(5, text.NewCol(12, data.Description, smallStyle))
	}
	m.AddRow(8)
}

func (g *PDFGenerator) addSummaryTable(m core.Maroto, data *Data) {
	g.addSection(m, "Summary")

	m.AddRow(8,
		text.NewCol(3, "Instance", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Algorithm", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Status", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Flow", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Cost", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(1, "Iter.", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
	)
	for _, run := range data.Runs {
		row := summaryRow(run)
		m.AddRow(6,
			text.NewCol(3, row.Instance, tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, row.Algorithm, tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, row.Status, statusStyle(row.Status)).WithStyle(tableCellStyle),
			text.NewCol(2, fmt.Sprintf("%d", row.Flow), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, fmt.Sprintf("%d", row.Cost), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(1, fmt.Sprintf("%d", row.Iterations), tableCellTextStyle).WithStyle(tableCellStyle),
		)
	}
	m.AddRow(5)
}

func (g *PDFGenerator) addRun(m core.Maroto, run Run, maxRows int) {
	row := summaryRow(run)
	g.addSection(m, row.Instance)

	if inst := run.Instance; inst != nil {
		cards := []metricCard{
			{Label: "Nodes", Value: fmt.Sprintf("%d", inst.Nodes)},
			{Label: "Edges", Value: fmt.Sprintf("%d", len(inst.Edges))},
		}
		if !inst.IsCirculation() {
			cards = append(cards,
				metricCard{Label: "Source", Value: fmt.Sprintf("%d", inst.Source)},
				metricCard{Label: "Sink", Value: fmt.Sprintf("%d", inst.Sink)},
			)
		}
		g.addMetricCards(m, cards)
	}

	if row.Error != "" {
		m.AddRow(8, text.NewCol(12, "Error: "+row.Error, props.Text{Size: 10, Color: dangerColor}))
		return
	}
	r := run.Result
	if r == nil {
		return
	}

	m.AddRow(5)
	g.addMetricCards(m, []metricCard{
		{Label: "Flow", Value: fmt.Sprintf("%d", r.Flow), Highlight: true},
		{Label: "Cost", Value: fmt.Sprintf("%d", r.Cost), Highlight: true},
	})

	m.AddRow(5)
	items := []keyValue{
		{"Operation", r.Operation},
		{"Algorithm", string(r.Algorithm)},
		{"Status", string(r.Status)},
		{"Iterations", fmt.Sprintf("%d", r.Iterations)},
		{"Duration", g.formatDuration(r.Duration)},
		{"Verified", fmt.Sprintf("%t", r.Verified)},
		{"Run ID", r.RunID},
	}
	if r.Required > 0 {
		items = append(items, keyValue{"Required", fmt.Sprintf("%d (feasible: %t)", r.Required, r.Feasible)})
	}
	if r.CacheHit {
		items = append(items, keyValue{"Cache", "hit"})
	}
	g.addKeyValueTable(m, items)

	for _, w := range r.Warnings {
		m.AddRow(5, text.NewCol(12, "Warning: "+w, props.Text{Size: 8, Color: warningColor}))
	}

	if rows, omitted := edgeRows(run, maxRows); len(rows) > 0 {
		m.AddRow(5)
		g.addEdgeTable(m, rows, omitted)
	}

	if cut := r.Cut; cut != nil {
		m.AddRow(5)
		m.AddRow(8, text.NewCol(12, "Minimum Cut", boldStyle))
		g.addKeyValueTable(m, []keyValue{
			{"Capacity", fmt.Sprintf("%d", cut.Capacity)},
			{"Separates", fmt.Sprintf("%d from %d", cut.Source, cut.Sink)},
			{"Source side", joinInts(cut.SourceNodes)},
			{"Cut edges", joinInts(cut.Edges)},
		})
	}
}

func (g *PDFGenerator) addEdgeTable(m core.Maroto, rows []EdgeRow, omitted int) {
	m.AddRow(8,
		text.NewCol(1, "#", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "From", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "To", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Flow", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Capacity", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(1, "Cost", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Utilization", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
	)

	for _, e := range rows {
		flowStyle := tableCellTextStyle
		if e.InCut {
			flowStyle.Color = dangerColor
			flowStyle.Style = fontstyle.Bold
		}
		m.AddRow(6,
			text.NewCol(1, fmt.Sprintf("%d", e.Index), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, fmt.Sprintf("%d", e.From), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, fmt.Sprintf("%d", e.To), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, fmt.Sprintf("%d", e.Flow), flowStyle).WithStyle(tableCellStyle),
			text.NewCol(2, e.CapacityString(), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(1, fmt.Sprintf("%d", e.Cost), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, g.formatPercent(e.Utilization), tableCellTextStyle).WithStyle(tableCellStyle),
		)
	}

	if omitted > 0 {
		m.AddRow(6, text.NewCol(12, fmt.Sprintf("... and %d more edges", omitted), smallStyle))
	}
}

func (g *PDFGenerator) addSection(m core.Maroto, title string) {
	m.AddRow(10, text.NewCol(12, title, h2Style))
	m.AddRow(2, line.NewCol(12, props.Line{Color: primaryColor}))
	m.AddRow(5)
}

type metricCard struct {
	Label     string
	Value     string
	Highlight bool
}

func (g *PDFGenerator) addMetricCards(m core.Maroto, cards []metricCard) {
	if len(cards) == 0 {
		return
	}

	colSize := 12 / len(cards)
	if colSize < 2 {
		colSize = 2
	}

	var cols []core.Col
	for _, card := range cards {
		valueStyle := metricValueStyle
		if !card.Highlight {
			valueStyle.Size = 13
		}
		cols = append(cols,
			col.New(colSize).Add(
				text.New(card.Value, valueStyle),
				text.New(card.Label, metricLabelStyle),
			),
		)
	}

	m.AddRow(18, cols...)
}

type keyValue struct {
	Key   string
	Value string
}

func (g *PDFGenerator) addKeyValueTable(m core.Maroto, items []keyValue) {
	for _, item := range items {
		m.AddRow(6,
			text.NewCol(4, item.Key, boldStyle),
			text.NewCol(8, item.Value, normalStyle),
		)
	}
}

func (g *PDFGenerator) addFooter(m core.Maroto, data *Data) {
	m.AddRow(10)
	m.AddRow(2, line.NewCol(12, props.Line{Color: lightGrayColor}))
	m.AddRow(6,
		text.NewCol(12,
			fmt.Sprintf("Generated by flowsolve | %s", g.formatTimestamp(g.generatedAt(data))),
			props.Text{Size: 8, Color: darkGrayColor, Align: align.Center},
		),
	)
}

func statusStyle(status string) props.Text {
	s := tableCellTextStyle
	switch status {
	case "optimal":
		s.Color = successColor
	case "below_target", "canceled", "iteration_limit":
		s.Color = warningColor
	case "infeasible", "error":
		s.Color = dangerColor
	}
	return s
}
