package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary = "Summary"
	sheetEdges   = "Edge Flows"
	sheetCuts    = "Cuts"
)

// ExcelGenerator renders a workbook with summary, edge flow and cut sheets.
type ExcelGenerator struct {
	baseGenerator
}

// NewExcelGenerator creates an Excel generator.
func NewExcelGenerator() *ExcelGenerator {
	return &ExcelGenerator{}
}

// Format returns FormatXLSX.
func (g *ExcelGenerator) Format() Format {
	return FormatXLSX
}

// Generate renders data as an .xlsx workbook.
func (g *ExcelGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("excel style: %w", err)
	}
	cutStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FCE4D6"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("excel style: %w", err)
	}

	summary, err := f.NewSheet(sheetSummary)
	if err != nil {
		return nil, fmt.Errorf("excel sheet: %w", err)
	}
	f.SetActiveSheet(summary)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("excel sheet: %w", err)
	}

	g.writeSummarySheet(f, data, headerStyle)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := g.writeEdgeSheet(ctx, f, data, headerStyle, cutStyle); err != nil {
		return nil, err
	}
	g.writeCutSheet(f, data, headerStyle)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("excel write: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *ExcelGenerator) writeSummarySheet(f *excelize.File, data *Data, headerStyle int) {
	sheet := sheetSummary
	row := 1

	f.SetCellValue(sheet, Cell(0, row), g.title(data))
	f.MergeCell(sheet, Cell(0, row), Cell(3, row))
	row++
	f.SetCellValue(sheet, Cell(0, row), "Generated")
	f.SetCellValue(sheet, Cell(1, row), g.formatTimestamp(g.generatedAt(data)))
	row++
	f.SetCellValue(sheet, Cell(0, row), "Author")
	f.SetCellValue(sheet, Cell(1, row), g.author(data))
	row += 2

	headers := []string{"Instance", "Operation", "Algorithm", "Status", "Flow", "Cost", "Iterations", "Duration (ms)", "Cache Hit", "Verified", "Error"}
	for i, h := range headers {
		f.SetCellValue(sheet, Cell(i, row), h)
	}
	f.SetCellStyle(sheet, Cell(0, row), Cell(len(headers)-1, row), headerStyle)
	row++

	for _, run := range data.Runs {
		r := summaryRow(run)
		f.SetCellValue(sheet, Cell(0, row), r.Instance)
		f.SetCellValue(sheet, Cell(1, row), r.Operation)
		f.SetCellValue(sheet, Cell(2, row), r.Algorithm)
		f.SetCellValue(sheet, Cell(3, row), r.Status)
		f.SetCellValue(sheet, Cell(4, row), r.Flow)
		f.SetCellValue(sheet, Cell(5, row), r.Cost)
		f.SetCellValue(sheet, Cell(6, row), r.Iterations)
		f.SetCellValue(sheet, Cell(7, row), float64(r.Duration.Microseconds())/1000)
		f.SetCellValue(sheet, Cell(8, row), r.CacheHit)
		f.SetCellValue(sheet, Cell(9, row), r.Verified)
		f.SetCellValue(sheet, Cell(10, row), r.Error)
		row++
	}

	f.SetColWidth(sheet, "A", "J", 15)
	f.SetColWidth(sheet, "K", "K", 40)
}

func (g *ExcelGenerator) writeEdgeSheet(ctx context.Context, f *excelize.File, data *Data, headerStyle, cutStyle int) error {
	sheet := sheetEdges
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("excel sheet: %w", err)
	}

	headers := []string{"Instance", "Index", "From", "To", "Label", "Lower", "Capacity", "Cost", "Flow", "Utilization", "In Cut"}
	for i, h := range headers {
		f.SetCellValue(sheet, Cell(i, 1), h)
	}
	f.SetCellStyle(sheet, "A1", Cell(len(headers)-1, 1), headerStyle)

	row := 2
	for _, run := range data.Runs {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := summaryRow(run).Instance
		rows, omitted := edgeRows(run, data.MaxRows)
		for _, e := range rows {
			f.SetCellValue(sheet, Cell(0, row), name)
			f.SetCellValue(sheet, Cell(1, row), e.Index)
			f.SetCellValue(sheet, Cell(2, row), e.From)
			f.SetCellValue(sheet, Cell(3, row), e.To)
			f.SetCellValue(sheet, Cell(4, row), e.Label)
			f.SetCellValue(sheet, Cell(5, row), e.Lower)
			f.SetCellValue(sheet, Cell(6, row), e.CapacityString())
			f.SetCellValue(sheet, Cell(7, row), e.Cost)
			f.SetCellValue(sheet, Cell(8, row), e.Flow)
			f.SetCellValue(sheet, Cell(9, row), e.Utilization)
			f.SetCellValue(sheet, Cell(10, row), e.InCut)
			if e.InCut {
				f.SetCellStyle(sheet, Cell(0, row), Cell(len(headers)-1, row), cutStyle)
			}
			row++
		}
		if omitted > 0 {
			f.SetCellValue(sheet, Cell(0, row), name)
			f.SetCellValue(sheet, Cell(1, row), fmt.Sprintf("%d more edges omitted", omitted))
			row++
		}
	}

	f.SetColWidth(sheet, "A", "A", 20)
	f.SetColWidth(sheet, "B", "K", 12)
	return nil
}

func (g *ExcelGenerator) writeCutSheet(f *excelize.File, data *Data, headerStyle int) {
	var withCut []Run
	for _, run := range data.Runs {
		if run.Result != nil && run.Result.Cut != nil {
			withCut = append(withCut, run)
		}
	}
	if len(withCut) == 0 {
		return
	}

	sheet := sheetCuts
	f.NewSheet(sheet)

	headers := []string{"Instance", "Capacity", "Source", "Sink", "Source Side", "Index", "From", "To", "Edge Capacity"}
	for i, h := range headers {
		f.SetCellValue(sheet, Cell(i, 1), h)
	}
	f.SetCellStyle(sheet, "A1", Cell(len(headers)-1, 1), headerStyle)

	row := 2
	for _, run := range withCut {
		cut := run.Result.Cut
		f.SetCellValue(sheet, Cell(0, row), summaryRow(run).Instance)
		f.SetCellValue(sheet, Cell(1, row), cut.Capacity)
		f.SetCellValue(sheet, Cell(2, row), cut.Source)
		f.SetCellValue(sheet, Cell(3, row), cut.Sink)
		f.SetCellValue(sheet, Cell(4, row), joinInts(cut.SourceNodes))
		for _, e := range cutRows(run) {
			f.SetCellValue(sheet, Cell(5, row), e.Index)
			f.SetCellValue(sheet, Cell(6, row), e.From)
			f.SetCellValue(sheet, Cell(7, row), e.To)
			f.SetCellValue(sheet, Cell(8, row), e.CapacityString())
			row++
		}
		if len(cut.Edges) == 0 {
			row++
		}
		row++
	}

	f.SetColWidth(sheet, "A", "A", 20)
	f.SetColWidth(sheet, "B", "I", 12)
}
