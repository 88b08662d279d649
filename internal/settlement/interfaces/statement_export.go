package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	settlement "coopmarket/internal/settlement/domain"
)

// BuildRunPDF renders a minimal PDF statement for a settlement run.
func BuildRunPDF(run *settlement.SettlementRun) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Balance Group Settlement")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Balance Group: %s", run.GroupID()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s", run.Period().String()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Internal Price (ct/kWh): %s", run.PriceCtPerKWh().String()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", run.CreatedAt().Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.Cell(0, 6, fmt.Sprintf("Fed In (kWh): %s", run.TotalInKWh().String()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Drawn (kWh): %s", run.TotalOutKWh().String()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Forecast (kWh): %s", run.ForecastKWh().String()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Deviation (kWh): %s", run.DeviationKWh().String()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Cost (EUR): %s", run.TotalCostEUR().StringFixed(2)))
	pdf.Ln(8)

	// Lines table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Metering Point", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Usage (kWh)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Cost (EUR)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, line := range run.Lines() {
		pdf.CellFormat(60, 6, line.MeteringPoint, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, line.UsageKWh.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, line.CostEUR.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildRunXLSX renders a minimal XLSX statement for a settlement run.
func BuildRunXLSX(run *settlement.SettlementRun) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	linesSheet := "lines"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(linesSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Balance Group Settlement")
	_ = f.SetCellValue(summarySheet, "A3", "Balance Group")
	_ = f.SetCellValue(summarySheet, "B3", run.GroupID())
	_ = f.SetCellValue(summarySheet, "A4", "Period")
	_ = f.SetCellValue(summarySheet, "B4", run.Period().String())
	_ = f.SetCellValue(summarySheet, "A5", "Internal Price (ct/kWh)")
	_ = f.SetCellValue(summarySheet, "B5", run.PriceCtPerKWh().String())
	_ = f.SetCellValue(summarySheet, "A6", "Fed In (kWh)")
	_ = f.SetCellValue(summarySheet, "B6", run.TotalInKWh().String())
	_ = f.SetCellValue(summarySheet, "A7", "Drawn (kWh)")
	_ = f.SetCellValue(summarySheet, "B7", run.TotalOutKWh().String())
	_ = f.SetCellValue(summarySheet, "A8", "Forecast (kWh)")
	_ = f.SetCellValue(summarySheet, "B8", run.ForecastKWh().String())
	_ = f.SetCellValue(summarySheet, "A9", "Deviation (kWh)")
	_ = f.SetCellValue(summarySheet, "B9", run.DeviationKWh().String())
	_ = f.SetCellValue(summarySheet, "A10", "Total Cost (EUR)")
	_ = f.SetCellValue(summarySheet, "B10", run.TotalCostEUR().StringFixed(2))

	_ = f.SetCellValue(linesSheet, "A1", "Metering Point")
	_ = f.SetCellValue(linesSheet, "B1", "Usage (kWh)")
	_ = f.SetCellValue(linesSheet, "C1", "Cost (EUR)")
	for i, line := range run.Lines() {
		row := i + 2
		_ = f.SetCellValue(linesSheet, fmt.Sprintf("A%d", row), line.MeteringPoint)
		_ = f.SetCellValue(linesSheet, fmt.Sprintf("B%d", row), line.UsageKWh.String())
		_ = f.SetCellValue(linesSheet, fmt.Sprintf("C%d", row), line.CostEUR.StringFixed(2))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
