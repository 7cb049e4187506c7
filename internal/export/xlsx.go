package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mareeba/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Exporter writes operator reports as .xlsx files under the configured
// export directory.
type Exporter struct {
	path   string
	logger *zerolog.Logger
}

func NewExporter(path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{path: path, logger: logger}
}

// WritePaymentsReport renders the reconciliation rows for the inclusive
// date range into a spreadsheet and returns the file path.
func (e *Exporter) WritePaymentsReport(rows []models.PaymentReportRow, fromDate, toDate string) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Payments"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Payments %s to %s", fromDate, toDate))
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.MergeCell(sheetName, "A1", "G1")
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headers := []string{"Booking", "Player", "Date", "Session", "Amount", "Status", "Reference"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	var total float64
	for i, row := range rows {
		rowIdx := i + 3
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowIdx), row.BookingID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowIdx), row.PlayerName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowIdx), row.SessionDate)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowIdx), row.SessionTime)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowIdx), row.Amount)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowIdx), row.Status)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", rowIdx), row.PaymentReference)

		if styleID, serr := e.statusStyle(f, row.Status); serr == nil {
			_ = f.SetCellStyle(sheetName, fmt.Sprintf("F%d", rowIdx), fmt.Sprintf("F%d", rowIdx), styleID)
		}
		if row.Status == models.PaymentCompleted {
			total += row.Amount
		}
	}

	totalRow := len(rows) + 4
	_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", totalRow), "Total received")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", totalRow), total)
	totalStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(sheetName, fmt.Sprintf("D%d", totalRow), fmt.Sprintf("E%d", totalRow), totalStyle)

	_ = f.SetColWidth(sheetName, "A", "A", 24)
	_ = f.SetColWidth(sheetName, "B", "B", 22)
	_ = f.SetColWidth(sheetName, "C", "D", 14)
	_ = f.SetColWidth(sheetName, "E", "F", 12)
	_ = f.SetColWidth(sheetName, "G", "G", 18)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("payments_%s_to_%s_%s.xlsx", fromDate, toDate, time.Now().Format("20060102-150405"))
	filePath := filepath.Join(e.path, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("rows", len(rows)).Msg("payments report created")
	return filePath, nil
}

func (e *Exporter) statusStyle(f *excelize.File, status string) (int, error) {
	var color string
	switch status {
	case models.PaymentCompleted:
		color = "#C6EFCE"
	case models.PaymentPending:
		color = "#FFEB9C"
	case models.PaymentFailed, models.PaymentRefunded:
		color = "#FFC7CE"
	default:
		color = "#FFFFFF"
	}
	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
}
