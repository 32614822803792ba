// Package export renders expense data as Excel workbooks.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/models"
)

// ExcelExporter writes expense listings to a spreadsheet
type ExcelExporter struct {
	logger *zap.Logger
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{logger: logger}
}

var columns = []string{"ID", "User ID", "Category", "Status", "Amount", "Currency", "Date", "Description", "Submitted At", "Reviewed At"}

// Export renders the expenses into an xlsx workbook and returns its bytes
func (ex *ExcelExporter) Export(expenses []*models.Expense) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	for i, header := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell: %w", err)
		}
	}

	for i, e := range expenses {
		row := i + 2
		values := []any{
			e.ID,
			e.UserID,
			e.Category,
			e.Status,
			float64(e.AmountMinor) / 100, // major units for human readers
			e.Currency,
			e.Date.Format("2006-01-02"),
			e.Description,
			formatTime(e.SubmittedAt),
			formatTime(e.ReviewedAt),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("failed to compute cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to set cell: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	ex.logger.Debug("Expense export generated",
		zap.Int("rows", len(expenses)),
		zap.Int("bytes", buf.Len()))

	return buf.Bytes(), nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
