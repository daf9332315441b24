package services

import (
	"fmt"
	"time"

	"repairshop-backend/models"

	"github.com/xuri/excelize/v2"
)

var exportHeaders = []string{
	"Ticket", "Created", "Customer", "Technician", "Device", "Status",
	"Diagnosis", "Labor", "Parts", "Discount", "Total", "Advance", "Delivered", "Warranty until",
}

// ExportRepairs writes one row per repair to a new workbook.
func ExportRepairs(repairs []models.Repair) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Repairs"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return nil, err
	}
	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for i, r := range repairs {
		row := i + 2
		values := []interface{}{
			r.TicketNumber,
			r.CreatedAt.Format("2006-01-02"),
			userName(r.Customer),
			userName(r.Technician),
			deviceLabel(&r),
			StatusLabel(r.Status),
			r.DiagnosisCost,
			r.LaborCost,
			r.PartsCost,
			r.Discount,
			r.TotalCost,
			r.AdvancePayment,
			dateOrEmpty(r.DeliveredAt),
			dateOrEmpty(r.WarrantyExpires),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
	}

	summary := len(repairs) + 2
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summary), "Total")
	if len(repairs) > 0 {
		f.SetCellFormula(sheet, fmt.Sprintf("K%d", summary), fmt.Sprintf("SUM(K2:K%d)", summary-1))
	}
	f.SetColWidth(sheet, "A", "A", 18)
	f.SetColWidth(sheet, "C", "E", 24)
	return f, nil
}

func userName(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.FullName()
}

func dateOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
