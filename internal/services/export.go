package services

import (
	"fmt"

	"parcel-backend/internal/models"
	"parcel-backend/internal/timeutil"

	"github.com/xuri/excelize/v2"
)

// Table is a report flattened into rows for export.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]interface{}
}

const exportSheet = "Report"

// WriteXLSX renders t as a single-sheet workbook.
func WriteXLSX(t Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	f.SetCellValue(exportSheet, "A1", t.Title)
	f.SetCellStyle(exportSheet, "A1", "A1", titleStyle)
	f.SetCellValue(exportSheet, "A2", "Generated: "+timeutil.Display(timeutil.Now()))

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    border,
	})
	dataStyle, _ := f.NewStyle(&excelize.Style{Border: border})

	for col, h := range t.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 4)
		if err != nil {
			return nil, err
		}
		f.SetCellValue(exportSheet, cell, h)
		f.SetCellStyle(exportSheet, cell, cell, headerStyle)
		colName, _ := excelize.ColumnNumberToName(col + 1)
		f.SetColWidth(exportSheet, colName, colName, 18)
	}

	for r, row := range t.Rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+5)
			if err != nil {
				return nil, err
			}
			f.SetCellValue(exportSheet, cell, v)
			f.SetCellStyle(exportSheet, cell, cell, dataStyle)
		}
	}

	f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func StatusSummaryTable(rows []models.StatusSummary) Table {
	t := Table{
		Title:   "Status-wise Summary",
		Headers: []string{"Branch", "Booked", "Loaded", "Unloaded", "Missing", "Delivered", "Cancelled", "Total"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{r.PickUpBranch, r.Booked, r.Loaded, r.Unloaded, r.Missing, r.Delivered, r.Cancelled, r.Total})
	}
	return t
}

func BookingSummaryTable(s *models.BookingSummary) Table {
	t := Table{
		Title:   fmt.Sprintf("Booking Summary by %s (%s to %s)", s.GroupBy, timeutil.Display(s.From), timeutil.Display(s.To)),
		Headers: []string{string(s.GroupBy), "Bookings", "Quantity", "Grand Total"},
	}
	for _, r := range s.Rows {
		t.Rows = append(t.Rows, []interface{}{r.Key, r.Bookings, r.TotalQuantity, r.GrandTotal.InexactFloat64()})
	}
	t.Rows = append(t.Rows, []interface{}{"Total", s.Bookings, s.TotalQuantity, s.GrandTotal.InexactFloat64()})
	return t
}

func BranchAccountTable(rows []models.BranchAccount) Table {
	t := Table{
		Title:   "Branch Account",
		Headers: []string{"Branch", "Bookings", "Paid", "To Pay", "Credit", "FOC", "Cancelled", "Refunds", "Net Total"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{
			r.Branch, r.Bookings,
			r.Paid.InexactFloat64(), r.ToPay.InexactFloat64(), r.Credit.InexactFloat64(), r.FOC.InexactFloat64(),
			r.CancelledCount, r.Refunds.InexactFloat64(), r.NetTotal.InexactFloat64(),
		})
	}
	return t
}

func LoadingSummaryTable(rows []models.LoadingSummaryRow) Table {
	t := Table{
		Title:   "Loading Summary",
		Headers: []string{"Voucher", "Vehicle", "From Branch", "To Branch", "Loaded At", "Bookings", "Quantity", "Grand Total"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{
			r.VoucherNo, r.VehicleNo, r.FromBranch, r.ToBranch, timeutil.Display(r.LoadedAt),
			r.Bookings, r.TotalQuantity, r.GrandTotal.InexactFloat64(),
		})
	}
	return t
}
