package services

import (
	"bytes"
	"testing"

	"parcel-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	rows := []models.BranchAccount{
		{Branch: "B1", Bookings: 4, Paid: decimal.NewFromInt(150), NetTotal: decimal.NewFromInt(480)},
	}
	data, err := WriteXLSX(BranchAccountTable(rows))
	if err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("workbook unreadable: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != exportSheet {
		t.Fatalf("sheets = %v", sheets)
	}
	cells := map[string]string{
		"A1": "Branch Account",
		"A4": "Branch",
		"I4": "Net Total",
		"A5": "B1",
		"C5": "150",
		"I5": "480",
	}
	for cell, want := range cells {
		got, err := f.GetCellValue(exportSheet, cell)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}
}

func TestBookingSummaryTableAddsTotalRow(t *testing.T) {
	s := &models.BookingSummary{
		GroupBy:       models.GroupByStatus,
		Rows:          []models.GroupTotal{{Key: "booked", Bookings: 2, TotalQuantity: 6, GrandTotal: decimal.NewFromInt(300)}},
		Bookings:      2,
		TotalQuantity: 6,
		GrandTotal:    decimal.NewFromInt(300),
	}
	tbl := BookingSummaryTable(s)
	if len(tbl.Rows) != 2 || tbl.Rows[1][0] != "Total" {
		t.Errorf("rows = %v", tbl.Rows)
	}
	if tbl.Headers[0] != "status" {
		t.Errorf("headers = %v", tbl.Headers)
	}
}
