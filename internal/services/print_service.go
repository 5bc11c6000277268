package services

import (
	"bytes"
	"fmt"
	"strings"

	"parcel-backend/internal/models"
	"parcel-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"
)

// PrintService renders the lorry receipt and manifest sheets.
type PrintService struct {
	CompanyName string
}

func NewPrintService(companyName string) *PrintService {
	return &PrintService{CompanyName: companyName}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

// GenerateLRPDF renders one booking's lorry receipt.
func (s *PrintService) GenerateLRPDF(b *models.Booking) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("LR "+b.LRNumber, false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, s.CompanyName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, "Lorry Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(95, 8, fmt.Sprintf("LR No: %s", b.LRNumber), "1", 0, "L", true, 0, "")
	pdf.CellFormat(95, 8, fmt.Sprintf("GRN: %d", b.GrnNo), "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(95, 7, fmt.Sprintf("E-Way Bill: %s", b.EWayBillNo), "1", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Receipt No: %d", b.ReceiptNo), "1", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Date: %s", timeutil.Display(b.BookingDate)), "1", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Type: %s", b.BookingType), "1", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("From: %s (%s)", b.FromCity, b.PickUpBranchName), "1", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("To: %s (%s)", b.ToCity, b.DropBranchName), "1", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(95, 8, "Consignor", "1", 0, "L", true, 0, "")
	pdf.CellFormat(95, 8, "Consignee", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(95, 7, b.SenderName, "LR", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, b.ReceiverName, "LR", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, b.SenderPhone, "LR", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, b.ReceiverPhone, "LR", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, truncate(b.SenderAddress, 50), "LRB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, truncate(b.ReceiverAddress, 50), "LRB", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(15, 7, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(65, 7, "Package", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Weight", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Rate", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Amount", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for i, p := range b.Packages {
		pdf.CellFormat(15, 6, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(65, 6, truncate(p.PackageType, 35), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", p.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, p.Weight.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, p.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, p.Amount().StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	charges := []struct {
		label string
		value string
	}{
		{"Freight", b.Freight.StringFixed(2)},
		{"Hamali", b.HamaliCharge.StringFixed(2)},
		{"Door Delivery", b.DoorDeliveryCharge.StringFixed(2)},
		{"Other", b.OtherCharge.StringFixed(2)},
	}
	for _, c := range charges {
		pdf.CellFormat(160, 6, c.label, "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, c.value, "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(160, 8, fmt.Sprintf("Grand Total (%d pkgs)", b.TotalQuantity), "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 8, "Rs. "+b.GrandTotal.StringFixed(2), "1", 1, "R", true, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(95, 6, fmt.Sprintf("Booked by: %s", b.BookedBy), "", 0, "L", false, 0, "")
	pdf.CellFormat(95, 6, "Receiver's signature", "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenerateManifestPDF renders a loading or unloading sheet.
func (s *PrintService) GenerateManifestPDF(m *models.ManifestWithBookings) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	title := "Loading Sheet"
	if m.Direction == models.DirectionUnloading {
		title = "Unloading Sheet"
	}
	pdf.SetTitle(fmt.Sprintf("%s %d", title, m.VoucherNo), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(277, 10, s.CompanyName+" - "+title, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(277, 6, fmt.Sprintf("Voucher: %d    Date: %s", m.VoucherNo, timeutil.Display(m.CreatedAt)), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(92, 7, fmt.Sprintf("Vehicle: %s", m.VehicleNo), "1", 0, "L", true, 0, "")
	pdf.CellFormat(92, 7, fmt.Sprintf("Driver: %s %s", m.DriverName, m.DriverPhone), "1", 0, "L", true, 0, "")
	pdf.CellFormat(93, 7, fmt.Sprintf("By: %s", m.CreatedBy), "1", 1, "L", true, 0, "")
	pdf.CellFormat(138, 7, fmt.Sprintf("From: %s %s", m.FromCity, m.FromBranch), "1", 0, "L", false, 0, "")
	pdf.CellFormat(139, 7, fmt.Sprintf("To: %s %s", m.ToCity, m.ToBranch), "1", 1, "L", false, 0, "")
	pdf.Ln(3)

	headers := []struct {
		label string
		w     float64
	}{
		{"#", 10}, {"GRN", 22}, {"LR No", 45}, {"Consignor", 45}, {"Consignee", 45},
		{"To", 30}, {"Type", 20}, {"Qty", 20}, {"Amount", 40},
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	for i, h := range headers {
		ln := 0
		if i == len(headers)-1 {
			ln = 1
		}
		pdf.CellFormat(h.w, 7, h.label, "1", ln, "C", true, 0, "")
	}

	pdf.SetFont("Arial", "", 9)
	totalQty := 0
	grandTotal := decimal.Zero
	for i, b := range m.Bookings {
		cells := []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", b.GrnNo),
			b.LRNumber,
			truncate(b.SenderName, 24),
			truncate(b.ReceiverName, 24),
			truncate(b.ToCity, 16),
			string(b.BookingType),
			fmt.Sprintf("%d", b.TotalQuantity),
			b.GrandTotal.StringFixed(2),
		}
		for j, c := range cells {
			ln, align := 0, "L"
			if j == len(cells)-1 {
				ln, align = 1, "R"
			}
			pdf.CellFormat(headers[j].w, 6, c, "1", ln, align, false, 0, "")
		}
		totalQty += b.TotalQuantity
		grandTotal = grandTotal.Add(b.GrandTotal)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(217, 7, fmt.Sprintf("Total (%d bookings)", len(m.Bookings)), "1", 0, "R", true, 0, "")
	pdf.CellFormat(20, 7, fmt.Sprintf("%d", totalQty), "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, grandTotal.StringFixed(2), "1", 1, "R", true, 0, "")

	if strings.TrimSpace(m.Remarks) != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(277, 5, "Remarks: "+m.Remarks, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
