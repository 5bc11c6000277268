package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatusSummary counts one pick-up branch's bookings by status.
type StatusSummary struct {
	PickUpBranch string `json:"pickUpBranch"`
	Booked       int    `json:"booked"`
	Loaded       int    `json:"loaded"`
	Unloaded     int    `json:"unloaded"`
	Missing      int    `json:"missing"`
	Delivered    int    `json:"delivered"`
	Cancelled    int    `json:"cancelled"`
	Total        int    `json:"total"`
}

// Add counts one booking with the given status.
func (s *StatusSummary) Add(status BookingStatus) {
	switch status {
	case StatusBooked:
		s.Booked++
	case StatusLoaded:
		s.Loaded++
	case StatusUnloaded:
		s.Unloaded++
	case StatusMissing:
		s.Missing++
	case StatusDelivered:
		s.Delivered++
	case StatusCancelled:
		s.Cancelled++
	}
	s.Total++
}

type GroupBy string

const (
	GroupByBranch      GroupBy = "branch"
	GroupByBookingType GroupBy = "bookingType"
	GroupByStatus      GroupBy = "status"
	GroupBySender      GroupBy = "sender"
)

func (g GroupBy) Valid() bool {
	switch g {
	case GroupByBranch, GroupByBookingType, GroupByStatus, GroupBySender:
		return true
	}
	return false
}

// GroupTotal is one row of a grouped booking summary.
type GroupTotal struct {
	Key           string          `json:"key"`
	Bookings      int             `json:"bookings"`
	TotalQuantity int             `json:"totalQuantity"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
}

// BookingSummary is a grouped summary plus the totals over every row.
type BookingSummary struct {
	GroupBy       GroupBy         `json:"groupBy"`
	From          time.Time       `json:"from"`
	To            time.Time       `json:"to"`
	Rows          []GroupTotal    `json:"rows"`
	Bookings      int             `json:"bookings"`
	TotalQuantity int             `json:"totalQuantity"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
}

// BranchAccount settles one pick-up branch over a date window.
type BranchAccount struct {
	Branch         string          `json:"branch"`
	Bookings       int             `json:"bookings"`
	Paid           decimal.Decimal `json:"paid"`
	ToPay          decimal.Decimal `json:"toPay"`
	Credit         decimal.Decimal `json:"credit"`
	FOC            decimal.Decimal `json:"foc"`
	CancelledCount int             `json:"cancelledCount"`
	Refunds        decimal.Decimal `json:"refunds"`
	NetTotal       decimal.Decimal `json:"netTotal"`
}

// LoadingSummaryRow is one loading manifest joined to its in-scope bookings.
type LoadingSummaryRow struct {
	VoucherNo     int64           `json:"voucherNo"`
	VehicleNo     string          `json:"vehicleNo"`
	FromBranch    string          `json:"fromBranch"`
	ToBranch      string          `json:"toBranch"`
	LoadedAt      time.Time       `json:"loadedAt"`
	Bookings      int             `json:"bookings"`
	TotalQuantity int             `json:"totalQuantity"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
}

// ReportRequest carries the query parameters shared by reports.
type ReportRequest struct {
	From         *time.Time
	To           *time.Time
	FromCity     string
	ToCity       string
	PickUpBranch string
	SenderName   string
	BookingType  BookingType
	GroupBy      GroupBy
}
