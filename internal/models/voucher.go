package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type VoucherKind string

const (
	VoucherCredit     VoucherKind = "credit"
	VoucherCollection VoucherKind = "collection"
)

func (k VoucherKind) Valid() bool {
	return k == VoucherCredit || k == VoucherCollection
}

// Voucher is a settlement batch over a set of GRNs.
type Voucher struct {
	ID            int64           `json:"id"`
	CompanyID     int64           `json:"companyId"`
	Kind          VoucherKind     `json:"kind"`
	VoucherNo     int64           `json:"voucherNo"`
	GrnNos        []int64         `json:"grnNo"`
	Agent         string          `json:"agent,omitempty"`
	Consignor     string          `json:"consignor,omitempty"`
	Description   string          `json:"description,omitempty"`
	DateFrom      *time.Time      `json:"dateFrom,omitempty"`
	DateTo        *time.Time      `json:"dateTo,omitempty"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	CreatedBy     string          `json:"createdBy"`
	CreatedByID   int64           `json:"createdById"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// CreateVoucherRequest represents the request body for credit and collection vouchers
type CreateVoucherRequest struct {
	GrnNos      []int64    `json:"grnNo" validate:"required,min=1"`
	Agent       string     `json:"agent"`
	Consignor   string     `json:"consignor"`
	Description string     `json:"description"`
	DateFrom    *time.Time `json:"dateFrom"`
	DateTo      *time.Time `json:"dateTo"`
}

// CreditVoucherGenerateRequest selects credit bookings not yet settled
type CreditVoucherGenerateRequest struct {
	DateFrom   string `json:"fromDate"`
	DateTo     string `json:"toDate"`
	SenderName string `json:"senderName"`
	FromCity   string `json:"fromCity"`
	ToCity     string `json:"toCity"`
}

// CreditVoucherCandidates is the result of a credit voucher generation query
type CreditVoucherCandidates struct {
	Bookings      []*Booking      `json:"bookings"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

// VoucherWithBookings is a voucher joined with the bookings it settles.
type VoucherWithBookings struct {
	Voucher
	Bookings []*Booking `json:"bookings"`
}
