package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus int

const (
	StatusBooked    BookingStatus = 0
	StatusLoaded    BookingStatus = 1
	StatusUnloaded  BookingStatus = 2
	StatusMissing   BookingStatus = 3
	StatusDelivered BookingStatus = 4
	StatusCancelled BookingStatus = 5
)

var statusNames = map[BookingStatus]string{
	StatusBooked:    "booked",
	StatusLoaded:    "loaded",
	StatusUnloaded:  "unloaded",
	StatusMissing:   "missing",
	StatusDelivered: "delivered",
	StatusCancelled: "cancelled",
}

// AllStatuses lists every status in numeric order.
var AllStatuses = []BookingStatus{
	StatusBooked, StatusLoaded, StatusUnloaded, StatusMissing, StatusDelivered, StatusCancelled,
}

func (s BookingStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s BookingStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

type BookingType string

const (
	BookingTypePaid   BookingType = "paid"
	BookingTypeToPay  BookingType = "toPay"
	BookingTypeCredit BookingType = "credit"
	BookingTypeFOC    BookingType = "foc"
)

func (t BookingType) Valid() bool {
	switch t {
	case BookingTypePaid, BookingTypeToPay, BookingTypeCredit, BookingTypeFOC:
		return true
	}
	return false
}

// Package is one line item of a booking. Order is preserved as entered.
type Package struct {
	Quantity    int             `json:"quantity" validate:"gte=1"`
	PackageType string          `json:"packageType" validate:"required"`
	Weight      decimal.Decimal `json:"weight"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Description string          `json:"description,omitempty"`
}

// Amount is quantity multiplied by unit price.
func (p Package) Amount() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// Stamp records who moved a booking, where and when.
type Stamp struct {
	Branch   string     `json:"branch,omitempty"`
	City     string     `json:"city,omitempty"`
	Employee string     `json:"employee,omitempty"`
	At       *time.Time `json:"at,omitempty"`
}

type Booking struct {
	ID        int64 `json:"id"`
	CompanyID int64 `json:"companyId"`

	GrnNo      int64  `json:"grnNo"`
	LRNumber   string `json:"lrNumber"`
	EWayBillNo string `json:"eWayBillNo"`
	ReceiptNo  int64  `json:"receiptNo"`

	FromCity         string      `json:"fromCity"`
	ToCity           string      `json:"toCity"`
	PickUpBranch     string      `json:"pickUpBranch"`
	PickUpBranchName string      `json:"pickUpBranchName"`
	DropBranch       string      `json:"dropBranch"`
	DropBranchName   string      `json:"dropBranchName"`
	DispatchType     string      `json:"dispatchType"`
	BookingType      BookingType `json:"bookingType"`

	Packages           []Package       `json:"packages"`
	TotalQuantity      int             `json:"totalQuantity"`
	TotalWeight        decimal.Decimal `json:"totalWeight"`
	Freight            decimal.Decimal `json:"freight"`
	HamaliCharge       decimal.Decimal `json:"hamaliCharge"`
	DoorDeliveryCharge decimal.Decimal `json:"doorDeliveryCharge"`
	OtherCharge        decimal.Decimal `json:"otherCharge"`
	GrandTotal         decimal.Decimal `json:"grandTotal"`

	SenderName      string `json:"senderName"`
	SenderPhone     string `json:"senderPhone"`
	SenderGST       string `json:"senderGst,omitempty"`
	SenderAddress   string `json:"senderAddress,omitempty"`
	ReceiverName    string `json:"receiverName"`
	ReceiverPhone   string `json:"receiverPhone"`
	ReceiverGST     string `json:"receiverGst,omitempty"`
	ReceiverAddress string `json:"receiverAddress,omitempty"`

	BookingStatus BookingStatus `json:"bookingStatus"`
	BookingDate   time.Time     `json:"bookingDate"`
	BookedBy      string        `json:"bookedBy"`
	BookedByID    int64         `json:"bookedById"`

	LastTransaction    Stamp  `json:"lastTransaction"`
	Loading            Stamp  `json:"loading"`
	LoadingVoucherNo   int64  `json:"loadingVoucherNo,omitempty"`
	Unloading          Stamp  `json:"unloading"`
	UnloadingVoucherNo int64  `json:"unloadingVoucherNo,omitempty"`
	Delivery           Stamp  `json:"delivery"`
	DeliveredTo        string `json:"deliveredTo,omitempty"`
	DeliveryRemarks    string `json:"deliveryRemarks,omitempty"`

	Cancellation  Stamp           `json:"cancellation"`
	RefundCharge  decimal.Decimal `json:"refundCharge"`
	RefundAmount  decimal.Decimal `json:"refundAmount"`
	CancelRemarks string          `json:"cancelRemarks,omitempty"`
	Missing       Stamp           `json:"missing"`

	CreditVoucherNo     int64 `json:"creditVoucherNo,omitempty"`
	CollectionVoucherNo int64 `json:"collectionVoucherNo,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ComputeTotals derives quantity, weight, freight and grand total from the
// packages and charges.
func (b *Booking) ComputeTotals() {
	qty := 0
	weight := decimal.Zero
	freight := decimal.Zero
	for _, p := range b.Packages {
		qty += p.Quantity
		weight = weight.Add(p.Weight)
		freight = freight.Add(p.Amount())
	}
	b.TotalQuantity = qty
	b.TotalWeight = weight
	b.Freight = freight
	b.GrandTotal = freight.Add(b.HamaliCharge).Add(b.DoorDeliveryCharge).Add(b.OtherCharge)
}

// CreateBookingRequest represents the request body for creating a booking
type CreateBookingRequest struct {
	FromCity         string      `json:"fromCity" validate:"required"`
	ToCity           string      `json:"toCity" validate:"required"`
	PickUpBranch     string      `json:"pickUpBranch" validate:"required"`
	PickUpBranchName string      `json:"pickUpBranchName" validate:"required"`
	DropBranch       string      `json:"dropBranch" validate:"required"`
	DropBranchName   string      `json:"dropBranchName"`
	DispatchType     string      `json:"dispatchType"`
	BookingType      BookingType `json:"bookingType" validate:"required,oneof=paid toPay credit foc"`

	Packages           []Package       `json:"packages" validate:"required,min=1,dive"`
	HamaliCharge       decimal.Decimal `json:"hamaliCharge"`
	DoorDeliveryCharge decimal.Decimal `json:"doorDeliveryCharge"`
	OtherCharge        decimal.Decimal `json:"otherCharge"`

	SenderName      string `json:"senderName" validate:"required"`
	SenderPhone     string `json:"senderPhone" validate:"required,min=10,max=15"`
	SenderGST       string `json:"senderGst"`
	SenderAddress   string `json:"senderAddress"`
	ReceiverName    string `json:"receiverName" validate:"required"`
	ReceiverPhone   string `json:"receiverPhone" validate:"required,min=10,max=15"`
	ReceiverGST     string `json:"receiverGst"`
	ReceiverAddress string `json:"receiverAddress"`
}

// CancelBookingRequest represents the request body for cancelling a booking
type CancelBookingRequest struct {
	RefundCharge decimal.Decimal `json:"refundCharge"`
	RefundAmount decimal.Decimal `json:"refundAmount"`
	Remarks      string          `json:"remarks"`
}

// DeliverBookingRequest represents the request body for recording delivery
type DeliverBookingRequest struct {
	Branch      string `json:"branch"`
	City        string `json:"city"`
	DeliveredTo string `json:"deliveredTo"`
	Remarks     string `json:"remarks"`
}

// Party is a sender record, one per phone number within a company.
type Party struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"companyId"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	GST       string    `json:"gst,omitempty"`
	Address   string    `json:"address,omitempty"`
	Bookings  int       `json:"bookings"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
