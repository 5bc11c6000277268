package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// allowedFrom lists, for each target status, the statuses a booking may be
// in when the transition is applied. Loaded and Unloaded accept their own
// status so a resubmitted manifest overwrites the stamps instead of failing.
var allowedFrom = map[BookingStatus][]BookingStatus{
	StatusLoaded:    {StatusBooked, StatusLoaded},
	StatusUnloaded:  {StatusLoaded, StatusUnloaded},
	StatusDelivered: {StatusBooked, StatusLoaded, StatusUnloaded, StatusMissing},
	StatusCancelled: {StatusBooked},
	StatusMissing:   {StatusLoaded, StatusUnloaded},
}

// AllowedFrom returns the statuses from which to is reachable. Booked is
// never a target.
func AllowedFrom(to BookingStatus) []BookingStatus {
	return allowedFrom[to]
}

// CanTransition reports whether a booking in status from may move to status to.
func CanTransition(from, to BookingStatus) bool {
	for _, s := range allowedFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}

// Transition describes one bulk status change and the stamps it writes.
// Only the fields relevant to To are persisted.
type Transition struct {
	To        BookingStatus
	At        time.Time
	By        string
	Branch    string
	City      string
	VoucherNo int64

	DeliveredTo  string
	Remarks      string
	RefundCharge decimal.Decimal
	RefundAmount decimal.Decimal
}

func (t Transition) AllowedFrom() []BookingStatus {
	return AllowedFrom(t.To)
}

// WritesLastTransaction reports whether the transition refreshes the
// last-transaction stamp. Cancellation and missing keep their own stamps.
func (t Transition) WritesLastTransaction() bool {
	switch t.To {
	case StatusLoaded, StatusUnloaded, StatusDelivered:
		return true
	}
	return false
}

// Apply writes the transition onto b. Callers check CanTransition first.
func (t Transition) Apply(b *Booking) {
	at := t.At
	stamp := Stamp{Branch: t.Branch, City: t.City, Employee: t.By, At: &at}

	b.BookingStatus = t.To
	b.UpdatedAt = at
	if t.WritesLastTransaction() {
		b.LastTransaction = stamp
	}

	switch t.To {
	case StatusLoaded:
		b.Loading = stamp
		b.LoadingVoucherNo = t.VoucherNo
	case StatusUnloaded:
		b.Unloading = stamp
		b.UnloadingVoucherNo = t.VoucherNo
	case StatusDelivered:
		b.Delivery = stamp
		b.DeliveredTo = t.DeliveredTo
		b.DeliveryRemarks = t.Remarks
	case StatusCancelled:
		b.Cancellation = stamp
		b.RefundCharge = t.RefundCharge
		b.RefundAmount = t.RefundAmount
		b.CancelRemarks = t.Remarks
	case StatusMissing:
		b.Missing = stamp
	}
}
