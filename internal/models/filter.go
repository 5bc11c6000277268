package models

import "time"

// BookingFilter selects bookings. Zero values do not restrict.
type BookingFilter struct {
	CompanyID    int64
	GrnNos       []int64
	PickUpBranch string
	DropBranch   string
	FromCity     string
	ToCity       string
	BookingType  BookingType
	Statuses     []BookingStatus
	SenderName   string
	From         *time.Time
	To           *time.Time

	// WithoutCreditVoucher keeps only bookings no credit voucher has claimed.
	WithoutCreditVoucher bool

	Limit  int
	Offset int
}

// ApplyScope narrows the filter to s. Scope fields always win over
// caller-supplied values.
func (f *BookingFilter) ApplyScope(s Scope) {
	f.CompanyID = s.CompanyID
	if s.PickUpBranch != "" {
		f.PickUpBranch = s.PickUpBranch
	}
	if s.FromCity != "" {
		f.FromCity = s.FromCity
	}
}

// Match reports whether b satisfies every set field of the filter,
// ignoring paging.
func (f BookingFilter) Match(b *Booking) bool {
	if f.CompanyID != 0 && b.CompanyID != f.CompanyID {
		return false
	}
	if len(f.GrnNos) > 0 && !containsInt64(f.GrnNos, b.GrnNo) {
		return false
	}
	if f.PickUpBranch != "" && b.PickUpBranch != f.PickUpBranch {
		return false
	}
	if f.DropBranch != "" && b.DropBranch != f.DropBranch {
		return false
	}
	if f.FromCity != "" && b.FromCity != f.FromCity {
		return false
	}
	if f.ToCity != "" && b.ToCity != f.ToCity {
		return false
	}
	if f.BookingType != "" && b.BookingType != f.BookingType {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if s == b.BookingStatus {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.SenderName != "" && b.SenderName != f.SenderName {
		return false
	}
	if f.From != nil && b.BookingDate.Before(*f.From) {
		return false
	}
	if f.To != nil && b.BookingDate.After(*f.To) {
		return false
	}
	if f.WithoutCreditVoucher && b.CreditVoucherNo != 0 {
		return false
	}
	return true
}

// ManifestFilter selects manifests of one direction.
type ManifestFilter struct {
	CompanyID  int64
	Direction  Direction
	VoucherNo  int64
	GrnNo      int64
	FromBranch string
	ToBranch   string
	FromCity   string
	ToCity     string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

func (f ManifestFilter) Match(m *Manifest) bool {
	if f.CompanyID != 0 && m.CompanyID != f.CompanyID {
		return false
	}
	if f.Direction != "" && m.Direction != f.Direction {
		return false
	}
	if f.VoucherNo != 0 && m.VoucherNo != f.VoucherNo {
		return false
	}
	if f.GrnNo != 0 && !containsInt64(m.GrnNos, f.GrnNo) {
		return false
	}
	if f.FromBranch != "" && m.FromBranch != f.FromBranch {
		return false
	}
	if f.ToBranch != "" && m.ToBranch != f.ToBranch {
		return false
	}
	if f.FromCity != "" && m.FromCity != f.FromCity {
		return false
	}
	if f.ToCity != "" && m.ToCity != f.ToCity {
		return false
	}
	if f.From != nil && m.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && m.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

func containsInt64(list []int64, v int64) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
