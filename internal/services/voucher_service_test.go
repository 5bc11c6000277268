package services

import (
	"context"
	"errors"
	"testing"

	"parcel-backend/internal/apperr"
	"parcel-backend/internal/models"

	"github.com/shopspring/decimal"
)

func TestCreditVoucherFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c1 := f.book(t, clerk, models.BookingTypeCredit)
	c2 := f.book(t, clerk, models.BookingTypeCredit)
	paid := f.book(t, clerk, models.BookingTypePaid)
	cancelled := f.book(t, clerk, models.BookingTypeCredit)
	if _, err := f.bookings.CancelBooking(ctx, clerk, cancelled.ID, &models.CancelBookingRequest{}); err != nil {
		t.Fatal(err)
	}

	cands, err := f.vouchers.GenerateCreditCandidates(ctx, clerk, &models.CreditVoucherGenerateRequest{DateFrom: "2024-03-01", DateTo: "2024-03-05"})
	if err != nil {
		t.Fatalf("GenerateCreditCandidates: %v", err)
	}
	if len(cands.Bookings) != 2 || cands.Bookings[0].GrnNo != c1.GrnNo || cands.Bookings[1].GrnNo != c2.GrnNo {
		t.Fatalf("candidates = %+v", cands.Bookings)
	}
	if cands.TotalQuantity != 6 || !cands.TotalAmount.Equal(decimal.NewFromInt(300)) {
		t.Errorf("totals = %d / %s", cands.TotalQuantity, cands.TotalAmount)
	}

	v, err := f.vouchers.CreateVoucher(ctx, clerk, models.VoucherCredit, &models.CreateVoucherRequest{GrnNos: []int64{c1.GrnNo, c2.GrnNo}, Consignor: "Patel Textiles"})
	if err != nil {
		t.Fatalf("CreateVoucher: %v", err)
	}
	if v.VoucherNo != VoucherFloor {
		t.Errorf("voucher no = %d, want %d", v.VoucherNo, VoucherFloor)
	}
	for _, b := range v.Bookings {
		if b.CreditVoucherNo != v.VoucherNo {
			t.Errorf("GRN %d credit marker = %d", b.GrnNo, b.CreditVoucherNo)
		}
	}

	cands, err = f.vouchers.GenerateCreditCandidates(ctx, clerk, &models.CreditVoucherGenerateRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cands.Bookings) != 0 {
		t.Errorf("settled bookings still offered: %d", len(cands.Bookings))
	}

	tests := []struct {
		name    string
		grnNos  []int64
		wantErr error
	}{
		{"already settled", []int64{c1.GrnNo}, apperr.ErrInvalidTransition},
		{"not a credit booking", []int64{paid.GrnNo}, apperr.ErrInvalidTransition},
		{"cancelled", []int64{cancelled.GrnNo}, apperr.ErrInvalidTransition},
		{"unknown", []int64{424242}, apperr.ErrUnknownBooking},
		{"repeated", []int64{paid.GrnNo, paid.GrnNo}, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.vouchers.CreateVoucher(ctx, clerk, models.VoucherCredit, &models.CreateVoucherRequest{GrnNos: tt.grnNos})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	got, err := f.vouchers.GetVoucher(ctx, admin, models.VoucherCredit, v.VoucherNo)
	if err != nil {
		t.Fatalf("GetVoucher: %v", err)
	}
	if got.Consignor != "Patel Textiles" || len(got.Bookings) != 2 || !got.TotalAmount.Equal(decimal.NewFromInt(300)) {
		t.Errorf("voucher = %+v", got)
	}
}

func TestCollectionVoucher(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	paid := f.book(t, clerk, models.BookingTypePaid)
	toPay := f.book(t, clerk, models.BookingTypeToPay)

	v, err := f.vouchers.CreateVoucher(ctx, clerk, models.VoucherCollection, &models.CreateVoucherRequest{GrnNos: []int64{paid.GrnNo, toPay.GrnNo}})
	if err != nil {
		t.Fatalf("CreateVoucher: %v", err)
	}
	if v.VoucherNo != VoucherFloor || v.TotalQuantity != 6 {
		t.Errorf("voucher = %d qty %d", v.VoucherNo, v.TotalQuantity)
	}

	// A failed attempt leaves neither the marker nor the series advanced.
	extra := f.book(t, clerk, models.BookingTypePaid)
	_, err = f.vouchers.CreateVoucher(ctx, clerk, models.VoucherCollection, &models.CreateVoucherRequest{GrnNos: []int64{extra.GrnNo, paid.GrnNo}})
	if !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("err = %v, want invalid transition", err)
	}
	b, _ := f.store.GetBookingByGRN(ctx, clerk.CompanyID, extra.GrnNo)
	if b.CollectionVoucherNo != 0 {
		t.Errorf("marker written on failed voucher: %d", b.CollectionVoucherNo)
	}
	next, err := f.vouchers.CreateVoucher(ctx, clerk, models.VoucherCollection, &models.CreateVoucherRequest{GrnNos: []int64{extra.GrnNo}})
	if err != nil {
		t.Fatal(err)
	}
	if next.VoucherNo != VoucherFloor+1 {
		t.Errorf("next voucher = %d, want %d", next.VoucherNo, VoucherFloor+1)
	}
}

func TestVoucherScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.book(t, clerk, models.BookingTypeCredit)

	_, err := f.vouchers.CreateVoucher(ctx, rajkotClerk, models.VoucherCredit, &models.CreateVoucherRequest{GrnNos: []int64{c.GrnNo}})
	if !errors.Is(err, apperr.ErrUnknownBooking) {
		t.Fatalf("out-of-scope GRN: err = %v, want unknown booking", err)
	}
	cands, err := f.vouchers.GenerateCreditCandidates(ctx, rajkotClerk, &models.CreditVoucherGenerateRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cands.Bookings) != 0 {
		t.Errorf("other branch sees %d candidates", len(cands.Bookings))
	}
	if _, err := f.vouchers.GenerateCreditCandidates(ctx, clerk, &models.CreditVoucherGenerateRequest{DateFrom: "05-03-2024"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad date: err = %v", err)
	}
	v, err := f.vouchers.CreateVoucher(ctx, clerk, models.VoucherCredit, &models.CreateVoucherRequest{GrnNos: []int64{c.GrnNo}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.vouchers.GetVoucher(ctx, vapiClerk, models.VoucherCredit, v.VoucherNo); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unrelated branch GetVoucher: err = %v, want not found", err)
	}
	got, err := f.vouchers.GetVoucher(ctx, rajkotClerk, models.VoucherCredit, v.VoucherNo)
	if err != nil {
		t.Fatalf("destination GetVoucher: %v", err)
	}
	if len(got.Bookings) != 1 || got.Bookings[0].GrnNo != c.GrnNo {
		t.Errorf("bookings = %+v", got.Bookings)
	}
}
