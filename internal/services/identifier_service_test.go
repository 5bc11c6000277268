package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"parcel-backend/internal/apperr"
	"parcel-backend/internal/models"
	"parcel-backend/internal/repositories"
	"parcel-backend/internal/timeutil"
)

func TestLRPrefix(t *testing.T) {
	tests := []struct {
		code, city, branch string
		want               string
	}{
		{"SK", "Surat", "Ring Road", "SKSRR"},
		{"sk", "surat", "ring road  market", "SKSRRM"},
		{"ABC", "Ahmedabad", "Naroda", "ABCAN"},
		{"X", "", "", "X"},
	}
	for _, tt := range tests {
		if got := LRPrefix(tt.code, tt.city, tt.branch); got != tt.want {
			t.Errorf("LRPrefix(%q, %q, %q) = %q, want %q", tt.code, tt.city, tt.branch, got, tt.want)
		}
	}
}

func TestFormatting(t *testing.T) {
	if got := FormatLRNumber("SKSRR", 7, 1000); got != "SKSRR/0007/1000" {
		t.Errorf("FormatLRNumber = %s", got)
	}
	if got := FormatLRNumber("SKSRR", 12345, 123456); got != "SKSRR/12345/123456" {
		t.Errorf("FormatLRNumber wide = %s", got)
	}
	if got := FormatEWayBillNo(3, "05032024"); got != "EWB0305032024" {
		t.Errorf("FormatEWayBillNo = %s", got)
	}
}

func TestAllocateBookingSequences(t *testing.T) {
	store := repositories.NewMemoryStore()
	g := NewIdentifierGenerator()
	ctx := context.Background()
	day1 := time.Date(2024, 3, 5, 10, 0, 0, 0, timeutil.IST)
	day2 := day1.AddDate(0, 0, 1)
	nextMonth := day1.AddDate(0, 1, 0)

	steps := []struct {
		at   time.Time
		want BookingIdentifiers
	}{
		{day1, BookingIdentifiers{GrnNo: 1000, LRNumber: "SKSRR/0001/1000", EWayBillNo: "EWB0105032024", ReceiptNo: 1}},
		{day1, BookingIdentifiers{GrnNo: 1001, LRNumber: "SKSRR/0002/1001", EWayBillNo: "EWB0205032024", ReceiptNo: 2}},
		{day2, BookingIdentifiers{GrnNo: 1002, LRNumber: "SKSRR/0003/1002", EWayBillNo: "EWB0106032024", ReceiptNo: 3}},
		// LR numbering does not restart with the month.
		{nextMonth, BookingIdentifiers{GrnNo: 1003, LRNumber: "SKSRR/0004/1003", EWayBillNo: "EWB0105042024", ReceiptNo: 4}},
	}
	for i, step := range steps {
		got, err := g.AllocateBooking(ctx, store, "SK", "Surat", "Ring Road", step.at)
		if err != nil {
			t.Fatal(err)
		}
		if got.GrnNo != step.want.GrnNo || got.LRNumber != step.want.LRNumber ||
			got.EWayBillNo != step.want.EWayBillNo || got.ReceiptNo != step.want.ReceiptNo {
			t.Errorf("step %d = %+v, want %+v", i, got, step.want)
		}
	}

	other, err := g.AllocateBooking(ctx, store, "SK", "Rajkot", "Main", day1)
	if err != nil {
		t.Fatal(err)
	}
	if other.LRNumber != "SKRM/0001/1004" {
		t.Errorf("new prefix LR = %s", other.LRNumber)
	}
}

func TestVoucherSeries(t *testing.T) {
	store := repositories.NewMemoryStore()
	g := NewIdentifierGenerator()
	ctx := context.Background()

	for i, want := range []int64{100, 101} {
		got, err := g.NextVoucherNo(ctx, store, models.VoucherCredit, 1)
		if err != nil || got != want {
			t.Errorf("credit %d = %d, %v", i, got, err)
		}
	}
	if got, _ := g.NextVoucherNo(ctx, store, models.VoucherCollection, 1); got != 100 {
		t.Errorf("collection series shares credit counter: %d", got)
	}
	if got, _ := g.NextVoucherNo(ctx, store, models.VoucherCredit, 2); got != 100 {
		t.Errorf("company 2 shares company 1 counter: %d", got)
	}

	if got, _ := g.ManifestVoucherNo(ctx, store, models.DirectionUnloading, 1); got != 1000 {
		t.Errorf("first unload voucher = %d", got)
	}
	for i := 0; i < 200; i++ {
		v, _ := g.ManifestVoucherNo(ctx, store, models.DirectionLoading, 1)
		if v < loadingVoucherMin || v > loadingVoucherMax {
			t.Fatalf("loading voucher %d out of range", v)
		}
	}
}

type failingSequencer struct {
	repositories.Querier
	err error
}

func (f failingSequencer) NextSequence(ctx context.Context, key string, floor int64) (int64, error) {
	return 0, f.err
}

func TestAllocateBookingStorageFailure(t *testing.T) {
	g := NewIdentifierGenerator()
	q := failingSequencer{Querier: repositories.NewMemoryStore(), err: errors.New("connection refused")}

	_, err := g.AllocateBooking(context.Background(), q, "SK", "Surat", "Ring Road", time.Now())
	if !errors.Is(err, apperr.ErrStorageUnavailable) {
		t.Errorf("err = %v, want StorageUnavailable", err)
	}
}
