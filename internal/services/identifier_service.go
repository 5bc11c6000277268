package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"parcel-backend/internal/apperr"
	"parcel-backend/internal/models"
	"parcel-backend/internal/repositories"
	"parcel-backend/internal/timeutil"
)

// Series floors. The first allocation in a scope returns the floor.
const (
	GRNFloor           = 1000
	ReceiptFloor       = 1
	LRFloor            = 1
	EWayBillFloor      = 1
	VoucherFloor       = 100
	UnloadVoucherFloor = 1000

	loadingVoucherMin = 10000
	loadingVoucherMax = 999999
)

// BookingIdentifiers are the numbers stamped on a new booking.
type BookingIdentifiers struct {
	GrnNo      int64
	LRNumber   string
	EWayBillNo string
	ReceiptNo  int64

	// drawn maps each series key to the value taken from it.
	drawn map[string]int64
}

// IdentifierGenerator allocates identifiers from the per-scope counters.
// Every allocation runs on the Querier it is given, so a booking's numbers
// are allocated inside the same transaction that inserts it.
type IdentifierGenerator struct {
	// RandomVoucher draws a loading voucher number. Replaced in tests.
	RandomVoucher func() int64
}

func NewIdentifierGenerator() *IdentifierGenerator {
	return &IdentifierGenerator{RandomVoucher: randomLoadingVoucher}
}

func randomLoadingVoucher() int64 {
	return loadingVoucherMin + rand.Int63n(loadingVoucherMax-loadingVoucherMin+1)
}

// LocationInitials returns the upper-cased first letter of every word.
func LocationInitials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r := []rune(word)[0]
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// LRPrefix is companyCode, the origin city's initial and the pick-up
// branch's initials, e.g. "SK" + "S" + "RR" for Surat / "Ring Road".
func LRPrefix(companyCode, originCity, pickUpBranchName string) string {
	initial := ""
	if fields := strings.Fields(originCity); len(fields) > 0 {
		initial = string(unicode.ToUpper([]rune(fields[0])[0]))
	}
	return strings.ToUpper(companyCode) + initial + LocationInitials(pickUpBranchName)
}

func FormatLRNumber(prefix string, seq, grnNo int64) string {
	return fmt.Sprintf("%s/%04d/%04d", prefix, seq, grnNo)
}

func FormatEWayBillNo(seq int64, day string) string {
	return fmt.Sprintf("EWB%02d%s", seq, day)
}

func lrKey(prefix string) string {
	return "lr:" + prefix
}

func eWayKey(day string) string {
	return "eway:" + day
}

func voucherKey(kind models.VoucherKind, companyID int64) string {
	return fmt.Sprintf("voucher:%s:%d", kind, companyID)
}

func unloadKey(companyID int64) string {
	return fmt.Sprintf("unload:%d", companyID)
}

// next allocates one value and types any failure as StorageUnavailable.
func next(ctx context.Context, q repositories.Querier, key string, floor int64) (int64, error) {
	v, err := q.NextSequence(ctx, key, floor)
	if err != nil {
		if errors.Is(err, apperr.ErrStorageUnavailable) {
			return 0, err
		}
		return 0, apperr.Wrap(apperr.KindStorageUnavailable, "allocate "+key, err)
	}
	return v, nil
}

// AllocateBooking draws the GRN, LR number, e-way bill and receipt numbers
// for a booking created at `at`.
func (g *IdentifierGenerator) AllocateBooking(ctx context.Context, q repositories.Querier, companyCode, originCity, pickUpBranchName string, at time.Time) (BookingIdentifiers, error) {
	var ids BookingIdentifiers

	grn, err := next(ctx, q, "grn", GRNFloor)
	if err != nil {
		return ids, err
	}

	prefix := LRPrefix(companyCode, originCity, pickUpBranchName)
	lrSeq, err := next(ctx, q, lrKey(prefix), LRFloor)
	if err != nil {
		return ids, err
	}

	day := timeutil.DayStamp(at)
	ewbSeq, err := next(ctx, q, eWayKey(day), EWayBillFloor)
	if err != nil {
		return ids, err
	}

	receipt, err := next(ctx, q, "receipt", ReceiptFloor)
	if err != nil {
		return ids, err
	}

	return BookingIdentifiers{
		GrnNo:      grn,
		LRNumber:   FormatLRNumber(prefix, lrSeq, grn),
		EWayBillNo: FormatEWayBillNo(ewbSeq, day),
		ReceiptNo:  receipt,
		drawn: map[string]int64{
			"grn":         grn,
			lrKey(prefix): lrSeq,
			eWayKey(day):  ewbSeq,
			"receipt":     receipt,
		},
	}, nil
}

// SkipBooking moves every series past the values in ids. Call it on q outside
// the transaction that drew them: after a DuplicateIdentifier that transaction
// rolls back, and its counter updates with it, so a retry would draw the same
// conflicting values again.
func (g *IdentifierGenerator) SkipBooking(ctx context.Context, q repositories.Querier, ids BookingIdentifiers) error {
	for key, v := range ids.drawn {
		if err := q.AdvanceSequence(ctx, key, v); err != nil {
			if errors.Is(err, apperr.ErrStorageUnavailable) {
				return err
			}
			return apperr.Wrap(apperr.KindStorageUnavailable, "advance "+key, err)
		}
	}
	return nil
}

// NextVoucherNo allocates a credit or collection voucher number for a company.
func (g *IdentifierGenerator) NextVoucherNo(ctx context.Context, q repositories.Querier, kind models.VoucherKind, companyID int64) (int64, error) {
	return next(ctx, q, voucherKey(kind, companyID), VoucherFloor)
}

// ManifestVoucherNo returns the voucher number for a new manifest. Loading
// vouchers are random and rely on the unique index; unloading vouchers come
// from the company's series.
func (g *IdentifierGenerator) ManifestVoucherNo(ctx context.Context, q repositories.Querier, direction models.Direction, companyID int64) (int64, error) {
	if direction == models.DirectionUnloading {
		return next(ctx, q, unloadKey(companyID), UnloadVoucherFloor)
	}
	return g.RandomVoucher(), nil
}
