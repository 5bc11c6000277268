package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"parcel-backend/internal/apperr"
	"parcel-backend/internal/models"
	"parcel-backend/internal/repositories"
)

type fakeArchive struct {
	mu   sync.Mutex
	keys []string
}

func (a *fakeArchive) Put(_ context.Context, key, contentType string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if contentType != "application/pdf" || len(data) == 0 {
		return errors.New("unexpected upload")
	}
	a.keys = append(a.keys, key)
	return nil
}

func TestLoadingManifest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	archive := &fakeArchive{}
	f.manifests.SetArchive(archive)
	a := f.book(t, clerk, models.BookingTypePaid)
	b := f.book(t, clerk, models.BookingTypeToPay)

	m, err := f.manifests.CreateManifest(ctx, clerk, models.DirectionLoading, &models.CreateManifestRequest{
		GrnNos:    []int64{b.GrnNo, a.GrnNo},
		VehicleNo: "GJ05AB1234",
		ToBranch:  "B2",
		ToCity:    "Rajkot",
	})
	if err != nil {
		t.Fatalf("CreateManifest: %v", err)
	}
	if m.VoucherNo != 10001 {
		t.Errorf("voucher = %d, want 10001", m.VoucherNo)
	}
	if len(m.Bookings) != 2 || m.Bookings[0].GrnNo != b.GrnNo || m.Bookings[1].GrnNo != a.GrnNo {
		t.Fatalf("bookings not in manifest order: %+v", m.Bookings)
	}
	if strings.Join(m.LRNumbers, ",") != b.LRNumber+","+a.LRNumber {
		t.Errorf("LR numbers = %v", m.LRNumbers)
	}

	for _, bk := range m.Bookings {
		if bk.BookingStatus != models.StatusLoaded {
			t.Errorf("GRN %d status = %v", bk.GrnNo, bk.BookingStatus)
		}
		if bk.LoadingVoucherNo != m.VoucherNo {
			t.Errorf("GRN %d loading voucher = %d", bk.GrnNo, bk.LoadingVoucherNo)
		}
		if bk.Loading.At == nil || !bk.Loading.At.Equal(fixedNow) || bk.Loading.Branch != "B1" || bk.Loading.Employee != "Ravi" {
			t.Errorf("GRN %d loading stamp = %+v", bk.GrnNo, bk.Loading)
		}
		if lt := bk.LastTransaction; lt.Branch != bk.Loading.Branch || lt.Employee != bk.Loading.Employee || lt.At == nil || !lt.At.Equal(*bk.Loading.At) {
			t.Errorf("GRN %d last transaction = %+v", bk.GrnNo, bk.LastTransaction)
		}
	}

	evts := f.events.all()
	if len(evts) != 1 || evts[0].Status != models.StatusLoaded || len(evts[0].Items) != 2 || evts[0].VoucherNo != m.VoucherNo {
		t.Errorf("events = %+v", evts)
	}
	if len(archive.keys) != 1 || archive.keys[0] != "manifests/7/loading/2024/03/10001.pdf" {
		t.Errorf("archived = %v", archive.keys)
	}
}

func TestLoadingUnknownGRNChangesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.book(t, clerk, models.BookingTypePaid)

	_, err := f.manifests.CreateManifest(ctx, clerk, models.DirectionLoading, &models.CreateManifestRequest{GrnNos: []int64{a.GrnNo, 9999}})
	if !errors.Is(err, apperr.ErrUnknownBooking) {
		t.Fatalf("err = %v, want unknown booking", err)
	}
	if !strings.Contains(err.Error(), "9999") {
		t.Errorf("error does not name the GRN: %v", err)
	}
	if got := f.status(t, a.GrnNo); got != models.StatusBooked {
		t.Errorf("status = %v, want booked", got)
	}
	list, _ := f.store.ListManifests(ctx, models.ManifestFilter{CompanyID: clerk.CompanyID})
	if len(list) != 0 {
		t.Errorf("%d manifests persisted", len(list))
	}
	if len(f.events.all()) != 0 {
		t.Error("event published for a failed manifest")
	}
}

func TestManifestRequestValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.book(t, clerk, models.BookingTypePaid)
	b := f.book(t, clerk, models.BookingTypePaid)

	tests := []struct {
		name      string
		direction models.Direction
		req       *models.CreateManifestRequest
	}{
		{"empty", models.DirectionLoading, &models.CreateManifestRequest{}},
		{"repeated GRN", models.DirectionLoading, &models.CreateManifestRequest{GrnNos: []int64{a.GrnNo, a.GrnNo}}},
		{"foreign LR", models.DirectionLoading, &models.CreateManifestRequest{GrnNos: []int64{a.GrnNo}, LRNumbers: []string{b.LRNumber}}},
		{"bad direction", "sideways", &models.CreateManifestRequest{GrnNos: []int64{a.GrnNo}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.manifests.CreateManifest(ctx, clerk, tt.direction, tt.req)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("err = %v, want validation", err)
			}
		})
	}
	if got := f.status(t, a.GrnNo); got != models.StatusBooked {
		t.Errorf("status = %v, want booked", got)
	}
}

func TestUnloadingManifest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.book(t, clerk, models.BookingTypePaid)
	b := f.book(t, clerk, models.BookingTypePaid)

	// Unloading a booking that was never loaded fails as a whole.
	_, err := f.manifests.CreateManifest(ctx, rajkotClerk, models.DirectionUnloading, &models.CreateManifestRequest{GrnNos: []int64{a.GrnNo}})
	if !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("unload booked parcel: err = %v", err)
	}

	if _, err := f.manifests.CreateManifest(ctx, clerk, models.DirectionLoading, &models.CreateManifestRequest{GrnNos: []int64{a.GrnNo}}); err != nil {
		t.Fatal(err)
	}
	_, err = f.manifests.CreateManifest(ctx, rajkotClerk, models.DirectionUnloading, &models.CreateManifestRequest{GrnNos: []int64{a.GrnNo, b.GrnNo}})
	if !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("partially loaded batch: err = %v", err)
	}
	if got := f.status(t, a.GrnNo); got != models.StatusLoaded {
		t.Errorf("GRN %d rolled forward on failure: %v", a.GrnNo, got)
	}

	m, err := f.manifests.CreateManifest(ctx, rajkotClerk, models.DirectionUnloading, &models.CreateManifestRequest{GrnNos: []int64{a.GrnNo}})
	if err != nil {
		t.Fatalf("unload: %v", err)
	}
	if m.VoucherNo != UnloadVoucherFloor {
		t.Errorf("unloading voucher = %d, want %d", m.VoucherNo, UnloadVoucherFloor)
	}
	got := m.Bookings[0]
	if got.BookingStatus != models.StatusUnloaded || got.UnloadingVoucherNo != m.VoucherNo {
		t.Errorf("booking = status %v voucher %d", got.BookingStatus, got.UnloadingVoucherNo)
	}
	if got.Unloading.Branch != "B2" || got.Unloading.City != "Rajkot" {
		t.Errorf("unloading stamp = %+v", got.Unloading)
	}
	if got.Loading.Branch != "B1" {
		t.Errorf("loading stamp overwritten: %+v", got.Loading)
	}

	next, err := f.manifests.CreateManifest(ctx, rajkotClerk, models.DirectionUnloading, &models.CreateManifestRequest{GrnNos: []int64{a.GrnNo}})
	if err != nil {
		t.Fatalf("re-unload: %v", err)
	}
	if next.VoucherNo != UnloadVoucherFloor+1 {
		t.Errorf("second unloading voucher = %d", next.VoucherNo)
	}
}

func TestReloadOverwritesStamps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.book(t, clerk, models.BookingTypePaid)

	first, err := f.manifests.CreateManifest(ctx, clerk, models.DirectionLoading, &models.CreateManifestRequest{GrnNos: []int64{a.GrnNo}})
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.manifests.CreateManifest(ctx, admin, models.DirectionLoading, &models.CreateManifestRequest{GrnNos: []int64{a.GrnNo}})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if first.VoucherNo == second.VoucherNo {
		t.Fatalf("voucher reused: %d", second.VoucherNo)
	}
	b := second.Bookings[0]
	if b.LoadingVoucherNo != second.VoucherNo || b.Loading.Employee != "Asha" {
		t.Errorf("loading = voucher %d stamp %+v", b.LoadingVoucherNo, b.Loading)
	}
}

func TestLoadingVoucherCollisionRetries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.book(t, clerk, models.BookingTypePaid)
	draws := []int64{50000, 50000, 50001}
	f.ids.RandomVoucher = func() int64 {
		v := draws[0]
		draws = draws[1:]
		return v
	}

	first, err := f.manifests.CreateManifest(ctx, clerk, models.DirectionLoading, &models.CreateManifestRequest{GrnNos: []int64{a.GrnNo}})
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.manifests.CreateManifest(ctx, clerk, models.DirectionLoading, &models.CreateManifestRequest{GrnNos: []int64{a.GrnNo}})
	if err != nil {
		t.Fatalf("retry after collision: %v", err)
	}
	if first.VoucherNo != 50000 || second.VoucherNo != 50001 {
		t.Errorf("vouchers = %d, %d", first.VoucherNo, second.VoucherNo)
	}
}

// failingTransitionStore aborts every status update, as a dropped
// connection in the middle of a manifest would.
type failingTransitionStore struct {
	*repositories.MemoryStore
}

func (s failingTransitionStore) ExecTx(ctx context.Context, fn func(q repositories.Querier) error) error {
	return s.MemoryStore.ExecTx(ctx, func(q repositories.Querier) error {
		return fn(failingTransitionQuerier{q})
	})
}

type failingTransitionQuerier struct {
	repositories.Querier
}

func (failingTransitionQuerier) ApplyTransition(context.Context, int64, []int64, models.Transition) (int64, error) {
	return 0, errors.New("connection reset by peer")
}

func TestManifestIsAtomic(t *testing.T) {
	ctx := context.Background()
	mem := repositories.NewMemoryStore()
	seed := newFixtureWithStore(t, mem, mem)
	a := seed.book(t, clerk, models.BookingTypePaid)
	b := seed.book(t, clerk, models.BookingTypePaid)

	f := newFixtureWithStore(t, mem, failingTransitionStore{mem})
	_, err := f.manifests.CreateManifest(ctx, clerk, models.DirectionLoading, &models.CreateManifestRequest{GrnNos: []int64{a.GrnNo, b.GrnNo}})
	if !errors.Is(err, apperr.ErrTransitionFailed) {
		t.Fatalf("err = %v, want transition failed", err)
	}
	for _, grn := range []int64{a.GrnNo, b.GrnNo} {
		if got := f.status(t, grn); got != models.StatusBooked {
			t.Errorf("GRN %d status = %v, want booked", grn, got)
		}
	}
	list, _ := mem.ListManifests(ctx, models.ManifestFilter{CompanyID: clerk.CompanyID})
	if len(list) != 0 {
		t.Errorf("%d manifests persisted", len(list))
	}
}

func TestManifestReads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.book(t, clerk, models.BookingTypePaid)
	b := f.book(t, clerk, models.BookingTypePaid)

	m1, err := f.manifests.CreateManifest(ctx, clerk, models.DirectionLoading, &models.CreateManifestRequest{GrnNos: []int64{a.GrnNo}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.manifests.CreateManifest(ctx, clerk, models.DirectionLoading, &models.CreateManifestRequest{GrnNos: []int64{b.GrnNo}}); err != nil {
		t.Fatal(err)
	}

	// The destination branch reads manifests of parcels it did not book.
	got, err := f.manifests.GetByVoucher(ctx, rajkotClerk, models.DirectionLoading, m1.VoucherNo)
	if err != nil {
		t.Fatalf("GetByVoucher: %v", err)
	}
	if len(got.Bookings) != 1 || got.Bookings[0].GrnNo != a.GrnNo {
		t.Errorf("bookings = %+v", got.Bookings)
	}

	byGRN, err := f.manifests.ListManifests(ctx, rajkotClerk, models.ManifestFilter{Direction: models.DirectionLoading, GrnNo: b.GrnNo})
	if err != nil {
		t.Fatal(err)
	}
	if len(byGRN) != 1 || byGRN[0].Bookings[0].GrnNo != b.GrnNo {
		t.Errorf("by GRN = %+v", byGRN)
	}

	if _, err := f.manifests.GetByVoucher(ctx, vapiClerk, models.DirectionLoading, m1.VoucherNo); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unrelated branch GetByVoucher: err = %v, want not found", err)
	}
	hidden, err := f.manifests.ListManifests(ctx, vapiClerk, models.ManifestFilter{Direction: models.DirectionLoading, GrnNo: b.GrnNo})
	if err != nil {
		t.Fatal(err)
	}
	if len(hidden) != 0 {
		t.Errorf("unrelated branch listed %+v", hidden)
	}

	all, err := f.manifests.ListManifests(ctx, admin, models.ManifestFilter{Direction: models.DirectionLoading})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("listed %d manifests, want 2", len(all))
	}

	if _, err := f.manifests.GetByVoucher(ctx, admin, models.DirectionUnloading, m1.VoucherNo); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("wrong direction: err = %v", err)
	}

	pdf, err := f.manifests.SheetPDF(ctx, clerk, models.DirectionLoading, m1.VoucherNo)
	if err != nil {
		t.Fatalf("SheetPDF: %v", err)
	}
	if !strings.HasPrefix(string(pdf), "%PDF") {
		t.Error("sheet is not a PDF")
	}
}

func TestManifestAdminEdits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.book(t, clerk, models.BookingTypePaid)
	m, err := f.manifests.CreateManifest(ctx, clerk, models.DirectionLoading, &models.CreateManifestRequest{GrnNos: []int64{a.GrnNo}, VehicleNo: "GJ05AB1234"})
	if err != nil {
		t.Fatal(err)
	}

	vehicle := "GJ05XY9999"
	req := &models.UpdateManifestRequest{VehicleNo: &vehicle}
	if _, err := f.manifests.UpdateManifest(ctx, clerk, models.DirectionLoading, m.VoucherNo, req); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("employee update: err = %v", err)
	}
	updated, err := f.manifests.UpdateManifest(ctx, admin, models.DirectionLoading, m.VoucherNo, req)
	if err != nil {
		t.Fatalf("UpdateManifest: %v", err)
	}
	if updated.VehicleNo != vehicle {
		t.Errorf("vehicle = %s", updated.VehicleNo)
	}

	if err := f.manifests.DeleteManifest(ctx, clerk, models.DirectionLoading, m.VoucherNo); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("employee delete: err = %v", err)
	}
	if err := f.manifests.DeleteManifest(ctx, admin, models.DirectionLoading, m.VoucherNo); err != nil {
		t.Fatalf("DeleteManifest: %v", err)
	}
	if _, err := f.manifests.GetByVoucher(ctx, admin, models.DirectionLoading, m.VoucherNo); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("after delete: err = %v", err)
	}
	if got := f.status(t, a.GrnNo); got != models.StatusLoaded {
		t.Errorf("status after manifest delete = %v, want loaded", got)
	}
}

func TestMixedManifestHidesUnreachableBookings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	surat := f.book(t, clerk, models.BookingTypePaid)

	req := bookingRequest(models.BookingTypePaid)
	req.FromCity, req.ToCity = "Vapi", "Baroda"
	req.PickUpBranch, req.PickUpBranchName, req.DropBranch = "B3", "Station Road", "B4"
	vapi, err := f.bookings.CreateBooking(ctx, admin, req)
	if err != nil {
		t.Fatal(err)
	}

	m, err := f.manifests.CreateManifest(ctx, admin, models.DirectionLoading, &models.CreateManifestRequest{GrnNos: []int64{vapi.GrnNo, surat.GrnNo}})
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.manifests.GetByVoucher(ctx, rajkotClerk, models.DirectionLoading, m.VoucherNo)
	if err != nil {
		t.Fatalf("GetByVoucher: %v", err)
	}
	if len(got.Bookings) != 1 || got.Bookings[0].GrnNo != surat.GrnNo {
		t.Errorf("bookings = %+v", got.Bookings)
	}
	if len(got.GrnNos) != 1 || got.GrnNos[0] != surat.GrnNo || got.LRNumbers[0] != surat.LRNumber {
		t.Errorf("header = %v %v, want only the reachable GRN", got.GrnNos, got.LRNumbers)
	}

	full, err := f.manifests.GetByVoucher(ctx, admin, models.DirectionLoading, m.VoucherNo)
	if err != nil {
		t.Fatal(err)
	}
	if len(full.Bookings) != 2 || len(full.GrnNos) != 2 {
		t.Errorf("admin view = %+v", full)
	}
}
