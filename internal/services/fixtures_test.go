package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"parcel-backend/internal/events"
	"parcel-backend/internal/models"
	"parcel-backend/internal/repositories"
	"parcel-backend/internal/timeutil"

	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2024, 3, 5, 11, 30, 0, 0, timeutil.IST)

var (
	admin = models.Actor{UserID: 1, Name: "Asha", CompanyID: 7, CompanyCode: "SK", Role: models.RoleAdmin, BranchID: "B1", BranchCity: "Surat"}
	// clerk books at Surat / Ring Road.
	clerk = models.Actor{UserID: 2, Name: "Ravi", CompanyID: 7, CompanyCode: "SK", Role: models.RoleEmployee, BranchID: "B1", BranchCity: "Surat"}
	// rajkotClerk works the destination branch.
	rajkotClerk = models.Actor{UserID: 3, Name: "Mehul", CompanyID: 7, CompanyCode: "SK", Role: models.RoleEmployee, BranchID: "B2", BranchCity: "Rajkot"}
	suratHead   = models.Actor{UserID: 4, Name: "Kiran", CompanyID: 7, CompanyCode: "SK", Role: models.RoleSubadmin, BranchID: "B1", BranchCity: "Surat"}
	rajkotHead  = models.Actor{UserID: 5, Name: "Nilesh", CompanyID: 7, CompanyCode: "SK", Role: models.RoleSubadmin, BranchID: "B2", BranchCity: "Rajkot"}
	// vapiClerk neither books nor receives the fixture's parcels.
	vapiClerk = models.Actor{UserID: 6, Name: "Jay", CompanyID: 7, CompanyCode: "SK", Role: models.RoleEmployee, BranchID: "B3", BranchCity: "Vapi"}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(evt events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) all() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

type fixture struct {
	store     repositories.Store
	mem       *repositories.MemoryStore
	ids       *IdentifierGenerator
	lifecycle *LifecycleEngine
	events    *recordingPublisher
	bookings  *BookingService
	manifests *ManifestService
	vouchers  *VoucherService
	reports   *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := repositories.NewMemoryStore()
	return newFixtureWithStore(t, mem, mem)
}

func newFixtureWithStore(t *testing.T, mem *repositories.MemoryStore, store repositories.Store) *fixture {
	t.Helper()
	pub := &recordingPublisher{}
	ids := NewIdentifierGenerator()
	voucher := int64(10000)
	ids.RandomVoucher = func() int64 {
		voucher++
		return voucher
	}
	lc := NewLifecycleEngine(store, pub)
	lc.Now = func() time.Time { return fixedNow }

	return &fixture{
		store:     store,
		mem:       mem,
		ids:       ids,
		lifecycle: lc,
		events:    pub,
		bookings:  NewBookingService(store, ids, lc, 3),
		manifests: NewManifestService(store, ids, lc, NewPrintService("Shree Krishna Roadways"), 5),
		vouchers:  NewVoucherService(store, ids, lc),
		reports:   NewReportService(store, 0),
	}
}

func bookingRequest(bookingType models.BookingType) *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		FromCity:         "Surat",
		ToCity:           "Rajkot",
		PickUpBranch:     "B1",
		PickUpBranchName: "Ring Road",
		DropBranch:       "B2",
		DropBranchName:   "Gondal Road",
		BookingType:      bookingType,
		Packages: []models.Package{
			{Quantity: 2, PackageType: "Carton", Weight: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(50)},
			{Quantity: 1, PackageType: "Bag", Weight: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(40)},
		},
		HamaliCharge:  decimal.NewFromInt(10),
		SenderName:    "Patel Textiles",
		SenderPhone:   "9876543210",
		ReceiverName:  "Shah Traders",
		ReceiverPhone: "9123456780",
	}
}

func (f *fixture) book(t *testing.T, actor models.Actor, bookingType models.BookingType) *models.Booking {
	t.Helper()
	b, err := f.bookings.CreateBooking(context.Background(), actor, bookingRequest(bookingType))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	return b
}

func (f *fixture) status(t *testing.T, grnNo int64) models.BookingStatus {
	t.Helper()
	b, err := f.store.GetBookingByGRN(context.Background(), admin.CompanyID, grnNo)
	if err != nil {
		t.Fatalf("GetBookingByGRN(%d): %v", grnNo, err)
	}
	return b.BookingStatus
}
