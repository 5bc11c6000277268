package services

import (
	"context"
	"errors"
	"strings"

	"parcel-backend/internal/apperr"
	"parcel-backend/internal/cache"
	"parcel-backend/internal/metrics"
	"parcel-backend/internal/models"
	"parcel-backend/internal/repositories"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const defaultCreateAttempts = 3

type BookingService struct {
	Store     repositories.Store
	IDs       *IdentifierGenerator
	Lifecycle *LifecycleEngine

	// MaxCreateAttempts bounds identifier generation plus insert retries
	// after a DuplicateIdentifier. 1 surfaces the first conflict.
	MaxCreateAttempts int
}

func NewBookingService(store repositories.Store, ids *IdentifierGenerator, lifecycle *LifecycleEngine, maxAttempts int) *BookingService {
	if maxAttempts < 1 {
		maxAttempts = defaultCreateAttempts
	}
	return &BookingService{
		Store:             store,
		IDs:               ids,
		Lifecycle:         lifecycle,
		MaxCreateAttempts: maxAttempts,
	}
}

func nonNegative(name string, d decimal.Decimal) error {
	if d.IsNegative() {
		return apperr.Validation("%s cannot be negative", name)
	}
	return nil
}

func validateCreate(req *models.CreateBookingRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	for name, d := range map[string]decimal.Decimal{
		"hamaliCharge":       req.HamaliCharge,
		"doorDeliveryCharge": req.DoorDeliveryCharge,
		"otherCharge":        req.OtherCharge,
	} {
		if err := nonNegative(name, d); err != nil {
			return err
		}
	}
	for i, p := range req.Packages {
		if p.Weight.IsNegative() || p.UnitPrice.IsNegative() {
			return apperr.Validation("packages[%d]: weight and unitPrice cannot be negative", i)
		}
	}
	return nil
}

// CreateBooking validates the request, allocates identifiers and inserts the
// booking with its sender record in one transaction. A DuplicateIdentifier
// from the insert moves the counters past the conflicting values and retries
// the whole unit with fresh identifiers.
func (s *BookingService) CreateBooking(ctx context.Context, actor models.Actor, req *models.CreateBookingRequest) (*models.Booking, error) {
	scope, err := actor.Scope()
	if err != nil {
		return nil, err
	}
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	now := s.Lifecycle.Now()
	draft := &models.Booking{
		CompanyID:          actor.CompanyID,
		FromCity:           strings.TrimSpace(req.FromCity),
		ToCity:             strings.TrimSpace(req.ToCity),
		PickUpBranch:       req.PickUpBranch,
		PickUpBranchName:   strings.TrimSpace(req.PickUpBranchName),
		DropBranch:         req.DropBranch,
		DropBranchName:     req.DropBranchName,
		DispatchType:       req.DispatchType,
		BookingType:        req.BookingType,
		Packages:           req.Packages,
		HamaliCharge:       req.HamaliCharge,
		DoorDeliveryCharge: req.DoorDeliveryCharge,
		OtherCharge:        req.OtherCharge,
		SenderName:         req.SenderName,
		SenderPhone:        req.SenderPhone,
		SenderGST:          req.SenderGST,
		SenderAddress:      req.SenderAddress,
		ReceiverName:       req.ReceiverName,
		ReceiverPhone:      req.ReceiverPhone,
		ReceiverGST:        req.ReceiverGST,
		ReceiverAddress:    req.ReceiverAddress,
		BookingStatus:      models.StatusBooked,
		BookingDate:        now,
		BookedBy:           actor.Name,
		BookedByID:         actor.UserID,
	}
	draft.ComputeTotals()

	if !scope.Contains(draft) {
		return nil, apperr.Forbidden("cannot book outside your branch")
	}

	var booking *models.Booking
	for attempt := 1; attempt <= s.MaxCreateAttempts; attempt++ {
		b := *draft
		var drawn BookingIdentifiers
		err = s.Store.ExecTx(ctx, func(q repositories.Querier) error {
			ids, err := s.IDs.AllocateBooking(ctx, q, actor.CompanyCode, b.FromCity, b.PickUpBranchName, now)
			if err != nil {
				return err
			}
			drawn = ids
			b.GrnNo = ids.GrnNo
			b.LRNumber = ids.LRNumber
			b.EWayBillNo = ids.EWayBillNo
			b.ReceiptNo = ids.ReceiptNo

			if err := q.InsertBooking(ctx, &b); err != nil {
				return err
			}
			return q.UpsertParty(ctx, &models.Party{
				CompanyID: b.CompanyID,
				Name:      b.SenderName,
				Phone:     b.SenderPhone,
				GST:       b.SenderGST,
				Address:   b.SenderAddress,
			})
		})
		if err == nil {
			booking = &b
			break
		}
		if !errors.Is(err, apperr.ErrDuplicateIdentifier) {
			return nil, err
		}
		metrics.IdentifierConflicts.WithLabelValues("booking").Inc()
		log.Printf("[Booking] Identifier conflict on attempt %d/%d: %v", attempt, s.MaxCreateAttempts, err)
		if attempt < s.MaxCreateAttempts {
			if skipErr := s.IDs.SkipBooking(ctx, s.Store, drawn); skipErr != nil {
				return nil, skipErr
			}
		}
	}
	if booking == nil {
		return nil, err
	}

	metrics.BookingsCreated.Inc()
	cache.InvalidateReportCaches(ctx, booking.CompanyID)
	log.WithFields(log.Fields{
		"company_id": booking.CompanyID,
		"grn_no":     booking.GrnNo,
		"lr_number":  booking.LRNumber,
		"by":         actor.Name,
	}).Info("[Booking] created")
	return booking, nil
}

// GetBooking returns a booking that starts or ends inside the caller's scope.
// Other bookings are reported as not found.
func (s *BookingService) GetBooking(ctx context.Context, actor models.Actor, id int64) (*models.Booking, error) {
	scope, err := actor.Scope()
	if err != nil {
		return nil, err
	}
	b, err := s.Store.GetBooking(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if !scope.Reaches(b) {
		return nil, apperr.Newf(apperr.KindNotFound, "booking %d not found", id)
	}
	return b, nil
}

// GetByGRN looks a booking up by GRN within the caller's scope.
func (s *BookingService) GetByGRN(ctx context.Context, actor models.Actor, grnNo int64) (*models.Booking, error) {
	scope, err := actor.Scope()
	if err != nil {
		return nil, err
	}
	b, err := s.Store.GetBookingByGRN(ctx, actor.CompanyID, grnNo)
	if err != nil {
		return nil, err
	}
	if !scope.Reaches(b) {
		return nil, apperr.Newf(apperr.KindNotFound, "GRN %d not found", grnNo)
	}
	return b, nil
}

// ListBookings applies the caller's scope on top of f.
func (s *BookingService) ListBookings(ctx context.Context, actor models.Actor, f models.BookingFilter) ([]*models.Booking, error) {
	scope, err := actor.Scope()
	if err != nil {
		return nil, err
	}
	f.ApplyScope(scope)
	return s.Store.ListBookings(ctx, f)
}

// CancelBooking moves a booked parcel to cancelled and records the refund.
// Only the booking side may cancel.
func (s *BookingService) CancelBooking(ctx context.Context, actor models.Actor, id int64, req *models.CancelBookingRequest) (*models.Booking, error) {
	if err := nonNegative("refundCharge", req.RefundCharge); err != nil {
		return nil, err
	}
	if err := nonNegative("refundAmount", req.RefundAmount); err != nil {
		return nil, err
	}

	b, err := s.GetBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if scope, _ := actor.Scope(); !scope.Contains(b) {
		return nil, apperr.Forbidden("only the booking branch can cancel")
	}
	if req.RefundCharge.Add(req.RefundAmount).GreaterThan(b.GrandTotal) {
		return nil, apperr.Validation("refundCharge + refundAmount cannot exceed grandTotal %s", b.GrandTotal.StringFixed(2))
	}
	if !models.CanTransition(b.BookingStatus, models.StatusCancelled) {
		return nil, apperr.Newf(apperr.KindInvalidTransition, "GRN %d is %s; only booked parcels can be cancelled", b.GrnNo, b.BookingStatus)
	}

	return s.single(ctx, actor, b, models.Transition{
		To:           models.StatusCancelled,
		At:           s.Lifecycle.Now(),
		By:           actor.Name,
		Branch:       actor.BranchID,
		City:         actor.BranchCity,
		RefundCharge: req.RefundCharge,
		RefundAmount: req.RefundAmount,
		Remarks:      req.Remarks,
	})
}

// DeliverBooking records delivery to the receiver. The destination branch
// may deliver bookings it did not book.
func (s *BookingService) DeliverBooking(ctx context.Context, actor models.Actor, id int64, req *models.DeliverBookingRequest) (*models.Booking, error) {
	b, err := s.GetBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(b.BookingStatus, models.StatusDelivered) {
		return nil, apperr.Newf(apperr.KindInvalidTransition, "GRN %d is %s and cannot be delivered", b.GrnNo, b.BookingStatus)
	}

	branch, city := req.Branch, req.City
	if branch == "" {
		branch = actor.BranchID
	}
	if city == "" {
		city = actor.BranchCity
	}
	deliveredTo := req.DeliveredTo
	if deliveredTo == "" {
		deliveredTo = b.ReceiverName
	}

	return s.single(ctx, actor, b, models.Transition{
		To:          models.StatusDelivered,
		At:          s.Lifecycle.Now(),
		By:          actor.Name,
		Branch:      branch,
		City:        city,
		DeliveredTo: deliveredTo,
		Remarks:     req.Remarks,
	})
}

// MarkMissing flags a loaded or unloaded parcel as missing. Admin only.
func (s *BookingService) MarkMissing(ctx context.Context, actor models.Actor, id int64) (*models.Booking, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("only an admin can mark a parcel missing")
	}
	b, err := s.GetBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(b.BookingStatus, models.StatusMissing) {
		return nil, apperr.Newf(apperr.KindInvalidTransition, "GRN %d is %s and cannot be marked missing", b.GrnNo, b.BookingStatus)
	}
	return s.single(ctx, actor, b, models.Transition{
		To:     models.StatusMissing,
		At:     s.Lifecycle.Now(),
		By:     actor.Name,
		Branch: actor.BranchID,
		City:   actor.BranchCity,
	})
}

func (s *BookingService) single(ctx context.Context, actor models.Actor, b *models.Booking, t models.Transition) (*models.Booking, error) {
	updated, err := s.Lifecycle.Transition(ctx, actor.CompanyID, []int64{b.GrnNo}, t)
	if err != nil {
		return nil, err
	}
	if len(updated) != 1 {
		return nil, apperr.Newf(apperr.KindNotFound, "GRN %d not found", b.GrnNo)
	}
	return updated[0], nil
}

// DeleteBooking removes a booking. Admin only.
func (s *BookingService) DeleteBooking(ctx context.Context, actor models.Actor, id int64) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("only an admin can delete a booking")
	}
	if _, err := actor.Scope(); err != nil {
		return err
	}
	if err := s.Store.DeleteBooking(ctx, actor.CompanyID, id); err != nil {
		return err
	}
	cache.InvalidateReportCaches(ctx, actor.CompanyID)
	log.Printf("[Booking] Deleted booking %d of company %d by %s", id, actor.CompanyID, actor.Name)
	return nil
}
