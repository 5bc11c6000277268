package services

import (
	"context"
	"time"

	"parcel-backend/internal/apperr"
	"parcel-backend/internal/cache"
	"parcel-backend/internal/metrics"
	"parcel-backend/internal/models"
	"parcel-backend/internal/repositories"
	"parcel-backend/internal/timeutil"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// activeStatuses is every status except cancelled.
var activeStatuses = []models.BookingStatus{
	models.StatusBooked, models.StatusLoaded, models.StatusUnloaded, models.StatusMissing, models.StatusDelivered,
}

type VoucherService struct {
	Store     repositories.Store
	IDs       *IdentifierGenerator
	Lifecycle *LifecycleEngine
}

func NewVoucherService(store repositories.Store, ids *IdentifierGenerator, lifecycle *LifecycleEngine) *VoucherService {
	return &VoucherService{Store: store, IDs: ids, Lifecycle: lifecycle}
}

// parseWindow turns optional YYYY-MM-DD bounds into an inclusive IST range.
func parseWindow(fromDate, toDate string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if fromDate != "" {
		t, err := timeutil.ParseDate(fromDate)
		if err != nil {
			return nil, nil, apperr.Validation("invalid fromDate %q, expected YYYY-MM-DD", fromDate)
		}
		from = &t
	}
	if toDate != "" {
		t, err := timeutil.ParseDate(toDate)
		if err != nil {
			return nil, nil, apperr.Validation("invalid toDate %q, expected YYYY-MM-DD", toDate)
		}
		end := timeutil.EndOfDay(t)
		to = &end
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, apperr.Validation("toDate is before fromDate")
	}
	return from, to, nil
}

func totals(bookings []*models.Booking) (int, decimal.Decimal) {
	qty := 0
	amount := decimal.Zero
	for _, b := range bookings {
		qty += b.TotalQuantity
		amount = amount.Add(b.GrandTotal)
	}
	return qty, amount
}

// GenerateCreditCandidates lists the caller's credit bookings that no credit
// voucher has claimed yet.
func (s *VoucherService) GenerateCreditCandidates(ctx context.Context, actor models.Actor, req *models.CreditVoucherGenerateRequest) (*models.CreditVoucherCandidates, error) {
	scope, err := actor.Scope()
	if err != nil {
		return nil, err
	}
	from, to, err := parseWindow(req.DateFrom, req.DateTo)
	if err != nil {
		return nil, err
	}

	f := models.BookingFilter{
		BookingType:          models.BookingTypeCredit,
		Statuses:             activeStatuses,
		SenderName:           req.SenderName,
		FromCity:             req.FromCity,
		ToCity:               req.ToCity,
		From:                 from,
		To:                   to,
		WithoutCreditVoucher: true,
	}
	f.ApplyScope(scope)

	bookings, err := s.Store.ListBookings(ctx, f)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	qty, amount := totals(bookings)
	return &models.CreditVoucherCandidates{Bookings: bookings, TotalQuantity: qty, TotalAmount: amount}, nil
}

// eligible checks that b can be settled by a voucher of the given kind.
func eligible(kind models.VoucherKind, b *models.Booking) error {
	if b.BookingStatus == models.StatusCancelled {
		return apperr.Newf(apperr.KindInvalidTransition, "GRN %d is cancelled", b.GrnNo)
	}
	switch kind {
	case models.VoucherCredit:
		if b.BookingType != models.BookingTypeCredit {
			return apperr.Newf(apperr.KindInvalidTransition, "GRN %d is a %s booking, not credit", b.GrnNo, b.BookingType)
		}
		if b.CreditVoucherNo != 0 {
			return apperr.Newf(apperr.KindInvalidTransition, "GRN %d already on credit voucher %d", b.GrnNo, b.CreditVoucherNo)
		}
	case models.VoucherCollection:
		if b.CollectionVoucherNo != 0 {
			return apperr.Newf(apperr.KindInvalidTransition, "GRN %d already on collection voucher %d", b.GrnNo, b.CollectionVoucherNo)
		}
	}
	return nil
}

// CreateVoucher numbers a credit or collection voucher over the GRN set and
// marks every booking in the same transaction.
func (s *VoucherService) CreateVoucher(ctx context.Context, actor models.Actor, kind models.VoucherKind, req *models.CreateVoucherRequest) (*models.VoucherWithBookings, error) {
	scope, err := actor.Scope()
	if err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, apperr.Validation("unknown voucher kind %q", kind)
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if dup := duplicateGRN(req.GrnNos); dup != 0 {
		return nil, apperr.Validation("GRN %d is listed more than once", dup)
	}

	var result *models.VoucherWithBookings
	err = s.Store.ExecTx(ctx, func(q repositories.Querier) error {
		f := models.BookingFilter{GrnNos: req.GrnNos}
		f.ApplyScope(scope)
		bookings, err := q.ListBookings(ctx, f)
		if err != nil {
			return err
		}
		if missing := missingGRNs(req.GrnNos, bookings); len(missing) > 0 {
			return unknownBookings(missing)
		}
		for _, b := range bookings {
			if err := eligible(kind, b); err != nil {
				return err
			}
		}

		voucherNo, err := s.IDs.NextVoucherNo(ctx, q, kind, actor.CompanyID)
		if err != nil {
			return err
		}
		n, err := q.SetVoucherMarker(ctx, actor.CompanyID, req.GrnNos, kind, voucherNo)
		if err != nil {
			return err
		}
		if n != int64(len(req.GrnNos)) {
			return apperr.Newf(apperr.KindInvalidTransition, "some GRNs were settled by another %s voucher", kind)
		}

		qty, amount := totals(bookings)
		v := &models.Voucher{
			CompanyID:     actor.CompanyID,
			Kind:          kind,
			VoucherNo:     voucherNo,
			GrnNos:        req.GrnNos,
			Agent:         req.Agent,
			Consignor:     req.Consignor,
			Description:   req.Description,
			DateFrom:      req.DateFrom,
			DateTo:        req.DateTo,
			TotalQuantity: qty,
			TotalAmount:   amount,
			CreatedBy:     actor.Name,
			CreatedByID:   actor.UserID,
			CreatedAt:     s.Lifecycle.Now(),
		}
		if err := q.InsertVoucher(ctx, v); err != nil {
			return err
		}

		marked, err := q.ListBookings(ctx, models.BookingFilter{CompanyID: actor.CompanyID, GrnNos: req.GrnNos})
		if err != nil {
			return err
		}
		result = &models.VoucherWithBookings{Voucher: *v, Bookings: orderByGRNs(marked, req.GrnNos)}
		return nil
	})
	if err != nil {
		return nil, transitionError(err)
	}

	metrics.VouchersCreated.WithLabelValues(string(kind)).Inc()
	cache.InvalidateReportCaches(ctx, actor.CompanyID)
	log.WithFields(log.Fields{
		"company_id": actor.CompanyID,
		"kind":       kind,
		"voucher_no": result.VoucherNo,
		"bookings":   len(result.Bookings),
		"amount":     result.TotalAmount.StringFixed(2),
		"by":         actor.Name,
	}).Info("[Voucher] created")
	return result, nil
}

// GetVoucher returns a voucher with the settled bookings the caller can
// reach. A voucher whose bookings are all out of reach reads as not found.
func (s *VoucherService) GetVoucher(ctx context.Context, actor models.Actor, kind models.VoucherKind, voucherNo int64) (*models.VoucherWithBookings, error) {
	scope, err := actor.Scope()
	if err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, apperr.Validation("unknown voucher kind %q", kind)
	}
	v, err := s.Store.GetVoucher(ctx, actor.CompanyID, kind, voucherNo)
	if err != nil {
		return nil, err
	}
	bookings, err := s.Store.ListBookings(ctx, models.BookingFilter{CompanyID: actor.CompanyID, GrnNos: v.GrnNos})
	if err != nil {
		return nil, err
	}
	joined := orderByGRNs(bookings, v.GrnNos)
	visible := scope.Visible(joined)
	if len(joined) > 0 && len(visible) == 0 {
		return nil, apperr.Newf(apperr.KindNotFound, "%s voucher %d not found", kind, voucherNo)
	}
	out := &models.VoucherWithBookings{Voucher: *v, Bookings: visible}
	if len(visible) < len(joined) {
		out.GrnNos = make([]int64, 0, len(visible))
		for _, b := range visible {
			out.GrnNos = append(out.GrnNos, b.GrnNo)
		}
	}
	return out, nil
}
