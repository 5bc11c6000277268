package services

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"time"

	"parcel-backend/internal/apperr"
	"parcel-backend/internal/cache"
	"parcel-backend/internal/models"
	"parcel-backend/internal/repositories"
	"parcel-backend/internal/timeutil"

	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// ReportService aggregates bookings and manifests. The caller's scope is
// folded into every query before anything is summed.
type ReportService struct {
	Store    repositories.Store
	CacheTTL time.Duration
	Now      func() time.Time
}

// NewReportService caches results in Redis for ttl. A zero ttl disables caching.
func NewReportService(store repositories.Store, ttl time.Duration) *ReportService {
	return &ReportService{Store: store, CacheTTL: ttl, Now: timeutil.Now}
}

// window resolves the report period. Missing bounds default to the current
// calendar month.
func (s *ReportService) window(req models.ReportRequest) (time.Time, time.Time, error) {
	month := now.With(s.Now().In(timeutil.IST))
	from, to := month.BeginningOfMonth(), month.EndOfMonth()
	if req.From != nil {
		from = *req.From
	}
	if req.To != nil {
		to = *req.To
	}
	if to.Before(from) {
		return from, to, apperr.Validation("report end date is before its start date")
	}
	return from, to, nil
}

func (s *ReportService) scopedBookings(ctx context.Context, actor models.Actor, req models.ReportRequest) ([]*models.Booking, time.Time, time.Time, error) {
	scope, err := actor.Scope()
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	from, to, err := s.window(req)
	if err != nil {
		return nil, from, to, err
	}
	f := models.BookingFilter{
		FromCity:     req.FromCity,
		ToCity:       req.ToCity,
		PickUpBranch: req.PickUpBranch,
		SenderName:   req.SenderName,
		BookingType:  req.BookingType,
		From:         &from,
		To:           &to,
	}
	f.ApplyScope(scope)
	bookings, err := s.Store.ListBookings(ctx, f)
	return bookings, from, to, err
}

// cached serves a report from Redis when present and stores fresh results.
// Cache failures fall through to the database.
func cached[T any](ctx context.Context, s *ReportService, actor models.Actor, report string, req models.ReportRequest, build func() (T, error)) (T, error) {
	if s.CacheTTL <= 0 || !cache.Enabled() {
		return build()
	}
	from, to, err := s.window(req)
	if err != nil {
		return build()
	}
	key := cache.ReportKey(actor.CompanyID, report, cacheParams(actor, req, from, to))
	if data, ok := cache.GetCached(ctx, key); ok {
		var out T
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
		log.Printf("[Reports] Discarding unreadable cache entry %s", key)
		cache.InvalidateKeys(ctx, key)
	}

	out, err := build()
	if err != nil {
		return out, err
	}
	if data, err := json.Marshal(out); err == nil {
		cache.SetCached(ctx, key, data, s.CacheTTL)
	}
	return out, nil
}

// cacheParams encodes everything that changes a report's rows: the caller's
// scope, the filters and the resolved window, so a defaulted month rolls over
// to a new key.
func cacheParams(actor models.Actor, req models.ReportRequest, from, to time.Time) string {
	params := url.Values{}
	params.Set("role", string(actor.Role))
	params.Set("branch", actor.BranchID)
	params.Set("branchCity", actor.BranchCity)
	params.Set("fromCity", req.FromCity)
	params.Set("toCity", req.ToCity)
	params.Set("pickUpBranch", req.PickUpBranch)
	params.Set("sender", req.SenderName)
	params.Set("bookingType", string(req.BookingType))
	params.Set("groupBy", string(req.GroupBy))
	params.Set("from", from.Format(time.RFC3339))
	params.Set("to", to.Format(time.RFC3339))
	return params.Encode()
}

// StatusWiseSummary counts bookings per pick-up branch and status.
func (s *ReportService) StatusWiseSummary(ctx context.Context, actor models.Actor, req models.ReportRequest) ([]models.StatusSummary, error) {
	return cached(ctx, s, actor, "status-wise-summary", req, func() ([]models.StatusSummary, error) {
		bookings, _, _, err := s.scopedBookings(ctx, actor, req)
		if err != nil {
			return nil, err
		}
		byBranch := make(map[string]*models.StatusSummary)
		for _, b := range bookings {
			row, ok := byBranch[b.PickUpBranch]
			if !ok {
				row = &models.StatusSummary{PickUpBranch: b.PickUpBranch}
				byBranch[b.PickUpBranch] = row
			}
			row.Add(b.BookingStatus)
		}
		out := make([]models.StatusSummary, 0, len(byBranch))
		for _, branch := range sortedKeys(byBranch) {
			out = append(out, *byBranch[branch])
		}
		return out, nil
	})
}

func groupKey(g models.GroupBy, b *models.Booking) string {
	switch g {
	case models.GroupByBookingType:
		return string(b.BookingType)
	case models.GroupByStatus:
		return b.BookingStatus.String()
	case models.GroupBySender:
		return b.SenderName
	}
	return b.PickUpBranch
}

// BookingSummary groups the matching bookings and sums quantity and grand
// total per group. The overall totals cover exactly the bookings matched.
func (s *ReportService) BookingSummary(ctx context.Context, actor models.Actor, req models.ReportRequest) (*models.BookingSummary, error) {
	if req.GroupBy == "" {
		req.GroupBy = models.GroupByBranch
	}
	if !req.GroupBy.Valid() {
		return nil, apperr.Validation("groupBy must be one of branch, bookingType, status, sender")
	}
	return cached(ctx, s, actor, "booking-summary", req, func() (*models.BookingSummary, error) {
		bookings, from, to, err := s.scopedBookings(ctx, actor, req)
		if err != nil {
			return nil, err
		}
		summary := &models.BookingSummary{GroupBy: req.GroupBy, From: from, To: to, Rows: []models.GroupTotal{}, GrandTotal: decimal.Zero}
		groups := make(map[string]*models.GroupTotal)
		for _, b := range bookings {
			key := groupKey(req.GroupBy, b)
			g, ok := groups[key]
			if !ok {
				g = &models.GroupTotal{Key: key, GrandTotal: decimal.Zero}
				groups[key] = g
			}
			g.Bookings++
			g.TotalQuantity += b.TotalQuantity
			g.GrandTotal = g.GrandTotal.Add(b.GrandTotal)

			summary.Bookings++
			summary.TotalQuantity += b.TotalQuantity
			summary.GrandTotal = summary.GrandTotal.Add(b.GrandTotal)
		}
		for _, key := range sortedKeys(groups) {
			summary.Rows = append(summary.Rows, *groups[key])
		}
		return summary, nil
	})
}

// BranchAccount settles each pick-up branch. Cancelled bookings contribute
// only their retained refund charge.
func (s *ReportService) BranchAccount(ctx context.Context, actor models.Actor, req models.ReportRequest) ([]models.BranchAccount, error) {
	return cached(ctx, s, actor, "branch-account", req, func() ([]models.BranchAccount, error) {
		bookings, _, _, err := s.scopedBookings(ctx, actor, req)
		if err != nil {
			return nil, err
		}
		accounts := make(map[string]*models.BranchAccount)
		retained := make(map[string]decimal.Decimal)
		for _, b := range bookings {
			acc, ok := accounts[b.PickUpBranch]
			if !ok {
				acc = &models.BranchAccount{Branch: b.PickUpBranch}
				accounts[b.PickUpBranch] = acc
			}
			acc.Bookings++
			if b.BookingStatus == models.StatusCancelled {
				acc.CancelledCount++
				acc.Refunds = acc.Refunds.Add(b.RefundAmount)
				retained[b.PickUpBranch] = retained[b.PickUpBranch].Add(b.RefundCharge)
				continue
			}
			switch b.BookingType {
			case models.BookingTypePaid:
				acc.Paid = acc.Paid.Add(b.GrandTotal)
			case models.BookingTypeToPay:
				acc.ToPay = acc.ToPay.Add(b.GrandTotal)
			case models.BookingTypeCredit:
				acc.Credit = acc.Credit.Add(b.GrandTotal)
			case models.BookingTypeFOC:
				acc.FOC = acc.FOC.Add(b.GrandTotal)
			}
		}
		out := make([]models.BranchAccount, 0, len(accounts))
		for _, branch := range sortedKeys(accounts) {
			acc := accounts[branch]
			acc.NetTotal = acc.Paid.Add(acc.ToPay).Add(acc.Credit).Add(acc.FOC).Add(retained[branch])
			out = append(out, *acc)
		}
		return out, nil
	})
}

// LoadingSummary joins each loading manifest in the window to the bookings
// the caller may see. Manifests with none of those bookings are left out.
func (s *ReportService) LoadingSummary(ctx context.Context, actor models.Actor, req models.ReportRequest) ([]models.LoadingSummaryRow, error) {
	return cached(ctx, s, actor, "loading-summary", req, func() ([]models.LoadingSummaryRow, error) {
		scope, err := actor.Scope()
		if err != nil {
			return nil, err
		}
		from, to, err := s.window(req)
		if err != nil {
			return nil, err
		}
		manifests, err := s.Store.ListManifests(ctx, models.ManifestFilter{
			CompanyID: actor.CompanyID,
			Direction: models.DirectionLoading,
			FromCity:  req.FromCity,
			ToCity:    req.ToCity,
			From:      &from,
			To:        &to,
		})
		if err != nil {
			return nil, err
		}

		var grnNos []int64
		for _, m := range manifests {
			grnNos = append(grnNos, m.GrnNos...)
		}
		byGRN := make(map[int64]*models.Booking)
		if len(grnNos) > 0 {
			f := models.BookingFilter{GrnNos: grnNos, PickUpBranch: req.PickUpBranch}
			f.ApplyScope(scope)
			bookings, err := s.Store.ListBookings(ctx, f)
			if err != nil {
				return nil, err
			}
			for _, b := range bookings {
				byGRN[b.GrnNo] = b
			}
		}

		out := []models.LoadingSummaryRow{}
		for _, m := range manifests {
			row := models.LoadingSummaryRow{
				VoucherNo:  m.VoucherNo,
				VehicleNo:  m.VehicleNo,
				FromBranch: m.FromBranch,
				ToBranch:   m.ToBranch,
				LoadedAt:   m.CreatedAt,
				GrandTotal: decimal.Zero,
			}
			for _, grn := range m.GrnNos {
				b, ok := byGRN[grn]
				if !ok {
					continue
				}
				row.Bookings++
				row.TotalQuantity += b.TotalQuantity
				row.GrandTotal = row.GrandTotal.Add(b.GrandTotal)
			}
			if row.Bookings > 0 {
				out = append(out, row)
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].LoadedAt.Before(out[j].LoadedAt) })
		return out, nil
	})
}
