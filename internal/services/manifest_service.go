package services

import (
	"context"
	"errors"
	"time"

	"parcel-backend/internal/apperr"
	"parcel-backend/internal/cache"
	"parcel-backend/internal/metrics"
	"parcel-backend/internal/models"
	"parcel-backend/internal/repositories"
	"parcel-backend/internal/storage"

	log "github.com/sirupsen/logrus"
)

const defaultManifestAttempts = 5

// Archiver stores generated sheets. *storage.Archiver implements it.
type Archiver interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
}

type ManifestService struct {
	Store     repositories.Store
	IDs       *IdentifierGenerator
	Lifecycle *LifecycleEngine
	Printer   *PrintService
	Archive   Archiver

	// MaxAttempts bounds retries after a loading voucher collision.
	MaxAttempts int
}

func NewManifestService(store repositories.Store, ids *IdentifierGenerator, lifecycle *LifecycleEngine, printer *PrintService, maxAttempts int) *ManifestService {
	if maxAttempts < 1 {
		maxAttempts = defaultManifestAttempts
	}
	return &ManifestService{
		Store:       store,
		IDs:         ids,
		Lifecycle:   lifecycle,
		Printer:     printer,
		MaxAttempts: maxAttempts,
	}
}

// SetArchive enables uploading sheets after each manifest is created.
func (s *ManifestService) SetArchive(a Archiver) {
	s.Archive = a
}

// CreateManifest validates the referenced GRNs, inserts the manifest and moves
// every referenced booking to the direction's status in one transaction.
// Nothing is persisted unless every step succeeds.
func (s *ManifestService) CreateManifest(ctx context.Context, actor models.Actor, direction models.Direction, req *models.CreateManifestRequest) (*models.ManifestWithBookings, error) {
	if _, err := actor.Scope(); err != nil {
		return nil, err
	}
	if !direction.Valid() {
		return nil, apperr.Validation("unknown manifest direction %q", direction)
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if dup := duplicateGRN(req.GrnNos); dup != 0 {
		return nil, apperr.Validation("GRN %d is listed more than once", dup)
	}

	now := s.Lifecycle.Now()
	branch, city := req.FromBranch, req.FromCity
	if direction == models.DirectionUnloading {
		branch, city = req.ToBranch, req.ToCity
	}
	if branch == "" {
		branch = actor.BranchID
	}
	if city == "" {
		city = actor.BranchCity
	}

	var (
		manifest *models.Manifest
		err      error
	)
	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		manifest, err = s.createOnce(ctx, actor, direction, req, now, branch, city)
		if err == nil {
			break
		}
		if direction != models.DirectionLoading || !errors.Is(err, apperr.ErrDuplicateIdentifier) {
			return nil, transitionError(err)
		}
		metrics.IdentifierConflicts.WithLabelValues("manifest").Inc()
		log.Printf("[Manifest] Loading voucher collision on attempt %d/%d", attempt, s.MaxAttempts)
	}
	if err != nil {
		return nil, err
	}

	result, err := s.withBookings(ctx, manifest)
	if err != nil {
		return nil, err
	}

	t := manifestTransition(manifest, now, branch, city)
	s.Lifecycle.Committed(ctx, actor.CompanyID, t, result.Bookings)
	metrics.ManifestsCreated.WithLabelValues(string(direction)).Inc()
	s.archive(ctx, result)
	return result, nil
}

func manifestTransition(m *models.Manifest, at time.Time, branch, city string) models.Transition {
	return models.Transition{
		To:        m.Direction.TargetStatus(),
		At:        at,
		By:        m.CreatedBy,
		Branch:    branch,
		City:      city,
		VoucherNo: m.VoucherNo,
	}
}

func (s *ManifestService) createOnce(ctx context.Context, actor models.Actor, direction models.Direction, req *models.CreateManifestRequest, now time.Time, branch, city string) (*models.Manifest, error) {
	var created *models.Manifest
	err := s.Store.ExecTx(ctx, func(q repositories.Querier) error {
		bookings, err := q.ListBookings(ctx, models.BookingFilter{CompanyID: actor.CompanyID, GrnNos: req.GrnNos})
		if err != nil {
			return err
		}
		if missing := missingGRNs(req.GrnNos, bookings); len(missing) > 0 {
			return unknownBookings(missing)
		}
		if err := checkLRNumbers(req.LRNumbers, bookings); err != nil {
			return err
		}

		voucherNo, err := s.IDs.ManifestVoucherNo(ctx, q, direction, actor.CompanyID)
		if err != nil {
			return err
		}

		lrNumbers := req.LRNumbers
		if len(lrNumbers) == 0 {
			for _, b := range orderByGRNs(bookings, req.GrnNos) {
				lrNumbers = append(lrNumbers, b.LRNumber)
			}
		}

		m := &models.Manifest{
			CompanyID:   actor.CompanyID,
			Direction:   direction,
			VoucherNo:   voucherNo,
			VehicleNo:   req.VehicleNo,
			DriverName:  req.DriverName,
			DriverPhone: req.DriverPhone,
			FromBranch:  req.FromBranch,
			ToBranch:    req.ToBranch,
			FromCity:    req.FromCity,
			ToCity:      req.ToCity,
			DateFrom:    req.DateFrom,
			DateTo:      req.DateTo,
			GrnNos:      req.GrnNos,
			LRNumbers:   lrNumbers,
			Remarks:     req.Remarks,
			CreatedBy:   actor.Name,
			CreatedByID: actor.UserID,
			CreatedAt:   now,
		}
		if err := q.InsertManifest(ctx, m); err != nil {
			return err
		}

		if err := s.Lifecycle.ApplyTx(ctx, q, actor.CompanyID, req.GrnNos, manifestTransition(m, now, branch, city)); err != nil {
			return err
		}
		created = m
		return nil
	})
	return created, err
}

// checkLRNumbers requires every supplied LR number to belong to one of the
// referenced bookings.
func checkLRNumbers(lrNumbers []string, bookings []*models.Booking) error {
	if len(lrNumbers) == 0 {
		return nil
	}
	known := make(map[string]struct{}, len(bookings))
	for _, b := range bookings {
		known[b.LRNumber] = struct{}{}
	}
	for _, lr := range lrNumbers {
		if _, ok := known[lr]; !ok {
			return apperr.Validation("LR number %s does not belong to the listed GRNs", lr)
		}
	}
	return nil
}

func (s *ManifestService) withBookings(ctx context.Context, m *models.Manifest) (*models.ManifestWithBookings, error) {
	bookings, err := s.Store.ListBookings(ctx, models.BookingFilter{CompanyID: m.CompanyID, GrnNos: m.GrnNos})
	if err != nil {
		return nil, err
	}
	return &models.ManifestWithBookings{Manifest: *m, Bookings: orderByGRNs(bookings, m.GrnNos)}, nil
}

func (s *ManifestService) archive(ctx context.Context, m *models.ManifestWithBookings) {
	if s.Archive == nil || s.Printer == nil {
		return
	}
	pdf, err := s.Printer.GenerateManifestPDF(m)
	if err != nil {
		log.Printf("[Manifest] Failed to render sheet %d: %v", m.VoucherNo, err)
		return
	}
	key := storage.ManifestKey(m.CompanyID, string(m.Direction), m.VoucherNo, m.CreatedAt)
	if err := s.Archive.Put(ctx, key, "application/pdf", pdf); err != nil {
		log.Printf("[Manifest] Failed to archive sheet %d: %v", m.VoucherNo, err)
	}
}

// scopedManifest keeps the bookings the caller can reach. A manifest whose
// bookings are all out of reach is reported as absent.
func scopedManifest(scope models.Scope, m *models.Manifest, bookings []*models.Booking) (*models.ManifestWithBookings, bool) {
	joined := orderByGRNs(bookings, m.GrnNos)
	visible := scope.Visible(joined)
	if len(joined) > 0 && len(visible) == 0 {
		return nil, false
	}
	out := &models.ManifestWithBookings{Manifest: *m, Bookings: visible}
	if len(visible) < len(joined) {
		out.GrnNos = make([]int64, 0, len(visible))
		out.LRNumbers = make([]string, 0, len(visible))
		for _, b := range visible {
			out.GrnNos = append(out.GrnNos, b.GrnNo)
			out.LRNumbers = append(out.LRNumbers, b.LRNumber)
		}
	}
	return out, true
}

// GetByVoucher returns one manifest joined with the bookings the caller can
// reach.
func (s *ManifestService) GetByVoucher(ctx context.Context, actor models.Actor, direction models.Direction, voucherNo int64) (*models.ManifestWithBookings, error) {
	scope, err := actor.Scope()
	if err != nil {
		return nil, err
	}
	m, err := s.Store.GetManifest(ctx, actor.CompanyID, direction, voucherNo)
	if err != nil {
		return nil, err
	}
	bookings, err := s.Store.ListBookings(ctx, models.BookingFilter{CompanyID: m.CompanyID, GrnNos: m.GrnNos})
	if err != nil {
		return nil, err
	}
	out, ok := scopedManifest(scope, m, bookings)
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "%s voucher %d not found", direction, voucherNo)
	}
	return out, nil
}

// ListManifests returns manifests matching f, newest first, each with the
// bookings the caller can reach. f.GrnNo selects the manifests that reference
// one GRN.
func (s *ManifestService) ListManifests(ctx context.Context, actor models.Actor, f models.ManifestFilter) ([]*models.ManifestWithBookings, error) {
	scope, err := actor.Scope()
	if err != nil {
		return nil, err
	}
	f.CompanyID = actor.CompanyID
	manifests, err := s.Store.ListManifests(ctx, f)
	if err != nil {
		return nil, err
	}

	var grnNos []int64
	for _, m := range manifests {
		grnNos = append(grnNos, m.GrnNos...)
	}
	var bookings []*models.Booking
	if len(grnNos) > 0 {
		bookings, err = s.Store.ListBookings(ctx, models.BookingFilter{CompanyID: actor.CompanyID, GrnNos: grnNos})
		if err != nil {
			return nil, err
		}
	}

	out := make([]*models.ManifestWithBookings, 0, len(manifests))
	for _, m := range manifests {
		if mb, ok := scopedManifest(scope, m, bookings); ok {
			out = append(out, mb)
		}
	}
	return out, nil
}

// UpdateManifest corrects vehicle, driver or remarks. Admin only.
func (s *ManifestService) UpdateManifest(ctx context.Context, actor models.Actor, direction models.Direction, voucherNo int64, req *models.UpdateManifestRequest) (*models.ManifestWithBookings, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("only an admin can edit a manifest")
	}
	var updated *models.Manifest
	err := s.Store.ExecTx(ctx, func(q repositories.Querier) error {
		m, err := q.GetManifest(ctx, actor.CompanyID, direction, voucherNo)
		if err != nil {
			return err
		}
		if req.VehicleNo != nil {
			m.VehicleNo = *req.VehicleNo
		}
		if req.DriverName != nil {
			m.DriverName = *req.DriverName
		}
		if req.DriverPhone != nil {
			m.DriverPhone = *req.DriverPhone
		}
		if req.Remarks != nil {
			m.Remarks = *req.Remarks
		}
		m.UpdatedAt = s.Lifecycle.Now()
		if err := q.UpdateManifest(ctx, m); err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateReportCaches(ctx, actor.CompanyID)
	return s.withBookings(ctx, updated)
}

// DeleteManifest removes a manifest record. Booking statuses are left as
// they are. Admin only.
func (s *ManifestService) DeleteManifest(ctx context.Context, actor models.Actor, direction models.Direction, voucherNo int64) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("only an admin can delete a manifest")
	}
	if err := s.Store.DeleteManifest(ctx, actor.CompanyID, direction, voucherNo); err != nil {
		return err
	}
	cache.InvalidateReportCaches(ctx, actor.CompanyID)
	log.Printf("[Manifest] Deleted %s voucher %d of company %d by %s", direction, voucherNo, actor.CompanyID, actor.Name)
	return nil
}

// SheetPDF renders the printable sheet of a manifest.
func (s *ManifestService) SheetPDF(ctx context.Context, actor models.Actor, direction models.Direction, voucherNo int64) ([]byte, error) {
	m, err := s.GetByVoucher(ctx, actor, direction, voucherNo)
	if err != nil {
		return nil, err
	}
	pdf, err := s.Printer.GenerateManifestPDF(m)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageUnavailable, "failed to render sheet", err)
	}
	return pdf, nil
}
