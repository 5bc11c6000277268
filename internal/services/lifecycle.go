package services

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"parcel-backend/internal/apperr"
	"parcel-backend/internal/cache"
	"parcel-backend/internal/events"
	"parcel-backend/internal/metrics"
	"parcel-backend/internal/models"
	"parcel-backend/internal/repositories"
	"parcel-backend/internal/timeutil"

	log "github.com/sirupsen/logrus"
)

// EventPublisher receives committed transitions. *events.Hub implements it.
type EventPublisher interface {
	Publish(evt events.Event)
}

// LifecycleEngine moves bookings between statuses. Every status write goes
// through ApplyTx so the allowed-from table is enforced by the storage
// layer's conditional update.
type LifecycleEngine struct {
	Store  repositories.Store
	Events EventPublisher
	Now    func() time.Time
}

func NewLifecycleEngine(store repositories.Store, publisher EventPublisher) *LifecycleEngine {
	return &LifecycleEngine{Store: store, Events: publisher, Now: timeutil.Now}
}

// ApplyTx applies t to every GRN inside an open transaction. If any GRN is
// not in a state t can be reached from, it returns InvalidTransition and the
// caller's transaction rolls back.
func (e *LifecycleEngine) ApplyTx(ctx context.Context, q repositories.Querier, companyID int64, grnNos []int64, t models.Transition) error {
	n, err := q.ApplyTransition(ctx, companyID, grnNos, t)
	if err != nil {
		return err
	}
	if n != int64(len(grnNos)) {
		return apperr.Newf(apperr.KindInvalidTransition,
			"cannot move bookings to %s: some GRNs already in a later state", t.To)
	}
	return nil
}

// Transition applies t to grnNos in its own transaction and returns the
// updated bookings.
func (e *LifecycleEngine) Transition(ctx context.Context, companyID int64, grnNos []int64, t models.Transition) ([]*models.Booking, error) {
	var updated []*models.Booking
	err := e.Store.ExecTx(ctx, func(q repositories.Querier) error {
		if err := e.ApplyTx(ctx, q, companyID, grnNos, t); err != nil {
			return err
		}
		var err error
		updated, err = q.ListBookings(ctx, models.BookingFilter{CompanyID: companyID, GrnNos: grnNos})
		return err
	})
	if err != nil {
		return nil, transitionError(err)
	}
	e.Committed(ctx, companyID, t, updated)
	return updated, nil
}

// Committed runs the side effects of a transition after its transaction
// commits.
func (e *LifecycleEngine) Committed(ctx context.Context, companyID int64, t models.Transition, bookings []*models.Booking) {
	metrics.TransitionsTotal.WithLabelValues(t.To.String()).Add(float64(len(bookings)))
	cache.InvalidateReportCaches(ctx, companyID)
	if e.Events != nil {
		e.Events.Publish(events.NewEvent(companyID, t, bookings))
	}
	log.WithFields(log.Fields{
		"company_id": companyID,
		"status":     t.To.String(),
		"bookings":   len(bookings),
		"by":         t.By,
		"voucher_no": t.VoucherNo,
	}).Info("[Lifecycle] transition committed")
}

// transitionError reports an aborted multi-row unit as TransitionFailed.
// Caller-facing kinds (unknown GRN, invalid state, validation) pass through.
func transitionError(err error) error {
	if apperr.KindOf(err) == apperr.KindStorageUnavailable {
		return apperr.Wrap(apperr.KindTransitionFailed, "transition aborted, no booking was changed", err)
	}
	return err
}

// missingGRNs lists the requested GRNs absent from found, in request order.
func missingGRNs(requested []int64, found []*models.Booking) []int64 {
	have := make(map[int64]struct{}, len(found))
	for _, b := range found {
		have[b.GrnNo] = struct{}{}
	}
	var missing []int64
	for _, g := range requested {
		if _, ok := have[g]; !ok {
			missing = append(missing, g)
		}
	}
	return missing
}

func unknownBookings(missing []int64) error {
	return apperr.Newf(apperr.KindUnknownBooking, "unknown GRN(s): %s", joinInts(missing))
}

func joinInts(list []int64) string {
	parts := make([]string, len(list))
	for i, v := range list {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ", ")
}

// orderByGRNs returns bookings in the order of grnNos, dropping any GRN
// without a booking.
func orderByGRNs(bookings []*models.Booking, grnNos []int64) []*models.Booking {
	byGRN := make(map[int64]*models.Booking, len(bookings))
	for _, b := range bookings {
		byGRN[b.GrnNo] = b
	}
	out := make([]*models.Booking, 0, len(grnNos))
	for _, g := range grnNos {
		if b, ok := byGRN[g]; ok {
			out = append(out, b)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
