package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"parcel-backend/internal/apperr"
	"parcel-backend/internal/models"
)

// MemoryStore is a Store kept in process memory. It enforces the same unique
// keys as the SQL schema and gives ExecTx all-or-nothing semantics by running
// fn against a copy of the state and swapping it in on success. Used for
// local runs without Postgres and as the storage fake in tests.
type MemoryStore struct {
	mu sync.Mutex
	st *memState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: newMemState()}
}

type memState struct {
	nextID    int64
	counters  map[string]int64
	bookings  map[int64]*models.Booking
	parties   map[string]*models.Party
	manifests map[int64]*models.Manifest
	vouchers  map[int64]*models.Voucher
}

func newMemState() *memState {
	return &memState{
		counters:  make(map[string]int64),
		bookings:  make(map[int64]*models.Booking),
		parties:   make(map[string]*models.Party),
		manifests: make(map[int64]*models.Manifest),
		vouchers:  make(map[int64]*models.Voucher),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	c.nextID = s.nextID
	for k, v := range s.counters {
		c.counters[k] = v
	}
	for k, b := range s.bookings {
		c.bookings[k] = cloneBooking(b)
	}
	for k, p := range s.parties {
		cp := *p
		c.parties[k] = &cp
	}
	for k, m := range s.manifests {
		c.manifests[k] = cloneManifest(m)
	}
	for k, v := range s.vouchers {
		c.vouchers[k] = cloneVoucher(v)
	}
	return c
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

func cloneBooking(b *models.Booking) *models.Booking {
	c := *b
	c.Packages = append([]models.Package(nil), b.Packages...)
	return &c
}

func cloneManifest(m *models.Manifest) *models.Manifest {
	c := *m
	c.GrnNos = append([]int64(nil), m.GrnNos...)
	c.LRNumbers = append([]string(nil), m.LRNumbers...)
	return &c
}

func cloneVoucher(v *models.Voucher) *models.Voucher {
	c := *v
	c.GrnNos = append([]int64(nil), v.GrnNos...)
	return &c
}

func (m *MemoryStore) ExecTx(ctx context.Context, fn func(q Querier) error) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindStorageUnavailable, "begin transaction", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.st.clone()
	if err := fn(&memQueries{st: work}); err != nil {
		return err
	}
	m.st = work
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// do runs fn outside any transaction, committing immediately.
func (m *MemoryStore) do(fn func(q *memQueries) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memQueries{st: m.st})
}

func (m *MemoryStore) NextSequence(ctx context.Context, key string, floor int64) (v int64, err error) {
	err = m.do(func(q *memQueries) error { v, err = q.NextSequence(ctx, key, floor); return err })
	return v, err
}

func (m *MemoryStore) AdvanceSequence(ctx context.Context, key string, atLeast int64) error {
	return m.do(func(q *memQueries) error { return q.AdvanceSequence(ctx, key, atLeast) })
}

func (m *MemoryStore) UpsertParty(ctx context.Context, p *models.Party) error {
	return m.do(func(q *memQueries) error { return q.UpsertParty(ctx, p) })
}

func (m *MemoryStore) GetPartyByPhone(ctx context.Context, companyID int64, phone string) (p *models.Party, err error) {
	err = m.do(func(q *memQueries) error { p, err = q.GetPartyByPhone(ctx, companyID, phone); return err })
	return p, err
}

func (m *MemoryStore) InsertBooking(ctx context.Context, b *models.Booking) error {
	return m.do(func(q *memQueries) error { return q.InsertBooking(ctx, b) })
}

func (m *MemoryStore) GetBooking(ctx context.Context, companyID, id int64) (b *models.Booking, err error) {
	err = m.do(func(q *memQueries) error { b, err = q.GetBooking(ctx, companyID, id); return err })
	return b, err
}

func (m *MemoryStore) GetBookingByGRN(ctx context.Context, companyID, grnNo int64) (b *models.Booking, err error) {
	err = m.do(func(q *memQueries) error { b, err = q.GetBookingByGRN(ctx, companyID, grnNo); return err })
	return b, err
}

func (m *MemoryStore) ListBookings(ctx context.Context, f models.BookingFilter) (list []*models.Booking, err error) {
	err = m.do(func(q *memQueries) error { list, err = q.ListBookings(ctx, f); return err })
	return list, err
}

func (m *MemoryStore) ApplyTransition(ctx context.Context, companyID int64, grnNos []int64, t models.Transition) (n int64, err error) {
	err = m.do(func(q *memQueries) error { n, err = q.ApplyTransition(ctx, companyID, grnNos, t); return err })
	return n, err
}

func (m *MemoryStore) SetVoucherMarker(ctx context.Context, companyID int64, grnNos []int64, kind models.VoucherKind, voucherNo int64) (n int64, err error) {
	err = m.do(func(q *memQueries) error { n, err = q.SetVoucherMarker(ctx, companyID, grnNos, kind, voucherNo); return err })
	return n, err
}

func (m *MemoryStore) DeleteBooking(ctx context.Context, companyID, id int64) error {
	return m.do(func(q *memQueries) error { return q.DeleteBooking(ctx, companyID, id) })
}

func (m *MemoryStore) InsertManifest(ctx context.Context, mf *models.Manifest) error {
	return m.do(func(q *memQueries) error { return q.InsertManifest(ctx, mf) })
}

func (m *MemoryStore) GetManifest(ctx context.Context, companyID int64, direction models.Direction, voucherNo int64) (mf *models.Manifest, err error) {
	err = m.do(func(q *memQueries) error { mf, err = q.GetManifest(ctx, companyID, direction, voucherNo); return err })
	return mf, err
}

func (m *MemoryStore) ListManifests(ctx context.Context, f models.ManifestFilter) (list []*models.Manifest, err error) {
	err = m.do(func(q *memQueries) error { list, err = q.ListManifests(ctx, f); return err })
	return list, err
}

func (m *MemoryStore) UpdateManifest(ctx context.Context, mf *models.Manifest) error {
	return m.do(func(q *memQueries) error { return q.UpdateManifest(ctx, mf) })
}

func (m *MemoryStore) DeleteManifest(ctx context.Context, companyID int64, direction models.Direction, voucherNo int64) error {
	return m.do(func(q *memQueries) error { return q.DeleteManifest(ctx, companyID, direction, voucherNo) })
}

func (m *MemoryStore) InsertVoucher(ctx context.Context, v *models.Voucher) error {
	return m.do(func(q *memQueries) error { return q.InsertVoucher(ctx, v) })
}

func (m *MemoryStore) GetVoucher(ctx context.Context, companyID int64, kind models.VoucherKind, voucherNo int64) (v *models.Voucher, err error) {
	err = m.do(func(q *memQueries) error { v, err = q.GetVoucher(ctx, companyID, kind, voucherNo); return err })
	return v, err
}

// memQueries operates on one memState without locking; the owner holds the lock.
type memQueries struct {
	st *memState
}

func duplicate(constraint string) error {
	return apperr.Newf(apperr.KindDuplicateIdentifier, "insert: duplicate value violates %s", constraint)
}

func (q *memQueries) NextSequence(_ context.Context, key string, floor int64) (int64, error) {
	v, ok := q.st.counters[key]
	if !ok || v+1 < floor {
		v = floor
	} else {
		v++
	}
	q.st.counters[key] = v
	return v, nil
}

func (q *memQueries) AdvanceSequence(_ context.Context, key string, atLeast int64) error {
	if v, ok := q.st.counters[key]; !ok || v < atLeast {
		q.st.counters[key] = atLeast
	}
	return nil
}

func (q *memQueries) UpsertParty(_ context.Context, p *models.Party) error {
	key := fmt.Sprintf("%d/%s", p.CompanyID, p.Phone)
	now := time.Now()
	if existing, ok := q.st.parties[key]; ok {
		existing.Name = p.Name
		if p.GST != "" {
			existing.GST = p.GST
		}
		if p.Address != "" {
			existing.Address = p.Address
		}
		existing.Bookings++
		existing.UpdatedAt = now
		*p = *existing
		return nil
	}
	stored := *p
	stored.ID = q.st.id()
	stored.Bookings = 1
	stored.CreatedAt = now
	stored.UpdatedAt = now
	q.st.parties[key] = &stored
	*p = stored
	return nil
}

func (q *memQueries) GetPartyByPhone(_ context.Context, companyID int64, phone string) (*models.Party, error) {
	p, ok := q.st.parties[fmt.Sprintf("%d/%s", companyID, phone)]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "party %s not found", phone)
	}
	c := *p
	return &c, nil
}

func (q *memQueries) InsertBooking(_ context.Context, b *models.Booking) error {
	for _, existing := range q.st.bookings {
		switch {
		case existing.GrnNo == b.GrnNo:
			return duplicate("bookings_grn_no_key")
		case existing.LRNumber == b.LRNumber:
			return duplicate("bookings_lr_number_key")
		case existing.EWayBillNo == b.EWayBillNo:
			return duplicate("bookings_eway_bill_no_key")
		case existing.ReceiptNo == b.ReceiptNo:
			return duplicate("bookings_receipt_no_key")
		}
	}
	now := time.Now()
	b.ID = q.st.id()
	b.CreatedAt = now
	b.UpdatedAt = now
	q.st.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (q *memQueries) GetBooking(_ context.Context, companyID, id int64) (*models.Booking, error) {
	b, ok := q.st.bookings[id]
	if !ok || b.CompanyID != companyID {
		return nil, apperr.Newf(apperr.KindNotFound, "booking %d: not found", id)
	}
	return cloneBooking(b), nil
}

func (q *memQueries) findGRN(companyID, grnNo int64) *models.Booking {
	for _, b := range q.st.bookings {
		if b.CompanyID == companyID && b.GrnNo == grnNo {
			return b
		}
	}
	return nil
}

func (q *memQueries) GetBookingByGRN(_ context.Context, companyID, grnNo int64) (*models.Booking, error) {
	b := q.findGRN(companyID, grnNo)
	if b == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "GRN %d: not found", grnNo)
	}
	return cloneBooking(b), nil
}

func (q *memQueries) ListBookings(_ context.Context, f models.BookingFilter) ([]*models.Booking, error) {
	var out []*models.Booking
	for _, b := range q.st.bookings {
		if f.Match(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GrnNo < out[j].GrnNo })
	return page(out, f.Limit, f.Offset), nil
}

func page[T any](list []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(list) {
			return nil
		}
		list = list[offset:]
	}
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

func (q *memQueries) ApplyTransition(_ context.Context, companyID int64, grnNos []int64, t models.Transition) (int64, error) {
	if len(t.AllowedFrom()) == 0 {
		return 0, apperr.Validation("status %d is not a transition target", t.To)
	}
	var n int64
	for _, grn := range grnNos {
		b := q.findGRN(companyID, grn)
		if b == nil || !models.CanTransition(b.BookingStatus, t.To) {
			continue
		}
		t.Apply(b)
		n++
	}
	return n, nil
}

func (q *memQueries) SetVoucherMarker(_ context.Context, companyID int64, grnNos []int64, kind models.VoucherKind, voucherNo int64) (int64, error) {
	var n int64
	for _, grn := range grnNos {
		b := q.findGRN(companyID, grn)
		if b == nil || b.BookingStatus == models.StatusCancelled {
			continue
		}
		marker := &b.CreditVoucherNo
		if kind == models.VoucherCollection {
			marker = &b.CollectionVoucherNo
		}
		if *marker != 0 {
			continue
		}
		*marker = voucherNo
		b.UpdatedAt = time.Now()
		n++
	}
	return n, nil
}

func (q *memQueries) DeleteBooking(_ context.Context, companyID, id int64) error {
	b, ok := q.st.bookings[id]
	if !ok || b.CompanyID != companyID {
		return apperr.Newf(apperr.KindNotFound, "booking %d not found", id)
	}
	delete(q.st.bookings, id)
	return nil
}

func (q *memQueries) findManifest(companyID int64, direction models.Direction, voucherNo int64) *models.Manifest {
	for _, m := range q.st.manifests {
		if m.CompanyID == companyID && m.Direction == direction && m.VoucherNo == voucherNo {
			return m
		}
	}
	return nil
}

func (q *memQueries) InsertManifest(_ context.Context, m *models.Manifest) error {
	if q.findManifest(m.CompanyID, m.Direction, m.VoucherNo) != nil {
		return duplicate("manifests_company_id_direction_voucher_no_key")
	}
	m.ID = q.st.id()
	m.UpdatedAt = m.CreatedAt
	q.st.manifests[m.ID] = cloneManifest(m)
	return nil
}

func (q *memQueries) GetManifest(_ context.Context, companyID int64, direction models.Direction, voucherNo int64) (*models.Manifest, error) {
	m := q.findManifest(companyID, direction, voucherNo)
	if m == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "%s voucher %d: not found", direction, voucherNo)
	}
	return cloneManifest(m), nil
}

func (q *memQueries) ListManifests(_ context.Context, f models.ManifestFilter) ([]*models.Manifest, error) {
	var out []*models.Manifest
	for _, m := range q.st.manifests {
		if f.Match(m) {
			out = append(out, cloneManifest(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, f.Limit, f.Offset), nil
}

func (q *memQueries) UpdateManifest(_ context.Context, m *models.Manifest) error {
	existing := q.findManifest(m.CompanyID, m.Direction, m.VoucherNo)
	if existing == nil {
		return apperr.Newf(apperr.KindNotFound, "%s voucher %d not found", m.Direction, m.VoucherNo)
	}
	existing.VehicleNo = m.VehicleNo
	existing.DriverName = m.DriverName
	existing.DriverPhone = m.DriverPhone
	existing.Remarks = m.Remarks
	existing.UpdatedAt = m.UpdatedAt
	return nil
}

func (q *memQueries) DeleteManifest(_ context.Context, companyID int64, direction models.Direction, voucherNo int64) error {
	m := q.findManifest(companyID, direction, voucherNo)
	if m == nil {
		return apperr.Newf(apperr.KindNotFound, "%s voucher %d not found", direction, voucherNo)
	}
	delete(q.st.manifests, m.ID)
	return nil
}

func (q *memQueries) InsertVoucher(_ context.Context, v *models.Voucher) error {
	for _, existing := range q.st.vouchers {
		if existing.CompanyID == v.CompanyID && existing.Kind == v.Kind && existing.VoucherNo == v.VoucherNo {
			return duplicate("vouchers_company_id_kind_voucher_no_key")
		}
	}
	v.ID = q.st.id()
	q.st.vouchers[v.ID] = cloneVoucher(v)
	return nil
}

func (q *memQueries) GetVoucher(_ context.Context, companyID int64, kind models.VoucherKind, voucherNo int64) (*models.Voucher, error) {
	for _, v := range q.st.vouchers {
		if v.CompanyID == companyID && v.Kind == kind && v.VoucherNo == voucherNo {
			return cloneVoucher(v), nil
		}
	}
	return nil, apperr.Newf(apperr.KindNotFound, "%s voucher %d: not found", kind, voucherNo)
}
