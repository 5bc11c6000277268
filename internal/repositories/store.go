package repositories

import (
	"context"
	"errors"
	"fmt"

	"parcel-backend/internal/apperr"
	"parcel-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Querier is every storage operation the services use. Inside ExecTx the
// same methods run against one transaction.
type Querier interface {
	NextSequence(ctx context.Context, key string, floor int64) (int64, error)
	AdvanceSequence(ctx context.Context, key string, atLeast int64) error

	UpsertParty(ctx context.Context, p *models.Party) error
	GetPartyByPhone(ctx context.Context, companyID int64, phone string) (*models.Party, error)

	InsertBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, companyID, id int64) (*models.Booking, error)
	GetBookingByGRN(ctx context.Context, companyID, grnNo int64) (*models.Booking, error)
	ListBookings(ctx context.Context, f models.BookingFilter) ([]*models.Booking, error)
	ApplyTransition(ctx context.Context, companyID int64, grnNos []int64, t models.Transition) (int64, error)
	SetVoucherMarker(ctx context.Context, companyID int64, grnNos []int64, kind models.VoucherKind, voucherNo int64) (int64, error)
	DeleteBooking(ctx context.Context, companyID, id int64) error

	InsertManifest(ctx context.Context, m *models.Manifest) error
	GetManifest(ctx context.Context, companyID int64, direction models.Direction, voucherNo int64) (*models.Manifest, error)
	ListManifests(ctx context.Context, f models.ManifestFilter) ([]*models.Manifest, error)
	UpdateManifest(ctx context.Context, m *models.Manifest) error
	DeleteManifest(ctx context.Context, companyID int64, direction models.Direction, voucherNo int64) error

	InsertVoucher(ctx context.Context, v *models.Voucher) error
	GetVoucher(ctx context.Context, companyID int64, kind models.VoucherKind, voucherNo int64) (*models.Voucher, error)
}

// Store adds transactions on top of Querier. fn's writes commit together or
// not at all; an error from fn rolls everything back.
type Store interface {
	Querier
	ExecTx(ctx context.Context, fn func(q Querier) error) error
	Ping(ctx context.Context) error
}

// Queries runs SQL against a pool or a transaction.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

type SQLStore struct {
	*Queries
	DB *pgxpool.Pool
}

func NewSQLStore(db *pgxpool.Pool) *SQLStore {
	return &SQLStore{Queries: NewQueries(db), DB: db}
}

func (s *SQLStore) ExecTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return mapError(err, "begin transaction")
	}
	defer tx.Rollback(ctx)

	if err := fn(NewQueries(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapError(err, "commit transaction")
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// mapError converts driver errors into apperr kinds. Errors that are already
// typed pass through unchanged.
func mapError(err error, action string) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.Wrap(apperr.KindNotFound, action+": not found", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Wrap(apperr.KindDuplicateIdentifier,
				fmt.Sprintf("%s: duplicate value violates %s", action, pgErr.ConstraintName), err)
		case pgSerializationFailure, pgDeadlockDetected:
			return apperr.Wrap(apperr.KindTransitionFailed, action+": concurrent update aborted", err)
		}
	}

	return apperr.Wrap(apperr.KindStorageUnavailable, action, err)
}

func statusesToInt32(list []models.BookingStatus) []int32 {
	out := make([]int32, len(list))
	for i, s := range list {
		out[i] = int32(s)
	}
	return out
}

var (
	_ Store = (*SQLStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
