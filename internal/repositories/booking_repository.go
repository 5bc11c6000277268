package repositories

import (
	"context"
	"fmt"
	"strings"

	"parcel-backend/internal/apperr"
	"parcel-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

const bookingColumns = `id, company_id, grn_no, lr_number, eway_bill_no, receipt_no,
	from_city, to_city, pick_up_branch, pick_up_branch_name, drop_branch, drop_branch_name,
	dispatch_type, booking_type,
	packages, total_quantity, total_weight, freight, hamali_charge, door_delivery_charge,
	other_charge, grand_total,
	sender_name, sender_phone, sender_gst, sender_address,
	receiver_name, receiver_phone, receiver_gst, receiver_address,
	booking_status, booking_date, booked_by, booked_by_id,
	lt_branch, lt_city, lt_employee, lt_at,
	loading_branch, loading_city, loading_employee, loading_at, loading_voucher_no,
	unloading_branch, unloading_city, unloading_employee, unloading_at, unloading_voucher_no,
	delivery_branch, delivery_city, delivery_employee, delivery_at, delivered_to, delivery_remarks,
	cancel_branch, cancel_city, cancel_employee, cancel_at, refund_charge, refund_amount, cancel_remarks,
	missing_branch, missing_city, missing_employee, missing_at,
	credit_voucher_no, collection_voucher_no, created_at, updated_at`

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	var bookingType string
	var status int16
	err := row.Scan(
		&b.ID, &b.CompanyID, &b.GrnNo, &b.LRNumber, &b.EWayBillNo, &b.ReceiptNo,
		&b.FromCity, &b.ToCity, &b.PickUpBranch, &b.PickUpBranchName, &b.DropBranch, &b.DropBranchName,
		&b.DispatchType, &bookingType,
		&b.Packages, &b.TotalQuantity, &b.TotalWeight, &b.Freight, &b.HamaliCharge, &b.DoorDeliveryCharge,
		&b.OtherCharge, &b.GrandTotal,
		&b.SenderName, &b.SenderPhone, &b.SenderGST, &b.SenderAddress,
		&b.ReceiverName, &b.ReceiverPhone, &b.ReceiverGST, &b.ReceiverAddress,
		&status, &b.BookingDate, &b.BookedBy, &b.BookedByID,
		&b.LastTransaction.Branch, &b.LastTransaction.City, &b.LastTransaction.Employee, &b.LastTransaction.At,
		&b.Loading.Branch, &b.Loading.City, &b.Loading.Employee, &b.Loading.At, &b.LoadingVoucherNo,
		&b.Unloading.Branch, &b.Unloading.City, &b.Unloading.Employee, &b.Unloading.At, &b.UnloadingVoucherNo,
		&b.Delivery.Branch, &b.Delivery.City, &b.Delivery.Employee, &b.Delivery.At, &b.DeliveredTo, &b.DeliveryRemarks,
		&b.Cancellation.Branch, &b.Cancellation.City, &b.Cancellation.Employee, &b.Cancellation.At,
		&b.RefundCharge, &b.RefundAmount, &b.CancelRemarks,
		&b.Missing.Branch, &b.Missing.City, &b.Missing.Employee, &b.Missing.At,
		&b.CreditVoucherNo, &b.CollectionVoucherNo, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.BookingType = models.BookingType(bookingType)
	b.BookingStatus = models.BookingStatus(status)
	return &b, nil
}

// InsertBooking stores a new booking. Identifier columns carry unique
// indexes; a collision surfaces as a duplicate identifier error.
func (q *Queries) InsertBooking(ctx context.Context, b *models.Booking) error {
	err := q.db.QueryRow(ctx,
		`INSERT INTO bookings(
			company_id, grn_no, lr_number, eway_bill_no, receipt_no,
			from_city, to_city, pick_up_branch, pick_up_branch_name, drop_branch, drop_branch_name,
			dispatch_type, booking_type,
			packages, total_quantity, total_weight, freight, hamali_charge, door_delivery_charge,
			other_charge, grand_total,
			sender_name, sender_phone, sender_gst, sender_address,
			receiver_name, receiver_phone, receiver_gst, receiver_address,
			booking_status, booking_date, booked_by, booked_by_id)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33)
		RETURNING id, created_at, updated_at`,
		b.CompanyID, b.GrnNo, b.LRNumber, b.EWayBillNo, b.ReceiptNo, // $1-$5
		b.FromCity, b.ToCity, b.PickUpBranch, b.PickUpBranchName, b.DropBranch, b.DropBranchName, // $6-$11
		b.DispatchType, string(b.BookingType), // $12-$13
		b.Packages, b.TotalQuantity, b.TotalWeight, b.Freight, b.HamaliCharge, b.DoorDeliveryCharge, // $14-$19
		b.OtherCharge, b.GrandTotal, // $20-$21
		b.SenderName, b.SenderPhone, b.SenderGST, b.SenderAddress, // $22-$25
		b.ReceiverName, b.ReceiverPhone, b.ReceiverGST, b.ReceiverAddress, // $26-$29
		int16(b.BookingStatus), b.BookingDate, b.BookedBy, b.BookedByID, // $30-$33
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	return mapError(err, "insert booking")
}

func (q *Queries) GetBooking(ctx context.Context, companyID, id int64) (*models.Booking, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE company_id = $1 AND id = $2`,
		companyID, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("booking %d", id))
	}
	return b, nil
}

func (q *Queries) GetBookingByGRN(ctx context.Context, companyID, grnNo int64) (*models.Booking, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE company_id = $1 AND grn_no = $2`,
		companyID, grnNo)
	b, err := scanBooking(row)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("GRN %d", grnNo))
	}
	return b, nil
}

// ListBookings returns bookings matching f ordered by GRN.
func (q *Queries) ListBookings(ctx context.Context, f models.BookingFilter) ([]*models.Booking, error) {
	where := []string{"company_id = $1"}
	args := []any{f.CompanyID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if len(f.GrnNos) > 0 {
		add("grn_no = ANY($%d)", f.GrnNos)
	}
	if f.PickUpBranch != "" {
		add("pick_up_branch = $%d", f.PickUpBranch)
	}
	if f.DropBranch != "" {
		add("drop_branch = $%d", f.DropBranch)
	}
	if f.FromCity != "" {
		add("from_city = $%d", f.FromCity)
	}
	if f.ToCity != "" {
		add("to_city = $%d", f.ToCity)
	}
	if f.BookingType != "" {
		add("booking_type = $%d", string(f.BookingType))
	}
	if len(f.Statuses) > 0 {
		add("booking_status = ANY($%d)", statusesToInt32(f.Statuses))
	}
	if f.SenderName != "" {
		add("sender_name = $%d", f.SenderName)
	}
	if f.From != nil {
		add("booking_date >= $%d", *f.From)
	}
	if f.To != nil {
		add("booking_date <= $%d", *f.To)
	}
	if f.WithoutCreditVoucher {
		where = append(where, "credit_voucher_no = 0")
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + strings.Join(where, " AND ") + ` ORDER BY grn_no`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "list bookings")
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, mapError(err, "scan booking")
		}
		bookings = append(bookings, b)
	}
	return bookings, mapError(rows.Err(), "list bookings")
}

// transitionSet returns the SET clause and its arguments for t. Arguments
// $1-$8 are fixed by ApplyTransition; the returned ones start at $9.
func transitionSet(t models.Transition) (string, []any) {
	const lastTransaction = `lt_branch = $5, lt_city = $6, lt_employee = $7, lt_at = $8`

	switch t.To {
	case models.StatusLoaded:
		return lastTransaction + `, loading_branch = $5, loading_city = $6, loading_employee = $7,
			loading_at = $8, loading_voucher_no = $9`, []any{t.VoucherNo}
	case models.StatusUnloaded:
		return lastTransaction + `, unloading_branch = $5, unloading_city = $6, unloading_employee = $7,
			unloading_at = $8, unloading_voucher_no = $9`, []any{t.VoucherNo}
	case models.StatusDelivered:
		return lastTransaction + `, delivery_branch = $5, delivery_city = $6, delivery_employee = $7,
			delivery_at = $8, delivered_to = $9, delivery_remarks = $10`, []any{t.DeliveredTo, t.Remarks}
	case models.StatusCancelled:
		return `cancel_branch = $5, cancel_city = $6, cancel_employee = $7, cancel_at = $8,
			refund_charge = $9, refund_amount = $10, cancel_remarks = $11`,
			[]any{t.RefundCharge, t.RefundAmount, t.Remarks}
	case models.StatusMissing:
		return `missing_branch = $5, missing_city = $6, missing_employee = $7, missing_at = $8`, nil
	}
	return "", nil
}

// ApplyTransition moves every listed GRN whose current status allows it to
// t.To and returns how many rows changed. The status predicate makes the
// update a compare-and-set: a booking moved by a concurrent writer is not
// counted.
func (q *Queries) ApplyTransition(ctx context.Context, companyID int64, grnNos []int64, t models.Transition) (int64, error) {
	set, extra := transitionSet(t)
	if set == "" {
		return 0, apperr.Validation("status %d is not a transition target", t.To)
	}

	args := []any{
		companyID,                        // $1
		grnNos,                           // $2
		statusesToInt32(t.AllowedFrom()), // $3
		int16(t.To),                      // $4
		t.Branch,                         // $5
		t.City,                           // $6
		t.By,                             // $7
		t.At,                             // $8
	}
	args = append(args, extra...)

	tag, err := q.db.Exec(ctx,
		`UPDATE bookings SET booking_status = $4, updated_at = $8, `+set+`
		 WHERE company_id = $1 AND grn_no = ANY($2) AND booking_status = ANY($3)`,
		args...)
	if err != nil {
		return 0, mapError(err, "apply transition")
	}
	return tag.RowsAffected(), nil
}

// SetVoucherMarker records voucherNo on every listed, uncancelled GRN that
// does not yet carry a voucher of the same kind.
func (q *Queries) SetVoucherMarker(ctx context.Context, companyID int64, grnNos []int64, kind models.VoucherKind, voucherNo int64) (int64, error) {
	column := "credit_voucher_no"
	if kind == models.VoucherCollection {
		column = "collection_voucher_no"
	}

	tag, err := q.db.Exec(ctx,
		`UPDATE bookings SET `+column+` = $3, updated_at = NOW()
		 WHERE company_id = $1 AND grn_no = ANY($2) AND `+column+` = 0 AND booking_status <> $4`,
		companyID, grnNos, voucherNo, int16(models.StatusCancelled))
	if err != nil {
		return 0, mapError(err, "set voucher marker")
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) DeleteBooking(ctx context.Context, companyID, id int64) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM bookings WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return mapError(err, "delete booking")
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.KindNotFound, "booking %d not found", id)
	}
	return nil
}
