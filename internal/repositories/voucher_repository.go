package repositories

import (
	"context"
	"fmt"

	"parcel-backend/internal/models"
)

func (q *Queries) InsertVoucher(ctx context.Context, v *models.Voucher) error {
	err := q.db.QueryRow(ctx,
		`INSERT INTO vouchers(company_id, kind, voucher_no, grn_nos, agent, consignor, description,
			date_from, date_to, total_quantity, total_amount, created_by, created_by_id, created_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id`,
		v.CompanyID, string(v.Kind), v.VoucherNo, v.GrnNos, v.Agent, v.Consignor, v.Description,
		v.DateFrom, v.DateTo, v.TotalQuantity, v.TotalAmount, v.CreatedBy, v.CreatedByID, v.CreatedAt,
	).Scan(&v.ID)
	return mapError(err, "insert voucher")
}

func (q *Queries) GetVoucher(ctx context.Context, companyID int64, kind models.VoucherKind, voucherNo int64) (*models.Voucher, error) {
	var v models.Voucher
	var k string
	err := q.db.QueryRow(ctx,
		`SELECT id, company_id, kind, voucher_no, grn_nos, agent, consignor, description,
		        date_from, date_to, total_quantity, total_amount, created_by, created_by_id, created_at
		 FROM vouchers WHERE company_id = $1 AND kind = $2 AND voucher_no = $3`,
		companyID, string(kind), voucherNo,
	).Scan(&v.ID, &v.CompanyID, &k, &v.VoucherNo, &v.GrnNos, &v.Agent, &v.Consignor, &v.Description,
		&v.DateFrom, &v.DateTo, &v.TotalQuantity, &v.TotalAmount, &v.CreatedBy, &v.CreatedByID, &v.CreatedAt)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("%s voucher %d", kind, voucherNo))
	}
	v.Kind = models.VoucherKind(k)
	return &v, nil
}
