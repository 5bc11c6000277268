package repositories

import (
	"context"
	"fmt"
	"strings"

	"parcel-backend/internal/apperr"
	"parcel-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

const manifestColumns = `id, company_id, direction, voucher_no, vehicle_no, driver_name, driver_phone,
	from_branch, to_branch, from_city, to_city, date_from, date_to, grn_nos, lr_numbers,
	remarks, created_by, created_by_id, created_at, updated_at`

func scanManifest(row pgx.Row) (*models.Manifest, error) {
	var m models.Manifest
	var direction string
	err := row.Scan(
		&m.ID, &m.CompanyID, &direction, &m.VoucherNo, &m.VehicleNo, &m.DriverName, &m.DriverPhone,
		&m.FromBranch, &m.ToBranch, &m.FromCity, &m.ToCity, &m.DateFrom, &m.DateTo, &m.GrnNos, &m.LRNumbers,
		&m.Remarks, &m.CreatedBy, &m.CreatedByID, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Direction = models.Direction(direction)
	return &m, nil
}

// InsertManifest stores a manifest. (company_id, direction, voucher_no) is
// unique, so a colliding random loading voucher surfaces as a duplicate.
func (q *Queries) InsertManifest(ctx context.Context, m *models.Manifest) error {
	lrNumbers := m.LRNumbers
	if lrNumbers == nil {
		lrNumbers = []string{}
	}
	err := q.db.QueryRow(ctx,
		`INSERT INTO manifests(company_id, direction, voucher_no, vehicle_no, driver_name, driver_phone,
			from_branch, to_branch, from_city, to_city, date_from, date_to, grn_nos, lr_numbers,
			remarks, created_by, created_by_id, created_at, updated_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18)
		 RETURNING id`,
		m.CompanyID, string(m.Direction), m.VoucherNo, m.VehicleNo, m.DriverName, m.DriverPhone, // $1-$6
		m.FromBranch, m.ToBranch, m.FromCity, m.ToCity, m.DateFrom, m.DateTo, // $7-$12
		m.GrnNos, lrNumbers, m.Remarks, m.CreatedBy, m.CreatedByID, m.CreatedAt, // $13-$18
	).Scan(&m.ID)
	if err != nil {
		return mapError(err, "insert manifest")
	}
	m.UpdatedAt = m.CreatedAt
	return nil
}

func (q *Queries) GetManifest(ctx context.Context, companyID int64, direction models.Direction, voucherNo int64) (*models.Manifest, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+manifestColumns+` FROM manifests
		 WHERE company_id = $1 AND direction = $2 AND voucher_no = $3`,
		companyID, string(direction), voucherNo)
	m, err := scanManifest(row)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("%s voucher %d", direction, voucherNo))
	}
	return m, nil
}

// ListManifests returns manifests matching f, newest first.
func (q *Queries) ListManifests(ctx context.Context, f models.ManifestFilter) ([]*models.Manifest, error) {
	where := []string{"company_id = $1"}
	args := []any{f.CompanyID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Direction != "" {
		add("direction = $%d", string(f.Direction))
	}
	if f.VoucherNo != 0 {
		add("voucher_no = $%d", f.VoucherNo)
	}
	if f.GrnNo != 0 {
		add("$%d = ANY(grn_nos)", f.GrnNo)
	}
	if f.FromBranch != "" {
		add("from_branch = $%d", f.FromBranch)
	}
	if f.ToBranch != "" {
		add("to_branch = $%d", f.ToBranch)
	}
	if f.FromCity != "" {
		add("from_city = $%d", f.FromCity)
	}
	if f.ToCity != "" {
		add("to_city = $%d", f.ToCity)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}

	query := `SELECT ` + manifestColumns + ` FROM manifests WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC, id DESC`
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
		return nil, mapError(err, "list manifests")
	}
	defer rows.Close()

	var manifests []*models.Manifest
	for rows.Next() {
		m, err := scanManifest(rows)
		if err != nil {
			return nil, mapError(err, "scan manifest")
		}
		manifests = append(manifests, m)
	}
	return manifests, mapError(rows.Err(), "list manifests")
}

// UpdateManifest rewrites the editable trip details. Referenced GRNs never change.
func (q *Queries) UpdateManifest(ctx context.Context, m *models.Manifest) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE manifests SET vehicle_no = $4, driver_name = $5, driver_phone = $6, remarks = $7, updated_at = $8
		 WHERE company_id = $1 AND direction = $2 AND voucher_no = $3`,
		m.CompanyID, string(m.Direction), m.VoucherNo, m.VehicleNo, m.DriverName, m.DriverPhone, m.Remarks, m.UpdatedAt)
	if err != nil {
		return mapError(err, "update manifest")
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.KindNotFound, "%s voucher %d not found", m.Direction, m.VoucherNo)
	}
	return nil
}

func (q *Queries) DeleteManifest(ctx context.Context, companyID int64, direction models.Direction, voucherNo int64) error {
	tag, err := q.db.Exec(ctx,
		`DELETE FROM manifests WHERE company_id = $1 AND direction = $2 AND voucher_no = $3`,
		companyID, string(direction), voucherNo)
	if err != nil {
		return mapError(err, "delete manifest")
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.KindNotFound, "%s voucher %d not found", direction, voucherNo)
	}
	return nil
}
