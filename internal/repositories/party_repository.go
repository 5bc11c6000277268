package repositories

import (
	"context"

	"parcel-backend/internal/models"
)

// UpsertParty inserts the sender or, when the phone is already known for the
// company, refreshes its details and bumps the booking count.
func (q *Queries) UpsertParty(ctx context.Context, p *models.Party) error {
	err := q.db.QueryRow(ctx,
		`INSERT INTO parties(company_id, name, phone, gst, address, bookings)
		 VALUES($1, $2, $3, $4, $5, 1)
		 ON CONFLICT (company_id, phone) DO UPDATE
		 SET name = EXCLUDED.name,
		     gst = COALESCE(NULLIF(EXCLUDED.gst, ''), parties.gst),
		     address = COALESCE(NULLIF(EXCLUDED.address, ''), parties.address),
		     bookings = parties.bookings + 1,
		     updated_at = NOW()
		 RETURNING id, bookings, created_at, updated_at`,
		p.CompanyID, p.Name, p.Phone, p.GST, p.Address,
	).Scan(&p.ID, &p.Bookings, &p.CreatedAt, &p.UpdatedAt)
	return mapError(err, "upsert party")
}

func (q *Queries) GetPartyByPhone(ctx context.Context, companyID int64, phone string) (*models.Party, error) {
	var p models.Party
	err := q.db.QueryRow(ctx,
		`SELECT id, company_id, name, phone, gst, address, bookings, created_at, updated_at
		 FROM parties WHERE company_id = $1 AND phone = $2`,
		companyID, phone,
	).Scan(&p.ID, &p.CompanyID, &p.Name, &p.Phone, &p.GST, &p.Address, &p.Bookings, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "party "+phone)
	}
	return &p, nil
}
