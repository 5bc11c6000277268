package models

import "time"

type Direction string

const (
	DirectionLoading   Direction = "loading"
	DirectionUnloading Direction = "unloading"
)

func (d Direction) Valid() bool {
	return d == DirectionLoading || d == DirectionUnloading
}

// TargetStatus is the status every referenced booking moves to.
func (d Direction) TargetStatus() BookingStatus {
	if d == DirectionUnloading {
		return StatusUnloaded
	}
	return StatusLoaded
}

// Manifest is one vehicle movement. It references bookings by GRN and never
// copies booking data.
type Manifest struct {
	ID          int64      `json:"id"`
	CompanyID   int64      `json:"companyId"`
	Direction   Direction  `json:"direction"`
	VoucherNo   int64      `json:"voucherNo"`
	VehicleNo   string     `json:"vehicleNo"`
	DriverName  string     `json:"driverName"`
	DriverPhone string     `json:"driverPhone"`
	FromBranch  string     `json:"fromBranch"`
	ToBranch    string     `json:"toBranch"`
	FromCity    string     `json:"fromCity"`
	ToCity      string     `json:"toCity"`
	DateFrom    *time.Time `json:"dateFrom,omitempty"`
	DateTo      *time.Time `json:"dateTo,omitempty"`
	GrnNos      []int64    `json:"grnNo"`
	LRNumbers   []string   `json:"lrNumber"`
	Remarks     string     `json:"remarks,omitempty"`
	CreatedBy   string     `json:"createdBy"`
	CreatedByID int64      `json:"createdById"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ManifestWithBookings is a manifest joined with its bookings in manifest order.
type ManifestWithBookings struct {
	Manifest
	Bookings []*Booking `json:"bookings"`
}

// CreateManifestRequest represents the request body for loading or unloading
type CreateManifestRequest struct {
	GrnNos      []int64    `json:"grnNo" validate:"required,min=1"`
	LRNumbers   []string   `json:"lrNumber"`
	VehicleNo   string     `json:"vehicleNo"`
	DriverName  string     `json:"driverName"`
	DriverPhone string     `json:"driverPhone"`
	FromBranch  string     `json:"fromBranch"`
	ToBranch    string     `json:"toBranch"`
	FromCity    string     `json:"fromCity"`
	ToCity      string     `json:"toCity"`
	DateFrom    *time.Time `json:"dateFrom"`
	DateTo      *time.Time `json:"dateTo"`
	Remarks     string     `json:"remarks"`
}

// UpdateManifestRequest holds the fields an admin may correct after creation
type UpdateManifestRequest struct {
	VehicleNo   *string `json:"vehicleNo"`
	DriverName  *string `json:"driverName"`
	DriverPhone *string `json:"driverPhone"`
	Remarks     *string `json:"remarks"`
}
