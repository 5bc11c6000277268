package models

import "parcel-backend/internal/apperr"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSubadmin Role = "subadmin"
	RoleEmployee Role = "employee"
)

// Actor is the authenticated caller as supplied by the token claims.
type Actor struct {
	UserID      int64  `json:"userId"`
	Name        string `json:"name"`
	CompanyID   int64  `json:"companyId"`
	CompanyCode string `json:"companyCode"`
	Role        Role   `json:"role"`
	BranchID    string `json:"branchId"`
	BranchCity  string `json:"branchCity"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Scope is the slice of a company's bookings a caller may read.
// Empty fields are unrestricted.
type Scope struct {
	CompanyID    int64
	PickUpBranch string
	FromCity     string
}

var scopeRules = map[Role]func(a Actor) Scope{
	RoleAdmin: func(a Actor) Scope {
		return Scope{CompanyID: a.CompanyID}
	},
	RoleSubadmin: func(a Actor) Scope {
		return Scope{CompanyID: a.CompanyID, FromCity: a.BranchCity}
	},
	RoleEmployee: func(a Actor) Scope {
		return Scope{CompanyID: a.CompanyID, PickUpBranch: a.BranchID}
	},
}

// Scope resolves the read scope for the actor's role.
func (a Actor) Scope() (Scope, error) {
	rule, ok := scopeRules[a.Role]
	if !ok {
		return Scope{}, apperr.Forbidden("unknown role " + string(a.Role))
	}
	if a.CompanyID == 0 {
		return Scope{}, apperr.Forbidden("no company on token")
	}
	s := rule(a)
	if a.Role == RoleEmployee && s.PickUpBranch == "" {
		return Scope{}, apperr.Forbidden("employee token has no branch")
	}
	if a.Role == RoleSubadmin && s.FromCity == "" {
		return Scope{}, apperr.Forbidden("subadmin token has no branch city")
	}
	return s, nil
}

// Contains reports whether b falls inside the scope.
func (s Scope) Contains(b *Booking) bool {
	if b.CompanyID != s.CompanyID {
		return false
	}
	if s.PickUpBranch != "" && b.PickUpBranch != s.PickUpBranch {
		return false
	}
	if s.FromCity != "" && b.FromCity != s.FromCity {
		return false
	}
	return true
}

// Reaches reports whether b starts or ends inside the scope. Lookups of a
// single booking use it so the destination branch can unload and deliver
// inbound parcels; lists and reports stay on Contains.
func (s Scope) Reaches(b *Booking) bool {
	if b.CompanyID != s.CompanyID {
		return false
	}
	if s.PickUpBranch != "" && b.PickUpBranch != s.PickUpBranch && b.DropBranch != s.PickUpBranch {
		return false
	}
	if s.FromCity != "" && b.FromCity != s.FromCity && b.ToCity != s.FromCity {
		return false
	}
	return true
}

// Visible drops the bookings outside Reaches.
func (s Scope) Visible(bookings []*Booking) []*Booking {
	out := make([]*Booking, 0, len(bookings))
	for _, b := range bookings {
		if s.Reaches(b) {
			out = append(out, b)
		}
	}
	return out
}
