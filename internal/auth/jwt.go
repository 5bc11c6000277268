package auth

import (
	"errors"
	"time"

	"parcel-backend/internal/config"
	"parcel-backend/internal/models"
	"parcel-backend/internal/timeutil"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carry the identity the booking core trusts once the signature is
// verified.
type Claims struct {
	UserID      int64       `json:"userId"`
	Name        string      `json:"name"`
	CompanyID   int64       `json:"companyId"`
	CompanyCode string      `json:"companyCode"`
	Role        models.Role `json:"role"`
	BranchID    string      `json:"branchId"`
	BranchCity  string      `json:"branchCity"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into the caller identity used for scoping.
func (c *Claims) Actor() models.Actor {
	return models.Actor{
		UserID:      c.UserID,
		Name:        c.Name,
		CompanyID:   c.CompanyID,
		CompanyCode: c.CompanyCode,
		Role:        c.Role,
		BranchID:    c.BranchID,
		BranchCity:  c.BranchCity,
	}
}

type JWTManager struct {
	cfg *config.Config
}

func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{cfg: cfg}
}

// GenerateToken signs a token for an actor. Login lives in the account
// service; this is used by tooling and tests.
func (j *JWTManager) GenerateToken(a models.Actor) (string, error) {
	now := timeutil.Now()
	hours := j.cfg.JWT.ExpirationHours
	if hours <= 0 {
		hours = 24
	}

	claims := &Claims{
		UserID:      a.UserID,
		Name:        a.Name,
		CompanyID:   a.CompanyID,
		CompanyCode: a.CompanyCode,
		Role:        a.Role,
		BranchID:    a.BranchID,
		BranchCity:  a.BranchCity,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(hours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.cfg.JWT.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.cfg.JWT.Secret))
}

// ValidateToken verifies a JWT token and returns the claims
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(j.cfg.JWT.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.CompanyID == 0 {
		return nil, errors.New("token carries no company")
	}

	return claims, nil
}
