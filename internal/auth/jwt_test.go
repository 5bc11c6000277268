package auth

import (
	"testing"

	"parcel-backend/internal/config"
	"parcel-backend/internal/models"
)

func testConfig(secret string) *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = secret
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.Issuer = "parcel-backend"
	return cfg
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewJWTManager(testConfig("s3cret"))
	in := models.Actor{
		UserID: 9, Name: "Ravi", CompanyID: 3, CompanyCode: "SK",
		Role: models.RoleEmployee, BranchID: "12", BranchCity: "Surat",
	}

	token, err := m.GenerateToken(in)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if got := claims.Actor(); got != in {
		t.Errorf("Actor() = %+v, want %+v", got, in)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	signer := NewJWTManager(testConfig("one"))
	verifier := NewJWTManager(testConfig("two"))

	token, _ := signer.GenerateToken(models.Actor{CompanyID: 1, Role: models.RoleAdmin})
	if _, err := verifier.ValidateToken(token); err == nil {
		t.Error("token signed with another secret accepted")
	}

	noCompany, _ := signer.GenerateToken(models.Actor{Role: models.RoleAdmin})
	if _, err := signer.ValidateToken(noCompany); err == nil {
		t.Error("token without company accepted")
	}

	if _, err := signer.ValidateToken("not-a-token"); err == nil {
		t.Error("garbage accepted")
	}
}
