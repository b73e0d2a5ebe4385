package auth

import (
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestSignAndVerify(t *testing.T) {
	signer := NewSigner(testSecret, "ris-server")

	token, err := signer.Sign("user-1", []string{"admin", "doctor"}, "", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q", claims.Subject)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "admin" {
		t.Errorf("roles = %v", claims.Roles)
	}
	if claims.PatientID != "" {
		t.Errorf("patient id should be empty, got %q", claims.PatientID)
	}
}

func TestPortalTokenCarriesPatientID(t *testing.T) {
	signer := NewSigner(testSecret, "ris-server")

	token, err := signer.Sign("PT-1700000000000", []string{"patient"}, "abc-123", 30*time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.PatientID != "abc-123" {
		t.Errorf("patient id = %q", claims.PatientID)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	signer := NewSigner(testSecret, "ris-server")

	token, err := signer.Sign("user-1", []string{"admin"}, "", -time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := signer.Verify(token); err == nil {
		t.Error("expired token verified")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer := NewSigner(testSecret, "ris-server")
	other := NewSigner("ffffffffffffffffffffffffffffffff", "ris-server")

	token, err := signer.Sign("user-1", []string{"admin"}, "", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := other.Verify(token); err == nil {
		t.Error("token verified with the wrong secret")
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	signer := NewSigner(testSecret, "ris-server")
	other := NewSigner(testSecret, "someone-else")

	token, err := other.Sign("user-1", []string{"admin"}, "", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := signer.Verify(token); err == nil {
		t.Error("token verified with the wrong issuer")
	}
}
