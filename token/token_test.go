package token

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "super-secret-signing-key"

func TestVerify_RoundTrip(t *testing.T) {
	signed, err := Sign(testSecret, "u1", "adm@library.local", "shelfmate", time.Hour)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	claims, err := NewVerifier(testSecret).Verify(signed)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if claims.Subject != "u1" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "u1")
	}
	if claims.Email != "adm@library.local" {
		t.Errorf("Email = %q, want %q", claims.Email, "adm@library.local")
	}
	if time.Until(claims.ExpiresAt) < 50*time.Minute {
		t.Errorf("ExpiresAt = %v, want roughly an hour out", claims.ExpiresAt)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	signed, _ := Sign(testSecret, "u1", "", "", time.Hour)

	if _, err := NewVerifier("other-secret").Verify(signed); err == nil {
		t.Fatal("Verify() should reject a token signed with a different secret")
	}
}

func TestVerify_Expired(t *testing.T) {
	signed, _ := Sign(testSecret, "u1", "", "", -time.Minute)

	if _, err := NewVerifier(testSecret).Verify(signed); err == nil {
		t.Fatal("Verify() should reject an expired token")
	}
}

func TestVerify_IssuerMismatch(t *testing.T) {
	signed, _ := Sign(testSecret, "u1", "", "someone-else", time.Hour)

	v := NewVerifier(testSecret, WithIssuer("shelfmate"))
	if _, err := v.Verify(signed); err == nil {
		t.Fatal("Verify() should reject a token with the wrong issuer")
	}
}

func TestVerify_Garbage(t *testing.T) {
	if _, err := NewVerifier(testSecret).Verify("not.a.token"); err == nil {
		t.Fatal("Verify() should reject garbage input")
	}
	if _, err := NewVerifier(testSecret).Verify(strings.Repeat("x", 64)); err == nil {
		t.Fatal("Verify() should reject non-JWT input")
	}
}
