package session

import (
	"testing"

	"github.com/golang-jwt/jwt/v4"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestFromToken(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"email": "dev@example.com", "company_name": "Acme"})

	s, err := FromToken(token)
	if err != nil {
		t.Fatalf("FromToken: %v", err)
	}
	if s.Email != "dev@example.com" || s.CompanyName != "Acme" {
		t.Fatalf("unexpected identity: %#v", s)
	}
	if s.Token != token {
		t.Fatalf("expected token to be retained")
	}
	if !s.Active() {
		t.Fatalf("expected session to be active")
	}
}

func TestFromTokenMissingEmail(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"company_name": "Acme"})
	if _, err := FromToken(token); err == nil {
		t.Fatalf("expected error for token without email claim")
	}
}

func TestFromTokenMalformed(t *testing.T) {
	if _, err := FromToken("not-a-jwt"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}

func TestActive(t *testing.T) {
	var nilSession *Session
	if nilSession.Active() {
		t.Fatalf("nil session must be inactive")
	}
	if (&Session{Email: "dev@example.com"}).Active() {
		t.Fatalf("session without token must be inactive")
	}
	if !(&Session{Token: "tok", Email: "dev@example.com"}).Active() {
		t.Fatalf("expected active session")
	}
}
