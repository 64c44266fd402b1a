package session

import (
	"errors"

	"github.com/golang-jwt/jwt/v4"
)

// Session is the credential/identity pair authorizing gateway calls. A nil
// session means local-only mode: no task ever reaches the wire.
type Session struct {
	Token       string
	Email       string
	CompanyName string
}

// Active reports whether the session carries a usable credential.
func (s *Session) Active() bool {
	return s != nil && s.Token != "" && s.Email != ""
}

var errMissingEmailClaim = errors.New("token missing email claim")

// FromToken builds a session by reading identity claims off the bearer token.
// The signature is not verified here; verification is the tenant service's
// job, the client only needs the identity for its headers.
func FromToken(token string) (*Session, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, errMissingEmailClaim
	}
	company, _ := claims["company_name"].(string)
	return &Session{Token: token, Email: email, CompanyName: company}, nil
}
