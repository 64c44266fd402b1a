package server

import (
	"errors"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

const defaultTokenTTL = 24 * time.Hour

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
	errIssuerUnavailable    = errors.New("token issuance requires local auth mode")
)

// Auth validates incoming JWT bearer tokens and resolves the account email
// from their claims. Two modes exist: local HS256 with a shared secret, and
// RS256 against a JWKS endpoint.
type Auth struct {
	jwks     *keyfunc.JWKS
	audience string
	issuer   string

	local    bool
	secret   []byte
	tokenTTL time.Duration

	parser *jwt.Parser
}

// NewAuth creates an Auth validating RS256 tokens against the given JWKS.
func NewAuth(jwks *keyfunc.JWKS, audience, issuer string) *Auth {
	return &Auth{
		jwks:     jwks,
		audience: audience,
		issuer:   issuer,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
	}
}

// NewLocalAuth creates an Auth validating and issuing HS256 tokens signed
// with the shared secret.
func NewLocalAuth(secret []byte) *Auth {
	if len(secret) == 0 {
		panic("server.NewLocalAuth: empty secret")
	}
	return &Auth{
		local:    true,
		secret:   secret,
		tokenTTL: defaultTokenTTL,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// EmailFromAuthHeader extracts the account email from the Authorization header.
func (a *Auth) EmailFromAuthHeader(h string) (string, error) {
	token, err := bearerTokenFromHeader(h)
	if err != nil {
		return "", err
	}

	var parsed *jwt.Token
	if a.local {
		parsed, err = a.parser.Parse(token, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return a.secret, nil
		})
	} else {
		parsed, err = a.parser.Parse(token, func(t *jwt.Token) (any, error) {
			if a.jwks == nil {
				return nil, errors.New("jwks not configured")
			}
			return a.jwks.Keyfunc(t)
		})
	}
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	now := time.Now().Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return "", errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return "", errors.New("token not valid yet")
	}
	if a.audience != "" && !claims.VerifyAudience(a.audience, false) {
		return "", errors.New("invalid audience")
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, false) {
		return "", errors.New("invalid issuer")
	}

	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return "", errors.New("missing email claim")
	}
	return email, nil
}

// IssueToken signs a bearer token for the account. Only valid in local mode.
func (a *Auth) IssueToken(email, companyName string) (string, error) {
	if !a.local {
		return "", errIssuerUnavailable
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(a.tokenTTL).Unix(),
	}
	if companyName != "" {
		claims["company_name"] = companyName
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func bearerTokenFromHeader(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errMissingAuthorization
	}
	const prefix = "Bearer "
	if len(trimmed) <= len(prefix) || !strings.EqualFold(trimmed[:len(prefix)], prefix) {
		return "", errBadAuthorization
	}
	token := trimmed[len(prefix):]
	if strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}
