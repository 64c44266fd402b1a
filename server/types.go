package server

import (
	"context"

	"github.com/jaganraajan/projects-board/domain"
)

// Store abstracts persistence for handlers.
type Store interface {
	ListTasks(ctx context.Context, email string) ([]domain.Task, error)
	InsertTask(ctx context.Context, email string, t domain.Task) error
	UpdateTask(ctx context.Context, email, id string, patch domain.Patch) (domain.Task, error)
	DeleteTask(ctx context.Context, email, id string) error
	InsertAccount(ctx context.Context, account domain.Account, passwordHash string) error
	FetchAccount(ctx context.Context, email string) (domain.Account, string, error)
}

// NotFoundError is returned by stores when the addressed row does not exist.
type NotFoundError interface {
	error
	NotFound()
}

// ConflictError is returned by stores when an insert collides with an
// existing row.
type ConflictError interface {
	error
	Conflict()
}

// Authenticator is implemented by types able to extract account emails from
// Authorization headers.
type Authenticator interface {
	EmailFromAuthHeader(string) (string, error)
}

// TokenIssuer mints bearer tokens for authenticated accounts. Only local
// HS256 auth can issue; JWKS-backed auth delegates issuance to the identity
// provider.
type TokenIssuer interface {
	IssueToken(email, companyName string) (string, error)
}
