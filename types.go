package todoapi

import (
	"context"
	"fmt"
	"time"
)

// Logger is the logging seam. Args are treated as key value pairs the
// way log/slog does, the default fallback prints them verbatim.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Username() string
	Email() string
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (string, error)
	Authenticate(ctx context.Context, authorization string) (Identity, error)
}

// Config holds auth options
type Config interface {
	GetTokenTTL() time.Duration
	GetIssuer() string
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// TokenService issues and validates signed tokens
type TokenService interface {
	Generate(identity Identity) (string, error)
	GenerateWithTTL(identity Identity, ttl time.Duration) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidator is the read side of TokenService, all a route
// protection middleware needs
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	d.print("[ERR]", msg, args)
}

func (d defLogger) Warn(msg string, args ...any) {
	d.print("[WRN]", msg, args)
}

func (d defLogger) Info(msg string, args ...any) {
	d.print("[INF]", msg, args)
}

func (d defLogger) Debug(msg string, args ...any) {
	d.print("[DBG]", msg, args)
}

func (d defLogger) print(level, msg string, args []any) {
	if len(args) == 0 {
		fmt.Printf("%s TODOAPI %s\n", level, msg)
		return
	}
	fmt.Printf("%s TODOAPI %s %v\n", level, msg, args)
}
