// Package jwtware protects fiber routes behind bearer token
// validation. Validated claims land in the request locals and the
// request context so downstream handlers can resolve the caller.
package jwtware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	todoapi "github.com/goliatone/go-todo-api"
)

var defaultTokenLookup = "header:" + fiber.HeaderAuthorization

// IdentityVerifier re-checks the subject behind validated claims, so
// accounts deleted or deactivated after the token was issued stop
// passing. Implementations must be read only.
type IdentityVerifier interface {
	FindIdentityByIdentifier(ctx context.Context, identifier string) (todoapi.Identity, error)
}

type Config struct {
	// Filter defines a function to skip the middleware
	Filter func(*fiber.Ctx) bool
	// SuccessHandler runs after validation succeeds, defaults to Next
	SuccessHandler fiber.Handler
	// ErrorHandler turns validation failures into responses. The
	// default returns the error so the app level handler classifies it.
	ErrorHandler fiber.ErrorHandler
	// TokenValidator is required for token validation
	TokenValidator todoapi.TokenValidator
	// IdentityVerifier re-resolves the token subject on every request
	// when set. Optional, but without it a live token outlives its
	// account.
	IdentityVerifier IdentityVerifier
	// ContextKey is the locals key validated claims are stored under
	ContextKey string
	// TokenLookup is a comma separated list of "<source>:<name>"
	// entries, e.g. "header:Authorization,query:token,cookie:token"
	TokenLookup string
	// AuthScheme is the credential scheme expected in the header source
	AuthScheme string
}

// JWTExtractor pulls a raw token string out of a request
type JWTExtractor func(*fiber.Ctx) (string, error)

// New builds the route protection middleware
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := extractRawToken(c, extractors)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.TokenValidator.Validate(raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		identity := todoapi.IdentityFromClaims(claims)
		if cfg.IdentityVerifier != nil {
			resolved, err := cfg.IdentityVerifier.FindIdentityByIdentifier(c.UserContext(), claims.UserID())
			if err != nil {
				return cfg.ErrorHandler(c, verifierError(err))
			}
			identity = resolved
		}

		c.Locals(cfg.ContextKey, claims)
		c.SetUserContext(enrichContext(c.UserContext(), claims, identity))

		return cfg.SuccessHandler(c)
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenValidator == nil {
		panic("TODOAPI: JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			return err
		}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = todoapi.LocalIdentityKey
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = todoapi.AuthScheme
	}

	return cfg
}

func (cfg Config) getExtractors() []JWTExtractor {
	extractors := []JWTExtractor{}

	for _, lookup := range strings.Split(cfg.TokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(lookup), ":", 2)
		if len(parts) != 2 {
			continue
		}

		source, name := parts[0], parts[1]
		switch source {
		case "header":
			extractors = append(extractors, fromHeader(name, cfg.AuthScheme))
		case "query":
			extractors = append(extractors, fromQuery(name))
		case "cookie":
			extractors = append(extractors, fromCookie(name))
		}
	}

	if len(extractors) == 0 {
		extractors = append(extractors, fromHeader(fiber.HeaderAuthorization, cfg.AuthScheme))
	}

	return extractors
}

func extractRawToken(c *fiber.Ctx, extractors []JWTExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(c)
		if raw != "" && err == nil {
			return raw, nil
		}
	}

	if err == nil {
		err = todoapi.ErrMissingToken
	}

	return "", err
}

func fromHeader(header, authScheme string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		value := c.Get(header)
		if value == "" {
			return "", todoapi.ErrMissingToken
		}

		l := len(authScheme)
		if len(value) > l+1 && strings.EqualFold(value[:l], authScheme) && value[l] == ' ' {
			if token := strings.TrimSpace(value[l+1:]); token != "" {
				return token, nil
			}
		}

		return "", todoapi.ErrTokenMalformed
	}
}

func fromQuery(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", todoapi.ErrMissingToken
		}
		return token, nil
	}
}

func fromCookie(name string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", todoapi.ErrMissingToken
		}
		return token, nil
	}
}

func enrichContext(ctx context.Context, claims todoapi.AuthClaims, identity todoapi.Identity) context.Context {
	ctx = todoapi.WithClaims(ctx, claims)
	return todoapi.WithIdentity(ctx, identity)
}

// verifierError keeps the response uniform: a subject that no longer
// resolves reads the same as a bad token, other failures, e.g. an
// inactive account, already carry their own status.
func verifierError(err error) error {
	if goerrors.IsNotFound(err) {
		return todoapi.ErrTokenMalformed
	}
	return err
}
