package todoapi

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// Auther implements the Authenticator interface on top of an
// IdentityProvider and a TokenService.
type Auther struct {
	provider       IdentityProvider
	tokenService   TokenService
	tokenValidator TokenValidator
	ttl            time.Duration
	logger         Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, keys *KeyPair, opts Config) *Auther {
	tokenService := NewTokenService(
		keys,
		opts.GetTokenTTL(),
		opts.GetIssuer(),
		defLogger{},
	)

	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		ttl:          opts.GetTokenTTL(),
		logger:       defLogger{},
	}
}

// TokenTTL returns the lifetime of tokens issued by Login
func (s *Auther) TokenTTL() time.Duration {
	return s.ttl
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger == nil {
		return s
	}
	s.logger = logger
	if ts, ok := s.tokenService.(*TokenServiceImpl); ok {
		ts.logger = logger
	}
	return s
}

// WithTokenValidator sets a custom token validator for externally issued tokens.
func (s *Auther) WithTokenValidator(validator TokenValidator) *Auther {
	s.tokenValidator = validator
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials and issues a signed token. Failures
// from the provider come back as-is so unknown identifiers and wrong
// passwords stay indistinguishable.
func (s *Auther) Login(ctx context.Context, identifier, password string) (string, error) {
	var err error
	var identity Identity

	if identity, err = s.provider.VerifyIdentity(ctx, identifier, password); err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return "", ErrInvalidCredentials
	}

	token, err := s.tokenService.Generate(identity)
	if err != nil {
		s.logger.Error("Login token generation error", "error", err)
		return "", err
	}

	return token, nil
}

// Authenticate extracts and validates the bearer credential from an
// Authorization header value, then re-resolves the subject against the
// identity provider so accounts deleted or deactivated after issuance
// lose access immediately. It is read only: no attempt counters or
// login timestamps change, calling it any number of times observes
// the same result.
func (s *Auther) Authenticate(ctx context.Context, authorization string) (Identity, error) {
	raw, err := ExtractBearerToken(authorization)
	if err != nil {
		return nil, err
	}

	validator := s.tokenValidator
	if validator == nil {
		validator = s.tokenService
	}

	claims, err := validator.Validate(raw)
	if err != nil {
		return nil, err
	}

	identity, err := s.provider.FindIdentityByIdentifier(ctx, claims.UserID())
	if err != nil {
		// a vanished subject is indistinguishable from a bad token
		if errors.IsNotFound(err) || repository.IsRecordNotFound(err) {
			return nil, ErrTokenMalformed
		}
		return nil, err
	}

	return identity, nil
}

// AuthScheme is the expected Authorization credential scheme
const AuthScheme = "Bearer"

// ExtractBearerToken pulls the raw token out of an Authorization
// header value. Empty headers map to ErrMissingToken, anything that
// is not a bearer credential to ErrTokenMalformed.
func ExtractBearerToken(authorization string) (string, error) {
	if strings.TrimSpace(authorization) == "" {
		return "", ErrMissingToken
	}

	l := len(AuthScheme)
	if len(authorization) > l+1 && strings.EqualFold(authorization[:l], AuthScheme) && authorization[l] == ' ' {
		if token := strings.TrimSpace(authorization[l+1:]); token != "" {
			return token, nil
		}
	}

	return "", ErrTokenMalformed
}
