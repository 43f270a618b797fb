package todoapi_test

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	todoapi "github.com/goliatone/go-todo-api"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type staticConfig struct {
	ttl    time.Duration
	issuer string
}

func (c staticConfig) GetTokenTTL() time.Duration { return c.ttl }
func (c staticConfig) GetIssuer() string          { return c.issuer }

func newTestAuthenticator(t *testing.T, provider todoapi.IdentityProvider) *todoapi.Auther {
	t.Helper()
	return todoapi.NewAuthenticator(provider, testKeyPair(t), staticConfig{
		ttl:    time.Hour,
		issuer: "test-issuer",
	})
}

func TestAuther_Login(t *testing.T) {
	identity := testIdentity{id: uuid.NewString(), username: "frank", email: "frank@example.com"}

	t.Run("issues a token for valid credentials", func(t *testing.T) {
		provider := &MockIdentityProvider{}
		provider.On("VerifyIdentity", mock.Anything, "frank", "secret").
			Return(identity, nil)

		auther := newTestAuthenticator(t, provider)

		token, err := auther.Login(context.Background(), "frank", "secret")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := auther.TokenService().Validate(token)
		require.NoError(t, err)
		assert.Equal(t, identity.id, claims.UserID())
		assert.Equal(t, "frank", claims.Username())

		provider.AssertExpectations(t)
	})

	t.Run("unknown user and wrong password are indistinguishable", func(t *testing.T) {
		unknown := &MockIdentityProvider{}
		unknown.On("VerifyIdentity", mock.Anything, "ghost", "whatever").
			Return(nil, todoapi.ErrMismatchedHashAndPassword)

		wrongPwd := &MockIdentityProvider{}
		wrongPwd.On("VerifyIdentity", mock.Anything, "frank", "bad-password").
			Return(nil, todoapi.ErrMismatchedHashAndPassword)

		_, errUnknown := newTestAuthenticator(t, unknown).Login(context.Background(), "ghost", "whatever")
		_, errWrong := newTestAuthenticator(t, wrongPwd).Login(context.Background(), "frank", "bad-password")

		require.Error(t, errUnknown)
		require.Error(t, errWrong)
		assert.Equal(t, errUnknown.Error(), errWrong.Error())
		assert.Equal(t, todoapi.Classify(errUnknown), todoapi.Classify(errWrong))
	})

	t.Run("lockout error is passed through", func(t *testing.T) {
		provider := &MockIdentityProvider{}
		provider.On("VerifyIdentity", mock.Anything, "frank", "secret").
			Return(nil, todoapi.ErrTooManyLoginAttempts)

		_, err := newTestAuthenticator(t, provider).Login(context.Background(), "frank", "secret")

		assert.True(t, goerrors.Is(err, todoapi.ErrTooManyLoginAttempts))
	})

	t.Run("nil identity without error maps to invalid credentials", func(t *testing.T) {
		provider := &MockIdentityProvider{}
		provider.On("VerifyIdentity", mock.Anything, "frank", "secret").
			Return(nil, nil)

		_, err := newTestAuthenticator(t, provider).Login(context.Background(), "frank", "secret")

		assert.True(t, goerrors.Is(err, todoapi.ErrInvalidCredentials))
	})
}

func TestAuther_Authenticate(t *testing.T) {
	identity := testIdentity{id: uuid.NewString(), username: "frank"}

	issueToken := func(t *testing.T, auther *todoapi.Auther) string {
		token, err := auther.TokenService().Generate(identity)
		require.NoError(t, err)
		return token
	}

	t.Run("resolves the identity from a bearer header", func(t *testing.T) {
		provider := &MockIdentityProvider{}
		provider.On("FindIdentityByIdentifier", mock.Anything, identity.id).
			Return(identity, nil)

		auther := newTestAuthenticator(t, provider)
		token := issueToken(t, auther)

		got, err := auther.Authenticate(context.Background(), "Bearer "+token)
		require.NoError(t, err)
		assert.Equal(t, identity.id, got.ID())
		assert.Equal(t, "frank", got.Username())
	})

	t.Run("a deleted account invalidates its live token", func(t *testing.T) {
		provider := &MockIdentityProvider{}
		provider.On("FindIdentityByIdentifier", mock.Anything, identity.id).
			Return(nil, todoapi.ErrIdentityNotFound)

		auther := newTestAuthenticator(t, provider)
		token := issueToken(t, auther)

		_, err := auther.Authenticate(context.Background(), "Bearer "+token)
		require.Error(t, err)
		assert.Equal(t, todoapi.TextCodeTokenMalformed, todoapi.ErrorKind(err))
		assert.Equal(t, 401, todoapi.Classify(err).StatusCode)
	})

	t.Run("a deactivated account invalidates its live token", func(t *testing.T) {
		provider := &MockIdentityProvider{}
		provider.On("FindIdentityByIdentifier", mock.Anything, identity.id).
			Return(nil, todoapi.ErrAccountInactive)

		auther := newTestAuthenticator(t, provider)
		token := issueToken(t, auther)

		_, err := auther.Authenticate(context.Background(), "Bearer "+token)
		assert.True(t, goerrors.Is(err, todoapi.ErrAccountInactive))
		assert.Equal(t, 401, todoapi.Classify(err).StatusCode)
	})

	t.Run("missing header", func(t *testing.T) {
		auther := newTestAuthenticator(t, &MockIdentityProvider{})

		_, err := auther.Authenticate(context.Background(), "")
		assert.True(t, goerrors.Is(err, todoapi.ErrMissingToken))
	})

	t.Run("wrong scheme", func(t *testing.T) {
		auther := newTestAuthenticator(t, &MockIdentityProvider{})
		token := issueToken(t, auther)

		_, err := auther.Authenticate(context.Background(), "Basic "+token)
		assert.Equal(t, todoapi.TextCodeTokenMalformed, todoapi.ErrorKind(err))
	})

	t.Run("is idempotent", func(t *testing.T) {
		provider := &MockIdentityProvider{}
		provider.On("FindIdentityByIdentifier", mock.Anything, identity.id).
			Return(identity, nil)

		auther := newTestAuthenticator(t, provider)
		token := issueToken(t, auther)

		first, err := auther.Authenticate(context.Background(), "Bearer "+token)
		require.NoError(t, err)
		second, err := auther.Authenticate(context.Background(), "Bearer "+token)
		require.NoError(t, err)

		assert.Equal(t, first.ID(), second.ID())
	})
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantToken string
		wantKind  string
	}{
		{
			name:      "bearer token",
			header:    "Bearer abc.def.ghi",
			wantToken: "abc.def.ghi",
		},
		{
			name:      "case insensitive scheme",
			header:    "bearer abc.def.ghi",
			wantToken: "abc.def.ghi",
		},
		{
			name:     "empty header",
			header:   "",
			wantKind: todoapi.TextCodeMissingToken,
		},
		{
			name:     "whitespace header",
			header:   "   ",
			wantKind: todoapi.TextCodeMissingToken,
		},
		{
			name:     "missing scheme",
			header:   "abc.def.ghi",
			wantKind: todoapi.TextCodeTokenMalformed,
		},
		{
			name:     "wrong scheme",
			header:   "Basic abc.def.ghi",
			wantKind: todoapi.TextCodeTokenMalformed,
		},
		{
			name:     "scheme without token",
			header:   "Bearer ",
			wantKind: todoapi.TextCodeTokenMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := todoapi.ExtractBearerToken(tt.header)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, todoapi.ErrorKind(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}
