package todoapi_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	todoapi "github.com/goliatone/go-todo-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestKeyPEMs(t *testing.T, dir string, private *rsa.PrivateKey, public *rsa.PublicKey) (string, string) {
	t.Helper()

	privatePath := filepath.Join(dir, "private_key.pem")
	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(private),
	})
	require.NoError(t, os.WriteFile(privatePath, privatePEM, 0600))

	publicDER, err := x509.MarshalPKIXPublicKey(public)
	require.NoError(t, err)

	publicPath := filepath.Join(dir, "public_key.pem")
	publicPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	})
	require.NoError(t, os.WriteFile(publicPath, publicPEM, 0644))

	return privatePath, publicPath
}

func TestLoadKeyPair(t *testing.T) {
	private := testKeyPair(t).Private()

	t.Run("loads a matching pair", func(t *testing.T) {
		dir := t.TempDir()
		privatePath, publicPath := writeTestKeyPEMs(t, dir, private, &private.PublicKey)

		keys, err := todoapi.LoadKeyPair(privatePath, publicPath)

		require.NoError(t, err)
		assert.True(t, keys.Private().Equal(private))
		assert.True(t, keys.Public().Equal(&private.PublicKey))
	})

	t.Run("missing private key file", func(t *testing.T) {
		dir := t.TempDir()
		_, publicPath := writeTestKeyPEMs(t, dir, private, &private.PublicKey)

		_, err := todoapi.LoadKeyPair(filepath.Join(dir, "nope.pem"), publicPath)

		require.Error(t, err)
		assert.Equal(t, todoapi.TextCodeKeyLoad, todoapi.ErrorKind(err))
	})

	t.Run("malformed private key", func(t *testing.T) {
		dir := t.TempDir()
		_, publicPath := writeTestKeyPEMs(t, dir, private, &private.PublicKey)

		badPath := filepath.Join(dir, "bad.pem")
		require.NoError(t, os.WriteFile(badPath, []byte("-----BEGIN GARBAGE-----\nzm9v\n-----END GARBAGE-----\n"), 0600))

		_, err := todoapi.LoadKeyPair(badPath, publicPath)

		require.Error(t, err)
		assert.Equal(t, todoapi.TextCodeKeyLoad, todoapi.ErrorKind(err))
		// the failure must not echo key bytes
		assert.NotContains(t, err.Error(), "zm9v")
	})

	t.Run("mismatched pair", func(t *testing.T) {
		other := altKeyPair(t).Private()

		dir := t.TempDir()
		privatePath, _ := writeTestKeyPEMs(t, dir, private, &private.PublicKey)
		otherDir := t.TempDir()
		_, otherPublicPath := writeTestKeyPEMs(t, otherDir, other, &other.PublicKey)

		_, err := todoapi.LoadKeyPair(privatePath, otherPublicPath)

		require.Error(t, err)
		assert.Equal(t, todoapi.TextCodeKeyLoad, todoapi.ErrorKind(err))
	})
}

func TestNewKeyPair(t *testing.T) {
	private, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	t.Run("rejects nil keys", func(t *testing.T) {
		_, err := todoapi.NewKeyPair(nil, &private.PublicKey)
		assert.Error(t, err)

		_, err = todoapi.NewKeyPair(private, nil)
		assert.Error(t, err)
	})

	t.Run("accepts a matching pair", func(t *testing.T) {
		keys, err := todoapi.NewKeyPair(private, &private.PublicKey)
		require.NoError(t, err)
		assert.NotNil(t, keys)
	})
}
