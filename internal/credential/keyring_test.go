package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useArrayKeyring(t *testing.T) {
	t.Helper()

	ring := keyring.NewArrayKeyring(nil)
	orig := openKeyring
	openKeyring = func() (keyring.Keyring, error) { return ring, nil }
	t.Cleanup(func() { openKeyring = orig })
}

func TestKeyringRoundTrip(t *testing.T) {
	useArrayKeyring(t)
	key := TokenKey("default")

	_, err := Get(key)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, Set(key, "ghp_secret"))

	got, err := Get(key)
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret", got)

	tok, err := KeyringProvider{Account: "default"}.Token()
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret", tok)

	require.NoError(t, Delete(key))
	require.NoError(t, Delete(key), "deleting twice is fine")

	_, err = Get(key)
	assert.ErrorIs(t, err, ErrNotFound)
}
