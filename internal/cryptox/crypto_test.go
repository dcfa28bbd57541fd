package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_DeterministicAndSaltSensitive(t *testing.T) {
	k1 := DeriveKey([]byte("install-secret"), []byte("salt-1"))
	k2 := DeriveKey([]byte("install-secret"), []byte("salt-1"))
	k3 := DeriveKey([]byte("install-secret"), []byte("salt-2"))

	assert.Len(t, k1, KeySize)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := DeriveKey([]byte("k"), []byte("s"))

	sealed, err := Seal([]byte("hello"), key)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(sealed, []byte("hello")))

	got, err := Open(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestSeal_FreshNonceEachTime(t *testing.T) {
	key := DeriveKey([]byte("k"), []byte("s"))

	a, err := Seal([]byte("same"), key)
	require.NoError(t, err)
	b, err := Seal([]byte("same"), key)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpen_WrongKeyFails(t *testing.T) {
	sealed, err := Seal([]byte("secret"), DeriveKey([]byte("a"), []byte("s")))
	require.NoError(t, err)

	_, err = Open(sealed, DeriveKey([]byte("b"), []byte("s")))
	require.Error(t, err)
}

func TestOpen_TooShort(t *testing.T) {
	_, err := Open([]byte{1, 2}, DeriveKey([]byte("a"), []byte("s")))
	require.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestSeal_BadKeyLength(t *testing.T) {
	_, err := Seal([]byte("x"), []byte("short"))
	require.Error(t, err)
}

func TestSealJSON_OpenJSON(t *testing.T) {
	type pair struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	key := DeriveKey([]byte("k"), []byte("s"))

	sealed, err := SealJSON(pair{Username: "maria", Password: "p@ss"}, key)
	require.NoError(t, err)

	var got pair
	require.NoError(t, OpenJSON(sealed, key, &got))
	assert.Equal(t, pair{Username: "maria", Password: "p@ss"}, got)
}

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3}
	Wipe(b)
	assert.Equal(t, []byte{0, 0, 0}, b)
	Wipe(nil)
}

func TestRandomBytes(t *testing.T) {
	b, err := RandomBytes(16)
	require.NoError(t, err)
	assert.Len(t, b, 16)
}
