package cryptobox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	box, err := New("message-key")
	require.NoError(t, err)

	sealed, err := box.Seal("see you at the library", "m1")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "library")

	again, err := box.Seal("see you at the library", "m1")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonces are random")

	plain, err := box.Open(sealed, "m1")
	require.NoError(t, err)
	assert.Equal(t, "see you at the library", plain)
}

func TestOpenRejects(t *testing.T) {
	box, err := New("message-key")
	require.NoError(t, err)
	other, err := New("other-key")
	require.NoError(t, err)

	sealed, err := box.Seal("hi", "m1")
	require.NoError(t, err)

	_, err = box.Open(sealed, "m2")
	assert.Error(t, err, "aad mismatch")
	_, err = other.Open(sealed, "m1")
	assert.Error(t, err, "key mismatch")
	_, err = box.Open("!!!", "m1")
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = box.Open("c2hvcnQ=", "m1")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
