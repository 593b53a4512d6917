package secret

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifierPlain(t *testing.T) {
	v := NewVerifier("s3cret", "")
	require.True(t, v.Enabled())
	require.True(t, v.Verify("s3cret"))
	require.False(t, v.Verify("wrong"))
	require.False(t, v.Verify(""))
}

func TestVerifierHash(t *testing.T) {
	hash, err := Hash("s3cret")
	require.NoError(t, err)
	v := NewVerifier("", hash)
	require.True(t, v.Verify("s3cret"))
	require.False(t, v.Verify("s3cre"))
}

func TestVerifierDisabled(t *testing.T) {
	v := NewVerifier(" ", "")
	require.False(t, v.Enabled())
	require.True(t, v.Verify(""))
}
