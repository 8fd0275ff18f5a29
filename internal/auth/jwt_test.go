package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedirectRoundTrip(t *testing.T) {
	token, err := IssueRedirect("/attendances", "rushweb", "secret", time.Minute)
	require.NoError(t, err)

	from, err := ParseRedirect(token, "secret", "rushweb")
	require.NoError(t, err)
	assert.Equal(t, "/attendances", from)
}

func TestRedirectRejectsTampering(t *testing.T) {
	token, err := IssueRedirect("/me", "rushweb", "secret", time.Minute)
	require.NoError(t, err)

	_, err = ParseRedirect(token, "other-secret", "rushweb")
	assert.Error(t, err)

	_, err = ParseRedirect(token, "secret", "someone-else")
	assert.Error(t, err)

	expired, err := IssueRedirect("/me", "rushweb", "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseRedirect(expired, "secret", "rushweb")
	assert.Error(t, err)
}

func TestSafePath(t *testing.T) {
	assert.True(t, SafePath("/"))
	assert.True(t, SafePath("/sessions/abc?x=1"))
	assert.False(t, SafePath(""))
	assert.False(t, SafePath("https://evil.example"))
	assert.False(t, SafePath("//evil.example"))
	assert.False(t, SafePath("/\\evil.example"))

	_, err := IssueRedirect("https://evil.example", "rushweb", "secret", time.Minute)
	assert.ErrorIs(t, err, ErrUnsafeRedirect)
}
