package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$2a$"))
	assert.True(t, CheckPassword(hash, "correct horse battery1"))
	assert.False(t, CheckPassword(hash, "wrong password"))
}

func TestHashPasswordSalts(t *testing.T) {
	first, err := HashPassword("samepassword1")
	require.NoError(t, err)
	second, err := HashPassword("samepassword1")
	require.NoError(t, err)

	// Each hash carries its own salt.
	assert.NotEqual(t, first, second)
	assert.True(t, CheckPassword(first, "samepassword1"))
	assert.True(t, CheckPassword(second, "samepassword1"))
}

func TestCheckPasswordBadHash(t *testing.T) {
	assert.False(t, CheckPassword("not-a-bcrypt-hash", "anything"))
	assert.False(t, CheckPassword("", "anything"))
}
