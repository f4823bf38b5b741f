package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordAndCheck(t *testing.T) {
	plain := "SenhaSecreta123!"
	hash, err := HashPassword(plain)
	require.NoError(t, err)
	assert.NotEqual(t, plain, hash)
	assert.True(t, CheckPassword(hash, plain))
	assert.False(t, CheckPassword(hash, "errada"))
	assert.False(t, CheckPassword("", plain))
}
