package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAndParseJWT(t *testing.T) {
	secret := []byte("test-secret-min-32-chars!!!!!!!!")
	tok, err := BuildJWT(secret, "Nuno Correia", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "Nuno Correia", claims.Name)
	assert.Equal(t, RolePractitioner, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestParseJWTRejectsWrongSecret(t *testing.T) {
	tok, err := BuildJWT([]byte("secret-a-com-32-caracteres!!!!!!"), "Nuno Correia", time.Hour)
	require.NoError(t, err)

	_, err = ParseJWT([]byte("secret-b-com-32-caracteres!!!!!!"), tok)
	assert.Error(t, err)
}

func TestParseJWTRejectsGarbage(t *testing.T) {
	_, err := ParseJWT([]byte("test-secret-min-32-chars!!!!!!!!"), "não é um token")
	assert.Error(t, err)
}

func TestClaimsContextRoundTrip(t *testing.T) {
	secret := []byte("test-secret-min-32-chars!!!!!!!!")
	tok, err := BuildJWT(secret, "Nuno Correia", time.Hour)
	require.NoError(t, err)
	claims, err := ParseJWT(secret, tok)
	require.NoError(t, err)

	ctx := WithClaims(context.Background(), claims)
	assert.Equal(t, "Nuno Correia", NameFrom(ctx))
	assert.Equal(t, "", NameFrom(context.Background()))
}
