// Package auth emite e valida os tokens de sessão do serviço. Há um único
// utilizador: o terapeuta da clínica, autenticado por password no arranque
// da aplicação desktop.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const RolePractitioner = "terapeuta"

// DefaultTokenTTL cobre um dia de consultório.
const DefaultTokenTTL = 12 * time.Hour

type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"nome"`
	Role string `json:"papel"`
}

// BuildJWT emite um token HS256 para o terapeuta.
func BuildJWT(secret []byte, name string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name: name,
		Role: RolePractitioner,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// ParseJWT valida o token e devolve as claims.
func ParseJWT(secret []byte, tokenString string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
