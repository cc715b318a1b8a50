package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const adminSubject = "admin"

type Claims struct {
	IsAdmin   bool   `json:"admin"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func GenerateAdminToken(secret []byte, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		IsAdmin:   true,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminSubject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ParseToken(secret []byte, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
