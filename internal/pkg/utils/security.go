package utils

import (
	"consent-service/internal/pkg/exceptions"

	"github.com/golang-jwt/jwt/v4"
)

// ParseJWT verifies an HS256 token and returns its subject claim. An empty secret
// rejects every token.
func ParseJWT(tokenString, secret string) (string, error) {
	if secret == "" {
		return "", exceptions.ErrAuthSecretMissing()
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, exceptions.ErrAuthTokenInvalid(nil)
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", exceptions.ErrAuthTokenInvalid(err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		if subject, ok := claims["sub"].(string); ok && subject != "" {
			return subject, nil
		}
	}

	return "", exceptions.ErrAuthTokenInvalid(nil)
}
