package utils

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"taskhive/config"
)

// Claims carries the identity minted by the external auth provider. Tokens
// are only ever verified here, never issued.
type Claims struct {
	AuthID string `json:"auth_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func ParseJWTToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
