package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenService mints and parses signed session tokens. The registry treats
// tokens as opaque strings; the signature only lets the transport recover the
// identity claim without a lookup.
type TokenService interface {
	GenerateToken(identity string) (string, error)
	ParseIdentity(token string) (string, error)
}

type tokenService struct {
	secretKey string
}

func NewTokenService(secretKey string) TokenService {
	return &tokenService{
		secretKey: secretKey,
	}
}

func (that *tokenService) GenerateToken(identity string) (string, error) {
	claims := jwt.MapClaims{}
	claims["identity"] = identity
	claims["session_id"] = uuid.NewString()
	claims["iat"] = time.Now().Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(that.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (that *tokenService) ParseIdentity(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidToken, token.Header["alg"])
		}
		return []byte(that.secretKey), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	identity, ok := claims["identity"].(string)
	if !ok || identity == "" {
		return "", fmt.Errorf("%w: missing identity claim", ErrInvalidToken)
	}

	return identity, nil
}
