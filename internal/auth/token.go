package auth

import (
	"errors"
	"fmt"
	"time"

	appErrors "github.com/StrawThePie/expense-tracker-api/apperrors"
	"github.com/StrawThePie/expense-tracker-api/config"
	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and verifies the signed access tokens that gate the
// expense endpoints. Tokens carry the user id as subject plus an expiry;
// expiry is the only invalidation mechanism, there is no revocation list.
type TokenService struct {
	secret   []byte
	method   jwt.SigningMethod
	lifetime time.Duration
}

func NewTokenService(cfg config.Config) (*TokenService, error) {
	method := jwt.GetSigningMethod(cfg.JWTAlgorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm: %s", cfg.JWTAlgorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("signing algorithm %s is not a shared-secret scheme", cfg.JWTAlgorithm)
	}
	return &TokenService{
		secret:   []byte(cfg.JWTSecret),
		method:   method,
		lifetime: cfg.TokenLifetime,
	}, nil
}

func (ts *TokenService) Issue(userId string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userId,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ts.lifetime)),
	}

	token := jwt.NewWithClaims(ts.method, claims)
	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the user id the token
// was issued for.
func (ts *TokenService) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ts.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", appErrors.ErrorResponse{
				Code:    appErrors.ErrExpired,
				Message: "Your session expired, please login again.",
			}
		}
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Invalid token, please login.",
		}
	}

	if !token.Valid || claims.Subject == "" {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Invalid token, please login.",
		}
	}

	return claims.Subject, nil
}
