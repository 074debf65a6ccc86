// Package auth validates the bearer tokens protecting the administrative API.
package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/omnibridge/asset-bridge/pkg/app/errors"
	apphttp "github.com/omnibridge/asset-bridge/pkg/app/http"
)

// JWTValidator validates HMAC-signed JWT tokens
type JWTValidator struct {
	secret []byte
	issuer string
}

// NewJWTValidator creates a validator for HS256 tokens signed with secret.
// An empty issuer disables issuer checking.
func NewJWTValidator(secret, issuer string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret), issuer: issuer}
}

// ValidateToken validates a JWT token and returns the claims
func (v *JWTValidator) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}

	if v.issuer != "" {
		iss, ok := claims["iss"].(string)
		if !ok || iss != v.issuer {
			return nil, fmt.Errorf("invalid issuer")
		}
	}

	return claims, nil
}

// Middleware rejects requests without a valid bearer token.
func (v *JWTValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "missing bearer token"))
			return
		}

		claims, err := v.ValidateToken(tokenString)
		if err != nil {
			apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(err, "invalid token"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}
