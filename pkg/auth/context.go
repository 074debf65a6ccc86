package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

// ContextKeyClaims is the context key for the validated token claims
const ContextKeyClaims contextKey = "claims"

// WithClaims adds the validated claims to the context
func WithClaims(ctx context.Context, claims jwt.MapClaims) context.Context {
	return context.WithValue(ctx, ContextKeyClaims, claims)
}

// ClaimsFromContext retrieves the validated claims from the context
func ClaimsFromContext(ctx context.Context) (jwt.MapClaims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(jwt.MapClaims)
	return claims, ok
}

// SubjectFromContext retrieves the token subject from the context
func SubjectFromContext(ctx context.Context) (string, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", false
	}
	sub, ok := claims["sub"].(string)
	return sub, ok
}
