package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnibridge/asset-bridge/pkg/auth"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	v := auth.NewJWTValidator(testSecret, "bridged")

	t.Run("valid token", func(t *testing.T) {
		tokenString := signToken(t, testSecret, jwt.MapClaims{
			"iss": "bridged",
			"sub": "operator",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		claims, err := v.ValidateToken(tokenString)
		require.NoError(t, err)
		assert.Equal(t, "operator", claims["sub"])
	})

	t.Run("wrong secret", func(t *testing.T) {
		tokenString := signToken(t, "other-secret", jwt.MapClaims{"iss": "bridged"})
		_, err := v.ValidateToken(tokenString)
		require.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		tokenString := signToken(t, testSecret, jwt.MapClaims{"iss": "someone-else"})
		_, err := v.ValidateToken(tokenString)
		require.ErrorContains(t, err, "issuer")
	})

	t.Run("expired token", func(t *testing.T) {
		tokenString := signToken(t, testSecret, jwt.MapClaims{
			"iss": "bridged",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		_, err := v.ValidateToken(tokenString)
		require.Error(t, err)
	})

	t.Run("issuer check disabled when unset", func(t *testing.T) {
		open := auth.NewJWTValidator(testSecret, "")
		tokenString := signToken(t, testSecret, jwt.MapClaims{"iss": "anyone"})
		_, err := open.ValidateToken(tokenString)
		require.NoError(t, err)
	})
}

func TestMiddleware(t *testing.T) {
	v := auth.NewJWTValidator(testSecret, "")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, ok := auth.SubjectFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "operator", sub)
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("passes valid bearer token and exposes claims", func(t *testing.T) {
		tokenString := signToken(t, testSecret, jwt.MapClaims{"sub": "operator"})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		rec := httptest.NewRecorder()

		v.Middleware(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("rejects missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		v.Middleware(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()

		v.Middleware(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
