package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anandupg/Lyvo-Backend1-sub001/internal/middleware"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims jwt.MapClaims, secret []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

// identityEcho writes the identity the middleware attached, or 500.
func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "no identity", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(id))
	})
}

func TestJWTAuthMiddleware(t *testing.T) {
	authMiddleware, err := middleware.NewJWTAuthMiddleware(testSecret)
	require.NoError(t, err)
	handler := authMiddleware(identityEcho())

	t.Run("Valid bearer token", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{
			"id":  "507f1f77bcf86cd799439011",
			"exp": time.Now().Add(time.Hour).Unix(),
		}, testSecret)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "507f1f77bcf86cd799439011", rr.Body.String())
	})

	t.Run("Token in query parameter", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"id": "user-1"}, testSecret)

		req := httptest.NewRequest(http.MethodGet, "/ws/connect?token="+token, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "user-1", rr.Body.String())
	})

	t.Run("Legacy claim names", func(t *testing.T) {
		for _, claim := range []string{"userId", "_id", "sub"} {
			token := signToken(t, jwt.MapClaims{claim: "legacy-user"}, testSecret)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code, "claim %q should authenticate", claim)
			assert.Equal(t, "legacy-user", rr.Body.String())
		}
	})

	t.Run("Missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Wrong signing key", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"id": "user-1"}, []byte("other-secret"))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Expired token", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{
			"id":  "user-1",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}, testSecret)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Token without identity claim", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"role": "admin"}, testSecret)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Empty secret rejected at construction", func(t *testing.T) {
		_, err := middleware.NewJWTAuthMiddleware(nil)
		require.Error(t, err)
	})
}

func TestNoopAuth(t *testing.T) {
	t.Run("Injects fixed identity", func(t *testing.T) {
		handler := middleware.NoopAuth(true, "fixed-user")(identityEcho())
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "fixed-user", rr.Body.String())
	})

	t.Run("Unauthenticated mode rejects", func(t *testing.T) {
		handler := middleware.NoopAuth(false, "")(identityEcho())
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
