package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func mintToken(t *testing.T, claims jwt.MapClaims, secret []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString(secret)
	require.NoError(t, err)
	return raw
}

func TestHS256VerifierAcceptsValidToken(t *testing.T) {
	t.Parallel()

	raw := mintToken(t, jwt.MapClaims{
		"sub":   "u1",
		"email": "alice@example.com",
		"name":  "Alice",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	id, err := HS256Verifier{Secret: testSecret}.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "u1", id.UID)
	require.Equal(t, "alice@example.com", id.Email)
	require.Equal(t, "Alice", id.Name)
}

func TestHS256VerifierRejections(t *testing.T) {
	t.Parallel()

	v := HS256Verifier{Secret: testSecret}
	future := time.Now().Add(time.Hour).Unix()

	t.Run("wrong secret", func(t *testing.T) {
		raw := mintToken(t, jwt.MapClaims{"sub": "u1", "exp": future}, []byte("other"))
		_, err := v.Verify(raw)
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		raw := mintToken(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()}, testSecret)
		_, err := v.Verify(raw)
		require.Error(t, err)
	})

	t.Run("missing exp", func(t *testing.T) {
		raw := mintToken(t, jwt.MapClaims{"sub": "u1"}, testSecret)
		_, err := v.Verify(raw)
		require.Error(t, err)
	})

	t.Run("missing sub", func(t *testing.T) {
		raw := mintToken(t, jwt.MapClaims{"exp": future}, testSecret)
		_, err := v.Verify(raw)
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify("not.a.token")
		require.Error(t, err)
	})
}

func TestAuthnMiddleware(t *testing.T) {
	t.Parallel()

	v := HS256Verifier{Secret: testSecret}
	raw := mintToken(t, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	var gotUID string
	handler := AuthnMiddleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUID = UserIDFromCtx(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "u1", gotUID)
	})

	t.Run("query token fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/me/feed?access_token="+raw, nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})
}
