package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("s3cret", time.Hour)
	token, err := tokens.GenerateToken("owner-1")
	require.NoError(t, err)

	claims, err := tokens.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.OwnerID)

	_, err = NewTokens("other", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokens("s3cret", time.Nanosecond)
	old, err := expired.GenerateToken("owner-1")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = expired.ValidateToken(old)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDisabledTokens(t *testing.T) {
	tokens := NewTokens("", 0)
	assert.False(t, tokens.Enabled())
	_, err := tokens.GenerateToken("owner-1")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestMiddleware(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = OwnerID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tokens := NewTokens("s3cret", time.Hour)
	handler := tokens.Middleware(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "detail")

	token, err := tokens.GenerateToken("owner-7")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "owner-7", seen)

	seen = "unset"
	rec = httptest.NewRecorder()
	NewTokens("", 0).Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "", seen)
}
