package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func guarded(t *testing.T) http.Handler {
	t.Helper()
	g, err := newGuard("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	return g.RequireToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func do(h http.Handler, token string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stats/reset", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireToken(t *testing.T) {
	h := guarded(t)
	assert.Equal(t, http.StatusUnauthorized, do(h, ""))
	assert.Equal(t, http.StatusUnauthorized, do(h, "wrong"))
	assert.Equal(t, http.StatusNoContent, do(h, "s3cret"))
}

func TestRequireTokenBlocksAfterFailures(t *testing.T) {
	h := guarded(t)
	for i := 0; i < maxFailures; i++ {
		assert.Equal(t, http.StatusUnauthorized, do(h, "nope"))
	}
	assert.Equal(t, http.StatusTooManyRequests, do(h, "s3cret"))
}

func TestNewGuardRejectsEmptyToken(t *testing.T) {
	_, err := NewGuard("")
	assert.Error(t, err)
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := hashWithCost("pw", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, CheckPassword("pw", hash))
	assert.False(t, CheckPassword("pw2", hash))
}

func TestAttemptsWindow(t *testing.T) {
	a := NewAttempts()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		a.Track("1.2.3.4", false)
	}
	assert.True(t, a.IsBlocked("1.2.3.4", 3, time.Minute))
	assert.False(t, a.IsBlocked("5.6.7.8", 3, time.Minute))

	now = now.Add(2 * time.Minute)
	assert.False(t, a.IsBlocked("1.2.3.4", 3, time.Minute))

	now = now.Add(25 * time.Hour)
	a.CleanOld()
	assert.Empty(t, a.failures)

	a.Track("1.2.3.4", false)
	a.Track("1.2.3.4", true)
	assert.False(t, a.IsBlocked("1.2.3.4", 1, time.Hour))
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer abc ")
	assert.Equal(t, "abc", BearerToken(req))
	req.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", BearerToken(req))
}
