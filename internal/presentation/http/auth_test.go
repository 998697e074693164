package httppresentation

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Zhima-Mochi/travelshop/internal/application"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticatorParse(t *testing.T) {
	a := NewAuthenticator(testSecret)

	actor, err := a.Parse(sessionToken(t, "admin-1", "ADMIN"))
	require.NoError(t, err)
	assert.Equal(t, application.Actor{ID: "admin-1", Role: application.RoleAdmin, Email: "admin-1@example.com"}, actor)

	actor, err = a.Parse(sessionToken(t, "user-1", "superuser"))
	require.NoError(t, err)
	assert.Equal(t, application.RoleCustomer, actor.Role)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	raw, err := expired.SignedString(testSecret)
	require.NoError(t, err)
	_, err = a.Parse(raw)
	assert.Error(t, err)

	anonymous := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{Role: "admin"})
	raw, err = anonymous.SignedString(testSecret)
	require.NoError(t, err)
	_, err = a.Parse(raw)
	assert.Error(t, err)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}})
	raw, err = unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = a.Parse(raw)
	assert.Error(t, err)
}

func TestAuthenticatorMiddleware(t *testing.T) {
	a := NewAuthenticator(testSecret)
	var got application.Actor
	var found bool
	h := a.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, found = ActorFrom(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookie, Value: sessionToken(t, "user-1", "")})
	h.ServeHTTP(httptest.NewRecorder(), r)
	require.True(t, found)
	assert.Equal(t, "user-1", got.ID)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+sessionToken(t, "user-2", ""))
	r.AddCookie(&http.Cookie{Name: sessionCookie, Value: sessionToken(t, "user-1", "")})
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "user-2", got.ID)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.False(t, found)
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(1, 2)
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.Equal(t, 2, l.size())

	now = now.Add(limiterIdleTTL + limiterSweepEach)
	assert.True(t, l.Allow("10.0.0.3"))
	assert.Equal(t, 1, l.size())
}

func TestRemoteIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:5123"
	assert.Equal(t, "203.0.113.7", remoteIP(r))

	r.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	assert.Equal(t, "198.51.100.1", remoteIP(r))
}

func TestRouteTemplate(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/orders/abc", nil)
	assert.Equal(t, "/api/orders/{id}", routeTemplate("GET /api/orders/{id}", r))
	assert.Equal(t, "/api/orders/abc", routeTemplate(unknownRoute, r))
	assert.Equal(t, unknownRoute, routeFromContext(r.Context()))
	assert.Equal(t, "GET /x", routeFromContext(contextWithRoute(r.Context(), "GET /x")))
}
