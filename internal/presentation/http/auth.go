package httppresentation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	"github.com/Zhima-Mochi/travelshop/internal/observability"
	"github.com/Zhima-Mochi/travelshop/internal/observability/logctx"

	"github.com/golang-jwt/jwt/v5"
)

const sessionCookie = "session"

var errNoSession = errors.New("no session token")

// SessionClaims is the payload of the session token issued by the auth
// provider. Only role "admin" grants administrator rights.
type SessionClaims struct {
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HMAC signed session tokens. It never issues them.
type Authenticator struct {
	secret []byte
	parser *jwt.Parser
}

func NewAuthenticator(secret []byte) *Authenticator {
	return &Authenticator{
		secret: secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		})),
	}
}

func (a *Authenticator) Parse(raw string) (application.Actor, error) {
	var claims SessionClaims
	token, err := a.parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return application.Actor{}, err
	}
	if !token.Valid || claims.Subject == "" {
		return application.Actor{}, errors.New("session token without subject")
	}
	role := application.RoleCustomer
	if strings.EqualFold(claims.Role, string(application.RoleAdmin)) {
		role = application.RoleAdmin
	}
	return application.Actor{ID: claims.Subject, Role: role, Email: claims.Email, Name: claims.Name}, nil
}

// tokenFromRequest prefers the Authorization header over the cookie.
func tokenFromRequest(r *http.Request) (string, error) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return "", errors.New("invalid authorization header")
		}
		return parts[1], nil
	}
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", errNoSession
}

// Middleware attaches the actor when the request carries a valid session.
// Requests without one pass through; handlers decide whether that is fine.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := tokenFromRequest(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		actor, err := a.Parse(raw)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := logctx.Enrich(WithActor(r.Context(), actor), observability.F("user_id", actor.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type actorKey struct{}

func WithActor(ctx context.Context, a application.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFrom(ctx context.Context) (application.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(application.Actor)
	return a, ok && a.Authenticated()
}

// actorOf returns the zero actor for anonymous requests; use cases reject it.
func actorOf(r *http.Request) application.Actor {
	a, _ := ActorFrom(r.Context())
	return a
}
