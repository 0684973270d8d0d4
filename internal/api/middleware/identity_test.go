package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"objbase.io/objbase/internal/auth"
)

type stubResolver struct {
	identities map[string]auth.Identity
}

func (r *stubResolver) Resolve(_ context.Context, ns, token string) (auth.Identity, error) {
	id, ok := r.identities[token]
	if !ok || id.Namespace != ns {
		return auth.Identity{}, fmt.Errorf("unknown token")
	}
	return id, nil
}

func identityRouter(resolver Resolver) (*gin.Engine, *struct {
	id         auth.Identity
	ok         bool
	fromCookie bool
}) {
	seen := &struct {
		id         auth.Identity
		ok         bool
		fromCookie bool
	}{}
	router := gin.New()
	ns := router.Group("/:ns", Identity(resolver))
	ns.GET("", func(c *gin.Context) {
		seen.id, seen.ok = GetIdentity(c)
		seen.fromCookie = TokenFromCookie(c)
		c.Status(http.StatusOK)
	})
	return router, seen
}

func TestIdentity_CookieToken(t *testing.T) {
	resolver := &stubResolver{identities: map[string]auth.Identity{
		"tok1": {Namespace: "demo", UserID: 100, Name: "admin", Role: auth.RoleAdmin},
	}}
	router, seen := identityRouter(resolver)

	req := httptest.NewRequest(http.MethodGet, "/demo", nil)
	req.AddCookie(&http.Cookie{Name: "demo", Value: "tok1"})
	router.ServeHTTP(httptest.NewRecorder(), req)

	if !seen.ok || seen.id.Name != "admin" {
		t.Fatalf("identity = %+v, ok = %v", seen.id, seen.ok)
	}
	if !seen.fromCookie {
		t.Error("TokenFromCookie() = false for cookie session")
	}
}

func TestIdentity_HeaderPrecedence(t *testing.T) {
	resolver := &stubResolver{identities: map[string]auth.Identity{
		"cookie-tok": {Namespace: "demo", Name: "cookie-user", Role: auth.RoleReader},
		"header-tok": {Namespace: "demo", Name: "header-user", Role: auth.RoleReader},
	}}
	router, seen := identityRouter(resolver)

	// Cookie wins over the Authorization header.
	req := httptest.NewRequest(http.MethodGet, "/demo", nil)
	req.AddCookie(&http.Cookie{Name: "demo", Value: "cookie-tok"})
	req.Header.Set("Authorization", "Bearer header-tok")
	router.ServeHTTP(httptest.NewRecorder(), req)
	if seen.id.Name != "cookie-user" {
		t.Errorf("identity = %q, want cookie-user", seen.id.Name)
	}

	// Bearer prefix is optional.
	req = httptest.NewRequest(http.MethodGet, "/demo", nil)
	req.Header.Set("Authorization", "header-tok")
	router.ServeHTTP(httptest.NewRecorder(), req)
	if seen.id.Name != "header-user" {
		t.Errorf("identity = %q, want header-user", seen.id.Name)
	}
	if seen.fromCookie {
		t.Error("TokenFromCookie() = true for header session")
	}

	// X-Authorization works too.
	req = httptest.NewRequest(http.MethodGet, "/demo", nil)
	req.Header.Set("X-Authorization", "header-tok")
	router.ServeHTTP(httptest.NewRecorder(), req)
	if seen.id.Name != "header-user" {
		t.Errorf("identity = %q, want header-user", seen.id.Name)
	}
}

func TestIdentity_TokenParam(t *testing.T) {
	resolver := &stubResolver{identities: map[string]auth.Identity{
		"param-tok": {Namespace: "demo", Name: "param-user", Role: auth.RoleReader},
	}}
	router, seen := identityRouter(resolver)

	// The token parameter only counts alongside the actions that allow it.
	req := httptest.NewRequest(http.MethodGet, "/demo?term&id=5&token=param-tok", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)
	if !seen.ok || seen.id.Name != "param-user" {
		t.Errorf("identity = %+v, ok = %v, want param-user", seen.id, seen.ok)
	}

	req = httptest.NewRequest(http.MethodGet, "/demo?list&table=200&token=param-tok", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)
	if seen.ok {
		t.Errorf("identity = %+v, want anonymous for list with token param", seen.id)
	}
}

func TestIdentity_StaleTokenIsAnonymous(t *testing.T) {
	router, seen := identityRouter(&stubResolver{})

	req := httptest.NewRequest(http.MethodGet, "/demo", nil)
	req.AddCookie(&http.Cookie{Name: "demo", Value: "expired"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, stale token must not fail the request", w.Code)
	}
	if seen.ok {
		t.Errorf("identity = %+v, want anonymous", seen.id)
	}
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())

	var fromCtx string
	router.GET("/x", func(c *gin.Context) {
		fromCtx = GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if fromCtx == "" {
		t.Error("request id missing from context")
	}
	if got := w.Header().Get(RequestIDHeader); got != fromCtx {
		t.Errorf("header id = %q, context id = %q", got, fromCtx)
	}

	// A client-supplied id is kept.
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "client-id-1")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if fromCtx != "client-id-1" {
		t.Errorf("request id = %q, want client-id-1", fromCtx)
	}
}
