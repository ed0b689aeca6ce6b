// Package authn derives the request principal from identity headers set by
// a trusted reverse proxy and enforces roles on admin routes.
package authn

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"

	"github.com/archmap/archmap/internal/auth"
)

const (
	ContextKeyPrincipal = "auth_principal"

	HeaderEmail = "X-Forwarded-Email"
	HeaderRole  = "X-Forwarded-Role"
)

// Options controls how principals are derived.
type Options struct {
	// TrustHeaders enables HeaderEmail and HeaderRole. Only set it when a
	// proxy strips these headers from client requests.
	TrustHeaders bool
	// AnonymousRole is the role of requests without trusted identity.
	AnonymousRole string
}

func PrincipalFromContext(c *echo.Context) (auth.Principal, bool) {
	p, ok := c.Get(ContextKeyPrincipal).(auth.Principal)
	return p, ok
}

// RoleFromContext returns the request role, viewer when none was set.
func RoleFromContext(c *echo.Context) string {
	p, ok := PrincipalFromContext(c)
	if !ok {
		return auth.RoleViewer
	}
	return auth.NormalizeRole(p.Role)
}

// LoadPrincipal reads the identity headers of a request.
func LoadPrincipal(r *http.Request, opts Options) auth.Principal {
	anonymous := auth.Principal{
		Role:   auth.NormalizeRole(opts.AnonymousRole),
		Method: auth.MethodAnonymous,
	}
	if !opts.TrustHeaders {
		return anonymous
	}
	email := auth.NormalizeEmail(r.Header.Get(HeaderEmail))
	if email == "" {
		return anonymous
	}
	return auth.Principal{
		Email:  email,
		Role:   auth.NormalizeRole(r.Header.Get(HeaderRole)),
		Method: auth.MethodTrustedHeader,
	}
}

// Principal stores a principal on every request.
func Principal(opts Options) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			c.Set(ContextKeyPrincipal, LoadPrincipal(c.Request(), opts))
			return next(c)
		}
	}
}

// RequireRole rejects requests whose principal lacks role. Anonymous
// callers get 401, identified ones 403.
func RequireRole(role string) echo.MiddlewareFunc {
	role = auth.NormalizeRole(role)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			p, ok := PrincipalFromContext(c)
			if ok && auth.NormalizeRole(p.Role) == role {
				return next(c)
			}
			if !ok || p.Method == auth.MethodAnonymous {
				return handleUnauth(c)
			}
			if isAPIRequest(c) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return echo.NewHTTPError(http.StatusForbidden, http.StatusText(http.StatusForbidden))
		}
	}
}

func isAPIRequest(c *echo.Context) bool {
	return strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Request().URL.Path, "/api/")
}

func handleUnauth(c *echo.Context) error {
	if isAPIRequest(c) {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	return echo.NewHTTPError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
}
