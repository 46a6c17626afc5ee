package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/MrEthical07/goAuthFlow/jwt"
	"github.com/MrEthical07/goAuthFlow/session"
)

// TokenValidator verifies a session token. *jwt.Manager implements it.
type TokenValidator interface {
	Parse(token string) (*jwt.SessionClaims, error)
}

type claimsContextKey struct{}

// ClaimsFromContext returns the claims stored by [RouteGuard] or
// [RequireSession] when a validator is configured.
func ClaimsFromContext(ctx context.Context) (*jwt.SessionClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*jwt.SessionClaims)
	return claims, ok
}

// GuardConfig lists the routes handled by [RouteGuard]. Prefixes match a
// path exactly or as a parent segment ("/dashboard" matches "/dashboard/x").
type GuardConfig struct {
	ProtectedPrefixes []string
	AuthRoutes        []string
	LoginPath         string
	HomePath          string
	SkipPrefixes      []string
	Cookie            session.CookieConfig
	// Validator is optional. Without it the presence of the cookie is
	// enough; with it an invalid token counts as no session.
	Validator TokenValidator
}

// DefaultGuardConfig protects /dashboard and bounces signed-in users away
// from /login and /signup. API and static asset paths are skipped.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		ProtectedPrefixes: []string{"/dashboard"},
		AuthRoutes:        []string{"/login", "/signup"},
		LoginPath:         "/login",
		HomePath:          "/dashboard",
		SkipPrefixes:      []string{"/api/", "/static/", "/favicon.ico"},
		Cookie:            session.DefaultCookieConfig(),
	}
}

// RouteGuard redirects (307) unauthenticated requests for protected pages to
// the login page with a redirect parameter, and authenticated requests for
// the login or signup pages to the home page.
func RouteGuard(cfg GuardConfig) func(http.Handler) http.Handler {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.HomePath == "" {
		cfg.HomePath = "/dashboard"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if hasAnyPrefix(path, cfg.SkipPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			claims, authenticated := sessionFromRequest(r, cfg.Cookie, cfg.Validator)
			if claims != nil {
				r = r.WithContext(context.WithValue(r.Context(), claimsContextKey{}, claims))
			}

			switch {
			case matchesRoute(path, cfg.ProtectedPrefixes) && !authenticated:
				target := cfg.LoginPath + "?redirect=" + url.QueryEscape(path)
				http.Redirect(w, r, target, http.StatusTemporaryRedirect)
				return
			case matchesRoute(path, cfg.AuthRoutes) && authenticated:
				http.Redirect(w, r, cfg.HomePath, http.StatusTemporaryRedirect)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession rejects API requests without a valid session cookie with
// 401 and stores the claims in the request context.
func RequireSession(v TokenValidator, cookie session.CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, ok := sessionFromRequest(r, cookie, v)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFromRequest(r *http.Request, cookie session.CookieConfig, v TokenValidator) (*jwt.SessionClaims, bool) {
	token, err := session.TokenFromRequest(r, cookie)
	if err != nil {
		return nil, false
	}
	if v == nil {
		return nil, true
	}
	claims, err := v.Parse(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func matchesRoute(path string, routes []string) bool {
	for _, route := range routes {
		if path == route || strings.HasPrefix(path, strings.TrimSuffix(route, "/")+"/") {
			return true
		}
	}
	return false
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
