package session

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	// CookieName is the name of the HTTP-only session cookie.
	CookieName = "authToken"
	// DefaultMaxAge is the session cookie lifetime.
	DefaultMaxAge = 7 * 24 * time.Hour
)

// ErrNoSession is returned by [TokenFromRequest] when the cookie is absent or empty.
var ErrNoSession = errors.New("no session cookie")

// CookieConfig controls the attributes of the session cookie. The zero value
// is completed by [DefaultCookieConfig] values where fields are unset.
type CookieConfig struct {
	Name   string
	Path   string
	Domain string
	MaxAge time.Duration
	// Secure should only be disabled for plain-HTTP local development.
	Secure   bool
	SameSite http.SameSite
}

// DefaultCookieConfig returns the production cookie attributes:
// HttpOnly, Secure, SameSite=Lax, Path=/, seven days.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     CookieName,
		Path:     "/",
		MaxAge:   DefaultMaxAge,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (c CookieConfig) normalized() CookieConfig {
	d := DefaultCookieConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.Path == "" {
		c.Path = d.Path
	}
	if c.MaxAge <= 0 {
		c.MaxAge = d.MaxAge
	}
	if c.SameSite == 0 {
		c.SameSite = d.SameSite
	}
	return c
}

// NewCookie builds the session cookie carrying token.
func NewCookie(token string, cfg CookieConfig) *http.Cookie {
	cfg = cfg.normalized()
	return &http.Cookie{
		Name:     cfg.Name,
		Value:    token,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   int(cfg.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	}
}

// ExpiredCookie builds a cookie that deletes the session on logout.
func ExpiredCookie(cfg CookieConfig) *http.Cookie {
	cfg = cfg.normalized()
	return &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	}
}

// SetCookie writes the session cookie for token to w.
func SetCookie(w http.ResponseWriter, token string, cfg CookieConfig) {
	http.SetCookie(w, NewCookie(token, cfg))
}

// ClearCookie writes an expired session cookie to w.
func ClearCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, ExpiredCookie(cfg))
}

// TokenFromRequest returns the session token carried by r.
func TokenFromRequest(r *http.Request, cfg CookieConfig) (string, error) {
	cfg = cfg.normalized()
	c, err := r.Cookie(cfg.Name)
	if err != nil {
		return "", ErrNoSession
	}
	token := strings.TrimSpace(c.Value)
	if token == "" {
		return "", ErrNoSession
	}
	return token, nil
}
