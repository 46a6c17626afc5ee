package authserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrEthical07/goAuthFlow/internal"
	"github.com/MrEthical07/goAuthFlow/session"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

	oauthStateCookie = "af_oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

var (
	// ErrGoogleEmailUnverified is returned when Google reports an
	// unverified email address.
	ErrGoogleEmailUnverified = errors.New("google email not verified")
	ErrGoogleUserInfo        = errors.New("google userinfo failed")
)

// GoogleConfig configures Google sign-in. Endpoint and UserInfoURL default
// to Google's production endpoints.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Endpoint     oauth2.Endpoint
	UserInfoURL  string
	// HomePath and LoginPath are the redirect targets after the callback.
	HomePath  string
	LoginPath string
}

// GoogleUser is the subset of the userinfo response used for sign-in.
type GoogleUser struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// GoogleProvider runs the authorization code exchange.
type GoogleProvider struct {
	config      oauth2.Config
	userInfoURL string
	homePath    string
	loginPath   string
}

func NewGoogleProvider(cfg GoogleConfig) (*GoogleProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, fmt.Errorf("%w: google client id, secret and redirect url are required", ErrInvalidConfig)
	}
	if cfg.Endpoint.AuthURL == "" {
		cfg.Endpoint = endpoints.Google
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = GoogleUserInfoURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"openid", "email"}
	}
	if cfg.HomePath == "" {
		cfg.HomePath = "/dashboard"
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}

	return &GoogleProvider{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     cfg.Endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
		},
		userInfoURL: cfg.UserInfoURL,
		homePath:    cfg.HomePath,
		loginPath:   cfg.LoginPath,
	}, nil
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.config.Exchange(ctx, code)
}

// UserInfo fetches the signed-in user's profile with token.
func (p *GoogleProvider) UserInfo(ctx context.Context, token *oauth2.Token) (GoogleUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return GoogleUser{}, err
	}
	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return GoogleUser{}, fmt.Errorf("%w: %v", ErrGoogleUserInfo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return GoogleUser{}, fmt.Errorf("%w: status %d", ErrGoogleUserInfo, resp.StatusCode)
	}

	var user GoogleUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&user); err != nil {
		return GoogleUser{}, fmt.Errorf("%w: %v", ErrGoogleUserInfo, err)
	}
	if user.Email == "" || !user.EmailVerified {
		return GoogleUser{}, ErrGoogleEmailUnverified
	}
	return user, nil
}

func (h *Handler) handleGoogleStart(w http.ResponseWriter, r *http.Request) {
	state, err := internal.NewAuthToken()
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.SetCookie(w, h.stateCookie(state, oauthStateTTL))
	http.Redirect(w, r, h.cfg.Google.AuthCodeURL(state), http.StatusFound)
}

func (h *Handler) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	g := h.cfg.Google
	fail := func(reason string, err error) {
		h.logger.Warn("google sign-in failed", zap.String("reason", reason), zap.Error(err))
		http.Redirect(w, r, g.loginPath+"?error=google", http.StatusFound)
	}

	query := r.URL.Query()
	cookie, err := r.Cookie(oauthStateCookie)
	http.SetCookie(w, h.stateCookie("", -1))
	if err != nil || cookie.Value == "" ||
		subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(query.Get("state"))) != 1 {
		fail("state mismatch", err)
		return
	}
	if extErr := query.Get("error"); extErr != "" {
		fail("provider error", errors.New(extErr))
		return
	}
	code := query.Get("code")
	if code == "" {
		fail("missing code", nil)
		return
	}

	token, err := g.Exchange(r.Context(), code)
	if err != nil {
		fail("code exchange", err)
		return
	}
	user, err := g.UserInfo(r.Context(), token)
	if err != nil {
		fail("userinfo", err)
		return
	}
	sessionToken, err := h.svc.SignInWithGoogle(r.Context(), user.Email)
	if err != nil {
		fail("sign in", err)
		return
	}

	session.SetCookie(w, sessionToken, h.cfg.Cookie)
	http.Redirect(w, r, g.homePath, http.StatusFound)
}

func (h *Handler) stateCookie(value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     oauthStateCookie,
		Value:    value,
		Path:     PathGoogleCallback,
		HttpOnly: true,
		Secure:   h.cfg.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(ttl.Seconds())
	}
	return c
}
