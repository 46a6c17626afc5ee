package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goAuthFlow "github.com/MrEthical07/goAuthFlow"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	PathOTPRequest = "/api/auth/otp/request"
	PathOTPVerify  = "/api/auth/otp/verify"
	PathLogin      = "/api/auth/login"
	PathSignup     = "/api/auth/signup"
	PathSession    = "/api/auth/session"

	maxErrorBody = 64 << 10
)

// ErrInvalidBaseURL is returned by [New] for a base URL without scheme or host.
var ErrInvalidBaseURL = errors.New("invalid base url")

// Client talks to the verification service over HTTP. It implements
// goAuthFlow.Remote and goAuthFlow.SessionPersister.
type Client struct {
	base           *url.URL
	http           *http.Client
	logger         *zap.Logger
	retryMaxElapse time.Duration
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the HTTP client, for example to attach a cookie jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetryMaxElapsed bounds the retries of idempotent session calls.
// Zero disables retries.
func WithRetryMaxElapsed(d time.Duration) Option {
	return func(c *Client) {
		c.retryMaxElapse = d
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		base:           u,
		http:           &http.Client{Timeout: 15 * time.Second},
		logger:         zap.NewNop(),
		retryMaxElapse: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service origin, for cookie jar lookups.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

type otpRequestBody struct {
	Identifier string `json:"identifier"`
	Method     string `json:"method"`
	Region     string `json:"region,omitempty"`
	Purpose    string `json:"purpose"`
}

type tokenResponse struct {
	Token string `json:"token,omitempty"`
}

type sessionBody struct {
	Token string `json:"token"`
}

func (c *Client) RequestOTP(ctx context.Context, req goAuthFlow.OTPRequest) (goAuthFlow.OTPChallenge, error) {
	var out goAuthFlow.OTPChallenge
	err := c.do(ctx, http.MethodPost, PathOTPRequest, otpRequestBody{
		Identifier: req.Identifier,
		Method:     req.Method.String(),
		Region:     req.Region,
		Purpose:    req.Purpose.String(),
	}, &out)
	return out, err
}

func (c *Client) VerifyOTP(ctx context.Context, req goAuthFlow.OTPVerification) (string, error) {
	var out tokenResponse
	err := c.do(ctx, http.MethodPost, PathOTPVerify, req, &out)
	return out.Token, err
}

func (c *Client) LoginWithPassword(ctx context.Context, creds goAuthFlow.Credentials) (string, error) {
	var out tokenResponse
	err := c.do(ctx, http.MethodPost, PathLogin, creds, &out)
	return out.Token, err
}

func (c *Client) CreateAccount(ctx context.Context, creds goAuthFlow.Credentials) (string, error) {
	var out tokenResponse
	err := c.do(ctx, http.MethodPost, PathSignup, creds, &out)
	return out.Token, err
}

// PersistSession asks the service to set the HTTP-only session cookie. With
// a cookie jar on the HTTP client the cookie is stored for later requests.
func (c *Client) PersistSession(ctx context.Context, token string) error {
	return c.retry(ctx, func() error {
		return c.do(ctx, http.MethodPost, PathSession, sessionBody{Token: token}, nil)
	})
}

// Logout asks the service to clear the session cookie.
func (c *Client) Logout(ctx context.Context) error {
	return c.retry(ctx, func() error {
		return c.do(ctx, http.MethodDelete, PathSession, nil, nil)
	})
}

// retry repeats op while it fails at the transport level. Service errors
// are final.
func (c *Client) retry(ctx context.Context, op func() error) error {
	if c.retryMaxElapse <= 0 {
		return op()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = c.retryMaxElapse

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		var authErr *goAuthFlow.AuthError
		if errors.As(err, &authErr) && authErr.Kind != goAuthFlow.KindNetwork {
			return backoff.Permanent(err)
		}
		c.logger.Debug("retrying session call", zap.Int("attempt", attempt), zap.Error(err))
		return err
	}, backoff.WithContext(b, ctx))
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return goAuthFlow.NetworkError(err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return goAuthFlow.NetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goAuthFlow.NetworkError(fmt.Errorf("decode %s response: %w", path, err))
	}
	return nil
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// decodeError maps a non-2xx response to a service error. Responses
// without a usable body fall back on the status code.
func decodeError(resp *http.Response) error {
	var eb errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(raw, &eb); err == nil && eb.Code != "" {
		return goAuthFlow.ServiceError(goAuthFlow.Code(eb.Code), eb.Message, eb.Field)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return goAuthFlow.ServiceError(goAuthFlow.CodeRateLimited, "", "")
	case resp.StatusCode >= 500:
		return goAuthFlow.NetworkError(fmt.Errorf("server returned %d", resp.StatusCode))
	default:
		return goAuthFlow.ServiceError(goAuthFlow.CodeUnknown, "", "")
	}
}
