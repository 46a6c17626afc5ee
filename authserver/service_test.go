package authserver

import (
	"context"
	"errors"
	"testing"
	"time"

	goAuthFlow "github.com/MrEthical07/goAuthFlow"
)

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, nil, nil, DefaultConfig(), nil); !errors.Is(err, ErrMissingDependency) {
		t.Fatalf("expected ErrMissingDependency, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"otp too short", func(c *Config) { c.OTPLength = 3 }},
		{"otp too long", func(c *Config) { c.OTPLength = 11 }},
		{"no challenge ttl", func(c *Config) { c.ChallengeTTL = 0 }},
		{"no attempts", func(c *Config) { c.MaxVerifyAttempts = 0 }},
		{"no verified ttl", func(c *Config) { c.VerifiedTTL = 0 }},
		{"no otp window", func(c *Config) { c.OTPRequestWindow = 0 }},
		{"no login budget", func(c *Config) { c.MaxLoginFailures = 0 }},
		{"no prefix", func(c *Config) { c.KeyPrefix = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestRequestOTPDeliversNormalizedIdentifier(t *testing.T) {
	svc, sender, _ := newTestService(t, nil)

	ch, code := requestCode(t, svc, sender, "  Alice@Example.com ", goAuthFlow.VariantLogin)
	if ch.VerificationID == "" || ch.AuthToken == "" {
		t.Fatalf("expected challenge values, got %+v", ch)
	}
	if len(code) != 4 {
		t.Fatalf("expected 4-digit code, got %q", code)
	}
	last := sender.Last()
	if last.Identifier != "alice@example.com" || last.Method != goAuthFlow.MethodEmail {
		t.Fatalf("unexpected delivery %+v", last)
	}
	if last.Region != "" {
		t.Fatalf("email delivery must not carry a region, got %q", last.Region)
	}
}

func TestRequestOTPPhoneKeepsRegion(t *testing.T) {
	svc, sender, _ := newTestService(t, nil)

	_, err := svc.RequestOTP(context.Background(), goAuthFlow.OTPRequest{
		Identifier: "98765 43210",
		Region:     "IN",
		Purpose:    goAuthFlow.VariantLogin,
	})
	if err != nil {
		t.Fatalf("request otp: %v", err)
	}
	last := sender.Last()
	if last.Identifier != "9876543210" || last.Region != "IN" || last.Method != goAuthFlow.MethodPhone {
		t.Fatalf("unexpected delivery %+v", last)
	}
}

func TestRequestOTPRejectsInvalidIdentifier(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	_, err := svc.RequestOTP(context.Background(), goAuthFlow.OTPRequest{Identifier: "12345"})
	assertCode(t, err, goAuthFlow.CodeInvalidIdentifier)
}

func TestRequestOTPSignupExistingAccount(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	seedAccount(t, svc, "alice@example.com", strongPassword)

	_, err := svc.RequestOTP(context.Background(), goAuthFlow.OTPRequest{
		Identifier: "alice@example.com",
		Purpose:    goAuthFlow.VariantSignup,
	})
	assertCode(t, err, goAuthFlow.CodeAccountExists)
}

func TestRequestOTPRateLimited(t *testing.T) {
	svc, _, _ := newTestService(t, func(c *Config) { c.MaxOTPRequests = 2 })
	ctx := context.Background()
	req := goAuthFlow.OTPRequest{Identifier: "alice@example.com"}

	for i := 0; i < 2; i++ {
		if _, err := svc.RequestOTP(ctx, req); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	_, err := svc.RequestOTP(ctx, req)
	assertCode(t, err, goAuthFlow.CodeRateLimited)
}

func TestRequestOTPRateLimitedPerIP(t *testing.T) {
	svc, _, _ := newTestService(t, func(c *Config) { c.MaxOTPRequests = 1 })
	ctx := WithClientIP(context.Background(), "203.0.113.7")

	if _, err := svc.RequestOTP(ctx, goAuthFlow.OTPRequest{Identifier: "a@example.com"}); err != nil {
		t.Fatalf("first request: %v", err)
	}
	_, err := svc.RequestOTP(ctx, goAuthFlow.OTPRequest{Identifier: "b@example.com"})
	assertCode(t, err, goAuthFlow.CodeRateLimited)
}

func TestRequestOTPSenderFailure(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	svc.sender = senderFunc(func(context.Context, Delivery) error { return errors.New("smtp down") })

	_, err := svc.RequestOTP(context.Background(), goAuthFlow.OTPRequest{Identifier: "alice@example.com"})
	assertCode(t, err, goAuthFlow.CodeUnknown)
}

func TestVerifyOTPLoginIssuesSession(t *testing.T) {
	svc, sender, _ := newTestService(t, nil)
	account := seedAccount(t, svc, "alice@example.com", "")

	ch, code := requestCode(t, svc, sender, "alice@example.com", goAuthFlow.VariantLogin)
	token, err := svc.VerifyOTP(context.Background(), goAuthFlow.OTPVerification{
		Identifier:     "alice@example.com",
		OTP:            code,
		VerificationID: ch.VerificationID,
		AuthToken:      ch.AuthToken,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	claims, err := svc.Tokens().Parse(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.AccountID != account.ID {
		t.Fatalf("expected account %s, got %s", account.ID, claims.AccountID)
	}

	_, err = svc.VerifyOTP(context.Background(), goAuthFlow.OTPVerification{
		OTP:            code,
		VerificationID: ch.VerificationID,
		AuthToken:      ch.AuthToken,
	})
	assertCode(t, err, goAuthFlow.CodeExpiredOTP)
}

func TestVerifyOTPLoginUnknownAccount(t *testing.T) {
	svc, sender, _ := newTestService(t, nil)

	ch, code := requestCode(t, svc, sender, "nobody@example.com", goAuthFlow.VariantLogin)
	_, err := svc.VerifyOTP(context.Background(), goAuthFlow.OTPVerification{
		OTP:            code,
		VerificationID: ch.VerificationID,
		AuthToken:      ch.AuthToken,
	})
	assertCode(t, err, goAuthFlow.CodeInvalidCredentials)
}

func TestVerifyOTPAttemptsExhausted(t *testing.T) {
	svc, sender, _ := newTestService(t, nil)
	ch, code := requestCode(t, svc, sender, "alice@example.com", goAuthFlow.VariantLogin)
	bad := goAuthFlow.OTPVerification{
		OTP:            wrongCode(code),
		VerificationID: ch.VerificationID,
		AuthToken:      ch.AuthToken,
	}

	want := []goAuthFlow.Code{goAuthFlow.CodeInvalidOTP, goAuthFlow.CodeInvalidOTP, goAuthFlow.CodeTooManyAttempts}
	for i, code := range want {
		_, err := svc.VerifyOTP(context.Background(), bad)
		if !goAuthFlow.IsCode(err, code) {
			t.Fatalf("attempt %d: expected %s, got %v", i+1, code, err)
		}
	}

	good := bad
	good.OTP = code
	_, err := svc.VerifyOTP(context.Background(), good)
	assertCode(t, err, goAuthFlow.CodeExpiredOTP)
}

func TestVerifyOTPIncompleteCodeDoesNotCountAttempt(t *testing.T) {
	svc, sender, _ := newTestService(t, func(c *Config) { c.MaxVerifyAttempts = 1 })
	seedAccount(t, svc, "alice@example.com", "")
	ch, code := requestCode(t, svc, sender, "alice@example.com", goAuthFlow.VariantLogin)

	_, err := svc.VerifyOTP(context.Background(), goAuthFlow.OTPVerification{
		OTP:            code[:2],
		VerificationID: ch.VerificationID,
		AuthToken:      ch.AuthToken,
	})
	assertCode(t, err, goAuthFlow.CodeInvalidOTP)

	if _, err := svc.VerifyOTP(context.Background(), goAuthFlow.OTPVerification{
		OTP:            code,
		VerificationID: ch.VerificationID,
		AuthToken:      ch.AuthToken,
	}); err != nil {
		t.Fatalf("verify after short code: %v", err)
	}
}

func TestVerifyOTPExpiredChallenge(t *testing.T) {
	svc, sender, mr := newTestService(t, nil)
	ch, code := requestCode(t, svc, sender, "alice@example.com", goAuthFlow.VariantLogin)

	mr.FastForward(6 * time.Minute)

	_, err := svc.VerifyOTP(context.Background(), goAuthFlow.OTPVerification{
		OTP:            code,
		VerificationID: ch.VerificationID,
		AuthToken:      ch.AuthToken,
	})
	assertCode(t, err, goAuthFlow.CodeExpiredOTP)
}

func TestVerifyOTPIdentifierMismatch(t *testing.T) {
	svc, sender, _ := newTestService(t, nil)
	seedAccount(t, svc, "alice@example.com", "")
	ch, code := requestCode(t, svc, sender, "alice@example.com", goAuthFlow.VariantLogin)

	_, err := svc.VerifyOTP(context.Background(), goAuthFlow.OTPVerification{
		Identifier:     "mallory@example.com",
		OTP:            code,
		VerificationID: ch.VerificationID,
		AuthToken:      ch.AuthToken,
	})
	assertCode(t, err, goAuthFlow.CodeInvalidOTP)

	// the challenge is still usable by its owner
	token, err := svc.VerifyOTP(context.Background(), goAuthFlow.OTPVerification{
		Identifier:     "Alice@Example.com",
		OTP:            code,
		VerificationID: ch.VerificationID,
		AuthToken:      ch.AuthToken,
	})
	if err != nil || token == "" {
		t.Fatalf("expected verify with matching identifier to succeed, got %q %v", token, err)
	}
}

func TestVerifyOTPInvalidIdentifierKeepsChallenge(t *testing.T) {
	svc, sender, _ := newTestService(t, nil)
	seedAccount(t, svc, "alice@example.com", "")
	ch, code := requestCode(t, svc, sender, "alice@example.com", goAuthFlow.VariantLogin)

	_, err := svc.VerifyOTP(context.Background(), goAuthFlow.OTPVerification{
		Identifier:     "not an identifier",
		OTP:            code,
		VerificationID: ch.VerificationID,
		AuthToken:      ch.AuthToken,
	})
	assertCode(t, err, goAuthFlow.CodeInvalidOTP)

	if _, err := svc.VerifyOTP(context.Background(), goAuthFlow.OTPVerification{
		OTP:            code,
		VerificationID: ch.VerificationID,
		AuthToken:      ch.AuthToken,
	}); err != nil {
		t.Fatalf("expected challenge to survive, got %v", err)
	}
}

func TestSignupByEmailThenCreateAccount(t *testing.T) {
	svc, sender, _ := newTestService(t, nil)
	ctx := context.Background()

	ch, code := requestCode(t, svc, sender, "new@example.com", goAuthFlow.VariantSignup)
	token, err := svc.VerifyOTP(ctx, goAuthFlow.OTPVerification{
		OTP:            code,
		VerificationID: ch.VerificationID,
		AuthToken:      ch.AuthToken,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if token != "" {
		t.Fatalf("email signup verification must not issue a session, got %q", token)
	}

	creds := goAuthFlow.Credentials{Identifier: "new@example.com", Password: strongPassword}
	token, err = svc.CreateAccount(ctx, creds)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if _, err := svc.Tokens().Parse(token); err != nil {
		t.Fatalf("parse token: %v", err)
	}

	if _, err := svc.LoginWithPassword(ctx, creds); err != nil {
		t.Fatalf("login after signup: %v", err)
	}

	_, err = svc.CreateAccount(ctx, creds)
	assertCode(t, err, goAuthFlow.CodeExpiredOTP)
}

func TestCreateAccountRequiresVerifyingClient(t *testing.T) {
	svc, sender, _ := newTestService(t, nil)
	owner := WithClientIP(context.Background(), "198.51.100.1")
	other := WithClientIP(context.Background(), "203.0.113.9")

	ch, code := requestCode(t, svc, sender, "new@example.com", goAuthFlow.VariantSignup)
	if _, err := svc.VerifyOTP(owner, goAuthFlow.OTPVerification{
		OTP:            code,
		VerificationID: ch.VerificationID,
		AuthToken:      ch.AuthToken,
	}); err != nil {
		t.Fatalf("verify: %v", err)
	}

	creds := goAuthFlow.Credentials{Identifier: "new@example.com", Password: strongPassword}
	_, err := svc.CreateAccount(other, creds)
	assertCode(t, err, goAuthFlow.CodeExpiredOTP)

	token, err := svc.CreateAccount(owner, creds)
	if err != nil {
		t.Fatalf("expected verifying client to create the account, got %v", err)
	}
	if _, err := svc.Tokens().Parse(token); err != nil {
		t.Fatalf("parse token: %v", err)
	}
}

func TestSignupByPhoneCreatesAccountOnVerify(t *testing.T) {
	svc, sender, _ := newTestService(t, nil)
	ctx := context.Background()

	ch, code := requestCode(t, svc, sender, "9876543210", goAuthFlow.VariantSignup)
	token, err := svc.VerifyOTP(ctx, goAuthFlow.OTPVerification{
		OTP:            code,
		VerificationID: ch.VerificationID,
		AuthToken:      ch.AuthToken,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	claims, err := svc.Tokens().Parse(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Method != "phone" {
		t.Fatalf("expected phone method claim, got %q", claims.Method)
	}

	_, err = svc.RequestOTP(ctx, goAuthFlow.OTPRequest{Identifier: "98765-43210", Purpose: goAuthFlow.VariantSignup})
	assertCode(t, err, goAuthFlow.CodeAccountExists)
}

func TestCreateAccountRequiresVerification(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	_, err := svc.CreateAccount(context.Background(), goAuthFlow.Credentials{
		Identifier: "new@example.com",
		Password:   strongPassword,
	})
	assertCode(t, err, goAuthFlow.CodeExpiredOTP)
}

func TestCreateAccountWeakPassword(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	_, err := svc.CreateAccount(context.Background(), goAuthFlow.Credentials{
		Identifier: "new@example.com",
		Password:   "password",
	})
	assertCode(t, err, goAuthFlow.CodePasswordPolicy)
}

func TestLoginWithPasswordLockout(t *testing.T) {
	svc, _, _ := newTestService(t, func(c *Config) { c.MaxLoginFailures = 2 })
	seedAccount(t, svc, "alice@example.com", strongPassword)
	ctx := context.Background()

	bad := goAuthFlow.Credentials{Identifier: "alice@example.com", Password: "Wr0ng!pass"}
	for i := 0; i < 2; i++ {
		_, err := svc.LoginWithPassword(ctx, bad)
		assertCode(t, err, goAuthFlow.CodeInvalidCredentials)
	}

	_, err := svc.LoginWithPassword(ctx, goAuthFlow.Credentials{Identifier: "alice@example.com", Password: strongPassword})
	assertCode(t, err, goAuthFlow.CodeTooManyAttempts)
}

func TestLoginWithPasswordResetsFailures(t *testing.T) {
	svc, _, _ := newTestService(t, func(c *Config) { c.MaxLoginFailures = 2 })
	seedAccount(t, svc, "alice@example.com", strongPassword)
	ctx := context.Background()

	bad := goAuthFlow.Credentials{Identifier: "alice@example.com", Password: "Wr0ng!pass"}
	good := goAuthFlow.Credentials{Identifier: "alice@example.com", Password: strongPassword}

	_, _ = svc.LoginWithPassword(ctx, bad)
	if _, err := svc.LoginWithPassword(ctx, good); err != nil {
		t.Fatalf("login: %v", err)
	}
	_, _ = svc.LoginWithPassword(ctx, bad)
	if _, err := svc.LoginWithPassword(ctx, good); err != nil {
		t.Fatalf("login after reset: %v", err)
	}
}

func TestLoginWithPasswordUnknownAndPasswordless(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	seedAccount(t, svc, "otp-only@example.com", "")
	ctx := context.Background()

	for _, ident := range []string{"ghost@example.com", "otp-only@example.com", "not-an-identifier"} {
		_, err := svc.LoginWithPassword(ctx, goAuthFlow.Credentials{Identifier: ident, Password: strongPassword})
		assertCode(t, err, goAuthFlow.CodeInvalidCredentials)
	}
}

func TestSignInWithGoogleReusesAccount(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.SignInWithGoogle(ctx, "G.User@Example.com")
	if err != nil {
		t.Fatalf("first sign in: %v", err)
	}
	second, err := svc.SignInWithGoogle(ctx, "g.user@example.com")
	if err != nil {
		t.Fatalf("second sign in: %v", err)
	}

	a, _ := svc.Tokens().Parse(first)
	b, _ := svc.Tokens().Parse(second)
	if a == nil || b == nil || a.AccountID != b.AccountID {
		t.Fatalf("expected the same account for both sign-ins")
	}
	if a.Method != "google" {
		t.Fatalf("expected google method claim, got %q", a.Method)
	}

	_, err = svc.SignInWithGoogle(ctx, "9876543210")
	assertCode(t, err, goAuthFlow.CodeInvalidIdentifier)
}

func TestServiceMetricsCountOutcomes(t *testing.T) {
	svc, sender, _ := newTestService(t, func(c *Config) { c.MaxOTPRequests = 2 })
	ctx := context.Background()

	ch, code := requestCode(t, svc, sender, "alice@example.com", goAuthFlow.VariantLogin)
	bad := goAuthFlow.OTPVerification{OTP: wrongCode(code), VerificationID: ch.VerificationID, AuthToken: ch.AuthToken}
	for i := 0; i < 3; i++ {
		_, _ = svc.VerifyOTP(ctx, bad)
	}
	_, _ = svc.RequestOTP(ctx, goAuthFlow.OTPRequest{Identifier: "alice@example.com"})
	_, err := svc.RequestOTP(ctx, goAuthFlow.OTPRequest{Identifier: "alice@example.com"})
	assertCode(t, err, goAuthFlow.CodeRateLimited)

	snap := svc.MetricsSnapshot()
	want := map[goAuthFlow.MetricID]uint64{
		goAuthFlow.MetricOTPRequestSuccess:   2,
		goAuthFlow.MetricOTPRequestFailure:   1,
		goAuthFlow.MetricRateLimitHit:        1,
		goAuthFlow.MetricOTPVerifyFailure:    3,
		goAuthFlow.MetricOTPAttemptsExceeded: 1,
		goAuthFlow.MetricOTPVerifySuccess:    0,
	}
	for id, n := range want {
		if got := snap.Counters[id]; got != n {
			t.Fatalf("metric %d: expected %d, got %d", id, n, got)
		}
	}
	if svc.AuditDropped() != 0 {
		t.Fatalf("expected no dropped audit events")
	}
}
