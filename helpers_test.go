package goAuthFlow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeRemote succeeds by default. Override a hook to change one call.
type fakeRemote struct {
	mu sync.Mutex

	otpRequests   []OTPRequest
	verifications []OTPVerification
	logins        []Credentials
	creations     []Credentials

	requestOTPFn func(ctx context.Context, req OTPRequest) (OTPChallenge, error)
	verifyFn     func(ctx context.Context, req OTPVerification) (string, error)
	loginFn      func(ctx context.Context, creds Credentials) (string, error)
	createFn     func(ctx context.Context, creds Credentials) (string, error)
}

func (r *fakeRemote) RequestOTP(ctx context.Context, req OTPRequest) (OTPChallenge, error) {
	r.mu.Lock()
	r.otpRequests = append(r.otpRequests, req)
	n := len(r.otpRequests)
	fn := r.requestOTPFn
	r.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return OTPChallenge{
		VerificationID: fmt.Sprintf("ver-%d", n),
		AuthToken:      fmt.Sprintf("tok-%d", n),
	}, nil
}

func (r *fakeRemote) VerifyOTP(ctx context.Context, req OTPVerification) (string, error) {
	r.mu.Lock()
	r.verifications = append(r.verifications, req)
	fn := r.verifyFn
	r.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if req.OTP != "1234" {
		return "", ServiceError(CodeInvalidOTP, "", "otp")
	}
	return "session-otp", nil
}

func (r *fakeRemote) LoginWithPassword(ctx context.Context, creds Credentials) (string, error) {
	r.mu.Lock()
	r.logins = append(r.logins, creds)
	fn := r.loginFn
	r.mu.Unlock()

	if fn != nil {
		return fn(ctx, creds)
	}
	return "session-login", nil
}

func (r *fakeRemote) CreateAccount(ctx context.Context, creds Credentials) (string, error) {
	r.mu.Lock()
	r.creations = append(r.creations, creds)
	fn := r.createFn
	r.mu.Unlock()

	if fn != nil {
		return fn(ctx, creds)
	}
	return "session-signup", nil
}

func (r *fakeRemote) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.otpRequests) + len(r.verifications) + len(r.logins) + len(r.creations)
}

type recordingPersister struct {
	mu     sync.Mutex
	tokens []string
	err    error
}

func (p *recordingPersister) PersistSession(_ context.Context, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.tokens = append(p.tokens, token)
	return nil
}

func (p *recordingPersister) last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tokens) == 0 {
		return ""
	}
	return p.tokens[len(p.tokens)-1]
}

type flowHarness struct {
	engine    *Engine
	remote    *fakeRemote
	persister *recordingPersister
	clock     *fakeClock
}

func newFlowHarness(t *testing.T) *flowHarness {
	t.Helper()

	h := &flowHarness{
		remote:    &fakeRemote{},
		persister: &recordingPersister{},
		clock:     newFakeClock(),
	}

	engine, err := New().
		WithRemote(h.remote).
		WithSessionPersister(h.persister).
		WithClock(h.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	h.engine = engine
	return h
}

func (h *flowHarness) controller(t *testing.T, v Variant) *Controller {
	t.Helper()

	c, err := h.engine.NewController(v)
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	return c
}
