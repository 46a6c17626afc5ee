package goAuthFlow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthFlow/identifier"
	"github.com/MrEthical07/goAuthFlow/password"
	"go.uber.org/zap"
)

// PasswordInput is submitted in the password step. Confirm is only read by
// signup flows.
type PasswordInput struct {
	Password string
	Confirm  string
}

// Controller drives one authentication attempt through identifier, OTP and
// password steps. Commands may be called from any goroutine; at most one
// remote call is outstanding per controller, and results that resolve after
// [Controller.Back] are discarded.
type Controller struct {
	engine   *Engine
	cooldown *Cooldown

	mu       sync.Mutex
	state    State
	gen      uint64
	inFlight bool
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cooldown exposes the resend countdown for front ends.
func (c *Controller) Cooldown() *Cooldown {
	return c.cooldown
}

// Busy reports whether a remote call is outstanding.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Messages returns the heading for the current step.
func (c *Controller) Messages() Copy {
	return MessagesFor(c.State(), c.engine.config.Flow.OTPLength)
}

// Requirements evaluates pw against the configured signup checklist, for
// live feedback while the user types.
func (c *Controller) Requirements(pw string) PasswordRequirements {
	return c.engine.config.Password.policy().Check(pw)
}

// SubmitIdentifier classifies raw and advances the flow. Invalid input is
// rejected locally. Login by email moves to the password step; every other
// combination requests an OTP first.
func (c *Controller) SubmitIdentifier(ctx context.Context, raw string) (Result, error) {
	snap, gen, err := c.begin(StepIdentifier)
	if err != nil {
		return Result{State: snap}, err
	}

	kind := identifier.Classify(raw)
	if kind == identifier.KindInvalid {
		c.release(gen)
		c.engine.metrics.Inc(MetricIdentifierRejected)
		c.engine.emitAudit(ctx, auditEventIdentifierRejected, snap, false, nil, nil)

		msg := ""
		if strings.TrimSpace(raw) == "" {
			msg = "Email or phone number is required"
		}
		return Result{State: snap}, ValidationError(CodeInvalidIdentifier, "identifier", msg)
	}
	method := methodFromKind(kind)

	if !requiresOTP(snap.Variant, method) {
		next, err := c.commit(gen, PasswordRequested{Identifier: raw, Method: method})
		return Result{State: next}, err
	}

	challenge, err := c.requestOTP(ctx, raw, method, snap.Variant)
	if err != nil {
		c.release(gen)
		return Result{State: snap}, err
	}

	next, err := c.commit(gen, OtpIssued{
		Identifier:     raw,
		Method:         method,
		VerificationID: challenge.VerificationID,
		AuthToken:      challenge.AuthToken,
	})
	if err != nil {
		return Result{State: next}, err
	}
	c.engine.emitAudit(ctx, auditEventOTPRequested, next, true, nil, nil)
	return Result{State: next}, nil
}

// SubmitOtp verifies code against the outstanding challenge. A rejected code
// leaves the flow in the OTP step.
func (c *Controller) SubmitOtp(ctx context.Context, code string) (Result, error) {
	snap, gen, err := c.begin(StepOtp)
	if err != nil {
		return Result{State: snap}, err
	}

	n := c.engine.config.Flow.OTPLength
	if !isNumericCode(code, n) {
		c.release(gen)
		return Result{State: snap}, ValidationError(
			CodeIncompleteOTP, "otp", fmt.Sprintf("Please enter the complete %d-digit code", n),
		)
	}

	start := c.engine.now()
	token, err := c.engine.remote.VerifyOTP(ctx, OTPVerification{
		Identifier:     snap.Identifier,
		OTP:            code,
		VerificationID: snap.VerificationID,
		AuthToken:      snap.AuthToken,
	})
	c.observe(start)
	if err != nil {
		authErr := c.remoteFailure(err)
		c.engine.metrics.Inc(MetricOTPVerifyFailure)
		if authErr.Code == CodeTooManyAttempts {
			c.engine.metrics.Inc(MetricOTPAttemptsExceeded)
		}
		if !c.release(gen) {
			return Result{State: c.State()}, c.stale(snap)
		}
		c.engine.emitAudit(ctx, auditEventOTPVerified, snap, false, authErr, nil)
		return Result{State: snap}, authErr
	}
	c.engine.metrics.Inc(MetricOTPVerifySuccess)
	c.engine.emitAudit(ctx, auditEventOTPVerified, snap, true, nil, nil)

	if completes(snap, OtpVerified{}) {
		return c.complete(ctx, gen, snap, OtpVerified{}, token)
	}

	next, err := c.commit(gen, OtpVerified{})
	return Result{State: next}, err
}

// SubmitPassword finishes the flow from the password step. Login checks only
// the 8 to 100 character rule; signup requires the full checklist and a
// matching confirmation before the account is created.
func (c *Controller) SubmitPassword(ctx context.Context, in PasswordInput) (Result, error) {
	snap, gen, err := c.begin(StepPassword)
	if err != nil {
		return Result{State: snap}, err
	}

	creds := Credentials{Identifier: snap.Identifier, Password: in.Password}

	if snap.Variant == VariantLogin {
		if err := password.ValidateLoginPassword(in.Password); err != nil {
			c.release(gen)
			c.engine.metrics.Inc(MetricPasswordRejected)
			return Result{State: snap}, ValidationError(CodeInvalidPassword, "password", capitalize(err.Error()))
		}

		start := c.engine.now()
		token, err := c.engine.remote.LoginWithPassword(ctx, creds)
		c.observe(start)
		if err != nil {
			authErr := c.remoteFailure(err)
			c.engine.metrics.Inc(MetricPasswordLoginFailure)
			if !c.release(gen) {
				return Result{State: c.State()}, c.stale(snap)
			}
			c.engine.emitAudit(ctx, auditEventPasswordLogin, snap, false, authErr, nil)
			return Result{State: snap}, authErr
		}
		c.engine.metrics.Inc(MetricPasswordLoginSuccess)
		c.engine.emitAudit(ctx, auditEventPasswordLogin, snap, true, nil, nil)
		return c.complete(ctx, gen, snap, Authenticated{}, token)
	}

	reqs := c.engine.config.Password.policy().Check(in.Password)
	result := Result{State: snap, Requirements: &reqs}
	if !reqs.IsValid() {
		c.release(gen)
		c.engine.metrics.Inc(MetricPasswordRejected)
		return result, ValidationError(CodePasswordPolicy, "password", "")
	}
	if err := password.CheckConfirmation(in.Password, in.Confirm); err != nil {
		c.release(gen)
		c.engine.metrics.Inc(MetricPasswordRejected)
		return result, ValidationError(CodePasswordMismatch, "confirmPassword", "")
	}

	start := c.engine.now()
	token, err := c.engine.remote.CreateAccount(ctx, creds)
	c.observe(start)
	if err != nil {
		authErr := c.remoteFailure(err)
		c.engine.metrics.Inc(MetricAccountCreationFailure)
		if !c.release(gen) {
			return Result{State: c.State()}, c.stale(snap)
		}
		c.engine.emitAudit(ctx, auditEventAccountCreated, snap, false, authErr, nil)
		return result, authErr
	}
	c.engine.metrics.Inc(MetricAccountCreated)
	c.engine.emitAudit(ctx, auditEventAccountCreated, snap, true, nil, nil)

	res, err := c.complete(ctx, gen, snap, Authenticated{}, token)
	res.Requirements = &reqs
	return res, err
}

// Resend requests a fresh code for the current identifier. While the
// cooldown is running it returns [ErrResendCooldown] and does nothing.
func (c *Controller) Resend(ctx context.Context) (Result, error) {
	snap, gen, err := c.begin(StepOtp)
	if err != nil {
		return Result{State: snap}, err
	}
	if c.cooldown.Active() {
		c.release(gen)
		c.engine.metrics.Inc(MetricResendThrottled)
		return Result{State: snap}, ErrResendCooldown
	}

	challenge, err := c.requestOTP(ctx, snap.Identifier, snap.Method, snap.Variant)
	if err != nil {
		if !c.release(gen) {
			return Result{State: c.State()}, c.stale(snap)
		}
		return Result{State: snap}, err
	}

	next, err := c.commit(gen, OtpIssued{
		Identifier:     snap.Identifier,
		Method:         snap.Method,
		VerificationID: challenge.VerificationID,
		AuthToken:      challenge.AuthToken,
	})
	if err != nil {
		return Result{State: next}, err
	}
	c.engine.emitAudit(ctx, auditEventOTPResent, next, true, nil, nil)
	return Result{State: next}, nil
}

// Back abandons the flow from any step. It is an alias of [Controller.Reset].
func (c *Controller) Back() State {
	return c.Reset()
}

// Reset returns the controller to its initial state, stops the resend
// countdown, and invalidates every outstanding remote call.
func (c *Controller) Reset() State {
	c.mu.Lock()
	prev := c.state
	next, _ := Transition(c.state, ResetRequested{})
	c.state = next
	c.gen++
	c.inFlight = false
	c.cooldown.Stop()
	c.mu.Unlock()

	c.engine.metrics.Inc(MetricFlowReset)
	c.engine.emitAudit(context.Background(), auditEventFlowReset, prev, true, nil, nil)
	c.engine.logger.Debug("flow reset",
		zap.Stringer("variant", prev.Variant),
		zap.Stringer("from", prev.Step),
	)
	return next
}

func (c *Controller) begin(step Step) (State, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight {
		return c.state, 0, ErrRequestInFlight
	}
	if c.state.Step != step {
		return c.state, 0, ErrWrongStep
	}
	c.inFlight = true
	return c.state, c.gen, nil
}

// release ends the outstanding call without a state change. It returns false
// when the flow was reset in the meantime.
func (c *Controller) release(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return false
	}
	c.inFlight = false
	return true
}

// commit applies e if the call that produced it is still current.
func (c *Controller) commit(gen uint64, e Event) (State, error) {
	c.mu.Lock()
	if gen != c.gen {
		current := c.state
		c.mu.Unlock()
		return current, c.stale(current)
	}

	prev := c.state
	next, err := Transition(prev, e)
	c.inFlight = false
	if err != nil {
		c.mu.Unlock()
		return prev, err
	}
	c.state = next
	// Cooldown changes happen under mu; Reset stops it under mu too.
	if _, ok := e.(OtpIssued); ok {
		c.cooldown.Start()
	} else {
		c.cooldown.Stop()
	}
	c.mu.Unlock()

	c.engine.logger.Debug("flow transition",
		zap.Stringer("variant", next.Variant),
		zap.Stringer("from", prev.Step),
		zap.Stringer("to", next.Step),
		zap.Stringer("method", next.Method),
		zap.String("identifier", identifier.Mask(next.Identifier)),
	)
	return next, nil
}

// complete persists token and applies the terminal event e.
func (c *Controller) complete(ctx context.Context, gen uint64, snap State, e Event, token string) (Result, error) {
	if !c.current(gen) {
		return Result{State: c.State()}, c.stale(snap)
	}
	if token == "" {
		c.release(gen)
		return Result{State: snap}, ServiceError(CodeUnknown, "", "")
	}

	if err := c.engine.persister.PersistSession(ctx, token); err != nil {
		c.engine.metrics.Inc(MetricSessionPersistFailure)
		c.engine.logger.Error("session persist failed", zap.Error(err))
		c.release(gen)
		return Result{State: snap}, fmt.Errorf("%w: %v", ErrSessionPersist, err)
	}
	c.engine.metrics.Inc(MetricSessionPersisted)
	c.engine.emitAudit(ctx, auditEventSessionPersisted, snap, true, nil, nil)

	next, err := c.commit(gen, e)
	if errors.Is(err, ErrStaleResponse) {
		// The session is stored; a reset during persistence already left the
		// flow in its initial state.
		return Result{State: next, Completed: true}, nil
	}
	if err != nil {
		return Result{State: next}, err
	}
	return Result{State: next, Completed: true}, nil
}

func (c *Controller) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

func (c *Controller) stale(snap State) error {
	c.engine.metrics.Inc(MetricStaleResponseDiscarded)
	c.engine.emitAudit(context.Background(), auditEventStaleDiscarded, snap, false, nil, nil)
	c.engine.logger.Warn("discarding response for reset flow",
		zap.Stringer("variant", snap.Variant),
		zap.Stringer("step", snap.Step),
	)
	return ErrStaleResponse
}

func (c *Controller) requestOTP(ctx context.Context, raw string, method Method, purpose Variant) (OTPChallenge, error) {
	req := OTPRequest{
		Identifier: raw,
		Method:     method,
		Purpose:    purpose,
	}
	if method == MethodPhone {
		req.Region = c.engine.config.Flow.DefaultRegion
	}

	start := c.engine.now()
	challenge, err := c.engine.remote.RequestOTP(ctx, req)
	c.observe(start)
	if err != nil {
		c.engine.metrics.Inc(MetricOTPRequestFailure)
		return OTPChallenge{}, c.remoteFailure(err)
	}
	if challenge.VerificationID == "" || challenge.AuthToken == "" {
		c.engine.metrics.Inc(MetricOTPRequestFailure)
		return OTPChallenge{}, ServiceError(CodeUnknown, "", "")
	}
	c.engine.metrics.Inc(MetricOTPRequestSuccess)
	return challenge, nil
}

func (c *Controller) remoteFailure(err error) *AuthError {
	authErr := NormalizeError(err)
	switch {
	case authErr.Kind == KindNetwork:
		c.engine.metrics.Inc(MetricNetworkError)
		c.engine.logger.Warn("remote call failed", zap.Error(err))
	case authErr.Code == CodeRateLimited || authErr.Code == CodeTooManyAttempts:
		c.engine.metrics.Inc(MetricRateLimitHit)
	}
	return authErr
}

func (c *Controller) observe(start time.Time) {
	c.engine.metrics.Observe(MetricRemoteLatency, c.engine.now().Sub(start))
}

func isNumericCode(code string, n int) bool {
	if len(code) != n {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
