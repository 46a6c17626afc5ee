package authserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	goAuthFlow "github.com/MrEthical07/goAuthFlow"
	"github.com/MrEthical07/goAuthFlow/identifier"
	"github.com/MrEthical07/goAuthFlow/internal"
	"github.com/MrEthical07/goAuthFlow/internal/rate"
	"github.com/MrEthical07/goAuthFlow/internal/stores"
	"github.com/MrEthical07/goAuthFlow/jwt"
	"github.com/MrEthical07/goAuthFlow/password"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ goAuthFlow.Remote = (*Service)(nil)

// ErrMissingDependency is returned by [NewService] without Redis, a token
// manager, or a sender.
var ErrMissingDependency = errors.New("authserver dependency missing")

// Service is the reference verification and authentication service. It
// implements goAuthFlow.Remote directly, so a controller can run in-process
// against it, and backs the HTTP [Handler].
type Service struct {
	cfg        Config
	challenges *stores.ChallengeStore
	accounts   *stores.AccountStore
	verified   *stores.VerifiedStore
	limiter    *rate.Limiter
	hasher     *password.Argon2
	tokens     *jwt.Manager
	sender     Sender
	metrics    *goAuthFlow.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(rdb redis.UniversalClient, tokens *jwt.Manager, sender Sender, cfg Config, logger *zap.Logger) (*Service, error) {
	if rdb == nil || tokens == nil || sender == nil {
		return nil, ErrMissingDependency
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hasher, err := password.NewArgon2(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		cfg:        cfg,
		challenges: stores.NewChallengeStore(rdb, cfg.KeyPrefix+"o"),
		accounts:   stores.NewAccountStore(rdb, cfg.KeyPrefix+"a"),
		verified:   stores.NewVerifiedStore(rdb, cfg.KeyPrefix+"v"),
		limiter: rate.New(rdb, rate.Config{
			EnableIPThrottle:   cfg.EnableIPThrottle,
			MaxOTPRequests:     cfg.MaxOTPRequests,
			OTPRequestWindow:   cfg.OTPRequestWindow,
			MaxLoginFailures:   cfg.MaxLoginFailures,
			LoginFailureWindow: cfg.LoginFailureWindow,
		}),
		hasher:  hasher,
		tokens:  tokens,
		sender:  sender,
		metrics: goAuthFlow.NewMetrics(goAuthFlow.MetricsConfig{Enabled: true}),
		logger:  logger.Named("authserver"),
		now:     time.Now,
	}, nil
}

// Tokens returns the session token manager.
func (s *Service) Tokens() *jwt.Manager {
	return s.tokens
}

// MetricsSnapshot returns the service-side counters. Latency is not tracked.
func (s *Service) MetricsSnapshot() goAuthFlow.MetricsSnapshot {
	return s.metrics.Snapshot()
}

// AuditDropped is always zero; the service emits no audit events.
func (s *Service) AuditDropped() uint64 {
	return 0
}

// RequestOTP issues a challenge for req.Identifier and delivers the code.
func (s *Service) RequestOTP(ctx context.Context, req goAuthFlow.OTPRequest) (_ goAuthFlow.OTPChallenge, err error) {
	defer s.record(&err, goAuthFlow.MetricOTPRequestSuccess, goAuthFlow.MetricOTPRequestFailure)

	ident, kind := identifier.Normalize(req.Identifier)
	if kind == identifier.KindInvalid {
		return goAuthFlow.OTPChallenge{}, goAuthFlow.ServiceError(goAuthFlow.CodeInvalidIdentifier, "", "identifier")
	}
	method := methodOf(kind)

	if req.Purpose == goAuthFlow.VariantSignup {
		exists, err := s.accounts.Exists(ctx, ident)
		if err != nil {
			return goAuthFlow.OTPChallenge{}, s.internalError("account lookup failed", err)
		}
		if exists {
			return goAuthFlow.OTPChallenge{}, goAuthFlow.ServiceError(goAuthFlow.CodeAccountExists, "", "identifier")
		}
	}

	if err := s.limiter.AllowOTPRequest(ctx, ident, ClientIPFromContext(ctx)); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			s.logger.Warn("otp request throttled", zap.String("identifier", identifier.Mask(ident)))
		}
		return goAuthFlow.OTPChallenge{}, mapRateError(err, goAuthFlow.CodeRateLimited)
	}

	code, err := internal.NewOTP(s.cfg.OTPLength)
	if err != nil {
		return goAuthFlow.OTPChallenge{}, s.internalError("otp generation failed", err)
	}
	authToken, err := internal.NewAuthToken()
	if err != nil {
		return goAuthFlow.OTPChallenge{}, s.internalError("auth token generation failed", err)
	}
	verificationID := uuid.NewString()

	record := &stores.ChallengeRecord{
		Identifier: ident,
		Method:     uint8(method),
		Purpose:    uint8(req.Purpose),
		TokenHash:  internal.HashSecret(authToken),
		CodeHash:   internal.HashSecret(code),
		ExpiresAt:  s.now().Add(s.cfg.ChallengeTTL).Unix(),
	}
	if err := s.challenges.Save(ctx, verificationID, record, s.cfg.ChallengeTTL); err != nil {
		return goAuthFlow.OTPChallenge{}, s.internalError("challenge save failed", err)
	}

	region := req.Region
	if method != goAuthFlow.MethodPhone {
		region = ""
	}
	if err := s.sender.SendOTP(ctx, Delivery{
		VerificationID: verificationID,
		Identifier:     ident,
		Method:         method,
		Purpose:        req.Purpose,
		Region:         region,
		Code:           code,
	}); err != nil {
		return goAuthFlow.OTPChallenge{}, s.internalError("otp delivery failed", err)
	}

	return goAuthFlow.OTPChallenge{VerificationID: verificationID, AuthToken: authToken}, nil
}

// VerifyOTP consumes the challenge. Login and phone signup return a session
// token; email signup marks the identifier verified and returns "".
func (s *Service) VerifyOTP(ctx context.Context, req goAuthFlow.OTPVerification) (_ string, err error) {
	defer s.record(&err, goAuthFlow.MetricOTPVerifySuccess, goAuthFlow.MetricOTPVerifyFailure)

	if req.VerificationID == "" || req.AuthToken == "" || len(req.OTP) != s.cfg.OTPLength {
		return "", goAuthFlow.ServiceError(goAuthFlow.CodeInvalidOTP, "", "otp")
	}

	var ident string
	if req.Identifier != "" {
		var kind identifier.Kind
		if ident, kind = identifier.Normalize(req.Identifier); kind == identifier.KindInvalid {
			return "", goAuthFlow.ServiceError(goAuthFlow.CodeInvalidOTP, "", "otp")
		}
	}

	rec, err := s.challenges.ConsumeFor(ctx, req.VerificationID, ident,
		internal.HashSecret(req.AuthToken),
		internal.HashSecret(req.OTP),
		s.cfg.MaxVerifyAttempts,
	)
	if err != nil {
		if errors.Is(err, stores.ErrChallengeRedisUnavailable) {
			return "", s.internalError("challenge consume failed", err)
		}
		if errors.Is(err, stores.ErrChallengeAttemptsExceeded) {
			s.metrics.Inc(goAuthFlow.MetricOTPAttemptsExceeded)
		}
		return "", mapChallengeError(err)
	}

	method := goAuthFlow.Method(rec.Method)
	switch {
	case goAuthFlow.Variant(rec.Purpose) == goAuthFlow.VariantLogin:
		account, err := s.accounts.Get(ctx, rec.Identifier)
		if err != nil {
			if errors.Is(err, stores.ErrAccountRedisUnavailable) {
				return "", s.internalError("account lookup failed", err)
			}
			return "", mapAccountError(err)
		}
		return s.issue(account)

	case method == goAuthFlow.MethodPhone:
		account, err := s.createAccount(ctx, rec.Identifier, method, "")
		if err != nil {
			return "", err
		}
		return s.issue(account)

	default:
		if err := s.verified.MarkFor(ctx, rec.Identifier, ClientIPFromContext(ctx), s.cfg.VerifiedTTL); err != nil {
			return "", s.internalError("verified marker failed", err)
		}
		return "", nil
	}
}

// LoginWithPassword checks the password of an existing account. Every
// failure is reported as invalidCredentials.
func (s *Service) LoginWithPassword(ctx context.Context, creds goAuthFlow.Credentials) (_ string, err error) {
	defer s.record(&err, goAuthFlow.MetricPasswordLoginSuccess, goAuthFlow.MetricPasswordLoginFailure)

	ident, kind := identifier.Normalize(creds.Identifier)
	if kind == identifier.KindInvalid {
		return "", goAuthFlow.ServiceError(goAuthFlow.CodeInvalidCredentials, "", "")
	}

	if err := s.limiter.CheckLogin(ctx, ident); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			s.metrics.Inc(goAuthFlow.MetricRateLimitHit)
		}
		return "", mapRateError(err, goAuthFlow.CodeTooManyAttempts)
	}

	account, err := s.accounts.Get(ctx, ident)
	if err != nil && !errors.Is(err, stores.ErrAccountNotFound) {
		return "", s.internalError("account lookup failed", err)
	}

	ok := false
	if account != nil && account.PasswordHash != "" {
		ok, err = s.hasher.Verify(creds.Password, account.PasswordHash)
		if err != nil && !errors.Is(err, password.ErrPasswordTooLarge) {
			return "", s.internalError("password verify failed", err)
		}
	}
	if !ok {
		if err := s.limiter.RecordLoginFailure(ctx, ident); err != nil {
			s.logger.Warn("login failure not recorded", zap.Error(err))
		}
		return "", goAuthFlow.ServiceError(goAuthFlow.CodeInvalidCredentials, "", "")
	}

	if err := s.limiter.ResetLogin(ctx, ident); err != nil {
		s.logger.Warn("login counter not reset", zap.Error(err))
	}
	return s.issue(account)
}

// CreateAccount finishes an email signup whose identifier was verified
// within VerifiedTTL by the same client IP.
func (s *Service) CreateAccount(ctx context.Context, creds goAuthFlow.Credentials) (_ string, err error) {
	defer s.record(&err, goAuthFlow.MetricAccountCreated, goAuthFlow.MetricAccountCreationFailure)

	ident, kind := identifier.Normalize(creds.Identifier)
	if kind == identifier.KindInvalid {
		return "", goAuthFlow.ServiceError(goAuthFlow.CodeInvalidIdentifier, "", "identifier")
	}
	if err := password.DefaultPolicy().Validate(creds.Password); err != nil {
		return "", goAuthFlow.ServiceError(goAuthFlow.CodePasswordPolicy, "", "password")
	}

	verified, err := s.verified.ConsumeFor(ctx, ident, ClientIPFromContext(ctx))
	if err != nil {
		return "", s.internalError("verified marker lookup failed", err)
	}
	if !verified {
		return "", goAuthFlow.ServiceError(goAuthFlow.CodeExpiredOTP, "", "")
	}

	hash, err := s.hasher.Hash(creds.Password)
	if err != nil {
		return "", s.internalError("password hash failed", err)
	}

	account, err := s.createAccount(ctx, ident, methodOf(kind), hash)
	if err != nil {
		return "", err
	}
	return s.issue(account)
}

// SignInWithGoogle returns a session for a Google-verified email, creating
// the account on first use.
func (s *Service) SignInWithGoogle(ctx context.Context, email string) (string, error) {
	ident, kind := identifier.Normalize(email)
	if kind != identifier.KindEmail {
		return "", goAuthFlow.ServiceError(goAuthFlow.CodeInvalidIdentifier, "", "identifier")
	}

	account, err := s.accounts.Get(ctx, ident)
	switch {
	case err == nil:
	case errors.Is(err, stores.ErrAccountNotFound):
		account, err = s.createAccount(ctx, ident, goAuthFlow.MethodEmail, "")
		if goAuthFlow.IsCode(err, goAuthFlow.CodeAccountExists) {
			account, err = s.accounts.Get(ctx, ident)
		}
		if err != nil {
			return "", err
		}
	default:
		return "", s.internalError("account lookup failed", err)
	}

	token, err := s.tokens.Issue(account.ID, "google")
	if err != nil {
		return "", s.internalError("session issue failed", err)
	}
	return token, nil
}

func (s *Service) createAccount(ctx context.Context, ident string, method goAuthFlow.Method, hash string) (*stores.Account, error) {
	account := &stores.Account{
		ID:           uuid.NewString(),
		Identifier:   ident,
		Method:       method.String(),
		PasswordHash: hash,
		CreatedAt:    s.now().Unix(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, stores.ErrAccountRedisUnavailable) {
			return nil, s.internalError("account create failed", err)
		}
		return nil, mapAccountError(err)
	}
	s.logger.Info("account created",
		zap.String("account_id", account.ID),
		zap.String("identifier", identifier.Mask(ident)),
	)
	return account, nil
}

func (s *Service) issue(account *stores.Account) (string, error) {
	token, err := s.tokens.Issue(account.ID, account.Method)
	if err != nil {
		return "", s.internalError("session issue failed", err)
	}
	return token, nil
}

func (s *Service) record(errp *error, success, failure goAuthFlow.MetricID) {
	if *errp == nil {
		s.metrics.Inc(success)
		return
	}
	s.metrics.Inc(failure)
	if goAuthFlow.IsCode(*errp, goAuthFlow.CodeRateLimited) {
		s.metrics.Inc(goAuthFlow.MetricRateLimitHit)
	}
}

func (s *Service) internalError(msg string, err error) *goAuthFlow.AuthError {
	s.logger.Error(msg, zap.Error(err))
	return goAuthFlow.ServiceError(goAuthFlow.CodeUnknown, "", "")
}

func methodOf(k identifier.Kind) goAuthFlow.Method {
	if k == identifier.KindPhone {
		return goAuthFlow.MethodPhone
	}
	return goAuthFlow.MethodEmail
}
