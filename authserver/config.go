package authserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAuthFlow/password"
)

// ErrInvalidConfig wraps every [Config.Validate] failure.
var ErrInvalidConfig = errors.New("invalid authserver config")

// Config tunes the reference verification service.
type Config struct {
	// OTPLength must match the controllers' FlowConfig.OTPLength.
	OTPLength         int
	ChallengeTTL      time.Duration
	MaxVerifyAttempts int
	// VerifiedTTL is how long a verified email may create an account.
	VerifiedTTL time.Duration

	MaxOTPRequests     int
	OTPRequestWindow   time.Duration
	MaxLoginFailures   int
	LoginFailureWindow time.Duration
	EnableIPThrottle   bool

	Password  password.Config
	KeyPrefix string
}

func DefaultConfig() Config {
	return Config{
		OTPLength:          4,
		ChallengeTTL:       5 * time.Minute,
		MaxVerifyAttempts:  3,
		VerifiedTTL:        15 * time.Minute,
		MaxOTPRequests:     5,
		OTPRequestWindow:   10 * time.Minute,
		MaxLoginFailures:   5,
		LoginFailureWindow: 15 * time.Minute,
		EnableIPThrottle:   true,
		Password:           password.DefaultConfig(),
		KeyPrefix:          "af",
	}
}

func (c Config) Validate() error {
	switch {
	case c.OTPLength < 4 || c.OTPLength > 10:
		return fmt.Errorf("%w: OTPLength must be between 4 and 10", ErrInvalidConfig)
	case c.ChallengeTTL <= 0:
		return fmt.Errorf("%w: ChallengeTTL must be > 0", ErrInvalidConfig)
	case c.MaxVerifyAttempts < 1:
		return fmt.Errorf("%w: MaxVerifyAttempts must be >= 1", ErrInvalidConfig)
	case c.VerifiedTTL <= 0:
		return fmt.Errorf("%w: VerifiedTTL must be > 0", ErrInvalidConfig)
	case c.MaxOTPRequests < 1 || c.OTPRequestWindow <= 0:
		return fmt.Errorf("%w: OTP request window must allow at least one request", ErrInvalidConfig)
	case c.MaxLoginFailures < 1 || c.LoginFailureWindow <= 0:
		return fmt.Errorf("%w: login failure window must allow at least one failure", ErrInvalidConfig)
	case c.KeyPrefix == "":
		return fmt.Errorf("%w: KeyPrefix must be set", ErrInvalidConfig)
	}
	return nil
}
