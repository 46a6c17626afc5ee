package goAuthFlow

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthFlow/password"
)

// Config tunes the flow engine. Obtain a populated value with [DefaultConfig]
// and override fields before passing it to [Builder.WithConfig].
type Config struct {
	Flow     FlowConfig
	Password PasswordConfig
	Metrics  MetricsConfig
	Audit    AuditConfig
}

/*
====================================
FLOW CONFIG
====================================
*/

// FlowConfig holds the OTP and resend parameters shared by every controller.
type FlowConfig struct {
	// OTPLength is the exact number of digits a submitted code must have.
	OTPLength int
	// ResendCooldownTicks is the number of ticks before a resend is allowed.
	ResendCooldownTicks int
	// ResendTick is the length of one countdown tick.
	ResendTick time.Duration
	// DefaultRegion is sent with phone OTP requests.
	DefaultRegion string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig parameterises the signup password checklist.
type PasswordConfig struct {
	MinLength    int
	SpecialChars string
}

func (c PasswordConfig) policy() password.Policy {
	return password.Policy{MinLength: c.MinLength, SpecialChars: c.SpecialChars}
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// MetricsConfig enables in-process counters and the remote latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// DefaultConfig returns the production defaults: 4-digit codes, a 30 × 1s
// resend countdown, and the default password policy.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Flow: FlowConfig{
			OTPLength:           4,
			ResendCooldownTicks: 30,
			ResendTick:          time.Second,
			DefaultRegion:       "IN",
		},
		Password: PasswordConfig{
			MinLength:    password.DefaultMinLength,
			SpecialChars: password.DefaultSpecialChars,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

// Validate reports the first invalid setting, wrapped in [ErrInvalidConfig].
func (c *Config) Validate() error {
	if c.Flow.OTPLength < 4 || c.Flow.OTPLength > 10 {
		return fmt.Errorf("%w: Flow.OTPLength must be between 4 and 10", ErrInvalidConfig)
	}
	if c.Flow.ResendCooldownTicks < 0 {
		return fmt.Errorf("%w: Flow.ResendCooldownTicks must be >= 0", ErrInvalidConfig)
	}
	if c.Flow.ResendTick <= 0 {
		return fmt.Errorf("%w: Flow.ResendTick must be > 0", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Flow.DefaultRegion) == "" {
		return fmt.Errorf("%w: Flow.DefaultRegion must be set", ErrInvalidConfig)
	}
	if c.Password.MinLength < password.DefaultMinLength || c.Password.MinLength > password.MaxLoginLength {
		return fmt.Errorf("%w: Password.MinLength must be between 8 and 100", ErrInvalidConfig)
	}
	if c.Password.SpecialChars == "" {
		return fmt.Errorf("%w: Password.SpecialChars must not be empty", ErrInvalidConfig)
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return fmt.Errorf("%w: Metrics.EnableLatencyHistograms requires Metrics.Enabled", ErrInvalidConfig)
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return fmt.Errorf("%w: Audit.BufferSize must be > 0 when audit is enabled", ErrInvalidConfig)
	}
	return nil
}
