// Package config loads the process configuration of the goAuthFlow binaries
// from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvProduction = "production"

// Config holds the settings shared by cmd/goauthflow-server and cmd/goauthflow.
type Config struct {
	// Env is the application environment ("development", "production", "test").
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// BaseURL is where the CLI reaches the service.
	BaseURL    string `mapstructure:"AUTH_BASE_URL"`
	TrustProxy bool   `mapstructure:"TRUST_PROXY"`

	// RedisAddr empty means an in-process miniredis outside production.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	KeyPrefix     string `mapstructure:"KEY_PREFIX"`

	// JWTSecret signs HS256 session tokens. Outside production an empty value
	// is replaced by a random per-process key.
	JWTSecret  string        `mapstructure:"JWT_SECRET"`
	JWTIssuer  string        `mapstructure:"JWT_ISSUER"`
	SessionTTL time.Duration `mapstructure:"SESSION_TTL"`

	CookieSecure bool   `mapstructure:"COOKIE_SECURE"`
	CookieDomain string `mapstructure:"COOKIE_DOMAIN"`

	OTPLength          int           `mapstructure:"OTP_LENGTH"`
	OTPTTL             time.Duration `mapstructure:"OTP_TTL"`
	OTPMaxAttempts     int           `mapstructure:"OTP_MAX_ATTEMPTS"`
	OTPMaxRequests     int           `mapstructure:"OTP_MAX_REQUESTS"`
	OTPRequestWindow   time.Duration `mapstructure:"OTP_REQUEST_WINDOW"`
	LoginMaxFailures   int           `mapstructure:"LOGIN_MAX_FAILURES"`
	LoginFailureWindow time.Duration `mapstructure:"LOGIN_FAILURE_WINDOW"`
	// OTPReturnToClient enables GET /api/dev/otp. Rejected in production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`

	IPRatePerMinute int `mapstructure:"IP_RATE_PER_MINUTE"`
	IPRateBurst     int `mapstructure:"IP_RATE_BURST"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `mapstructure:"GOOGLE_REDIRECT_URL"`

	MetricsEnabled bool `mapstructure:"METRICS_ENABLED"`
}

// Load reads envFile (if present) into the process environment, then builds
// and validates Config from the environment via Viper. Real environment
// variables win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("AUTH_BASE_URL", "http://localhost:8080")
	v.SetDefault("TRUST_PROXY", false)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("KEY_PREFIX", "af")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "goauthflow")
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("OTP_LENGTH", 4)
	v.SetDefault("OTP_TTL", "5m")
	v.SetDefault("OTP_MAX_ATTEMPTS", 3)
	v.SetDefault("OTP_MAX_REQUESTS", 5)
	v.SetDefault("OTP_REQUEST_WINDOW", "10m")
	v.SetDefault("LOGIN_MAX_FAILURES", 5)
	v.SetDefault("LOGIN_FAILURE_WINDOW", "15m")
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("IP_RATE_PER_MINUTE", 60)
	v.SetDefault("IP_RATE_BURST", 10)
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URL", "")
	v.SetDefault("METRICS_ENABLED", true)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// GoogleEnabled reports whether all Google sign-in settings are present.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.OTPReturnToClient && c.IsProduction() {
		return errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}
	if c.IsProduction() {
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR must be set when APP_ENV=production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("config: JWT_SECRET must be at least 32 bytes when APP_ENV=production")
		}
		if !c.CookieSecure {
			return errors.New("config: COOKIE_SECURE must be true when APP_ENV=production")
		}
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return errors.New("config: JWT_SECRET must be at least 32 bytes")
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be > 0")
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		return errors.New("config: OTP_LENGTH must be between 4 and 10")
	}
	if c.OTPTTL <= 0 || c.OTPRequestWindow <= 0 || c.LoginFailureWindow <= 0 {
		return errors.New("config: OTP_TTL, OTP_REQUEST_WINDOW and LOGIN_FAILURE_WINDOW must be > 0")
	}
	if c.OTPMaxAttempts < 1 || c.OTPMaxRequests < 1 || c.LoginMaxFailures < 1 {
		return errors.New("config: OTP_MAX_ATTEMPTS, OTP_MAX_REQUESTS and LOGIN_MAX_FAILURES must be >= 1")
	}
	if c.IPRatePerMinute < 0 || c.IPRateBurst < 0 {
		return errors.New("config: IP_RATE_PER_MINUTE and IP_RATE_BURST must be >= 0")
	}
	return nil
}
