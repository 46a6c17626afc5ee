// Command goauthflow-server runs the reference verification service: the
// OTP, password and session API under /api/, optional Google sign-in, the
// page route guard and a Prometheus text endpoint.
//
// Settings come from the environment and an optional .env file (see
// internal/config). Without REDIS_ADDR a local miniredis is started, and
// without JWT_SECRET a random per-process key is used; both are rejected in
// production.
//
// Run:
//
//	COOKIE_SECURE=false OTP_RETURN_TO_CLIENT=true go run ./cmd/goauthflow-server
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/goAuthFlow/authserver"
	"github.com/MrEthical07/goAuthFlow/internal"
	"github.com/MrEthical07/goAuthFlow/internal/config"
	"github.com/MrEthical07/goAuthFlow/internal/logging"
	"github.com/MrEthical07/goAuthFlow/jwt"
	"github.com/MrEthical07/goAuthFlow/metrics/export/prometheus"
	"github.com/MrEthical07/goAuthFlow/middleware"
	"github.com/MrEthical07/goAuthFlow/session"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before the environment")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	rdb, closeRedis, err := connectRedis(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	tokens, err := newTokenManager(cfg, logger)
	if err != nil {
		return err
	}

	var sender authserver.Sender = authserver.LogSender{Logger: logger.Named("otp")}
	if cfg.OTPReturnToClient {
		sender = authserver.MultiSender{sender, authserver.NewMemorySender()}
	}

	svc, err := authserver.NewService(rdb, tokens, sender, serviceConfig(cfg), logger)
	if err != nil {
		return err
	}

	cookie := session.DefaultCookieConfig()
	cookie.Secure = cfg.CookieSecure
	cookie.Domain = cfg.CookieDomain
	cookie.MaxAge = cfg.SessionTTL

	hcfg := authserver.HandlerConfig{
		Cookie:     cookie,
		TrustProxy: cfg.TrustProxy,
		DevOTPEcho: cfg.OTPReturnToClient,
	}
	if cfg.GoogleEnabled() {
		google, err := authserver.NewGoogleProvider(authserver.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
		if err != nil {
			return err
		}
		hcfg.Google = google
		logger.Info("google sign-in enabled")
	}

	throttle := authserver.NewIPThrottle(cfg.IPRatePerMinute, cfg.IPRateBurst, cfg.TrustProxy, logger)
	go throttle.Run(ctx)

	guardCfg := middleware.DefaultGuardConfig()
	guardCfg.Cookie = cookie
	guardCfg.Validator = tokens

	mux := http.NewServeMux()
	mux.Handle("/api/", throttle.Middleware(authserver.NewHandler(svc, hcfg, logger)))
	if cfg.MetricsEnabled {
		mux.Handle("GET /metrics", prometheus.New(svc).Handler())
	}
	mux.Handle("/", middleware.RouteGuard(guardCfg)(pages(logger)))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("env", cfg.Env),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func serviceConfig(cfg *config.Config) authserver.Config {
	sc := authserver.DefaultConfig()
	sc.OTPLength = cfg.OTPLength
	sc.ChallengeTTL = cfg.OTPTTL
	sc.MaxVerifyAttempts = cfg.OTPMaxAttempts
	sc.MaxOTPRequests = cfg.OTPMaxRequests
	sc.OTPRequestWindow = cfg.OTPRequestWindow
	sc.MaxLoginFailures = cfg.LoginMaxFailures
	sc.LoginFailureWindow = cfg.LoginFailureWindow
	sc.KeyPrefix = cfg.KeyPrefix
	return sc
}

func newTokenManager(cfg *config.Config, logger *zap.Logger) (*jwt.Manager, error) {
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		key, err := internal.NewAuthToken()
		if err != nil {
			return nil, fmt.Errorf("generate jwt key: %w", err)
		}
		secret = []byte(key)
		logger.Warn("JWT_SECRET not set, using a random key; sessions end on restart")
	}
	return jwt.NewManager(jwt.Config{
		SessionTTL:    cfg.SessionTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    secret,
		Issuer:        cfg.JWTIssuer,
	})
}
