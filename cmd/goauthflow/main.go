// Command goauthflow walks through a login or signup flow in the terminal
// against a running goauthflow-server. The session cookie is persisted into
// an in-memory cookie jar, as a browser would keep it.
//
// Usage:
//
//	goauthflow [-signup] [-base-url http://localhost:8080] [-env-file .env]
//
// At any prompt, ":back" returns to the identifier step, ":resend" requests a
// new code, ":wait" shows the resend countdown and ":quit" exits.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"time"

	goAuthFlow "github.com/MrEthical07/goAuthFlow"
	"github.com/MrEthical07/goAuthFlow/client"
	"github.com/MrEthical07/goAuthFlow/internal/config"
	"github.com/MrEthical07/goAuthFlow/internal/logging"
	"go.uber.org/zap"
)

func main() {
	var (
		signup  = flag.Bool("signup", false, "run the signup flow instead of login")
		baseURL = flag.String("base-url", "", "service URL; defaults to AUTH_BASE_URL")
		envFile = flag.String("env-file", ".env", "optional dotenv file loaded before the environment")
		region  = flag.String("region", "", "default region for phone numbers (ISO 3166-1 alpha-2)")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *baseURL == "" {
		*baseURL = cfg.BaseURL
	}
	// The terminal is the UI; keep the log quiet unless asked.
	level := cfg.LogLevel
	if level == "" {
		level = "warn"
	}
	logger, err := logging.New(cfg.Env, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	jar, err := cookiejar.New(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cookie jar: %v\n", err)
		os.Exit(1)
	}
	remote, err := client.New(*baseURL,
		client.WithHTTPClient(&http.Client{Jar: jar, Timeout: 15 * time.Second}),
		client.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	flowCfg := goAuthFlow.DefaultConfig()
	flowCfg.Flow.OTPLength = cfg.OTPLength
	if *region != "" {
		flowCfg.Flow.DefaultRegion = *region
	}

	engine, err := goAuthFlow.New().
		WithConfig(flowCfg).
		WithRemote(remote).
		WithSessionPersister(remote).
		WithLogger(logger).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	variant := goAuthFlow.VariantLogin
	if *signup {
		variant = goAuthFlow.VariantSignup
	}
	ctrl, err := engine.NewController(variant)
	if err != nil {
		fmt.Fprintf(os.Stderr, "controller: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	completed, err := drive(ctx, ctrl, bufio.NewScanner(os.Stdin), os.Stdout)
	if err != nil {
		logger.Debug("flow aborted", zap.Error(err))
		os.Exit(1)
	}
	if completed {
		for _, c := range jar.Cookies(remote.BaseURL()) {
			logger.Debug("session cookie stored", zap.String("name", c.Name))
		}
		return
	}
	os.Exit(1)
}
