// Command goauthflow-loadtest drives the verification service in process
// and reports latency percentiles for the signup, OTP login and password
// login paths.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goAuthFlow "github.com/MrEthical07/goAuthFlow"
	"github.com/MrEthical07/goAuthFlow/authserver"
	"github.com/MrEthical07/goAuthFlow/internal"
	"github.com/MrEthical07/goAuthFlow/jwt"
	"github.com/MrEthical07/goAuthFlow/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loadPassword = "L0ad!test-pass"

func main() {
	var (
		accounts    = flag.Int("accounts", 1000, "number of accounts created in the signup phase")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 5000, "operations per login phase")
		argonMemory = flag.Uint("argon-memory", 16*1024, "argon2id memory in KiB")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "lt", "key prefix")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	svc, sender, err := newService(client, *prefix, uint32(*argonMemory), *accounts+*ops)
	if err != nil {
		fmt.Fprintf(os.Stderr, "service: %v\n", err)
		os.Exit(1)
	}

	idents := make([]string, *accounts)
	for i := range idents {
		idents[i] = fmt.Sprintf("user-%d@load.test", i)
	}

	fmt.Printf("signing up %d accounts...\n", *accounts)
	signupStats := runPhase(*accounts, *concurrency, func(_ *rand.Rand, i int) error {
		return signup(ctx, svc, sender, idents[i])
	})
	otpStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		return otpLogin(ctx, svc, sender, idents[r.Intn(len(idents))])
	})
	passwordStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		_, err := svc.LoginWithPassword(ctx, goAuthFlow.Credentials{
			Identifier: idents[r.Intn(len(idents))],
			Password:   loadPassword,
		})
		return err
	})

	fmt.Println("---- results ----")
	printStats("signup", signupStats)
	printStats("otp-login", otpStats)
	printStats("password-login", passwordStats)
}

func newService(rdb redis.UniversalClient, prefix string, argonMemory uint32, budget int) (*authserver.Service, *authserver.MemorySender, error) {
	key, err := internal.NewAuthToken()
	if err != nil {
		return nil, nil, err
	}
	tokens, err := jwt.NewManager(jwt.Config{
		SessionTTL:    time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(key),
		Issuer:        "goauthflow-loadtest",
	})
	if err != nil {
		return nil, nil, err
	}

	cfg := authserver.DefaultConfig()
	cfg.KeyPrefix = prefix
	cfg.MaxOTPRequests = budget
	cfg.MaxLoginFailures = budget
	cfg.EnableIPThrottle = false
	cfg.Password = password.DefaultConfig()
	cfg.Password.Memory = argonMemory
	cfg.Password.Time = 1

	sender := authserver.NewMemorySender()
	svc, err := authserver.NewService(rdb, tokens, sender, cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	return svc, sender, nil
}

func signup(ctx context.Context, svc *authserver.Service, sender *authserver.MemorySender, ident string) error {
	if _, err := verify(ctx, svc, sender, ident, goAuthFlow.VariantSignup); err != nil {
		return err
	}
	_, err := svc.CreateAccount(ctx, goAuthFlow.Credentials{Identifier: ident, Password: loadPassword})
	return err
}

func otpLogin(ctx context.Context, svc *authserver.Service, sender *authserver.MemorySender, ident string) error {
	_, err := verify(ctx, svc, sender, ident, goAuthFlow.VariantLogin)
	return err
}

func verify(ctx context.Context, svc *authserver.Service, sender *authserver.MemorySender, ident string, purpose goAuthFlow.Variant) (string, error) {
	ch, err := svc.RequestOTP(ctx, goAuthFlow.OTPRequest{
		Identifier: ident,
		Method:     goAuthFlow.MethodEmail,
		Purpose:    purpose,
	})
	if err != nil {
		return "", err
	}
	code, ok := sender.Code(ch.VerificationID)
	if !ok {
		return "", fmt.Errorf("no code delivered for %s", ch.VerificationID)
	}
	return svc.VerifyOTP(ctx, goAuthFlow.OTPVerification{
		Identifier:     ident,
		OTP:            code,
		VerificationID: ch.VerificationID,
		AuthToken:      ch.AuthToken,
	})
}

// runPhase calls op ops times across concurrency workers and records the
// latency of every call.
func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
