package authserver

import (
	"context"
	"strings"
	"testing"
	"time"

	goAuthFlow "github.com/MrEthical07/goAuthFlow"
	"github.com/MrEthical07/goAuthFlow/internal/stores"
	"github.com/MrEthical07/goAuthFlow/jwt"
	"github.com/MrEthical07/goAuthFlow/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const strongPassword = "Str0ng!pass"

type senderFunc func(ctx context.Context, d Delivery) error

func (f senderFunc) SendOTP(ctx context.Context, d Delivery) error { return f(ctx, d) }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password = password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	return cfg
}

func newTestTokens(t *testing.T) *jwt.Manager {
	t.Helper()
	m, err := jwt.NewManager(jwt.Config{
		SessionTTL:    time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(strings.Repeat("k", 32)),
		Issuer:        "goauthflow-test",
	})
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}
	return m
}

func newTestService(t *testing.T, mutate func(*Config)) (*Service, *MemorySender, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	sender := NewMemorySender()
	svc, err := NewService(rdb, newTestTokens(t), sender, cfg, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, sender, mr
}

func seedAccount(t *testing.T, svc *Service, ident, pw string) *stores.Account {
	t.Helper()
	var hash string
	if pw != "" {
		var err error
		hash, err = svc.hasher.Hash(pw)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
	}
	account := &stores.Account{
		ID:           "acct-" + ident,
		Identifier:   ident,
		Method:       "email",
		PasswordHash: hash,
		CreatedAt:    time.Now().Unix(),
	}
	if err := svc.accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func requestCode(t *testing.T, svc *Service, sender *MemorySender, ident string, purpose goAuthFlow.Variant) (goAuthFlow.OTPChallenge, string) {
	t.Helper()
	ch, err := svc.RequestOTP(context.Background(), goAuthFlow.OTPRequest{Identifier: ident, Purpose: purpose})
	if err != nil {
		t.Fatalf("request otp: %v", err)
	}
	code, ok := sender.Code(ch.VerificationID)
	if !ok {
		t.Fatalf("no delivery for %s", ch.VerificationID)
	}
	return ch, code
}

func wrongCode(code string) string {
	if code == "0000" {
		return "1111"
	}
	return "0000"
}

func assertCode(t *testing.T, err error, want goAuthFlow.Code) {
	t.Helper()
	if !goAuthFlow.IsCode(err, want) {
		t.Fatalf("expected %s, got %v", want, err)
	}
}
