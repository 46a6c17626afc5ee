package stores

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrAccountNotFound         = errors.New("account not found")
	ErrAccountExists           = errors.New("account already exists")
	ErrAccountRedisUnavailable = errors.New("account redis unavailable")
)

// createAccountLua writes the account hash only when the key is absent.
// KEYS[1] = account key
// ARGV    = field/value pairs
//
// Returns 1 when created, 0 when the account already existed.
var createAccountLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

// Account is keyed by the normalized identifier. PasswordHash is empty for
// passwordless (phone) accounts.
type Account struct {
	ID           string
	Identifier   string
	Method       string
	PasswordHash string
	CreatedAt    int64
}

// AccountStore persists accounts as Redis hashes.
type AccountStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewAccountStore(redisClient redis.UniversalClient, prefix string) *AccountStore {
	if prefix == "" {
		prefix = "afa"
	}
	return &AccountStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *AccountStore) key(identifier string) string {
	return s.prefix + ":" + identifier
}

// Create stores account unless one already exists for its identifier.
func (s *AccountStore) Create(ctx context.Context, account *Account) error {
	created, err := createAccountLua.Run(ctx, s.redis,
		[]string{s.key(account.Identifier)},
		"id", account.ID,
		"identifier", account.Identifier,
		"method", account.Method,
		"password_hash", account.PasswordHash,
		"created_at", strconv.FormatInt(account.CreatedAt, 10),
	).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
	}
	if created == 0 {
		return ErrAccountExists
	}
	return nil
}

func (s *AccountStore) Get(ctx context.Context, identifier string) (*Account, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(identifier)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrAccountNotFound
	}

	createdAt, _ := strconv.ParseInt(fields["created_at"], 10, 64)
	return &Account{
		ID:           fields["id"],
		Identifier:   fields["identifier"],
		Method:       fields["method"],
		PasswordHash: fields["password_hash"],
		CreatedAt:    createdAt,
	}, nil
}

func (s *AccountStore) Exists(ctx context.Context, identifier string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(identifier)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
	}
	return n == 1, nil
}

// consumeVerifiedLua deletes the marker only when it belongs to ARGV[1].
// Returns 1 on success, 0 when absent, -1 when held by another owner.
var consumeVerifiedLua = redis.NewScript(`
local owner = redis.call('GET', KEYS[1])
if not owner then
  return 0
end
if owner ~= ARGV[1] then
  return -1
end
redis.call('DEL', KEYS[1])
return 1
`)

// VerifiedStore remembers identifiers whose ownership was proven by OTP and
// that may create an account within the marker's TTL. A marker is bound to
// an owner string; only a consume by the same owner succeeds.
type VerifiedStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewVerifiedStore(redisClient redis.UniversalClient, prefix string) *VerifiedStore {
	if prefix == "" {
		prefix = "afv"
	}
	return &VerifiedStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *VerifiedStore) key(identifier string) string {
	return s.prefix + ":" + identifier
}

// Mark records an ownerless marker.
func (s *VerifiedStore) Mark(ctx context.Context, identifier string, ttl time.Duration) error {
	return s.MarkFor(ctx, identifier, "", ttl)
}

// MarkFor records a marker held by owner, replacing any earlier one.
func (s *VerifiedStore) MarkFor(ctx context.Context, identifier, owner string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(identifier), owner, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
	}
	return nil
}

// Consume deletes an ownerless marker and reports whether it was present.
func (s *VerifiedStore) Consume(ctx context.Context, identifier string) (bool, error) {
	return s.ConsumeFor(ctx, identifier, "")
}

// ConsumeFor deletes the marker when owner holds it. A marker held by
// someone else is left in place and reported as absent.
func (s *VerifiedStore) ConsumeFor(ctx context.Context, identifier, owner string) (bool, error) {
	n, err := consumeVerifiedLua.Run(ctx, s.redis, []string{s.key(identifier)}, owner).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
	}
	return n == 1, nil
}
