package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeRecordVersionV1 = 1
)

var (
	ErrChallengeNotFound         = errors.New("otp challenge not found")
	ErrChallengeMismatch         = errors.New("otp challenge mismatch")
	ErrChallengeAttemptsExceeded = errors.New("otp challenge attempts exceeded")
	ErrChallengeRedisUnavailable = errors.New("otp challenge redis unavailable")
)

// consumeChallengeLua atomically performs GET→validate→DEL/SET on a challenge.
// KEYS[1] = challenge key
// ARGV[1] = auth token hash (32 bytes)
// ARGV[2] = code hash (32 bytes)
// ARGV[3] = max attempts
// ARGV[4] = current unix timestamp
// ARGV[5] = expected identifier ("" skips the check)
//
// Layout: version(1) method(1) purpose(1) attempts(2) expiresAt(8)
// identifierLen(2) identifier tokenHash(32) codeHash(32)
//
// Returns the record bytes on success, or one of the errors
// "not_found", "expired", "attempts_exceeded", "mismatch",
// "identifier_mismatch". An identifier mismatch leaves the challenge untouched.
var consumeChallengeLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

local tokenHash = ARGV[1]
local codeHash = ARGV[2]
local maxAttempts = tonumber(ARGV[3])
local nowUnix = tonumber(ARGV[4])

if string.byte(data, 1) ~= 1 then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

local attempts = string.byte(data, 4) * 256 + string.byte(data, 5)

local expiresAt = 0
for i = 6, 13 do
  expiresAt = expiresAt * 256 + string.byte(data, i)
end

if nowUnix > expiresAt then
  redis.call('DEL', KEYS[1])
  return {err='expired'}
end

local identLen = string.byte(data, 14) * 256 + string.byte(data, 15)
if ARGV[5] ~= '' and string.sub(data, 16, 15 + identLen) ~= ARGV[5] then
  return {err='identifier_mismatch'}
end

local tokenOffset = 16 + identLen
local storedToken = string.sub(data, tokenOffset, tokenOffset + 31)
local storedCode = string.sub(data, tokenOffset + 32, tokenOffset + 63)

if storedToken ~= tokenHash or storedCode ~= codeHash then
  attempts = attempts + 1
  if attempts >= maxAttempts then
    redis.call('DEL', KEYS[1])
    return {err='attempts_exceeded'}
  end
  local newData = string.sub(data, 1, 3) .. string.char(math.floor(attempts / 256), attempts % 256) .. string.sub(data, 6)
  local ttlMs = redis.call('PTTL', KEYS[1])
  if ttlMs <= 0 then
    redis.call('DEL', KEYS[1])
    return {err='expired'}
  end
  redis.call('SET', KEYS[1], newData, 'PX', ttlMs)
  return {err='mismatch'}
end

redis.call('DEL', KEYS[1])
return data
`)

// ChallengeRecord is one outstanding OTP challenge. Secrets are stored as
// SHA-256 hashes only.
type ChallengeRecord struct {
	Identifier string
	Method     uint8
	Purpose    uint8
	TokenHash  [32]byte
	CodeHash   [32]byte
	ExpiresAt  int64
	Attempts   uint16
}

// ChallengeStore keeps OTP challenges keyed by verification id.
type ChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewChallengeStore(redisClient redis.UniversalClient, prefix string) *ChallengeStore {
	if prefix == "" {
		prefix = "afo"
	}
	return &ChallengeStore{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

// WithClock overrides the clock used for expiry checks.
func (s *ChallengeStore) WithClock(now func() time.Time) *ChallengeStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *ChallengeStore) key(verificationID string) string {
	return s.prefix + ":" + verificationID
}

func (s *ChallengeStore) Save(ctx context.Context, verificationID string, record *ChallengeRecord, ttl time.Duration) error {
	encoded, err := encodeChallengeRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(verificationID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeRedisUnavailable, err)
	}
	return nil
}

// Consume checks both hashes against the stored challenge. A match deletes
// the challenge and returns it. A mismatch counts one attempt; reaching
// maxAttempts deletes the challenge and returns [ErrChallengeAttemptsExceeded].
func (s *ChallengeStore) Consume(
	ctx context.Context,
	verificationID string,
	tokenHash, codeHash [32]byte,
	maxAttempts int,
) (*ChallengeRecord, error) {
	return s.ConsumeFor(ctx, verificationID, "", tokenHash, codeHash, maxAttempts)
}

// ConsumeFor is [ChallengeStore.Consume] bound to identifier. A challenge
// issued for another identifier yields [ErrChallengeMismatch] and is neither
// deleted nor charged an attempt. An empty identifier skips the check.
func (s *ChallengeStore) ConsumeFor(
	ctx context.Context,
	verificationID, identifier string,
	tokenHash, codeHash [32]byte,
	maxAttempts int,
) (*ChallengeRecord, error) {
	result, err := consumeChallengeLua.Run(ctx, s.redis,
		[]string{s.key(verificationID)},
		string(tokenHash[:]),
		string(codeHash[:]),
		maxAttempts,
		s.now().Unix(),
		identifier,
	).Result()
	if err != nil {
		switch err.Error() {
		case "not_found", "expired":
			return nil, ErrChallengeNotFound
		case "attempts_exceeded":
			return nil, ErrChallengeAttemptsExceeded
		case "mismatch", "identifier_mismatch":
			return nil, ErrChallengeMismatch
		default:
			return nil, fmt.Errorf("%w: %v", ErrChallengeRedisUnavailable, err)
		}
	}

	data, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected lua result type", ErrChallengeRedisUnavailable)
	}

	record, decErr := decodeChallengeRecord([]byte(data))
	if decErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallengeRedisUnavailable, decErr)
	}
	if identifier != "" && record.Identifier != identifier {
		return nil, ErrChallengeMismatch
	}

	// Lua string comparison is not constant-time.
	if subtle.ConstantTimeCompare(record.TokenHash[:], tokenHash[:]) != 1 ||
		subtle.ConstantTimeCompare(record.CodeHash[:], codeHash[:]) != 1 {
		return nil, ErrChallengeMismatch
	}

	return record, nil
}

func encodeChallengeRecord(record *ChallengeRecord) ([]byte, error) {
	if len(record.Identifier) > 65535 {
		return nil, errors.New("challenge identifier too long")
	}

	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersionV1)
	buf.WriteByte(record.Method)
	buf.WriteByte(record.Purpose)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.Identifier))); err != nil {
		return nil, err
	}
	buf.WriteString(record.Identifier)
	buf.Write(record.TokenHash[:])
	buf.Write(record.CodeHash[:])

	return buf.Bytes(), nil
}

func decodeChallengeRecord(data []byte) (*ChallengeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersionV1 {
		return nil, errors.New("invalid challenge record version")
	}

	record := &ChallengeRecord{}
	if record.Method, err = reader.ReadByte(); err != nil {
		return nil, err
	}
	if record.Purpose, err = reader.ReadByte(); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var identLen uint16
	if err := binary.Read(reader, binary.BigEndian, &identLen); err != nil {
		return nil, err
	}
	ident := make([]byte, identLen)
	if _, err := io.ReadFull(reader, ident); err != nil {
		return nil, err
	}
	record.Identifier = string(ident)

	if _, err := io.ReadFull(reader, record.TokenHash[:]); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.CodeHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
