package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-otp-auth/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "otp:"
	// keyGrace keeps the key past the record's expiry so the ledger clock,
	// not the server, decides validity.
	keyGrace = time.Minute
)

// Conditional updates run as Lua so the nonce check and the write are one
// atomic step on the server.
var (
	markVerifiedScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'nonce') ~= ARGV[1] then return 0 end
redis.call('HSET', KEYS[1], 'verified', '1')
return 1
`)

	consumeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'nonce') ~= ARGV[1] then return 0 end
if redis.call('HGET', KEYS[1], 'verified') ~= '1' then return -1 end
local rec = redis.call('HGETALL', KEYS[1])
redis.call('DEL', KEYS[1])
return rec
`)

	deleteScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'nonce') == ARGV[1] then return redis.call('DEL', KEYS[1]) end
return 0
`)
)

// LedgerStore keeps each OTP record in a hash at otp:{purpose}:{email}.
// The key expires with the record; validity is still judged by the ledger clock.
type LedgerStore struct {
	client redis.UniversalClient
}

func NewLedgerStore(client redis.UniversalClient) *LedgerStore {
	return &LedgerStore{client: client}
}

func ledgerKey(purpose domain.Purpose, email string) string {
	return keyPrefix + string(purpose) + ":" + email
}

// Put replaces the hash inside MULTI/EXEC so readers never see a mix of the
// old and new record.
func (s *LedgerStore) Put(ctx context.Context, rec *domain.OTPRecord) error {
	key := ledgerKey(rec.Purpose, rec.Email)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, toHash(rec))
		pipe.ExpireAt(ctx, key, time.Unix(rec.ExpiresAt, 0).Add(keyGrace))
		return nil
	})
	if err != nil {
		return fmt.Errorf("put otp: %w", err)
	}
	return nil
}

func (s *LedgerStore) Get(ctx context.Context, purpose domain.Purpose, email string) (*domain.OTPRecord, error) {
	fields, err := s.client.HGetAll(ctx, ledgerKey(purpose, email)).Result()
	if err != nil {
		return nil, fmt.Errorf("get otp: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrOTPNotIssued
	}
	return fromHash(fields)
}

func (s *LedgerStore) MarkVerified(ctx context.Context, purpose domain.Purpose, email, nonce string) error {
	n, err := markVerifiedScript.Run(ctx, s.client, []string{ledgerKey(purpose, email)}, nonce).Int()
	if err != nil {
		return fmt.Errorf("mark otp: %w", err)
	}
	if n == 0 {
		return domain.ErrOTPNotIssued
	}
	return nil
}

func (s *LedgerStore) Consume(ctx context.Context, purpose domain.Purpose, email, nonce string) (*domain.OTPRecord, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{ledgerKey(purpose, email)}, nonce).Result()
	if err != nil {
		return nil, fmt.Errorf("consume otp: %w", err)
	}
	switch v := res.(type) {
	case int64:
		if v == -1 {
			return nil, domain.ErrNotVerified
		}
		return nil, domain.ErrOTPNotIssued
	case []interface{}:
		fields, err := pairsToMap(v)
		if err != nil {
			return nil, err
		}
		return fromHash(fields)
	default:
		return nil, fmt.Errorf("consume otp: unexpected reply %T", res)
	}
}

func (s *LedgerStore) Delete(ctx context.Context, purpose domain.Purpose, email, nonce string) error {
	if err := deleteScript.Run(ctx, s.client, []string{ledgerKey(purpose, email)}, nonce).Err(); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}

func toHash(rec *domain.OTPRecord) map[string]interface{} {
	verified := "0"
	if rec.Verified {
		verified = "1"
	}
	return map[string]interface{}{
		"email":      rec.Email,
		"purpose":    string(rec.Purpose),
		"code":       rec.Code,
		"nonce":      rec.Nonce,
		"verified":   verified,
		"created_at": strconv.FormatInt(rec.CreatedAt.UnixNano(), 10),
		"expires_at": strconv.FormatInt(rec.ExpiresAt, 10),
	}
}

func fromHash(fields map[string]string) (*domain.OTPRecord, error) {
	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("otp created_at: %w", err)
	}
	expires, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("otp expires_at: %w", err)
	}
	return &domain.OTPRecord{
		Email:     fields["email"],
		Purpose:   domain.Purpose(fields["purpose"]),
		Code:      fields["code"],
		Nonce:     fields["nonce"],
		Verified:  fields["verified"] == "1",
		CreatedAt: time.Unix(0, created).UTC(),
		ExpiresAt: expires,
	}, nil
}

// pairsToMap turns an HGETALL reply from a script into a map.
func pairsToMap(pairs []interface{}) (map[string]string, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("odd HGETALL reply")
	}
	m := make(map[string]string, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		k, ok1 := pairs[i].(string)
		v, ok2 := pairs[i+1].(string)
		if !ok1 || !ok2 {
			return nil, errors.New("non-string HGETALL reply")
		}
		m[k] = v
	}
	return m, nil
}
