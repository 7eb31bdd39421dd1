package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sandeepkv93/secure-credential-service/internal/credential"
	"github.com/sandeepkv93/secure-credential-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	redisFieldHash      = "hash"
	redisFieldLastWrite = "last_write_ms"
	redisFieldLastLogin = "last_login_ms"
	redisFieldFailed    = "failed"
)

var ErrRedisTxContention = errors.New("credential reconcile retries exhausted")

type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// RedisCredentialStore keeps one hash per user and reconciles with
// WATCH/MULTI/EXEC, retrying when a concurrent writer wins the race.
type RedisCredentialStore struct {
	client     redis.UniversalClient
	users      UserDirectory
	prefix     string
	maxRetries int
	now        func() time.Time
}

func NewRedisCredentialStore(client redis.UniversalClient, users UserDirectory, prefix string, maxRetries int) *RedisCredentialStore {
	if prefix == "" {
		prefix = "cred"
	}
	if maxRetries <= 0 {
		maxRetries = 16
	}
	return &RedisCredentialStore{client: client, users: users, prefix: prefix, maxRetries: maxRetries, now: time.Now}
}

func (s *RedisCredentialStore) LookupByUserID(ctx context.Context, userID uint) (credential.Lookup, error) {
	id, err := resolveUserID(ctx, s.users, userID)
	if err != nil {
		return credential.Lookup{}, err
	}
	return s.lookup(ctx, id)
}

func (s *RedisCredentialStore) LookupByName(ctx context.Context, name string) (credential.Lookup, error) {
	id, err := resolveUserName(ctx, s.users, name)
	if err != nil {
		return credential.Lookup{}, err
	}
	return s.lookup(ctx, id)
}

func (s *RedisCredentialStore) lookup(ctx context.Context, userID uint) (credential.Lookup, error) {
	rec, err := s.read(ctx, s.client, userID)
	if err != nil {
		return credential.Lookup{}, err
	}
	return lookupFromRecord(userID, rec), nil
}

func (s *RedisCredentialStore) Reconcile(ctx context.Context, req credential.Request) (credential.Outcome, error) {
	if _, err := resolveUserID(ctx, s.users, req.UserID); err != nil {
		return credential.Outcome{}, err
	}
	key := s.key(req.UserID)
	var outcome credential.Outcome
	txf := func(tx *redis.Tx) error {
		existing, err := s.read(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		plan := credential.Apply(existing, req, s.now().UTC())
		outcome = plan.Outcome
		if !plan.Write {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, encodeCredential(plan.Record))
			if plan.Record.LastLoginAt == nil {
				pipe.HDel(ctx, key, redisFieldLastLogin)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return outcome, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return credential.Outcome{}, err
	}
	return credential.Outcome{}, ErrRedisTxContention
}

func (s *RedisCredentialStore) Destroy(ctx context.Context, _ uint, userID uint) error {
	if _, err := resolveUserID(ctx, s.users, userID); err != nil {
		return err
	}
	return s.client.Del(ctx, s.key(userID)).Err()
}

func (s *RedisCredentialStore) Inspect(ctx context.Context, userID uint) (*domain.Credential, error) {
	if _, err := resolveUserID(ctx, s.users, userID); err != nil {
		return nil, err
	}
	rec, err := s.read(ctx, s.client, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrCredentialNotFound
	}
	return rec, nil
}

func (s *RedisCredentialStore) key(userID uint) string {
	return fmt.Sprintf("%s:credential:%d", s.prefix, userID)
}

func (s *RedisCredentialStore) read(ctx context.Context, c hashReader, userID uint) (*domain.Credential, error) {
	fields, err := c.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeCredential(userID, fields)
}

func encodeCredential(rec *domain.Credential) map[string]any {
	out := map[string]any{
		redisFieldHash:      string(rec.PasswordHash),
		redisFieldLastWrite: strconv.FormatInt(rec.LastWriteAt.UnixMilli(), 10),
		redisFieldFailed:    strconv.FormatUint(uint64(rec.FailedAttemptCount), 10),
	}
	if rec.LastLoginAt != nil {
		out[redisFieldLastLogin] = strconv.FormatInt(rec.LastLoginAt.UnixMilli(), 10)
	}
	return out
}

func decodeCredential(userID uint, fields map[string]string) (*domain.Credential, error) {
	rec := &domain.Credential{UserID: userID, PasswordHash: []byte(fields[redisFieldHash])}
	writeMS, err := strconv.ParseInt(fields[redisFieldLastWrite], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", redisFieldLastWrite, err)
	}
	rec.LastWriteAt = time.UnixMilli(writeMS).UTC()
	failed, err := strconv.ParseUint(fields[redisFieldFailed], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", redisFieldFailed, err)
	}
	rec.FailedAttemptCount = uint8(failed)
	if v, ok := fields[redisFieldLastLogin]; ok {
		loginMS, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", redisFieldLastLogin, err)
		}
		t := time.UnixMilli(loginMS).UTC()
		rec.LastLoginAt = &t
	}
	return rec, nil
}
