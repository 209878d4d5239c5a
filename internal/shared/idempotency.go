package shared

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyPending = "pending"

// ErrIdempotencyInFlight indicates the same key is still being processed.
var ErrIdempotencyInFlight = errors.New("idempotent request still in flight")

// IdempotencyStore remembers which request keys produced which record.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

func idempotencyKey(module, key string) string {
	return "idem:" + module + ":" + key
}

// Claim reserves key for module. When the key already completed, the stored
// record id is returned with claimed=false.
func (s *IdempotencyStore) Claim(ctx context.Context, module, key string) (recordID int64, claimed bool, err error) {
	if s == nil || s.client == nil || key == "" {
		return 0, true, nil
	}
	if module == "" {
		return 0, false, errors.New("idempotency module required")
	}
	full := idempotencyKey(module, key)
	ok, err := s.client.SetNX(ctx, full, idempotencyPending, s.ttl).Result()
	if err != nil {
		return 0, false, err
	}
	if ok {
		return 0, true, nil
	}
	value, err := s.client.Get(ctx, full).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return s.Claim(ctx, module, key)
		}
		return 0, false, err
	}
	if value == idempotencyPending {
		return 0, false, ErrIdempotencyInFlight
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return id, false, nil
}

// Complete stores the record produced for a claimed key.
func (s *IdempotencyStore) Complete(ctx context.Context, module, key string, recordID int64) error {
	if s == nil || s.client == nil || key == "" {
		return nil
	}
	return s.client.Set(ctx, idempotencyKey(module, key), strconv.FormatInt(recordID, 10), s.ttl).Err()
}

// Release drops a claim, typically after failed processing.
func (s *IdempotencyStore) Release(ctx context.Context, module, key string) error {
	if s == nil || s.client == nil || key == "" {
		return nil
	}
	return s.client.Del(ctx, idempotencyKey(module, key)).Err()
}
