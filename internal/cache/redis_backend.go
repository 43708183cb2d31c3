package cache

import (
	"context"
	"encoding/json"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tbourn/go-vin-sticker-bot/internal/domain"
)

// RedisBackend stores each record as a JSON string under keyPrefix+VIN.
// Keys carry no TTL; entries live until evicted.
type RedisBackend struct {
	client    goredis.Cmdable
	keyPrefix string
}

var _ Backend = (*RedisBackend)(nil)

// RedisOption configures RedisBackend.
type RedisOption func(*RedisBackend)

// WithKeyPrefix sets the Redis key prefix (default "vinbot:result:").
func WithKeyPrefix(prefix string) RedisOption {
	return func(b *RedisBackend) { b.keyPrefix = prefix }
}

// NewRedisBackend returns a Backend on client, which must be a connected
// *goredis.Client or *goredis.ClusterClient.
func NewRedisBackend(client goredis.Cmdable, opts ...RedisOption) *RedisBackend {
	b := &RedisBackend{client: client, keyPrefix: "vinbot:result:"}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *RedisBackend) key(vin string) string { return b.keyPrefix + vin }

func (b *RedisBackend) Get(ctx context.Context, vin string) (*domain.ResultRecord, error) {
	raw, err := b.client.Get(ctx, b.key(vin)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var rec domain.ResultRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put overwrites the key in one SET, so a reader sees either the old or the
// new record.
func (b *RedisBackend) Put(ctx context.Context, rec *domain.ResultRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, b.key(rec.VIN), raw, 0).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, vin string) error {
	return b.client.Del(ctx, b.key(vin)).Err()
}
