package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// remoteTier abstracts the shared key-value store so tests can inject fakes.
type remoteTier interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
	Close() error
}

// redisTier implements remoteTier with a Redis client. Get/set are atomic by
// construction; TTL enforcement is delegated to the server.
type redisTier struct {
	client *redis.Client
}

// dialRedis parses the URL and probes the connection once. A failed probe
// here disables the remote tier for the life of the process.
func dialRedis(url string) (*redisTier, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &redisTier{client: client}, nil
}

func (t *redisTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := t.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (t *redisTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return t.client.Set(ctx, key, value, ttl).Err()
}

func (t *redisTier) Delete(ctx context.Context, key string) error {
	return t.client.Del(ctx, key).Err()
}

// DeleteByPrefix scans and removes keys under the given prefix.
func (t *redisTier) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	var removed int64
	iter := t.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := t.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, iter.Err()
}

func (t *redisTier) Close() error {
	return t.client.Close()
}
