// Package querycache memoizes computed answers in Redis for a bounded TTL.
// A nil *Cache is valid and caches nothing.
package querycache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "cvdwbi:q:"

type Options struct {
	URL          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DialTimeout  time.Duration
}

// Connect parses the URL, applies the timeouts and pings the server.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	ro, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.ReadTimeout > 0 {
		ro.ReadTimeout = opts.ReadTimeout
	}
	if opts.WriteTimeout > 0 {
		ro.WriteTimeout = opts.WriteTimeout
	}
	if opts.DialTimeout > 0 {
		ro.DialTimeout = opts.DialTimeout
	}

	client := redis.NewClient(ro)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

type Cache struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

func New(rdb redis.Cmdable, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl, prefix: defaultPrefix}
}

func (c *Cache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

// Key hashes the parts into a fixed-size key.
func Key(parts ...string) string {
	digest := xxhash.New()
	digest.Write([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(digest.Sum(nil))
}

// Get reports a miss as ok=false with a nil error.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	if c == nil || c.rdb == nil {
		return "", false, nil
	}
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	val, err := snappy.Decode(nil, raw)
	if err != nil {
		return "", false, fmt.Errorf("decode cached value: %w", err)
	}
	return string(val), true, nil
}

func (c *Cache) Set(ctx context.Context, key, value string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Set(ctx, c.prefix+key, snappy.Encode(nil, []byte(value)), c.ttl).Err()
}

func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	s, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		return false, fmt.Errorf("unmarshal cached value: %w", err)
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, string(b))
}
