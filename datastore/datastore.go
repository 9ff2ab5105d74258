// Package datastore provides a simple abstraction over Redis for storing and
// retrieving bytes under namespaced string keys.
//
// Every key is stored as "<namespace>:<key>", so several clients with
// different namespaces can share one redis database.
package datastore

import (
	"context"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-redis/redis/v8"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var ErrKeyNotFound = errors.New("datastore: key not found")

// maxScanCount is the largest page size requested from SCAN.
const maxScanCount = 1000

type options struct {
	logger *zap.Logger
}

type Option func(*options)

// WithLogger sets the client logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Client represents a datastore client scoped to a single key namespace.
// The client is safe for concurrent use.
type Client struct {
	rdb       *redis.Client
	namespace string
	logger    *zap.Logger
}

// NewClient creates a new instance of a Client writing under namespace.
func NewClient(rdb *redis.Client, namespace string, opts ...Option) (*Client, error) {
	if rdb == nil {
		return nil, errors.New("datastore: redis client must not be nil")
	}
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return &Client{
		rdb:       rdb,
		namespace: namespace,
		logger:    o.logger.With(zap.String("namespace", namespace)),
	}, nil
}

func (c *Client) Namespace() string {
	return c.namespace
}

// RedisClient returns the underlying Redis client.
//
// NOTE: This is an escape mechanism and should not be abused.
func (c *Client) RedisClient() *redis.Client {
	return c.rdb
}

// Put writes the data with the key to the store.
// If the key doesn't exist it's added, otherwise it's updated.
// A zero expiration means the key has no expiration time.
func (c *Client) Put(ctx context.Context, key string, data []byte, expiration time.Duration) error {
	rk, err := c.redisKey(key)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, rk, data, expiration).Err(); err != nil {
		return errors.Wrapf(err, "datastore: failed to write key %q", key)
	}
	return nil
}

// PutMulti is a batch version of Put.
func (c *Client) PutMulti(ctx context.Context, keys []string, data [][]byte, expiration time.Duration) error {
	if len(keys) != len(data) {
		return errors.Newf("datastore: got %d keys and %d values", len(keys), len(data))
	}
	if len(keys) == 0 {
		return nil // No-op for empty batch.
	}
	rks, err := c.redisKeys(keys)
	if err != nil {
		return err
	}

	pairs := make([]any, 0, 2*len(rks))
	for i, rk := range rks {
		pairs = append(pairs, rk, data[i])
	}

	pipe := c.rdb.Pipeline()
	pipe.MSet(ctx, pairs...)
	if expiration != 0 {
		for _, rk := range rks {
			pipe.Expire(ctx, rk, expiration)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "datastore: failed to write keys")
	}
	return nil
}

// Get retrieves the data associated with the key from the store.
// ErrKeyNotFound is returned if the key is not found in the store.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	rk, err := c.redisKey(key)
	if err != nil {
		return nil, err
	}
	data, err := c.rdb.Get(ctx, rk).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.Wrapf(ErrKeyNotFound, "key %q", key)
		}
		return nil, errors.Wrapf(err, "datastore: failed to read key %q", key)
	}
	return data, nil
}

// GetMulti retrieves data by their associated keys from the store.
// Keys not found in the store are not included in the returned map.
func (c *Client) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}
	rks, err := c.redisKeys(keys)
	if err != nil {
		return nil, err
	}
	results, err := c.rdb.MGet(ctx, rks...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "datastore: failed to read keys")
	}
	out := make(map[string][]byte, len(results))
	for i, res := range results {
		if res == nil {
			continue // Key not found; skip it.
		}
		s, ok := res.(string)
		if !ok {
			return nil, errors.Newf("datastore: unexpected type %T in MGET result", res)
		}
		out[keys[i]] = []byte(s)
	}
	return out, nil
}

// Delete deletes the provided keys from the store and returns the number of
// keys that existed.
func (c *Client) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil // No-op for empty keys.
	}
	rks, err := c.redisKeys(keys)
	if err != nil {
		return 0, err
	}
	n, err := c.rdb.Del(ctx, rks...).Result()
	if err != nil {
		return 0, errors.Wrap(err, "datastore: failed to delete keys")
	}
	return n, nil
}

// Exists checks whether the key exist in the store.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	rk, err := c.redisKey(key)
	if err != nil {
		return false, err
	}
	n, err := c.rdb.Exists(ctx, rk).Result()
	if err != nil {
		return false, errors.Wrapf(err, "datastore: failed to check key %q", key)
	}
	return n > 0, nil
}

// Keys returns every key in the namespace matching the glob pattern, sorted.
// An empty pattern matches all keys.
//
// NOTE: This is a blocking operation.
func (c *Client) Keys(ctx context.Context, pattern string) ([]string, error) {
	rks, err := c.rdb.Keys(ctx, c.matchPattern(pattern)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "datastore: failed to list keys")
	}
	keys := lo.Map(rks, func(rk string, _ int) string { return c.logicalKey(rk) })
	slices.Sort(keys)
	return keys, nil
}

// Scan returns one page of keys matching pattern using cursor pagination.
// Start with cursor 0; a returned cursor of 0 ends the iteration.
//   - Does not guarantee an exact number of keys returned per page.
//   - A given key may be returned multiple times.
//   - Keys that were not constantly present during a full iteration may be returned or not.
func (c *Client) Scan(ctx context.Context, cursor uint64, limit int, pattern string) ([]string, uint64, error) {
	if limit <= 0 || limit > maxScanCount {
		limit = maxScanCount
	}
	rks, next, err := c.rdb.Scan(ctx, cursor, c.matchPattern(pattern), int64(limit)).Result()
	if err != nil {
		return nil, 0, errors.Wrap(err, "datastore: failed to scan keys")
	}
	keys := lo.Map(rks, func(rk string, _ int) string { return c.logicalKey(rk) })
	return keys, next, nil
}

// ScanAll retrieves all keys matching pattern without blocking the server.
// Duplicates returned across pages are removed.
func (c *Client) ScanAll(ctx context.Context, pattern string) ([]string, error) {
	var (
		all    []string
		cursor uint64
	)
	for {
		keys, next, err := c.Scan(ctx, cursor, maxScanCount, pattern)
		if err != nil {
			return nil, err
		}
		all = append(all, keys...)
		if next == 0 {
			break
		}
		cursor = next
	}
	return lo.Uniq(all), nil
}

// Flush deletes every key in the namespace and returns how many were removed.
func (c *Client) Flush(ctx context.Context) (int64, error) {
	keys, err := c.ScanAll(ctx, "")
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	rks := lo.Map(keys, func(k string, _ int) string { return c.namespace + KeyDelimiter + k })
	n, err := c.rdb.Del(ctx, rks...).Result()
	if err != nil {
		return 0, errors.Wrap(err, "datastore: failed to flush namespace")
	}
	c.logger.Debug("datastore: flushed namespace", zap.Int64("keys", n))
	return n, nil
}
