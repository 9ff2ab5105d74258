package datastore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/holmberd/go-typedcodec/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupClient(t *testing.T, rdb *redis.Client) (*Client, context.Context) {
	t.Helper()
	ctx := context.Background()

	// A random namespace isolates the data of each test.
	ds, err := NewClient(rdb, testutil.RandomNamespace(), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	t.Cleanup(func() {
		if _, err := ds.Flush(ctx); err != nil {
			t.Fatalf("failed to flush datastore: %v", err)
		}
	})
	return ds, ctx
}

func TestNewClient(t *testing.T) {
	rdb, _ := testutil.NewRedisClient(t)

	t.Run("Valid namespace", func(t *testing.T) {
		ds, err := NewClient(rdb, "app_1")
		require.NoError(t, err)
		assert.Equal(t, "app_1", ds.Namespace())
		assert.Same(t, rdb, ds.RedisClient())
	})

	t.Run("Invalid namespace", func(t *testing.T) {
		for _, ns := range []string{"", "a:b", "a b", "a*"} {
			_, err := NewClient(rdb, ns)
			assert.ErrorIs(t, err, ErrInvalidKey, "namespace %q", ns)
		}
	})

	t.Run("Nil redis client", func(t *testing.T) {
		_, err := NewClient(nil, "app")
		assert.Error(t, err)
	})
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"user", true},
		{"user:1", true},
		{"a-b_c.d", true},
		{"", false},
		{":user", false},
		{"user:", false},
		{"user 1", false},
		{"user*", false},
		{"user?", false},
		{string(make([]byte, keyMaxLength+1)), false},
	}
	for _, tt := range tests {
		err := ValidateKey(tt.key)
		if tt.valid {
			assert.NoError(t, err, "key %q", tt.key)
		} else {
			assert.ErrorIs(t, err, ErrInvalidKey, "key %q", tt.key)
		}
	}
}

func TestDatastoreClient(t *testing.T) {
	rdb, server := testutil.NewRedisClient(t)

	t.Run("Put and Get", func(t *testing.T) {
		ds, ctx := setupClient(t, rdb)
		data := []byte("value")
		require.NoError(t, ds.Put(ctx, "put", data, 0))

		got, err := ds.Get(ctx, "put")
		require.NoError(t, err)
		assert.Equal(t, data, got)
		assert.True(t, server.Exists(ds.Namespace()+":put"), "should store the key under the namespace")
	})

	t.Run("Put overwrites", func(t *testing.T) {
		ds, ctx := setupClient(t, rdb)
		require.NoError(t, ds.Put(ctx, "k", []byte("one"), 0))
		require.NoError(t, ds.Put(ctx, "k", []byte("two"), 0))

		got, err := ds.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), got)
	})

	t.Run("Put with expiration", func(t *testing.T) {
		ds, ctx := setupClient(t, rdb)
		require.NoError(t, ds.Put(ctx, "ttl", []byte("v"), time.Minute))
		assert.Equal(t, time.Minute, server.TTL(ds.Namespace()+":ttl"))

		server.FastForward(2 * time.Minute)
		_, err := ds.Get(ctx, "ttl")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("Put invalid key", func(t *testing.T) {
		ds, ctx := setupClient(t, rdb)
		assert.ErrorIs(t, ds.Put(ctx, "bad key", []byte("v"), 0), ErrInvalidKey)
	})

	t.Run("Get missing key", func(t *testing.T) {
		ds, ctx := setupClient(t, rdb)
		_, err := ds.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("Namespaces are isolated", func(t *testing.T) {
		a, ctx := setupClient(t, rdb)
		b, _ := setupClient(t, rdb)
		require.NoError(t, a.Put(ctx, "shared", []byte("a"), 0))

		_, err := b.Get(ctx, "shared")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("PutMulti and GetMulti", func(t *testing.T) {
		ds, ctx := setupClient(t, rdb)
		keys := []string{"item-0", "item-1", "item-2"}
		data := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
		require.NoError(t, ds.PutMulti(ctx, keys, data, time.Hour))
		assert.Equal(t, time.Hour, server.TTL(ds.Namespace()+":item-1"))

		got, err := ds.GetMulti(ctx, append(keys, "missing"))
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{
			"item-0": []byte("one"),
			"item-1": []byte("two"),
			"item-2": []byte("three"),
		}, got, "should skip missing keys")
	})

	t.Run("PutMulti length mismatch", func(t *testing.T) {
		ds, ctx := setupClient(t, rdb)
		assert.Error(t, ds.PutMulti(ctx, []string{"a"}, nil, 0))
		assert.NoError(t, ds.PutMulti(ctx, nil, nil, 0), "should be a no-op for empty batch")
	})

	t.Run("Delete and Exists", func(t *testing.T) {
		ds, ctx := setupClient(t, rdb)
		require.NoError(t, ds.Put(ctx, "to-delete", []byte("temp"), 0))
		exists, err := ds.Exists(ctx, "to-delete")
		require.NoError(t, err)
		assert.True(t, exists)

		n, err := ds.Delete(ctx, "to-delete", "never-there")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		exists, err = ds.Exists(ctx, "to-delete")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Keys", func(t *testing.T) {
		ds, ctx := setupClient(t, rdb)
		for i := range 3 {
			require.NoError(t, ds.Put(ctx, fmt.Sprintf("user:%d", i), []byte("v"), 0))
		}
		require.NoError(t, ds.Put(ctx, "order:1", []byte("v"), 0))

		keys, err := ds.Keys(ctx, "user:*")
		require.NoError(t, err)
		assert.Equal(t, []string{"user:0", "user:1", "user:2"}, keys)

		all, err := ds.Keys(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("Scan", func(t *testing.T) {
		ds, ctx := setupClient(t, rdb)
		const numKeys = 25
		keys := make([]string, numKeys)
		data := make([][]byte, numKeys)
		for i := range numKeys {
			keys[i] = fmt.Sprintf("cursor-key:%d", i)
			data[i] = []byte("val")
		}
		require.NoError(t, ds.PutMulti(ctx, keys, data, 0))

		var (
			found  []string
			cursor uint64
		)
		for {
			page, next, err := ds.Scan(ctx, cursor, 10, "cursor-key:*")
			require.NoError(t, err)
			found = append(found, page...)
			if next == 0 {
				break
			}
			cursor = next
		}
		assert.Subset(t, found, keys)

		all, err := ds.ScanAll(ctx, "cursor-key:*")
		require.NoError(t, err)
		assert.ElementsMatch(t, keys, all)
	})

	t.Run("Flush", func(t *testing.T) {
		ds, ctx := setupClient(t, rdb)
		other, _ := setupClient(t, rdb)
		require.NoError(t, ds.PutMulti(ctx, []string{"a", "b"}, [][]byte{[]byte("1"), []byte("2")}, 0))
		require.NoError(t, other.Put(ctx, "a", []byte("kept"), 0))

		n, err := ds.Flush(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		keys, err := ds.Keys(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, keys)

		got, err := other.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("kept"), got, "should not touch other namespaces")
	})
}
