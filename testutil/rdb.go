// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// NewRedisClient starts an in-memory redis server for the test and returns a
// client connected to it. Both are closed when the test ends.
func NewRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr: server.Addr(),
	})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	return rdb, server
}

// RandomNamespace returns a random 10-character lowercase namespace, used to
// isolate the keys written by concurrent tests.
func RandomNamespace() string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	ns := make([]byte, 10)
	for i := range ns {
		ns[i] = letters[rand.Intn(len(letters))]
	}
	return string(ns)
}
