package testutil

import (
	"sync"
	"testing"
	"time"
)

// WaitGroupWithTimeout fails the test if wg is not done within timeout.
func WaitGroupWithTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatalf("timeout after %s waiting for WaitGroup", timeout)
	}
}
