package wsfeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"arbfind/internal/obs"
)

func TestClient_StopTerminatesPromptlyOnDialFailure(t *testing.T) {
	c := New("ws://127.0.0.1:1/does-not-exist", func([]byte) (string, bool) { return "", false }, func(string, []byte) error { return nil }, obs.NewNop())
	c.reconnectWait = 10 * time.Millisecond

	c.Start(context.Background())

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return in time")
	}
	assert.True(t, true)
}
