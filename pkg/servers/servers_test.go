package servers

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClosable struct {
	closed atomic.Int32
}

func (c *countingClosable) Close() {
	c.closed.Add(1)
}

func TestBaseServer(t *testing.T) {
	t.Parallel()

	closable := new(countingClosable)
	name, server := BuildBaseServer(closable, nil)
	assert.Equal(t, "base-server", name)

	done := make(chan error, 1)
	go func() { done <- server.Run(context.Background()) }()

	require.NoError(t, server.Stop(context.Background()))
	require.NoError(t, server.Stop(context.Background()))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("base server did not stop")
	}

	assert.Equal(t, int32(1), closable.closed.Load())
}

func TestBaseServer_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	server := NewBaseServer()

	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("base server ignored context cancellation")
	}
}

func TestHttpServer(t *testing.T) {
	t.Parallel()

	internal := NewServer("127.0.0.1", "0", http.NotFoundHandler())
	assert.Equal(t, "127.0.0.1:0", internal.Addr)

	name, server := BuildHttpServer("rest-server", internal)
	assert.Equal(t, "rest-server", name)

	done := make(chan error, 1)
	go func() { done <- server.Run(context.Background()) }()

	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, server.Stop(ctx))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("http server did not stop")
	}
}

func TestHttpServer_FailsToStart(t *testing.T) {
	t.Parallel()

	server := NewHttpServer("bad-server", NewServer("127.0.0.1", "not-a-port", http.NotFoundHandler()))

	err := server.Run(context.Background())
	require.ErrorIs(t, err, ErrStart)
	assert.Contains(t, err.Error(), "server bad-server failed to start")
}
