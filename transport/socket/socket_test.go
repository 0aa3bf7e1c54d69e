package socket

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteFlushesImmediatelyWhenPeerIsReading(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	c, err := NewConn(client, DefaultOptions(Unix))
	require.NoError(t, err)
	defer c.Close()

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 5)
		n, _ := io.ReadFull(server, buf)
		done <- buf[:n]
	}()

	require.NoError(t, c.Write([]byte("hello")))
	select {
	case got := <-done:
		require.Equal(t, "hello", string(got))
	case <-time.After(time.Second):
		t.Fatal("peer never received the write")
	}
	require.Zero(t, c.QueueDepth())
}

func TestWriteOnClosedConnectionErrors(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	c, err := NewConn(client, DefaultOptions(Unix))
	require.NoError(t, err)
	require.NoError(t, c.Close())

	require.Error(t, c.Write([]byte("x")))
}

func TestDefaultOptionsEnablesNoDelay(t *testing.T) {
	opts := DefaultOptions(Inet)
	require.True(t, opts.NoDelay)
	require.False(t, opts.Keepalive)
}
