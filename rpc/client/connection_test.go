package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xlatorfs/xlatorfs/rpc/record"
)

type fakeTransport struct {
	mu       sync.Mutex
	connectErr error
	submitted [][]byte
	closed   bool
}

func (f *fakeTransport) Connect(ctx context.Context) error { return f.connectErr }

func (f *fakeTransport) Submit(rec []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, rec)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func connectedConn(t *testing.T) (*Connection, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{}
	c := New(ft, "127.0.0.1:24007")
	c.Connect(context.Background())
	require.Eventually(t, func() bool { return c.State() == Connected }, time.Second, time.Millisecond)
	return c, ft
}

func TestConnectTransitionsToConnected(t *testing.T) {
	_, _ = connectedConn(t)
}

func TestSubmitSavesFrameAndSendsRecord(t *testing.T) {
	c, ft := connectedConn(t)
	done := make(chan Reply, 1)
	err := c.Submit(nil, 1, 1, 1, record.Credential{}, []byte("payload"), func(r Reply) { done <- r })
	require.NoError(t, err)
	require.Equal(t, 1, c.SavedFrameCount())

	ft.mu.Lock()
	require.Len(t, ft.submitted, 1)
	ft.mu.Unlock()
}

func TestDeliverMatchesByXIDAndClearsSavedFrame(t *testing.T) {
	c, _ := connectedConn(t)
	done := make(chan Reply, 1)
	require.NoError(t, c.Submit(nil, 1, 1, 1, record.Credential{}, nil, func(r Reply) { done <- r }))
	require.Equal(t, 1, c.SavedFrameCount())

	c.Deliver(record.ReplyHeader{XID: 1, Stat: record.MsgAccepted, Accept: record.Success}, []byte("reply"))

	r := <-done
	require.False(t, r.RPCErr)
	require.Equal(t, []byte("reply"), r.Payload)
	require.Equal(t, 0, c.SavedFrameCount())
}

func TestDeliverWithNoMatchingFrameIsDropped(t *testing.T) {
	c, _ := connectedConn(t)
	require.NotPanics(t, func() {
		c.Deliver(record.ReplyHeader{XID: 999}, nil)
	})
}

func TestBailoutFailsExpiredFrame(t *testing.T) {
	c, _ := connectedConn(t)
	c.FrameTimeout = 20 * time.Millisecond

	done := make(chan Reply, 1)
	require.NoError(t, c.Submit(nil, 1, 1, 1, record.Credential{}, nil, func(r Reply) { done <- r }))

	select {
	case r := <-done:
		require.True(t, r.RPCErr)
	case <-time.After(time.Second):
		t.Fatal("bailout did not fire")
	}
	require.Equal(t, 0, c.SavedFrameCount())
}

func TestDisconnectFailsAllSavedFrames(t *testing.T) {
	c, _ := connectedConn(t)
	done := make(chan Reply, 2)
	require.NoError(t, c.Submit(nil, 1, 1, 1, record.Credential{}, nil, func(r Reply) { done <- r }))
	require.NoError(t, c.Submit(nil, 1, 1, 2, record.Credential{}, nil, func(r Reply) { done <- r }))

	c.Disconnect(context.Background())

	require.Eventually(t, func() bool { return c.State() == Connecting || c.State() == Disconnected }, time.Second, time.Millisecond)
	r1 := <-done
	r2 := <-done
	require.True(t, r1.RPCErr)
	require.True(t, r2.RPCErr)
}

func TestCloseStopsReconnecting(t *testing.T) {
	c, ft := connectedConn(t)
	c.Close()
	time.Sleep(10 * time.Millisecond)
	ft.mu.Lock()
	require.True(t, ft.closed)
	ft.mu.Unlock()
	require.Equal(t, Disconnected, c.State())
}

func TestPingDrivenDisconnectOnTimeout(t *testing.T) {
	c, _ := connectedConn(t)
	c.PingTimeout = 30 * time.Millisecond
	c.Ping = func(conn *Connection, cb func(Reply)) error {
		// Simulate a server that never answers the null dump ping.
		return nil
	}
	c.armPing(context.Background())

	require.Eventually(t, func() bool { return c.State() == Disconnected || c.State() == Connecting }, 2*time.Second, time.Millisecond)
}

func TestPingSuccessRearmsWithoutDisconnecting(t *testing.T) {
	c, _ := connectedConn(t)
	c.PingTimeout = 20 * time.Millisecond
	var pings int
	var mu sync.Mutex
	c.Ping = func(conn *Connection, cb func(Reply)) error {
		mu.Lock()
		pings++
		mu.Unlock()
		go cb(Reply{})
		return nil
	}
	c.armPing(context.Background())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return pings >= 2
	}, 2*time.Second, time.Millisecond)
	require.Equal(t, Connected, c.State())
}
