package socket

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseReservedPortsSingleAndRange(t *testing.T) {
	ports := parseReservedPorts("22,100-103,443")
	require.True(t, ports[22])
	require.True(t, ports[443])
	for p := 100; p <= 103; p++ {
		require.Truef(t, ports[p], "port %d should be in range 100-103", p)
	}
	require.False(t, ports[104])
	require.False(t, ports[21])
}

func TestParseReservedPortsEmpty(t *testing.T) {
	require.Empty(t, parseReservedPorts(""))
}

func TestDialPrivilegedFallsBackToEphemeralWhenNotRequested(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
		close(accepted)
	}()

	conn, err := DialPrivileged("tcp", ln.Addr().String(), Options{Privileged: false})
	require.NoError(t, err)
	conn.Close()
	<-accepted
}
