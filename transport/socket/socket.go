// Package socket implements the nonblocking, vectored-I/O transport
// described in spec.md §4.7: record assembly over a byte stream,
// queued writes with partial-write retry, privileged port binding, and
// TCP_NODELAY/keepalive tuning.
package socket

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Family names the transport address families of spec.md §6. InetSDP is
// treated as Inet for binding purposes but preserved in identifiers.
type Family int

const (
	Inet Family = iota
	Inet6
	Unix
	InetSDP
)

// Options configures a Conn's socket-level tuning (spec.md §4.7
// "Keepalive and nodelay").
type Options struct {
	Family         Family
	NoDelay        bool // true in DefaultOptions; NewConn applies it as given
	Keepalive      bool
	KeepaliveIdle  int // seconds
	KeepaliveIntvl int // seconds
	WindowSize     int // SO_RCVBUF/SO_SNDBUF, 0 leaves the OS default

	// Privileged requests binding to a port below 1024 when dialing
	// out (spec.md §4.7 "Port binding"); AllowInsecure lets the
	// connection proceed from an ephemeral port instead, and is the
	// Go analogue of the "secure-port requirement relaxed" case.
	Privileged    bool
	AllowInsecure bool
}

// Conn wraps a net.Conn with the queued-write and tuning behavior
// spec.md §4.7 asks of the transport layer. Reads are driven by
// ReadLoop, which feeds a Reader state machine (reader.go) and invokes
// OnPollin for each assembled record.
type Conn struct {
	opts Options
	raw  net.Conn

	mu       sync.Mutex
	writeBuf [][]byte // residual queued fragments, oldest first
	closed   bool

	OnPollin   func(Pollin)
	OnDisconnect func(error)
}

// DefaultOptions returns the spec.md §4.7 defaults for family: NoDelay
// on, keepalive off. Callers build on top of this rather than the zero
// Options value, since a zero-value Options would leave NoDelay off.
func DefaultOptions(family Family) Options {
	return Options{Family: family, NoDelay: true}
}

// NewConn wraps an already-established net.Conn (from Dial or an
// Accept loop) with transport tuning.
func NewConn(raw net.Conn, opts Options) (*Conn, error) {
	if err := tune(raw, opts); err != nil {
		return nil, err
	}
	return &Conn{opts: opts, raw: raw}, nil
}

func tune(raw net.Conn, opts Options) error {
	tc, ok := raw.(*net.TCPConn)
	if !ok {
		return nil // unix-domain sockets have nothing to tune here
	}
	if opts.NoDelay {
		if err := tc.SetNoDelay(true); err != nil {
			return fmt.Errorf("socket: set nodelay: %w", err)
		}
	}
	if opts.Keepalive {
		if err := tc.SetKeepAlive(true); err != nil {
			return fmt.Errorf("socket: set keepalive: %w", err)
		}
		if opts.KeepaliveIdle > 0 {
			if err := tc.SetKeepAlivePeriod(time.Duration(opts.KeepaliveIdle) * time.Second); err != nil {
				return fmt.Errorf("socket: set keepalive period: %w", err)
			}
		}
	}
	if opts.WindowSize > 0 {
		if err := tc.SetReadBuffer(opts.WindowSize); err != nil {
			return fmt.Errorf("socket: set rcvbuf: %w", err)
		}
		if err := tc.SetWriteBuffer(opts.WindowSize); err != nil {
			return fmt.Errorf("socket: set sndbuf: %w", err)
		}
	}
	return sysTune(tc, opts)
}

// sysTune applies the options net.TCPConn has no portable setter for
// (the keepalive probe interval, distinct from the idle time).
func sysTune(tc *net.TCPConn, opts Options) error {
	if !opts.Keepalive || opts.KeepaliveIntvl <= 0 {
		return nil
	}
	sc, err := tc.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = sc.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, opts.KeepaliveIntvl)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// Write queues a full record for transmission. The write is attempted
// immediately; any unsent residual is retained and flushed by
// subsequent Write/Flush calls, matching spec.md §4.7's "partial writes
// leave the residual vector and are retried" rule.
func (c *Conn) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("socket: write on closed connection")
	}
	c.writeBuf = append(c.writeBuf, data)
	return c.flushLocked()
}

// Flush attempts to drain any residual queued write, non-blocking with
// respect to the caller beyond what the OS's write(2) itself blocks on.
func (c *Conn) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

func (c *Conn) flushLocked() error {
	for len(c.writeBuf) > 0 {
		head := c.writeBuf[0]
		n, err := c.raw.Write(head)
		if err != nil {
			return err
		}
		if n < len(head) {
			c.writeBuf[0] = head[n:]
			return nil // residual retained; caller retries on writable
		}
		c.writeBuf = c.writeBuf[1:]
	}
	return nil
}

// QueueDepth reports the number of bytes still queued for write, the
// quantity behind SPEC_FULL §4.13's xlatorfs_socket_write_queue_bytes
// gauge; no caller in this repository feeds it to that gauge.
func (c *Conn) QueueDepth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.writeBuf {
		n += len(b)
	}
	return n
}

// Close shuts the underlying connection down and marks future writes
// as errors.
func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.raw.Close()
}

