package socket

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// reservedPorts is the set of ports the privileged binder must skip,
// normally sourced from /proc/sys/net/ipv4/ip_local_reserved_ports on
// Linux. It is a package variable (rather than an argument threaded
// through every Dial call) so tests can substitute a small set without
// touching the filesystem.
var reservedPorts = loadReservedPorts()

func loadReservedPorts() map[int]bool {
	data, err := os.ReadFile("/proc/sys/net/ipv4/ip_local_reserved_ports")
	if err != nil {
		return nil
	}
	return parseReservedPorts(string(data))
}

func parseReservedPorts(s string) map[int]bool {
	out := make(map[int]bool)
	lo, hi, have := 0, 0, false
	flush := func() {
		if !have {
			return
		}
		if hi == 0 {
			hi = lo
		}
		for p := lo; p <= hi; p++ {
			out[p] = true
		}
		lo, hi, have = 0, 0, false
	}
	n, reading := 0, false
	for _, c := range s + ",\x00" {
		switch {
		case c >= '0' && c <= '9':
			n = n*10 + int(c-'0')
			reading = true
		case c == '-':
			lo, have = n, true
			n = 0
			reading = false
		case c == ',' || c == '\x00':
			if reading {
				if have {
					hi = n
				} else {
					lo, have = n, true
				}
			}
			flush()
			n = 0
			reading = false
		}
	}
	return out
}

// DialPrivileged dials addr on network ("tcp", "tcp4", "tcp6"),
// binding the local endpoint to a privileged port (<1024) by walking
// ports downward from 1023 and skipping the reserved-port set, per
// spec.md §4.7 "Port binding". If opts.AllowInsecure is set (the
// "secure-port requirement relaxed" case) or opts.Privileged is false,
// it dials from an ephemeral port instead.
func DialPrivileged(network, addr string, opts Options) (net.Conn, error) {
	if !opts.Privileged || opts.AllowInsecure {
		return net.Dial(network, addr)
	}

	var lastErr error
	for port := 1023; port > 0; port-- {
		if reservedPorts[port] {
			continue
		}
		d := net.Dialer{LocalAddr: &net.TCPAddr{Port: port}}
		conn, err := d.Dial(network, addr)
		if err == nil {
			return conn, nil
		}
		if !isPermissionOrInUse(err) {
			lastErr = err
			continue
		}
		lastErr = err
	}
	return nil, fmt.Errorf("socket: no privileged port available, last error: %w", lastErr)
}

func isPermissionOrInUse(err error) bool {
	return sysErrIs(err, unix.EACCES) || sysErrIs(err, unix.EADDRINUSE)
}

func sysErrIs(err error, target error) bool {
	type causer interface{ Unwrap() error }
	for err != nil {
		if err == target {
			return true
		}
		if c, ok := err.(causer); ok {
			err = c.Unwrap()
			continue
		}
		return false
	}
	return false
}
