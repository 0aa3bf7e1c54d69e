package stack

// Identity carries the credentials of the external request that a root
// frame was created for (spec.md §3, §4.1). It is immutable after
// construction; an internal operation that must run under different
// credentials builds a new root frame rather than mutating this one.
type Identity struct {
	UID       uint32
	GID       uint32
	PID       int32
	Groups    []uint32
	LockOwner uint64

	// Transport identifies the originating connection (a peer address
	// string, or "" for internally-generated calls with no client
	// session). It lets the root frame's reply path route a response
	// back to the right wire connection.
	Transport string
}

// Anonymous is the identity used for core-internal operations (LRU
// forget sweeps, virtual-inode resolution) that have no user session.
var Anonymous = &Identity{}
