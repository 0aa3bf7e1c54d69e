// Package fd implements the open-file handle table described in
// spec.md §3/§4.3: refcounted FDs bound to an inode, anonymous FDs for
// core-internal operations, and per-translator FD-context slots with the
// same shape as an inode's.
package fd

import (
	"sync"
	"sync/atomic"

	"github.com/xlatorfs/xlatorfs/inode"
)

// ctxSlot mirrors inode's context slot shape (spec.md §3: "FD-context
// vector (same shape as inode ctx)").
type ctxSlot struct {
	v1, v2 uint64
	set1   bool
	set2   bool
}

// ReleaseFunc is invoked exactly once, when an FD's last reference drops,
// so the owning translator chain can run its release/releasedir hook
// (spec.md §4.3).
type ReleaseFunc func(*FD)

// FD is an open-file handle: it references an inode, carries the opener's
// pid and flags, and owns a per-translator context vector.
type FD struct {
	id    uint64
	inode *inode.Inode
	pid   int32
	flags uint32

	anonymous bool

	mu   sync.Mutex
	ctx  map[any]*ctxSlot
	ref  int32

	onRelease ReleaseFunc
}

var idCounter uint64

func nextID() uint64 {
	return atomic.AddUint64(&idCounter, 1)
}

// Open constructs a new FD bound to ino, carrying pid and flags, with an
// initial refcount of 1.
func Open(ino *inode.Inode, pid int32, flags uint32, onRelease ReleaseFunc) *FD {
	f := &FD{
		id:        nextID(),
		inode:     ino,
		pid:       pid,
		flags:     flags,
		ref:       1,
		onRelease: onRelease,
	}
	ino.AddFD(f)
	return f
}

// Anonymous constructs an FD with no user session, for core-internal
// operations (spec.md §3).
func Anonymous(ino *inode.Inode, onRelease ReleaseFunc) *FD {
	f := Open(ino, -1, 0, onRelease)
	f.anonymous = true
	return f
}

// ID satisfies inode.FDHandle so an inode can list its open FDs without
// importing this package.
func (f *FD) ID() uint64 { return f.id }

// Inode returns the FD's bound inode.
func (f *FD) Inode() *inode.Inode { return f.inode }

// PID returns the opener's pid, or -1 for an anonymous FD.
func (f *FD) PID() int32 { return f.pid }

// Flags returns the access flags the FD was opened with.
func (f *FD) Flags() uint32 { return f.flags }

// IsAnonymous reports whether this is a core-internal FD.
func (f *FD) IsAnonymous() bool { return f.anonymous }

// Ref atomically increments the FD's refcount and returns the new value.
func (f *FD) Ref() int32 {
	return atomic.AddInt32(&f.ref, 1)
}

// Unref atomically decrements the FD's refcount. When it reaches zero,
// ctx slots are torn down and the release hook (if any) is invoked
// exactly once (spec.md §4.3).
func (f *FD) Unref() int32 {
	n := atomic.AddInt32(&f.ref, -1)
	if n < 0 {
		panic("fd: refcount underflow")
	}
	if n == 0 {
		f.inode.RemoveFD(f)
		f.mu.Lock()
		f.ctx = nil
		f.mu.Unlock()
		if f.onRelease != nil {
			f.onRelease(f)
		}
	}
	return n
}

// RefCount reports the live reference count.
func (f *FD) RefCount() int32 {
	return atomic.LoadInt32(&f.ref)
}

func (f *FD) slot(key any, create bool) *ctxSlot {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ctx == nil {
		if !create {
			return nil
		}
		f.ctx = make(map[any]*ctxSlot)
	}
	s := f.ctx[key]
	if s == nil && create {
		s = &ctxSlot{}
		f.ctx[key] = s
	}
	return s
}

func (f *FD) CtxGet1(key any) (uint64, bool) {
	s := f.slot(key, false)
	if s == nil {
		return 0, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return s.v1, s.set1
}

func (f *FD) CtxSet1(key any, v uint64) {
	s := f.slot(key, true)
	f.mu.Lock()
	s.v1, s.set1 = v, true
	f.mu.Unlock()
}

func (f *FD) CtxGet2(key any) (uint64, uint64, bool) {
	s := f.slot(key, false)
	if s == nil {
		return 0, 0, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return s.v1, s.v2, s.set1 && s.set2
}

func (f *FD) CtxSet2(key any, v1, v2 uint64) {
	s := f.slot(key, true)
	f.mu.Lock()
	s.v1, s.set1 = v1, true
	s.v2, s.set2 = v2, true
	f.mu.Unlock()
}
