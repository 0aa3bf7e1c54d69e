// Package inode implements the GFID-indexed, reference-counted inode and
// dentry tables described in spec.md §3 and §4.2: lookup/link/rename,
// per-translator context slots, and LRU-bounded eviction with a purge
// sweep that invokes each translator's forget hook.
package inode

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/xlatorfs/xlatorfs/gfid"
)

// Type is the filesystem object type of an inode (spec.md §3).
type Type int

const (
	TypeUnknown Type = iota
	TypeRegular
	TypeDirectory
	TypeSymlink
	TypeBlockDevice
	TypeCharDevice
	TypeFIFO
	TypeSocket
)

// FDHandle is the minimal shape an open-file handle must expose to be
// tracked on an inode's FD list, avoiding an import cycle with package fd
// (an *fd.FD satisfies this by construction).
type FDHandle interface {
	ID() uint64
}

// Inode is an in-core representation of a filesystem object (spec.md §3).
type Inode struct {
	table *Table

	// immutable once linked
	gfid   gfid.ID
	linked bool

	mu       sync.Mutex
	iaType   Type
	nlookup  uint64
	dentries []*Dentry
	fds      []FDHandle
	ctx      ctxVector

	ref int32 // atomic; ref_count of spec.md §3

	// list membership, owned by the Table's lock, not by mu.
	listState  listState
	listElem   *list.Element
}

type listState int

const (
	listNone listState = iota
	listActive
	listLRU
	listPurge
)

// New constructs an inode with no identity: not yet present in any
// table index, ref count zero. It becomes visible to lookups only once
// Link is called (spec.md §3: "created by new() (no identity)").
func New(t *Table, iaType Type) *Inode {
	return &Inode{table: t, iaType: iaType, ctx: newCtxVector()}
}

// GFID returns the inode's GFID. It is gfid.Nil until the inode is
// linked.
func (n *Inode) GFID() gfid.ID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.gfid
}

// Type returns the filesystem object type.
func (n *Inode) Type() Type {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.iaType
}

// SetType updates the cached type, e.g. after a stat reply resolves a
// previously-unknown type.
func (n *Inode) SetType(t Type) {
	n.mu.Lock()
	n.iaType = t
	n.mu.Unlock()
}

// RefCount returns the live reference count (spec.md §8 invariant 4).
func (n *Inode) RefCount() int32 {
	return atomic.LoadInt32(&n.ref)
}

// Table returns the inode's owning table.
func (n *Inode) Table() *Table {
	return n.table
}

// Nlookup returns the FUSE lookup balance, independent of RefCount.
func (n *Inode) Nlookup() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nlookup
}

// AddNlookup adjusts the FUSE lookup balance by delta (may be negative).
func (n *Inode) AddNlookup(delta int64) {
	n.mu.Lock()
	if delta < 0 && uint64(-delta) > n.nlookup {
		n.nlookup = 0
	} else {
		n.nlookup = uint64(int64(n.nlookup) + delta)
	}
	n.mu.Unlock()
}

// Dentries returns a snapshot of the inode's current dentries.
func (n *Inode) Dentries() []*Dentry {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Dentry, len(n.dentries))
	copy(out, n.dentries)
	return out
}

func (n *Inode) addDentry(d *Dentry) {
	n.mu.Lock()
	n.dentries = append(n.dentries, d)
	n.mu.Unlock()
}

func (n *Inode) removeDentry(d *Dentry) {
	n.mu.Lock()
	for i, x := range n.dentries {
		if x == d {
			n.dentries = append(n.dentries[:i], n.dentries[i+1:]...)
			break
		}
	}
	n.mu.Unlock()
}

// AddFD records an open file handle on this inode (spec.md §3: "ordered
// list of open FDs").
func (n *Inode) AddFD(h FDHandle) {
	n.mu.Lock()
	n.fds = append(n.fds, h)
	n.mu.Unlock()
}

// RemoveFD drops a previously-recorded file handle.
func (n *Inode) RemoveFD(h FDHandle) {
	n.mu.Lock()
	for i, x := range n.fds {
		if x.ID() == h.ID() {
			n.fds = append(n.fds[:i], n.fds[i+1:]...)
			break
		}
	}
	n.mu.Unlock()
}

// FDCount returns the number of open handles on this inode.
func (n *Inode) FDCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.fds)
}

// FDs returns a snapshot of open handles.
func (n *Inode) FDs() []FDHandle {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]FDHandle, len(n.fds))
	copy(out, n.fds)
	return out
}

// --- context slots ---
//
// CtxGet1/CtxGet2/CtxSet1/CtxSet2 each have a locked form (used by callers
// with no opinion on the inode's lock) and an Unlocked form, callable only
// while the caller already holds the inode's lock via WithLock (spec.md
// §4.2). CtxGetPtr1, CtxSetPtr1, CtxDel and CtxReset have only the locked
// form.

func (n *Inode) CtxGet1(key any) (uint64, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ctx.Get1(key)
}

func (n *Inode) CtxGet1Unlocked(key any) (uint64, bool) { return n.ctx.Get1(key) }

func (n *Inode) CtxGet2(key any) (uint64, uint64, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ctx.Get2(key)
}

func (n *Inode) CtxGet2Unlocked(key any) (uint64, uint64, bool) { return n.ctx.Get2(key) }

func (n *Inode) CtxSet1(key any, v uint64) {
	n.mu.Lock()
	n.ctx.Set1(key, v)
	n.mu.Unlock()
}

func (n *Inode) CtxSet1Unlocked(key any, v uint64) { n.ctx.Set1(key, v) }

func (n *Inode) CtxSet2(key any, v1, v2 uint64) {
	n.mu.Lock()
	n.ctx.Set2(key, v1, v2)
	n.mu.Unlock()
}

func (n *Inode) CtxSet2Unlocked(key any, v1, v2 uint64) { n.ctx.Set2(key, v1, v2) }

func (n *Inode) CtxGetPtr1(key any) (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ctx.GetPtr1(key)
}

func (n *Inode) CtxSetPtr1(key any, v any) {
	n.mu.Lock()
	n.ctx.SetPtr1(key, v)
	n.mu.Unlock()
}

func (n *Inode) CtxDel(key any) {
	n.mu.Lock()
	n.ctx.Del(key)
	n.mu.Unlock()
}

func (n *Inode) CtxReset(key any) {
	n.mu.Lock()
	n.ctx.Reset(key)
	n.mu.Unlock()
}

// WithLock runs fn while holding the inode's lock, for callers that need
// to make several unlocked ctx calls atomically.
func (n *Inode) WithLock(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fn()
}

// needLookupKey is the ctx key reserved by the table for
// set_need_lookup/needs_lookup (spec.md §4.2). It lives in its own
// namespace (a dedicated type) so it can never collide with a real
// translator's ctx key.
type needLookupKey struct{ xl any }

// SetNeedLookup marks that the next lookup through xl should revalidate
// this inode (spec.md §4.2).
func (n *Inode) SetNeedLookup(xl any) {
	n.CtxSet1(needLookupKey{xl}, 1)
}

// NeedsLookup tests and clears the need-lookup bit for xl.
func (n *Inode) NeedsLookup(xl any) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.ctx.Get1(needLookupKey{xl})
	if ok && v != 0 {
		n.ctx.Reset(needLookupKey{xl})
		return true
	}
	return false
}

func (n *Inode) String() string {
	return fmt.Sprintf("inode(gfid=%s type=%v ref=%d)", n.gfid, n.iaType, n.RefCount())
}
