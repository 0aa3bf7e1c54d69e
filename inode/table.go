package inode

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/xlatorfs/xlatorfs/gfid"
)

// ForgetFunc is a translator's teardown hook, invoked once per purged
// inode so the translator can release whatever it stashed in that
// inode's context slot (spec.md §4.2, §4.4).
type ForgetFunc func(*Inode)

// Table is the GFID→inode map, dentry tree, and active/lru/purge
// lifecycle described in spec.md §3/§4.2. One Table exists per
// inode-table-owning translator (the core graph has one; the
// virtual-inode overlay of spec.md §4.10 owns a second, independent one).
type Table struct {
	mu sync.Mutex

	name     string
	lruLimit uint32

	root *Inode

	byGFID map[gfid.ID]*Inode
	byName map[nameKey]*Dentry

	active *list.List
	lru    *list.List
	purge  *list.List

	forgetHooks []ForgetFunc
}

// NewTable constructs an empty table. lruLimit == 0 disables eviction
// (spec.md §4.2 "useful on servers").
func NewTable(name string, lruLimit uint32) *Table {
	t := &Table{
		name:     name,
		lruLimit: lruLimit,
		byGFID:   make(map[gfid.ID]*Inode),
		byName:   make(map[nameKey]*Dentry),
		active:   list.New(),
		lru:      list.New(),
		purge:    list.New(),
	}
	root := New(t, TypeDirectory)
	root.gfid = gfid.Root
	root.linked = true
	t.byGFID[gfid.Root] = root
	t.root = root
	t.pushActive(root)
	atomic.StoreInt32(&root.ref, 1)
	return t
}

// Root returns the table's root directory inode.
func (t *Table) Root() *Inode { return t.root }

// RegisterForgetHook adds fn to the set of hooks called, once per purged
// inode, when the table drains its purge list (spec.md §4.2).
func (t *Table) RegisterForgetHook(fn ForgetFunc) {
	t.mu.Lock()
	t.forgetHooks = append(t.forgetHooks, fn)
	t.mu.Unlock()
}

func (t *Table) ActiveSize() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active.Len()
}

func (t *Table) LRUSize() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lru.Len()
}

func (t *Table) PurgeSize() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.purge.Len()
}

// Find returns the inode for gfidID, if linked (spec.md §4.2 inode_find).
func (t *Table) Find(id gfid.ID) (*Inode, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.byGFID[id]
	return n, ok
}

// Grep is the lookup fast path: walk the name-hash bucket for
// (parent, name). On hit it moves the inode to active and increments its
// ref, matching spec.md §4.2's grep semantics exactly (callers must not
// additionally call Ref).
func (t *Table) Grep(parent *Inode, name string) (*Inode, bool) {
	t.mu.Lock()
	d, ok := t.byName[dentryKey(parent, name)]
	if !ok {
		t.mu.Unlock()
		return nil, false
	}
	n := d.Inode
	t.refLocked(n)
	t.mu.Unlock()
	return n, true
}

// Link associates child with (parent, name, id), giving it identity. If
// an inode with id already exists in the table, the two are merged: the
// passed-in child is discarded and its caller should use the returned
// inode instead (spec.md §4.2, §9 "true-inode found after discover").
// Link enforces that a directory inode has at most one dentry. A newly
// linked inode goes on the active list if it already holds references
// and on the LRU list otherwise; the LRU limit is enforced by the next
// Unref, not here.
func (t *Table) Link(child *Inode, parent *Inode, name string, id gfid.ID, iaType Type) (*Inode, error) {
	if id.IsNil() {
		return nil, fmt.Errorf("inode: cannot link nil gfid")
	}
	if parent != nil {
		if parent.Type() != TypeDirectory {
			return nil, fmt.Errorf("inode: parent %s is not a directory", parent.GFID())
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	existing, found := t.byGFID[id]
	var target *Inode
	if found {
		target = existing
		t.mergeCtxLocked(child, existing)
	} else {
		target = child
		target.gfid = id
		target.linked = true
		t.byGFID[id] = target
		if atomic.LoadInt32(&target.ref) > 0 {
			t.pushActive(target)
		} else {
			t.pushLRU(target)
		}
	}
	if iaType != TypeUnknown {
		target.iaType = iaType
	}

	if parent != nil && name != "" {
		if target.Type() == TypeDirectory && len(target.Dentries()) >= 1 {
			// POSIX: a directory has at most one dentry. Rewrite the
			// existing one in place rather than appending a second.
			old := target.Dentries()[0]
			t.unlinkDentryLocked(old)
		}
		key := dentryKey(parent, name)
		if old, ok := t.byName[key]; ok && old.Inode != target {
			t.unlinkDentryLocked(old)
		}
		d := &Dentry{Parent: parent, Name: name, Inode: target}
		t.byName[key] = d
		target.addDentry(d)
	}

	return target, nil
}

// mergeCtxLocked moves stale's ctx slots onto canon, per spec.md §4.2:
// "the stale one has its ctx moved, not duplicated." Called with t.mu
// held; stale is never linked so no further table bookkeeping is needed
// for it.
func (t *Table) mergeCtxLocked(stale, canon *Inode) {
	if stale == canon {
		return
	}
	stale.mu.Lock()
	canon.mu.Lock()
	if canon.ctx.slots == nil && len(stale.ctx.slots) > 0 {
		canon.ctx.slots = make(map[ctxKey]*ctxSlot)
	}
	for k, s := range stale.ctx.slots {
		if _, exists := canon.ctx.slots[k]; !exists {
			canon.ctx.slots[k] = s
		}
	}
	canon.mu.Unlock()
	stale.mu.Unlock()
}

// Unlink removes the (parent, name) dentry. If the inode has no
// remaining dentries it is not immediately destroyed — destruction
// happens through the normal ref-drop / LRU / purge path.
func (t *Table) Unlink(parent *Inode, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.byName[dentryKey(parent, name)]
	if !ok {
		return fmt.Errorf("inode: no dentry (%s, %q)", parent.GFID(), name)
	}
	t.unlinkDentryLocked(d)
	return nil
}

func (t *Table) unlinkDentryLocked(d *Dentry) {
	delete(t.byName, dentryKey(d.Parent, d.Name))
	d.Inode.removeDentry(d)
}

// Rename rewrites (oldParent, oldName) → (newParent, newName) for the
// target inode under the table lock (spec.md §4.2). If the destination
// already had a dentry, it is unlinked first.
func (t *Table) Rename(oldParent *Inode, oldName string, newParent *Inode, newName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	oldKey := dentryKey(oldParent, oldName)
	d, ok := t.byName[oldKey]
	if !ok {
		return fmt.Errorf("inode: rename: no source dentry (%s, %q)", oldParent.GFID(), oldName)
	}
	target := d.Inode

	newKey := dentryKey(newParent, newName)
	if existing, ok := t.byName[newKey]; ok {
		t.unlinkDentryLocked(existing)
	}

	delete(t.byName, oldKey)
	target.removeDentry(d)

	nd := &Dentry{Parent: newParent, Name: newName, Inode: target}
	t.byName[newKey] = nd
	target.addDentry(nd)

	if target.Type() == TypeDirectory && len(target.Dentries()) > 1 {
		return fmt.Errorf("inode: rename produced %d dentries for directory %s", len(target.Dentries()), target.GFID())
	}
	return nil
}

// Ref increments inode's reference count, moving it to the active list on
// a zero-to-ref transition (spec.md §4.2 LRU discipline).
func (t *Table) Ref(n *Inode) int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refLocked(n)
}

// refLocked mutates n.ref under t.mu, but still uses an atomic store so
// that Inode.RefCount (which deliberately reads without taking t.mu, to
// stay callable from contexts that must not block on table activity)
// never observes a torn write (spec.md §8 invariant 4).
func (t *Table) refLocked(n *Inode) int32 {
	newRef := atomic.AddInt32(&n.ref, 1)
	if newRef == 1 && n.linked {
		t.pushActive(n)
	}
	return newRef
}

// Unref decrements inode's reference count. On a ref-to-zero transition
// it moves the inode to the tail of the LRU list and, if that pushes
// lru_size past lru_limit, evicts the least-recently-used inode(s) to
// the purge list and runs their forget hooks — outside the table lock,
// per spec.md §4.2 ("No eviction happens while the table lock is held").
func (t *Table) Unref(n *Inode) int32 {
	t.mu.Lock()
	newRef := atomic.LoadInt32(&n.ref) - 1
	if newRef < 0 {
		t.mu.Unlock()
		panic("inode: refcount underflow")
	}
	atomic.StoreInt32(&n.ref, newRef)
	var evicted []*Inode
	if newRef == 0 && n.linked {
		t.pushLRU(n)
		evicted = t.enforceLRULimitLocked()
	}
	t.mu.Unlock()

	t.runForgetHooks(evicted)

	if len(evicted) > 0 {
		t.mu.Lock()
		for _, v := range evicted {
			t.teardownLocked(v)
		}
		t.mu.Unlock()
	}
	return newRef
}

func (t *Table) runForgetHooks(batch []*Inode) {
	for _, n := range batch {
		for _, hook := range t.forgetHooks {
			hook(n)
		}
	}
}

// enforceLRULimitLocked moves inodes from the head of the LRU list to
// purge until lru_size <= lru_limit, returning the evicted batch. Called
// with t.mu held.
func (t *Table) enforceLRULimitLocked() []*Inode {
	if t.lruLimit == 0 {
		return nil
	}
	var evicted []*Inode
	for uint32(t.lru.Len()) > t.lruLimit {
		front := t.lru.Front()
		if front == nil {
			break
		}
		victim := front.Value.(*Inode)
		t.pushPurge(victim)
		evicted = append(evicted, victim)
	}
	return evicted
}

// DrainPurge runs the forget hooks and final teardown for every inode
// currently on the purge list. Unref already tears down the inodes it
// evicts itself; DrainPurge is only run when a caller invokes it.
func (t *Table) DrainPurge() {
	t.mu.Lock()
	var batch []*Inode
	for e := t.purge.Front(); e != nil; e = e.Next() {
		batch = append(batch, e.Value.(*Inode))
	}
	t.mu.Unlock()

	t.runForgetHooks(batch)

	t.mu.Lock()
	for _, n := range batch {
		t.teardownLocked(n)
	}
	t.mu.Unlock()
}

func (t *Table) teardownLocked(n *Inode) {
	if n.listState != listPurge {
		// already torn down by a racing drain
		return
	}
	delete(t.byGFID, n.gfid)
	for _, d := range n.Dentries() {
		delete(t.byName, dentryKey(d.Parent, d.Name))
	}
	n.mu.Lock()
	n.dentries = nil
	n.mu.Unlock()
	t.unlinkFromCurrentList(n)
	n.linked = false
}

func (t *Table) pushActive(n *Inode) {
	t.unlinkFromCurrentList(n)
	n.listElem = t.active.PushBack(n)
	n.listState = listActive
}

func (t *Table) pushLRU(n *Inode) {
	t.unlinkFromCurrentList(n)
	n.listElem = t.lru.PushBack(n)
	n.listState = listLRU
}

func (t *Table) pushPurge(n *Inode) {
	t.unlinkFromCurrentList(n)
	n.listElem = t.purge.PushBack(n)
	n.listState = listPurge
}

func (t *Table) unlinkFromCurrentList(n *Inode) {
	if n.listElem == nil {
		return
	}
	switch n.listState {
	case listActive:
		t.active.Remove(n.listElem)
	case listLRU:
		t.lru.Remove(n.listElem)
	case listPurge:
		t.purge.Remove(n.listElem)
	}
	n.listElem = nil
	n.listState = listNone
}

// Path reconstructs a path string by walking dentries upward, composing
// "/name/…"; for inodes reachable only by GFID it returns the canonical
// "<gfid:uuid>" form (spec.md §4.2).
func (t *Table) Path(n *Inode) string {
	if n == t.root {
		return "/"
	}
	var segs []string
	cur := n
	for {
		ds := cur.Dentries()
		if len(ds) == 0 {
			if cur == n {
				return n.gfid.PathPlaceholder()
			}
			break
		}
		d := ds[0]
		segs = append(segs, d.Name)
		if d.Parent == t.root || d.Parent == nil {
			break
		}
		cur = d.Parent
	}
	if len(segs) == 0 {
		return n.gfid.PathPlaceholder()
	}
	out := ""
	for i := len(segs) - 1; i >= 0; i-- {
		out += "/" + segs[i]
	}
	return out
}
