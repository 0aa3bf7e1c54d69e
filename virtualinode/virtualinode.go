// Package virtualinode implements the by-GFID synthetic directory
// overlay of spec.md §4.10: a lookup under the well-known virtual
// directory parses its name as a GFID and resolves to the real inode,
// without the kernel ever seeing two distinct inodes alias the same
// object.
package virtualinode

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/xlatorfs/xlatorfs/gfid"
	"github.com/xlatorfs/xlatorfs/inode"
	"github.com/xlatorfs/xlatorfs/stack"
	"github.com/xlatorfs/xlatorfs/xlator"
)

// LookupDown performs an ordinary lookup further down the graph,
// standing in for "winds a normal lookup down the stack" (spec.md
// §4.10). It is supplied by the translator embedding Overlay so this
// package stays independent of any concrete Translator implementation.
type LookupDown func(ctx context.Context, frame *stack.Frame, real *inode.Inode) (xlator.Iatt, syscall.Errno)

// Overlay resolves names under the virtual directory (gfid.VirtualDir)
// to real inodes, maintaining a second inode table (spec.md §4.10:
// "the overlay maintains a per-virtual-inode ctx slot pointing to the
// real inode").
type Overlay struct {
	real *inode.Table // the core graph's inode table, resolves the GFID
	virt *inode.Table // the overlay's own table of virtual inodes
	self any          // ctx key this overlay uses on virtual inodes

	down LookupDown
}

// New constructs an Overlay over real (the graph's inode table), given
// the lookup-down callback and a ctx key (conventionally the
// translator's own Base pointer) used to tag the real-inode slot on
// virtual inodes.
func New(real *inode.Table, down LookupDown, ctxKey any) *Overlay {
	return &Overlay{
		real: real,
		virt: inode.NewTable("virtual-inode", 0),
		self: ctxKey,
		down: down,
	}
}

// ErrNotAGFID is returned when a name under the virtual directory does
// not parse as a GFID.
var ErrNotAGFID = errors.New("virtualinode: name is not a valid GFID")

// Lookup resolves name (expected to be a GFID string) under the virtual
// directory. On first resolution it constructs a nameless virtual
// inode, winds an ordinary lookup for the parsed GFID down the stack,
// and on success stashes the real inode in the virtual inode's ctx slot
// (spec.md §4.10).
func (o *Overlay) Lookup(ctx context.Context, frame *stack.Frame, name string) (*inode.Inode, xlator.Iatt, syscall.Errno) {
	id, err := gfid.Parse(name)
	if err != nil {
		return nil, xlator.Iatt{}, syscall.EINVAL
	}

	if real, ok := o.real.Find(id); ok {
		o.real.Ref(real)
		return real, xlator.Iatt{}, 0
	}

	virtual := inode.New(o.virt, inode.TypeUnknown)
	fresh := gfid.New()
	linked, linkErr := o.virt.Link(virtual, nil, "", fresh, inode.TypeUnknown)
	if linkErr != nil {
		return nil, xlator.Iatt{}, syscall.ENOMEM
	}

	placeholder := inode.New(o.real, inode.TypeUnknown)
	real, linkErr := o.real.Link(placeholder, nil, "", id, inode.TypeUnknown)
	if linkErr != nil {
		return nil, xlator.Iatt{}, syscall.ENOMEM
	}

	iatt, errno := o.down(ctx, frame, real)
	if errno != 0 {
		return nil, xlator.Iatt{}, errno
	}

	o.bind(linked, real)
	return linked, iatt, 0
}

// bind records real as the inode a virtual inode substitutes for
// (spec.md §4.10: "the overlay maintains a per-virtual-inode ctx slot
// pointing to the real inode").
func (o *Overlay) bind(virtual, real *inode.Inode) {
	virtual.CtxSetPtr1(o.self, real)
}

// Resolve substitutes the real inode for a virtual one before winding
// any FOP other than the initial lookup (spec.md §4.10: "subsequent
// operations on the virtual inode substitute the real inode before
// winding").
func (o *Overlay) Resolve(virtual *inode.Inode) (*inode.Inode, bool) {
	v, ok := virtual.CtxGetPtr1(o.self)
	if !ok {
		return nil, false
	}
	real, ok := v.(*inode.Inode)
	return real, ok
}

// Revalidate is called on unwind of a revalidating lookup. If the real
// inode for id already exists in the table, the virtual inode's ctx is
// repointed at it and a fresh random GFID is returned so the kernel
// does not alias two entries (spec.md §4.10).
//
// Per spec.md §9's open question, this repository follows the
// documented (if not fully specified) behavior: it returns ESTALE to
// force the caller to retry the lookup, rather than silently returning
// the stale virtual inode's old identity.
func (o *Overlay) Revalidate(virtual *inode.Inode, id gfid.ID) (gfid.ID, syscall.Errno) {
	real, ok := o.real.Find(id)
	if !ok {
		return gfid.Nil, syscall.ESTALE
	}
	o.bind(virtual, real)
	return gfid.New(), syscall.ESTALE
}

// IsVirtualDir reports whether id is the well-known virtual-directory
// GFID.
func IsVirtualDir(id gfid.ID) bool { return id == gfid.VirtualDir }

func (o *Overlay) String() string {
	return fmt.Sprintf("virtualinode(real=%p virt=%p)", o.real, o.virt)
}
