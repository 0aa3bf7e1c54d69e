package virtualinode

import (
	"context"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xlatorfs/xlatorfs/gfid"
	"github.com/xlatorfs/xlatorfs/inode"
	"github.com/xlatorfs/xlatorfs/stack"
	"github.com/xlatorfs/xlatorfs/xlator"
)

type overlayKey struct{}

func TestLookupRejectsNonGFIDName(t *testing.T) {
	real := inode.NewTable("real", 0)
	o := New(real, func(ctx context.Context, frame *stack.Frame, r *inode.Inode) (xlator.Iatt, syscall.Errno) {
		return xlator.Iatt{}, 0
	}, overlayKey{})

	_, _, errno := o.Lookup(context.Background(), nil, "not-a-gfid")
	require.Equal(t, syscall.EINVAL, errno)
}

func TestLookupCreatesVirtualInodeAndBindsRealOnSuccess(t *testing.T) {
	real := inode.NewTable("real", 0)
	id := gfid.New()
	var seenGFID gfid.ID
	o := New(real, func(ctx context.Context, frame *stack.Frame, r *inode.Inode) (xlator.Iatt, syscall.Errno) {
		seenGFID = r.GFID()
		return xlator.Iatt{Size: 42}, 0
	}, overlayKey{})

	virtual, iatt, errno := o.Lookup(context.Background(), nil, id.String())
	require.Zero(t, errno)
	require.EqualValues(t, 42, iatt.Size)
	require.Equal(t, id, seenGFID)

	realInode, ok := o.Resolve(virtual)
	require.True(t, ok)
	require.Equal(t, id, realInode.GFID())
}

func TestLookupReusesExistingRealInode(t *testing.T) {
	real := inode.NewTable("real", 0)
	id := gfid.New()
	dir := inode.New(real, inode.TypeDirectory)
	existing, err := real.Link(dir, real.Root(), "existing", id, inode.TypeDirectory)
	require.NoError(t, err)

	calls := 0
	o := New(real, func(ctx context.Context, frame *stack.Frame, r *inode.Inode) (xlator.Iatt, syscall.Errno) {
		calls++
		return xlator.Iatt{}, 0
	}, overlayKey{})

	got, _, errno := o.Lookup(context.Background(), nil, id.String())
	require.Zero(t, errno)
	require.Same(t, existing, got)
	require.Zero(t, calls, "an already-resolved real inode skips the down-wind lookup")
}

func TestRevalidateReturnsESTALEAndRebindsToRealInode(t *testing.T) {
	real := inode.NewTable("real", 0)
	virt := inode.NewTable("virt", 0)
	o := New(real, nil, overlayKey{})
	o.virt = virt

	id := gfid.New()
	dir := inode.New(real, inode.TypeDirectory)
	realInode, err := real.Link(dir, real.Root(), "x", id, inode.TypeDirectory)
	require.NoError(t, err)

	virtual := inode.New(virt, inode.TypeUnknown)

	newID, errno := o.Revalidate(virtual, id)
	require.Equal(t, syscall.ESTALE, errno)
	require.NotEqual(t, gfid.Nil, newID)
	require.NotEqual(t, id, newID)

	bound, ok := o.Resolve(virtual)
	require.True(t, ok)
	require.Same(t, realInode, bound)
}

func TestRevalidateWithUnknownGFIDReturnsESTALE(t *testing.T) {
	real := inode.NewTable("real", 0)
	o := New(real, nil, overlayKey{})
	virtual := inode.New(o.virt, inode.TypeUnknown)

	_, errno := o.Revalidate(virtual, gfid.New())
	require.Equal(t, syscall.ESTALE, errno)
	_, ok := o.Resolve(virtual)
	require.False(t, ok)
}

func TestIsVirtualDir(t *testing.T) {
	require.True(t, IsVirtualDir(gfid.VirtualDir))
	require.False(t, IsVirtualDir(gfid.New()))
}
