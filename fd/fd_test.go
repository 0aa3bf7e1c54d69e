package fd

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xlatorfs/xlatorfs/gfid"
	"github.com/xlatorfs/xlatorfs/inode"
)

func TestAnonymousFDReleasedOnLastUnref(t *testing.T) {
	tbl := inode.NewTable("test", 0)
	ino, err := tbl.Link(inode.New(tbl, inode.TypeRegular), tbl.Root(), "f", gfid.New(), inode.TypeRegular)
	require.NoError(t, err)
	require.Equal(t, 0, ino.FDCount())

	released := false
	f := Anonymous(ino, func(*FD) { released = true })
	require.Equal(t, 1, ino.FDCount())
	require.True(t, f.IsAnonymous())

	f.Unref()
	require.True(t, released)
	require.Equal(t, 0, ino.FDCount())
}

func TestLookupFindsFDByPID(t *testing.T) {
	tbl := inode.NewTable("test", 0)
	ino, _ := tbl.Link(inode.New(tbl, inode.TypeRegular), tbl.Root(), "f", gfid.New(), inode.TypeRegular)

	f := Open(ino, 42, 0, nil)
	defer f.Unref()

	found := Lookup(ino, 42)
	require.Same(t, f, found)

	require.Nil(t, Lookup(ino, 7))
}

func TestCtxSlotsTornDownOnRelease(t *testing.T) {
	tbl := inode.NewTable("test", 0)
	ino, _ := tbl.Link(inode.New(tbl, inode.TypeRegular), tbl.Root(), "f", gfid.New(), inode.TypeRegular)

	f := Open(ino, 1, 0, nil)
	type key struct{}
	f.CtxSet1(key{}, 7)
	v, ok := f.CtxGet1(key{})
	require.True(t, ok)
	require.EqualValues(t, 7, v)

	f.Unref()
	_, ok = f.CtxGet1(key{})
	require.False(t, ok)
}
