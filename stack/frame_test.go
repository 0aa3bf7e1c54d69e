package stack

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeTranslator string

func (f fakeTranslator) Name() string { return string(f) }

func TestRootInheritsIdentity(t *testing.T) {
	e := NewEngine()
	id := &Identity{UID: 42, GID: 7}
	root := e.Root(id)
	require.Same(t, id, root.Identity)
	require.Nil(t, root.Parent)
}

func TestWindAllocatesChildFrame(t *testing.T) {
	e := NewEngine()
	id := &Identity{UID: 1}
	root := e.Root(id)
	root.Trans = fakeTranslator("top")

	child := e.Wind(root, fakeTranslator("child"))
	require.Same(t, root, child.Parent)
	require.Same(t, id, child.Identity, "child must inherit root identity by pointer")
	require.Nil(t, child.Local)
	require.NotEqual(t, root.Unique, child.Unique)
}

func TestTailWindReusesFrame(t *testing.T) {
	e := NewEngine()
	root := e.Root(&Identity{})
	root.Trans = fakeTranslator("a")

	same := e.TailWind(root, fakeTranslator("b"))
	require.Same(t, root, same)
	require.Equal(t, "b", same.Trans.Name())
}

func TestReleasePanicsOnLeakedLocalWhenDebugging(t *testing.T) {
	DebugLeaks = true
	defer func() { DebugLeaks = false }()

	e := NewEngine()
	f := e.Wind(e.Root(&Identity{}), fakeTranslator("x"))
	f.Local = "leaked scratch"

	require.Panics(t, func() { f.Release() })
}

func TestReleaseAllowsClearedLocal(t *testing.T) {
	e := NewEngine()
	f := e.Wind(e.Root(&Identity{}), fakeTranslator("x"))
	f.Local = "scratch"
	f.Local = nil
	require.NotPanics(t, func() { f.Release() })
}

func TestReleaseTwiceIsFatal(t *testing.T) {
	e := NewEngine()
	f := e.Wind(e.Root(&Identity{}), fakeTranslator("x"))
	f.Release()
	require.Panics(t, func() { f.Release() })
}

func TestWithFrameAndThis(t *testing.T) {
	e := NewEngine()
	f := e.Wind(e.Root(&Identity{}), fakeTranslator("leaf"))
	ctx := WithFrame(context.Background(), f)

	require.Equal(t, fakeTranslator("leaf"), This(ctx))
	require.Nil(t, This(context.Background()))
}
