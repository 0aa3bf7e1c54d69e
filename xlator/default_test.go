package xlator

import (
	"context"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xlatorfs/xlatorfs/inode"
	"github.com/xlatorfs/xlatorfs/stack"
)

// leaf is a minimal translator that answers Lookup itself and leaves
// every other FOP at Base's ENOSYS default, standing in for the storage
// translators this repository treats as external collaborators.
type leaf struct {
	Base
	lookups int
}

func newLeaf(name string, e *stack.Engine) *leaf {
	l := &leaf{Base: NewBase(name, e)}
	l.Bind(l)
	return l
}

func (l *leaf) Lookup(ctx context.Context, frame *stack.Frame, parent *inode.Inode, name string) (*inode.Inode, Iatt, Iatt, syscall.Errno) {
	l.lookups++
	return parent, Iatt{}, Iatt{}, 0
}

// passthrough embeds Base and overrides nothing, exercising the pure
// tail-wind default path.
type passthrough struct {
	Base
}

func newPassthrough(name string, e *stack.Engine) *passthrough {
	p := &passthrough{Base: NewBase(name, e)}
	p.Bind(p)
	return p
}

func TestBaseTailWindsToFirstChild(t *testing.T) {
	e := stack.NewEngine()
	l := newLeaf("leaf", e)
	p := newPassthrough("pass", e)
	p.SetChildren([]Translator{l})

	tbl := inode.NewTable("test", 0)
	frame := e.Root(&stack.Identity{})
	frame.Trans = p

	_, _, _, errno := p.Lookup(context.Background(), frame, tbl.Root(), "x")
	require.Zero(t, errno)
	require.Equal(t, 1, l.lookups)
	require.Same(t, l, frame.Trans, "tail-wind must rebind the frame's current translator to the child")
}

func TestBaseLeafWithNoChildrenReturnsENOSYS(t *testing.T) {
	e := stack.NewEngine()
	l := newLeaf("solo", e)
	frame := e.Root(&stack.Identity{})

	_, errno := l.Stat(context.Background(), frame, nil)
	require.Equal(t, syscall.ENOSYS, errno)
}

func TestPropagateForwardsChildEventsToParents(t *testing.T) {
	e := stack.NewEngine()
	child := newLeaf("child", e)
	parentA := newPassthrough("parentA", e)
	parentB := newPassthrough("parentB", e)
	child.AddParent(parentA)
	child.AddParent(parentB)

	var seenA, seenB Translator
	recA := &recordingNotify{passthrough: parentA, seen: &seenA}
	recB := &recordingNotify{passthrough: parentB, seen: &seenB}
	child.AddParent(recA)
	child.AddParent(recB)

	child.Notify(EventChildUp, nil, "payload")

	require.Same(t, child, seenA)
	require.Same(t, child, seenB)
}

// recordingNotify wraps a passthrough to capture the child argument its
// Notify was called with, standing in for a translator that cares about
// CHILD_UP but still wants the default propagation semantics recorded.
type recordingNotify struct {
	*passthrough
	seen *Translator
}

func (r *recordingNotify) Notify(event Event, child Translator, data any) {
	*r.seen = child
}

func TestPropagateWithNoParentsNotifiesMaster(t *testing.T) {
	e := stack.NewEngine()
	child := newLeaf("child", e)
	master := newPassthrough("master", e)

	var seen Translator
	rec := &recordingNotify{passthrough: master, seen: &seen}
	child.SetMaster(rec)

	child.Notify(EventChildDown, nil, nil)
	require.Same(t, child, seen)
}

func TestPropagateForwardsParentEventsToChildrenNotParents(t *testing.T) {
	e := stack.NewEngine()
	top := newPassthrough("top", e)
	childA := newPassthrough("childA", e)
	childB := newPassthrough("childB", e)

	var seenA, seenB Translator
	recA := &recordingNotify{passthrough: childA, seen: &seenA}
	recB := &recordingNotify{passthrough: childB, seen: &seenB}
	top.SetChildren([]Translator{recA, recB})

	grandparent := newPassthrough("grandparent", e)
	var seenUp Translator
	recUp := &recordingNotify{passthrough: grandparent, seen: &seenUp}
	top.AddParent(recUp)

	top.Notify(EventParentDown, nil, "shutting down")

	require.Same(t, top, seenA, "PARENT_DOWN must reach children")
	require.Same(t, top, seenB, "PARENT_DOWN must reach children")
	require.Nil(t, seenUp, "PARENT_DOWN must not be forwarded up to parents")
}

func TestPropagateForwardsParentUpToChildren(t *testing.T) {
	e := stack.NewEngine()
	top := newPassthrough("top", e)
	child := newPassthrough("child", e)

	var seen Translator
	rec := &recordingNotify{passthrough: child, seen: &seen}
	top.SetChildren([]Translator{rec})

	top.Notify(EventParentUp, nil, nil)
	require.Same(t, top, seen)
}
