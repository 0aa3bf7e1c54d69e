package xlator

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xlatorfs/xlatorfs/stack"
)

func TestStubResumeRunsCapturedFOPExactlyOnce(t *testing.T) {
	e := stack.NewEngine()
	frame := e.Root(&stack.Identity{})

	calls := 0
	s := NewStub(frame, func() { calls++ })
	require.Same(t, frame, s.Frame)

	s.Resume()
	require.Equal(t, 1, calls)
}

func TestStubQueueDrainsInArrivalOrder(t *testing.T) {
	e := stack.NewEngine()
	frame := e.Root(&stack.Identity{})

	var order []int
	var q StubQueue
	for i := 0; i < 3; i++ {
		i := i
		q.Push(NewStub(frame, func() { order = append(order, i) }))
	}
	require.Equal(t, 3, q.Len())

	q.DrainAll()
	require.Equal(t, []int{0, 1, 2}, order)
	require.Equal(t, 0, q.Len())
}

func TestStubQueuePopOnEmptyReturnsNil(t *testing.T) {
	var q StubQueue
	require.Nil(t, q.Pop())
}
