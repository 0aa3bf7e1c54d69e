package xlator

import "github.com/xlatorfs/xlatorfs/stack"

// Stub is an inert capture of a FOP invocation that a blocking
// translator (a lock manager, a cache waiting on a background fill, a
// pump under backpressure) can queue and resume later, per spec.md
// §4.1's resume idiom and §9's "stubs for pause/resume" note.
//
// Unlike the original's tagged union over every FOP shape, a Stub here
// is simply the frame it captured plus a closure that redispatches the
// operation exactly as the translator would have on first sight — the
// closure already owns whatever copies of the arguments it needs, so
// there is no separate per-FOP stub type to maintain.
type Stub struct {
	Frame *stack.Frame
	fop   func()
}

// NewStub captures fop for later resume against frame. fop must not
// retain any iobuf-backed argument beyond what its own iobref covers;
// callers that need to resume into a different goroutine must take
// their own iobref before the wind that produced this stub's arguments
// unwinds.
func NewStub(frame *stack.Frame, fop func()) *Stub {
	return &Stub{Frame: frame, fop: fop}
}

// Resume re-dispatches the captured operation from the same frame as if
// the owning translator had never seen it (spec.md §4.1: "re-dispatches
// the operation from the same frame"). A Stub may be resumed exactly
// once; resuming twice is a programming error in the caller.
func (s *Stub) Resume() {
	fop := s.fop
	s.fop = nil
	fop()
}

// StubQueue is a FIFO of pending stubs, used by translators that must
// serialize resumes (e.g. a lock manager draining blocked lockers in
// arrival order once a lock is released).
type StubQueue struct {
	pending []*Stub
}

// Push appends s to the tail of the queue.
func (q *StubQueue) Push(s *Stub) {
	q.pending = append(q.pending, s)
}

// Pop removes and returns the head of the queue, or nil if empty.
func (q *StubQueue) Pop() *Stub {
	if len(q.pending) == 0 {
		return nil
	}
	s := q.pending[0]
	q.pending = q.pending[1:]
	return s
}

// Len reports the number of stubs currently queued.
func (q *StubQueue) Len() int { return len(q.pending) }

// DrainAll pops and resumes every queued stub in arrival order. Callers
// typically invoke this outside the lock that guards the queue, since
// Resume may re-enter the translator.
func (q *StubQueue) DrainAll() {
	for {
		s := q.Pop()
		if s == nil {
			return
		}
		s.Resume()
	}
}
