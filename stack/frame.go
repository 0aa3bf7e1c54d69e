// Package stack implements the asynchronous, stackable call-frame
// machine described in spec.md §4.1: frame allocation, wind/tail-wind,
// and the per-call local-state discipline every translator relies on.
//
// Unlike the C original, individual filesystem operations are ordinary
// (possibly blocking) Go method calls on the xlator.Translator interface
// rather than a callback/unwind pair threaded through this package —
// the callback-to-sequential-form translation that the original gets
// from hand-rolled cooperative fibers (spec.md §9, "Callback plus
// blocking via synctasks") falls out for free from goroutines blocking
// on channels, so the stack package's job shrinks to exactly what
// spec.md §4.1 asks for: frame bookkeeping, identity propagation, and
// the THIS discipline.
package stack

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Translator is the minimal identity every stack participant must
// expose. xlator.Translator embeds this and adds the full FOP surface;
// keeping it minimal here avoids an import cycle between stack and
// xlator.
type Translator interface {
	Name() string
}

// Frame is one call-stack element: the translator whose code is
// currently executing for this hop, an opaque per-translator scratch
// slot, and a link to the frame that wound it.
type Frame struct {
	Parent   *Frame
	Trans    Translator
	Local    any
	Unique   uint64
	Identity *Identity

	released bool
}

// DebugLeaks, when true, makes Release panic if a frame's Local has not
// been cleared — the Go analogue of spec.md §8 invariant 9 ("after
// unwind of any FOP, its frame's translator-local has been released").
// Production builds should leave it false; tests should set it true.
var DebugLeaks = false

// Engine allocates frames with a monotonically increasing Unique id,
// shared by every frame in a graph so ids are comparable across
// translators (spec.md §3: "a monotonically increasing unique id").
type Engine struct {
	ctr uint64
}

// NewEngine constructs a fresh frame-id allocator. One Engine is shared
// by an entire translator graph.
func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) next() uint64 {
	return atomic.AddUint64(&e.ctr, 1)
}

// Root allocates a root frame for a new external request, binding the
// given identity. The root frame has no parent and no Trans until the
// top-of-graph translator's FOP method begins running.
func (e *Engine) Root(id *Identity) *Frame {
	if id == nil {
		id = stackAnonymous()
	}
	return &Frame{Unique: e.next(), Identity: id}
}

func stackAnonymous() *Identity { return Anonymous }

// Wind allocates a new child frame linked to caller, bound to target,
// inheriting the root identity. The child gets a fresh Local (nil) and
// its own Unique id, matching spec.md §4.1's Wind primitive. Use Wind
// when the calling translator wants to observe the reply (it will run
// its own code again once the child's operation returns).
func (e *Engine) Wind(caller *Frame, target Translator) *Frame {
	if caller == nil {
		panic("stack: Wind with nil caller frame")
	}
	return &Frame{
		Parent:   caller,
		Trans:    target,
		Identity: caller.Identity,
		Unique:   e.next(),
	}
}

// TailWind reuses caller's frame for target instead of allocating a
// child, matching spec.md §4.1's tail-wind variant used by pass-through
// translators that contribute no per-call state. The caller gives up
// the ability to post-process the reply, since there is no longer a
// distinct frame boundary to hang a callback off of: it must return
// whatever target returns.
func (e *Engine) TailWind(caller *Frame, target Translator) *Frame {
	caller.Trans = target
	return caller
}

// Release marks frame as unwound and verifies its Local was cleared by
// the translator that owned it, per spec.md §8 invariant 9. A translator
// that stashes a *Stub or similar heap state in frame.Local must set it
// back to nil before returning from its FOP method.
func (f *Frame) Release() {
	if f.released {
		panic("stack: frame released twice")
	}
	f.released = true
	if f.Local != nil && DebugLeaks {
		panic(fmt.Sprintf("stack: frame %d unwound with non-nil Local (leak in %v)", f.Unique, f.Trans))
	}
}

// frameKey is the context key used to carry the current frame alongside
// a context.Context, the explicit analogue of the C original's
// thread-local THIS pointer (spec.md §9, "Global mutable state": "pass
// context via an environment value threaded through every call path
// rather than implicit globals").
type frameKey struct{}

// WithFrame returns a context carrying frame as the current THIS frame.
func WithFrame(ctx context.Context, f *Frame) context.Context {
	return context.WithValue(ctx, frameKey{}, f)
}

// FrameFromContext recovers the frame installed by WithFrame, or nil.
func FrameFromContext(ctx context.Context) *Frame {
	f, _ := ctx.Value(frameKey{}).(*Frame)
	return f
}

// This returns the translator whose code should currently be treated as
// executing, following the THIS discipline of spec.md §4.1: it is
// frame.Trans, recovered from the context rather than a process-global.
func This(ctx context.Context) Translator {
	if f := FrameFromContext(ctx); f != nil {
		return f.Trans
	}
	return nil
}
