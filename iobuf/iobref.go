package iobuf

// Iobref is a small ordered collection of Iobufs that travels with a call
// to keep read/write payload memory alive across asynchronous hops
// (spec.md §3, §4.5). While any Iobref references an Iobuf, the Iobuf is
// not returned to its pool.
type Iobref struct {
	bufs []*Iobuf
}

// NewIobref constructs an empty Iobref.
func NewIobref() *Iobref {
	return &Iobref{}
}

// Add increments buf's refcount and appends it to r. Matches iobref_add.
func (r *Iobref) Add(buf *Iobuf) {
	r.bufs = append(r.bufs, buf.Ref())
}

// Merge adds every buffer of other into r, taking r's own reference on
// each so the two refbrefs can be unreffed independently.
func (r *Iobref) Merge(other *Iobref) {
	for _, b := range other.bufs {
		r.Add(b)
	}
}

// Unref decrements every member buffer's refcount exactly once. Matches
// iobref_unref. Calling Unref more than once on the same Iobref is a bug
// in the caller (double-unref); r.bufs is cleared after the first call so
// a repeat call is a safe no-op rather than a second decrement.
func (r *Iobref) Unref() {
	bufs := r.bufs
	r.bufs = nil
	for _, b := range bufs {
		b.Unref()
	}
}

// Bufs exposes the member buffers for iteration (e.g. building a vectored
// write). Callers must not retain the slice past the Iobref's lifetime.
func (r *Iobref) Bufs() []*Iobuf {
	return r.bufs
}
