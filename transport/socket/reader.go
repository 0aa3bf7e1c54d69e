package socket

import (
	"fmt"
	"io"

	"github.com/xlatorfs/xlatorfs/rpc/record"
)

// readerState is the per-stream record assembly state machine of
// spec.md §4.7: "NADA → READING_FRAGHDR → READ_FRAGHDR → READING_FRAG →
// COMPLETE". This repository does not need the vector-sizer upcall's
// full generality (the CALL/REPLY body is opaque to the transport
// layer, spec.md §1); it reads the fragment header, then the whole
// fragment body into one buffer, and emits the assembled record.
type readerState int

const (
	nada readerState = iota
	readingFragHdr
	readFragHdr
	readingFrag
	complete
)

// Pollin is the unit of inbound delivery (spec.md §3 "Pollin"): the
// decoded header and the payload that followed it in the same record.
type Pollin struct {
	Header  record.ReplyHeader
	Payload []byte
}

// reader assembles one inbound stream into complete RPC records and
// decodes their reply headers, handing each to onRecord. A record may
// span several fragments (spec.md §4.7, §8 invariant 8): record is the
// concatenation of every fragment's body seen so far for the record
// currently being assembled, and grows across readingFragHdr passes
// until a fragment with fragLast set completes it.
type reader struct {
	state    readerState
	fragHdr  [4]byte
	fragHdrN int
	frag     []byte
	fragN    int
	fragSize uint32
	fragLast bool
	record   []byte
}

// Feed advances the state machine with newly read bytes, invoking
// onRecord once per complete record. Every byte of p is consumed, as
// either fragment header or fragment body.
func (r *reader) Feed(p []byte, onRecord func([]byte)) {
	for len(p) > 0 {
		switch r.state {
		case nada:
			r.state = readingFragHdr
			r.fragHdrN = 0
		case readingFragHdr:
			n := copy(r.fragHdr[r.fragHdrN:], p)
			r.fragHdrN += n
			p = p[n:]
			if r.fragHdrN == 4 {
				r.state = readFragHdr
			}
		case readFragHdr:
			size, last := record.DecodeFragmentHeader(r.fragHdr)
			r.fragSize, r.fragLast = size, last
			r.frag = make([]byte, size)
			r.fragN = 0
			r.state = readingFrag
		case readingFrag:
			n := copy(r.frag[r.fragN:], p)
			r.fragN += n
			p = p[n:]
			if uint32(r.fragN) == r.fragSize {
				r.record = append(r.record, r.frag...)
				r.frag = nil
				if r.fragLast {
					r.state = complete
				} else {
					r.state = readingFragHdr
					r.fragHdrN = 0
				}
			}
		case complete:
			onRecord(r.record)
			r.record = nil
			r.state = nada
		}
	}
	if r.state == complete {
		onRecord(r.record)
		r.record = nil
		r.state = nada
	}
}

// ReadLoop reads from c.raw until it errors or is closed, feeding the
// record assembler and decoding each complete record's reply header
// before invoking c.OnPollin. A read error (including EOF, spec.md
// §4.7 "ENOTCONN on read ... treated identically") invokes
// c.OnDisconnect and returns.
func (c *Conn) ReadLoop() {
	var rd reader
	buf := make([]byte, 64*1024)
	for {
		n, err := c.raw.Read(buf)
		if n > 0 {
			rd.Feed(buf[:n], func(rec []byte) {
				hdr, consumed, derr := record.DecodeReplyHeader(rec)
				if derr != nil {
					// Protocol-decode error (spec.md §7 kind 3): this
					// transport layer has no per-call context to fail
					// and no logger, so it drops the record without
					// logging; the caller's bailout timer observes the
					// missing reply.
					return
				}
				if c.OnPollin != nil {
					c.OnPollin(Pollin{Header: hdr, Payload: rec[consumed:]})
				}
			})
		}
		if err != nil {
			if err == io.EOF {
				err = fmt.Errorf("socket: %w", io.ErrUnexpectedEOF)
			}
			if c.OnDisconnect != nil {
				c.OnDisconnect(err)
			}
			return
		}
	}
}
