// Package record implements ONC-RPC record-marking framing (spec.md
// §6, §9 "XID→frame map ordering"): the 4-byte fragment header that
// precedes every RPC message on a stream transport, and the fixed
// header fields (xid, msgtype, rpcvers, prog, vers, proc, cred, verf)
// that this repository owns. The call/reply body itself is an opaque
// payload — XDR encoding of translator-specific arguments is out of
// scope (spec.md §1).
package record

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// LastFragment is the high bit of the 4-byte fragment header.
const LastFragment = 1 << 31

// MaxFragmentSize is the record-marking limit on a single fragment's
// size: the low 31 bits of the header (spec.md §6).
const MaxFragmentSize = 0x7FFFFFFF

// FragmentHeader returns the 4-byte record-marking header for a
// fragment of size bytes, with the last-fragment bit set according to
// last. size must fit in 31 bits.
func FragmentHeader(size uint32, last bool) ([4]byte, error) {
	if size > MaxFragmentSize {
		return [4]byte{}, fmt.Errorf("record: fragment size %d exceeds %d", size, MaxFragmentSize)
	}
	v := size
	if last {
		v |= LastFragment
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], v)
	return hdr, nil
}

// DecodeFragmentHeader splits a 4-byte record-marking header into its
// fragment size and last-fragment bit.
func DecodeFragmentHeader(hdr [4]byte) (size uint32, last bool) {
	v := binary.BigEndian.Uint32(hdr[:])
	return v &^ LastFragment, v&LastFragment != 0
}

// MsgType distinguishes an ONC-RPC message as a call or a reply.
type MsgType uint32

const (
	Call  MsgType = 0
	Reply MsgType = 1
)

// AcceptStatus is the accept_stat field of a successfully-dispatched
// reply (RFC 1831 §8.2). Only Success and the failure statuses this
// repository must distinguish are named; any other value is carried
// as-is.
type AcceptStatus uint32

const (
	Success      AcceptStatus = 0
	ProgUnavail  AcceptStatus = 1
	ProgMismatch AcceptStatus = 2
	ProcUnavail  AcceptStatus = 3
	GarbageArgs  AcceptStatus = 4
	SystemErr    AcceptStatus = 5
)

// ReplyStat distinguishes an accepted from a denied reply.
type ReplyStat uint32

const (
	MsgAccepted ReplyStat = 0
	MsgDenied   ReplyStat = 1
)

// AuthFlavor names the credential/verifier encoding of a call. This
// repository only ever sends AuthNone verifiers; the project-specific
// credential flavor (spec.md §6: "a project-specific flavour carrying
// {pid, uid, gid, lk_owner, up to 16 supplementary gids}") is carried
// as AuthGlusterfs for wire compatibility with the protocol this core
// descends from.
type AuthFlavor uint32

const (
	AuthNone       AuthFlavor = 0
	AuthGlusterfs  AuthFlavor = 390039
	MaxSuppGroups             = 16
)

// Credential is the project-specific auth flavor's payload (spec.md
// §6).
type Credential struct {
	PID    int32
	UID    uint32
	GID    uint32
	LkOwner uint64
	Groups []uint32
}

// CallHeader is the fixed fields of an RPC call this repository owns
// (spec.md §3 "RPC saved-frame", §6 "Request"). Prog/Vers/Proc select
// the translator-level operation; the call body that follows is an
// opaque payload.
type CallHeader struct {
	XID  uint32
	Prog uint32
	Vers uint32
	Proc uint32
	Cred Credential
}

// ErrTruncated is returned when a buffer is too short to hold a header.
var ErrTruncated = errors.New("record: truncated header")

// EncodeCallHeader writes the RPC call header (xid, CALL, rpcvers=2,
// prog, vers, proc, cred, verf=AUTH_NONE) in XDR's big-endian,
// 4-byte-aligned encoding.
func EncodeCallHeader(h CallHeader) []byte {
	n := len(h.Cred.Groups)
	// xid, msgtype, rpcvers, prog, vers, proc, cred-flavor, cred-len,
	// pid, uid, gid, lk_owner(2 words), ngroups, groups..., verf-flavor, verf-len
	buf := make([]byte, 0, 64+4*n)
	var tmp [4]byte
	put := func(v uint32) {
		binary.BigEndian.PutUint32(tmp[:], v)
		buf = append(buf, tmp[:]...)
	}
	put(h.XID)
	put(uint32(Call))
	put(2) // rpcvers
	put(h.Prog)
	put(h.Vers)
	put(h.Proc)
	put(uint32(AuthGlusterfs))
	put(uint32(24 + 4*n)) // cred body length
	put(uint32(h.Cred.PID))
	put(h.Cred.UID)
	put(h.Cred.GID)
	put(uint32(h.Cred.LkOwner >> 32))
	put(uint32(h.Cred.LkOwner))
	put(uint32(n))
	for _, g := range h.Cred.Groups {
		put(g)
	}
	put(uint32(AuthNone))
	put(0)
	return buf
}

// ReplyHeader is the decoded fixed portion of an RPC reply (spec.md
// §6 "Reply").
type ReplyHeader struct {
	XID    uint32
	Stat   ReplyStat
	Accept AcceptStatus
}

// DecodeReplyHeader reads xid, REPLY, the accepted/denied discriminant,
// an AUTH_NONE verifier, and (for accepted replies) the accept_stat,
// returning the number of bytes consumed so the caller can locate the
// start of proc_reply.
func DecodeReplyHeader(buf []byte) (ReplyHeader, int, error) {
	if len(buf) < 8 {
		return ReplyHeader{}, 0, ErrTruncated
	}
	xid := binary.BigEndian.Uint32(buf[0:4])
	msgType := MsgType(binary.BigEndian.Uint32(buf[4:8]))
	if msgType != Reply {
		return ReplyHeader{}, 0, fmt.Errorf("record: expected REPLY, got msgtype %d", msgType)
	}
	off := 8
	if len(buf) < off+4 {
		return ReplyHeader{}, 0, ErrTruncated
	}
	stat := ReplyStat(binary.BigEndian.Uint32(buf[off : off+4]))
	off += 4

	if stat == MsgDenied {
		return ReplyHeader{XID: xid, Stat: stat}, off, nil
	}

	// verifier: flavor + length (+ opaque body, always 0 for AUTH_NONE
	// in this repository's own replies, but a peer's verf length is
	// trusted as given).
	if len(buf) < off+8 {
		return ReplyHeader{}, 0, ErrTruncated
	}
	off += 4 // flavor
	verfLen := binary.BigEndian.Uint32(buf[off : off+4])
	off += 4 + int(xdrPad(verfLen))

	if len(buf) < off+4 {
		return ReplyHeader{}, 0, ErrTruncated
	}
	accept := AcceptStatus(binary.BigEndian.Uint32(buf[off : off+4]))
	off += 4

	return ReplyHeader{XID: xid, Stat: stat, Accept: accept}, off, nil
}

// xdrPad rounds n up to the next multiple of 4, XDR's opaque-data
// alignment rule.
func xdrPad(n uint32) uint32 {
	return (n + 3) &^ 3
}
