package record

import (
	"testing"

	"github.com/kylelemons/godebug/pretty"
	"github.com/stretchr/testify/require"
)

func TestFragmentHeaderRoundTrip(t *testing.T) {
	hdr, err := FragmentHeader(4096, true)
	require.NoError(t, err)

	size, last := DecodeFragmentHeader(hdr)
	require.EqualValues(t, 4096, size)
	require.True(t, last)
}

func TestFragmentHeaderRejectsOversize(t *testing.T) {
	_, err := FragmentHeader(MaxFragmentSize+1, true)
	require.Error(t, err)
}

func TestFragmentHeaderNotLast(t *testing.T) {
	hdr, err := FragmentHeader(10, false)
	require.NoError(t, err)
	size, last := DecodeFragmentHeader(hdr)
	require.EqualValues(t, 10, size)
	require.False(t, last)
}

func TestEncodeCallHeaderIsWordAligned(t *testing.T) {
	h := CallHeader{
		XID:  7,
		Prog: 1, Vers: 1, Proc: 2,
		Cred: Credential{PID: 100, UID: 0, GID: 0, Groups: []uint32{1, 2, 3}},
	}
	buf := EncodeCallHeader(h)
	require.Zero(t, len(buf)%4, "XDR stream must be a whole number of 4-byte words")
	require.Greater(t, len(buf), 40)
}

func TestDecodeReplyHeaderAcceptedSuccess(t *testing.T) {
	// xid, REPLY, MSG_ACCEPTED, verf{AUTH_NONE,len=0}, accept_stat=SUCCESS
	buf := []byte{
		0, 0, 0, 7, // xid
		0, 0, 0, 1, // REPLY
		0, 0, 0, 0, // MSG_ACCEPTED
		0, 0, 0, 0, // verf flavor AUTH_NONE
		0, 0, 0, 0, // verf len 0
		0, 0, 0, 0, // accept_stat SUCCESS
	}
	h, n, err := DecodeReplyHeader(buf)
	require.NoError(t, err)
	require.EqualValues(t, 7, h.XID)
	require.Equal(t, MsgAccepted, h.Stat)
	require.Equal(t, Success, h.Accept)
	require.Equal(t, len(buf), n)
}

func TestDecodeReplyHeaderDenied(t *testing.T) {
	buf := []byte{
		0, 0, 0, 9,
		0, 0, 0, 1, // REPLY
		0, 0, 0, 1, // MSG_DENIED
	}
	h, _, err := DecodeReplyHeader(buf)
	require.NoError(t, err)
	require.Equal(t, MsgDenied, h.Stat)
}

func TestDecodeReplyHeaderTruncated(t *testing.T) {
	_, _, err := DecodeReplyHeader([]byte{0, 0, 0, 1})
	require.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeReplyHeaderRejectsCallMsgType(t *testing.T) {
	buf := []byte{0, 0, 0, 1, 0, 0, 0, 0}
	_, _, err := DecodeReplyHeader(buf)
	require.Error(t, err)
}

func TestEncodeCallHeaderLeavesCredentialUnchanged(t *testing.T) {
	before := Credential{PID: 42, UID: 1000, GID: 1000, LkOwner: 99, Groups: []uint32{4, 5, 6}}
	h := CallHeader{XID: 1, Prog: 1, Vers: 1, Proc: 1, Cred: before}
	EncodeCallHeader(h) // exercise the encoder; the credential itself must be left untouched

	after := h.Cred
	if diff := pretty.Compare(before, after); diff != "" {
		t.Errorf("credential mutated by encoding: %s", diff)
	}
}
