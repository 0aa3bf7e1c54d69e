// Package gfid implements the 16-byte globally unique filesystem object
// identifier used to index the inode table, and the small set of
// well-known GFIDs reserved for synthetic entries.
package gfid

import (
	"fmt"

	"github.com/google/uuid"
)

// Size is the length in bytes of a GFID.
const Size = 16

// ID is an opaque 128-bit identifier, globally unique per filesystem
// object. It is wire-compatible with a standard UUID: the canonical
// string form is the UUID's dashed hex representation.
type ID [Size]byte

// Root is the well-known GFID of the filesystem root directory.
var Root = MustParse("00000000-0000-0000-0000-000000000001")

// Nil is the zero GFID; an unset/invalid value. It must never be linked
// into an inode table.
var Nil ID

// VirtualDir is the well-known GFID of the synthetic by-GFID access
// directory exposed by the virtual-inode overlay (spec.md §4.10).
var VirtualDir = MustParse("00000000-0000-0000-0000-00000000000d")

// New generates a fresh random GFID (version 4 UUID).
func New() ID {
	return ID(uuid.New())
}

// Parse decodes the canonical dashed-hex string form of a GFID.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("gfid: parse %q: %w", s, err)
	}
	return ID(u), nil
}

// MustParse is like Parse but panics on error; used only for package-level
// well-known constants.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String renders the canonical dashed-hex form.
func (g ID) String() string {
	return uuid.UUID(g).String()
}

// IsNil reports whether g is the zero GFID.
func (g ID) IsNil() bool {
	return g == Nil
}

// PathPlaceholder renders the "<gfid:uuid>" form used by the inode table's
// path reconstruction for inodes reachable only by GFID (spec.md §4.2).
func (g ID) PathPlaceholder() string {
	return fmt.Sprintf("<gfid:%s>", g.String())
}
