package fd

import (
	"github.com/xlatorfs/xlatorfs/inode"
)

// Lookup returns any open FD on ino matching pid, used by cache-layer
// translators to find a peer FD for an anonymous operation (spec.md
// §4.3). It returns nil if none is open, or if ino has no FDs with that
// pid.
func Lookup(ino *inode.Inode, pid int32) *FD {
	for _, h := range ino.FDs() {
		if f, ok := h.(*FD); ok && f.PID() == pid {
			return f
		}
	}
	return nil
}
