// Package xlator implements the translator default plumbing described in
// spec.md §4.4: the Translator interface covering the full FOP
// vocabulary of spec.md §6, the Base type every translator embeds for
// its default (forwarding) implementation, the notify fabric, and the
// stub/resume idiom used by blocking translators.
//
// Per spec.md §9 ("Deep translator polymorphism"): modeled as a Go
// interface with one method per FOP, and a defaulted implementation
// (Base) that forwards to the first child — the idiomatic substitute for
// the C original's per-translator function-pointer table.
package xlator

import (
	"context"
	"syscall"

	"github.com/xlatorfs/xlatorfs/fd"
	"github.com/xlatorfs/xlatorfs/inode"
	"github.com/xlatorfs/xlatorfs/stack"
)

// Translator is the full FOP surface every node in the graph implements.
// A translator with no opinion on a given FOP embeds Base, which leaves
// the default (tail-wind to the first child) in place and pays no
// per-call cost for it (spec.md §4.4).
type Translator interface {
	stack.Translator // Name() string

	// lifecycle / graph plumbing
	Init() error
	Children() []Translator
	SetChildren([]Translator)
	Parents() []Translator
	AddParent(Translator)
	Notify(event Event, child Translator, data any)

	// Name group
	Lookup(ctx context.Context, frame *stack.Frame, parent *inode.Inode, name string) (*inode.Inode, Iatt, Iatt, syscall.Errno)
	Stat(ctx context.Context, frame *stack.Frame, target *inode.Inode) (Iatt, syscall.Errno)
	Access(ctx context.Context, frame *stack.Frame, target *inode.Inode, mask uint32) syscall.Errno
	Readlink(ctx context.Context, frame *stack.Frame, target *inode.Inode, size int) (string, syscall.Errno)

	// Attr group
	Setattr(ctx context.Context, frame *stack.Frame, target *inode.Inode, attr Iatt, valid uint32) (Iatt, syscall.Errno)
	Fsetattr(ctx context.Context, frame *stack.Frame, f *fd.FD, attr Iatt, valid uint32) (Iatt, syscall.Errno)
	Truncate(ctx context.Context, frame *stack.Frame, target *inode.Inode, size uint64) (Iatt, syscall.Errno)
	Ftruncate(ctx context.Context, frame *stack.Frame, f *fd.FD, size uint64) (Iatt, syscall.Errno)

	// Entry group
	Mknod(ctx context.Context, frame *stack.Frame, parent *inode.Inode, name string, mode uint32, dev uint64) (*inode.Inode, Iatt, syscall.Errno)
	Mkdir(ctx context.Context, frame *stack.Frame, parent *inode.Inode, name string, mode uint32) (*inode.Inode, Iatt, syscall.Errno)
	Unlink(ctx context.Context, frame *stack.Frame, parent *inode.Inode, name string) syscall.Errno
	Rmdir(ctx context.Context, frame *stack.Frame, parent *inode.Inode, name string) syscall.Errno
	Symlink(ctx context.Context, frame *stack.Frame, parent *inode.Inode, name, target string) (*inode.Inode, Iatt, syscall.Errno)
	Rename(ctx context.Context, frame *stack.Frame, oldParent *inode.Inode, oldName string, newParent *inode.Inode, newName string) syscall.Errno
	Link(ctx context.Context, frame *stack.Frame, target *inode.Inode, newParent *inode.Inode, newName string) (Iatt, syscall.Errno)
	Create(ctx context.Context, frame *stack.Frame, parent *inode.Inode, name string, flags uint32, mode uint32) (*inode.Inode, *fd.FD, Iatt, syscall.Errno)

	// FD group
	Open(ctx context.Context, frame *stack.Frame, target *inode.Inode, flags uint32) (*fd.FD, syscall.Errno)
	Opendir(ctx context.Context, frame *stack.Frame, target *inode.Inode) (*fd.FD, syscall.Errno)
	Flush(ctx context.Context, frame *stack.Frame, f *fd.FD) syscall.Errno
	Fsync(ctx context.Context, frame *stack.Frame, f *fd.FD, dataOnly bool) syscall.Errno
	Fsyncdir(ctx context.Context, frame *stack.Frame, f *fd.FD, dataOnly bool) syscall.Errno
	Readv(ctx context.Context, frame *stack.Frame, f *fd.FD, size int, offset int64) ([]byte, syscall.Errno)
	Writev(ctx context.Context, frame *stack.Frame, f *fd.FD, data []byte, offset int64) (int, syscall.Errno)
	Fallocate(ctx context.Context, frame *stack.Frame, f *fd.FD, mode uint32, offset int64, length int64) syscall.Errno
	Discard(ctx context.Context, frame *stack.Frame, f *fd.FD, offset int64, length int64) syscall.Errno
	Zerofill(ctx context.Context, frame *stack.Frame, f *fd.FD, offset int64, length int64) syscall.Errno

	// Dir group
	Readdir(ctx context.Context, frame *stack.Frame, f *fd.FD, offset int64) ([]DirEntry, syscall.Errno)
	Readdirp(ctx context.Context, frame *stack.Frame, f *fd.FD, offset int64) ([]DirEntry, syscall.Errno)

	// Xattr group
	Setxattr(ctx context.Context, frame *stack.Frame, target *inode.Inode, name string, value []byte, flags uint32) syscall.Errno
	Getxattr(ctx context.Context, frame *stack.Frame, target *inode.Inode, name string) ([]byte, syscall.Errno)
	Removexattr(ctx context.Context, frame *stack.Frame, target *inode.Inode, name string) syscall.Errno
	Fsetxattr(ctx context.Context, frame *stack.Frame, f *fd.FD, name string, value []byte, flags uint32) syscall.Errno
	Fgetxattr(ctx context.Context, frame *stack.Frame, f *fd.FD, name string) ([]byte, syscall.Errno)
	Fremovexattr(ctx context.Context, frame *stack.Frame, f *fd.FD, name string) syscall.Errno
	Xattrop(ctx context.Context, frame *stack.Frame, target *inode.Inode, flags uint32, attrs Xdata) (Xdata, syscall.Errno)
	Fxattrop(ctx context.Context, frame *stack.Frame, f *fd.FD, flags uint32, attrs Xdata) (Xdata, syscall.Errno)

	// Lock group
	Lk(ctx context.Context, frame *stack.Frame, f *fd.FD, cmd int32, lock Flock) (Flock, syscall.Errno)
	Inodelk(ctx context.Context, frame *stack.Frame, target *inode.Inode, cmd int32, lock Flock) syscall.Errno
	Finodelk(ctx context.Context, frame *stack.Frame, f *fd.FD, cmd int32, lock Flock) syscall.Errno
	Entrylk(ctx context.Context, frame *stack.Frame, parent *inode.Inode, name string, cmd int32) syscall.Errno
	Fentrylk(ctx context.Context, frame *stack.Frame, f *fd.FD, name string, cmd int32) syscall.Errno

	// Integrity group
	Rchecksum(ctx context.Context, frame *stack.Frame, f *fd.FD, offset int64, length int) (checksum []byte, errno syscall.Errno)

	// FS group
	Statfs(ctx context.Context, frame *stack.Frame, target *inode.Inode) (StatFS, syscall.Errno)

	// Mgmt group
	Getspec(ctx context.Context, frame *stack.Frame, key string) ([]byte, syscall.Errno)
}

// Event is a notify-fabric event kind (spec.md §4.8).
type Event int

const (
	EventParentUp Event = iota
	EventParentDown
	EventChildUp
	EventChildDown
	EventChildModified
	EventChildConnecting
	EventAuthFailed
)

func (e Event) String() string {
	switch e {
	case EventParentUp:
		return "PARENT_UP"
	case EventParentDown:
		return "PARENT_DOWN"
	case EventChildUp:
		return "CHILD_UP"
	case EventChildDown:
		return "CHILD_DOWN"
	case EventChildModified:
		return "CHILD_MODIFIED"
	case EventChildConnecting:
		return "CHILD_CONNECTING"
	case EventAuthFailed:
		return "AUTH_FAILED"
	default:
		return "UNKNOWN_EVENT"
	}
}
