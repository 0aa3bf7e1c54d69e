package xlator

import (
	"context"
	"sync"
	"syscall"

	"github.com/xlatorfs/xlatorfs/fd"
	"github.com/xlatorfs/xlatorfs/inode"
	"github.com/xlatorfs/xlatorfs/stack"
)

// Base provides the default wind/unwind/resume plumbing described in
// spec.md §4.4: every FOP tail-winds to the first child unmodified
// unless the embedding translator overrides it. Every translator in the
// graph must embed Base.
//
// A translator that wants to observe a given FOP's reply overrides that
// one method with a full (non-tail) Wind through Engine, so it gets the
// reply back through its own code before returning to its caller. A
// translator with no opinion on a FOP leaves Base's version in place and
// pays no per-call cost beyond the one extra Go method dispatch.
type Base struct {
	name   string
	engine *stack.Engine
	self   Translator // the concrete translator embedding this Base

	mu          sync.Mutex
	children    []Translator
	parents     []Translator
	initialized bool
	master      Translator // root master (e.g. the FUSE bridge), if any
}

// NewBase constructs the embeddable default plumbing for a translator
// named name, sharing engine with the rest of its graph.
func NewBase(name string, engine *stack.Engine) Base {
	return Base{name: name, engine: engine}
}

// Bind records self as the concrete translator that embeds b, so
// Propagate can report the correct originating child to its parents.
// Every translator constructor must call Bind(self) once, immediately
// after embedding Base, mirroring the self-pointer the C original
// stores in struct xlator_t itself.
func (b *Base) Bind(self Translator) {
	b.mu.Lock()
	b.self = self
	b.mu.Unlock()
}

func (b *Base) Name() string { return b.name }

func (b *Base) Init() error {
	b.mu.Lock()
	b.initialized = true
	b.mu.Unlock()
	return nil
}

func (b *Base) Children() []Translator {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Translator, len(b.children))
	copy(out, b.children)
	return out
}

func (b *Base) SetChildren(c []Translator) {
	b.mu.Lock()
	b.children = c
	b.mu.Unlock()
}

func (b *Base) Parents() []Translator {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Translator, len(b.parents))
	copy(out, b.parents)
	return out
}

func (b *Base) AddParent(p Translator) {
	b.mu.Lock()
	b.parents = append(b.parents, p)
	b.mu.Unlock()
}

// SetMaster registers the root master (the FUSE bridge stand-in) to
// receive CHILD_* events when a translator has no parent (spec.md §4.8).
func (b *Base) SetMaster(m Translator) {
	b.mu.Lock()
	b.master = m
	b.mu.Unlock()
}

func (b *Base) firstChild() Translator {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.children) == 0 {
		return nil
	}
	return b.children[0]
}

// tailWind forwards frame to the first child unmodified, matching
// spec.md §4.1's tail-wind primitive, and returns the child translator
// to invoke. It returns nil if this translator is a leaf (an individual
// storage translator, out of scope for this repository per spec.md §1),
// in which case the caller's default method returns ENOSYS.
func (b *Base) tailWind(frame *stack.Frame) Translator {
	child := b.firstChild()
	if child == nil {
		return nil
	}
	b.engine.TailWind(frame, child)
	return child
}

// --- default FOP implementations: tail-wind to first child or ENOSYS ---

func (b *Base) Lookup(ctx context.Context, frame *stack.Frame, parent *inode.Inode, name string) (*inode.Inode, Iatt, Iatt, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Lookup(ctx, frame, parent, name)
	}
	return nil, Iatt{}, Iatt{}, syscall.ENOSYS
}

func (b *Base) Stat(ctx context.Context, frame *stack.Frame, target *inode.Inode) (Iatt, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Stat(ctx, frame, target)
	}
	return Iatt{}, syscall.ENOSYS
}

func (b *Base) Access(ctx context.Context, frame *stack.Frame, target *inode.Inode, mask uint32) syscall.Errno {
	if c := b.tailWind(frame); c != nil {
		return c.Access(ctx, frame, target, mask)
	}
	return syscall.ENOSYS
}

func (b *Base) Readlink(ctx context.Context, frame *stack.Frame, target *inode.Inode, size int) (string, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Readlink(ctx, frame, target, size)
	}
	return "", syscall.ENOSYS
}

func (b *Base) Setattr(ctx context.Context, frame *stack.Frame, target *inode.Inode, attr Iatt, valid uint32) (Iatt, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Setattr(ctx, frame, target, attr, valid)
	}
	return Iatt{}, syscall.ENOSYS
}

func (b *Base) Fsetattr(ctx context.Context, frame *stack.Frame, f *fd.FD, attr Iatt, valid uint32) (Iatt, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Fsetattr(ctx, frame, f, attr, valid)
	}
	return Iatt{}, syscall.ENOSYS
}

func (b *Base) Truncate(ctx context.Context, frame *stack.Frame, target *inode.Inode, size uint64) (Iatt, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Truncate(ctx, frame, target, size)
	}
	return Iatt{}, syscall.ENOSYS
}

func (b *Base) Ftruncate(ctx context.Context, frame *stack.Frame, f *fd.FD, size uint64) (Iatt, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Ftruncate(ctx, frame, f, size)
	}
	return Iatt{}, syscall.ENOSYS
}

func (b *Base) Mknod(ctx context.Context, frame *stack.Frame, parent *inode.Inode, name string, mode uint32, dev uint64) (*inode.Inode, Iatt, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Mknod(ctx, frame, parent, name, mode, dev)
	}
	return nil, Iatt{}, syscall.ENOSYS
}

func (b *Base) Mkdir(ctx context.Context, frame *stack.Frame, parent *inode.Inode, name string, mode uint32) (*inode.Inode, Iatt, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Mkdir(ctx, frame, parent, name, mode)
	}
	return nil, Iatt{}, syscall.ENOSYS
}

func (b *Base) Unlink(ctx context.Context, frame *stack.Frame, parent *inode.Inode, name string) syscall.Errno {
	if c := b.tailWind(frame); c != nil {
		return c.Unlink(ctx, frame, parent, name)
	}
	return syscall.ENOSYS
}

func (b *Base) Rmdir(ctx context.Context, frame *stack.Frame, parent *inode.Inode, name string) syscall.Errno {
	if c := b.tailWind(frame); c != nil {
		return c.Rmdir(ctx, frame, parent, name)
	}
	return syscall.ENOSYS
}

func (b *Base) Symlink(ctx context.Context, frame *stack.Frame, parent *inode.Inode, name, target string) (*inode.Inode, Iatt, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Symlink(ctx, frame, parent, name, target)
	}
	return nil, Iatt{}, syscall.ENOSYS
}

func (b *Base) Rename(ctx context.Context, frame *stack.Frame, oldParent *inode.Inode, oldName string, newParent *inode.Inode, newName string) syscall.Errno {
	if c := b.tailWind(frame); c != nil {
		return c.Rename(ctx, frame, oldParent, oldName, newParent, newName)
	}
	return syscall.ENOSYS
}

func (b *Base) Link(ctx context.Context, frame *stack.Frame, target *inode.Inode, newParent *inode.Inode, newName string) (Iatt, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Link(ctx, frame, target, newParent, newName)
	}
	return Iatt{}, syscall.ENOSYS
}

func (b *Base) Create(ctx context.Context, frame *stack.Frame, parent *inode.Inode, name string, flags uint32, mode uint32) (*inode.Inode, *fd.FD, Iatt, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Create(ctx, frame, parent, name, flags, mode)
	}
	return nil, nil, Iatt{}, syscall.ENOSYS
}

func (b *Base) Open(ctx context.Context, frame *stack.Frame, target *inode.Inode, flags uint32) (*fd.FD, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Open(ctx, frame, target, flags)
	}
	return nil, syscall.ENOSYS
}

func (b *Base) Opendir(ctx context.Context, frame *stack.Frame, target *inode.Inode) (*fd.FD, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Opendir(ctx, frame, target)
	}
	return nil, syscall.ENOSYS
}

func (b *Base) Flush(ctx context.Context, frame *stack.Frame, f *fd.FD) syscall.Errno {
	if c := b.tailWind(frame); c != nil {
		return c.Flush(ctx, frame, f)
	}
	return syscall.ENOSYS
}

func (b *Base) Fsync(ctx context.Context, frame *stack.Frame, f *fd.FD, dataOnly bool) syscall.Errno {
	if c := b.tailWind(frame); c != nil {
		return c.Fsync(ctx, frame, f, dataOnly)
	}
	return syscall.ENOSYS
}

func (b *Base) Fsyncdir(ctx context.Context, frame *stack.Frame, f *fd.FD, dataOnly bool) syscall.Errno {
	if c := b.tailWind(frame); c != nil {
		return c.Fsyncdir(ctx, frame, f, dataOnly)
	}
	return syscall.ENOSYS
}

func (b *Base) Readv(ctx context.Context, frame *stack.Frame, f *fd.FD, size int, offset int64) ([]byte, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Readv(ctx, frame, f, size, offset)
	}
	return nil, syscall.ENOSYS
}

func (b *Base) Writev(ctx context.Context, frame *stack.Frame, f *fd.FD, data []byte, offset int64) (int, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Writev(ctx, frame, f, data, offset)
	}
	return 0, syscall.ENOSYS
}

func (b *Base) Fallocate(ctx context.Context, frame *stack.Frame, f *fd.FD, mode uint32, offset int64, length int64) syscall.Errno {
	if c := b.tailWind(frame); c != nil {
		return c.Fallocate(ctx, frame, f, mode, offset, length)
	}
	return syscall.ENOSYS
}

func (b *Base) Discard(ctx context.Context, frame *stack.Frame, f *fd.FD, offset int64, length int64) syscall.Errno {
	if c := b.tailWind(frame); c != nil {
		return c.Discard(ctx, frame, f, offset, length)
	}
	return syscall.ENOSYS
}

func (b *Base) Zerofill(ctx context.Context, frame *stack.Frame, f *fd.FD, offset int64, length int64) syscall.Errno {
	if c := b.tailWind(frame); c != nil {
		return c.Zerofill(ctx, frame, f, offset, length)
	}
	return syscall.ENOSYS
}

func (b *Base) Readdir(ctx context.Context, frame *stack.Frame, f *fd.FD, offset int64) ([]DirEntry, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Readdir(ctx, frame, f, offset)
	}
	return nil, syscall.ENOSYS
}

func (b *Base) Readdirp(ctx context.Context, frame *stack.Frame, f *fd.FD, offset int64) ([]DirEntry, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Readdirp(ctx, frame, f, offset)
	}
	return nil, syscall.ENOSYS
}

func (b *Base) Setxattr(ctx context.Context, frame *stack.Frame, target *inode.Inode, name string, value []byte, flags uint32) syscall.Errno {
	if c := b.tailWind(frame); c != nil {
		return c.Setxattr(ctx, frame, target, name, value, flags)
	}
	return syscall.ENOSYS
}

func (b *Base) Getxattr(ctx context.Context, frame *stack.Frame, target *inode.Inode, name string) ([]byte, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Getxattr(ctx, frame, target, name)
	}
	return nil, syscall.ENOSYS
}

func (b *Base) Removexattr(ctx context.Context, frame *stack.Frame, target *inode.Inode, name string) syscall.Errno {
	if c := b.tailWind(frame); c != nil {
		return c.Removexattr(ctx, frame, target, name)
	}
	return syscall.ENOSYS
}

func (b *Base) Fsetxattr(ctx context.Context, frame *stack.Frame, f *fd.FD, name string, value []byte, flags uint32) syscall.Errno {
	if c := b.tailWind(frame); c != nil {
		return c.Fsetxattr(ctx, frame, f, name, value, flags)
	}
	return syscall.ENOSYS
}

func (b *Base) Fgetxattr(ctx context.Context, frame *stack.Frame, f *fd.FD, name string) ([]byte, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Fgetxattr(ctx, frame, f, name)
	}
	return nil, syscall.ENOSYS
}

func (b *Base) Fremovexattr(ctx context.Context, frame *stack.Frame, f *fd.FD, name string) syscall.Errno {
	if c := b.tailWind(frame); c != nil {
		return c.Fremovexattr(ctx, frame, f, name)
	}
	return syscall.ENOSYS
}

func (b *Base) Xattrop(ctx context.Context, frame *stack.Frame, target *inode.Inode, flags uint32, attrs Xdata) (Xdata, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Xattrop(ctx, frame, target, flags, attrs)
	}
	return nil, syscall.ENOSYS
}

func (b *Base) Fxattrop(ctx context.Context, frame *stack.Frame, f *fd.FD, flags uint32, attrs Xdata) (Xdata, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Fxattrop(ctx, frame, f, flags, attrs)
	}
	return nil, syscall.ENOSYS
}

func (b *Base) Lk(ctx context.Context, frame *stack.Frame, f *fd.FD, cmd int32, lock Flock) (Flock, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Lk(ctx, frame, f, cmd, lock)
	}
	return Flock{}, syscall.ENOSYS
}

func (b *Base) Inodelk(ctx context.Context, frame *stack.Frame, target *inode.Inode, cmd int32, lock Flock) syscall.Errno {
	if c := b.tailWind(frame); c != nil {
		return c.Inodelk(ctx, frame, target, cmd, lock)
	}
	return syscall.ENOSYS
}

func (b *Base) Finodelk(ctx context.Context, frame *stack.Frame, f *fd.FD, cmd int32, lock Flock) syscall.Errno {
	if c := b.tailWind(frame); c != nil {
		return c.Finodelk(ctx, frame, f, cmd, lock)
	}
	return syscall.ENOSYS
}

func (b *Base) Entrylk(ctx context.Context, frame *stack.Frame, parent *inode.Inode, name string, cmd int32) syscall.Errno {
	if c := b.tailWind(frame); c != nil {
		return c.Entrylk(ctx, frame, parent, name, cmd)
	}
	return syscall.ENOSYS
}

func (b *Base) Fentrylk(ctx context.Context, frame *stack.Frame, f *fd.FD, name string, cmd int32) syscall.Errno {
	if c := b.tailWind(frame); c != nil {
		return c.Fentrylk(ctx, frame, f, name, cmd)
	}
	return syscall.ENOSYS
}

func (b *Base) Rchecksum(ctx context.Context, frame *stack.Frame, f *fd.FD, offset int64, length int) ([]byte, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Rchecksum(ctx, frame, f, offset, length)
	}
	return nil, syscall.ENOSYS
}

func (b *Base) Statfs(ctx context.Context, frame *stack.Frame, target *inode.Inode) (StatFS, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Statfs(ctx, frame, target)
	}
	return StatFS{}, syscall.ENOSYS
}

func (b *Base) Getspec(ctx context.Context, frame *stack.Frame, key string) ([]byte, syscall.Errno) {
	if c := b.tailWind(frame); c != nil {
		return c.Getspec(ctx, frame, key)
	}
	return nil, syscall.ENOSYS
}
