package xlator

import "time"

// Iatt is the POSIX-ish attribute bundle returned by lookup/stat and
// friends (spec.md §6: "lookup returns inode, iatt, parent_iatt").
type Iatt struct {
	Type  int
	Mode  uint32
	UID   uint32
	GID   uint32
	Size  uint64
	Nlink uint32
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

// Xdata is the optional extra-data dictionary that accompanies most FOPs
// (spec.md §6 "xdata?"). It is used to carry translator-specific
// request/response metadata without widening every FOP's signature.
type Xdata map[string][]byte

// Flock describes an advisory lock request/reply for lk/inodelk/entrylk
// and their f-variants (spec.md §6 "Lock" group).
type Flock struct {
	Type   int32 // F_RDLCK, F_WRLCK, F_UNLCK
	Whence int16
	Start  int64
	Len    int64
	PID    int32
	Owner  uint64
}

// DirEntry is one entry of a readdir/readdirp reply.
type DirEntry struct {
	Name string
	Off  int64
	Iatt Iatt // zero value for plain readdir
}

// StatFS mirrors statvfs-shaped information returned by the statfs FOP.
type StatFS struct {
	BlockSize  uint64
	Blocks     uint64
	BlocksFree uint64
	Files      uint64
	FilesFree  uint64
}
