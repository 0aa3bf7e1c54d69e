package inode

// Dentry is a (parent, name, child) directory entry. An inode may have
// several dentries aliasing it (hard links); a directory inode must have
// at most one (spec.md §3, invariant enforced by Table.Link).
type Dentry struct {
	Parent *Inode
	Name   string
	Inode  *Inode
}

// nameKey is the name-hash bucket key: (parent GFID, name).
type nameKey struct {
	parent string // parent.GFID().String(); stable even across inode merges
	name   string
}

func dentryKey(parent *Inode, name string) nameKey {
	return nameKey{parent: parent.GFID().String(), name: name}
}
