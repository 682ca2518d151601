package fs

import (
	"context"
	"os"
	gopath "path"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"

	"github.com/ajaxzhan/poolfs/internal/fsutil"
	"github.com/ajaxzhan/poolfs/pkg/types"
)

// unionDir represents a directory in the union. It carries only the
// fusepath; which branch backs any given child is re-decided by the
// router on every call.
type unionDir struct {
	fs.Inode
	pfs     *PoolFS
	relPath string
}

var _ = (fs.NodeLookuper)((*unionDir)(nil))
var _ = (fs.NodeReaddirer)((*unionDir)(nil))
var _ = (fs.NodeGetattrer)((*unionDir)(nil))
var _ = (fs.NodeSetattrer)((*unionDir)(nil))
var _ = (fs.NodeAccesser)((*unionDir)(nil))
var _ = (fs.NodeMkdirer)((*unionDir)(nil))
var _ = (fs.NodeMknoder)((*unionDir)(nil))
var _ = (fs.NodeUnlinker)((*unionDir)(nil))
var _ = (fs.NodeRmdirer)((*unionDir)(nil))
var _ = (fs.NodeRenamer)((*unionDir)(nil))
var _ = (fs.NodeCreater)((*unionDir)(nil))
var _ = (fs.NodeSymlinker)((*unionDir)(nil))
var _ = (fs.NodeLinker)((*unionDir)(nil))
var _ = (fs.NodeStatfser)((*unionDir)(nil))

// childPath returns the fusepath of a child entry.
func (d *unionDir) childPath(name string) string {
	return gopath.Join(d.relPath, name)
}

// lstatFirst stats fusepath on the first branch the search policy
// returns.
func (pfs *PoolFS) lstatFirst(op, fusepath string, st *syscall.Stat_t) syscall.Errno {
	basepaths, errno := pfs.router.Route(op, fusepath)
	if errno != 0 {
		return errno
	}
	if err := syscall.Lstat(fsutil.FullPath(basepaths[0], fusepath), st); err != nil {
		return toErrno(err)
	}
	return fs.OK
}

// newChildNode builds the node type matching the stat mode.
func (d *unionDir) newChildNode(ctx context.Context, relPath string, mode uint32) (*fs.Inode, fs.StableAttr) {
	var child fs.InodeEmbedder
	var stableAttr fs.StableAttr

	switch {
	case mode&syscall.S_IFMT == syscall.S_IFDIR:
		child = &unionDir{pfs: d.pfs, relPath: relPath}
		stableAttr = fs.StableAttr{Mode: fuse.S_IFDIR}
	case mode&syscall.S_IFMT == syscall.S_IFLNK:
		child = &unionSymlink{pfs: d.pfs, relPath: relPath}
		stableAttr = fs.StableAttr{Mode: fuse.S_IFLNK}
	default:
		child = &unionFile{pfs: d.pfs, relPath: relPath}
		stableAttr = fs.StableAttr{Mode: fuse.S_IFREG}
	}

	return d.NewInode(ctx, child, stableAttr), stableAttr
}

// Getattr implements fs.NodeGetattrer.
func (d *unionDir) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	var st syscall.Stat_t
	if errno := d.pfs.lstatFirst("getattr", d.relPath, &st); errno != 0 {
		return errno
	}
	out.FromStat(&st)
	return fs.OK
}

// Setattr implements fs.NodeSetattrer.
func (d *unionDir) Setattr(ctx context.Context, fh fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	return d.pfs.applySetattr(d.relPath, in, out)
}

// Access implements fs.NodeAccesser.
func (d *unionDir) Access(ctx context.Context, mask uint32) syscall.Errno {
	basepaths, errno := d.pfs.router.Route("access", d.relPath)
	if errno != 0 {
		return errno
	}
	if err := unix.Access(fsutil.FullPath(basepaths[0], d.relPath), mask); err != nil {
		return toErrno(err)
	}
	return fs.OK
}

// Lookup implements fs.NodeLookuper.
func (d *unionDir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	relPath := d.childPath(name)

	var st syscall.Stat_t
	if errno := d.pfs.lstatFirst("getattr", relPath, &st); errno != 0 {
		return nil, errno
	}
	out.Attr.FromStat(&st)

	node, _ := d.newChildNode(ctx, relPath, st.Mode)
	return node, fs.OK
}

// Readdir implements fs.NodeReaddirer. Entries are merged across
// every branch in order; the first branch carrying a name defines
// the entry.
func (d *unionDir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	var result []fuse.DirEntry
	seen := map[string]bool{}
	found := false

	_ = d.pfs.router.Branches().ReadLocked(func(vec []types.Branch) error {
		for _, branch := range vec {
			entries, err := os.ReadDir(fsutil.FullPath(branch.Path, d.relPath))
			if err != nil {
				continue
			}
			found = true
			for _, entry := range entries {
				if seen[entry.Name()] {
					continue
				}
				seen[entry.Name()] = true

				var mode uint32
				if entry.IsDir() {
					mode = fuse.S_IFDIR
				} else if entry.Type()&os.ModeSymlink != 0 {
					mode = fuse.S_IFLNK
				} else {
					mode = fuse.S_IFREG
				}
				result = append(result, fuse.DirEntry{
					Name: entry.Name(),
					Mode: mode,
				})
			}
		}
		return nil
	})

	if !found {
		return nil, syscall.ENOENT
	}
	return fs.NewListDirStream(result), fs.OK
}

// lstatAny stats relPath on the first basepath that carries it.
// After a fan-out some branches may have failed; the entry returned
// to the kernel comes from one that did not.
func lstatAny(basepaths []string, relPath string, st *syscall.Stat_t) syscall.Errno {
	errno := syscall.ENOENT
	for _, basepath := range basepaths {
		if err := syscall.Lstat(fsutil.FullPath(basepath, relPath), st); err == nil {
			return fs.OK
		} else {
			errno = toErrno(err)
		}
	}
	return errno
}

// cloneParent materialises the parent directory chain of relPath on
// basepath, copying modes from a branch that already carries it.
func (pfs *PoolFS) cloneParent(basepath, relPath string) syscall.Errno {
	parent := gopath.Dir(relPath)
	if parent == "/" || parent == "." {
		return fs.OK
	}
	if fsutil.Exists(basepath, parent) {
		return fs.OK
	}

	srcpaths, errno := pfs.router.Route("getattr", parent)
	if errno != 0 {
		return errno
	}
	if err := fsutil.ClonePath(srcpaths[0], basepath, parent); err != nil {
		return toErrno(err)
	}
	return fs.OK
}

// Mkdir implements fs.NodeMkdirer. Multi-select create policies make
// the directory on every selected branch.
func (d *unionDir) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	relPath := d.childPath(name)

	// Create policies are routed on the parent directory: the new
	// object does not exist anywhere yet, its parent is what an
	// existing-path policy can require.
	basepaths, errno := d.pfs.router.Route("mkdir", d.relPath)
	if errno != 0 {
		return nil, errno
	}

	if errno := applyAll(basepaths, func(basepath string) error {
		if errno := d.pfs.cloneParent(basepath, relPath); errno != 0 {
			return errno
		}
		return os.Mkdir(fsutil.FullPath(basepath, relPath), os.FileMode(mode))
	}); errno != 0 {
		return nil, errno
	}

	var st syscall.Stat_t
	if errno := lstatAny(basepaths, relPath, &st); errno != 0 {
		return nil, errno
	}
	out.Attr.FromStat(&st)

	child := &unionDir{pfs: d.pfs, relPath: relPath}
	return d.NewInode(ctx, child, fs.StableAttr{Mode: fuse.S_IFDIR}), fs.OK
}

// Mknod implements fs.NodeMknoder.
func (d *unionDir) Mknod(ctx context.Context, name string, mode uint32, dev uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	relPath := d.childPath(name)

	basepaths, errno := d.pfs.router.Route("mknod", d.relPath)
	if errno != 0 {
		return nil, errno
	}

	if errno := applyAll(basepaths, func(basepath string) error {
		if errno := d.pfs.cloneParent(basepath, relPath); errno != 0 {
			return errno
		}
		return unix.Mknod(fsutil.FullPath(basepath, relPath), mode, int(dev))
	}); errno != 0 {
		return nil, errno
	}

	var st syscall.Stat_t
	if errno := lstatAny(basepaths, relPath, &st); errno != 0 {
		return nil, errno
	}
	out.Attr.FromStat(&st)

	node, _ := d.newChildNode(ctx, relPath, st.Mode)
	return node, fs.OK
}

// Unlink implements fs.NodeUnlinker. The action policy decides which
// branch copies go; with a multi-select policy every copy goes.
func (d *unionDir) Unlink(ctx context.Context, name string) syscall.Errno {
	relPath := d.childPath(name)

	basepaths, errno := d.pfs.router.Route("unlink", relPath)
	if errno != 0 {
		return errno
	}

	return applyAll(basepaths, func(basepath string) error {
		return os.Remove(fsutil.FullPath(basepath, relPath))
	})
}

// Rmdir implements fs.NodeRmdirer.
func (d *unionDir) Rmdir(ctx context.Context, name string) syscall.Errno {
	relPath := d.childPath(name)

	basepaths, errno := d.pfs.router.Route("rmdir", relPath)
	if errno != 0 {
		return errno
	}

	return applyAll(basepaths, func(basepath string) error {
		return os.Remove(fsutil.FullPath(basepath, relPath))
	})
}

// Rename implements fs.NodeRenamer. The rename happens within each
// selected branch; the destination's parent chain is cloned onto the
// branch when it is missing there.
func (d *unionDir) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	relPath := d.childPath(name)

	np, ok := newParent.(*unionDir)
	if !ok {
		return syscall.EINVAL
	}
	newRelPath := np.childPath(newName)

	basepaths, errno := d.pfs.router.Route("rename", relPath)
	if errno != 0 {
		return errno
	}

	return applyAll(basepaths, func(basepath string) error {
		if errno := d.pfs.cloneParent(basepath, newRelPath); errno != 0 {
			return errno
		}
		return os.Rename(
			fsutil.FullPath(basepath, relPath),
			fsutil.FullPath(basepath, newRelPath),
		)
	})
}

// Create implements fs.NodeCreater. A single branch hosts the new
// file even under multi-select policies; the handle pins it.
func (d *unionDir) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (node *fs.Inode, fh fs.FileHandle, fuseFlags uint32, errno syscall.Errno) {
	relPath := d.childPath(name)

	basepaths, rerrno := d.pfs.router.Route("create", d.relPath)
	if rerrno != 0 {
		return nil, nil, 0, rerrno
	}
	basepath := basepaths[0]

	if errno := d.pfs.cloneParent(basepath, relPath); errno != 0 {
		return nil, nil, 0, errno
	}

	f, err := os.OpenFile(fsutil.FullPath(basepath, relPath), int(flags)|os.O_CREATE, os.FileMode(mode))
	if err != nil {
		return nil, nil, 0, toErrno(err)
	}

	var st syscall.Stat_t
	if err := syscall.Fstat(int(f.Fd()), &st); err != nil {
		f.Close()
		return nil, nil, 0, toErrno(err)
	}
	out.Attr.FromStat(&st)

	child := &unionFile{pfs: d.pfs, relPath: relPath}
	handle := &unionFileHandle{file: f}

	return d.NewInode(ctx, child, fs.StableAttr{Mode: fuse.S_IFREG}), handle, 0, fs.OK
}

// Symlink implements fs.NodeSymlinker.
func (d *unionDir) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	relPath := d.childPath(name)

	basepaths, errno := d.pfs.router.Route("symlink", d.relPath)
	if errno != 0 {
		return nil, errno
	}

	if errno := applyAll(basepaths, func(basepath string) error {
		if errno := d.pfs.cloneParent(basepath, relPath); errno != 0 {
			return errno
		}
		return os.Symlink(target, fsutil.FullPath(basepath, relPath))
	}); errno != 0 {
		return nil, errno
	}

	var st syscall.Stat_t
	if errno := lstatAny(basepaths, relPath, &st); errno != 0 {
		return nil, errno
	}
	out.Attr.FromStat(&st)

	child := &unionSymlink{pfs: d.pfs, relPath: relPath}
	return d.NewInode(ctx, child, fs.StableAttr{Mode: fuse.S_IFLNK}), fs.OK
}

// Link implements fs.NodeLinker. Hard links never cross branches;
// each selected branch links within itself.
func (d *unionDir) Link(ctx context.Context, target fs.InodeEmbedder, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	var oldRelPath string
	switch t := target.(type) {
	case *unionFile:
		oldRelPath = t.relPath
	case *unionSymlink:
		oldRelPath = t.relPath
	default:
		return nil, syscall.EINVAL
	}
	relPath := d.childPath(name)

	basepaths, errno := d.pfs.router.Route("link", oldRelPath)
	if errno != 0 {
		return nil, errno
	}

	if errno := applyAll(basepaths, func(basepath string) error {
		if errno := d.pfs.cloneParent(basepath, relPath); errno != 0 {
			return errno
		}
		return os.Link(
			fsutil.FullPath(basepath, oldRelPath),
			fsutil.FullPath(basepath, relPath),
		)
	}); errno != 0 {
		return nil, errno
	}

	var st syscall.Stat_t
	if errno := lstatAny(basepaths, relPath, &st); errno != 0 {
		return nil, errno
	}
	out.Attr.FromStat(&st)

	node, _ := d.newChildNode(ctx, relPath, st.Mode)
	return node, fs.OK
}

// Statfs implements fs.NodeStatfser. Figures are summed across
// branches, counting each underlying filesystem once even when
// several branches share it.
func (d *unionDir) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	const blockSize = 4096

	var blocks, bfree, bavail, files, ffree uint64
	seen := map[unix.Fsid]bool{}
	found := false

	_ = d.pfs.router.Branches().ReadLocked(func(vec []types.Branch) error {
		for _, branch := range vec {
			var st unix.Statfs_t
			if err := unix.Statfs(branch.Path, &st); err != nil {
				continue
			}
			if seen[st.Fsid] {
				continue
			}
			seen[st.Fsid] = true
			found = true

			bsize := uint64(st.Bsize)
			blocks += st.Blocks * bsize / blockSize
			bfree += st.Bfree * bsize / blockSize
			bavail += st.Bavail * bsize / blockSize
			files += st.Files
			ffree += uint64(st.Ffree)
		}
		return nil
	})

	if !found {
		return syscall.ENOENT
	}

	out.Blocks = blocks
	out.Bfree = bfree
	out.Bavail = bavail
	out.Files = files
	out.Ffree = ffree
	out.Bsize = blockSize
	out.Frsize = blockSize
	out.NameLen = 255
	return fs.OK
}
