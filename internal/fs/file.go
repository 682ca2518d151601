package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"

	"github.com/ajaxzhan/poolfs/internal/fsutil"
)

// unionFile represents a regular file in the union.
type unionFile struct {
	fs.Inode
	pfs     *PoolFS
	relPath string
}

var _ = (fs.NodeGetattrer)((*unionFile)(nil))
var _ = (fs.NodeSetattrer)((*unionFile)(nil))
var _ = (fs.NodeOpener)((*unionFile)(nil))

// Getattr implements fs.NodeGetattrer.
func (f *unionFile) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	var st syscall.Stat_t
	if errno := f.pfs.lstatFirst("getattr", f.relPath, &st); errno != 0 {
		return errno
	}
	out.FromStat(&st)
	return fs.OK
}

// Setattr implements fs.NodeSetattrer.
func (f *unionFile) Setattr(ctx context.Context, fh fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	return f.pfs.applySetattr(f.relPath, in, out)
}

// Open implements fs.NodeOpener. The search policy pins the branch;
// reads and writes through the handle stay on it.
func (f *unionFile) Open(ctx context.Context, flags uint32) (fh fs.FileHandle, fuseFlags uint32, errno syscall.Errno) {
	basepaths, errno := f.pfs.router.Route("open", f.relPath)
	if errno != 0 {
		return nil, 0, errno
	}

	// Filter flags to the bits os.OpenFile understands; FUSE passes
	// extra bits that do not translate.
	accMode := flags & syscall.O_ACCMODE
	osFlags := int(accMode)
	if flags&syscall.O_APPEND != 0 {
		osFlags |= syscall.O_APPEND
	}
	if flags&syscall.O_TRUNC != 0 {
		osFlags |= syscall.O_TRUNC
	}

	file, err := os.OpenFile(fsutil.FullPath(basepaths[0], f.relPath), osFlags, 0)
	if err != nil {
		return nil, 0, toErrno(err)
	}

	return &unionFileHandle{file: file}, 0, fs.OK
}

// unionFileHandle represents an open file handle pinned to one
// branch.
type unionFileHandle struct {
	file *os.File
}

var _ = (fs.FileReader)((*unionFileHandle)(nil))
var _ = (fs.FileWriter)((*unionFileHandle)(nil))
var _ = (fs.FileFlusher)((*unionFileHandle)(nil))
var _ = (fs.FileFsyncer)((*unionFileHandle)(nil))
var _ = (fs.FileReleaser)((*unionFileHandle)(nil))
var _ = (fs.FileLseeker)((*unionFileHandle)(nil))
var _ = (fs.FileGetattrer)((*unionFileHandle)(nil))

// Read implements fs.FileReader.
func (fh *unionFileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, err := fh.file.ReadAt(dest, off)
	// ReadAt reports io.EOF at or past end of file; for FUSE a short
	// read is the normal way to say that.
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, toErrno(err)
	}
	return fuse.ReadResultData(dest[:n]), fs.OK
}

// Write implements fs.FileWriter.
func (fh *unionFileHandle) Write(ctx context.Context, data []byte, off int64) (written uint32, errno syscall.Errno) {
	n, err := fh.file.WriteAt(data, off)
	if err != nil {
		return 0, toErrno(err)
	}
	return uint32(n), fs.OK
}

// Flush implements fs.FileFlusher.
func (fh *unionFileHandle) Flush(ctx context.Context) syscall.Errno {
	return fs.OK
}

// Fsync implements fs.FileFsyncer.
func (fh *unionFileHandle) Fsync(ctx context.Context, flags uint32) syscall.Errno {
	if err := fh.file.Sync(); err != nil {
		return toErrno(err)
	}
	return fs.OK
}

// Release implements fs.FileReleaser.
func (fh *unionFileHandle) Release(ctx context.Context) syscall.Errno {
	if err := fh.file.Close(); err != nil {
		return toErrno(err)
	}
	return fs.OK
}

// Lseek implements fs.FileLseeker.
func (fh *unionFileHandle) Lseek(ctx context.Context, off uint64, whence uint32) (uint64, syscall.Errno) {
	newOff, err := fh.file.Seek(int64(off), int(whence))
	if err != nil {
		return 0, toErrno(err)
	}
	return uint64(newOff), fs.OK
}

// Getattr implements fs.FileGetattrer.
func (fh *unionFileHandle) Getattr(ctx context.Context, out *fuse.AttrOut) syscall.Errno {
	var st syscall.Stat_t
	if err := syscall.Fstat(int(fh.file.Fd()), &st); err != nil {
		return toErrno(err)
	}
	out.FromStat(&st)
	return fs.OK
}

// unionSymlink represents a symbolic link in the union.
type unionSymlink struct {
	fs.Inode
	pfs     *PoolFS
	relPath string
}

var _ = (fs.NodeGetattrer)((*unionSymlink)(nil))
var _ = (fs.NodeReadlinker)((*unionSymlink)(nil))

// Getattr implements fs.NodeGetattrer.
func (s *unionSymlink) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	var st syscall.Stat_t
	if errno := s.pfs.lstatFirst("getattr", s.relPath, &st); errno != 0 {
		return errno
	}
	out.FromStat(&st)
	return fs.OK
}

// Readlink implements fs.NodeReadlinker.
func (s *unionSymlink) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	basepaths, errno := s.pfs.router.Route("readlink", s.relPath)
	if errno != 0 {
		return nil, errno
	}
	target, err := os.Readlink(fsutil.FullPath(basepaths[0], s.relPath))
	if err != nil {
		return nil, toErrno(err)
	}
	return []byte(target), fs.OK
}

// applySetattr translates a FUSE setattr into the separate
// operations the policy table knows (truncate, chmod, chown,
// utimens), each routed and fanned out on its own. A multi-select
// action policy applies the change to every branch carrying the
// path.
func (pfs *PoolFS) applySetattr(relPath string, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if in.Valid&fuse.FATTR_SIZE != 0 {
		basepaths, errno := pfs.router.Route("truncate", relPath)
		if errno != 0 {
			return errno
		}
		if errno := applyAll(basepaths, func(basepath string) error {
			return os.Truncate(fsutil.FullPath(basepath, relPath), int64(in.Size))
		}); errno != 0 {
			return errno
		}
	}

	if in.Valid&fuse.FATTR_MODE != 0 {
		basepaths, errno := pfs.router.Route("chmod", relPath)
		if errno != 0 {
			return errno
		}
		if errno := applyAll(basepaths, func(basepath string) error {
			return unix.Chmod(fsutil.FullPath(basepath, relPath), in.Mode)
		}); errno != 0 {
			return errno
		}
	}

	if in.Valid&(fuse.FATTR_UID|fuse.FATTR_GID) != 0 {
		uid, gid := -1, -1
		if in.Valid&fuse.FATTR_UID != 0 {
			uid = int(in.Owner.Uid)
		}
		if in.Valid&fuse.FATTR_GID != 0 {
			gid = int(in.Owner.Gid)
		}
		basepaths, errno := pfs.router.Route("chown", relPath)
		if errno != 0 {
			return errno
		}
		if errno := applyAll(basepaths, func(basepath string) error {
			return unix.Lchown(fsutil.FullPath(basepath, relPath), uid, gid)
		}); errno != 0 {
			return errno
		}
	}

	if in.Valid&(fuse.FATTR_ATIME|fuse.FATTR_MTIME) != 0 {
		ts := setattrTimes(in)
		basepaths, errno := pfs.router.Route("utimens", relPath)
		if errno != 0 {
			return errno
		}
		if errno := applyAll(basepaths, func(basepath string) error {
			return fsutil.Lutimens(fsutil.FullPath(basepath, relPath), ts)
		}); errno != 0 {
			return errno
		}
	}

	var st syscall.Stat_t
	if errno := pfs.lstatFirst("getattr", relPath, &st); errno != 0 {
		return errno
	}
	out.FromStat(&st)
	return fs.OK
}

// setattrTimes builds the utimensat timespec pair from a setattr
// request, leaving untouched fields as UTIME_OMIT.
func setattrTimes(in *fuse.SetAttrIn) [2]unix.Timespec {
	ts := [2]unix.Timespec{
		{Nsec: unix.UTIME_OMIT},
		{Nsec: unix.UTIME_OMIT},
	}
	if in.Valid&fuse.FATTR_ATIME != 0 {
		if in.Valid&fuse.FATTR_ATIME_NOW != 0 {
			ts[0] = unix.Timespec{Nsec: unix.UTIME_NOW}
		} else {
			ts[0] = unix.NsecToTimespec(int64(in.Atime)*1e9 + int64(in.Atimensec))
		}
	}
	if in.Valid&fuse.FATTR_MTIME != 0 {
		if in.Valid&fuse.FATTR_MTIME_NOW != 0 {
			ts[1] = unix.Timespec{Nsec: unix.UTIME_NOW}
		} else {
			ts[1] = unix.NsecToTimespec(int64(in.Mtime)*1e9 + int64(in.Mtimensec))
		}
	}
	return ts
}
