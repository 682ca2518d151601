// Package fsutil provides the filesystem probes the policy engine
// and FUSE layer are built on: existence checks, authoritative
// statfs information, a cached statfs layer, and the small syscall
// wrappers applied per branch.
package fsutil

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// FullPath joins a branch base path with a fusepath. The fusepath is
// always slash-rooted as delivered by the kernel.
func FullPath(basepath, fusepath string) string {
	return filepath.Join(basepath, fusepath)
}

// Exists reports whether fusepath exists on the branch rooted at
// basepath. Symlinks count as existing without being followed.
// Probe failures of any kind report false; existence is the only
// semantic this probe carries.
func Exists(basepath, fusepath string) bool {
	var st unix.Stat_t
	err := unix.Lstat(FullPath(basepath, fusepath), &st)
	return err == nil
}

// Info returns authoritative space and writability information for
// the filesystem backing basepath. CREATE and ACTION selection use
// this rather than the cache: a stale answer there can place data on
// a full or read-only branch.
func Info(basepath string) (types.FsInfo, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(basepath, &st); err != nil {
		return types.FsInfo{}, err
	}
	bsize := uint64(st.Bsize)
	return types.FsInfo{
		SpaceAvail: st.Bavail * bsize,
		SpaceUsed:  (st.Blocks - st.Bfree) * bsize,
		ReadOnly:   st.Flags&unix.ST_RDONLY != 0,
	}, nil
}

// Fsid identifies the filesystem backing basepath; branches with
// equal Fsid share one filesystem.
func Fsid(basepath string) (unix.Fsid, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(basepath, &st); err != nil {
		return unix.Fsid{}, err
	}
	return st.Fsid, nil
}

// Lutimens sets the access and modification times of path without
// following symlinks. ts follows the utimensat convention:
// ts[0]=atime, ts[1]=mtime, with UTIME_NOW/UTIME_OMIT honoured.
func Lutimens(path string, ts [2]unix.Timespec) error {
	return unix.UtimesNanoAt(unix.AT_FDCWD, path, ts[:], unix.AT_SYMLINK_NOFOLLOW)
}

// ClonePath replicates the directory chain of reldir from the branch
// rooted at srcbase onto the branch rooted at dstbase, preserving
// permission bits. Create policies can land on a branch that has
// never seen the parent directory of the new object; the chain is
// materialised before the create proceeds.
func ClonePath(srcbase, dstbase, reldir string) error {
	reldir = strings.Trim(filepath.Clean(reldir), "/")
	if reldir == "" || reldir == "." {
		return nil
	}

	partial := ""
	for _, elem := range strings.Split(reldir, "/") {
		partial = filepath.Join(partial, elem)
		dst := filepath.Join(dstbase, partial)
		if _, err := os.Lstat(dst); err == nil {
			continue
		}

		mode := os.FileMode(0755)
		if st, err := os.Lstat(filepath.Join(srcbase, partial)); err == nil {
			mode = st.Mode().Perm()
		}
		if err := os.Mkdir(dst, mode); err != nil && !os.IsExist(err) {
			return err
		}
	}
	return nil
}
