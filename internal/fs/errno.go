package fs

import (
	"os"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
)

// toErrno converts a Go error from the underlying branch syscalls to
// a syscall.Errno for the kernel.
func toErrno(err error) syscall.Errno {
	if err == nil {
		return fs.OK
	}

	if pe, ok := err.(*os.PathError); ok {
		if errno, ok := pe.Err.(syscall.Errno); ok {
			return errno
		}
	}
	if le, ok := err.(*os.LinkError); ok {
		if errno, ok := le.Err.(syscall.Errno); ok {
			return errno
		}
	}
	if errno, ok := err.(syscall.Errno); ok {
		return errno
	}

	if os.IsNotExist(err) {
		return syscall.ENOENT
	}
	if os.IsPermission(err) {
		return syscall.EACCES
	}
	if os.IsExist(err) {
		return syscall.EEXIST
	}

	return syscall.EIO
}

// applyAll runs apply on every selected base path and folds the
// per-branch results into one: success on any branch is success,
// otherwise the last errno observed is surfaced.
func applyAll(basepaths []string, apply func(basepath string) error) syscall.Errno {
	var errno syscall.Errno
	ok := false
	for _, basepath := range basepaths {
		if err := apply(basepath); err != nil {
			errno = toErrno(err)
		} else {
			ok = true
		}
	}
	if ok {
		return 0
	}
	return errno
}
