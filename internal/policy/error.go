package policy

import (
	"errors"
	"syscall"
)

// errAccum keeps the most informative errno seen while scanning a
// branch set. Rejections are accumulated, never short-circuited, and
// a more severe errno overwrites a less severe one:
//
//	ENOENT < EACCES < EROFS < ENOSPC
//
// ENOENT is the starting sentinel. If any writable branch existed
// but lacked space the caller should see ENOSPC, not an ENOENT that
// falsely suggests a missing file. Errnos outside the ladder rank
// just above ENOENT so they survive a scan of absent paths but never
// mask a mode or space rejection.
type errAccum struct {
	err syscall.Errno
}

func newErrAccum() errAccum {
	return errAccum{err: syscall.ENOENT}
}

func errRank(e syscall.Errno) int {
	switch e {
	case syscall.ENOENT:
		return 0
	case syscall.EACCES:
		return 2
	case syscall.EROFS:
		return 3
	case syscall.ENOSPC:
		return 4
	default:
		return 1
	}
}

func (a *errAccum) update(e syscall.Errno) {
	if errRank(e) > errRank(a.err) {
		a.err = e
	}
}

func (a *errAccum) errno() syscall.Errno {
	return a.err
}

// probeErrno maps a probe failure to the errno fed into the
// accumulator. Permission failures stay EACCES; everything else
// reads as the path being unavailable on that branch.
func probeErrno(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) && errno == syscall.EACCES {
		return syscall.EACCES
	}
	return syscall.ENOENT
}
