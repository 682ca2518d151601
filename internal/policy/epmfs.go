package policy

import (
	"syscall"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// epmfs: existing path, most free space. Unlike the rest of the
// family its create reserve is the global hint rather than the
// per-branch minfreespace.
type epmfs struct{}

func (epmfs) Name() string { return "epmfs" }

func (epmfs) Create(pr Prober, branches *types.Branches, fusepath string, minfreespace uint64) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := createCandidates(pr, vec, fusepath, true, hintReserve(minfreespace))
		if len(cands) == 0 {
			return nil, errno
		}
		return pickMaxBy(cands, spaceAvail), 0
	})
}

func (epmfs) Action(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := actionCandidates(pr, vec, fusepath)
		if len(cands) == 0 {
			return nil, errno
		}
		return pickMaxBy(cands, spaceAvail), 0
	})
}

func (epmfs) Search(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		return searchMaxBy(pr, vec, fusepath, cachedAvail), syscall.ENOENT
	})
}
