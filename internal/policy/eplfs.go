package policy

import (
	"syscall"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// eplfs: existing path, least free space. Packs branches tight
// before spilling onto the next one.
type eplfs struct{}

func (eplfs) Name() string { return "eplfs" }

func (eplfs) Create(pr Prober, branches *types.Branches, fusepath string, minfreespace uint64) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := createCandidates(pr, vec, fusepath, true, branchReserve(minfreespace))
		if len(cands) == 0 {
			return nil, errno
		}
		return pickMinBy(cands, spaceAvail), 0
	})
}

func (eplfs) Action(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := actionCandidates(pr, vec, fusepath)
		if len(cands) == 0 {
			return nil, errno
		}
		return pickMinBy(cands, spaceAvail), 0
	})
}

func (eplfs) Search(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		return searchMinBy(pr, vec, fusepath, cachedAvail), syscall.ENOENT
	})
}
