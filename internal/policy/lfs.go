package policy

import (
	"syscall"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// lfs: least free space, without the existing-path requirement on
// create.
type lfs struct{}

func (lfs) Name() string { return "lfs" }

func (lfs) Create(pr Prober, branches *types.Branches, fusepath string, minfreespace uint64) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := createCandidates(pr, vec, fusepath, false, branchReserve(minfreespace))
		if len(cands) == 0 {
			return nil, errno
		}
		return pickMinBy(cands, spaceAvail), 0
	})
}

func (lfs) Action(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return eplfs{}.Action(pr, branches, fusepath)
}

func (lfs) Search(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return eplfs{}.Search(pr, branches, fusepath)
}
