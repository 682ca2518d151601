package policy

import (
	"syscall"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// mfs: most free space, without the existing-path requirement on
// create. The default drive-filling policy for most pools.
type mfs struct{}

func (mfs) Name() string { return "mfs" }

func (mfs) Create(pr Prober, branches *types.Branches, fusepath string, minfreespace uint64) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := createCandidates(pr, vec, fusepath, false, branchReserve(minfreespace))
		if len(cands) == 0 {
			return nil, errno
		}
		return pickMaxBy(cands, spaceAvail), 0
	})
}

func (mfs) Action(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return epmfs{}.Action(pr, branches, fusepath)
}

func (mfs) Search(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return epmfs{}.Search(pr, branches, fusepath)
}
