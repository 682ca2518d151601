package policy

import (
	"syscall"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// lus: least used space, without the existing-path requirement on
// create.
type lus struct{}

func (lus) Name() string { return "lus" }

func (lus) Create(pr Prober, branches *types.Branches, fusepath string, minfreespace uint64) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := createCandidates(pr, vec, fusepath, false, branchReserve(minfreespace))
		if len(cands) == 0 {
			return nil, errno
		}
		return pickMinBy(cands, spaceUsed), 0
	})
}

func (lus) Action(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return eplus{}.Action(pr, branches, fusepath)
}

func (lus) Search(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return eplus{}.Search(pr, branches, fusepath)
}
