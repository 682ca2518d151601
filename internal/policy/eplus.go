package policy

import (
	"syscall"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// eplus: existing path, least used space. Objects gravitate toward
// the emptiest branch that already carries their directory tree.
type eplus struct{}

func (eplus) Name() string { return "eplus" }

func (eplus) Create(pr Prober, branches *types.Branches, fusepath string, minfreespace uint64) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := createCandidates(pr, vec, fusepath, true, branchReserve(minfreespace))
		if len(cands) == 0 {
			return nil, errno
		}
		return pickMinBy(cands, spaceUsed), 0
	})
}

func (eplus) Action(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := actionCandidates(pr, vec, fusepath)
		if len(cands) == 0 {
			return nil, errno
		}
		return pickMinBy(cands, spaceUsed), 0
	})
}

func (eplus) Search(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		return searchMinBy(pr, vec, fusepath, cachedUsed), syscall.ENOENT
	})
}
