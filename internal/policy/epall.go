package policy

import (
	"syscall"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// epall: existing path, all. The multi-select member of the family:
// every branch passing the category predicates is returned in
// order. Action dispatch fans the operation out across all of them.
type epall struct{}

func (epall) Name() string { return "epall" }

func (epall) Create(pr Prober, branches *types.Branches, fusepath string, minfreespace uint64) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := createCandidates(pr, vec, fusepath, true, branchReserve(minfreespace))
		if len(cands) == 0 {
			return nil, errno
		}
		return pickAll(cands), 0
	})
}

func (epall) Action(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := actionCandidates(pr, vec, fusepath)
		if len(cands) == 0 {
			return nil, errno
		}
		return pickAll(cands), 0
	})
}

func (epall) Search(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		return searchBranches(pr, vec, fusepath), syscall.ENOENT
	})
}
