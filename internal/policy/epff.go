package policy

import (
	"syscall"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// epff: existing path, first found. The earliest branch passing the
// category predicates wins outright; no metric is probed.
type epff struct{}

func (epff) Name() string { return "epff" }

func (epff) Create(pr Prober, branches *types.Branches, fusepath string, minfreespace uint64) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := createCandidates(pr, vec, fusepath, true, branchReserve(minfreespace))
		if len(cands) == 0 {
			return nil, errno
		}
		return pickFirst(cands), 0
	})
}

func (epff) Action(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := actionCandidates(pr, vec, fusepath)
		if len(cands) == 0 {
			return nil, errno
		}
		return pickFirst(cands), 0
	})
}

func (epff) Search(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		paths := searchBranches(pr, vec, fusepath)
		if len(paths) == 0 {
			return nil, syscall.ENOENT
		}
		return paths[:1], 0
	})
}
