package policy

import (
	"math/rand"
	"syscall"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// eprand: existing path, random. Qualifies like epall, then picks
// one survivor uniformly.
type eprand struct{}

func (eprand) Name() string { return "eprand" }

func (eprand) Create(pr Prober, branches *types.Branches, fusepath string, minfreespace uint64) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := createCandidates(pr, vec, fusepath, true, branchReserve(minfreespace))
		if len(cands) == 0 {
			return nil, errno
		}
		return pickRand(cands), 0
	})
}

func (eprand) Action(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := actionCandidates(pr, vec, fusepath)
		if len(cands) == 0 {
			return nil, errno
		}
		return pickRand(cands), 0
	})
}

func (eprand) Search(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		paths := searchBranches(pr, vec, fusepath)
		if len(paths) == 0 {
			return nil, syscall.ENOENT
		}
		return []string{paths[rand.Intn(len(paths))]}, 0
	})
}
