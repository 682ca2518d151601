package policy

import (
	"syscall"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// random backs the "rand" policy: qualify like all, then pick one
// branch uniformly. Spreads creations without tracking state.
type random struct{}

func (random) Name() string { return "rand" }

func (random) Create(pr Prober, branches *types.Branches, fusepath string, minfreespace uint64) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := createCandidates(pr, vec, fusepath, false, branchReserve(minfreespace))
		if len(cands) == 0 {
			return nil, errno
		}
		return pickRand(cands), 0
	})
}

func (random) Action(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return eprand{}.Action(pr, branches, fusepath)
}

func (random) Search(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return eprand{}.Search(pr, branches, fusepath)
}
