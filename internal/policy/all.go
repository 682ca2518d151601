package policy

import (
	"syscall"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// all: creation lands on every writable branch with space, existing
// or not; action and search behave like epall. Useful for mirrored
// directory trees.
type all struct{}

func (all) Name() string { return "all" }

func (all) Create(pr Prober, branches *types.Branches, fusepath string, minfreespace uint64) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := createCandidates(pr, vec, fusepath, false, branchReserve(minfreespace))
		if len(cands) == 0 {
			return nil, errno
		}
		return pickAll(cands), 0
	})
}

func (all) Action(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return epall{}.Action(pr, branches, fusepath)
}

func (all) Search(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return epall{}.Search(pr, branches, fusepath)
}
