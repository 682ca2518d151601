package policy

import (
	"syscall"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// ff: first found. Creation takes the earliest writable branch with
// space regardless of what already exists there; action and search
// fall back to the existing-path variant, since both need the
// target present.
type ff struct{}

func (ff) Name() string { return "ff" }

func (ff) Create(pr Prober, branches *types.Branches, fusepath string, minfreespace uint64) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := createCandidates(pr, vec, fusepath, false, branchReserve(minfreespace))
		if len(cands) == 0 {
			return nil, errno
		}
		return pickFirst(cands), 0
	})
}

func (ff) Action(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return epff{}.Action(pr, branches, fusepath)
}

func (ff) Search(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return epff{}.Search(pr, branches, fusepath)
}
