package policy

import (
	"syscall"
	"time"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// newest selects the branch carrying the most recently modified copy
// of the path. Existing-path in every category: a file that was
// edited on one branch keeps attracting operations there, which
// keeps divergent copies from interleaving.
type newest struct{}

func (newest) Name() string { return "newest" }

func (newest) Create(pr Prober, branches *types.Branches, fusepath string, minfreespace uint64) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := createCandidates(pr, vec, fusepath, true, branchReserve(minfreespace))
		if len(cands) == 0 {
			return nil, errno
		}
		paths := pickNewest(pr, cands, fusepath)
		if len(paths) == 0 {
			return nil, errno
		}
		return paths, 0
	})
}

func (newest) Action(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		cands, errno := actionCandidates(pr, vec, fusepath)
		if len(cands) == 0 {
			return nil, errno
		}
		paths := pickNewest(pr, cands, fusepath)
		if len(paths) == 0 {
			return nil, errno
		}
		return paths, 0
	})
}

func (newest) Search(pr Prober, branches *types.Branches, fusepath string) ([]string, error) {
	return scanLocked(branches, func(vec []types.Branch) ([]string, syscall.Errno) {
		winner := ""
		var best time.Time
		for _, branch := range vec {
			if !pr.Exists(branch.Path, fusepath) {
				continue
			}
			mtime, err := pr.Mtime(branch.Path, fusepath)
			if err != nil {
				continue
			}
			if winner == "" || mtime.After(best) {
				winner = branch.Path
				best = mtime
			}
		}
		if winner == "" {
			return nil, syscall.ENOENT
		}
		return []string{winner}, 0
	})
}

// pickNewest ranks candidates by the path's mtime, strictly, so the
// earlier branch keeps a tie. Candidates whose mtime probe fails
// are skipped.
func pickNewest(pr Prober, cands []candidate, fusepath string) []string {
	winner := ""
	var best time.Time
	for _, c := range cands {
		mtime, err := pr.Mtime(c.path, fusepath)
		if err != nil {
			continue
		}
		if winner == "" || mtime.After(best) {
			winner = c.path
			best = mtime
		}
	}
	if winner == "" {
		return nil
	}
	return []string{winner}
}
