package policy

import (
	"math/rand"
	"syscall"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// scanLocked runs scan under the branch set's read lock and applies
// the non-empty-success convention: an empty selection fails with
// the errno the scan accumulated.
func scanLocked(branches *types.Branches, scan func(vec []types.Branch) ([]string, syscall.Errno)) ([]string, error) {
	var paths []string
	err := branches.ReadLocked(func(vec []types.Branch) error {
		var errno syscall.Errno
		paths, errno = scan(vec)
		if len(paths) == 0 {
			return errno
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// candidate pairs a branch that passed the category predicates with
// the probe result its ranking reads.
type candidate struct {
	path string
	info types.FsInfo
}

// branchReserve yields the effective create reserve for a branch:
// its own minfreespace, floored by the global hint.
func branchReserve(hint uint64) func(types.Branch) uint64 {
	return func(b types.Branch) uint64 {
		if b.MinFreeSpace > hint {
			return b.MinFreeSpace
		}
		return hint
	}
}

// hintReserve ignores the per-branch reserve and applies the global
// hint alone. epmfs keeps this behaviour.
func hintReserve(hint uint64) func(types.Branch) uint64 {
	return func(types.Branch) uint64 {
		return hint
	}
}

// createCandidates applies the CREATE predicates to vec in order:
// existence (for existing-path policies), branch mode, underlying
// writability and the free-space reserve, all against authoritative
// probe data. Rejections feed the accumulator; the returned errno is
// meaningful only when no candidate survived.
func createCandidates(pr Prober, vec []types.Branch, fusepath string, requireExist bool, reserve func(types.Branch) uint64) ([]candidate, syscall.Errno) {
	var cands []candidate
	acc := newErrAccum()
	for _, branch := range vec {
		if requireExist && !pr.Exists(branch.Path, fusepath) {
			acc.update(syscall.ENOENT)
			continue
		}
		if branch.Mode.RoOrNc() {
			acc.update(syscall.EROFS)
			continue
		}
		info, err := pr.Info(branch.Path)
		if err != nil {
			acc.update(probeErrno(err))
			continue
		}
		if info.ReadOnly {
			acc.update(syscall.EROFS)
			continue
		}
		if info.SpaceAvail < reserve(branch) {
			acc.update(syscall.ENOSPC)
			continue
		}
		cands = append(cands, candidate{path: branch.Path, info: info})
	}
	return cands, acc.errno()
}

// actionCandidates applies the ACTION predicates: existence, branch
// mode short of NC, and underlying writability. No reserve applies;
// modifying an existing object must succeed on a full branch.
func actionCandidates(pr Prober, vec []types.Branch, fusepath string) ([]candidate, syscall.Errno) {
	var cands []candidate
	acc := newErrAccum()
	for _, branch := range vec {
		if !pr.Exists(branch.Path, fusepath) {
			acc.update(syscall.ENOENT)
			continue
		}
		if branch.Mode.Ro() {
			acc.update(syscall.EROFS)
			continue
		}
		info, err := pr.Info(branch.Path)
		if err != nil {
			acc.update(probeErrno(err))
			continue
		}
		if info.ReadOnly {
			acc.update(syscall.EROFS)
			continue
		}
		cands = append(cands, candidate{path: branch.Path, info: info})
	}
	return cands, acc.errno()
}

// pickFirst returns the earliest candidate.
func pickFirst(cands []candidate) []string {
	return []string{cands[0].path}
}

// pickAll returns every candidate in branch order.
func pickAll(cands []candidate) []string {
	paths := make([]string, len(cands))
	for i, c := range cands {
		paths[i] = c.path
	}
	return paths
}

// pickMinBy returns the candidate minimising metric. Comparison is
// strict, so on a tie the earlier branch keeps the win.
func pickMinBy(cands []candidate, metric func(candidate) uint64) []string {
	winner := -1
	var best uint64
	for i, c := range cands {
		m := metric(c)
		if winner < 0 || m < best {
			winner = i
			best = m
		}
	}
	return []string{cands[winner].path}
}

// pickMaxBy returns the candidate maximising metric, earlier branch
// winning ties.
func pickMaxBy(cands []candidate, metric func(candidate) uint64) []string {
	winner := -1
	var best uint64
	for i, c := range cands {
		m := metric(c)
		if winner < 0 || m > best {
			winner = i
			best = m
		}
	}
	return []string{cands[winner].path}
}

// pickRand returns one candidate uniformly at random.
func pickRand(cands []candidate) []string {
	return []string{cands[rand.Intn(len(cands))].path}
}

func spaceAvail(c candidate) uint64 { return c.info.SpaceAvail }
func spaceUsed(c candidate) uint64  { return c.info.SpaceUsed }

// searchBranches applies the SEARCH predicate, which is existence
// alone: mode, writability and reserves never hide a branch from a
// reader.
func searchBranches(pr Prober, vec []types.Branch, fusepath string) []string {
	var paths []string
	for _, branch := range vec {
		if pr.Exists(branch.Path, fusepath) {
			paths = append(paths, branch.Path)
		}
	}
	return paths
}

// searchMinBy ranks existing branches by a cached space metric,
// minimising. Branches whose cached probe fails are skipped
// silently; the scan never escalates a read path into a statfs
// storm.
func searchMinBy(pr Prober, vec []types.Branch, fusepath string, metric func(Prober, string) (uint64, error)) []string {
	winner := ""
	var best uint64
	for _, branch := range vec {
		if !pr.Exists(branch.Path, fusepath) {
			continue
		}
		m, err := metric(pr, branch.Path)
		if err != nil {
			continue
		}
		if winner == "" || m < best {
			winner = branch.Path
			best = m
		}
	}
	if winner == "" {
		return nil
	}
	return []string{winner}
}

// searchMaxBy ranks existing branches by a cached space metric,
// maximising.
func searchMaxBy(pr Prober, vec []types.Branch, fusepath string, metric func(Prober, string) (uint64, error)) []string {
	winner := ""
	var best uint64
	for _, branch := range vec {
		if !pr.Exists(branch.Path, fusepath) {
			continue
		}
		m, err := metric(pr, branch.Path)
		if err != nil {
			continue
		}
		if winner == "" || m > best {
			winner = branch.Path
			best = m
		}
	}
	if winner == "" {
		return nil
	}
	return []string{winner}
}

func cachedAvail(pr Prober, basepath string) (uint64, error) { return pr.SpaceAvailCached(basepath) }
func cachedUsed(pr Prober, basepath string) (uint64, error)  { return pr.SpaceUsedCached(basepath) }
