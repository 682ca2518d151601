// Package policy implements the branch-selection engine. A policy
// is a named triplet of behaviours, one per operation category:
// create picks the branch that will host a new object, action picks
// the branches where an existing object is modified, search picks
// the branch an existing object is read from.
//
// Policies are pure functions of the branch set, the fusepath and
// the probe results at call time. They scan the set in user order
// under its read lock and use strict metric comparison, so the
// earlier branch wins every tie. That ordering is a documented
// contract, not an accident of implementation.
package policy

import (
	"sort"
	"syscall"
	"time"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// Prober is the probe surface the engine depends on. Create and
// action selection read the authoritative Info; search selection
// reads the cached variants because stale space data is tolerable
// when the target already exists.
type Prober interface {
	// Exists reports whether fusepath exists on the branch rooted at
	// basepath. Probe failure reads as absence.
	Exists(basepath, fusepath string) bool

	// Info returns authoritative space and writability data for the
	// filesystem backing basepath.
	Info(basepath string) (types.FsInfo, error)

	// SpaceAvailCached returns the possibly stale available-space
	// figure for basepath.
	SpaceAvailCached(basepath string) (uint64, error)

	// SpaceUsedCached returns the possibly stale used-space figure
	// for basepath.
	SpaceUsedCached(basepath string) (uint64, error)

	// Mtime returns the modification time of fusepath on the branch
	// rooted at basepath. Only the newest policy ranks on this.
	Mtime(basepath, fusepath string) (time.Time, error)
}

// Policy selects branch base paths for one operation. On success the
// returned list is non-empty and contains base paths only, never
// joined with the fusepath. On failure the error is the most
// informative errno observed during the scan (see errAccum).
type Policy interface {
	Name() string
	Create(pr Prober, branches *types.Branches, fusepath string, minfreespace uint64) ([]string, error)
	Action(pr Prober, branches *types.Branches, fusepath string) ([]string, error)
	Search(pr Prober, branches *types.Branches, fusepath string) ([]string, error)
}

var registry = map[string]Policy{
	"all":    all{},
	"epall":  epall{},
	"epff":   epff{},
	"eplfs":  eplfs{},
	"eplus":  eplus{},
	"epmfs":  epmfs{},
	"eprand": eprand{},
	"ff":     ff{},
	"lfs":    lfs{},
	"lus":    lus{},
	"mfs":    mfs{},
	"newest": newest{},
	"rand":   random{},
}

// Lookup resolves a policy by name.
func Lookup(name string) (Policy, error) {
	p, ok := registry[name]
	if !ok {
		return nil, types.ErrUnknownPolicy
	}
	return p, nil
}

// Names returns all registered policy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch resolves name and invokes the entry point for cat. There
// is no fallback across policies; a selection failure surfaces
// as-is to the caller.
func Dispatch(name string, cat types.Category, pr Prober, branches *types.Branches, fusepath string, minfreespace uint64) ([]string, error) {
	p, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	switch cat {
	case types.CategoryCreate:
		return p.Create(pr, branches, fusepath, minfreespace)
	case types.CategoryAction:
		return p.Action(pr, branches, fusepath)
	default:
		return p.Search(pr, branches, fusepath)
	}
}

// Errno extracts the syscall errno from a policy error, defaulting
// to EIO for anything that is not an Errno (which would indicate a
// bug in the engine rather than a rejected scan).
func Errno(err error) syscall.Errno {
	if errno, ok := err.(syscall.Errno); ok {
		return errno
	}
	return syscall.EIO
}
