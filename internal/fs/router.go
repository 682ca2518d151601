// Package fs implements the poolfs FUSE filesystem: a union of
// branch directories where every kernel operation is routed through
// the policy engine to pick the branch(es) that service it.
package fs

import (
	"fmt"
	"sync"
	"syscall"

	"github.com/ajaxzhan/poolfs/internal/policy"
	"github.com/ajaxzhan/poolfs/pkg/types"
)

// opCategories maps each policy-routed FUSE operation to its
// category. Operations not listed here (read, write, flush, release)
// act on an already-open handle and never re-enter the engine.
var opCategories = map[string]types.Category{
	"access":   types.CategorySearch,
	"getattr":  types.CategorySearch,
	"open":     types.CategorySearch,
	"readlink": types.CategorySearch,

	"chmod":    types.CategoryAction,
	"chown":    types.CategoryAction,
	"link":     types.CategoryAction,
	"rename":   types.CategoryAction,
	"rmdir":    types.CategoryAction,
	"truncate": types.CategoryAction,
	"unlink":   types.CategoryAction,
	"utimens":  types.CategoryAction,

	"create":  types.CategoryCreate,
	"mkdir":   types.CategoryCreate,
	"mknod":   types.CategoryCreate,
	"symlink": types.CategoryCreate,
}

// Router resolves (operation, fusepath) to branch base paths. It
// holds the per-category policy defaults and per-operation
// overrides; both are swappable at runtime by configuration reload
// while FUSE workers keep dispatching.
type Router struct {
	branches *types.Branches
	prober   policy.Prober

	mu       sync.RWMutex
	defaults map[types.Category]string
	funcs    map[string]string
	minfree  uint64
}

// RouterConfig carries the policy selection for a Router.
type RouterConfig struct {
	// CreatePolicy, ActionPolicy and SearchPolicy are the category
	// defaults.
	CreatePolicy string
	ActionPolicy string
	SearchPolicy string
	// Funcs overrides the policy for individual operations, e.g.
	// {"utimens": "epall"}.
	Funcs map[string]string
	// MinFreeSpace is the global create reserve hint forwarded to
	// policies that take one.
	MinFreeSpace uint64
}

// NewRouter builds a Router over the given branch set and prober.
func NewRouter(branches *types.Branches, prober policy.Prober, cfg RouterConfig) (*Router, error) {
	r := &Router{branches: branches, prober: prober}
	if err := r.SetPolicies(cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// SetPolicies swaps the policy selection. Every name is validated
// before anything is replaced so a bad reload leaves the previous
// table intact.
func (r *Router) SetPolicies(cfg RouterConfig) error {
	defaults := map[types.Category]string{
		types.CategoryCreate: cfg.CreatePolicy,
		types.CategoryAction: cfg.ActionPolicy,
		types.CategorySearch: cfg.SearchPolicy,
	}
	for _, name := range defaults {
		if _, err := policy.Lookup(name); err != nil {
			return fmt.Errorf("policy %q: %w", name, err)
		}
	}
	funcs := make(map[string]string, len(cfg.Funcs))
	for op, name := range cfg.Funcs {
		if _, ok := opCategories[op]; !ok {
			return fmt.Errorf("funcs.%s: %w", op, types.ErrUnknownOp)
		}
		if _, err := policy.Lookup(name); err != nil {
			return fmt.Errorf("funcs.%s: policy %q: %w", op, name, err)
		}
		funcs[op] = name
	}

	r.mu.Lock()
	r.defaults = defaults
	r.funcs = funcs
	r.minfree = cfg.MinFreeSpace
	r.mu.Unlock()
	return nil
}

// PolicyFor reports the policy name that currently serves op.
func (r *Router) PolicyFor(op string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.funcs[op]; ok {
		return name
	}
	return r.defaults[opCategories[op]]
}

// Branches exposes the branch set for readdir merging and statfs
// aggregation, which iterate every branch rather than selecting.
func (r *Router) Branches() *types.Branches {
	return r.branches
}

// Route selects the branch base paths servicing op on fusepath. The
// errno is the engine's accumulated rejection reason and is only
// meaningful when the path list is empty.
func (r *Router) Route(op, fusepath string) ([]string, syscall.Errno) {
	cat, ok := opCategories[op]
	if !ok {
		return nil, syscall.ENOSYS
	}

	r.mu.RLock()
	name := r.defaults[cat]
	if override, ok := r.funcs[op]; ok {
		name = override
	}
	minfree := r.minfree
	r.mu.RUnlock()

	paths, err := policy.Dispatch(name, cat, r.prober, r.branches, fusepath, minfree)
	if err != nil {
		return nil, policy.Errno(err)
	}
	return paths, 0
}
