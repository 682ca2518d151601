// Package types defines the core domain types for the poolfs union filesystem.
package types

import (
	"sync"
)

// BranchMode controls how a branch participates in the union.
type BranchMode string

const (
	// ModeRW branches accept every operation category.
	ModeRW BranchMode = "RW"
	// ModeRO branches are excluded from creation and modification.
	ModeRO BranchMode = "RO"
	// ModeNC branches accept modification of existing objects but
	// never host new ones.
	ModeNC BranchMode = "NC"
)

// ParseBranchMode converts a configuration string to a BranchMode.
// The strings "RW", "RO" and "NC" round-trip unchanged.
func ParseBranchMode(s string) (BranchMode, error) {
	switch BranchMode(s) {
	case ModeRW, ModeRO, ModeNC:
		return BranchMode(s), nil
	}
	return "", &UnknownModeError{Mode: s}
}

// Ro reports whether the branch is read-only.
func (m BranchMode) Ro() bool {
	return m == ModeRO
}

// RoOrNc reports whether the branch is excluded from hosting new objects.
func (m BranchMode) RoOrNc() bool {
	return m == ModeRO || m == ModeNC
}

// Branch describes one underlying directory tree of the union.
// A Branch is immutable once constructed; reconfiguration replaces
// the whole set rather than mutating members in place.
type Branch struct {
	// Path is the absolute base path of the branch.
	Path string
	// Mode controls which operation categories may select the branch.
	Mode BranchMode
	// MinFreeSpace is a soft reserve in bytes. Creation refuses the
	// branch while its available space is below the reserve.
	MinFreeSpace uint64
}

// Branches is an ordered branch set guarded by a reader-writer lock.
// The user-supplied order is the canonical tie-break order for every
// policy; the set is never sorted.
type Branches struct {
	mu  sync.RWMutex
	vec []Branch
}

// NewBranches constructs a branch set from vec. The slice is copied
// so callers cannot mutate the set behind the lock.
func NewBranches(vec []Branch) *Branches {
	b := &Branches{}
	b.Replace(vec)
	return b
}

// ReadLocked runs f over the branch vector under the read lock. The
// vector is stable (length and contents) for the duration of f; f
// must not retain it after returning.
func (b *Branches) ReadLocked(f func(vec []Branch) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return f(b.vec)
}

// Replace swaps in a new branch vector under the write lock.
// In-flight policy scans finish against the old vector.
func (b *Branches) Replace(vec []Branch) {
	cp := make([]Branch, len(vec))
	copy(cp, vec)
	b.mu.Lock()
	b.vec = cp
	b.mu.Unlock()
}

// Len returns the current number of branches.
func (b *Branches) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.vec)
}

// Category is the abstract class of a filesystem operation; it keys
// which behaviour of a policy applies.
type Category int

const (
	// CategoryCreate selects the branch that will host a new object.
	CategoryCreate Category = iota
	// CategoryAction selects branches where an existing object will
	// be modified.
	CategoryAction
	// CategorySearch selects branches where an existing object will
	// be read.
	CategorySearch
)

// String implements fmt.Stringer.
func (c Category) String() string {
	switch c {
	case CategoryCreate:
		return "create"
	case CategoryAction:
		return "action"
	case CategorySearch:
		return "search"
	}
	return "unknown"
}

// FsInfo is the result of an authoritative filesystem probe against
// a branch base path.
type FsInfo struct {
	// SpaceAvail is the number of bytes available to an unprivileged
	// writer.
	SpaceAvail uint64
	// SpaceUsed is the number of bytes currently consumed.
	SpaceUsed uint64
	// ReadOnly reports whether the underlying filesystem is mounted
	// read-only, independent of the branch mode.
	ReadOnly bool
}
