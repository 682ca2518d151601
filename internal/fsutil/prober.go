package fsutil

import (
	"os"
	"time"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// Prober bundles the probe functions behind the interface the policy
// engine consumes. The cached space figures come from the attached
// StatfsCache; everything else hits the filesystem directly.
type Prober struct {
	Cache *StatfsCache
}

// NewProber creates a Prober backed by cache.
func NewProber(cache *StatfsCache) *Prober {
	return &Prober{Cache: cache}
}

func (p *Prober) Exists(basepath, fusepath string) bool {
	return Exists(basepath, fusepath)
}

func (p *Prober) Info(basepath string) (types.FsInfo, error) {
	return Info(basepath)
}

func (p *Prober) SpaceAvailCached(basepath string) (uint64, error) {
	return p.Cache.SpaceAvail(basepath)
}

func (p *Prober) SpaceUsedCached(basepath string) (uint64, error) {
	return p.Cache.SpaceUsed(basepath)
}

func (p *Prober) Mtime(basepath, fusepath string) (time.Time, error) {
	st, err := os.Lstat(FullPath(basepath, fusepath))
	if err != nil {
		return time.Time{}, err
	}
	return st.ModTime(), nil
}
