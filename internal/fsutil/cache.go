package fsutil

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// StatfsCache serves space figures from a short-lived cache, keyed
// by branch base path. SEARCH selection runs on every read-side VFS
// call and tolerates stale space data (the target already exists),
// so it reads through here instead of issuing a statfs per branch
// per call. CREATE and ACTION must keep using Info.
type StatfsCache struct {
	cache *ttlcache.Cache[string, types.FsInfo]
}

// NewStatfsCache creates a cache whose entries expire after ttl.
// A ttl of zero disables expiry, which is only useful in tests.
func NewStatfsCache(ttl time.Duration) *StatfsCache {
	c := ttlcache.New[string, types.FsInfo](
		ttlcache.WithTTL[string, types.FsInfo](ttl),
		ttlcache.WithDisableTouchOnHit[string, types.FsInfo](),
	)
	go c.Start()
	return &StatfsCache{cache: c}
}

// Stop halts the cache's expiry loop.
func (s *StatfsCache) Stop() {
	s.cache.Stop()
}

// SpaceAvail returns the cached available-space figure for basepath,
// probing on a miss.
func (s *StatfsCache) SpaceAvail(basepath string) (uint64, error) {
	info, err := s.get(basepath)
	if err != nil {
		return 0, err
	}
	return info.SpaceAvail, nil
}

// SpaceUsed returns the cached used-space figure for basepath,
// probing on a miss.
func (s *StatfsCache) SpaceUsed(basepath string) (uint64, error) {
	info, err := s.get(basepath)
	if err != nil {
		return 0, err
	}
	return info.SpaceUsed, nil
}

func (s *StatfsCache) get(basepath string) (types.FsInfo, error) {
	if item := s.cache.Get(basepath); item != nil {
		return item.Value(), nil
	}
	info, err := Info(basepath)
	if err != nil {
		return types.FsInfo{}, err
	}
	s.cache.Set(basepath, info, ttlcache.DefaultTTL)
	return info, nil
}

// Invalidate drops the cached entry for basepath so the next read
// probes afresh. Configuration reload does not call it; entries for
// removed branches stay until they expire.
func (s *StatfsCache) Invalidate(basepath string) {
	s.cache.Delete(basepath)
}
