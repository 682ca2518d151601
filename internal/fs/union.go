package fs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Errors for PoolFS
var (
	ErrInvalidMountPoint = errors.New("invalid mount point")
	ErrNilRouter         = errors.New("router is required")
)

// PoolFSConfig holds the configuration for creating a PoolFS.
type PoolFSConfig struct {
	MountPoint string  // Where to mount the FUSE filesystem
	FsName     string  // Filesystem name reported to the kernel
	Router     *Router // Policy routing over the branch set
}

// PoolFS is a FUSE filesystem presenting a union of branch
// directories. Branch selection for every operation goes through the
// Router; the nodes below only apply syscalls to the base paths it
// hands back.
type PoolFS struct {
	config  *PoolFSConfig
	router  *Router
	server  *fuse.Server
	mounted atomic.Bool
	mu      sync.RWMutex
}

// NewPoolFS creates a new PoolFS instance.
func NewPoolFS(config *PoolFSConfig) (*PoolFS, error) {
	if config.MountPoint == "" {
		return nil, ErrInvalidMountPoint
	}
	if config.Router == nil {
		return nil, ErrNilRouter
	}
	if config.FsName == "" {
		config.FsName = "poolfs"
	}

	return &PoolFS{
		config: config,
		router: config.Router,
	}, nil
}

// Router returns the policy router, for runtime reconfiguration.
func (pfs *PoolFS) Router() *Router {
	return pfs.router
}

// Mount mounts the FUSE filesystem. It blocks until the context is
// cancelled.
func (pfs *PoolFS) Mount(ctx context.Context) error {
	root := &unionDir{
		pfs:     pfs,
		relPath: "/",
	}

	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			AllowOther: true,
			FsName:     pfs.config.FsName,
			Name:       "poolfs",
			Debug:      false,
		},
		NullPermissions: true,
	}

	server, err := fs.Mount(pfs.config.MountPoint, root, opts)
	if err != nil {
		return err
	}

	pfs.mu.Lock()
	pfs.server = server
	pfs.mounted.Store(true)
	pfs.mu.Unlock()

	// Wait for context cancellation
	<-ctx.Done()

	if err := server.Unmount(); err != nil {
		return err
	}
	pfs.mounted.Store(false)

	return ctx.Err()
}

// IsMounted returns true if the filesystem is currently mounted.
func (pfs *PoolFS) IsMounted() bool {
	return pfs.mounted.Load()
}
