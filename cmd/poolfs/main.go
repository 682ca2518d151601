// Package main provides the entry point for the poolfs daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ajaxzhan/poolfs/internal/config"
	"github.com/ajaxzhan/poolfs/internal/fs"
	"github.com/ajaxzhan/poolfs/internal/fsutil"
	"github.com/ajaxzhan/poolfs/internal/logging"
	"github.com/ajaxzhan/poolfs/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration")
	mountPoint := flag.String("mountpoint", "", "mount point (overrides config)")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "poolfs: -config is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "poolfs: %v\n", err)
		os.Exit(1)
	}
	if *mountPoint != "" {
		cfg.MountPoint = *mountPoint
	}

	if err := logging.Init(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "poolfs: failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	vec, err := cfg.BranchSet()
	if err != nil {
		logging.Fatal("invalid branch configuration", logging.Err(err))
	}
	branches := types.NewBranches(vec)

	ttl, err := cfg.GetStatfsTimeout()
	if err != nil {
		logging.Fatal("invalid cache configuration", logging.Err(err))
	}
	cache := fsutil.NewStatfsCache(ttl)
	defer cache.Stop()

	minfree, err := cfg.GetMinFreeSpace()
	if err != nil {
		logging.Fatal("invalid minfreespace", logging.Err(err))
	}

	router, err := fs.NewRouter(branches, fsutil.NewProber(cache), fs.RouterConfig{
		CreatePolicy: cfg.Policies.Create,
		ActionPolicy: cfg.Policies.Action,
		SearchPolicy: cfg.Policies.Search,
		Funcs:        cfg.Funcs,
		MinFreeSpace: minfree,
	})
	if err != nil {
		logging.Fatal("invalid policy configuration", logging.Err(err))
	}

	pfs, err := fs.NewPoolFS(&fs.PoolFSConfig{
		MountPoint: cfg.MountPoint,
		FsName:     cfg.FsName,
		Router:     router,
	})
	if err != nil {
		logging.Fatal("failed to create filesystem", logging.Err(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGHUP {
				reload(*configPath, branches, router)
				continue
			}
			logging.Info("shutting down", logging.String("signal", sig.String()))
			cancel()
			return
		}
	}()

	logging.Info("mounting pool",
		logging.String("mountpoint", cfg.MountPoint),
		logging.Int("branches", branches.Len()),
		logging.String("create", cfg.Policies.Create),
		logging.String("action", cfg.Policies.Action),
		logging.String("search", cfg.Policies.Search),
	)

	if err := pfs.Mount(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal("mount failed", logging.Err(err))
	}
	logging.Info("unmounted", logging.String("mountpoint", cfg.MountPoint))
}

// reload re-reads the configuration and swaps the branch set and
// policy tables in place. Mount point and cache TTL changes need a
// restart and are ignored here.
func reload(configPath string, branches *types.Branches, router *fs.Router) {
	cfg, err := config.Load(configPath)
	if err != nil {
		logging.Error("reload failed", logging.Err(err))
		return
	}

	vec, err := cfg.BranchSet()
	if err != nil {
		logging.Error("reload failed", logging.Err(err))
		return
	}

	minfree, err := cfg.GetMinFreeSpace()
	if err != nil {
		logging.Error("reload failed", logging.Err(err))
		return
	}

	if err := router.SetPolicies(fs.RouterConfig{
		CreatePolicy: cfg.Policies.Create,
		ActionPolicy: cfg.Policies.Action,
		SearchPolicy: cfg.Policies.Search,
		Funcs:        cfg.Funcs,
		MinFreeSpace: minfree,
	}); err != nil {
		logging.Error("reload failed", logging.Err(err))
		return
	}
	branches.Replace(vec)

	logging.Info("configuration reloaded",
		logging.Int("branches", len(vec)),
		logging.String("create", cfg.Policies.Create),
		logging.String("action", cfg.Policies.Action),
		logging.String("search", cfg.Policies.Search),
	)
}
