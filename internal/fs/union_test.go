package fs

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

// checkFUSEAvailable checks if FUSE is available on the system.
func checkFUSEAvailable(t *testing.T) {
	t.Helper()

	if runtime.GOOS != "linux" {
		t.Skipf("skipping test: FUSE tests not supported on %s", runtime.GOOS)
	}
	if _, err := os.Stat("/dev/fuse"); os.IsNotExist(err) {
		t.Skip("skipping test: FUSE is not available (/dev/fuse not found)")
	}
}

func TestNewPoolFS_Validation(t *testing.T) {
	r := testRouter(t, []types.Branch{{Path: t.TempDir(), Mode: types.ModeRW}}, RouterConfig{})

	if _, err := NewPoolFS(&PoolFSConfig{Router: r}); err != ErrInvalidMountPoint {
		t.Errorf("missing mount point: err = %v, want ErrInvalidMountPoint", err)
	}
	if _, err := NewPoolFS(&PoolFSConfig{MountPoint: "/tmp/mnt"}); err != ErrNilRouter {
		t.Errorf("missing router: err = %v, want ErrNilRouter", err)
	}

	pfs, err := NewPoolFS(&PoolFSConfig{MountPoint: "/tmp/mnt", Router: r})
	if err != nil {
		t.Fatalf("NewPoolFS failed: %v", err)
	}
	if pfs.IsMounted() {
		t.Error("fresh PoolFS reports mounted")
	}
	if pfs.config.FsName != "poolfs" {
		t.Errorf("default FsName = %q, want poolfs", pfs.config.FsName)
	}
}

// mountPool mounts a pool over the given branches and returns the
// mount point. The mount is torn down when the test ends.
func mountPool(t *testing.T, vec []types.Branch, cfg RouterConfig) string {
	t.Helper()
	checkFUSEAvailable(t)

	r := testRouter(t, vec, cfg)
	mnt := t.TempDir()
	pfs, err := NewPoolFS(&PoolFSConfig{MountPoint: mnt, Router: r})
	if err != nil {
		t.Fatalf("NewPoolFS failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- pfs.Mount(ctx)
	}()

	deadline := time.After(5 * time.Second)
	for !pfs.IsMounted() {
		select {
		case err := <-done:
			t.Skipf("skipping test: FUSE mount failed: %v", err)
		case <-deadline:
			t.Skip("skipping test: FUSE mount timed out")
		case <-time.After(10 * time.Millisecond):
		}
	}

	t.Cleanup(func() {
		cancel()
		<-done
	})
	return mnt
}

func TestMount_ReaddirMergesBranches(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	writeBranchFile(t, a, "only-a")
	writeBranchFile(t, b, "only-b")
	writeBranchFile(t, a, "both")
	writeBranchFile(t, b, "both")

	mnt := mountPool(t, []types.Branch{
		{Path: a, Mode: types.ModeRW},
		{Path: b, Mode: types.ModeRW},
	}, RouterConfig{})

	entries, err := os.ReadDir(mnt)
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	want := []string{"both", "only-a", "only-b"}
	if len(names) != len(want) {
		t.Fatalf("readdir = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("readdir = %v, want %v", names, want)
		}
	}
}

func TestMount_CreateLandsOnWritableBranch(t *testing.T) {
	ro := t.TempDir()
	rw := t.TempDir()

	mnt := mountPool(t, []types.Branch{
		{Path: ro, Mode: types.ModeRO},
		{Path: rw, Mode: types.ModeRW},
	}, RouterConfig{CreatePolicy: "ff"})

	if err := os.WriteFile(filepath.Join(mnt, "new.txt"), []byte("hello"), 0644); err != nil {
		t.Fatalf("create through mount failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(rw, "new.txt")); err != nil {
		t.Errorf("file not on writable branch: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ro, "new.txt")); err == nil {
		t.Error("file landed on read-only branch")
	}
}

func TestMount_ReadPrefersExistingCopy(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	writeBranchFile(t, b, "x")

	mnt := mountPool(t, []types.Branch{
		{Path: a, Mode: types.ModeRW},
		{Path: b, Mode: types.ModeRW},
	}, RouterConfig{})

	data, err := os.ReadFile(filepath.Join(mnt, "x"))
	if err != nil {
		t.Fatalf("read through mount failed: %v", err)
	}
	if string(data) != "data" {
		t.Errorf("read %q, want %q", data, "data")
	}
}

func TestMount_UnlinkRemovesEveryCopy(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	writeBranchFile(t, a, "x")
	writeBranchFile(t, b, "x")

	mnt := mountPool(t, []types.Branch{
		{Path: a, Mode: types.ModeRW},
		{Path: b, Mode: types.ModeRW},
	}, RouterConfig{ActionPolicy: "epall"})

	if err := os.Remove(filepath.Join(mnt, "x")); err != nil {
		t.Fatalf("unlink through mount failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(a, "x")); err == nil {
		t.Error("copy on first branch survived unlink")
	}
	if _, err := os.Stat(filepath.Join(b, "x")); err == nil {
		t.Error("copy on second branch survived unlink")
	}
}

func TestMount_MkdirInsideExistingTree(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	if err := os.MkdirAll(filepath.Join(b, "docs"), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	mnt := mountPool(t, []types.Branch{
		{Path: a, Mode: types.ModeRW},
		{Path: b, Mode: types.ModeRW},
	}, RouterConfig{CreatePolicy: "epff"})

	if err := os.Mkdir(filepath.Join(mnt, "docs", "sub"), 0755); err != nil {
		t.Fatalf("mkdir through mount failed: %v", err)
	}

	// epff requires the parent path to exist: only branch b carries
	// /docs, so the new directory must land there.
	if _, err := os.Stat(filepath.Join(b, "docs", "sub")); err != nil {
		t.Errorf("directory not on existing-path branch: %v", err)
	}
	if _, err := os.Stat(filepath.Join(a, "docs", "sub")); err == nil {
		t.Error("directory landed on branch without the parent path")
	}
}

func TestMount_RenameStaysWithinBranch(t *testing.T) {
	a := t.TempDir()
	writeBranchFile(t, a, "old")

	mnt := mountPool(t, []types.Branch{
		{Path: a, Mode: types.ModeRW},
	}, RouterConfig{})

	if err := os.Rename(filepath.Join(mnt, "old"), filepath.Join(mnt, "new")); err != nil {
		t.Fatalf("rename through mount failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(a, "new")); err != nil {
		t.Errorf("renamed file missing on branch: %v", err)
	}
	if _, err := os.Stat(filepath.Join(a, "old")); err == nil {
		t.Error("old name survived rename")
	}
}
