package fsutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestExists(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "dir"), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(base, "dir", "file"), []byte("x"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := os.Symlink("missing-target", filepath.Join(base, "link")); err != nil {
		t.Fatalf("symlink failed: %v", err)
	}

	tests := []struct {
		fusepath string
		want     bool
	}{
		{"/dir", true},
		{"/dir/file", true},
		{"/link", true}, // dangling symlink still exists
		{"/nope", false},
		{"/dir/nope", false},
	}
	for _, tt := range tests {
		t.Run(tt.fusepath, func(t *testing.T) {
			if got := Exists(base, tt.fusepath); got != tt.want {
				t.Errorf("Exists(%q, %q) = %v, want %v", base, tt.fusepath, got, tt.want)
			}
		})
	}
}

func TestInfo(t *testing.T) {
	base := t.TempDir()

	info, err := Info(base)
	if err != nil {
		t.Fatalf("Info(%q) failed: %v", base, err)
	}
	if info.SpaceAvail == 0 {
		t.Error("expected nonzero available space on a temp dir")
	}
	if info.ReadOnly {
		t.Error("temp dir reported as read-only")
	}

	if _, err := Info(filepath.Join(base, "missing")); err == nil {
		t.Error("Info on a missing path should fail")
	}
}

func TestFullPath(t *testing.T) {
	tests := []struct {
		base, fusepath, want string
	}{
		{"/mnt/disk1", "/a/b", "/mnt/disk1/a/b"},
		{"/mnt/disk1", "/", "/mnt/disk1"},
		{"/mnt/disk1/", "/x", "/mnt/disk1/x"},
	}
	for _, tt := range tests {
		if got := FullPath(tt.base, tt.fusepath); got != tt.want {
			t.Errorf("FullPath(%q, %q) = %q, want %q", tt.base, tt.fusepath, got, tt.want)
		}
	}
}

func TestLutimens(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "file")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	want := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	ts := [2]unix.Timespec{
		unix.NsecToTimespec(want.UnixNano()),
		unix.NsecToTimespec(want.UnixNano()),
	}
	if err := Lutimens(path, ts); err != nil {
		t.Fatalf("Lutimens failed: %v", err)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if !st.ModTime().Equal(want) {
		t.Errorf("mtime = %v, want %v", st.ModTime(), want)
	}
}

func TestLutimensDoesNotFollowSymlinks(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "target")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	link := filepath.Join(base, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("symlink failed: %v", err)
	}

	before, _ := os.Stat(target)
	want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := [2]unix.Timespec{
		unix.NsecToTimespec(want.UnixNano()),
		unix.NsecToTimespec(want.UnixNano()),
	}
	if err := Lutimens(link, ts); err != nil {
		t.Fatalf("Lutimens on symlink failed: %v", err)
	}

	after, _ := os.Stat(target)
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("Lutimens on a symlink touched the target")
	}
}

func TestClonePath(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	if err := os.MkdirAll(filepath.Join(src, "a", "b", "c"), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.Chmod(filepath.Join(src, "a", "b"), 0700); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}

	if err := ClonePath(src, dst, "/a/b/c"); err != nil {
		t.Fatalf("ClonePath failed: %v", err)
	}

	st, err := os.Stat(filepath.Join(dst, "a", "b", "c"))
	if err != nil {
		t.Fatalf("cloned chain missing: %v", err)
	}
	if !st.IsDir() {
		t.Error("cloned leaf is not a directory")
	}

	bst, err := os.Stat(filepath.Join(dst, "a", "b"))
	if err != nil {
		t.Fatalf("cloned middle missing: %v", err)
	}
	if bst.Mode().Perm() != 0700 {
		t.Errorf("cloned dir mode = %v, want 0700", bst.Mode().Perm())
	}

	// Idempotent when the chain already exists.
	if err := ClonePath(src, dst, "/a/b/c"); err != nil {
		t.Fatalf("ClonePath on existing chain failed: %v", err)
	}

	// The root is a no-op.
	if err := ClonePath(src, dst, "/"); err != nil {
		t.Fatalf("ClonePath(/) failed: %v", err)
	}
}

func TestStatfsCache(t *testing.T) {
	base := t.TempDir()
	cache := NewStatfsCache(time.Minute)
	defer cache.Stop()

	avail, err := cache.SpaceAvail(base)
	if err != nil {
		t.Fatalf("SpaceAvail failed: %v", err)
	}
	if avail == 0 {
		t.Error("expected nonzero available space")
	}

	used, err := cache.SpaceUsed(base)
	if err != nil {
		t.Fatalf("SpaceUsed failed: %v", err)
	}

	// Second reads are served from the cache and agree with the first.
	again, err := cache.SpaceUsed(base)
	if err != nil {
		t.Fatalf("cached SpaceUsed failed: %v", err)
	}
	if again != used {
		t.Errorf("cached SpaceUsed = %d, first read %d", again, used)
	}

	if _, err := cache.SpaceAvail(filepath.Join(base, "missing")); err == nil {
		t.Error("probe of a missing path should fail")
	}

	cache.Invalidate(base)
	if _, err := cache.SpaceAvail(base); err != nil {
		t.Fatalf("SpaceAvail after invalidate failed: %v", err)
	}
}

func TestProberMtime(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "file")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cache := NewStatfsCache(time.Minute)
	defer cache.Stop()
	pr := NewProber(cache)

	mtime, err := pr.Mtime(base, "/file")
	if err != nil {
		t.Fatalf("Mtime failed: %v", err)
	}
	if mtime.IsZero() {
		t.Error("expected nonzero mtime")
	}

	if _, err := pr.Mtime(base, "/missing"); err == nil {
		t.Error("Mtime of a missing path should fail")
	}
}
