package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ajaxzhan/poolfs/pkg/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Policies.Create != "epmfs" {
		t.Errorf("expected create policy epmfs, got %s", cfg.Policies.Create)
	}
	if cfg.Policies.Action != "epall" {
		t.Errorf("expected action policy epall, got %s", cfg.Policies.Action)
	}
	if cfg.Policies.Search != "ff" {
		t.Errorf("expected search policy ff, got %s", cfg.Policies.Search)
	}
	if cfg.FsName != "poolfs" {
		t.Errorf("expected fsname poolfs, got %s", cfg.FsName)
	}

	ttl, err := cfg.GetStatfsTimeout()
	if err != nil {
		t.Fatalf("GetStatfsTimeout failed: %v", err)
	}
	if ttl != time.Second {
		t.Errorf("expected 1s statfs timeout, got %v", ttl)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
mountpoint: /mnt/pool
fsname: mediapool
branches:
  - path: /mnt/disk1
    mode: RW
    minfreespace: 4G
  - path: /mnt/disk2
    mode: NC
  - path: /mnt/archive
    mode: RO
policies:
  create: eplus
  action: epall
  search: epff
funcs:
  utimens: epall
minfreespace: 512M
cache:
  statfs_timeout: 250ms
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.MountPoint != "/mnt/pool" {
		t.Errorf("expected mountpoint /mnt/pool, got %s", cfg.MountPoint)
	}
	if cfg.FsName != "mediapool" {
		t.Errorf("expected fsname mediapool, got %s", cfg.FsName)
	}
	if cfg.Policies.Create != "eplus" {
		t.Errorf("expected create policy eplus, got %s", cfg.Policies.Create)
	}
	if cfg.Funcs["utimens"] != "epall" {
		t.Errorf("expected utimens override epall, got %s", cfg.Funcs["utimens"])
	}

	vec, err := cfg.BranchSet()
	if err != nil {
		t.Fatalf("BranchSet failed: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3 branches, got %d", len(vec))
	}
	want := []types.Branch{
		{Path: "/mnt/disk1", Mode: types.ModeRW, MinFreeSpace: 4 << 30},
		{Path: "/mnt/disk2", Mode: types.ModeNC},
		{Path: "/mnt/archive", Mode: types.ModeRO},
	}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("branch %d = %+v, want %+v", i, vec[i], want[i])
		}
	}

	minfree, err := cfg.GetMinFreeSpace()
	if err != nil {
		t.Fatalf("GetMinFreeSpace failed: %v", err)
	}
	if minfree != 512<<20 {
		t.Errorf("expected 512M global reserve, got %d", minfree)
	}

	ttl, err := cfg.GetStatfsTimeout()
	if err != nil {
		t.Fatalf("GetStatfsTimeout failed: %v", err)
	}
	if ttl != 250*time.Millisecond {
		t.Errorf("expected 250ms statfs timeout, got %v", ttl)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no mountpoint", `
branches:
  - path: /mnt/disk1
    mode: RW
`},
		{"no branches", `
mountpoint: /mnt/pool
`},
		{"bad mode", `
mountpoint: /mnt/pool
branches:
  - path: /mnt/disk1
    mode: rw
`},
		{"unknown policy", `
mountpoint: /mnt/pool
branches:
  - path: /mnt/disk1
    mode: RW
policies:
  create: fastest
  action: epall
  search: ff
`},
		{"unknown funcs policy", `
mountpoint: /mnt/pool
branches:
  - path: /mnt/disk1
    mode: RW
funcs:
  unlink: nosuch
`},
		{"bad size", `
mountpoint: /mnt/pool
branches:
  - path: /mnt/disk1
    mode: RW
    minfreespace: 4X
`},
		{"bad statfs timeout", `
mountpoint: /mnt/pool
branches:
  - path: /mnt/disk1
    mode: RW
cache:
  statfs_timeout: soon
`},
		{"bad log level", `
mountpoint: /mnt/pool
branches:
  - path: /mnt/disk1
    mode: RW
logging:
  level: loud
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("expected load to fail")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected load of missing file to fail")
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"1024", 1024, false},
		{"4K", 4 << 10, false},
		{"4KB", 4 << 10, false},
		{"10M", 10 << 20, false},
		{"4G", 4 << 30, false},
		{"4gb", 4 << 30, false},
		{"2T", 2 << 40, false},
		{"  8M ", 8 << 20, false},
		{"4X", 0, true},
		{"G", 0, true},
		{"-1", 0, true},
		{"4.5G", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSize(%q) should fail", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSize(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
