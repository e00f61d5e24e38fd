package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/neurlyn/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Addr != nil || cfg.Assessment.Quick != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigAppliesPolicy(t *testing.T) {
	path := writeConfig(t, `
[server]
addr = ":9000"

[assessment]
default-tier = "quick"
quick = 10
batch-size = 4
shuffle = false
session-ttl = "2h"

[pathways]
threshold = 80.0
min-count = 4

[quality]
straight-line-run = 8
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr == nil || *cfg.Server.Addr != ":9000" {
		t.Fatalf("unexpected addr: %v", cfg.Server.Addr)
	}

	p := model.DefaultPolicy()
	if err := cfg.ApplyPolicy(&p); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if p.DefaultTier != model.TierQuick || p.Tiers[model.TierQuick] != 10 {
		t.Fatalf("unexpected tiers: %v default %s", p.Tiers, p.DefaultTier)
	}
	if p.Tiers[model.TierDeep] != 75 {
		t.Fatalf("expected deep tier to keep its default, got %d", p.Tiers[model.TierDeep])
	}
	if p.BatchSize != 4 || p.Shuffle {
		t.Fatalf("unexpected selection settings: batch=%d shuffle=%v", p.BatchSize, p.Shuffle)
	}
	if p.SessionTTL != 2*time.Hour || p.Retention != 72*time.Hour {
		t.Fatalf("unexpected durations: ttl=%s retention=%s", p.SessionTTL, p.Retention)
	}
	if p.PathwayThreshold != 80 || p.PathwayMinCount != 4 || p.StraightLineRun != 8 {
		t.Fatalf("unexpected thresholds: %+v", p)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "[assessment]\nquik = 10\n")
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "quik") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestApplyPolicyRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad duration", "[assessment]\nretention = \"soon\"\n", "assessment.retention"},
		{"negative duration", "[assessment]\nsession-ttl = \"-1h\"\n", "must be positive"},
		{"unknown default tier", "[assessment]\ndefault-tier = \"huge\"\n", "default tier"},
		{"threshold range", "[pathways]\nthreshold = 120.0\n", "threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tt.content))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			p := model.DefaultPolicy()
			err = cfg.ApplyPolicy(&p)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "neurlyn", "config.toml") {
		t.Fatalf("unexpected config path %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "neurlyn", "neurlyn.db") {
		t.Fatalf("unexpected db path %s", got)
	}
}

func TestDefaultLogPathUsesDataHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultLogPath(); got != filepath.Join("/data", "neurlyn", "neurlyn.log") {
		t.Fatalf("unexpected log path %s", got)
	}
}
