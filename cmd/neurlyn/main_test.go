package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/neurlyn/internal/config"
	"github.com/verte-zerg/neurlyn/internal/model"
	"github.com/verte-zerg/neurlyn/internal/questionbank"
)

func TestDefaultConfigTemplateRoundTrips(t *testing.T) {
	var lines []string
	for _, line := range strings.Split(defaultConfigTemplate(), "\n") {
		if strings.HasPrefix(line, "# ") && strings.Contains(line, "=") {
			line = strings.TrimPrefix(line, "# ")
		}
		lines = append(lines, line)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p, err := loadPolicy(cfg)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	want := model.DefaultPolicy()
	if p.Tiers[model.TierDeep] != want.Tiers[model.TierDeep] || p.SessionTTL != want.SessionTTL || p.PathwayThreshold != want.PathwayThreshold {
		t.Fatalf("template values drifted from defaults: %+v", p)
	}
	if cfg.Server.Addr == nil || *cfg.Server.Addr != defaultAddr {
		t.Fatalf("unexpected addr: %v", cfg.Server.Addr)
	}
}

func TestApplyConfigRespectsFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	var addr string
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "")
	fromFile := ":9000"

	applyStringConfig(cmd, "addr", &addr, &fromFile)
	if addr != ":9000" {
		t.Fatalf("expected config value, got %q", addr)
	}

	if err := cmd.Flags().Set("addr", ":7000"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	applyStringConfig(cmd, "addr", &addr, &fromFile)
	if addr != ":7000" {
		t.Fatalf("expected flag to win, got %q", addr)
	}
}

func TestReportFilter(t *testing.T) {
	t.Cleanup(func() {
		reportStatus, reportSince, reportLast, reportCurveWindow = "", "", 0, defaultCurveWindow
	})

	reportStatus, reportSince, reportLast, reportCurveWindow = "Completed", "2026-03-01", 4, defaultCurveWindow
	filter, err := reportFilter()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filter.Status != model.StatusCompleted || filter.Last != 4 || filter.Since == nil {
		t.Fatalf("unexpected filter: %+v", filter)
	}

	tests := []struct {
		name   string
		status string
		since  string
		last   int
	}{
		{"bad status", "paused", "", 0},
		{"bad date", "", "03/01/2026", 0},
		{"negative last", "", "", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reportStatus, reportSince, reportLast = tt.status, tt.since, tt.last
			if _, err := reportFilter(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestQuestionTableListsBank(t *testing.T) {
	bank, err := questionbank.Default()
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	out := questionTable(bank.Pool("adhd_pathway"))
	if !strings.Contains(out, "adhd") || !strings.Contains(out, "Pool") {
		t.Fatalf("unexpected table:\n%s", out)
	}
}

func TestLoadBankPrefersConfiguredFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	bank, err := loadBank(config.FileConfig{})
	if err != nil {
		t.Fatalf("default bank: %v", err)
	}
	if bank.Len() == 0 {
		t.Fatalf("expected embedded bank")
	}

	missing := filepath.Join(t.TempDir(), "absent.yaml")
	_, err = loadBank(config.FileConfig{Assessment: config.AssessmentConfig{Bank: &missing}})
	if err == nil {
		t.Fatalf("expected error for missing bank file")
	}
}
