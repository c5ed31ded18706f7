package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	th := c.Thresholds()
	if th.IQRMultiplier != 1.5 || th.ExtendedIQRMultiplier != 2 || th.MaxDeteriorationRate != 15 ||
		th.MaxImprovementRate != -5 || th.MaintenanceWindowYears != 2 || th.ExpectedPCIAfterTreatment != 85 {
		t.Fatalf("thresholds = %+v", th)
	}
	if c.DefaultFormat != "markdown" || c.LogLevel != "info" || !strings.HasSuffix(c.ProjectsDir, filepath.Join(".pavecheck", "projects")) {
		t.Fatalf("config = %+v", c)
	}
}

func TestSaveLoadRoundTripWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	for k, v := range map[string]string{
		"max_deterioration_rate": "12.5",
		"history_db":             "/tmp/runs.db",
		"log_format":             "json",
	} {
		if err := c.Set(k, v); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	if err := Save(c, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if b, _ := os.ReadFile(path); !strings.Contains(string(b), "max_deterioration_rate: 12.5") {
		t.Fatalf("saved yaml:\n%s", b)
	}

	t.Setenv("PAVECHECK_EXPECTED_PCI_AFTER_TREATMENT", "90")
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.MaxDeteriorationRate != 12.5 || got.HistoryDB != "/tmp/runs.db" || got.LogFormat != "json" {
		t.Fatalf("loaded = %+v", got)
	}
	if got.ExpectedPCIAfterTreatment != 90 {
		t.Fatalf("env override not applied: %v", got.ExpectedPCIAfterTreatment)
	}
}

func TestSetRejectsBadInput(t *testing.T) {
	c := &Global{}
	if err := c.Set("api_key", "x"); err == nil || !strings.Contains(err.Error(), "unknown config key") {
		t.Fatalf("err = %v", err)
	}
	if err := c.Set("iqr_multiplier", "wide"); err == nil {
		t.Fatalf("expected number parse error")
	}
}

func TestImprovementRateMustBeNegative(t *testing.T) {
	c := &Global{}
	for _, v := range []string{"0", "2"} {
		err := c.Set("max_improvement_rate", v)
		if err == nil || !strings.Contains(err.Error(), "must be negative") {
			t.Fatalf("Set(max_improvement_rate, %s) err = %v", v, err)
		}
	}
	if err := c.Set("max_improvement_rate", "-0.5"); err != nil || c.MaxImprovementRate != -0.5 {
		t.Fatalf("set -0.5: %v (%v)", err, c.MaxImprovementRate)
	}
	if err := c.Set("iqr_multiplier", "0"); err == nil {
		t.Fatalf("expected error for zero multiplier")
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("max_improvement_rate: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "max_improvement_rate") {
		t.Fatalf("load err = %v", err)
	}
	t.Setenv("PAVECHECK_MAX_IMPROVEMENT_RATE", "-1")
	got, err := Load(path)
	if err != nil || got.Thresholds().MaxImprovementRate != -1 {
		t.Fatalf("env override = %+v, %v", got, err)
	}
}
