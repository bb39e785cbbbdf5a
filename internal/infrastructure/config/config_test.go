package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[symbols]
list = ["BTC", "ETH"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.TTLSeconds != 15 {
		t.Errorf("ttl = %d, want 15", cfg.Store.TTLSeconds)
	}
	if cfg.Detector.ThresholdPct != 0.05 {
		t.Errorf("threshold = %v, want 0.05", cfg.Detector.ThresholdPct)
	}
	if cfg.Detector.IntervalMs != 1000 || cfg.Detector.InitialDelaySec != 10 {
		t.Errorf("detector timing = %d/%d", cfg.Detector.IntervalMs, cfg.Detector.InitialDelaySec)
	}
	if cfg.Poll.IntervalMs != 1000 {
		t.Errorf("poll interval = %d", cfg.Poll.IntervalMs)
	}
	if cfg.App.HTTPListen != ":8080" {
		t.Errorf("listen = %q", cfg.App.HTTPListen)
	}
}

func TestLoadNormalizesSymbols(t *testing.T) {
	path := writeConfig(t, `
[symbols]
list = [" btc ", "ETHUSDT", "eth", "", "BTC"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"BTC", "ETH"}
	if len(cfg.Symbols.List) != len(want) {
		t.Fatalf("symbols = %v, want %v", cfg.Symbols.List, want)
	}
	for i := range want {
		if cfg.Symbols.List[i] != want[i] {
			t.Errorf("symbols[%d] = %q, want %q", i, cfg.Symbols.List[i], want[i])
		}
	}
}

func TestLoadRejectsEmptySymbols(t *testing.T) {
	path := writeConfig(t, `
[symbols]
list = []
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for empty symbols list")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
