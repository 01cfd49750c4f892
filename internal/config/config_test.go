package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != defaultListen || cfg.UserID != defaultUserID || !cfg.SeedDemo {
		t.Errorf("unexpected defaults: %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestLoadNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
timezone: Asia/Seoul
ics:
  - name: holidays
    url: https://example.com/holidays.ics
    provider: apple
google:
  credentials_file: creds.json
  token_file: token.json
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != defaultListen || cfg.RefreshCron != defaultRefreshCron {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if !cfg.SeedDemo {
		t.Error("seed_demo should default to true when absent")
	}
	if cfg.ICS[0].ID != "holidays" {
		t.Errorf("ics id = %q, want name fallback", cfg.ICS[0].ID)
	}
	if !cfg.Google.Enabled() || cfg.Google.HorizonDays != defaultHorizonDays {
		t.Errorf("google = %+v", cfg.Google)
	}
	if cfg.Location().String() != "Asia/Seoul" {
		t.Errorf("location = %s", cfg.Location())
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"timezone":     "timezone: Mars/Olympus\n",
		"provider":     "ics:\n  - id: x\n    url: https://example.com/x.ics\n    provider: icloud\n",
		"url":          "ics:\n  - id: x\n",
		"duplicate id": "ics:\n  - id: x\n    url: https://example.com/a.ics\n  - name: x\n    url: https://example.com/b.ics\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Listen = "0.0.0.0:9000"
	cfg.BasicAuth = &BasicAuthConfig{Username: "me", Password: "secret"}

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "listen: 0.0.0.0:9000") {
		t.Errorf("saved yaml missing listen:\n%s", data)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Listen != "0.0.0.0:9000" || got.BasicAuth == nil || got.BasicAuth.Username != "me" {
		t.Errorf("round trip = %+v", got)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestDataPath(t *testing.T) {
	cfg := &Config{DataDir: "/var/lib/weekplan"}
	got, err := cfg.DataPath("state")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join("/var/lib/weekplan", "state") {
		t.Errorf("DataPath = %s", got)
	}
}
