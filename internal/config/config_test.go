package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"shotreel/internal/config"
)

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	t.Setenv("SHOTREEL_LLM_API_KEY", "test-key")
	t.Setenv("SHOTREEL_RENDER_URL", "http://render.local/api/")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "shotreel")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "shots.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Render.BaseURL != "http://render.local/api" {
		t.Fatalf("expected trailing slash trimmed from render url, got %q", cfg.Render.BaseURL)
	}
	if cfg.Render.ShotMaxPolls != 120 || cfg.Render.StitchMaxPolls != 200 {
		t.Fatalf("unexpected poll caps: %d/%d", cfg.Render.ShotMaxPolls, cfg.Render.StitchMaxPolls)
	}
	if cfg.PollInterval() != 3*time.Second {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.QueueSpacing() != 3*time.Second {
		t.Fatalf("unexpected queue spacing: %s", cfg.QueueSpacing())
	}
	if cfg.Pipeline.MaxAutoFixAttempts != 2 {
		t.Fatalf("unexpected autofix budget: %d", cfg.Pipeline.MaxAutoFixAttempts)
	}
}

func TestLoadParsesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.LLM.Model = "demo/model"
	cfg.Pipeline.QueueSpacingSeconds = 0
	cfg.Logging.Format = "JSON"
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected file to be found at %q, got %q (exists=%v)", path, resolved, exists)
	}
	if loaded.LLM.Model != "demo/model" {
		t.Fatalf("unexpected model %q", loaded.LLM.Model)
	}
	if loaded.QueueSpacing() != 0 {
		t.Fatalf("expected zero spacing, got %s", loaded.QueueSpacing())
	}
	if loaded.Logging.Format != "json" {
		t.Fatalf("expected normalized log format, got %q", loaded.Logging.Format)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"empty render url", func(c *config.Config) { c.Render.BaseURL = "" }, "render.base_url"},
		{"zero polls", func(c *config.Config) { c.Render.ShotMaxPolls = 0 }, "render.shot_max_polls"},
		{"negative spacing", func(c *config.Config) { c.Pipeline.QueueSpacingSeconds = -1 }, "pipeline.queue_spacing_seconds"},
		{"negative budget", func(c *config.Config) { c.Pipeline.MaxAutoFixAttempts = -1 }, "pipeline.max_autofix_attempts"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample config to load, exists=%v err=%v", exists, err)
	}
}

func TestEncodeRedactsSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "sk-secret"
	cfg.Render.APIToken = "token-secret"
	out, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(out, "sk-secret") || strings.Contains(out, "token-secret") {
		t.Fatalf("expected secrets to be redacted, got %s", out)
	}
	if cfg.LLM.APIKey != "sk-secret" {
		t.Fatal("Encode must not mutate the receiver")
	}
}
