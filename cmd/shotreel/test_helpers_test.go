package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"shotreel/internal/config"
	"shotreel/internal/shots"
	"shotreel/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("SHOTREEL_LLM_API_KEY", "")
	t.Setenv("SHOTREEL_RENDER_URL", "")
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Render.PollIntervalSeconds = 1
	cfg.Logging.Level = "error"

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// seed stores count pending shots in the env's workspace.
func (e *cliTestEnv) seed(t *testing.T, count int) {
	t.Helper()
	store := testsupport.MustOpenStore(t, e.cfg)
	testsupport.SeedShots(t, store, count)
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}
}

// withStore opens the workspace store for direct inspection.
func (e *cliTestEnv) withStore(t *testing.T, fn func(*shots.Store)) {
	t.Helper()
	store := testsupport.MustOpenStore(t, e.cfg)
	defer store.Close()
	fn(store)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}
