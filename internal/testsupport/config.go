package testsupport

import (
	"path/filepath"
	"testing"

	"shotreel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Spacing and poll intervals are zeroed so pipeline tests run instantly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.LLM.APIKey = "test"
	cfgVal.Render.BaseURL = "http://127.0.0.1:0/api"
	cfgVal.Render.PollIntervalSeconds = 0
	cfgVal.Pipeline.QueueSpacingSeconds = 0
	cfgVal.Pipeline.CodegenSpacingMillis = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithRenderURL points the render backend at url.
func WithRenderURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.BaseURL = url
	}
}

// WithLLMURL points the LLM client at url.
func WithLLMURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = url
	}
}

// WithNtfyTopic enables notifications against the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithAutoFixBudget overrides the automatic repair budget.
func WithAutoFixBudget(attempts int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.MaxAutoFixAttempts = attempts
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
