package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"shotreel/internal/codegen"
	"shotreel/internal/config"
	"shotreel/internal/logging"
	"shotreel/internal/notifications"
	"shotreel/internal/render"
	"shotreel/internal/services"
	"shotreel/internal/services/llm"
	"shotreel/internal/shots"
	"shotreel/internal/stitch"
	"shotreel/internal/storyboard"
	"shotreel/internal/workflow"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// workspace is the per-command view of the shot database. Mutating commands
// hold the workspace lock for their whole run.
type workspace struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *shots.Store
	lock   *flock.Flock
}

func (w *workspace) close() error {
	var errs []error
	if w.store != nil {
		errs = append(errs, w.store.Close())
	}
	if w.lock != nil {
		errs = append(errs, w.lock.Unlock())
	}
	return errors.Join(errs...)
}

// withWorkspace opens the shot store for fn. When mutating is set the
// workspace lock is taken first so two commands never drive the same
// storyboard at once.
func (c *commandContext) withWorkspace(mutating bool, fn func(*workspace) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}

	ws := &workspace{cfg: cfg, logger: logger}
	if mutating {
		lock := flock.New(cfg.LockPath())
		ok, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire workspace lock: %w", err)
		}
		if !ok {
			return fmt.Errorf("another shotreel command is already working in %s", cfg.Paths.DataDir)
		}
		ws.lock = lock
	}

	store, err := shots.Open(cfg)
	if err != nil {
		_ = ws.close()
		return fmt.Errorf("open shot database: %w", err)
	}
	ws.store = store

	if mutating {
		// Holding the lock means any shot still generating or rendering was
		// abandoned by an earlier process.
		reset, err := store.ResetStuck(context.Background())
		if err != nil {
			_ = ws.close()
			return fmt.Errorf("recover interrupted shots: %w", err)
		}
		if reset > 0 {
			logger.Warn("recovered interrupted shots",
				logging.Int("count", int(reset)),
				logging.String(logging.FieldErrorHint, "retry or regenerate them"),
			)
		}
	}

	runErr := fn(ws)
	if closeErr := ws.close(); closeErr != nil && runErr == nil {
		runErr = closeErr
	}
	return runErr
}

// commandCtx tags the command's context with a fresh correlation id.
func commandCtx(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return services.WithRequestID(ctx, uuid.NewString())
}

func newLLMClient(cfg *config.Config, logger *slog.Logger) *llm.Client {
	return llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		MaxTokens:      cfg.LLM.MaxTokens,
	}, llm.WithLogger(logger))
}

func newRenderClient(cfg *config.Config, logger *slog.Logger, maxPolls int) *render.Client {
	backend := render.NewHTTPBackend(cfg.Render.BaseURL,
		time.Duration(cfg.Render.TimeoutSeconds)*time.Second,
		render.WithAPIToken(cfg.Render.APIToken),
	)
	return render.NewClient(backend,
		render.WithPollInterval(cfg.PollInterval()),
		render.WithMaxPolls(maxPolls),
		render.WithLogger(logger),
	)
}

func (w *workspace) storyboardGenerator() *storyboard.Generator {
	return storyboard.NewGenerator(newLLMClient(w.cfg, w.logger), w.logger)
}

func (w *workspace) manager(ctx context.Context) *workflow.Manager {
	client := newLLMClient(w.cfg, w.logger)
	return workflow.NewManager(w.cfg, workflow.Dependencies{
		Store:     w.store,
		Generator: codegen.NewLLMGenerator(client, w.logger),
		Renderer:  newRenderClient(w.cfg, w.logger, w.cfg.Render.ShotMaxPolls),
		Stitcher:  stitch.New(newRenderClient(w.cfg, w.logger, w.cfg.Render.StitchMaxPolls), w.cfg.Render.StitchMaxPolls, w.logger),
		Notifier:  notifications.NewService(w.cfg),
	}, w.logger, workflow.WithBaseContext(ctx))
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
