package workflow

import (
	"context"
	"log/slog"
	"time"

	"shotreel/internal/autofix"
	"shotreel/internal/codegen"
	"shotreel/internal/config"
	"shotreel/internal/logging"
	"shotreel/internal/notifications"
	"shotreel/internal/render"
	"shotreel/internal/renderqueue"
	"shotreel/internal/shots"
)

// Stitcher combines completed shots into the final video.
type Stitcher interface {
	Stitch(ctx context.Context, list []shots.Shot, onProgress render.ProgressFunc) (string, error)
}

// Dependencies are the collaborators a Manager drives.
type Dependencies struct {
	Store     *shots.Store
	Generator codegen.Generator
	Renderer  renderqueue.Renderer
	Stitcher  Stitcher
	Notifier  notifications.Service
}

// Manager coordinates code generation, rendering and repair.
type Manager struct {
	cfg       *config.Config
	store     *shots.Store
	generator codegen.Generator
	queue     *renderqueue.Queue
	autofix   *autofix.Controller
	stitcher  Stitcher
	notifier  notifications.Service
	logger    *slog.Logger
	baseCtx   context.Context

	codegenSpacing time.Duration
	sleep          func(context.Context, time.Duration) error
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	baseCtx      context.Context
	sleep        func(context.Context, time.Duration) error
	queueOptions []renderqueue.Option
}

// WithBaseContext sets the context used for work that outlives a single
// call, such as queue callbacks and background repairs.
func WithBaseContext(ctx context.Context) ManagerOption {
	return func(o *managerOptions) {
		if ctx != nil {
			o.baseCtx = ctx
		}
	}
}

// WithSleeper replaces the delay used between code generations and renders.
func WithSleeper(sleep func(context.Context, time.Duration) error) ManagerOption {
	return func(o *managerOptions) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// WithQueueOptions passes extra options to the render queue.
func WithQueueOptions(opts ...renderqueue.Option) ManagerOption {
	return func(o *managerOptions) {
		o.queueOptions = append(o.queueOptions, opts...)
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, deps Dependencies, logger *slog.Logger, opts ...ManagerOption) *Manager {
	options := &managerOptions{baseCtx: context.Background(), sleep: sleepContext}
	for _, opt := range opts {
		opt(options)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	m := &Manager{
		cfg:            cfg,
		store:          deps.Store,
		generator:      deps.Generator,
		stitcher:       deps.Stitcher,
		notifier:       notifier,
		logger:         logging.NewComponentLogger(logger, "workflow"),
		baseCtx:        options.baseCtx,
		codegenSpacing: cfg.CodegenSpacing(),
		sleep:          options.sleep,
	}

	queueOpts := []renderqueue.Option{
		renderqueue.WithSpacing(cfg.QueueSpacing()),
		renderqueue.WithSleeper(options.sleep),
		renderqueue.WithLogger(logger),
		renderqueue.WithContext(options.baseCtx),
	}
	m.queue = renderqueue.New(deps.Renderer, append(queueOpts, options.queueOptions...)...)
	m.autofix = autofix.New(deps.Store, deps.Generator, m,
		autofix.WithMaxRetries(cfg.Pipeline.MaxAutoFixAttempts),
		autofix.WithLogger(logger),
	)
	return m
}

// Queue exposes the render queue.
func (m *Manager) Queue() *renderqueue.Queue {
	return m.queue
}

// AutoFix exposes the auto-fix controller.
func (m *Manager) AutoFix() *autofix.Controller {
	return m.autofix
}

// WaitIdle blocks until the render queue is empty and no repair is running.
// A repair may resubmit a shot, so both are re-checked until they are idle
// at the same time.
//
// When ctx ends first, WaitIdle still gives interrupted work up to
// settleTimeout to record its outcome, so callers may close the store once
// it returns.
func (m *Manager) WaitIdle(ctx context.Context) error {
	for {
		if err := m.queue.Wait(ctx); err != nil {
			m.settle()
			return err
		}
		if err := m.autofix.Wait(ctx); err != nil {
			m.settle()
			return err
		}
		if m.autofix.Active() == 0 && !m.queue.IsRendering() && m.queue.Len() == 0 {
			return nil
		}
	}
}

const settleTimeout = 10 * time.Second

func (m *Manager) settle() {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.baseCtx), settleTimeout)
	defer cancel()
	if err := m.queue.Wait(ctx); err != nil {
		m.logger.Warn("render queue did not settle", logging.Error(err))
	}
	if err := m.autofix.Wait(ctx); err != nil {
		m.logger.Warn("auto-fix did not settle", logging.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
