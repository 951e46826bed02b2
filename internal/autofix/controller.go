package autofix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"shotreel/internal/codegen"
	"shotreel/internal/logging"
	"shotreel/internal/services"
	"shotreel/internal/shots"
)

// MaxRetries is the default number of automatic repairs per shot.
const MaxRetries = 2

// ErrBudgetExhausted is returned by Fix when the shot has used every repair attempt.
var ErrBudgetExhausted = errors.New("auto-fix budget exhausted")

// ShotStore is the subset of the shot store the controller mutates.
type ShotStore interface {
	Get(ctx context.Context, id string) (*shots.Shot, error)
	List(ctx context.Context) ([]shots.Shot, error)
	Themes(ctx context.Context) (shots.Themes, error)
	MarkGenerating(ctx context.Context, id string) (*shots.Shot, error)
	MarkCodeReady(ctx context.Context, id, code string) (*shots.Shot, error)
	MarkError(ctx context.Context, id, message string) (*shots.Shot, error)
}

// Resubmitter puts a repaired shot back into the render queue.
type Resubmitter interface {
	Resubmit(ctx context.Context, shot shots.Shot) error
}

// Controller runs bounded automatic repairs.
type Controller struct {
	store       ShotStore
	generator   codegen.Generator
	resubmitter Resubmitter
	ledger      *RetryLedger
	maxRetries  int
	logger      *slog.Logger

	mu     sync.Mutex
	active int
	idle   chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxRetries overrides the per-shot repair budget.
func WithMaxRetries(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithLedger shares an existing ledger.
func WithLedger(ledger *RetryLedger) Option {
	return func(c *Controller) {
		if ledger != nil {
			c.ledger = ledger
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New constructs a controller.
func New(store ShotStore, generator codegen.Generator, resubmitter Resubmitter, opts ...Option) *Controller {
	idle := make(chan struct{})
	close(idle)
	c := &Controller{
		store:       store,
		generator:   generator,
		resubmitter: resubmitter,
		ledger:      NewRetryLedger(),
		maxRetries:  MaxRetries,
		idle:        idle,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "autofix")
	return c
}

// Ledger exposes the retry ledger.
func (c *Controller) Ledger() *RetryLedger {
	return c.ledger
}

// MaxRetries returns the per-shot repair budget.
func (c *Controller) MaxRetries() int {
	return c.maxRetries
}

// ExhaustedMessage is the terminal error recorded once the budget is spent.
func ExhaustedMessage(attempts int, errorMessage string) string {
	return fmt.Sprintf("Code error after %d attempts: %s", attempts, errorMessage)
}

// AttemptFix runs Fix in the background. Its outcome is observable only
// through the shot store.
func (c *Controller) AttemptFix(ctx context.Context, shotID, errorMessage string) {
	c.begin()
	go func() {
		defer c.end()
		defer func() {
			if r := recover(); r != nil {
				logging.ErrorWithContext(c.logger, "auto-fix panicked", "autofix_panic",
					logging.String(logging.FieldShotID, shotID),
					logging.Any("panic", r),
				)
				c.markError(context.WithoutCancel(ctx), shotID, fmt.Sprintf("auto-fix failed: %v", r))
			}
		}()
		if err := c.Fix(ctx, shotID, errorMessage); err != nil && !errors.Is(err, ErrBudgetExhausted) {
			c.logger.Debug("auto-fix ended with error",
				logging.String(logging.FieldShotID, shotID),
				logging.Error(err),
			)
		}
	}()
}

// Fix performs one repair attempt synchronously: it regenerates the shot's
// code with the render error folded into the prompt and resubmits the shot.
// Every failure leaves the shot in the error state.
func (c *Controller) Fix(ctx context.Context, shotID, errorMessage string) error {
	ctx = services.WithShotID(ctx, shotID)
	ctx = services.WithStage(ctx, "autofix")
	logger := logging.WithContext(ctx, c.logger)

	shot, err := c.store.Get(ctx, shotID)
	if err != nil {
		return fmt.Errorf("load shot: %w", err)
	}
	if shot == nil {
		return services.Wrap(services.ErrNotFound, "autofix", "load shot", shotID, nil)
	}

	used := c.ledger.Count(shotID)
	if used >= c.maxRetries {
		message := ExhaustedMessage(c.maxRetries, errorMessage)
		logging.WarnWithContext(logger, "auto-fix budget exhausted", "autofix_exhausted",
			logging.Int(logging.FieldShotNumber, shot.Number),
			logging.Int("attempts", used),
			logging.String(logging.FieldErrorHint, "fix the shot manually or regenerate it with an edit prompt"),
			logging.String(logging.FieldImpact, "shot stays in the error state"),
		)
		c.markError(ctx, shotID, message)
		return ErrBudgetExhausted
	}

	attempt := c.ledger.Increment(shotID)
	logger.Info("auto-fixing shot",
		logging.Int(logging.FieldShotNumber, shot.Number),
		logging.Int("attempt", attempt),
		logging.Int("max_attempts", c.maxRetries),
	)

	generating, err := c.store.MarkGenerating(ctx, shotID)
	if err != nil {
		c.markError(ctx, shotID, errorMessage)
		return fmt.Errorf("mark generating: %w", err)
	}

	sc, err := c.repairContext(ctx, *generating, errorMessage)
	if err != nil {
		c.markError(ctx, shotID, err.Error())
		return err
	}

	code, err := c.generator.Generate(ctx, sc)
	if err != nil {
		logging.WarnWithContext(logger, "auto-fix code generation failed", "autofix_codegen_failed",
			logging.Int("attempt", attempt),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the language model configuration"),
		)
		c.markError(ctx, shotID, generationMessage(err))
		return err
	}

	ready, err := c.store.MarkCodeReady(ctx, shotID, code)
	if err != nil {
		c.markError(ctx, shotID, fmt.Sprintf("store repaired code: %v", err))
		return fmt.Errorf("store repaired code: %w", err)
	}
	if c.resubmitter == nil {
		return nil
	}
	if err := c.resubmitter.Resubmit(ctx, *ready); err != nil {
		c.markError(ctx, shotID, err.Error())
		return fmt.Errorf("resubmit repaired shot: %w", err)
	}
	logger.Info("repaired shot resubmitted", logging.Int("attempt", attempt))
	return nil
}

func (c *Controller) repairContext(ctx context.Context, shot shots.Shot, errorMessage string) (codegen.ShotContext, error) {
	all, err := c.store.List(ctx)
	if err != nil {
		return codegen.ShotContext{}, fmt.Errorf("list shots: %w", err)
	}
	themes, err := c.store.Themes(ctx)
	if err != nil {
		logging.WarnWithContext(c.logger, "storyboard themes unavailable", "themes_unavailable",
			logging.String(logging.FieldShotID, shot.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "repair prompt omits theme guidance"),
		)
		themes = shots.Themes{}
	}
	sc := codegen.BuildContext(shot, all, themes)
	sc.Description = BuildRepairDescription(shot.Description, errorMessage)
	return sc, nil
}

// markError records a terminal failure. It runs without ctx's cancellation
// so an interrupted repair still leaves a message on the shot.
func (c *Controller) markError(ctx context.Context, shotID, message string) {
	if _, err := c.store.MarkError(context.WithoutCancel(ctx), shotID, message); err != nil {
		logging.ErrorWithContext(c.logger, "failed to record shot error", "shot_update_failed",
			logging.String(logging.FieldShotID, shotID),
			logging.Error(err),
		)
	}
}

func generationMessage(err error) string {
	var streamErr *codegen.StreamError
	if errors.As(err, &streamErr) {
		return streamErr.Message
	}
	return err.Error()
}

func (c *Controller) begin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == 0 {
		c.idle = make(chan struct{})
	}
	c.active++
}

func (c *Controller) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active--
	if c.active == 0 {
		close(c.idle)
	}
}

// Active returns the number of repairs running in the background.
func (c *Controller) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Wait blocks until no background repair is running or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
