package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shotreel/internal/codegen"
	"shotreel/internal/logging"
	"shotreel/internal/services"
	"shotreel/internal/shots"
)

// GenerateAndRender generates fresh code for every shot that is not yet
// complete, in order, and queues each shot for rendering as soon as its code
// is ready. It returns once every shot has a terminal outcome and no repair
// is pending.
func (m *Manager) GenerateAndRender(ctx context.Context) (Summary, error) {
	start := time.Now()
	if m.generator == nil {
		return Summary{}, services.Wrap(services.ErrConfiguration, "workflow", "generate", "code generator not configured", nil)
	}
	list, err := m.store.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list shots: %w", err)
	}
	if len(list) == 0 {
		return Summary{}, services.Wrap(services.ErrValidation, "workflow", "generate", "no shots; create a storyboard first", nil)
	}
	todo := make([]shots.Shot, 0, len(list))
	for _, shot := range list {
		if shot.Status != shots.StatusComplete {
			todo = append(todo, shot)
		}
	}
	if len(todo) == 0 {
		return Summary{}, services.Wrap(services.ErrValidation, "workflow", "generate",
			"every shot is already complete; use regenerate or retry for a single shot", nil)
	}
	themes := m.loadThemes(ctx)

	m.logger.Info("pipeline started",
		logging.Int("shot_count", len(todo)),
		logging.Int("skipped_complete", len(list)-len(todo)),
	)
	for i, shot := range todo {
		if i > 0 {
			if err := m.sleep(ctx, m.codegenSpacing); err != nil {
				return Summary{}, err
			}
		}
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		m.generateShot(ctx, shot, list, themes)
	}

	if err := m.WaitIdle(ctx); err != nil {
		return Summary{}, err
	}
	summary, err := m.summarize(ctx, start)
	if err != nil {
		return Summary{}, err
	}
	m.logger.Info("pipeline finished",
		logging.Int("complete", summary.Complete),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", summary.Duration),
	)
	m.notifyRunFinished(ctx, summary)
	return summary, nil
}

func (m *Manager) generateShot(ctx context.Context, shot shots.Shot, all []shots.Shot, themes shots.Themes) {
	ctx = services.WithShotID(ctx, shot.ID)
	ctx = services.WithStage(ctx, "codegen")
	logger := logging.WithContext(ctx, m.logger)

	generating, err := m.store.MarkGenerating(ctx, shot.ID)
	if err != nil {
		logging.WarnWithContext(logger, "shot skipped", "shot_skipped",
			logging.Int(logging.FieldShotNumber, shot.Number),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "wait for the shot's current render to finish"),
			logging.String(logging.FieldImpact, "shot keeps its current state"),
		)
		return
	}

	sc := codegen.BuildContext(*generating, all, themes)
	sc.PreviousCode = ""
	code, err := m.generator.Generate(ctx, sc)
	if err != nil {
		m.failGeneration(ctx, shot.ID, err)
		return
	}
	if _, err := m.store.MarkCodeReady(ctx, shot.ID, code); err != nil {
		logging.ErrorWithContext(logger, "failed to store generated code", "shot_update_failed", logging.Error(err))
		m.failGeneration(ctx, shot.ID, fmt.Errorf("store generated code: %w", err))
		return
	}
	rendering, err := m.store.MarkRendering(ctx, shot.ID)
	if err != nil {
		logging.ErrorWithContext(logger, "failed to mark shot rendering", "shot_update_failed", logging.Error(err))
		return
	}
	m.enqueue(*rendering)
}

// RenderReady queues every shot whose code is ready as one batch and waits
// for the pipeline to go idle.
func (m *Manager) RenderReady(ctx context.Context) (Summary, error) {
	start := time.Now()
	list, err := m.store.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list shots: %w", err)
	}

	batch := make([]shots.Shot, 0, len(list))
	for _, shot := range list {
		if shot.Status != shots.StatusCodeReady {
			continue
		}
		rendering, err := m.store.MarkRendering(ctx, shot.ID)
		if err != nil {
			return Summary{}, err
		}
		batch = append(batch, *rendering)
	}
	if len(batch) == 0 {
		return Summary{}, services.Wrap(services.ErrValidation, "workflow", "render", "no shots with code ready to render", nil)
	}

	size := len(batch)
	m.queue.EnqueueBatch(batch, func() {
		m.logger.Info("render batch finished", logging.Int("size", size))
	}, m.handleShotComplete, m.handleShotError)

	if err := m.WaitIdle(ctx); err != nil {
		return Summary{}, err
	}
	summary, err := m.summarize(ctx, start)
	if err != nil {
		return Summary{}, err
	}
	m.notifyRunFinished(ctx, summary)
	return summary, nil
}

// RetryRender renders a shot again with its existing code and waits for
// the outcome. A code defect still goes through auto-fix.
func (m *Manager) RetryRender(ctx context.Context, shotID string) (shots.Shot, error) {
	shot, err := m.requireIdleShot(ctx, shotID)
	if err != nil {
		return shots.Shot{}, err
	}
	if !shot.HasCode() {
		return shots.Shot{}, services.Wrap(services.ErrValidation, "workflow", "retry",
			fmt.Sprintf("shot %d has no code available to render", shot.Number), nil)
	}

	rendering, err := m.store.MarkRendering(ctx, shotID)
	if err != nil {
		return shots.Shot{}, err
	}
	m.logger.Info("manual render retry",
		logging.String(logging.FieldShotID, shotID),
		logging.Int(logging.FieldShotNumber, shot.Number),
	)
	m.enqueue(*rendering)

	if err := m.WaitIdle(ctx); err != nil {
		return shots.Shot{}, err
	}
	return m.reload(ctx, shotID)
}

// Regenerate rewrites a shot's code from an edit request, using the current
// code as the revision base. The shot ends in code_ready; rendering is a
// separate step.
func (m *Manager) Regenerate(ctx context.Context, shotID, editPrompt string) (shots.Shot, error) {
	editPrompt = strings.TrimSpace(editPrompt)
	if editPrompt == "" {
		return shots.Shot{}, services.Wrap(services.ErrValidation, "workflow", "regenerate", "edit prompt is required", nil)
	}
	if m.generator == nil {
		return shots.Shot{}, services.Wrap(services.ErrConfiguration, "workflow", "regenerate", "code generator not configured", nil)
	}
	if _, err := m.requireIdleShot(ctx, shotID); err != nil {
		return shots.Shot{}, err
	}
	all, err := m.store.List(ctx)
	if err != nil {
		return shots.Shot{}, fmt.Errorf("list shots: %w", err)
	}
	themes := m.loadThemes(ctx)

	ctx = services.WithShotID(ctx, shotID)
	ctx = services.WithStage(ctx, "regenerate")
	generating, err := m.store.MarkGenerating(ctx, shotID)
	if err != nil {
		return shots.Shot{}, err
	}
	sc := codegen.BuildContext(*generating, all, themes)
	sc.Description = generating.Description + "\n\nEdit: " + editPrompt

	code, err := m.generator.Generate(ctx, sc)
	if err != nil {
		m.failGeneration(ctx, shotID, err)
		return shots.Shot{}, err
	}
	ready, err := m.store.MarkCodeReady(ctx, shotID, code)
	if err != nil {
		m.failGeneration(ctx, shotID, fmt.Errorf("store generated code: %w", err))
		return shots.Shot{}, err
	}
	m.autofix.Ledger().Clear(shotID)
	logging.WithContext(ctx, m.logger).Info("shot regenerated", logging.Int(logging.FieldShotNumber, ready.Number))
	return *ready, nil
}

// Stitch renders the final video once every shot is complete.
func (m *Manager) Stitch(ctx context.Context, onProgress func(float64)) (string, error) {
	if m.stitcher == nil {
		return "", services.Wrap(services.ErrConfiguration, "workflow", "stitch", "stitcher not configured", nil)
	}
	list, err := m.store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list shots: %w", err)
	}
	if len(list) == 0 {
		return "", services.Wrap(services.ErrValidation, "workflow", "stitch", "no completed shots to stitch", nil)
	}
	for _, shot := range list {
		if shot.Status != shots.StatusComplete {
			return "", services.Wrap(services.ErrValidation, "workflow", "stitch",
				fmt.Sprintf("every shot must be complete before stitching; shot %d is %s", shot.Number, shot.Status), nil)
		}
	}

	url, err := m.stitcher.Stitch(ctx, list, onProgress)
	if err != nil {
		m.notifyError(ctx, err, "stitch")
		return "", err
	}
	title := m.loadThemes(ctx).Title
	m.logger.Info("final video ready", logging.String("video_url", url), logging.Int("shot_count", len(list)))
	m.notifyVideoReady(ctx, title, url)
	return url, nil
}

func (m *Manager) requireIdleShot(ctx context.Context, shotID string) (*shots.Shot, error) {
	shot, err := m.store.Get(ctx, shotID)
	if err != nil {
		return nil, err
	}
	if shot == nil {
		return nil, services.Wrap(services.ErrNotFound, "workflow", "load shot", shotID, nil)
	}
	if shot.Status == shots.StatusGenerating || shot.Status == shots.StatusRendering {
		return nil, services.Wrap(services.ErrValidation, "workflow", "load shot",
			fmt.Sprintf("shot %d is already %s", shot.Number, shot.Status), nil)
	}
	return shot, nil
}

func (m *Manager) reload(ctx context.Context, shotID string) (shots.Shot, error) {
	shot, err := m.store.Get(ctx, shotID)
	if err != nil {
		return shots.Shot{}, err
	}
	if shot == nil {
		return shots.Shot{}, services.Wrap(services.ErrNotFound, "workflow", "reload shot", shotID, nil)
	}
	return *shot, nil
}

func (m *Manager) loadThemes(ctx context.Context) shots.Themes {
	themes, err := m.store.Themes(ctx)
	if err != nil {
		logging.WarnWithContext(m.logger, "storyboard themes unavailable", "themes_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "code generation runs without theme guidance"),
		)
		return shots.Themes{}
	}
	return themes
}
