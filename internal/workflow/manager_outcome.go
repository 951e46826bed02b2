package workflow

import (
	"context"
	"errors"

	"shotreel/internal/classify"
	"shotreel/internal/codegen"
	"shotreel/internal/logging"
	"shotreel/internal/render"
	"shotreel/internal/services"
	"shotreel/internal/shots"
)

// enqueue submits a shot that is already in the rendering state as a
// single-shot batch.
func (m *Manager) enqueue(shot shots.Shot) {
	m.queue.EnqueueBatch([]shots.Shot{shot}, nil, m.handleShotComplete, m.handleShotError)
}

// Resubmit moves a repaired shot back to rendering and queues it at the tail.
func (m *Manager) Resubmit(ctx context.Context, shot shots.Shot) error {
	rendering, err := m.store.MarkRendering(ctx, shot.ID)
	if err != nil {
		return err
	}
	m.logger.Info("shot resubmitted for render",
		logging.String(logging.FieldShotID, shot.ID),
		logging.Int(logging.FieldShotNumber, rendering.Number),
	)
	m.enqueue(*rendering)
	return nil
}

// outcomeContext carries the base context's values without its
// cancellation, so a shot's outcome is recorded even after an interrupt.
func (m *Manager) outcomeContext(shotID string) context.Context {
	return services.WithShotID(context.WithoutCancel(m.baseCtx), shotID)
}

func (m *Manager) handleShotComplete(shotID, videoURL string) {
	ctx := m.outcomeContext(shotID)
	logger := logging.WithContext(ctx, m.logger)

	shot, err := m.store.MarkComplete(ctx, shotID, videoURL)
	if err != nil {
		logging.ErrorWithContext(logger, "failed to record rendered shot", "shot_update_failed",
			logging.Error(err),
			logging.String("video_url", videoURL),
		)
		return
	}
	m.autofix.Ledger().Clear(shotID)
	logger.Info("shot rendered",
		logging.Int(logging.FieldShotNumber, shot.Number),
		logging.String("video_url", videoURL),
	)
	m.notifyShotCompleted(ctx, shot)
}

func (m *Manager) handleShotError(shotID, message string, verdict classify.Verdict) {
	ctx := m.outcomeContext(shotID)
	logger := logging.WithContext(ctx, m.logger)

	interrupted := m.baseCtx.Err() != nil
	if interrupted {
		message = shots.InterruptedMessage
	}

	shot, err := m.store.MarkError(ctx, shotID, message)
	if err != nil {
		logging.ErrorWithContext(logger, "failed to record render failure", "shot_update_failed",
			logging.Error(err),
			logging.String("reason", message),
		)
		return
	}

	if interrupted {
		logging.WarnWithContext(logger, "render interrupted", "render_interrupted",
			logging.Int(logging.FieldShotNumber, shot.Number),
			logging.String(logging.FieldErrorHint, "run shotreel retry for this shot"),
		)
		return
	}

	if verdict == classify.CodeDefect && m.cfg.Pipeline.AutoFix {
		logger.Info("render failed on a code defect; attempting auto-fix",
			logging.Int(logging.FieldShotNumber, shot.Number),
			logging.String("reason", message),
			logging.Int("attempts_used", m.autofix.Ledger().Count(shotID)),
		)
		m.autofix.AttemptFix(m.baseCtx, shotID, message)
		return
	}

	hint := "retry the render once the backend is healthy"
	if render.IsNotConfiguredMessage(message) {
		hint = "set render.base_url and render.api_token, then retry the render"
	}
	logging.WarnWithContext(logger, "shot render failed", "render_failed",
		logging.Int(logging.FieldShotNumber, shot.Number),
		logging.String("reason", message),
		logging.String("classification", verdict.String()),
		logging.String(logging.FieldErrorHint, hint),
		logging.String(logging.FieldImpact, "shot needs a manual retry"),
	)
	m.notifyShotFailed(ctx, shot)
}

// failGeneration records a code generation failure for a shot.
func (m *Manager) failGeneration(ctx context.Context, shotID string, genErr error) {
	interrupted := ctx.Err() != nil
	ctx = context.WithoutCancel(ctx)
	message := generationMessage(genErr)
	if interrupted {
		message = shots.InterruptedMessage
	}
	shot, err := m.store.MarkError(ctx, shotID, message)
	if err != nil {
		logging.ErrorWithContext(m.logger, "failed to record generation failure", "shot_update_failed",
			logging.String(logging.FieldShotID, shotID),
			logging.Error(err),
		)
		return
	}
	if interrupted {
		return
	}
	m.notifyShotFailed(ctx, shot)
}

func generationMessage(err error) string {
	var streamErr *codegen.StreamError
	if errors.As(err, &streamErr) {
		return streamErr.Message
	}
	return err.Error()
}
