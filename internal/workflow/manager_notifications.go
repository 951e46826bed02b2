package workflow

import (
	"context"
	"errors"

	"shotreel/internal/logging"
	"shotreel/internal/shots"
)

func (m *Manager) notifyShotCompleted(ctx context.Context, shot *shots.Shot) {
	m.logNotifyError(m.notifier.NotifyShotCompleted(ctx, shot.Number, shot.VideoURL), "shot completion")
}

func (m *Manager) notifyShotFailed(ctx context.Context, shot *shots.Shot) {
	m.logNotifyError(m.notifier.NotifyShotFailed(ctx, shot.Number, shot.Error), "shot failure")
}

func (m *Manager) notifyRunFinished(ctx context.Context, summary Summary) {
	m.logNotifyError(m.notifier.NotifyRenderFinished(ctx, summary.Complete, summary.Failed, summary.Duration), "render finished")
}

func (m *Manager) notifyVideoReady(ctx context.Context, title, url string) {
	m.logNotifyError(m.notifier.NotifyVideoReady(ctx, title, url), "video ready")
}

func (m *Manager) notifyError(ctx context.Context, err error, label string) {
	m.logNotifyError(m.notifier.NotifyError(ctx, err, label), "error")
}

func (m *Manager) logNotifyError(err error, kind string) {
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		m.logger.Debug("shutting down, notification not sent", logging.String("notification", kind))
		return
	}
	m.logger.Debug("notification failed", logging.String("notification", kind), logging.Error(err))
}
