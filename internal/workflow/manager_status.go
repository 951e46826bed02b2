package workflow

import (
	"context"
	"fmt"
	"time"

	"shotreel/internal/shots"
)

// Summary describes the outcome of a pipeline run.
type Summary struct {
	Total    int
	Complete int
	Failed   int
	Duration time.Duration
	Shots    []shots.Shot
}

// StatusSummary is a point-in-time view of the pipeline.
type StatusSummary struct {
	Counts        map[shots.Status]int
	QueueLength   int
	Rendering     bool
	CurrentShotID string
	Repairing     int
	Attempts      map[string]int
}

// Status reports shot counts and live pipeline activity.
func (m *Manager) Status(ctx context.Context) (StatusSummary, error) {
	counts, err := m.store.Counts(ctx)
	if err != nil {
		return StatusSummary{}, fmt.Errorf("count shots: %w", err)
	}
	return StatusSummary{
		Counts:        counts,
		QueueLength:   m.queue.Len(),
		Rendering:     m.queue.IsRendering(),
		CurrentShotID: m.queue.CurrentShotID(),
		Repairing:     m.autofix.Active(),
		Attempts:      m.autofix.Ledger().Snapshot(),
	}, nil
}

func (m *Manager) summarize(ctx context.Context, start time.Time) (Summary, error) {
	list, err := m.store.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list shots: %w", err)
	}
	summary := Summary{Total: len(list), Duration: time.Since(start), Shots: list}
	for _, shot := range list {
		switch shot.Status {
		case shots.StatusComplete:
			summary.Complete++
		case shots.StatusError:
			summary.Failed++
		}
	}
	return summary, nil
}
