package renderqueue

import (
	"context"

	"golang.org/x/sync/errgroup"

	"shotreel/internal/classify"
	"shotreel/internal/logging"
	"shotreel/internal/shots"
)

// Batch tracks a group of entries enqueued together.
type Batch struct {
	size int
	done chan struct{}
}

// Size returns the number of shots in the batch.
func (b *Batch) Size() int {
	return b.size
}

// Done is closed after the batch completion callback has returned.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until every shot in the batch has a terminal outcome.
func (b *Batch) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnqueueBatch enqueues every shot and starts the worker if it is idle.
// onShotComplete and onShotError fire per shot; onAllComplete fires exactly
// once after every shot has reached one of them. An empty batch completes
// immediately.
func (q *Queue) EnqueueBatch(
	batch []shots.Shot,
	onAllComplete func(),
	onShotComplete func(shotID, videoURL string),
	onShotError func(shotID, message string, verdict classify.Verdict),
) *Batch {
	b := &Batch{size: len(batch), done: make(chan struct{})}

	var group errgroup.Group
	for _, shot := range batch {
		outcome := make(chan struct{})
		shotID := shot.ID
		q.Enqueue(shot, Callbacks{
			OnComplete: func(url string) {
				defer close(outcome)
				if onShotComplete != nil {
					onShotComplete(shotID, url)
				}
			},
			OnError: func(msg string, verdict classify.Verdict) {
				defer close(outcome)
				if onShotError != nil {
					onShotError(shotID, msg, verdict)
				}
			},
		})
		group.Go(func() error {
			<-outcome
			return nil
		})
	}

	go func() {
		_ = group.Wait()
		if onAllComplete != nil {
			q.guard("", "batch", onAllComplete)
		}
		q.logger.Debug("batch complete", logging.Int("size", b.size))
		close(b.done)
	}()

	q.Process()
	return b
}
