package renderqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"shotreel/internal/classify"
	"shotreel/internal/logging"
	"shotreel/internal/render"
	"shotreel/internal/services"
	"shotreel/internal/shots"
)

const (
	// DefaultSpacing separates consecutive render jobs.
	DefaultSpacing = 3 * time.Second
	// CancelledMessage is reported for entries dropped by Clear.
	CancelledMessage = "Render cancelled"
)

// Renderer renders one shot's code to a video URL.
type Renderer interface {
	SubmitAndAwait(ctx context.Context, code string, durationFrames int, onProgress render.ProgressFunc) (string, error)
}

// Callbacks observe a single entry. Any of them may be nil.
type Callbacks struct {
	OnProgress func(fraction float64)
	OnComplete func(videoURL string)
	OnError    func(message string, verdict classify.Verdict)
}

type entry struct {
	shot      shots.Shot
	callbacks Callbacks
	once      sync.Once
}

// Queue is a single-flight FIFO of shot renders.
type Queue struct {
	renderer Renderer
	logger   *slog.Logger
	spacing  time.Duration
	sleep    func(context.Context, time.Duration) error
	baseCtx  context.Context

	mu         sync.Mutex
	entries    []*entry
	processing bool
	current    string
	idle       chan struct{}
	progress   map[string]float64
	lastErr    map[string]string
}

// Option customizes the queue.
type Option func(*Queue)

// WithSpacing overrides the delay between consecutive jobs.
func WithSpacing(spacing time.Duration) Option {
	return func(q *Queue) {
		if spacing >= 0 {
			q.spacing = spacing
		}
	}
}

// WithSleeper overrides how the queue waits between jobs.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(q *Queue) {
		if sleep != nil {
			q.sleep = sleep
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

// WithContext sets the context the processing loop renders under. When it is
// cancelled the remaining entries are resolved as cancelled.
func WithContext(ctx context.Context) Option {
	return func(q *Queue) {
		if ctx != nil {
			q.baseCtx = ctx
		}
	}
}

// New constructs an idle queue.
func New(renderer Renderer, opts ...Option) *Queue {
	idle := make(chan struct{})
	close(idle)
	q := &Queue{
		renderer: renderer,
		spacing:  DefaultSpacing,
		sleep:    sleepContext,
		baseCtx:  context.Background(),
		idle:     idle,
		progress: make(map[string]float64),
		lastErr:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.logger = logging.NewComponentLogger(q.logger, "renderqueue")
	return q
}

// Enqueue appends a shot. It does not start processing; call Process or
// EnqueueBatch for that.
func (q *Queue) Enqueue(shot shots.Shot, callbacks Callbacks) {
	q.mu.Lock()
	q.entries = append(q.entries, &entry{shot: shot, callbacks: callbacks})
	delete(q.lastErr, shot.ID)
	q.progress[shot.ID] = 0
	depth := len(q.entries)
	q.mu.Unlock()

	q.logger.Debug("shot enqueued",
		logging.String(logging.FieldShotID, shot.ID),
		logging.Int(logging.FieldShotNumber, shot.Number),
		logging.Int("queue_length", depth),
	)
}

// Process starts the worker unless it is already running. The check and the
// flag update happen under one lock so two workers can never start.
func (q *Queue) Process() {
	q.mu.Lock()
	if q.processing || len(q.entries) == 0 {
		q.mu.Unlock()
		return
	}
	q.processing = true
	q.idle = make(chan struct{})
	q.mu.Unlock()

	go q.run()
}

func (q *Queue) run() {
	for {
		q.mu.Lock()
		if len(q.entries) == 0 {
			q.processing = false
			q.current = ""
			close(q.idle)
			q.mu.Unlock()
			return
		}
		if q.baseCtx.Err() != nil {
			dropped := q.entries
			q.entries = nil
			q.mu.Unlock()
			q.cancelEntries(dropped)
			continue
		}
		head := q.entries[0]
		q.current = head.shot.ID
		q.mu.Unlock()

		q.renderEntry(head)

		q.mu.Lock()
		if len(q.entries) > 0 && q.entries[0] == head {
			q.entries = q.entries[1:]
		}
		q.current = ""
		remaining := len(q.entries)
		q.mu.Unlock()

		if remaining > 0 && q.spacing > 0 {
			if err := q.sleep(q.baseCtx, q.spacing); err != nil {
				q.logger.Debug("queue spacing interrupted", logging.Error(err))
			}
		}
	}
}

func (q *Queue) renderEntry(e *entry) {
	ctx := services.WithShotID(q.baseCtx, e.shot.ID)
	ctx = services.WithStage(ctx, "render")
	logger := logging.WithContext(ctx, q.logger)
	logger.Info("render started",
		logging.Int(logging.FieldShotNumber, e.shot.Number),
		logging.Int("duration_frames", e.shot.DurationFrames),
	)

	url, err := q.safeRender(ctx, e)
	if err != nil {
		msg := render.Message(err)
		if render.IsConfigError(err) {
			// Repairing the code cannot fix a missing backend.
			logging.WarnWithContext(logger, "render backend not configured", "render_not_configured",
				logging.String("reason", msg),
				logging.String(logging.FieldErrorHint, "check render.base_url and render.api_token"),
			)
			q.resolveError(e, msg, classify.InfrastructureFault)
			return
		}
		verdict := classify.Classify(msg)
		logger.Warn("render failed",
			logging.String("reason", msg),
			logging.String("verdict", verdict.String()),
			logging.String(logging.FieldEventType, "render_failed"),
		)
		q.resolveError(e, msg, verdict)
		return
	}
	logger.Info("render completed", logging.String("video_url", url))
	q.resolveComplete(e, url)
}

// safeRender runs the renderer, converting a panic into an error so the
// loop always advances.
func (q *Queue) safeRender(ctx context.Context, e *entry) (url string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panicked: %v", r)
		}
	}()
	return q.renderer.SubmitAndAwait(ctx, e.shot.Code, e.shot.DurationFrames, func(fraction float64) {
		q.mu.Lock()
		q.progress[e.shot.ID] = fraction
		q.mu.Unlock()
		if e.callbacks.OnProgress != nil {
			q.guard(e.shot.ID, "progress", func() { e.callbacks.OnProgress(fraction) })
		}
	})
}

func (q *Queue) resolveComplete(e *entry, url string) {
	e.once.Do(func() {
		q.mu.Lock()
		q.progress[e.shot.ID] = 1
		delete(q.lastErr, e.shot.ID)
		q.mu.Unlock()
		if e.callbacks.OnComplete != nil {
			q.guard(e.shot.ID, "complete", func() { e.callbacks.OnComplete(url) })
		}
	})
}

func (q *Queue) resolveError(e *entry, msg string, verdict classify.Verdict) {
	e.once.Do(func() {
		q.mu.Lock()
		q.lastErr[e.shot.ID] = msg
		q.mu.Unlock()
		if e.callbacks.OnError != nil {
			q.guard(e.shot.ID, "error", func() { e.callbacks.OnError(msg, verdict) })
		}
	})
}

func (q *Queue) cancelEntries(dropped []*entry) {
	for _, e := range dropped {
		q.resolveError(e, CancelledMessage, classify.InfrastructureFault)
	}
}

// guard invokes a caller callback, recovering and logging any panic.
func (q *Queue) guard(shotID, kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(q.logger, "queue callback panicked", "callback_panic",
				logging.String(logging.FieldShotID, shotID),
				logging.String("callback", kind),
				logging.Any("panic", r),
			)
		}
	}()
	fn()
}

// Clear drops every pending entry. An in-flight job is not aborted; it
// still reaches its own terminal callback. Dropped entries are resolved
// with CancelledMessage.
func (q *Queue) Clear() int {
	q.mu.Lock()
	var dropped []*entry
	if q.processing && len(q.entries) > 0 && q.entries[0].shot.ID == q.current {
		dropped = append(dropped, q.entries[1:]...)
		q.entries = q.entries[:1]
	} else {
		dropped = q.entries
		q.entries = nil
	}
	q.mu.Unlock()

	q.cancelEntries(dropped)
	if len(dropped) > 0 {
		q.logger.Info("queue cleared", logging.Int("dropped", len(dropped)))
	}
	return len(dropped)
}

// Len returns the number of entries waiting or in flight.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// IsRendering reports whether the worker is running.
func (q *Queue) IsRendering() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processing
}

// CurrentShotID returns the id of the shot being rendered, or "".
func (q *Queue) CurrentShotID() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// Progress returns the most recent progress fraction reported for a shot.
func (q *Queue) Progress(shotID string) (float64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	fraction, ok := q.progress[shotID]
	return fraction, ok
}

// LastError returns the most recent failure message for a shot.
func (q *Queue) LastError(shotID string) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	msg, ok := q.lastErr[shotID]
	return msg, ok
}

// Wait blocks until the worker goes idle or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
