package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shotreel/internal/logging"
	"shotreel/internal/services"
)

const (
	// DefaultPollInterval separates consecutive progress polls.
	DefaultPollInterval = 3 * time.Second
	// ShotMaxPolls caps polling for a single-shot render.
	ShotMaxPolls = 120
	// StitchMaxPolls caps polling for a stitched composition.
	StitchMaxPolls = 200

	msgStartFailed    = "Failed to start render"
	msgProgressFailed = "Failed to get render progress"
	msgRenderFailed   = "Render failed"
	msgTimeout        = "Render timeout"
)

// ProgressFunc receives a progress fraction in [0,1].
type ProgressFunc func(fraction float64)

// Client submits render jobs and polls them to a terminal outcome.
type Client struct {
	backend      Backend
	logger       *slog.Logger
	pollInterval time.Duration
	maxPolls     int
	sleeper      func(context.Context, time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithPollInterval overrides the delay between progress polls.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval >= 0 {
			c.pollInterval = interval
		}
	}
}

// WithMaxPolls overrides the single-shot poll cap.
func WithMaxPolls(maxPolls int) Option {
	return func(c *Client) {
		if maxPolls > 0 {
			c.maxPolls = maxPolls
		}
	}
}

// WithSleeper overrides how the client waits between polls.
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs a render client over the supplied backend.
func NewClient(backend Backend, opts ...Option) *Client {
	c := &Client{
		backend:      backend,
		pollInterval: DefaultPollInterval,
		maxPolls:     ShotMaxPolls,
		sleeper:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "render")
	return c
}

// Backend exposes the underlying backend for composition submissions.
func (c *Client) Backend() Backend {
	return c.backend
}

// SubmitAndAwait renders code of the given length and returns the video URL.
// Failures carry a human-readable message suitable for classification.
func (c *Client) SubmitAndAwait(ctx context.Context, code string, durationFrames int, onProgress ProgressFunc) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", services.Wrap(services.ErrValidation, "render", "submit", "shot code is empty", nil)
	}
	if durationFrames <= 0 {
		return "", services.Wrap(services.ErrValidation, "render", "submit",
			fmt.Sprintf("duration must be positive, got %d frames", durationFrames), nil)
	}

	job, err := c.backend.Submit(ctx, code, durationFrames)
	if err != nil {
		if IsConfigError(err) {
			return "", err
		}
		return "", &Failure{Message: failureMessage(err, msgStartFailed), cause: err}
	}
	logging.WithContext(ctx, c.logger).Info("render submitted",
		logging.String("render_id", job.ID),
		logging.Int("duration_frames", durationFrames),
	)
	return c.AwaitJob(ctx, job, c.maxPolls, onProgress)
}

// SubmitCompositionAndAwait renders a multi-shot composition and returns
// the video URL. Polling stops after maxPolls attempts.
func (c *Client) SubmitCompositionAndAwait(ctx context.Context, comp Composition, maxPolls int, onProgress ProgressFunc) (string, error) {
	if len(comp.Segments) == 0 {
		return "", services.Wrap(services.ErrValidation, "render", "submit composition", "composition has no segments", nil)
	}
	job, err := c.backend.SubmitComposition(ctx, comp)
	if err != nil {
		if IsConfigError(err) {
			return "", err
		}
		return "", &Failure{Message: failureMessage(err, msgStartFailed), cause: err}
	}
	logging.WithContext(ctx, c.logger).Info("composition submitted",
		logging.String("render_id", job.ID),
		logging.Int("segments", len(comp.Segments)),
		logging.Int("total_frames", comp.TotalFrames),
	)
	return c.AwaitJob(ctx, job, maxPolls, onProgress)
}

// AwaitJob polls job until it finishes, fails, or maxPolls is exhausted.
func (c *Client) AwaitJob(ctx context.Context, job Job, maxPolls int, onProgress ProgressFunc) (string, error) {
	if maxPolls <= 0 {
		maxPolls = c.maxPolls
	}
	logger := logging.WithContext(ctx, c.logger).With(logging.String("render_id", job.ID))
	sampler := logging.NewProgressSampler(25)

	for attempt := 1; attempt <= maxPolls; attempt++ {
		status, err := c.backend.Progress(ctx, job)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			return "", &Failure{Message: msgProgressFailed, cause: err}
		}

		fraction := clamp(status.Progress)
		if onProgress != nil {
			onProgress(fraction)
		}
		if sampler.ShouldLog(fraction*100, "render") {
			logger.Debug("render progress", logging.Float64("progress", fraction), logging.Int("poll", attempt))
		}

		if status.Done && strings.TrimSpace(status.OutputFile) != "" {
			logger.Info("render finished", logging.String("output_file", status.OutputFile), logging.Int("polls", attempt))
			return status.OutputFile, nil
		}
		if status.Fatal {
			msg := firstErrorMessage(status.Errors)
			logger.Warn("render reported fatal error",
				logging.String("reason", msg),
				logging.String(logging.FieldEventType, "render_fatal"),
			)
			return "", &Failure{Message: msg}
		}

		if err := c.sleeper(ctx, c.pollInterval); err != nil {
			return "", err
		}
	}

	logging.WarnWithContext(logger, "render poll cap reached", "render_timeout",
		logging.Int("max_polls", maxPolls),
		logging.String(logging.FieldErrorHint, "retry the shot once the render backend is healthy"),
		logging.String(logging.FieldImpact, "shot marked as failed"),
	)
	return "", &Failure{Message: msgTimeout, cause: services.ErrTimeout}
}

// Failure is a render outcome reported by the backend. Its message is what
// users see and what the failure classifier inspects.
type Failure struct {
	Message string
	cause   error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.cause }

// NotConfiguredPrefix starts every message produced from a ConfigError so
// stored shot errors can be told apart from ordinary render failures.
const NotConfiguredPrefix = "Render backend not configured: "

// Message extracts the user-facing message from a render error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return NotConfiguredPrefix + cfgErr.Error()
	}
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Message
	}
	return err.Error()
}

func failureMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return strings.TrimSpace(apiErr.Message)
	}
	return fallback
}

// firstErrorMessage renders the first backend error entry: strings verbatim,
// objects by their message field, anything else as JSON.
func firstErrorMessage(entries []any) string {
	if len(entries) == 0 || entries[0] == nil {
		return msgRenderFailed
	}
	switch v := entries[0].(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return msgRenderFailed
		}
		return v
	case map[string]any:
		if msg, ok := v["message"].(string); ok && msg != "" {
			return msg
		}
	}
	encoded, err := json.Marshal(entries[0])
	if err != nil {
		return msgRenderFailed
	}
	return string(encoded)
}

func clamp(fraction float64) float64 {
	switch {
	case fraction != fraction, fraction < 0:
		return 0
	case fraction > 1:
		return 1
	default:
		return fraction
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
