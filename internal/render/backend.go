package render

import (
	"context"
	"errors"
	"strings"
)

// Job locates one submitted render on the backend. It is never persisted.
type Job struct {
	ID     string
	Bucket string
	Region string
}

// Status is a single progress report for a Job.
type Status struct {
	Done     bool
	Progress float64
	// OutputFile is the URL of the finished video once Done is set.
	OutputFile string
	Fatal      bool
	// Errors holds the raw error entries reported by the backend. Entries may
	// be strings, objects with a message field, or arbitrary JSON values.
	Errors []any
}

// Segment is one shot in a stitched composition.
type Segment struct {
	ShotID         string `json:"id"`
	Number         int    `json:"shotNumber"`
	Code           string `json:"code"`
	DurationFrames int    `json:"duration"`
}

// Composition describes a multi-shot render with crossfades between segments.
type Composition struct {
	Segments         []Segment `json:"shots"`
	TransitionFrames int       `json:"transitionDuration"`
	TotalFrames      int       `json:"totalDuration"`
	FramesPerSecond  int       `json:"fps"`
}

// Backend is the render service contract.
type Backend interface {
	Submit(ctx context.Context, code string, durationFrames int) (Job, error)
	SubmitComposition(ctx context.Context, comp Composition) (Job, error)
	Progress(ctx context.Context, job Job) (Status, error)
}

// ConfigError reports that the render backend lacks required configuration.
// Callers can offer a reduced-functionality path instead of retrying.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	return "render backend not configured"
}

// IsNotConfiguredMessage reports whether a stored failure message came from
// a ConfigError.
func IsNotConfiguredMessage(msg string) bool {
	return strings.HasPrefix(msg, NotConfiguredPrefix)
}

// IsConfigError reports whether err carries a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
