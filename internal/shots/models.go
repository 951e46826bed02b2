package shots

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FramesPerSecond is the fixed frame rate of every shot.
const FramesPerSecond = 30

// Status represents the lifecycle of a shot.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusCodeReady  Status = "code_ready"
	StatusRendering  Status = "rendering"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

var allStatuses = []Status{
	StatusPending,
	StatusGenerating,
	StatusCodeReady,
	StatusRendering,
	StatusComplete,
	StatusError,
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether the status ends a render attempt.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusGenerating, StatusError},
	StatusGenerating: {StatusCodeReady, StatusError},
	StatusCodeReady:  {StatusRendering, StatusGenerating, StatusError},
	StatusRendering:  {StatusComplete, StatusError},
	StatusComplete:   {StatusGenerating, StatusRendering},
	StatusError:      {StatusGenerating, StatusRendering, StatusError},
}

// ValidTransition reports whether a shot may move from one status to another.
// error -> error is allowed so a later failure can replace the message.
func ValidTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Shot is one independently generated and rendered segment of the video.
type Shot struct {
	ID             string
	Number         int
	Description    string
	VisualElements []string
	DurationFrames int
	Code           string
	VideoURL       string
	Status         Status
	Error          string

	NarrativeRole       string
	NarrativeConnection string
	KeyMessage          string
	EmotionalTone       string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DurationSeconds returns the shot length at the fixed frame rate.
func (s Shot) DurationSeconds() float64 {
	return float64(s.DurationFrames) / FramesPerSecond
}

// HasCode reports whether generated code is present.
func (s Shot) HasCode() bool {
	return strings.TrimSpace(s.Code) != ""
}

// Validate checks the status/artifact invariants of a single shot.
func (s Shot) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("shot id is required")
	}
	if _, ok := ParseStatus(string(s.Status)); !ok {
		return fmt.Errorf("shot %s: unknown status %q", s.ID, s.Status)
	}
	if s.DurationFrames <= 0 {
		return fmt.Errorf("shot %s: duration must be positive, got %d frames", s.ID, s.DurationFrames)
	}
	hasURL := strings.TrimSpace(s.VideoURL) != ""
	switch s.Status {
	case StatusPending, StatusGenerating:
		if hasURL {
			return fmt.Errorf("shot %s: %s shot cannot carry a video url", s.ID, s.Status)
		}
	case StatusCodeReady, StatusRendering:
		if !s.HasCode() {
			return fmt.Errorf("shot %s: %s shot requires code", s.ID, s.Status)
		}
	case StatusComplete:
		if !s.HasCode() || !hasURL {
			return fmt.Errorf("shot %s: complete shot requires code and video url", s.ID)
		}
	}
	if s.Status == StatusError && strings.TrimSpace(s.Error) == "" {
		return fmt.Errorf("shot %s: error shot requires a message", s.ID)
	}
	if s.Status != StatusError && s.Error != "" {
		return fmt.Errorf("shot %s: error message present in %s state", s.ID, s.Status)
	}
	return nil
}

// Themes holds the storyboard-wide visual and narrative themes. They are
// stored as opaque JSON and forwarded to code generation unchanged.
type Themes struct {
	Prompt    string
	Title     string
	Visual    json.RawMessage
	Narrative json.RawMessage
	UpdatedAt time.Time
}
