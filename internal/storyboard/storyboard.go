package storyboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"shotreel/internal/codegen"
	"shotreel/internal/logging"
	"shotreel/internal/services"
	"shotreel/internal/services/llm"
	"shotreel/internal/shots"
)

// Descriptor is one shot as proposed by the model.
type Descriptor struct {
	Number              int      `json:"shotNumber"`
	Description         string   `json:"description"`
	VisualElements      []string `json:"visualElements"`
	SuggestedDuration   float64  `json:"suggestedDuration"`
	NarrativeRole       string   `json:"narrativeRole,omitempty"`
	NarrativeConnection string   `json:"narrativeConnection,omitempty"`
	KeyMessage          string   `json:"keyMessage,omitempty"`
	EmotionalTone       string   `json:"emotionalTone,omitempty"`
}

// Storyboard is the decoded model answer.
type Storyboard struct {
	Prompt        string                  `json:"-"`
	Visual        *codegen.VisualTheme    `json:"visualTheme,omitempty"`
	Narrative     *codegen.NarrativeTheme `json:"narrativeTheme,omitempty"`
	Descriptors   []Descriptor            `json:"shots"`
	TotalDuration float64                 `json:"totalDuration"`
}

// Validate rejects storyboards that cannot be turned into shots.
func (s Storyboard) Validate() error {
	if len(s.Descriptors) == 0 {
		return services.Wrap(services.ErrValidation, "storyboard", "validate", "storyboard has no shots", nil)
	}
	for i, d := range s.Descriptors {
		if strings.TrimSpace(d.Description) == "" {
			return services.Wrap(services.ErrValidation, "storyboard", "validate",
				fmt.Sprintf("shot %d has no description", i+1), nil)
		}
		if durationFrames(d.SuggestedDuration) <= 0 {
			return services.Wrap(services.ErrValidation, "storyboard", "validate",
				fmt.Sprintf("shot %d has non-positive duration %v", i+1, d.SuggestedDuration), nil)
		}
	}
	return nil
}

// Shots converts the descriptors into pending shot records with fresh ids.
// Suggested durations in seconds become frames at the fixed frame rate.
func (s Storyboard) Shots() []shots.Shot {
	out := make([]shots.Shot, 0, len(s.Descriptors))
	for i, d := range s.Descriptors {
		out = append(out, shots.Shot{
			ID:                  uuid.NewString(),
			Number:              i + 1,
			Description:         strings.TrimSpace(d.Description),
			VisualElements:      append([]string(nil), d.VisualElements...),
			DurationFrames:      durationFrames(d.SuggestedDuration),
			Status:              shots.StatusPending,
			NarrativeRole:       d.NarrativeRole,
			NarrativeConnection: d.NarrativeConnection,
			KeyMessage:          d.KeyMessage,
			EmotionalTone:       d.EmotionalTone,
		})
	}
	return out
}

// Themes encodes the storyboard themes for storage.
func (s Storyboard) Themes() (shots.Themes, error) {
	themes := shots.Themes{Prompt: s.Prompt, Title: s.title()}
	if s.Visual != nil {
		raw, err := json.Marshal(s.Visual)
		if err != nil {
			return shots.Themes{}, fmt.Errorf("encode visual theme: %w", err)
		}
		themes.Visual = raw
	}
	if s.Narrative != nil {
		raw, err := json.Marshal(s.Narrative)
		if err != nil {
			return shots.Themes{}, fmt.Errorf("encode narrative theme: %w", err)
		}
		themes.Narrative = raw
	}
	return themes, nil
}

func (s Storyboard) title() string {
	if s.Narrative != nil && strings.TrimSpace(s.Narrative.CoreMessage) != "" {
		return strings.TrimSpace(s.Narrative.CoreMessage)
	}
	title := strings.TrimSpace(s.Prompt)
	if len(title) > 80 {
		title = strings.TrimSpace(title[:80]) + "..."
	}
	return title
}

func durationFrames(seconds float64) int {
	return int(math.Round(seconds * shots.FramesPerSecond))
}

// Completer is the language model surface the generator needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Generator produces storyboards from free-form prompts.
type Generator struct {
	client Completer
	logger *slog.Logger
}

// NewGenerator builds a storyboard generator.
func NewGenerator(client Completer, logger *slog.Logger) *Generator {
	return &Generator{client: client, logger: logging.NewComponentLogger(logger, "storyboard")}
}

// Generate requests a storyboard for prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (Storyboard, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Storyboard{}, services.Wrap(services.ErrValidation, "storyboard", "generate", "prompt is required", nil)
	}
	if g == nil || g.client == nil {
		return Storyboard{}, services.Wrap(services.ErrConfiguration, "storyboard", "generate", "language model client not configured", nil)
	}

	ctx = services.WithStage(ctx, "storyboard")
	logger := logging.WithContext(ctx, g.logger)
	logger.Info("generating storyboard", logging.Int("prompt_chars", len(prompt)))

	content, err := g.client.CompleteJSON(ctx, SystemPrompt, BuildPrompt(prompt))
	if err != nil {
		return Storyboard{}, services.Wrap(services.ErrExternalTool, "storyboard", "complete", "language model request failed", err)
	}

	var sb Storyboard
	if err := llm.DecodeLLMJSON(content, &sb); err != nil {
		return Storyboard{}, services.Wrap(services.ErrExternalTool, "storyboard", "decode", "could not parse storyboard", err)
	}
	sb.Prompt = prompt
	if err := sb.Validate(); err != nil {
		return Storyboard{}, err
	}

	logger.Info("storyboard generated",
		logging.Int("shot_count", len(sb.Descriptors)),
		logging.Float64("total_seconds", sb.TotalDuration),
		logging.Bool("visual_theme", sb.Visual != nil),
		logging.Bool("narrative_theme", sb.Narrative != nil),
	)
	return sb, nil
}

var _ Completer = (*llm.Client)(nil)
