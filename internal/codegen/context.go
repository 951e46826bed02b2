package codegen

import (
	"encoding/json"
	"strings"

	"shotreel/internal/shots"
)

// VisualTheme keeps colour, typography and motion consistent across shots.
type VisualTheme struct {
	Colors           []string `json:"colors"`
	ColorDescription string   `json:"colorDescription"`
	Typography       string   `json:"typography"`
	AnimationStyle   string   `json:"animationStyle"`
	BackgroundStyle  string   `json:"backgroundStyle"`
	VisualAnchors    []string `json:"visualAnchors,omitempty"`
}

// NarrativeTheme describes the story the shots tell together.
type NarrativeTheme struct {
	CoreMessage      string `json:"coreMessage"`
	StoryArc         string `json:"storyArc"`
	EmotionalJourney string `json:"emotionalJourney"`
	NarrativeStyle   string `json:"narrativeStyle"`
	Tonality         string `json:"tonality"`
}

// NeighborContext summarises the shot before or after the one being generated.
type NeighborContext struct {
	Number      int
	KeyMessage  string
	Description string
}

// ShotContext is everything the generator needs to write one shot.
type ShotContext struct {
	ShotID         string
	Number         int
	TotalShots     int
	Description    string
	VisualElements []string
	DurationFrames int
	PreviousCode   string

	NarrativeRole       string
	NarrativeConnection string
	KeyMessage          string
	EmotionalTone       string

	Visual    *VisualTheme
	Narrative *NarrativeTheme
	Previous  *NeighborContext
	Next      *NeighborContext
}

// IsRevision reports whether the context asks for a modification of existing code.
func (c ShotContext) IsRevision() bool {
	return strings.TrimSpace(c.PreviousCode) != ""
}

// BuildContext assembles the generation context for shot. all must be the
// full storyboard ordered by number; neighbours are taken from it. Theme JSON
// that fails to decode is ignored so a damaged theme never blocks generation.
func BuildContext(shot shots.Shot, all []shots.Shot, themes shots.Themes) ShotContext {
	sc := ShotContext{
		ShotID:              shot.ID,
		Number:              shot.Number,
		TotalShots:          len(all),
		Description:         shot.Description,
		VisualElements:      append([]string(nil), shot.VisualElements...),
		DurationFrames:      shot.DurationFrames,
		PreviousCode:        shot.Code,
		NarrativeRole:       shot.NarrativeRole,
		NarrativeConnection: shot.NarrativeConnection,
		KeyMessage:          shot.KeyMessage,
		EmotionalTone:       shot.EmotionalTone,
		Visual:              DecodeVisualTheme(themes.Visual),
		Narrative:           DecodeNarrativeTheme(themes.Narrative),
	}
	if sc.TotalShots == 0 {
		sc.TotalShots = 1
	}

	for i := range all {
		if all[i].ID != shot.ID {
			continue
		}
		if i > 0 {
			sc.Previous = neighborOf(all[i-1])
		}
		if i < len(all)-1 {
			sc.Next = neighborOf(all[i+1])
		}
		break
	}
	return sc
}

func neighborOf(shot shots.Shot) *NeighborContext {
	return &NeighborContext{
		Number:      shot.Number,
		KeyMessage:  shot.KeyMessage,
		Description: shot.Description,
	}
}

// DecodeVisualTheme parses stored visual theme JSON, returning nil when absent or invalid.
func DecodeVisualTheme(raw json.RawMessage) *VisualTheme {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var theme VisualTheme
	if err := json.Unmarshal(raw, &theme); err != nil {
		return nil
	}
	return &theme
}

// DecodeNarrativeTheme parses stored narrative theme JSON, returning nil when absent or invalid.
func DecodeNarrativeTheme(raw json.RawMessage) *NarrativeTheme {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var theme NarrativeTheme
	if err := json.Unmarshal(raw, &theme); err != nil {
		return nil
	}
	return &theme
}
