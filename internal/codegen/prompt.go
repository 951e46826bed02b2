package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"shotreel/internal/shots"
)

// SystemPrompt frames every code generation request.
const SystemPrompt = `You write self-contained Remotion video components in TypeScript (TSX).
Export a single default React component that renders the whole shot.
Drive every animation from useCurrentFrame() and useVideoConfig(); never use timers or CSS transitions.
Use interpolate() with strictly increasing inputRange values and clamp extrapolation where values must not overshoot.
Use spring() only with moderate physics (damping 8-15, stiffness 80-120, mass 0.3-1.2).
For custom easing use Easing.bezier(x1, y1, x2, y2) or the Easing.ease, Easing.linear, Easing.quad and Easing.cubic presets.
Only import from "react" and "remotion". Inline every style. Do not load remote assets.
Respond with code only.`

// BuildUserPrompt renders the per-shot request. When the context carries
// previous code the request asks for a revision of that code instead of a
// fresh component.
func BuildUserPrompt(sc ShotContext) string {
	var b strings.Builder

	if sc.IsRevision() {
		b.WriteString("Current component code:\n\n```tsx\n")
		b.WriteString(sc.PreviousCode)
		b.WriteString("\n```\n\nPlease modify it according to this request:\n\n")
	} else {
		b.WriteString("Create a Remotion video component for:\n\n")
	}

	b.WriteString("Shot Description: ")
	b.WriteString(sc.Description)
	b.WriteString("\n\nVisual Elements:\n")
	for i, element := range sc.VisualElements {
		fmt.Fprintf(&b, "%d. %s\n", i+1, element)
	}
	fmt.Fprintf(&b, "\nDuration: EXACTLY %d frames (%s seconds at %dfps)\n\n",
		sc.DurationFrames, formatSeconds(sc.DurationFrames), shots.FramesPerSecond)
	fmt.Fprintf(&b, "This is shot %d of %d in a multi-shot video sequence.", sc.Number, sc.TotalShots)

	if sc.Narrative != nil {
		writeNarrativeBlock(&b, sc)
	}
	if sc.Visual != nil {
		writeVisualBlock(&b, sc)
	}

	if sc.IsRevision() {
		b.WriteString("\n\nReturn ONLY the updated component code, no explanations.")
	} else {
		b.WriteString("\n\nMake this shot carry its part of the story while staying consistent with the rest of the sequence. Return ONLY the component code, no explanations.")
	}
	return b.String()
}

func writeNarrativeBlock(b *strings.Builder, sc ShotContext) {
	n := sc.Narrative
	b.WriteString("\n\nNARRATIVE CONSISTENCY (CRITICAL):\n")
	b.WriteString("This shot belongs to one story. Keep it coherent with the whole video.\n\n")
	fmt.Fprintf(b, "Core message of the video: %s\n", n.CoreMessage)
	fmt.Fprintf(b, "Story arc: %s\n", n.StoryArc)
	fmt.Fprintf(b, "Emotional journey: %s\n\n", n.EmotionalJourney)
	fmt.Fprintf(b, "Role of this shot: %s\n", orDefault(sc.NarrativeRole, "Advance the story"))
	if strings.TrimSpace(sc.NarrativeConnection) != "" {
		fmt.Fprintf(b, "Connection to the previous shot: %s\n", sc.NarrativeConnection)
	}
	fmt.Fprintf(b, "Key message of this shot: %s\n", orDefault(sc.KeyMessage, "Continue the narrative"))
	fmt.Fprintf(b, "Emotional tone: %s\n", orDefault(sc.EmotionalTone, "Continue the emotional progression"))

	if p := sc.Previous; p != nil {
		fmt.Fprintf(b, "\nPrevious shot (%d): %q\n%s\nBuild on it instead of repeating it.\n", p.Number, p.KeyMessage, p.Description)
	}
	if next := sc.Next; next != nil {
		fmt.Fprintf(b, "\nNext shot (%d): %q\n%s\nSet up the transition into it.\n", next.Number, next.KeyMessage, next.Description)
	}

	fmt.Fprintf(b, "\nNarrative style: %s\n", n.NarrativeStyle)
	fmt.Fprintf(b, "Tonality: %s\n", n.Tonality)
	b.WriteString("\nEvery element on screen must serve the narrative and the intended emotion.")
}

func writeVisualBlock(b *strings.Builder, sc ShotContext) {
	v := sc.Visual
	b.WriteString("\n\nVISUAL CONSISTENCY (CRITICAL):\n")
	fmt.Fprintf(b, "This shot is one of %d sharing a single visual theme.\n\n", sc.TotalShots)
	fmt.Fprintf(b, "Color palette (use only these): %s\n", strings.Join(v.Colors, ", "))
	fmt.Fprintf(b, "Color scheme: %s\n", v.ColorDescription)
	fmt.Fprintf(b, "Typography: %s\n", v.Typography)
	fmt.Fprintf(b, "Animation style: %s\n", v.AnimationStyle)
	fmt.Fprintf(b, "Background style: %s\n", v.BackgroundStyle)
	if len(v.VisualAnchors) > 0 {
		fmt.Fprintf(b, "Visual anchors (must appear): %s\n", strings.Join(v.VisualAnchors, ", "))
	}
	b.WriteString("\nDo not introduce colors or styles outside this theme.")
}

func formatSeconds(frames int) string {
	return strconv.FormatFloat(float64(frames)/shots.FramesPerSecond, 'f', -1, 64)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
