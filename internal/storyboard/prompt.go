package storyboard

import "fmt"

// SystemPrompt frames storyboard requests.
const SystemPrompt = `You plan short animated explainer and promo videos.
Split the requested video into 3 to 8 shots that tell one coherent story.
Each shot is rendered independently as a Remotion component, so describe each one completely.
Answer with a single JSON object and nothing else.`

// BuildPrompt renders the storyboard request for a user prompt.
func BuildPrompt(prompt string) string {
	return fmt.Sprintf(`Video request: %s

Return JSON with this shape:
{
  "visualTheme": {
    "colors": ["#hex", "..."],
    "colorDescription": "how the palette is used",
    "typography": "font style",
    "animationStyle": "motion approach",
    "backgroundStyle": "background treatment",
    "visualAnchors": ["element that appears in every shot"]
  },
  "narrativeTheme": {
    "coreMessage": "what the whole video says",
    "storyArc": "structure, e.g. problem -> solution -> call to action",
    "emotionalJourney": "how the viewer should feel over time",
    "narrativeStyle": "storytelling approach",
    "tonality": "voice and tone"
  },
  "shots": [
    {
      "shotNumber": 1,
      "description": "what happens on screen",
      "visualElements": ["element", "..."],
      "suggestedDuration": 3,
      "narrativeRole": "role in the story",
      "narrativeConnection": "how it follows the previous shot",
      "keyMessage": "takeaway of this shot",
      "emotionalTone": "emotion to evoke"
    }
  ],
  "totalDuration": 15
}

suggestedDuration and totalDuration are in seconds. Keep each shot between 2 and 6 seconds.`, prompt)
}
