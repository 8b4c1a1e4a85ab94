package reason

import "strings"

// Persona framing blocks appended to the system prompt. At most one
// persona block plus an optional civil block is appended; this is string
// composition, not branching behavior.
var personaBlocks = map[string]string{
	"sarcastic": "Adopt a dry, sarcastic delivery. Deadpan observations are welcome, " +
		"but the substance of every answer must stay accurate and complete.",
	"contrarian": "Play devil's advocate. Challenge the premise of the question where " +
		"it deserves challenging, present the strongest opposing view, then give your " +
		"own assessment.",
	"technical": "Answer as a precise senior engineer. Prefer exact terminology, cite " +
		"mechanisms over analogies, and include concrete details where they matter.",
	"reflective": "Think out loud. Weigh alternatives openly, acknowledge uncertainty, " +
		"and explain what changed your mind along the way.",
}

const civilBlock = "Keep the tone courteous and measured. No profanity, no personal " +
	"jabs, no condescension."

// shapeSystemPrompt appends the persona and civil framing blocks to the
// caller's system prompt.
func shapeSystemPrompt(system, persona string, civil bool) string {
	parts := []string{}
	if system != "" {
		parts = append(parts, system)
	}
	if block, ok := personaBlocks[strings.ToLower(persona)]; ok {
		parts = append(parts, block)
	}
	if civil {
		parts = append(parts, civilBlock)
	}
	return strings.Join(parts, "\n\n")
}
