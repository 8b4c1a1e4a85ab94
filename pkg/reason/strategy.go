package reason

import (
	"fmt"
	"strings"
	"unicode"
)

// strategy describes how one reasoning mode shapes the prompt and maps the
// model response.
type strategy struct {
	scaffold   string
	kind       Kind
	confidence float64
}

// strategies is the closed dispatch table. ModeToolUse is absent: tool-use
// requests never reach strategy dispatch.
var strategies = map[Mode]strategy{
	ModeSingleShot: {
		kind:       KindDirectResponse,
		confidence: 0.7,
	},
	ModeChainOfThought: {
		scaffold:   "Think step by step. Number each step of your reasoning before giving the final answer.",
		kind:       KindMultiStep,
		confidence: 0.75,
	},
	ModeTreeOfThought: {
		scaffold:   "Enumerate several distinct solution branches, evaluate each briefly, then choose the best one and answer.",
		kind:       KindMultiStep,
		confidence: 0.7,
	},
	ModeReflexion: {
		scaffold:   "Answer the question, then critique your own answer and provide an improved final version.",
		kind:       KindMultiStep,
		confidence: 0.8,
	},
}

func (s strategy) shapePrompt(prompt string) string {
	if s.scaffold == "" {
		return prompt
	}
	return prompt + "\n\n" + s.scaffold
}

// parseSteps extracts a best-effort step trace from a model response for
// multi-step modes: lines starting with a number become steps, everything
// else stays in the surrounding content.
func parseSteps(content string, confidence float64) []Step {
	var steps []Step
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || !unicode.IsDigit(rune(trimmed[0])) {
			continue
		}
		thought := strings.TrimLeft(trimmed, "0123456789")
		thought = strings.TrimLeft(thought, ".):- ")
		steps = append(steps, Step{
			Index:      len(steps),
			Thought:    thought,
			Confidence: confidence,
		})
	}
	return steps
}

// callSignature renders a pipeline tool call for the step trace.
func callSignature(tool string, index int) string {
	return fmt.Sprintf("%s#%d", tool, index)
}
