package reason

import "strings"

// toolVocabulary is the fixed set of action words whose presence in a
// prompt suggests the request needs concrete tool execution rather than a
// pure text answer.
var toolVocabulary = []string{
	"read",
	"write",
	"execute",
	"run",
	"search",
	"fetch",
	"download",
	"browse",
	"open",
	"create",
	"delete",
	"move",
	"copy",
	"list",
	"analyze",
	"install",
}

// needsTools scans the prompt case-insensitively for the tool vocabulary.
// Only called when the surrounding application declared tools available; a
// match routes to tool-use handling regardless of the selected mode.
func needsTools(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, word := range toolVocabulary {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
