package provider

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RepairHistory validates a multi-turn history for providers with
// tool-result semantics: every assistant turn carrying tool calls must be
// followed by a tool turn answering each call. Missing result turns are
// synthesized with placeholder content so the upstream API does not reject
// the sequence. The input slice is not modified.
func RepairHistory(history []Message) []Message {
	repaired := make([]Message, 0, len(history))
	for i, msg := range history {
		repaired = append(repaired, msg)
		if msg.Role != RoleAssistant || len(msg.ToolCalls) == 0 {
			continue
		}

		answered := map[string]bool{}
		if i+1 < len(history) && history[i+1].Role == RoleTool {
			for _, res := range history[i+1].ToolResults {
				answered[res.CallID] = true
			}
		}

		var missing []ToolResult
		for _, call := range msg.ToolCalls {
			if !answered[call.ID] {
				missing = append(missing, ToolResult{
					CallID:  call.ID,
					Content: fmt.Sprintf("tool %s produced no recorded result", call.Name),
					IsError: true,
				})
			}
		}
		if len(missing) == 0 {
			continue
		}

		if i+1 < len(history) && history[i+1].Role == RoleTool {
			// Existing result turn is incomplete; merge the placeholders in.
			next := history[i+1]
			next.ToolResults = append(append([]ToolResult{}, next.ToolResults...), missing...)
			repaired = append(repaired, next)
			continue
		}
		repaired = append(repaired, Message{Role: RoleTool, ToolResults: missing})
	}

	// Drop originals that were replaced by merged copies.
	return dedupeToolTurns(repaired)
}

func dedupeToolTurns(msgs []Message) []Message {
	out := msgs[:0:0]
	for i, msg := range msgs {
		if i > 0 && msg.Role == RoleTool && msgs[i-1].Role == RoleTool {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// flattenMessage renders a turn as plain text, including any tool calls
// and results, for providers whose request format is text-only.
func flattenMessage(msg Message) string {
	var sb strings.Builder
	sb.WriteString(msg.Content)
	for _, call := range msg.ToolCalls {
		input, _ := json.Marshal(call.Input)
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[tool call %s: %s(%s)]", call.ID, call.Name, input)
	}
	for _, res := range msg.ToolResults {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		status := "ok"
		if res.IsError {
			status = "error"
		}
		fmt.Fprintf(&sb, "[tool result %s (%s): %s]", res.CallID, status, res.Content)
	}
	return sb.String()
}
