package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairHistory_CompleteSequenceUntouched(t *testing.T) {
	history := []Message{
		{Role: RoleUser, Content: "list my files"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "list_files"}}},
		{Role: RoleTool, ToolResults: []ToolResult{{CallID: "c1", Content: "a.txt b.txt"}}},
		{Role: RoleAssistant, Content: "You have two files."},
	}

	assert.Equal(t, history, RepairHistory(history))
}

func TestRepairHistory_SynthesizesMissingResultTurn(t *testing.T) {
	history := []Message{
		{Role: RoleUser, Content: "read it"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "read_file"}}},
		{Role: RoleUser, Content: "what did it say?"},
	}

	repaired := RepairHistory(history)
	require.Len(t, repaired, 4)
	assert.Equal(t, RoleTool, repaired[2].Role)
	require.Len(t, repaired[2].ToolResults, 1)
	assert.Equal(t, "c1", repaired[2].ToolResults[0].CallID)
	assert.True(t, repaired[2].ToolResults[0].IsError)
	assert.Contains(t, repaired[2].ToolResults[0].Content, "read_file")
}

func TestRepairHistory_MergesIntoIncompleteResultTurn(t *testing.T) {
	history := []Message{
		{Role: RoleAssistant, ToolCalls: []ToolCall{
			{ID: "c1", Name: "read_file"},
			{ID: "c2", Name: "search"},
		}},
		{Role: RoleTool, ToolResults: []ToolResult{{CallID: "c1", Content: "done"}}},
	}

	repaired := RepairHistory(history)
	require.Len(t, repaired, 2)
	require.Len(t, repaired[1].ToolResults, 2)
	assert.Equal(t, "c1", repaired[1].ToolResults[0].CallID)
	assert.Equal(t, "c2", repaired[1].ToolResults[1].CallID)
	assert.True(t, repaired[1].ToolResults[1].IsError)
}

func TestRepairHistory_TrailingDanglingCall(t *testing.T) {
	history := []Message{
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c9", Name: "fetch"}}},
	}

	repaired := RepairHistory(history)
	require.Len(t, repaired, 2)
	assert.Equal(t, RoleTool, repaired[1].Role)
	assert.Equal(t, "c9", repaired[1].ToolResults[0].CallID)
}

func TestRepairHistory_DoesNotMutateInput(t *testing.T) {
	history := []Message{
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "fetch"}}},
	}

	_ = RepairHistory(history)
	assert.Len(t, history, 1)
}

func TestFlattenMessage(t *testing.T) {
	msg := Message{
		Role:    RoleAssistant,
		Content: "checking",
		ToolCalls: []ToolCall{
			{ID: "c1", Name: "search", Input: map[string]any{"q": "weather"}},
		},
	}

	flat := flattenMessage(msg)
	assert.Contains(t, flat, "checking")
	assert.Contains(t, flat, "search")
	assert.Contains(t, flat, "c1")
}
