package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/desktop-automation/oracle"
)

func textMsg(role oracle.Role, text string) oracle.Message {
	return oracle.Message{Role: role, Content: []oracle.ContentBlock{oracle.TextBlock(text)}}
}

func imageMsg(role oracle.Role, data string) oracle.Message {
	return oracle.Message{Role: role, Content: []oracle.ContentBlock{
		oracle.TextBlock("screenshot follows"),
		oracle.ImageBlock("image/png", data),
	}}
}

func toolResultMsg(id, data string) oracle.Message {
	return oracle.Message{Role: oracle.RoleUser, Content: []oracle.ContentBlock{{
		Type:      "tool_result",
		ToolUseID: id,
		Content: []oracle.ContentBlock{
			oracle.TextBlock("action executed"),
			oracle.ImageBlock("image/png", data),
		},
	}}}
}

func countImages(history []oracle.Message) int {
	n := 0
	for _, msg := range history {
		if messageHasImage(msg) {
			n++
		}
	}
	return n
}

func TestTrimHistory_BelowThresholdUntouched(t *testing.T) {
	history := []oracle.Message{
		imageMsg(oracle.RoleUser, "one"),
		textMsg(oracle.RoleAssistant, "thinking"),
		imageMsg(oracle.RoleUser, "two"),
	}

	trimmed := trimHistory(history, 5, 1)
	assert.Equal(t, 2, countImages(trimmed))
}

func TestTrimHistory_StripsOldestImages(t *testing.T) {
	history := []oracle.Message{
		imageMsg(oracle.RoleUser, "one"),
		textMsg(oracle.RoleAssistant, "a"),
		imageMsg(oracle.RoleUser, "two"),
		textMsg(oracle.RoleAssistant, "b"),
		imageMsg(oracle.RoleUser, "three"),
	}

	trimmed := trimHistory(history, 3, 1)
	require.Len(t, trimmed, 5, "messages are never removed, only their images")
	assert.Equal(t, 1, countImages(trimmed))

	// The newest screenshot survives; the older ones became placeholders.
	assert.True(t, messageHasImage(trimmed[4]))
	assert.Equal(t, imagePlaceholder, trimmed[0].Content[1].Text)
	assert.Nil(t, trimmed[0].Content[1].Source)
	assert.Equal(t, "screenshot follows", trimmed[0].Content[0].Text, "text blocks untouched")
}

func TestTrimHistory_RetainsRequestedCount(t *testing.T) {
	history := []oracle.Message{
		imageMsg(oracle.RoleUser, "one"),
		imageMsg(oracle.RoleUser, "two"),
		imageMsg(oracle.RoleUser, "three"),
		imageMsg(oracle.RoleUser, "four"),
	}

	trimmed := trimHistory(history, 2, 2)
	assert.Equal(t, 2, countImages(trimmed))
	assert.False(t, messageHasImage(trimmed[0]))
	assert.False(t, messageHasImage(trimmed[1]))
	assert.True(t, messageHasImage(trimmed[2]))
	assert.True(t, messageHasImage(trimmed[3]))
}

func TestTrimHistory_StripsNestedToolResultImages(t *testing.T) {
	history := []oracle.Message{
		toolResultMsg("toolu_1", "one"),
		textMsg(oracle.RoleAssistant, "a"),
		toolResultMsg("toolu_2", "two"),
	}

	trimmed := trimHistory(history, 2, 1)
	assert.False(t, messageHasImage(trimmed[0]))
	assert.True(t, messageHasImage(trimmed[2]))

	// Tool result structure survives the strip.
	block := trimmed[0].Content[0]
	assert.Equal(t, "tool_result", block.Type)
	assert.Equal(t, "toolu_1", block.ToolUseID)
	require.Len(t, block.Content, 2)
	assert.Equal(t, imagePlaceholder, block.Content[1].Text)
}
