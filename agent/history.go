package agent

import (
	"github.com/hairizuan-noorazman/desktop-automation/oracle"
)

// imagePlaceholder replaces stripped screenshots so the turn structure
// stays intact for the oracle.
const imagePlaceholder = "[earlier screenshot removed]"

func blockHasImage(block oracle.ContentBlock) bool {
	if block.Source != nil {
		return true
	}
	for _, inner := range block.Content {
		if inner.Source != nil {
			return true
		}
	}
	return false
}

func messageHasImage(msg oracle.Message) bool {
	for _, block := range msg.Content {
		if blockHasImage(block) {
			return true
		}
	}
	return false
}

func stripImageBlocks(blocks []oracle.ContentBlock) []oracle.ContentBlock {
	out := make([]oracle.ContentBlock, 0, len(blocks))
	for _, block := range blocks {
		if block.Source != nil {
			out = append(out, oracle.TextBlock(imagePlaceholder))
			continue
		}
		if len(block.Content) > 0 {
			block.Content = stripImageBlocks(block.Content)
		}
		out = append(out, block)
	}
	return out
}

// trimHistory bounds context growth: once the history exceeds the
// threshold, screenshots in all but the most recent image-bearing
// messages are replaced with a placeholder. Text and tool structure are
// never removed.
func trimHistory(history []oracle.Message, threshold, retainImages int) []oracle.Message {
	if len(history) <= threshold {
		return history
	}

	retained := 0
	for i := len(history) - 1; i >= 0; i-- {
		if !messageHasImage(history[i]) {
			continue
		}
		if retained < retainImages {
			retained++
			continue
		}
		history[i].Content = stripImageBlocks(history[i].Content)
	}
	return history
}
