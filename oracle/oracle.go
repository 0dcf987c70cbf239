package oracle

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hairizuan-noorazman/desktop-automation/action"
	"github.com/hairizuan-noorazman/desktop-automation/expectation"
)

var (
	// ErrEmptyResponse is returned when the model produces no content.
	ErrEmptyResponse = errors.New("empty oracle response")

	// ErrUnparseableVerification is returned when a verification check
	// response cannot be interpreted.
	ErrUnparseableVerification = errors.New("unparseable verification response")
)

// Role identifies the author of a message turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ImageSource carries base64-encoded image data for a multimodal block.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ContentBlock is one block of a multimodal message. Type discriminates
// between text, image, tool_use and tool_result blocks; only the fields
// for that type are set.
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Source    *ImageSource    `json:"source,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   []ContentBlock  `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// ImageBlock builds an image content block from raw encoded image data.
func ImageBlock(mediaType, base64Data string) ContentBlock {
	return ContentBlock{
		Type: "image",
		Source: &ImageSource{
			Type:      "base64",
			MediaType: mediaType,
			Data:      base64Data,
		},
	}
}

// Message is one turn of the running conversation with the oracle.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ActionProposal is one tool call the oracle proposed, with the tool-use
// ID kept for correlating the tool result back to the call.
type ActionProposal struct {
	ID     string
	Action action.Action
}

// Turn is the parsed output of one oracle call.
type Turn struct {
	// Text is the concatenation of the turn's text blocks.
	Text string

	// Proposals are the action proposals in the order the model emitted
	// them. Empty when the model produced a terminal verdict instead.
	Proposals []ActionProposal

	// Content is the raw assistant content, appended verbatim to the
	// message history.
	Content []ContentBlock
}

// HasProposal reports whether the turn carries at least one action
// proposal.
func (t *Turn) HasProposal() bool {
	return len(t.Proposals) > 0
}

// Oracle is the vision-capable model that proposes the next action or a
// terminal verdict each turn. All calls honour context cancellation.
type Oracle interface {
	// Propose sends the running message history and returns the model's
	// next turn.
	Propose(ctx context.Context, history []Message) (*Turn, error)

	// DecomposeScenario breaks a scenario description into the ordered
	// expected-action sequence.
	DecomposeScenario(ctx context.Context, description string) ([]expectation.ExpectedAction, error)

	// VerifyTextVisible checks whether the given text is visible in the
	// screenshot.
	VerifyTextVisible(ctx context.Context, screenshot []byte, mediaType, text string) (bool, error)

	// CheckStepCompletion asks whether the described step appears to
	// have been completed, judging from the screenshot.
	CheckStepCompletion(ctx context.Context, screenshot []byte, mediaType, stepDescription string) (bool, error)
}
