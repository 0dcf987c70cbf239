package oracle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/desktop-automation/action"
)

func TestParseToolInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  action.Action
	}{
		{
			name:  "left click",
			input: `{"action": "left_click", "coordinate": [100, 50]}`,
			want: action.Action{
				Kind:       action.KindLeftClick,
				Coordinate: &action.Point{X: 100, Y: 50},
			},
		},
		{
			name:  "screenshot",
			input: `{"action": "screenshot"}`,
			want:  action.Action{Kind: action.KindScreenshot},
		},
		{
			name:  "type",
			input: `{"action": "type", "text": "hello world"}`,
			want:  action.Action{Kind: action.KindType, Text: "hello world"},
		},
		{
			name:  "key chord",
			input: `{"action": "key", "text": "ctrl+s"}`,
			want:  action.Action{Kind: action.KindKey, Text: "ctrl+s"},
		},
		{
			name:  "scroll",
			input: `{"action": "scroll", "coordinate": [640, 360], "scroll_direction": "down", "scroll_amount": 3}`,
			want: action.Action{
				Kind:            action.KindScroll,
				Coordinate:      &action.Point{X: 640, Y: 360},
				ScrollDirection: action.ScrollDown,
				ScrollAmount:    3,
			},
		},
		{
			name:  "drag carries both coordinates",
			input: `{"action": "left_click_drag", "start_coordinate": [10, 20], "coordinate": [30, 40]}`,
			want: action.Action{
				Kind:            action.KindLeftClickDrag,
				StartCoordinate: &action.Point{X: 10, Y: 20},
				Coordinate:      &action.Point{X: 30, Y: 40},
			},
		},
		{
			name:  "wait duration converts seconds to milliseconds",
			input: `{"action": "wait", "duration": 1.5}`,
			want:  action.Action{Kind: action.KindWait, DurationMs: 1500},
		},
		{
			name:  "hold key defaults to press",
			input: `{"action": "hold_key", "key": "shift"}`,
			want:  action.Action{Kind: action.KindHoldKey, Key: "shift", Down: true},
		},
		{
			name:  "hold key explicit release",
			input: `{"action": "hold_key", "key": "shift", "down": false}`,
			want:  action.Action{Kind: action.KindHoldKey, Key: "shift", Down: false},
		},
		{
			name:  "hold key takes the key from text when needed",
			input: `{"action": "hold_key", "text": "alt"}`,
			want:  action.Action{Kind: action.KindHoldKey, Key: "alt", Text: "alt", Down: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseToolInput(json.RawMessage(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseToolInput_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "unknown action kind",
			input:   `{"action": "teleport"}`,
			wantErr: action.ErrInvalidKind,
		},
		{
			name:    "click without coordinate",
			input:   `{"action": "left_click"}`,
			wantErr: action.ErrMissingCoordinate,
		},
		{
			name:    "type without text",
			input:   `{"action": "type"}`,
			wantErr: action.ErrMissingText,
		},
		{
			name:    "scroll with bad direction",
			input:   `{"action": "scroll", "coordinate": [1, 2], "scroll_direction": "sideways"}`,
			wantErr: action.ErrInvalidScroll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseToolInput(json.RawMessage(tt.input))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		_, err := parseToolInput(json.RawMessage(`{"action": `))
		assert.Error(t, err)
	})
}

func TestTurn_HasProposal(t *testing.T) {
	verdictOnly := &Turn{Text: "done"}
	assert.False(t, verdictOnly.HasProposal())

	withAction := &Turn{Proposals: []ActionProposal{{ID: "toolu_1"}}}
	assert.True(t, withAction.HasProposal())
}

func TestContentBlocks(t *testing.T) {
	text := TextBlock("hello")
	assert.Equal(t, "text", text.Type)
	assert.Equal(t, "hello", text.Text)
	assert.Nil(t, text.Source)

	img := ImageBlock("image/png", "aGVsbG8=")
	assert.Equal(t, "image", img.Type)
	require.NotNil(t, img.Source)
	assert.Equal(t, "base64", img.Source.Type)
	assert.Equal(t, "image/png", img.Source.MediaType)
	assert.Equal(t, "aGVsbG8=", img.Source.Data)
}
