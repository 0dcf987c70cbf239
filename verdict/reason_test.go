package verdict

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapFreeText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Reason
	}{
		{
			name: "canonical value passes through",
			text: "element_not_found",
			want: ReasonElementNotFound,
		},
		{
			name: "canonical stuck_in_loop passes through",
			text: "stuck_in_loop",
			want: ReasonStuckInLoop,
		},
		{
			name: "english not found",
			text: "The save button was NOT FOUND on screen",
			want: ReasonElementNotFound,
		},
		{
			name: "japanese not found",
			text: "保存ボタンが見つかりません",
			want: ReasonElementNotFound,
		},
		{
			name: "english no effect",
			text: "clicking had no effect",
			want: ReasonActionNoEffect,
		},
		{
			name: "japanese no effect",
			text: "クリックしても効果なし",
			want: ReasonActionNoEffect,
		},
		{
			name: "english unexpected",
			text: "an unexpected dialog appeared",
			want: ReasonUnexpectedState,
		},
		{
			name: "japanese unexpected",
			text: "予期しないエラーが発生しました",
			want: ReasonUnexpectedState,
		},
		{
			name: "unrecognised text",
			text: "the computer caught fire",
			want: ReasonUnknown,
		},
		{
			name: "empty text",
			text: "",
			want: ReasonUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFreeText(tt.text))
		})
	}
}

func TestReason_IsCancellation(t *testing.T) {
	assert.True(t, ReasonAborted.IsCancellation())
	assert.True(t, ReasonUserStopped.IsCancellation())
	assert.False(t, ReasonStuckInLoop.IsCancellation())
	assert.False(t, ReasonElementNotFound.IsCancellation())
	assert.False(t, ReasonNone.IsCancellation())
}
