package verdict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/desktop-automation/expectation"
)

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantFound  bool
		wantStatus string
		wantReason string
	}{
		{
			name:       "fenced json block",
			text:       "All done.\n```json\n{\"status\": \"success\", \"message\": \"saved the file\"}\n```",
			wantFound:  true,
			wantStatus: "success",
		},
		{
			name:       "fence without language tag",
			text:       "```\n{\"status\": \"failure\", \"message\": \"could not proceed\", \"failureReason\": \"element_not_found\"}\n```",
			wantFound:  true,
			wantStatus: "failure",
			wantReason: "element_not_found",
		},
		{
			name:       "bare object in prose",
			text:       `I am finished. {"status": "success", "message": "done"} Thanks.`,
			wantFound:  true,
			wantStatus: "success",
		},
		{
			name:       "status is case-normalized",
			text:       "```json\n{\"status\": \" SUCCESS \"}\n```",
			wantFound:  true,
			wantStatus: "success",
		},
		{
			name:      "unknown status ignored",
			text:      `{"status": "maybe", "message": "not sure"}`,
			wantFound: false,
		},
		{
			name:      "no json",
			text:      "I clicked the button and the dialog opened.",
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, found := ParseOutcome(tt.text)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				assert.Equal(t, tt.wantStatus, outcome.Status)
				assert.Equal(t, tt.wantReason, outcome.FailureReason)
			}
		})
	}
}

func expectations(completed ...bool) []expectation.ExpectedAction {
	out := make([]expectation.ExpectedAction, len(completed))
	for i, c := range completed {
		out[i] = expectation.ExpectedAction{Description: "step", Completed: c}
	}
	return out
}

func TestJudge_FailureOverriddenByProgress(t *testing.T) {
	text := "```json\n{\"status\": \"failure\", \"message\": \"I think I failed\"}\n```"

	j := Judge(text, false, expectations(true, true))
	assert.True(t, j.Complete)
	assert.True(t, j.Success)
	assert.True(t, j.SuccessByProgress, "confirmed progress outranks the self-report")
}

func TestJudge_FailureWithIncompleteExpectations(t *testing.T) {
	text := "```json\n{\"status\": \"failure\", \"message\": \"gave up\", \"failureReason\": \"保存ボタンが見つかりません\"}\n```"

	j := Judge(text, false, expectations(true, false))
	assert.True(t, j.Complete)
	assert.False(t, j.Success)
	assert.Equal(t, ReasonElementNotFound, j.FailureReason, "free text mapped to canonical reason")
}

func TestJudge_FailureReasonFallsBackToMessage(t *testing.T) {
	text := "```json\n{\"status\": \"failure\", \"message\": \"the dialog had no effect\"}\n```"

	j := Judge(text, false, expectations(false))
	require.True(t, j.Complete)
	assert.Equal(t, ReasonActionNoEffect, j.FailureReason)
}

func TestJudge_EarlySuccessClaim(t *testing.T) {
	text := "```json\n{\"status\": \"success\", \"message\": \"all done\"}\n```"

	t.Run("with proposal keeps looping", func(t *testing.T) {
		j := Judge(text, true, expectations(true, false))
		assert.False(t, j.Complete, "the model is still acting; expectations decide")
	})

	t.Run("without proposal fails as incomplete", func(t *testing.T) {
		j := Judge(text, false, expectations(true, false))
		assert.True(t, j.Complete)
		assert.False(t, j.Success)
		assert.Equal(t, ReasonIncompleteActions, j.FailureReason)
	})

	t.Run("with all expectations met succeeds", func(t *testing.T) {
		j := Judge(text, false, expectations(true, true))
		assert.True(t, j.Complete)
		assert.True(t, j.Success)
		assert.False(t, j.SuccessByProgress, "the self-report agreed with progress")
	})
}

func TestJudge_NoVerdictJSON(t *testing.T) {
	text := "I am observing the screen."

	t.Run("with proposal continues", func(t *testing.T) {
		j := Judge(text, true, expectations(false))
		assert.False(t, j.Complete)
	})

	t.Run("no proposal with progress succeeds", func(t *testing.T) {
		j := Judge(text, false, expectations(true, true))
		assert.True(t, j.Complete)
		assert.True(t, j.Success)
		assert.True(t, j.SuccessByProgress)
	})

	t.Run("no proposal with empty expectations is a format failure", func(t *testing.T) {
		j := Judge(text, false, nil)
		assert.True(t, j.Complete)
		assert.False(t, j.Success)
		assert.Equal(t, ReasonInvalidResultFormat, j.FailureReason)
	})

	t.Run("no proposal with unmet expectations is incomplete", func(t *testing.T) {
		j := Judge(text, false, expectations(true, false))
		assert.True(t, j.Complete)
		assert.False(t, j.Success)
		assert.Equal(t, ReasonIncompleteActions, j.FailureReason)
	})
}
