package journey

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promptInput(t *testing.T, prompt, marker string) map[string]any {
	t.Helper()
	_, after, ok := strings.Cut(prompt, marker)
	require.True(t, ok, "marker %q not found", marker)
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(after), &v))
	return v
}

func TestBuildJourneyPrompt(t *testing.T) {
	t.Parallel()

	msgs := []ChatMessage{{ID: "m-2025-01-01-001", Timestamp: "2025-01-01T08:00:00.000Z", Sender: "Rohan", Text: "BP <130/85> & rising"}}
	prompt, err := BuildJourneyPrompt("", "", msgs)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(prompt, journeySystemPrompt))
	assert.Contains(t, prompt, "BP <130/85> & rising", "HTML characters must not be escaped")

	in := promptInput(t, prompt, "\n\nInput JSON:\n")
	assert.Equal(t, DefaultMemberName, in["member_name"])
	assert.Equal(t, DefaultTimezone, in["timezone"])
	rows := in["messages"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "m-2025-01-01-001", rows[0].(map[string]any)["msg_id"])
}

func TestBuildJourneyPrompt_EmptyMessagesIsArray(t *testing.T) {
	t.Parallel()

	prompt, err := BuildJourneyPrompt("Rohan Patel", "Asia/Tokyo", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(prompt, `"messages":[]}`))
	assert.Contains(t, prompt, `"member_name":"Rohan Patel"`)
}

func TestBuildWeeklyPrompt(t *testing.T) {
	t.Parallel()

	msgs := []ChatMessage{{ID: "m-1", Timestamp: "2025-01-01T08:00:00.000Z", Sender: "Ruby", Text: "hi"}}

	prompt, err := BuildWeeklyPrompt([]string{"2025-01-01", "2025-01-07"}, msgs, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prompt, weeklyRolePrompt))
	in := promptInput(t, prompt, "\n\nInputs JSON:\n")
	assert.Equal(t, []any{"2025-01-01", "2025-01-07"}, in["week_range"])
	assert.Equal(t, []any{}, in["prior_timeline"])

	prompt, err = BuildWeeklyPrompt(nil, msgs, json.RawMessage(`[{"date":"2024-12-30","event":"Start"}]`))
	require.NoError(t, err)
	in = promptInput(t, prompt, "\n\nInputs JSON:\n")
	_, hasRange := in["week_range"]
	assert.False(t, hasRange)
	assert.Len(t, in["prior_timeline"], 1)

	prompt, err = BuildWeeklyPrompt(nil, msgs, json.RawMessage("null"))
	require.NoError(t, err)
	assert.Contains(t, prompt, `"prior_timeline":[]`)
}
