package journey

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theimaginaryfoundation/journey-o-bot/journey/provider"
)

type recordingCaller struct {
	mu      sync.Mutex
	models  []string
	prompts []string
	reply   func(model string) (string, error)
}

func (r *recordingCaller) call(ctx context.Context, model, prompt string) (string, error) {
	r.mu.Lock()
	r.models = append(r.models, model)
	r.prompts = append(r.prompts, prompt)
	r.mu.Unlock()
	return r.reply(model)
}

func newTestBuilder(t *testing.T, rc *recordingCaller) *Builder {
	t.Helper()
	inv, err := provider.NewInvoker([]string{"primary", "fallback"})
	require.NoError(t, err)
	return &Builder{Invoker: inv, JourneyCaller: rc.call, WeeklyCaller: rc.call}
}

func sampleMessages() []ChatMessage {
	return []ChatMessage{
		{ID: "m-2025-01-01-001", Timestamp: "2025-01-01T08:00:00.000Z", Sender: "Rohan", Text: "Starting the program"},
		{ID: "m-2025-01-03-001", Timestamp: "2025-01-03T08:00:00.000Z", Sender: "Ruby (Elyx Concierge)", Text: "Welcome!"},
	}
}

func TestBuildJourney_Success(t *testing.T) {
	t.Parallel()

	rc := &recordingCaller{reply: func(string) (string, error) {
		return "```json\n{\"journey_timeline\":[]}\n```", nil
	}}
	b := newTestBuilder(t, rc)

	res, err := b.BuildJourney(context.Background(), JourneyRequest{MemberName: "Rohan Patel", Messages: sampleMessages()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"journey_timeline":[]}`, string(res.Output))
	assert.Equal(t, "primary", res.ModelUsed)
	assert.Equal(t, 2, res.MessagesSent)

	require.Len(t, rc.prompts, 1)
	assert.Contains(t, rc.prompts[0], `"member_name":"Rohan Patel"`)
	assert.Contains(t, rc.prompts[0], `"timezone":"Asia/Singapore"`)
}

func TestBuildJourney_FallsBackOnQuota(t *testing.T) {
	t.Parallel()

	rc := &recordingCaller{reply: func(model string) (string, error) {
		if model == "primary" {
			return "", &provider.StatusError{Code: 429, Err: errors.New("resource exhausted")}
		}
		return `{"ok":true}`, nil
	}}
	b := newTestBuilder(t, rc)

	res, err := b.BuildJourney(context.Background(), JourneyRequest{Messages: sampleMessages()})
	require.NoError(t, err)
	assert.Equal(t, "fallback", res.ModelUsed)
	assert.Equal(t, []string{"primary", "fallback"}, rc.models)
}

func TestBuildJourney_UnparsableCarriesModel(t *testing.T) {
	t.Parallel()

	rc := &recordingCaller{reply: func(string) (string, error) { return "I cannot help with that.", nil }}
	b := newTestBuilder(t, rc)

	res, err := b.BuildJourney(context.Background(), JourneyRequest{Messages: sampleMessages()})
	var ue *UnparsableResponseError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "primary", ue.ModelUsed)
	assert.Equal(t, "I cannot help with that....", ue.RawPrefix)
	assert.Equal(t, "primary", res.ModelUsed)
	assert.Nil(t, res.Output)
}

func TestBuildJourney_InputValidatedFirst(t *testing.T) {
	t.Parallel()

	rc := &recordingCaller{reply: func(string) (string, error) { return "{}", nil }}
	b := newTestBuilder(t, rc)

	_, err := b.BuildJourney(context.Background(), JourneyRequest{})
	require.ErrorIs(t, err, ErrInvalidInput)

	b.JourneyCaller = nil
	_, err = b.BuildJourney(context.Background(), JourneyRequest{})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = b.BuildJourney(context.Background(), JourneyRequest{Messages: sampleMessages()})
	require.ErrorIs(t, err, ErrMissingCredential)

	assert.Empty(t, rc.models)
}

func TestBuildJourney_FatalErrorPropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("invalid argument")
	rc := &recordingCaller{reply: func(string) (string, error) { return "", boom }}
	b := newTestBuilder(t, rc)

	_, err := b.BuildJourney(context.Background(), JourneyRequest{Messages: sampleMessages()})
	assert.Same(t, boom, err)
	assert.Equal(t, []string{"primary"}, rc.models)
}

func TestBuildJourney_CompactsBeforePrompting(t *testing.T) {
	t.Parallel()

	rc := &recordingCaller{reply: func(string) (string, error) { return "{}", nil }}
	b := newTestBuilder(t, rc)
	b.Compaction = CompactionConfig{MaxPerMessageChars: 5, MaxSerializedChars: 1}

	msgs := makeMessages(70, 40)
	res, err := b.BuildJourney(context.Background(), JourneyRequest{Messages: msgs})
	require.NoError(t, err)
	assert.Equal(t, MinCompactedMessages, res.MessagesSent)
	assert.NotContains(t, rc.prompts[0], strings.Repeat("x", 6))
	assert.NotContains(t, rc.prompts[0], `"m-019"`)
	assert.Contains(t, rc.prompts[0], `"m-020"`)
}

func TestSummarizeWeek(t *testing.T) {
	t.Parallel()

	rc := &recordingCaller{reply: func(string) (string, error) { return "## Executive brief\nAll good.", nil }}
	b := newTestBuilder(t, rc)

	res, err := b.SummarizeWeek(context.Background(), WeeklyRequest{Messages: sampleMessages()})
	require.NoError(t, err)
	assert.Equal(t, "## Executive brief\nAll good.", res.Text)
	assert.Equal(t, "primary", res.ModelUsed)
	assert.Contains(t, rc.prompts[0], `"week_range":["2025-01-01","2025-01-03"]`)
	assert.Contains(t, rc.prompts[0], `"prior_timeline":[]`)

	_, err = b.SummarizeWeek(context.Background(), WeeklyRequest{})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSummarizeWeek_Exhausted(t *testing.T) {
	t.Parallel()

	rc := &recordingCaller{reply: func(string) (string, error) { return "", errors.New("429 Too Many Requests") }}
	b := newTestBuilder(t, rc)

	_, err := b.SummarizeWeek(context.Background(), WeeklyRequest{Messages: sampleMessages()})
	require.ErrorIs(t, err, provider.ErrExhaustedFallback)
	assert.Equal(t, []string{"primary", "fallback"}, rc.models)
}

type formatRecorder struct {
	formats []provider.ResponseFormat
}

func (f *formatRecorder) Caller(format provider.ResponseFormat) provider.Caller {
	f.formats = append(f.formats, format)
	return func(ctx context.Context, model, prompt string) (string, error) { return "{}", nil }
}

func TestBuilder_UseClient(t *testing.T) {
	t.Parallel()

	fr := &formatRecorder{}
	b := &Builder{}
	b.UseClient(fr)
	require.NotNil(t, b.JourneyCaller)
	require.NotNil(t, b.WeeklyCaller)
	require.Len(t, fr.formats, 2)
	assert.True(t, fr.formats[0].JSON)
	assert.NotEmpty(t, fr.formats[0].Schema)
	assert.False(t, fr.formats[1].JSON)

	b.UseClient(nil)
	assert.Nil(t, b.JourneyCaller)
	assert.Nil(t, b.WeeklyCaller)
}
