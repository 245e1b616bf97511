package journey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/theimaginaryfoundation/journey-o-bot/journey/provider"
)

// Builder runs the journey and weekly summary pipelines: compact, build the prompt, call models through
// the fallback Invoker, and (for journeys) interpret the model text as JSON.
//
// A nil caller means the provider credential is missing; requests then fail with ErrMissingCredential
// after input validation.
type Builder struct {
	Invoker       *provider.Invoker
	JourneyCaller provider.Caller
	WeeklyCaller  provider.Caller
	Compaction    CompactionConfig
	Logger        *slog.Logger
}

// JourneyResponseFormat is the structured output requested for journey prompts.
func JourneyResponseFormat() provider.ResponseFormat {
	return provider.JSONResponse[JourneyOutput]("member_journey")
}

// UseClient sets the journey (JSON) and weekly (text) callers from c. A nil c clears both.
func (b *Builder) UseClient(c provider.Client) {
	if c == nil {
		b.JourneyCaller, b.WeeklyCaller = nil, nil
		return
	}
	b.JourneyCaller = c.Caller(JourneyResponseFormat())
	b.WeeklyCaller = c.Caller(provider.TextResponse())
}

// JourneyRequest is the input to BuildJourney.
type JourneyRequest struct {
	MemberName string
	Timezone   string
	Messages   []ChatMessage
}

// JourneyResult carries the model's journey JSON. ModelUsed is also set when err is an
// UnparsableResponseError.
type JourneyResult struct {
	Output       json.RawMessage
	ModelUsed    string
	MessagesSent int
}

// WeeklyRequest is the input to SummarizeWeek. An empty WeekRange defaults to the first and last
// message dates.
type WeeklyRequest struct {
	WeekRange     []string
	Messages      []ChatMessage
	PriorTimeline json.RawMessage
}

// WeeklyResult carries the model's markdown weekly summary.
type WeeklyResult struct {
	Text         string
	ModelUsed    string
	MessagesSent int
}

// BuildJourney produces the structured journey for req.
func (b *Builder) BuildJourney(ctx context.Context, req JourneyRequest) (JourneyResult, error) {
	if len(req.Messages) == 0 {
		return JourneyResult{}, fmt.Errorf("%w: messages[] required", ErrInvalidInput)
	}
	if b.JourneyCaller == nil {
		return JourneyResult{}, ErrMissingCredential
	}
	if b.Invoker == nil {
		return JourneyResult{}, errors.New("BuildJourney: invoker is nil")
	}

	msgs, err := Compact(req.Messages, b.Compaction)
	if err != nil {
		return JourneyResult{}, err
	}
	prompt, err := BuildJourneyPrompt(req.MemberName, req.Timezone, msgs)
	if err != nil {
		return JourneyResult{}, err
	}
	b.logger().Debug("journey prompt built", "messages_in", len(req.Messages), "messages_sent", len(msgs), "prompt_chars", len(prompt))

	res, err := b.Invoker.Invoke(ctx, prompt, b.JourneyCaller)
	if err != nil {
		return JourneyResult{}, err
	}

	out := JourneyResult{ModelUsed: res.ModelUsed, MessagesSent: len(msgs)}
	raw, err := Interpret(res.Text)
	if err != nil {
		var ue *UnparsableResponseError
		if errors.As(err, &ue) {
			ue.ModelUsed = res.ModelUsed
		}
		return out, err
	}
	out.Output = raw
	return out, nil
}

// SummarizeWeek produces the markdown weekly summary for req.
func (b *Builder) SummarizeWeek(ctx context.Context, req WeeklyRequest) (WeeklyResult, error) {
	if len(req.Messages) == 0 {
		return WeeklyResult{}, fmt.Errorf("%w: messages[] required", ErrInvalidInput)
	}
	if b.WeeklyCaller == nil {
		return WeeklyResult{}, ErrMissingCredential
	}
	if b.Invoker == nil {
		return WeeklyResult{}, errors.New("SummarizeWeek: invoker is nil")
	}

	weekRange := req.WeekRange
	if len(weekRange) == 0 {
		first, last := DateBounds(req.Messages)
		weekRange = []string{first, last}
	}

	msgs, err := Compact(req.Messages, b.Compaction)
	if err != nil {
		return WeeklyResult{}, err
	}
	prompt, err := BuildWeeklyPrompt(weekRange, msgs, req.PriorTimeline)
	if err != nil {
		return WeeklyResult{}, err
	}
	b.logger().Debug("weekly prompt built", "messages_in", len(req.Messages), "messages_sent", len(msgs), "week_range", weekRange)

	res, err := b.Invoker.Invoke(ctx, prompt, b.WeeklyCaller)
	if err != nil {
		return WeeklyResult{}, err
	}
	return WeeklyResult{Text: res.Text, ModelUsed: res.ModelUsed, MessagesSent: len(msgs)}, nil
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}
