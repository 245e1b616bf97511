package journey

import (
	"encoding/json"
	"fmt"
)

const (
	// DefaultMemberName is used when a journey request does not name the member.
	DefaultMemberName = "Member"
	// DefaultTimezone is used when a journey request does not carry a timezone.
	DefaultTimezone = "Asia/Singapore"
)

const journeySystemPrompt = `You are Elyx Journey Builder (Chat-Only). Input is an array of messages with fields: msg_id, timestamp, sender, message.

Produce ONE JSON object with:
- conversations [{id,ts,sender,text,tags}],
- journey_timeline [{date,event,why_trace,owner,pillar,kpis}],
- point_in_time {as_of,snapshot{plan,status,open_questions,assumptions}},
- rationale_graph [{decision,date,evidence,expected_outcome,review_date,result}],
- ops_metrics {touchpoints_per_week,by_role_hours,diagnostics_completed},
- weekly_summary {period,exec_brief,wins,risks,next_actions[{owner,due,action}],kpis}

Rules: Every decision/plan/test/therapy MUST include a why_trace with exact msg_ids. No chain-of-thought; only short, evidence-linked rationales (≤25 words). If using high-level cadence from the Elyx brief (quarterly diagnostics, ~5 member-initiated chats/week, bi-weekly exercise updates, ~50% adherence, frequent travel, base Singapore), clearly tag items not evidenced in chat as "assumed (brief)". Use ISO timestamps. WhatsApp-like tone.`

const weeklyRolePrompt = `Role: Weekly Health Program Summarizer (Chat-Only).

Create: 5-line exec brief; wins & risks (each with msg_id); plan diffs vs last week + owner; next actions (owner,due,why msg_ids); KPI table only if metrics appear in chat; else N/A. Include 5 why-trace bullets. No chain-of-thought. Do not invent data.

Format as markdown with clear sections. Be concise and evidence-based.`

type journeyPromptInput struct {
	MemberName string        `json:"member_name"`
	Timezone   string        `json:"timezone"`
	Messages   []ChatMessage `json:"messages"`
}

type weeklyPromptInput struct {
	WeekRange     []string        `json:"week_range,omitempty"`
	Messages      []ChatMessage   `json:"messages"`
	PriorTimeline json.RawMessage `json:"prior_timeline"`
}

// BuildJourneyPrompt renders the journey instructions followed by the JSON input block.
func BuildJourneyPrompt(memberName, timezone string, msgs []ChatMessage) (string, error) {
	if memberName == "" {
		memberName = DefaultMemberName
	}
	if timezone == "" {
		timezone = DefaultTimezone
	}
	b, err := marshalPlain(journeyPromptInput{MemberName: memberName, Timezone: timezone, Messages: nonNil(msgs)})
	if err != nil {
		return "", fmt.Errorf("marshal journey input: %w", err)
	}
	return journeySystemPrompt + "\n\nInput JSON:\n" + string(b), nil
}

// BuildWeeklyPrompt renders the weekly summary instructions followed by the JSON input block.
// A nil or empty priorTimeline is sent as [].
func BuildWeeklyPrompt(weekRange []string, msgs []ChatMessage, priorTimeline json.RawMessage) (string, error) {
	if len(priorTimeline) == 0 || string(priorTimeline) == "null" {
		priorTimeline = json.RawMessage("[]")
	}
	b, err := marshalPlain(weeklyPromptInput{WeekRange: weekRange, Messages: nonNil(msgs), PriorTimeline: priorTimeline})
	if err != nil {
		return "", fmt.Errorf("marshal weekly input: %w", err)
	}
	return weeklyRolePrompt + "\n\nInputs JSON:\n" + string(b), nil
}

func nonNil(msgs []ChatMessage) []ChatMessage {
	if msgs == nil {
		return []ChatMessage{}
	}
	return msgs
}
