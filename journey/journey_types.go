package journey

// JourneyOutput is the shape the journey prompt asks the model for. It is used for schema generation and
// typed decoding in the batch tool; the HTTP path passes the model's JSON through without enforcing it.
type JourneyOutput struct {
	Conversations   []TaggedMessage   `json:"conversations"`
	JourneyTimeline []TimelineEvent   `json:"journey_timeline"`
	PointInTime     PointInTime       `json:"point_in_time"`
	RationaleGraph  []RationaleNode   `json:"rationale_graph"`
	OpsMetrics      OpsMetrics        `json:"ops_metrics"`
	WeeklySummary   WeeklySummaryView `json:"weekly_summary"`
}

// TaggedMessage is a conversation row echoed back by the model with topic tags.
type TaggedMessage struct {
	ID     string   `json:"id"`
	TS     string   `json:"ts"`
	Sender string   `json:"sender"`
	Text   string   `json:"text"`
	Tags   []string `json:"tags"`
}

// TimelineEvent is one dated journey event. WhyTrace lists the msg_ids that justify it.
type TimelineEvent struct {
	Date     string         `json:"date"`
	Event    string         `json:"event"`
	WhyTrace []string       `json:"why_trace"`
	Owner    string         `json:"owner,omitempty"`
	Pillar   string         `json:"pillar,omitempty"`
	KPIs     map[string]any `json:"kpis,omitempty"`
}

// PointInTime is the member's state as of a date.
type PointInTime struct {
	AsOf     string   `json:"as_of"`
	Snapshot Snapshot `json:"snapshot"`
}

// Snapshot holds the plan/status at PointInTime.AsOf. Plan and Status are free-form.
type Snapshot struct {
	Plan          any      `json:"plan"`
	Status        any      `json:"status"`
	OpenQuestions []string `json:"open_questions"`
	Assumptions   []string `json:"assumptions,omitempty"`
}

// RationaleNode links a decision to the evidence behind it.
type RationaleNode struct {
	Decision        string   `json:"decision"`
	Date            string   `json:"date"`
	Evidence        []string `json:"evidence"`
	ExpectedOutcome string   `json:"expected_outcome,omitempty"`
	ReviewDate      string   `json:"review_date,omitempty"`
	Result          string   `json:"result,omitempty"`
}

// OpsMetrics are coarse operational counters derived from the chat.
type OpsMetrics struct {
	TouchpointsPerWeek   float64            `json:"touchpoints_per_week"`
	ByRoleHours          map[string]float64 `json:"by_role_hours"`
	DiagnosticsCompleted []string           `json:"diagnostics_completed"`
}

// WeeklySummaryView is the weekly block embedded in a journey.
type WeeklySummaryView struct {
	Period      string         `json:"period"`
	ExecBrief   string         `json:"exec_brief"`
	Wins        []string       `json:"wins"`
	Risks       []string       `json:"risks"`
	NextActions []NextAction   `json:"next_actions"`
	KPIs        map[string]any `json:"kpis,omitempty"`
}

// NextAction is an owned, dated follow-up.
type NextAction struct {
	Owner  string `json:"owner"`
	Due    string `json:"due"`
	Action string `json:"action"`
}
