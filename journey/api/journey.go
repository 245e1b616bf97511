package api

import (
	"encoding/json"
	"net/http"

	"github.com/theimaginaryfoundation/journey-o-bot/journey"
	"github.com/theimaginaryfoundation/journey-o-bot/journey/markdown"
)

type journeyBody struct {
	Messages   []journey.ChatMessage `json:"messages"`
	MemberName string                `json:"memberName"`
	Timezone   string                `json:"timezone"`
}

type weeklyBody struct {
	WeekRange     []string              `json:"weekRange"`
	Messages      []journey.ChatMessage `json:"messages"`
	PriorTimeline json.RawMessage       `json:"priorTimeline"`
}

type weeklyResponse struct {
	Text string `json:"text"`
	HTML string `json:"html,omitempty"`
}

// Journey handles POST /api/journey. The model's JSON is returned as the response body.
func (h *Handler) Journey(w http.ResponseWriter, r *http.Request) {
	var body journeyBody
	if !decodeBody(w, r, &body) {
		return
	}
	runID := setRunID(w)

	res, err := h.builder.BuildJourney(r.Context(), journey.JourneyRequest{
		MemberName: body.MemberName,
		Timezone:   body.Timezone,
		Messages:   body.Messages,
	})
	if err != nil {
		h.writeFailure(w, r, "journey", err)
		return
	}

	h.logger.Info("journey built", "run_id", runID, "model", res.ModelUsed, "messages_in", len(body.Messages), "messages_sent", res.MessagesSent)
	w.Header().Set(headerModelUsed, res.ModelUsed)
	JSON(w, http.StatusOK, res.Output)
}

// WeeklySummary handles POST /api/weekly-summary. With ?format=html the markdown is also rendered.
func (h *Handler) WeeklySummary(w http.ResponseWriter, r *http.Request) {
	var body weeklyBody
	if !decodeBody(w, r, &body) {
		return
	}
	runID := setRunID(w)

	res, err := h.builder.SummarizeWeek(r.Context(), journey.WeeklyRequest{
		WeekRange:     body.WeekRange,
		Messages:      body.Messages,
		PriorTimeline: body.PriorTimeline,
	})
	if err != nil {
		h.writeFailure(w, r, "weekly summary", err)
		return
	}

	out := weeklyResponse{Text: res.Text}
	if r.URL.Query().Get("format") == "html" {
		html, err := markdown.Render(res.Text)
		if err != nil {
			h.writeFailure(w, r, "weekly summary", err)
			return
		}
		out.HTML = html
	}

	h.logger.Info("weekly summary built", "run_id", runID, "model", res.ModelUsed, "messages_in", len(body.Messages), "messages_sent", res.MessagesSent)
	w.Header().Set(headerModelUsed, res.ModelUsed)
	JSON(w, http.StatusOK, out)
}

// decodeBody reads a JSON body into v. Malformed bodies get a 400 and false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "messages[] required")
		return false
	}
	return true
}
