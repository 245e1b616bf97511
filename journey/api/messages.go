package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/theimaginaryfoundation/journey-o-bot/journey"
)

type messagesResponse struct {
	Messages []journey.ChatMessage `json:"messages"`
	From     string                `json:"from"`
	To       string                `json:"to"`
	Total    int                   `json:"total"`
	Skipped  int                   `json:"skipped"`
}

// UploadMessages handles POST /api/messages. The body is the CSV export itself or a multipart form
// with a "file" part. Optional from/to query parameters (YYYY-MM-DD) filter the result; without them the
// full date span of the export is reported.
func (h *Handler) UploadMessages(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	src, closeSrc, err := csvSource(r)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			Error(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		Error(w, http.StatusBadRequest, `multipart upload requires a "file" part`)
		return
	}
	defer closeSrc()

	msgs, stats, err := journey.ReadChatExport(src)
	if err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			Error(w, http.StatusRequestEntityTooLarge, "upload too large")
		case errors.Is(err, journey.ErrInvalidInput):
			Error(w, http.StatusBadRequest, err.Error())
		default:
			h.writeFailure(w, r, "messages", err)
		}
		return
	}

	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" || to == "" {
		from, to = journey.DateBounds(msgs)
	}
	filtered := journey.FilterByDate(msgs, from, to)

	h.logger.Info("chat export ingested", "rows", stats.Rows, "kept", stats.Kept, "skipped", stats.Skipped, "from", from, "to", to, "selected", len(filtered))
	JSON(w, http.StatusOK, messagesResponse{
		Messages: filtered,
		From:     from,
		To:       to,
		Total:    len(msgs),
		Skipped:  stats.Skipped,
	})
}

func csvSource(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return r.Body, func() {}, nil
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("read multipart file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
