package journey

import (
	"bytes"
	"encoding/json"
	"errors"
)

var (
	// ErrInvalidInput reports a conversation that is empty or malformed. It is detected before any model call.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingCredential reports that the model provider has no API key configured.
	ErrMissingCredential = errors.New("provider credential not configured")
)

// ChatMessage is one row of a chat export after ingestion.
//
// The JSON field names are the ones the model prompts describe (msg_id, timestamp, sender, message), so the
// struct can be embedded in prompts and returned to HTTP clients unchanged.
type ChatMessage struct {
	ID        string `json:"msg_id"`
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"`
	Text      string `json:"message"`
}

func (m ChatMessage) Date() string {
	if len(m.Timestamp) < 10 {
		return m.Timestamp
	}
	return m.Timestamp[:10]
}

// marshalPlain encodes v as compact JSON without HTML escaping and without a trailing newline.
// Prompts and compaction size accounting both go through it so the measured size is the sent size.
func marshalPlain(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
