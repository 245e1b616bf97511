package journey

import (
	"fmt"
	"unicode/utf8"
)

const (
	// DefaultMaxPerMessageChars is the per-message text cap applied before any size accounting.
	DefaultMaxPerMessageChars = 800

	// DefaultMaxSerializedChars is the budget for the serialized {"messages":[...]} payload.
	DefaultMaxSerializedChars = 120_000

	// MinCompactedMessages is the floor below which Compact stops dropping messages,
	// even when the payload is still over budget.
	MinCompactedMessages = 50
)

// CompactionConfig bounds the size of a conversation before it is sent to a model.
// Zero (or negative) fields fall back to the package defaults.
type CompactionConfig struct {
	MaxPerMessageChars int `yaml:"max_per_message_chars"`
	MaxSerializedChars int `yaml:"max_serialized_chars"`
}

// DefaultCompactionConfig returns the limits used when a caller does not override them.
func DefaultCompactionConfig() CompactionConfig {
	return CompactionConfig{
		MaxPerMessageChars: DefaultMaxPerMessageChars,
		MaxSerializedChars: DefaultMaxSerializedChars,
	}
}

func (c CompactionConfig) withDefaults() CompactionConfig {
	if c.MaxPerMessageChars <= 0 {
		c.MaxPerMessageChars = DefaultMaxPerMessageChars
	}
	if c.MaxSerializedChars <= 0 {
		c.MaxSerializedChars = DefaultMaxSerializedChars
	}
	return c
}

// messagesEnvelopeChars is len(`{"messages":[`) + len(`]}`).
const messagesEnvelopeChars = 15

// Compact truncates every message text to MaxPerMessageChars and then drops the oldest 10% of the
// conversation (rounded up, at least one message) until the serialized {"messages": [...]} payload fits
// MaxSerializedChars or only MinCompactedMessages remain. The last cut is clamped so the floor is hit
// exactly rather than overshot. Order is preserved; the input is not modified.
//
// Lengths are counted in characters (runes) of the JSON encoding used for prompts.
func Compact(msgs []ChatMessage, cfg CompactionConfig) ([]ChatMessage, error) {
	cfg = cfg.withDefaults()

	working := make([]ChatMessage, len(msgs))
	sizes := make([]int, len(msgs))
	for i, m := range msgs {
		m.Text = truncateRunes(m.Text, cfg.MaxPerMessageChars)
		b, err := marshalPlain(m)
		if err != nil {
			return nil, fmt.Errorf("compact: marshal message %d: %w", i, err)
		}
		working[i] = m
		sizes[i] = utf8.RuneCount(b)
	}

	total := serializedChars(sizes)
	start := 0
	for total > cfg.MaxSerializedChars && len(working)-start > MinCompactedMessages {
		remaining := len(working) - start
		cut := (remaining + 9) / 10
		if remaining-cut < MinCompactedMessages {
			cut = remaining - MinCompactedMessages
		}
		start += cut
		total = serializedChars(sizes[start:])
	}
	return working[start:], nil
}

// SerializedChars reports the character length of msgs encoded as {"messages":[...]}.
func SerializedChars(msgs []ChatMessage) (int, error) {
	if msgs == nil {
		msgs = []ChatMessage{}
	}
	b, err := marshalPlain(struct {
		Messages []ChatMessage `json:"messages"`
	}{Messages: msgs})
	if err != nil {
		return 0, err
	}
	return utf8.RuneCount(b), nil
}

func serializedChars(sizes []int) int {
	n := messagesEnvelopeChars
	for i, s := range sizes {
		if i > 0 {
			n++
		}
		n += s
	}
	return n
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	i := 0
	for pos := range s {
		if i == max {
			return s[:pos]
		}
		i++
	}
	return s
}
