package journey

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxRawPrefixChars bounds the raw model text carried by UnparsableResponseError.
const MaxRawPrefixChars = 1000

// UnparsableResponseError reports model output that is neither raw JSON nor a fenced JSON object.
type UnparsableResponseError struct {
	// RawPrefix is the first MaxRawPrefixChars characters of the model text followed by "...".
	RawPrefix string
	// ModelUsed is the model that produced the text, when known.
	ModelUsed string
}

func (e *UnparsableResponseError) Error() string {
	return "model did not return valid JSON"
}

// parseStrategy extracts a JSON document from model text. ok=false means the strategy did not apply.
type parseStrategy func(text string) (json.RawMessage, bool)

var fencedJSONObject = regexp.MustCompile("```(?:json)?\\s*(\\{[\\s\\S]*\\})\\s*```")

// responseStrategies run in order; the first success wins.
var responseStrategies = []parseStrategy{
	parseRawJSON,
	parseFencedJSON,
}

// Interpret extracts the structured result from model text. The text is tried as JSON as-is, then as a
// JSON object inside a ``` or ```json fence. The parsed document is returned verbatim and is not validated
// against any schema.
func Interpret(text string) (json.RawMessage, error) {
	for _, parse := range responseStrategies {
		if out, ok := parse(text); ok {
			return out, nil
		}
	}
	return nil, &UnparsableResponseError{RawPrefix: rawPrefix(text)}
}

// InterpretInto runs Interpret and decodes the result into v.
func InterpretInto(text string, v any) error {
	raw, err := Interpret(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode model JSON: %w", err)
	}
	return nil
}

func parseRawJSON(text string) (json.RawMessage, bool) {
	s := strings.TrimSpace(text)
	if s == "" || !json.Valid([]byte(s)) {
		return nil, false
	}
	return json.RawMessage(s), true
}

func parseFencedJSON(text string) (json.RawMessage, bool) {
	m := fencedJSONObject.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	if !json.Valid([]byte(m[1])) {
		return nil, false
	}
	return json.RawMessage(m[1]), true
}

func rawPrefix(text string) string {
	return truncateRunes(text, MaxRawPrefixChars) + "..."
}

// IsUnparsable reports whether err is (or wraps) an UnparsableResponseError.
func IsUnparsable(err error) bool {
	var ue *UnparsableResponseError
	return errors.As(err, &ue)
}
