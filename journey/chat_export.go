package journey

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ISOTimestampLayout is the normalized timestamp form stored on ChatMessage (UTC, millisecond precision).
const ISOTimestampLayout = "2006-01-02T15:04:05.000Z"

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"01/02/2006",
}

// ParseTimestamp parses an export timestamp and normalizes it to ISOTimestampLayout.
// Timestamps without a zone are read as UTC.
func ParseTimestamp(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(ISOTimestampLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognized timestamp %q", s)
}

// ExportStats describes what ReadChatExport kept and dropped.
type ExportStats struct {
	Rows    int
	Kept    int
	Skipped int
}

// ReadChatExport reads a CSV chat export with timestamp, sender and message columns (any order, any case,
// extra columns ignored). Rows with an unparsable timestamp or an empty sender or message are skipped.
// The returned messages keep file order and carry IDs from AssignMessageIDs.
func ReadChatExport(r io.Reader) ([]ChatMessage, ExportStats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ExportStats{}, fmt.Errorf("%w: empty CSV", ErrInvalidInput)
		}
		return nil, ExportStats{}, fmt.Errorf("%w: read CSV header: %w", ErrInvalidInput, err)
	}
	cols, err := exportColumns(header)
	if err != nil {
		return nil, ExportStats{}, err
	}

	var stats ExportStats
	out := make([]ChatMessage, 0, 256)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("%w: read CSV row %d: %w", ErrInvalidInput, stats.Rows+1, err)
		}
		if isBlankRecord(rec) {
			continue
		}
		stats.Rows++

		ts, err := ParseTimestamp(field(rec, cols.timestamp))
		sender := strings.TrimSpace(field(rec, cols.sender))
		text := strings.TrimSpace(field(rec, cols.message))
		if err != nil || sender == "" || text == "" {
			stats.Skipped++
			continue
		}
		out = append(out, ChatMessage{Timestamp: ts, Sender: sender, Text: text})
	}
	stats.Kept = len(out)
	AssignMessageIDs(out)
	return out, stats, nil
}

type exportColumnIndex struct {
	timestamp int
	sender    int
	message   int
}

func exportColumns(header []string) (exportColumnIndex, error) {
	idx := exportColumnIndex{timestamp: -1, sender: -1, message: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "timestamp":
			idx.timestamp = i
		case "sender":
			idx.sender = i
		case "message":
			idx.message = i
		}
	}
	var missing []string
	if idx.timestamp < 0 {
		missing = append(missing, "timestamp")
	}
	if idx.sender < 0 {
		missing = append(missing, "sender")
	}
	if idx.message < 0 {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("%w: CSV missing column(s) %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return idx, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func isBlankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
