package journey

// FilterByDate keeps messages whose date falls within [from, to] (YYYY-MM-DD, inclusive).
// If either bound is empty the input is returned unchanged.
func FilterByDate(msgs []ChatMessage, from, to string) []ChatMessage {
	if from == "" || to == "" {
		return msgs
	}
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		d := m.Date()
		if d >= from && d <= to {
			out = append(out, m)
		}
	}
	return out
}

func DateBounds(msgs []ChatMessage) (first, last string) {
	if len(msgs) == 0 {
		return "", ""
	}
	return msgs[0].Date(), msgs[len(msgs)-1].Date()
}
