package journey

import "fmt"

// AssignMessageIDs sets each message ID to m-<date>-<seq>, where seq counts messages per calendar date
// (timestamp prefix) in slice order, starting at 1 and zero-padded to three digits.
func AssignMessageIDs(msgs []ChatMessage) {
	perDay := make(map[string]int)
	for i := range msgs {
		d := msgs[i].Date()
		perDay[d]++
		msgs[i].ID = fmt.Sprintf("m-%s-%03d", d, perDay[d])
	}
}
