// Package delivery owns outbound messages: an ordered queue (in memory or in
// redis), the SMS provider sender, and the drain that flushes the queue one
// send at a time.
package delivery

// Message is one outbound SMS.
type Message struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

// MaskRecipient hides all but the last four digits of a contact value.
func MaskRecipient(to string) string {
	const keep = 4
	if len(to) <= keep {
		return "****"
	}
	b := []byte(to)
	for i := range len(b) - keep {
		b[i] = '*'
	}
	return string(b)
}
