package chat

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one append-only chat message tied to a document. There is no
// session entity; the document id is the conversation key.
type Message struct {
	ID         string
	DocumentID string
	Role       string
	Body       string
	CreatedAt  time.Time
}
