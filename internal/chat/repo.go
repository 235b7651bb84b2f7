package chat

import "context"

// Repo defines persistence for chat messages. Ownership checks happen in the
// service against the documents store; repos only see document ids.
type Repo interface {
	Append(ctx context.Context, msg Message) error
	// ListByDocument returns messages oldest-first.
	ListByDocument(ctx context.Context, documentID string) ([]Message, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}
