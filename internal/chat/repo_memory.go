package chat

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo used for dev and tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Message // documentID -> messages in append order
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string][]Message),
	}
}

// Append stores a message.
func (r *MemoryRepo) Append(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[msg.DocumentID] = append(r.data[msg.DocumentID], msg)
	return nil
}

// ListByDocument returns messages oldest-first.
func (r *MemoryRepo) ListByDocument(ctx context.Context, documentID string) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	msgs := append([]Message(nil), r.data[documentID]...)
	r.mu.RUnlock()

	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs, nil
}

// DeleteByDocument removes all messages for a document.
func (r *MemoryRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, documentID)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
