package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"contract-backend/internal/documents"
	"contract-backend/internal/llm"
	"contract-backend/internal/shared/metrics"
	"contract-backend/internal/shared/telemetry"
)

// historyWindow is how many stored messages accompany a question as context.
const historyWindow = 10

// Service answers questions about a document and persists the exchange.
// Sends are serialized per document so stored timestamps are strictly
// increasing and history order is unambiguous.
type Service struct {
	docs   documents.Repo
	repo   Repo
	client llm.Client
	now    func() time.Time

	mu        sync.Mutex
	docLocks  map[string]*sync.Mutex
	lastStamp map[string]time.Time
}

// NewService constructs a Service.
func NewService(docs documents.Repo, repo Repo, client llm.Client) *Service {
	return &Service{
		docs:      docs,
		repo:      repo,
		client:    client,
		now:       time.Now,
		docLocks:  make(map[string]*sync.Mutex),
		lastStamp: make(map[string]time.Time),
	}
}

// Send answers a question about the document and appends both sides of the
// exchange. The document must exist but any analysis status is fine; chat
// never waits on analysis.
func (s *Service) Send(ctx context.Context, ownerID, documentID, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	doc, err := s.docs.GetByID(ctx, ownerID, documentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			s.forget(documentID)
		}
		return Message{}, err
	}

	lock := s.lockFor(documentID)
	lock.Lock()
	defer lock.Unlock()

	history, err := s.repo.ListByDocument(ctx, documentID)
	if err != nil {
		return Message{}, err
	}
	turns := recentTurns(history, historyWindow)

	answer, err := s.client.Answer(ctx, doc.ExtractedText, text, turns)
	if err != nil {
		return Message{}, err
	}

	userMsg := Message{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Role:       RoleUser,
		Body:       text,
		CreatedAt:  s.nextStamp(documentID),
	}
	if err := s.repo.Append(ctx, userMsg); err != nil {
		return Message{}, err
	}

	assistantMsg := Message{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Role:       RoleAssistant,
		Body:       answer.Text,
		CreatedAt:  s.nextStamp(documentID),
	}
	if err := s.repo.Append(ctx, assistantMsg); err != nil {
		return Message{}, err
	}

	metrics.IncChatMessage()
	telemetry.Info("chat.message_answered", map[string]any{
		"document_id": documentID,
		"user_id":     ownerID,
		"history_len": len(history),
	})

	return assistantMsg, nil
}

// History returns all messages for a document, oldest-first. A document with
// no messages yields an empty list; a missing document is NotFound.
func (s *Service) History(ctx context.Context, ownerID, documentID string) ([]Message, error) {
	if _, err := s.docs.GetByID(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	msgs, err := s.repo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []Message{}
	}
	return msgs, nil
}

// Clear removes a document's messages. The document itself stays.
func (s *Service) Clear(ctx context.Context, ownerID, documentID string) error {
	if _, err := s.docs.GetByID(ctx, ownerID, documentID); err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			s.forget(documentID)
		}
		return err
	}
	if err := s.repo.DeleteByDocument(ctx, documentID); err != nil {
		return err
	}
	s.forget(documentID)
	telemetry.Info("chat.history_cleared", map[string]any{
		"document_id": documentID,
		"user_id":     ownerID,
	})
	return nil
}

// forget drops the per-document lock and timestamp entries. Called when a
// document's history is cleared or the document turns out to be gone, so the
// maps do not grow with every document ever chatted about.
func (s *Service) forget(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docLocks, documentID)
	delete(s.lastStamp, documentID)
}

func (s *Service) lockFor(documentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.docLocks[documentID]
	if !ok {
		lock = &sync.Mutex{}
		s.docLocks[documentID] = lock
	}
	return lock
}

// nextStamp returns a timestamp strictly after the previous one handed out
// for this document, so two messages stored in the same clock tick still
// order correctly.
func (s *Service) nextStamp(documentID string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp := s.now().UTC()
	if last, ok := s.lastStamp[documentID]; ok && !stamp.After(last) {
		stamp = last.Add(time.Microsecond)
	}
	s.lastStamp[documentID] = stamp
	return stamp
}

func recentTurns(history []Message, window int) []llm.Turn {
	start := 0
	if len(history) > window {
		start = len(history) - window
	}
	turns := make([]llm.Turn, 0, len(history)-start)
	for _, msg := range history[start:] {
		turns = append(turns, llm.Turn{Role: msg.Role, Text: msg.Body})
	}
	return turns
}
