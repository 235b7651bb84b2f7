package documents

import (
	"context"
	"errors"
	"sync"
	"testing"

	"contract-backend/internal/extract"
)

type recordingStarter struct {
	mu      sync.Mutex
	started []string
}

func (s *recordingStarter) Start(ctx context.Context, ownerID, documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, documentID)
}

func (s *recordingStarter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.started)
}

func newTestService(starter Starter) (*Service, *MemoryRepo) {
	repo := NewMemoryRepo()
	return NewService(repo, starter, 10<<20), repo
}

func TestResolveUploadCreatesDocument(t *testing.T) {
	starter := &recordingStarter{}
	svc, repo := newTestService(starter)

	decision, err := svc.ResolveUpload(context.Background(), "user-1", "contract.txt", "text/plain", []byte("term sheet"), PurposeAnalysis)
	if err != nil {
		t.Fatalf("ResolveUpload: %v", err)
	}
	if decision.Kind != DecisionCreated {
		t.Fatalf("kind = %s, want created", decision.Kind)
	}
	if decision.Document.ID == "" {
		t.Fatal("expected a document id")
	}
	if !decision.Document.SupportsAnalysis || decision.Document.SupportsChat {
		t.Fatalf("purpose flags = %v/%v, want analysis only", decision.Document.SupportsAnalysis, decision.Document.SupportsChat)
	}
	if decision.Document.AnalysisStatus != StatusPending {
		t.Fatalf("status = %s, want pending", decision.Document.AnalysisStatus)
	}
	if decision.Document.ExtractedText != "term sheet" {
		t.Fatalf("extracted text = %q", decision.Document.ExtractedText)
	}
	if starter.count() != 1 {
		t.Fatalf("starter called %d times, want 1", starter.count())
	}

	stored, err := repo.GetByID(context.Background(), "user-1", decision.Document.ID)
	if err != nil {
		t.Fatalf("GetByID after create: %v", err)
	}
	if stored.Fingerprint == "" {
		t.Fatal("stored document has no fingerprint")
	}
}

func TestResolveUploadChatPurposeAlsoStartsAnalysis(t *testing.T) {
	starter := &recordingStarter{}
	svc, _ := newTestService(starter)

	decision, err := svc.ResolveUpload(context.Background(), "user-1", "contract.txt", "text/plain", []byte("term sheet"), PurposeChat)
	if err != nil {
		t.Fatalf("ResolveUpload: %v", err)
	}
	if decision.Kind != DecisionCreated {
		t.Fatalf("kind = %s, want created", decision.Kind)
	}
	if starter.count() != 1 {
		t.Fatalf("starter called %d times, want 1 for a chat-purpose create", starter.count())
	}
}

func TestResolveUploadSamePurposeReturnsExisting(t *testing.T) {
	svc, _ := newTestService(&recordingStarter{})
	content := []byte("identical content")

	first, err := svc.ResolveUpload(context.Background(), "user-1", "a.txt", "text/plain", content, PurposeChat)
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}

	second, err := svc.ResolveUpload(context.Background(), "user-1", "b.txt", "text/plain", content, PurposeChat)
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if second.Kind != DecisionExistingSamePurpose {
		t.Fatalf("kind = %s, want existing_same_purpose", second.Kind)
	}
	if second.Document.ID != first.Document.ID {
		t.Fatalf("resolved to %s, want %s", second.Document.ID, first.Document.ID)
	}
}

func TestResolveUploadCrossPurposeNeedsConfirmation(t *testing.T) {
	svc, repo := newTestService(&recordingStarter{})
	content := []byte("identical content")

	first, err := svc.ResolveUpload(context.Background(), "user-1", "a.txt", "text/plain", content, PurposeChat)
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}

	second, err := svc.ResolveUpload(context.Background(), "user-1", "a.txt", "text/plain", content, PurposeAnalysis)
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if second.Kind != DecisionExistingCrossPurpose {
		t.Fatalf("kind = %s, want existing_cross_purpose", second.Kind)
	}
	if len(second.ExistingPurposes) != 1 || second.ExistingPurposes[0] != PurposeChat {
		t.Fatalf("existing purposes = %v, want [chat]", second.ExistingPurposes)
	}
	if second.RequestedPurpose != PurposeAnalysis {
		t.Fatalf("requested purpose = %s", second.RequestedPurpose)
	}

	// Conflict must not have mutated the stored purpose set.
	stored, err := repo.GetByID(context.Background(), "user-1", first.Document.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.SupportsAnalysis {
		t.Fatal("conflict should not add the analysis purpose")
	}
}

func TestResolveUploadScopedPerOwner(t *testing.T) {
	svc, _ := newTestService(&recordingStarter{})
	content := []byte("shared bytes")

	if _, err := svc.ResolveUpload(context.Background(), "user-1", "a.txt", "text/plain", content, PurposeChat); err != nil {
		t.Fatalf("user-1 upload: %v", err)
	}
	decision, err := svc.ResolveUpload(context.Background(), "user-2", "a.txt", "text/plain", content, PurposeChat)
	if err != nil {
		t.Fatalf("user-2 upload: %v", err)
	}
	if decision.Kind != DecisionCreated {
		t.Fatalf("kind = %s, want created for a different owner", decision.Kind)
	}
}

func TestResolveUploadRejectsUnsupportedFormat(t *testing.T) {
	svc, _ := newTestService(&recordingStarter{})

	_, err := svc.ResolveUpload(context.Background(), "user-1", "image.png", "image/png", []byte{0x89, 0x50, 0x4e, 0x47}, PurposeAnalysis)
	if !errors.Is(err, extract.ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestResolveUploadRejectsOversizedFile(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, nil, 8)

	_, err := svc.ResolveUpload(context.Background(), "user-1", "big.txt", "text/plain", []byte("well over eight bytes"), PurposeChat)
	if !errors.Is(err, extract.ErrFileTooLarge) {
		t.Fatalf("err = %v, want ErrFileTooLarge", err)
	}
}

func TestConfirmPurposeGrowsSet(t *testing.T) {
	starter := &recordingStarter{}
	svc, _ := newTestService(starter)

	decision, err := svc.ResolveUpload(context.Background(), "user-1", "a.txt", "text/plain", []byte("content"), PurposeChat)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if starter.count() != 1 {
		t.Fatalf("starter called %d times after upload, want 1", starter.count())
	}

	doc, err := svc.ConfirmPurpose(context.Background(), "user-1", decision.Document.ID, PurposeAnalysis)
	if err != nil {
		t.Fatalf("ConfirmPurpose: %v", err)
	}
	if !doc.SupportsAnalysis || !doc.SupportsChat {
		t.Fatalf("purposes = %v, want both", doc.Purposes())
	}
	// Document is still pending, so confirming the analysis purpose nudges
	// the orchestrator again; the lock and completed-check make it safe.
	if starter.count() != 2 {
		t.Fatalf("starter called %d times, want 2 after confirming analysis", starter.count())
	}

	// Confirming again is a no-op, not an error.
	again, err := svc.ConfirmPurpose(context.Background(), "user-1", decision.Document.ID, PurposeAnalysis)
	if err != nil {
		t.Fatalf("ConfirmPurpose twice: %v", err)
	}
	if len(again.Purposes()) != 2 {
		t.Fatalf("purposes = %v after repeat confirm", again.Purposes())
	}
}

func TestConfirmPurposeAfterDeleteIsNotFound(t *testing.T) {
	svc, _ := newTestService(&recordingStarter{})

	decision, err := svc.ResolveUpload(context.Background(), "user-1", "a.txt", "text/plain", []byte("content"), PurposeChat)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := svc.Delete(context.Background(), "user-1", decision.Document.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, err = svc.ConfirmPurpose(context.Background(), "user-1", decision.Document.ID, PurposeAnalysis)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	svc, _ := newTestService(&recordingStarter{})

	for _, content := range []string{"first", "second", "third"} {
		if _, err := svc.ResolveUpload(context.Background(), "user-1", content+".txt", "text/plain", []byte(content), PurposeChat); err != nil {
			t.Fatalf("upload %s: %v", content, err)
		}
	}

	docs, err := svc.List(context.Background(), "user-1", 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("len = %d, want 3", len(docs))
	}
	for i := 1; i < len(docs); i++ {
		if docs[i].UploadedAt.After(docs[i-1].UploadedAt) {
			t.Fatalf("documents not newest-first at index %d", i)
		}
	}
}
