package analysis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"contract-backend/internal/documents"
	"contract-backend/internal/llm"
)

type fakeLLM struct {
	result  llm.AnalysisResult
	err     error
	calls   atomic.Int32
	started chan struct{} // closed when AnalyzeContract is entered, if set
	block   chan struct{} // when set, AnalyzeContract waits until closed
}

func (f *fakeLLM) AnalyzeContract(ctx context.Context, text string) (llm.AnalysisResult, error) {
	f.calls.Add(1)
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return llm.AnalysisResult{}, &llm.CapabilityError{Kind: llm.KindTimeout, Provider: "fake", Err: ctx.Err()}
		}
	}
	if f.err != nil {
		return llm.AnalysisResult{}, f.err
	}
	return f.result, nil
}

func (f *fakeLLM) Answer(ctx context.Context, docText, question string, history []llm.Turn) (llm.Answer, error) {
	return llm.Answer{Text: "n/a"}, nil
}

func seedDocument(t *testing.T, repo documents.Repo) documents.Document {
	t.Helper()
	doc := documents.Document{
		ID:               "doc-1",
		OwnerID:          "user-1",
		Fingerprint:      "fp-1",
		FileName:         "contract.txt",
		MimeType:         "text/plain",
		SizeBytes:        10,
		ExtractedText:    "the contract text",
		SupportsAnalysis: true,
		AnalysisStatus:   documents.StatusPending,
		UploadedAt:       time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("create doc: %v", err)
	}
	return doc
}

func TestRunCompletesAnalysis(t *testing.T) {
	repo := documents.NewMemoryRepo()
	doc := seedDocument(t, repo)

	client := &fakeLLM{result: llm.AnalysisResult{
		Summary:   "a short summary",
		KeyPoints: []string{"point"},
		Findings: []llm.Finding{
			{Category: "liability", Severity: "high", Description: "unlimited liability"},
			{Category: "payment", Severity: "low", Description: "net-90 terms"},
		},
		SuggestedRevisions: []string{"cap liability"},
		TotalClauses:       5,
	}}
	svc := NewService(repo, client, NewMemoryLocker(), time.Minute)

	updated, err := svc.Run(context.Background(), doc.OwnerID, doc.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if updated.AnalysisStatus != documents.StatusCompleted {
		t.Fatalf("status = %s, want completed", updated.AnalysisStatus)
	}
	if updated.Summary != "a short summary" {
		t.Fatalf("summary = %q", updated.Summary)
	}
	if updated.RiskScore == nil || *updated.RiskScore <= 0 {
		t.Fatalf("risk score = %v, want > 0", updated.RiskScore)
	}
	if updated.TotalClauses != 5 {
		t.Fatalf("total clauses = %d", updated.TotalClauses)
	}
	if len(updated.RiskAssessments) != 2 {
		t.Fatalf("assessments = %d", len(updated.RiskAssessments))
	}
	if updated.AnalysisCompletedAt == nil {
		t.Fatal("missing completed timestamp")
	}
}

func TestRunMissingDocumentIsNotFound(t *testing.T) {
	repo := documents.NewMemoryRepo()
	svc := NewService(repo, &fakeLLM{}, NewMemoryLocker(), time.Minute)

	_, err := svc.Run(context.Background(), "user-1", "missing")
	if !errors.Is(err, documents.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRunReturnsCompletedDocumentUnchanged(t *testing.T) {
	repo := documents.NewMemoryRepo()
	doc := seedDocument(t, repo)

	completed, err := repo.CompleteAnalysis(context.Background(), doc.OwnerID, doc.ID, documents.AnalysisResult{
		Summary:     "done already",
		RiskScore:   12.5,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CompleteAnalysis: %v", err)
	}

	// a client that fails loudly if called at all
	client := &fakeLLM{err: errors.New("should not be called")}
	svc := NewService(repo, client, NewMemoryLocker(), time.Minute)

	got, err := svc.Run(context.Background(), doc.OwnerID, doc.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Summary != completed.Summary {
		t.Fatalf("summary = %q, want %q", got.Summary, completed.Summary)
	}
}

func TestRunFailureDeletesDocument(t *testing.T) {
	repo := documents.NewMemoryRepo()
	doc := seedDocument(t, repo)

	client := &fakeLLM{err: &llm.CapabilityError{Kind: llm.KindProvider, Provider: "fake", Err: errors.New("boom")}}
	svc := NewService(repo, client, NewMemoryLocker(), time.Minute)

	_, err := svc.Run(context.Background(), doc.OwnerID, doc.ID)
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("err = %v, want ErrAnalysisFailed", err)
	}

	_, err = repo.GetByID(context.Background(), doc.OwnerID, doc.ID)
	if !errors.Is(err, documents.ErrNotFound) {
		t.Fatalf("document still present after failed analysis: %v", err)
	}
}

func TestRunRejectsConcurrentAnalysis(t *testing.T) {
	repo := documents.NewMemoryRepo()
	doc := seedDocument(t, repo)

	release := make(chan struct{})
	started := make(chan struct{})
	client := &fakeLLM{
		result:  llm.AnalysisResult{Summary: "ok"},
		started: started,
		block:   release,
	}
	svc := NewService(repo, client, NewMemoryLocker(), time.Minute)

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), doc.OwnerID, doc.ID)
		firstDone <- err
	}()

	// First run holds the lock once the provider call begins.
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never reached the provider call")
	}

	_, err := svc.Run(context.Background(), doc.OwnerID, doc.ID)
	if !errors.Is(err, ErrAnalysisInProgress) {
		t.Fatalf("err = %v, want ErrAnalysisInProgress", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

// staleReadRepo hands out one stale document snapshot before delegating to
// the real repo, reproducing a read that raced ahead of a completing run.
type staleReadRepo struct {
	documents.Repo
	mu    sync.Mutex
	stale *documents.Document
}

func (r *staleReadRepo) GetByID(ctx context.Context, ownerID, documentID string) (documents.Document, error) {
	r.mu.Lock()
	if r.stale != nil {
		doc := *r.stale
		r.stale = nil
		r.mu.Unlock()
		return doc, nil
	}
	r.mu.Unlock()
	return r.Repo.GetByID(ctx, ownerID, documentID)
}

func TestRunStaleReadDoesNotReinvokeProvider(t *testing.T) {
	memRepo := documents.NewMemoryRepo()
	pending := seedDocument(t, memRepo)
	repo := &staleReadRepo{Repo: memRepo}

	client := &fakeLLM{result: llm.AnalysisResult{
		Summary:  "the one true result",
		Findings: []llm.Finding{{Category: "liability", Severity: "high", Description: "d"}},
	}}
	svc := NewService(repo, client, NewMemoryLocker(), time.Minute)

	first, err := svc.Run(context.Background(), pending.OwnerID, pending.ID)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.AnalysisStatus != documents.StatusCompleted {
		t.Fatalf("status = %s, want completed", first.AnalysisStatus)
	}
	if got := client.calls.Load(); got != 1 {
		t.Fatalf("provider calls = %d, want 1", got)
	}

	// Second run's initial read sees the pre-completion snapshot; only the
	// re-read under the lock can stop a second provider invocation.
	repo.mu.Lock()
	repo.stale = &pending
	repo.mu.Unlock()

	second, err := svc.Run(context.Background(), pending.OwnerID, pending.ID)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if got := client.calls.Load(); got != 1 {
		t.Fatalf("provider calls = %d, want 1 for one document", got)
	}
	if second.Summary != first.Summary {
		t.Fatalf("summary = %q, want stored result %q", second.Summary, first.Summary)
	}
	if second.AnalysisCompletedAt == nil || !second.AnalysisCompletedAt.Equal(*first.AnalysisCompletedAt) {
		t.Fatalf("completed at changed: %v vs %v", second.AnalysisCompletedAt, first.AnalysisCompletedAt)
	}
}
