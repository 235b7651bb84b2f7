package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo used for dev and tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]map[string]Document // ownerID -> documentID -> document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]map[string]Document),
	}
}

// Create stores a new document, enforcing fingerprint uniqueness per owner.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	owned := r.data[doc.OwnerID]
	if owned == nil {
		owned = make(map[string]Document)
		r.data[doc.OwnerID] = owned
	}
	for _, existing := range owned {
		if existing.Fingerprint == doc.Fingerprint {
			return ErrDuplicateFingerprint
		}
	}
	owned[doc.ID] = cloneDocument(doc)
	return nil
}

// GetByID returns a document by ID for an owner.
func (r *MemoryRepo) GetByID(ctx context.Context, ownerID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[ownerID][documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDocument(doc), nil
}

// GetByFingerprint returns the owner's document matching the fingerprint.
func (r *MemoryRepo) GetByFingerprint(ctx context.Context, ownerID, fp string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.data[ownerID] {
		if doc.Fingerprint == fp {
			return cloneDocument(doc), nil
		}
	}
	return Document{}, ErrNotFound
}

// ListByOwner returns documents for an owner, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// same clamps as the Postgres repo
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	docs := make([]Document, 0, len(r.data[ownerID]))
	for _, doc := range r.data[ownerID] {
		docs = append(docs, cloneDocument(doc))
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].ID > docs[j].ID
		}
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})

	if offset >= len(docs) {
		return []Document{}, nil
	}
	end := len(docs)
	if offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end], nil
}

// AddPurpose grows the purpose set; it never shrinks.
func (r *MemoryRepo) AddPurpose(ctx context.Context, ownerID, documentID string, purpose Purpose) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[ownerID][documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	switch purpose {
	case PurposeAnalysis:
		doc.SupportsAnalysis = true
	case PurposeChat:
		doc.SupportsChat = true
	}
	r.data[ownerID][documentID] = doc
	return cloneDocument(doc), nil
}

// SetAnalysisStarted records when the orchestrator picked up the document.
func (r *MemoryRepo) SetAnalysisStarted(ctx context.Context, ownerID, documentID string, startedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[ownerID][documentID]
	if !ok {
		return ErrNotFound
	}
	doc.AnalysisStartedAt = &startedAt
	r.data[ownerID][documentID] = doc
	return nil
}

// CompleteAnalysis writes the analysis output and flips status to completed.
func (r *MemoryRepo) CompleteAnalysis(ctx context.Context, ownerID, documentID string, result AnalysisResult) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[ownerID][documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	score := result.RiskScore
	completedAt := result.CompletedAt
	doc.AnalysisStatus = StatusCompleted
	doc.Summary = result.Summary
	doc.RiskScore = &score
	doc.TotalClauses = result.TotalClauses
	doc.KeyPoints = append([]string(nil), result.KeyPoints...)
	doc.RiskAssessments = append([]RiskAssessment(nil), result.RiskAssessments...)
	doc.SuggestedRevisions = append([]string(nil), result.SuggestedRevisions...)
	doc.AnalysisCompletedAt = &completedAt
	r.data[ownerID][documentID] = doc
	return cloneDocument(doc), nil
}

// Delete removes a document.
func (r *MemoryRepo) Delete(ctx context.Context, ownerID, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[ownerID][documentID]; !ok {
		return ErrNotFound
	}
	delete(r.data[ownerID], documentID)
	return nil
}

func cloneDocument(doc Document) Document {
	out := doc
	if doc.RiskScore != nil {
		score := *doc.RiskScore
		out.RiskScore = &score
	}
	if doc.AnalysisStartedAt != nil {
		t := *doc.AnalysisStartedAt
		out.AnalysisStartedAt = &t
	}
	if doc.AnalysisCompletedAt != nil {
		t := *doc.AnalysisCompletedAt
		out.AnalysisCompletedAt = &t
	}
	out.KeyPoints = append([]string(nil), doc.KeyPoints...)
	out.RiskAssessments = append([]RiskAssessment(nil), doc.RiskAssessments...)
	out.SuggestedRevisions = append([]string(nil), doc.SuggestedRevisions...)
	return out
}

var _ Repo = (*MemoryRepo)(nil)
