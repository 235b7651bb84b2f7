package documents

import (
	"context"
	"time"
)

// Repo defines persistence operations for documents. Repos own no business
// rules beyond storage; upload resolution lives in the service.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, ownerID, documentID string) (Document, error)
	GetByFingerprint(ctx context.Context, ownerID, fp string) (Document, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Document, error)
	AddPurpose(ctx context.Context, ownerID, documentID string, purpose Purpose) (Document, error)
	SetAnalysisStarted(ctx context.Context, ownerID, documentID string, startedAt time.Time) error
	CompleteAnalysis(ctx context.Context, ownerID, documentID string, result AnalysisResult) (Document, error)
	Delete(ctx context.Context, ownerID, documentID string) error
}
