package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"contract-backend/internal/extract"
	"contract-backend/internal/fingerprint"
	"contract-backend/internal/shared/metrics"
	"contract-backend/internal/shared/telemetry"
)

// Starter kicks off background analysis for a freshly created document.
// Declared here so the analysis package can depend on documents without a cycle.
type Starter interface {
	Start(ctx context.Context, ownerID, documentID string)
}

// Service resolves uploads against the existing document set and manages
// document lifecycle outside of analysis.
type Service struct {
	repo           Repo
	starter        Starter
	maxUploadBytes int64
	now            func() time.Time
}

// NewService constructs a Service. starter may be nil in tests that do not
// exercise background analysis.
func NewService(repo Repo, starter Starter, maxUploadBytes int64) *Service {
	return &Service{
		repo:           repo,
		starter:        starter,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

// ResolveUpload decides what an upload means instead of blindly creating a
// record: a new document, a no-op against an existing one, or a cross-purpose
// conflict the caller must confirm. Text extraction runs first so unsupported
// or oversized files fail before any dedup lookup.
func (s *Service) ResolveUpload(ctx context.Context, ownerID, fileName, mimeType string, content []byte, purpose Purpose) (UploadDecision, error) {
	if ownerID == "" {
		return UploadDecision{}, fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}
	if _, ok := ParsePurpose(string(purpose)); !ok {
		return UploadDecision{}, fmt.Errorf("%w: unknown purpose %q", ErrInvalidInput, purpose)
	}

	text, err := extract.FromBytes(ctx, content, mimeType, fileName, s.maxUploadBytes)
	if err != nil {
		return UploadDecision{}, err
	}

	fp := fingerprint.Compute(content, ownerID)

	existing, err := s.repo.GetByFingerprint(ctx, ownerID, fp)
	switch {
	case err == nil:
		return s.resolveExisting(existing, purpose), nil
	case errors.Is(err, ErrNotFound):
		// fall through to create
	default:
		return UploadDecision{}, err
	}

	doc := Document{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		Fingerprint:    fp,
		FileName:       fileName,
		MimeType:       mimeType,
		SizeBytes:      int64(len(content)),
		ExtractedText:  text,
		AnalysisStatus: StatusPending,
		UploadedAt:     s.now().UTC(),
	}
	switch purpose {
	case PurposeAnalysis:
		doc.SupportsAnalysis = true
	case PurposeChat:
		doc.SupportsChat = true
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		if errors.Is(err, ErrDuplicateFingerprint) {
			// Lost a race with a concurrent upload of the same content.
			// Re-fetch and resolve against the winner.
			existing, getErr := s.repo.GetByFingerprint(ctx, ownerID, fp)
			if getErr != nil {
				return UploadDecision{}, getErr
			}
			return s.resolveExisting(existing, purpose), nil
		}
		return UploadDecision{}, err
	}

	metrics.IncUpload()
	telemetry.Info("document.created", map[string]any{
		"document_id": doc.ID,
		"user_id":     ownerID,
		"purpose":     string(purpose),
		"size_bytes":  doc.SizeBytes,
	})

	// Analysis runs for every new document regardless of the requested
	// purpose; chat answers draw on the same extracted understanding.
	if s.starter != nil {
		s.starter.Start(ctx, ownerID, doc.ID)
	}

	return UploadDecision{
		Kind:             DecisionCreated,
		Document:         doc,
		ExistingPurposes: doc.Purposes(),
		RequestedPurpose: purpose,
	}, nil
}

func (s *Service) resolveExisting(existing Document, purpose Purpose) UploadDecision {
	metrics.IncDuplicateUpload()
	kind := DecisionExistingCrossPurpose
	if existing.HasPurpose(purpose) {
		kind = DecisionExistingSamePurpose
	}
	return UploadDecision{
		Kind:             kind,
		Document:         existing,
		ExistingPurposes: existing.Purposes(),
		RequestedPurpose: purpose,
	}
}

// ConfirmPurpose adds a purpose to an existing document. The purpose set only
// grows, so confirming an already-held purpose is a no-op returning the
// current document.
func (s *Service) ConfirmPurpose(ctx context.Context, ownerID, documentID string, purpose Purpose) (Document, error) {
	if _, ok := ParsePurpose(string(purpose)); !ok {
		return Document{}, fmt.Errorf("%w: unknown purpose %q", ErrInvalidInput, purpose)
	}
	doc, err := s.repo.AddPurpose(ctx, ownerID, documentID, purpose)
	if err != nil {
		return Document{}, err
	}
	telemetry.Info("document.purpose_confirmed", map[string]any{
		"document_id": documentID,
		"user_id":     ownerID,
		"purpose":     string(purpose),
	})
	if purpose == PurposeAnalysis && doc.AnalysisStatus == StatusPending && s.starter != nil {
		s.starter.Start(ctx, ownerID, documentID)
	}
	return doc, nil
}

// Get returns a single document.
func (s *Service) Get(ctx context.Context, ownerID, documentID string) (Document, error) {
	return s.repo.GetByID(ctx, ownerID, documentID)
}

// List returns the owner's documents, newest first.
func (s *Service) List(ctx context.Context, ownerID string, limit, offset int) ([]Document, error) {
	return s.repo.ListByOwner(ctx, ownerID, limit, offset)
}

// Status reports the analysis lifecycle state for polling clients.
func (s *Service) Status(ctx context.Context, ownerID, documentID string) (Document, error) {
	return s.repo.GetByID(ctx, ownerID, documentID)
}

// Delete removes a document and, through the schema, its chat history.
func (s *Service) Delete(ctx context.Context, ownerID, documentID string) error {
	if err := s.repo.Delete(ctx, ownerID, documentID); err != nil {
		return err
	}
	telemetry.Info("document.deleted", map[string]any{
		"document_id": documentID,
		"user_id":     ownerID,
	})
	return nil
}
