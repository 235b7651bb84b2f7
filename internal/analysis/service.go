package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contract-backend/internal/documents"
	"contract-backend/internal/llm"
	"contract-backend/internal/shared/metrics"
	"contract-backend/internal/shared/telemetry"
)

const defaultTimeout = 120 * time.Second

// lockSlack keeps the lock alive past the provider timeout so cleanup
// finishes before the lock can be re-acquired.
const lockSlack = 30 * time.Second

// Service orchestrates the analysis lifecycle of a document. A failed run
// removes the document rather than leaving a failed record behind: the user
// re-uploads instead of retrying against stale state.
type Service struct {
	docs    documents.Repo
	client  llm.Client
	locker  DocLocker
	timeout time.Duration
	now     func() time.Time
}

// NewService constructs a Service.
func NewService(docs documents.Repo, client llm.Client, locker DocLocker, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if locker == nil {
		locker = NewMemoryLocker()
	}
	return &Service{
		docs:    docs,
		client:  client,
		locker:  locker,
		timeout: timeout,
		now:     time.Now,
	}
}

// Run analyzes a document and blocks until it completes or fails. An already
// completed document is returned unchanged; re-analysis requires re-upload.
// The provider call is detached from the request context so a client
// disconnect cannot abandon a half-finished run.
func (s *Service) Run(ctx context.Context, ownerID, documentID string) (documents.Document, error) {
	doc, err := s.docs.GetByID(ctx, ownerID, documentID)
	if err != nil {
		return documents.Document{}, err
	}
	if doc.AnalysisStatus == documents.StatusCompleted {
		return doc, nil
	}

	acquired, err := s.locker.Acquire(ctx, ownerID, documentID, s.timeout+lockSlack)
	if err != nil {
		return documents.Document{}, fmt.Errorf("acquire analysis lock: %w", err)
	}
	if !acquired {
		return documents.Document{}, ErrAnalysisInProgress
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.locker.Release(releaseCtx, ownerID, documentID); err != nil {
			telemetry.Error("analysis.lock_release_failed", map[string]any{
				"document_id": documentID,
				"user_id":     ownerID,
				"err":         err.Error(),
			})
		}
	}()

	// Re-read under the lock: the snapshot above may predate another run
	// that completed between our read and the acquire. Without this check
	// the provider would be invoked a second time and the stored result
	// overwritten.
	doc, err = s.docs.GetByID(ctx, ownerID, documentID)
	if err != nil {
		return documents.Document{}, err
	}
	if doc.AnalysisStatus == documents.StatusCompleted {
		return doc, nil
	}

	started := s.now().UTC()
	if err := s.docs.SetAnalysisStarted(ctx, ownerID, documentID, started); err != nil {
		return documents.Document{}, err
	}
	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.started", map[string]any{
		"document_id": documentID,
		"user_id":     ownerID,
	})

	callCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.client.AnalyzeContract(callCtx, doc.ExtractedText)
	if err != nil {
		return documents.Document{}, s.fail(ownerID, documentID, started, err)
	}

	assessments := mapFindings(result.Findings)
	summary := Aggregate(assessments)

	totalClauses := result.TotalClauses
	if totalClauses < len(assessments) {
		totalClauses = len(assessments)
	}

	persistCtx, cancelPersist := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelPersist()

	updated, err := s.docs.CompleteAnalysis(persistCtx, ownerID, documentID, documents.AnalysisResult{
		Summary:            result.Summary,
		RiskScore:          summary.OverallScore,
		TotalClauses:       totalClauses,
		KeyPoints:          result.KeyPoints,
		RiskAssessments:    assessments,
		SuggestedRevisions: result.SuggestedRevisions,
		CompletedAt:        s.now().UTC(),
	})
	if err != nil {
		return documents.Document{}, s.fail(ownerID, documentID, started, err)
	}

	elapsed := s.now().Sub(started)
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(float64(elapsed.Milliseconds()))
	telemetry.Info("analysis.completed", map[string]any{
		"document_id": documentID,
		"user_id":     ownerID,
		"duration_ms": elapsed.Milliseconds(),
		"risk_score":  summary.OverallScore,
	})

	return updated, nil
}

// Start runs the analysis in the background. Used on upload so the HTTP
// response does not wait on the provider.
func (s *Service) Start(ctx context.Context, ownerID, documentID string) {
	go func() {
		if _, err := s.Run(context.Background(), ownerID, documentID); err != nil {
			if errors.Is(err, ErrAnalysisInProgress) || errors.Is(err, documents.ErrNotFound) {
				return
			}
			telemetry.Error("analysis.background_failed", map[string]any{
				"document_id": documentID,
				"user_id":     ownerID,
				"err":         err.Error(),
			})
		}
	}()
}

// fail removes the document, since a failed analysis leaves nothing worth
// keeping, and maps the cause onto ErrAnalysisFailed.
func (s *Service) fail(ownerID, documentID string, started time.Time, cause error) error {
	metrics.IncAnalysisFailed()

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.docs.Delete(cleanupCtx, ownerID, documentID); err != nil && !errors.Is(err, documents.ErrNotFound) {
		telemetry.Error("analysis.cleanup_failed", map[string]any{
			"document_id": documentID,
			"user_id":     ownerID,
			"err":         err.Error(),
		})
	}

	fields := map[string]any{
		"document_id": documentID,
		"user_id":     ownerID,
		"duration_ms": s.now().Sub(started).Milliseconds(),
		"err":         cause.Error(),
	}
	if capErr, ok := llm.AsCapabilityError(cause); ok {
		fields["kind"] = capErr.Kind
		fields["provider"] = capErr.Provider
	}
	telemetry.Error("analysis.failed", fields)

	return fmt.Errorf("%w: %v", ErrAnalysisFailed, cause)
}

func mapFindings(findings []llm.Finding) []documents.RiskAssessment {
	out := make([]documents.RiskAssessment, 0, len(findings))
	for _, f := range findings {
		out = append(out, documents.RiskAssessment{
			Category:          f.Category,
			Severity:          f.Severity,
			Description:       f.Description,
			OriginalClause:    f.OriginalClause,
			SuggestedRevision: f.SuggestedRevision,
			ImpactScore:       f.ImpactScore,
			LikelihoodScore:   f.LikelihoodScore,
			OverallScore:      f.OverallScore,
		})
	}
	return out
}

var _ documents.Starter = (*Service)(nil)
