package llm

import "context"

// Turn is one prior message in a chat exchange.
type Turn struct {
	Role string // "user" or "assistant"
	Text string
}

// Finding is one per-clause risk the provider identified, in document order.
type Finding struct {
	Category          string
	Severity          string
	Description       string
	OriginalClause    string
	SuggestedRevision string
	ImpactScore       *float64
	LikelihoodScore   *float64
	OverallScore      *float64
}

// AnalysisResult is the provider's structured read of a contract.
type AnalysisResult struct {
	Summary            string
	KeyPoints          []string
	Findings           []Finding
	SuggestedRevisions []string
	TotalClauses       int
}

// Answer is a grounded reply to a question about a document.
type Answer struct {
	Text string
}

// Client is the provider-neutral interface both capabilities go through.
// Implementations return *CapabilityError on failure so callers can
// distinguish retryable conditions.
type Client interface {
	AnalyzeContract(ctx context.Context, text string) (AnalysisResult, error)
	Answer(ctx context.Context, docText, question string, history []Turn) (Answer, error)
}
