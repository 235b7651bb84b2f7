package documents

import (
	"strings"
	"time"
)

// Analysis lifecycle states persisted on a document. A failed analysis is
// never stored; the document is removed instead (see the analysis service).
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Purpose is an access pattern a document serves.
type Purpose string

const (
	PurposeAnalysis Purpose = "analysis"
	PurposeChat     Purpose = "chat"
)

// ParsePurpose maps a raw string onto a known purpose.
func ParsePurpose(raw string) (Purpose, bool) {
	switch Purpose(raw) {
	case PurposeAnalysis, PurposeChat:
		return Purpose(raw), true
	}
	return "", false
}

// Severity is the normalized risk severity used for aggregation. The raw
// string a provider returned stays on the assessment for display.
type Severity string

const (
	SeverityLow     Severity = "low"
	SeverityMedium  Severity = "medium"
	SeverityHigh    Severity = "high"
	SeverityUnknown Severity = "unknown"
)

// ParseSeverity normalizes a raw severity string, case-insensitively.
// Unrecognized values map to SeverityUnknown rather than defaulting to low.
func ParseSeverity(raw string) Severity {
	switch {
	case strings.EqualFold(raw, "low"):
		return SeverityLow
	case strings.EqualFold(raw, "medium"):
		return SeverityMedium
	case strings.EqualFold(raw, "high"):
		return SeverityHigh
	}
	return SeverityUnknown
}

// RiskAssessment is one per-clause finding, ordered by clause position.
type RiskAssessment struct {
	Category          string   `json:"category"`
	Severity          string   `json:"severity"`
	Description       string   `json:"description"`
	OriginalClause    string   `json:"originalClause,omitempty"`
	SuggestedRevision string   `json:"suggestedRevision,omitempty"`
	ImpactScore       *float64 `json:"impactScore,omitempty"`
	LikelihoodScore   *float64 `json:"likelihoodScore,omitempty"`
	OverallScore      *float64 `json:"overallScore,omitempty"`
}

// Document represents an uploaded document owned by a user.
type Document struct {
	ID                  string
	OwnerID             string
	Fingerprint         string
	FileName            string
	MimeType            string
	SizeBytes           int64
	ExtractedText       string
	SupportsAnalysis    bool
	SupportsChat        bool
	AnalysisStatus      string
	Summary             string
	RiskScore           *float64
	TotalClauses        int
	KeyPoints           []string
	RiskAssessments     []RiskAssessment
	SuggestedRevisions  []string
	UploadedAt          time.Time
	AnalysisStartedAt   *time.Time
	AnalysisCompletedAt *time.Time
}

// HasPurpose reports whether the document already serves the given purpose.
func (d Document) HasPurpose(p Purpose) bool {
	switch p {
	case PurposeAnalysis:
		return d.SupportsAnalysis
	case PurposeChat:
		return d.SupportsChat
	}
	return false
}

// Purposes returns the purpose set in stable order.
func (d Document) Purposes() []Purpose {
	out := make([]Purpose, 0, 2)
	if d.SupportsAnalysis {
		out = append(out, PurposeAnalysis)
	}
	if d.SupportsChat {
		out = append(out, PurposeChat)
	}
	return out
}

// AnalysisResult carries everything a completed analysis writes to a document.
type AnalysisResult struct {
	Summary            string
	RiskScore          float64
	TotalClauses       int
	KeyPoints          []string
	RiskAssessments    []RiskAssessment
	SuggestedRevisions []string
	CompletedAt        time.Time
}

// DecisionKind discriminates the outcome of an upload.
type DecisionKind string

const (
	DecisionCreated              DecisionKind = "created"
	DecisionExistingSamePurpose  DecisionKind = "existing_same_purpose"
	DecisionExistingCrossPurpose DecisionKind = "existing_cross_purpose"
)

// UploadDecision is returned by upload resolution instead of blindly creating
// a record. It is transient and never persisted.
type UploadDecision struct {
	Kind             DecisionKind
	Document         Document
	ExistingPurposes []Purpose
	RequestedPurpose Purpose
}
