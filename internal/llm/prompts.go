package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Contract text beyond this many characters is truncated before prompting.
// Keeps requests well inside provider context windows for typical contracts.
const maxDocChars = 48000

const analysisSystemPrompt = `You are a contract risk analyst. You read a contract and respond with a single JSON object, no prose, no markdown fences, matching exactly this shape:
{
  "summary": "two or three sentence plain-language summary of the contract",
  "key_points": ["short bullet", ...],
  "risk_assessments": [
    {
      "category": "e.g. liability, termination, payment, ip, confidentiality",
      "severity": "low|medium|high",
      "description": "what the risk is and who it affects",
      "original_clause": "the clause text the risk comes from",
      "ai_suggestion": "how to mitigate or renegotiate",
      "impact_score": 1-10,
      "likelihood_score": 1-10,
      "overall_score": 1-10
    }
  ],
  "suggested_revisions": ["concrete redline suggestion", ...],
  "total_clauses": <number of clauses reviewed>
}
List risk_assessments in the order the clauses appear in the document. If the document has no identifiable risks, return an empty risk_assessments array.`

const chatSystemPromptTemplate = `You are a helpful assistant answering questions about one specific document. Ground every answer in the document text below. If the document does not contain the answer, say so instead of guessing.

Document:
---
%s
---`

// AnalysisMessages returns the system and user prompt for contract analysis.
func AnalysisMessages(text string) (system, user string) {
	return analysisSystemPrompt, TruncateDoc(text)
}

// ChatSystemPrompt returns the grounding system prompt for document Q&A.
func ChatSystemPrompt(docText string) string {
	return fmt.Sprintf(chatSystemPromptTemplate, TruncateDoc(docText))
}

// TruncateDoc caps document text at the prompt ceiling.
func TruncateDoc(text string) string {
	if len(text) <= maxDocChars {
		return text
	}
	return text[:maxDocChars] + "\n[document truncated]"
}

type analysisPayload struct {
	Summary         string   `json:"summary"`
	KeyPoints       []string `json:"key_points"`
	RiskAssessments []struct {
		Category        string   `json:"category"`
		Severity        string   `json:"severity"`
		Description     string   `json:"description"`
		OriginalClause  string   `json:"original_clause"`
		AISuggestion    string   `json:"ai_suggestion"`
		ImpactScore     *float64 `json:"impact_score"`
		LikelihoodScore *float64 `json:"likelihood_score"`
		OverallScore    *float64 `json:"overall_score"`
	} `json:"risk_assessments"`
	SuggestedRevisions []string `json:"suggested_revisions"`
	TotalClauses       int      `json:"total_clauses"`
}

// ParseAnalysisJSON decodes the provider's JSON reply into an AnalysisResult.
// Markdown fences some models wrap around JSON are stripped first.
func ParseAnalysisJSON(provider, raw string) (AnalysisResult, error) {
	cleaned := stripFences(raw)
	var payload analysisPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return AnalysisResult{}, &CapabilityError{
			Kind:     KindBadOutput,
			Provider: provider,
			Err:      fmt.Errorf("decode analysis reply: %w", err),
		}
	}

	findings := make([]Finding, 0, len(payload.RiskAssessments))
	for _, ra := range payload.RiskAssessments {
		findings = append(findings, Finding{
			Category:          ra.Category,
			Severity:          ra.Severity,
			Description:       ra.Description,
			OriginalClause:    ra.OriginalClause,
			SuggestedRevision: ra.AISuggestion,
			ImpactScore:       ra.ImpactScore,
			LikelihoodScore:   ra.LikelihoodScore,
			OverallScore:      ra.OverallScore,
		})
	}

	totalClauses := payload.TotalClauses
	if totalClauses < len(findings) {
		totalClauses = len(findings)
	}

	return AnalysisResult{
		Summary:            strings.TrimSpace(payload.Summary),
		KeyPoints:          payload.KeyPoints,
		Findings:           findings,
		SuggestedRevisions: payload.SuggestedRevisions,
		TotalClauses:       totalClauses,
	}, nil
}

func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
