package documents

import "time"

// DocumentResponse is the public shape of a document. Extracted text and the
// fingerprint stay server-side.
type DocumentResponse struct {
	ID                  string           `json:"id"`
	FileName            string           `json:"fileName"`
	MimeType            string           `json:"mimeType"`
	SizeBytes           int64            `json:"sizeBytes"`
	Purposes            []string         `json:"purposes"`
	AnalysisStatus      string           `json:"analysisStatus"`
	Summary             string           `json:"summary,omitempty"`
	RiskScore           *float64         `json:"riskScore,omitempty"`
	TotalClauses        int              `json:"totalClauses,omitempty"`
	KeyPoints           []string         `json:"keyPoints,omitempty"`
	RiskAssessments     []RiskAssessment `json:"riskAssessments,omitempty"`
	SuggestedRevisions  []string         `json:"suggestedRevisions,omitempty"`
	UploadedAt          time.Time        `json:"uploadedAt"`
	AnalysisStartedAt   *time.Time       `json:"analysisStartedAt,omitempty"`
	AnalysisCompletedAt *time.Time       `json:"analysisCompletedAt,omitempty"`
}

// UploadResponse wraps an upload decision for created/same-purpose outcomes.
// Cross-purpose conflicts use the error envelope instead.
type UploadResponse struct {
	Decision string           `json:"decision"`
	Document DocumentResponse `json:"document"`
}

// StatusResponse is the lightweight polling shape.
type StatusResponse struct {
	DocumentID          string     `json:"documentId"`
	AnalysisStatus      string     `json:"analysisStatus"`
	UploadedAt          time.Time  `json:"uploadedAt"`
	AnalysisStartedAt   *time.Time `json:"analysisStartedAt,omitempty"`
	AnalysisCompletedAt *time.Time `json:"analysisCompletedAt,omitempty"`
}

// ConfirmPurposeRequest is the body for adding a purpose to a document.
type ConfirmPurposeRequest struct {
	Purpose string `json:"purpose" binding:"required"`
}

// ToResponse maps a document to its public shape.
func ToResponse(doc Document) DocumentResponse {
	purposes := make([]string, 0, 2)
	for _, p := range doc.Purposes() {
		purposes = append(purposes, string(p))
	}
	return DocumentResponse{
		ID:                  doc.ID,
		FileName:            doc.FileName,
		MimeType:            doc.MimeType,
		SizeBytes:           doc.SizeBytes,
		Purposes:            purposes,
		AnalysisStatus:      doc.AnalysisStatus,
		Summary:             doc.Summary,
		RiskScore:           doc.RiskScore,
		TotalClauses:        doc.TotalClauses,
		KeyPoints:           doc.KeyPoints,
		RiskAssessments:     doc.RiskAssessments,
		SuggestedRevisions:  doc.SuggestedRevisions,
		UploadedAt:          doc.UploadedAt,
		AnalysisStartedAt:   doc.AnalysisStartedAt,
		AnalysisCompletedAt: doc.AnalysisCompletedAt,
	}
}

func toStatusResponse(doc Document) StatusResponse {
	return StatusResponse{
		DocumentID:          doc.ID,
		AnalysisStatus:      doc.AnalysisStatus,
		UploadedAt:          doc.UploadedAt,
		AnalysisStartedAt:   doc.AnalysisStartedAt,
		AnalysisCompletedAt: doc.AnalysisCompletedAt,
	}
}
