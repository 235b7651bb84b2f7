package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

const documentColumns = `
id, owner_id, fingerprint, file_name, mime_type, size_bytes, extracted_text,
supports_analysis, supports_chat, analysis_status, summary, risk_score,
total_clauses, key_points, risk_assessments, suggested_revisions,
uploaded_at, analysis_started_at, analysis_completed_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new document. A fingerprint collision for the same owner
// maps the unique-index violation onto ErrDuplicateFingerprint.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id, owner_id, fingerprint, file_name, mime_type, size_bytes, extracted_text,
    supports_analysis, supports_chat, analysis_status, total_clauses, uploaded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	status := doc.AnalysisStatus
	if status == "" {
		status = StatusPending
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.OwnerID,
		doc.Fingerprint,
		doc.FileName,
		doc.MimeType,
		doc.SizeBytes,
		doc.ExtractedText,
		doc.SupportsAnalysis,
		doc.SupportsChat,
		status,
		doc.TotalClauses,
		doc.UploadedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateFingerprint
		}
		return err
	}
	return nil
}

// GetByID fetches a document by ID for an owner.
func (r *PGRepo) GetByID(ctx context.Context, ownerID, documentID string) (Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE owner_id = $1 AND id = $2
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, ownerID, documentID))
}

// GetByFingerprint fetches the owner's document matching the fingerprint.
func (r *PGRepo) GetByFingerprint(ctx context.Context, ownerID, fp string) (Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE owner_id = $1 AND fingerprint = $2
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, ownerID, fp))
}

// ListByOwner lists documents ordered newest-first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE owner_id = $1
ORDER BY uploaded_at DESC, id DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// AddPurpose grows the purpose set (never shrinks) and returns the document.
func (r *PGRepo) AddPurpose(ctx context.Context, ownerID, documentID string, purpose Purpose) (Document, error) {
	var column string
	switch purpose {
	case PurposeAnalysis:
		column = "supports_analysis"
	case PurposeChat:
		column = "supports_chat"
	default:
		return Document{}, fmt.Errorf("%w: unknown purpose %q", ErrInvalidInput, purpose)
	}

	query := `UPDATE documents SET ` + column + ` = TRUE
WHERE owner_id = $1 AND id = $2
RETURNING ` + documentColumns
	return r.scanOne(r.DB.QueryRowContext(ctx, query, ownerID, documentID))
}

// SetAnalysisStarted records when the orchestrator picked up the document.
func (r *PGRepo) SetAnalysisStarted(ctx context.Context, ownerID, documentID string, startedAt time.Time) error {
	const query = `
UPDATE documents SET analysis_started_at = $1
WHERE owner_id = $2 AND id = $3`
	res, err := r.DB.ExecContext(ctx, query, startedAt, ownerID, documentID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteAnalysis writes analysis output and flips status in one statement,
// so risk fields are never observable on a pending document.
func (r *PGRepo) CompleteAnalysis(ctx context.Context, ownerID, documentID string, result AnalysisResult) (Document, error) {
	keyPoints, err := json.Marshal(result.KeyPoints)
	if err != nil {
		return Document{}, err
	}
	assessments, err := json.Marshal(result.RiskAssessments)
	if err != nil {
		return Document{}, err
	}
	revisions, err := json.Marshal(result.SuggestedRevisions)
	if err != nil {
		return Document{}, err
	}

	query := `
UPDATE documents SET
    analysis_status = $1,
    summary = $2,
    risk_score = $3,
    total_clauses = $4,
    key_points = $5,
    risk_assessments = $6,
    suggested_revisions = $7,
    analysis_completed_at = $8
WHERE owner_id = $9 AND id = $10
RETURNING ` + documentColumns
	return r.scanOne(r.DB.QueryRowContext(
		ctx,
		query,
		StatusCompleted,
		result.Summary,
		result.RiskScore,
		result.TotalClauses,
		keyPoints,
		assessments,
		revisions,
		result.CompletedAt,
		ownerID,
		documentID,
	))
}

// Delete removes a document; chat messages cascade at the schema level.
func (r *PGRepo) Delete(ctx context.Context, ownerID, documentID string) error {
	const query = `DELETE FROM documents WHERE owner_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, ownerID, documentID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) scanOne(row rowScanner) (Document, error) {
	var doc Document
	var summary sql.NullString
	var riskScore sql.NullFloat64
	var keyPoints, assessments, revisions []byte
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.Fingerprint,
		&doc.FileName,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.ExtractedText,
		&doc.SupportsAnalysis,
		&doc.SupportsChat,
		&doc.AnalysisStatus,
		&summary,
		&riskScore,
		&doc.TotalClauses,
		&keyPoints,
		&assessments,
		&revisions,
		&doc.UploadedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}

	if summary.Valid {
		doc.Summary = summary.String
	}
	if riskScore.Valid {
		score := riskScore.Float64
		doc.RiskScore = &score
	}
	if startedAt.Valid {
		t := startedAt.Time
		doc.AnalysisStartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		doc.AnalysisCompletedAt = &t
	}
	if len(keyPoints) > 0 {
		if err := json.Unmarshal(keyPoints, &doc.KeyPoints); err != nil {
			return Document{}, fmt.Errorf("decode key_points: %w", err)
		}
	}
	if len(assessments) > 0 {
		if err := json.Unmarshal(assessments, &doc.RiskAssessments); err != nil {
			return Document{}, fmt.Errorf("decode risk_assessments: %w", err)
		}
	}
	if len(revisions) > 0 {
		if err := json.Unmarshal(revisions, &doc.SuggestedRevisions); err != nil {
			return Document{}, fmt.Errorf("decode suggested_revisions: %w", err)
		}
	}
	return doc, nil
}

var _ Repo = (*PGRepo)(nil)
