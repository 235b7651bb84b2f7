package chat

import (
	"context"
	"database/sql"
)

// PGRepo implements Repo using Postgres. Rows cascade away with their
// document via the schema's foreign key.
type PGRepo struct {
	DB *sql.DB
}

// Append stores a message.
func (r *PGRepo) Append(ctx context.Context, msg Message) error {
	const query = `
INSERT INTO chat_messages (id, document_id, role, body, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.DB.ExecContext(ctx, query, msg.ID, msg.DocumentID, msg.Role, msg.Body, msg.CreatedAt)
	return err
}

// ListByDocument returns messages oldest-first, id as tiebreak.
func (r *PGRepo) ListByDocument(ctx context.Context, documentID string) ([]Message, error) {
	const query = `
SELECT id, document_id, role, body, created_at
FROM chat_messages
WHERE document_id = $1
ORDER BY created_at ASC, id ASC`

	rows, err := r.DB.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.DocumentID, &msg.Role, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// DeleteByDocument removes all messages for a document.
func (r *PGRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	const query = `DELETE FROM chat_messages WHERE document_id = $1`
	_, err := r.DB.ExecContext(ctx, query, documentID)
	return err
}

var _ Repo = (*PGRepo)(nil)
