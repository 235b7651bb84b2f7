package chat

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoAppendAndList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO chat_messages").
		WithArgs("msg-1", "doc-1", RoleUser, "what is the term?", created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Append(context.Background(), Message{
		ID:         "msg-1",
		DocumentID: "doc-1",
		Role:       RoleUser,
		Body:       "what is the term?",
		CreatedAt:  created,
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "document_id", "role", "body", "created_at"}).
		AddRow("msg-1", "doc-1", RoleUser, "what is the term?", created).
		AddRow("msg-2", "doc-1", RoleAssistant, "two years", created.Add(time.Second))
	mock.ExpectQuery("SELECT(.|\n)+FROM chat_messages").
		WithArgs("doc-1").
		WillReturnRows(rows)

	msgs, err := repo.ListByDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("ListByDocument: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[1].Role != RoleAssistant {
		t.Fatalf("roles = %s,%s", msgs[0].Role, msgs[1].Role)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDeleteByDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectExec("DELETE FROM chat_messages").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.DeleteByDocument(context.Background(), "doc-1"); err != nil {
		t.Fatalf("DeleteByDocument: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
