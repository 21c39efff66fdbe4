package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// The MySQL driver counts changed rows, not matched rows, so an UPDATE
// that writes identical values reports zero affected rows.  That must not
// surface as a missing comment.
func TestUpdateBodyNoOpIsNotNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewCommentRepo(db)

	mock.ExpectExec("UPDATE comments SET body=").
		WithArgs("same body", uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id FROM comments WHERE id=").
		WithArgs(uint64(3)).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(3))

	if err := repo.UpdateBody(context.Background(), 3, "same body"); err != nil {
		t.Fatalf("no-op edit of an existing comment: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateBodyMissingComment(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	repo := NewCommentRepo(db)

	mock.ExpectExec("UPDATE comments SET body=").
		WithArgs("body", uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id FROM comments WHERE id=").
		WithArgs(uint64(99)).
		WillReturnRows(mock.NewRows([]string{"id"}))

	if err := repo.UpdateBody(context.Background(), 99, "body"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteMissingComment(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	repo := NewCommentRepo(db)

	mock.ExpectExec("DELETE FROM comments").
		WithArgs(uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), 99); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
