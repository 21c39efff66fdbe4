package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var userCols = []string{"id", "email", "password_hash", "role", "is_active", "login_attempts", "lock_until", "created_at", "updated_at"}

func userRow(mock sqlmock.Sqlmock, email string, attempts int, lockUntil interface{}) *sqlmock.Rows {
	now := time.Now().UTC()
	return mock.NewRows(userCols).
		AddRow(1, email, "$2a$10$hash", "USER", true, attempts, lockUntil, now, now)
}

func TestRegisterFailedLoginLocksAtMax(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewUserRepo(db)

	lockUntil := time.Now().UTC().Add(15 * time.Minute)
	mock.ExpectExec("UPDATE users SET").
		WithArgs(5, 900, uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT login_attempts, lock_until FROM users").
		WithArgs(uint64(1)).
		WillReturnRows(mock.NewRows([]string{"login_attempts", "lock_until"}).AddRow(5, lockUntil))

	attempts, got, err := repo.RegisterFailedLogin(context.Background(), 1, 5, 15*time.Minute)
	if err != nil {
		t.Fatalf("RegisterFailedLogin: %v", err)
	}
	if attempts != 5 {
		t.Fatalf("attempts = %d, want 5", attempts)
	}
	if got == nil || !got.Equal(lockUntil) {
		t.Fatalf("lockUntil = %v, want %v", got, lockUntil)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRegisterFailedLoginBelowMax(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	repo := NewUserRepo(db)

	mock.ExpectExec("UPDATE users SET").
		WithArgs(5, 900, uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT login_attempts, lock_until FROM users").
		WithArgs(uint64(1)).
		WillReturnRows(mock.NewRows([]string{"login_attempts", "lock_until"}).AddRow(2, nil))

	attempts, lockUntil, err := repo.RegisterFailedLogin(context.Background(), 1, 5, 15*time.Minute)
	if err != nil {
		t.Fatalf("RegisterFailedLogin: %v", err)
	}
	if attempts != 2 || lockUntil != nil {
		t.Fatalf("attempts=%d lockUntil=%v", attempts, lockUntil)
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'a@b.com' for key 'users.email'"))

	// bcrypt cost 4 keeps the test fast; production cost comes from config.
	_, err := repo.Create(context.Background(), "a@b.com", "Abcdef1!", "USER", 4)
	if err != ErrEmailExists {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestGetByEmailNormalizes(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	repo := NewUserRepo(db)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email=").
		WithArgs("a@b.com").
		WillReturnRows(userRow(mock, "a@b.com", 0, nil))

	u, err := repo.GetByEmail(context.Background(), "  A@B.com ")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if u.Email != "a@b.com" || u.LockUntil != nil {
		t.Fatalf("user = %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	repo := NewUserRepo(db)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id=").
		WithArgs(uint64(99)).
		WillReturnRows(mock.NewRows(userCols))

	if _, err := repo.GetByID(context.Background(), 99); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResetLoginState(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	repo := NewUserRepo(db)

	mock.ExpectExec("UPDATE users SET login_attempts=0, lock_until=NULL").
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ResetLoginState(context.Background(), 1); err != nil {
		t.Fatalf("ResetLoginState: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
