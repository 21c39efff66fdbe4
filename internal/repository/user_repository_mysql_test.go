package repository

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// openTestMySQL connects to the disposable database named by MYSQL_TEST_DSN
// and (re)creates the users table.  Without the variable the test is
// skipped, so the regular suite stays self-contained.
func openTestMySQL(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set")
	}
	if !strings.Contains(dsn, "parseTime") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "parseTime=true&loc=UTC"
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("DROP TABLE IF EXISTS users"); err != nil {
		t.Fatalf("drop users: %v", err)
	}
	const schema = `CREATE TABLE users (
  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
  email VARCHAR(255) NOT NULL UNIQUE,
  password_hash VARCHAR(255) NOT NULL,
  role VARCHAR(16) NOT NULL DEFAULT 'USER',
  is_active TINYINT(1) NOT NULL DEFAULT 1,
  login_attempts INT NOT NULL DEFAULT 0,
  lock_until DATETIME NULL,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create users: %v", err)
	}
	return db
}

// seedUser inserts a user with the given lockout state.  lockExpr is a SQL
// expression evaluated server-side so the test never depends on client
// clock alignment.
func seedUser(t *testing.T, db *sql.DB, email string, attempts int, lockExpr string) uint64 {
	t.Helper()
	res, err := db.Exec(
		"INSERT INTO users (email, password_hash, login_attempts, lock_until) VALUES (?, 'x', ?, "+lockExpr+")",
		email, attempts)
	if err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("seed id: %v", err)
	}
	return uint64(id)
}

// lockIsFuture asks the server whether the user's lock_until lies ahead of
// UTC_TIMESTAMP().
func lockIsFuture(t *testing.T, db *sql.DB, id uint64) bool {
	t.Helper()
	var future sql.NullBool
	if err := db.QueryRow(
		"SELECT lock_until > UTC_TIMESTAMP() FROM users WHERE id=?", id).Scan(&future); err != nil {
		t.Fatalf("lock check: %v", err)
	}
	return future.Valid && future.Bool
}

// Runs the single-statement lockout transition against a real MySQL server.
// The sqlmock tests replay canned rows; this one evaluates the IF/CASE
// logic itself, including the SET-clause visibility the statement relies on.
func TestLockoutTransitionMySQL(t *testing.T) {
	db := openTestMySQL(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	t.Run("below max increments without locking", func(t *testing.T) {
		id := seedUser(t, db, "below@t.test", 0, "NULL")
		attempts, lockUntil, err := repo.RegisterFailedLogin(ctx, id, 5, 15*time.Minute)
		if err != nil {
			t.Fatalf("RegisterFailedLogin: %v", err)
		}
		if attempts != 1 || lockUntil != nil {
			t.Fatalf("attempts=%d lockUntil=%v", attempts, lockUntil)
		}
	})

	t.Run("reaching max locks", func(t *testing.T) {
		id := seedUser(t, db, "max@t.test", 4, "NULL")
		attempts, lockUntil, err := repo.RegisterFailedLogin(ctx, id, 5, 15*time.Minute)
		if err != nil {
			t.Fatalf("RegisterFailedLogin: %v", err)
		}
		if attempts != 5 || lockUntil == nil {
			t.Fatalf("attempts=%d lockUntil=%v", attempts, lockUntil)
		}
		if !lockIsFuture(t, db, id) {
			t.Fatalf("lock_until should lie in the future")
		}
	})

	t.Run("failure after expired lock restarts at one", func(t *testing.T) {
		id := seedUser(t, db, "expired@t.test", 5, "DATE_SUB(UTC_TIMESTAMP(), INTERVAL 1 MINUTE)")
		attempts, lockUntil, err := repo.RegisterFailedLogin(ctx, id, 5, 15*time.Minute)
		if err != nil {
			t.Fatalf("RegisterFailedLogin: %v", err)
		}
		if attempts != 1 {
			t.Fatalf("attempts after expired lock = %d, want 1", attempts)
		}
		if lockUntil != nil {
			t.Fatalf("expired lock must be cleared, got %v", lockUntil)
		}
	})

	t.Run("active lock keeps counting", func(t *testing.T) {
		id := seedUser(t, db, "active@t.test", 5, "DATE_ADD(UTC_TIMESTAMP(), INTERVAL 10 MINUTE)")
		attempts, lockUntil, err := repo.RegisterFailedLogin(ctx, id, 5, 15*time.Minute)
		if err != nil {
			t.Fatalf("RegisterFailedLogin: %v", err)
		}
		if attempts != 6 || lockUntil == nil {
			t.Fatalf("attempts=%d lockUntil=%v", attempts, lockUntil)
		}
	})

	t.Run("reset clears counter and lock", func(t *testing.T) {
		id := seedUser(t, db, "reset@t.test", 5, "DATE_ADD(UTC_TIMESTAMP(), INTERVAL 10 MINUTE)")
		if err := repo.ResetLoginState(ctx, id); err != nil {
			t.Fatalf("ResetLoginState: %v", err)
		}
		var (
			attempts  int
			lockUntil sql.NullTime
		)
		if err := db.QueryRow("SELECT login_attempts, lock_until FROM users WHERE id=?", id).
			Scan(&attempts, &lockUntil); err != nil {
			t.Fatalf("state read: %v", err)
		}
		if attempts != 0 || lockUntil.Valid {
			t.Fatalf("attempts=%d lockUntil=%v", attempts, lockUntil)
		}
	})
}
