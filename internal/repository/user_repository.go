package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/issue-tracker/internal/model"
	"github.com/iliyamo/issue-tracker/internal/utils"
)

// UserRepo persists user credential records including the account lockout
// state (login_attempts / lock_until).
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,role,is_active,login_attempts,lock_until,created_at,updated_at"

// Create inserts a user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES (?,?,?)",
		email, hash, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var (
		u         model.User
		lockUntil sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.LoginAttempts, &lockUntil, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	if lockUntil.Valid {
		t := lockUntil.Time
		u.LockUntil = &t
	}
	return u, nil
}

// RegisterFailedLogin advances the lockout state machine after a failed
// password check and reports the resulting state.  The whole transition is
// one UPDATE so two simultaneous failures cannot undercount.  MySQL applies
// SET assignments left to right with new values visible, which the second
// assignment relies on: lock_until compares against the freshly incremented
// login_attempts.  An expired lock resets the counter to 1 — the attempt
// that found the lock expired still counts.
func (r *UserRepo) RegisterFailedLogin(ctx context.Context, userID uint64, maxAttempts int, lockout time.Duration) (int, *time.Time, error) {
	const q = `UPDATE users SET
  login_attempts = IF(lock_until IS NOT NULL AND lock_until <= UTC_TIMESTAMP(), 1, login_attempts + 1),
  lock_until = CASE
    WHEN login_attempts >= ? THEN DATE_ADD(UTC_TIMESTAMP(), INTERVAL ? SECOND)
    WHEN lock_until IS NOT NULL AND lock_until <= UTC_TIMESTAMP() THEN NULL
    ELSE lock_until END
WHERE id = ?`
	if _, err := r.DB.ExecContext(ctx, q, maxAttempts, int(lockout.Seconds()), userID); err != nil {
		return 0, nil, err
	}
	var (
		attempts  int
		lockUntil sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT login_attempts, lock_until FROM users WHERE id=? LIMIT 1", userID).
		Scan(&attempts, &lockUntil)
	if err != nil {
		return 0, nil, err
	}
	if lockUntil.Valid {
		t := lockUntil.Time
		return attempts, &t, nil
	}
	return attempts, nil, nil
}

// ResetLoginState clears the failure counter and any lock after a
// successful login.
func (r *UserRepo) ResetLoginState(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET login_attempts=0, lock_until=NULL WHERE id=?", userID)
	return err
}
