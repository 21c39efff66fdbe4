package model

import "time"

// Role values form a closed enum.  There is no hierarchy: a check that
// wants "manager or admin" enumerates both explicitly, ADMIN is never
// implied by membership in a broader tier.
const (
    RoleUser    = "USER"
    RoleManager = "MANAGER"
    RoleAdmin   = "ADMIN"
)

// ValidRole reports whether s is a member of the role enum.
func ValidRole(s string) bool {
    switch s {
    case RoleUser, RoleManager, RoleAdmin:
        return true
    }
    return false
}

// User represents an application user record as stored in the `users`
// table.  Each field corresponds to a column.  Handlers define separate
// response types with JSON tags; this struct is for the repository layer.
//
// Fields:
//  ID            – primary key identifier of the user.
//  Email         – unique email address, stored lower-cased and trimmed.
//  PasswordHash  – bcrypt hashed password.
//  Role          – one of USER, MANAGER, ADMIN.
//  IsActive      – whether the account is active.
//  LoginAttempts – consecutive failed login count since the last success.
//  LockUntil     – when set and in the future, the account is locked.
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type User struct {
    ID            uint64     // users.id
    Email         string     // users.email
    PasswordHash  string     // users.password_hash
    Role          string     // users.role
    IsActive      bool       // users.is_active
    LoginAttempts int        // users.login_attempts
    LockUntil     *time.Time // users.lock_until (nullable)
    CreatedAt     time.Time  // users.created_at
    UpdatedAt     time.Time  // users.updated_at
}

// IsLocked reports whether the account is locked at the given instant.
// A lock whose expiry has passed no longer counts.
func (u *User) IsLocked(now time.Time) bool {
    return u.LockUntil != nil && now.Before(*u.LockUntil)
}

// LockRemaining returns how long the lock still holds at the given
// instant, or zero when the account is not locked.
func (u *User) LockRemaining(now time.Time) time.Duration {
    if !u.IsLocked(now) {
        return 0
    }
    return u.LockUntil.Sub(now)
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user.  The plain token is never stored; only
// its keyed hash, so a leaked table cannot be replayed into sessions.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – HMAC-SHA256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was rotated or revoked (null if active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
