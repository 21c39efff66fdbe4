package utils // package utils provides helpers for token creation, verification and hashing

import (
    "crypto/hmac"   // keyed hashing for refresh tokens
    "crypto/rand"   // secure random number generation
    "crypto/sha256" // SHA-256 digest underlying the refresh-token HMAC
    "encoding/hex"  // hex encoding for token material
    "errors"        // sentinel error values
    "time"          // expiry arithmetic

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// ErrInvalidToken is the single sentinel returned for every access-token
// verification failure: bad signature, wrong algorithm, expiry, malformed
// input.  Callers deliberately cannot tell these apart.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the decoded payload of a verified access token.
type Claims struct {
    UserID uint64
    Email  string
    Role   string
    Exp    time.Time
}

// AccessToken represents a signed JWT access token along with its expiry.
// Access tokens are short-lived, stateless and carried in the Authorization
// header when calling protected endpoints.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long-lived opaque token used to obtain new
// access tokens.  Raw is returned to the client once; the database only
// ever sees its keyed hash.
type RefreshToken struct {
    Raw string    // raw token string returned to the client
    Exp time.Time // UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The JWT carries
// the subject (sub), email and role claims plus the standard expiration
// (exp) and issued-at (iat) timestamps.  Signing fails only when the secret
// is unusable, which is a startup misconfiguration rather than a runtime
// condition.
func NewAccessToken(secret string, userID uint64, email, role string, ttlMin int) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":   userID,
        "email": email,
        "role":  role,
        "exp":   exp.Unix(),
        "iat":   now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// VerifyAccessToken parses and validates a signed access token.  Only HS256
// is accepted; the explicit allow-list prevents algorithm-confusion attacks
// where a token signed with a different method slips through.  Any failure,
// including malformed input, maps to ErrInvalidToken — the function never
// panics.
func VerifyAccessToken(secret, raw string) (Claims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        return []byte(secret), nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
    if err != nil || !tok.Valid {
        return Claims{}, ErrInvalidToken
    }
    mc, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return Claims{}, ErrInvalidToken
    }
    sub, ok := mc["sub"].(float64)
    if !ok || sub < 0 {
        return Claims{}, ErrInvalidToken
    }
    email, _ := mc["email"].(string)
    role, ok := mc["role"].(string)
    if !ok || role == "" {
        return Claims{}, ErrInvalidToken
    }
    exp, ok := mc["exp"].(float64)
    if !ok {
        return Claims{}, ErrInvalidToken
    }
    return Claims{
        UserID: uint64(sub),
        Email:  email,
        Role:   role,
        Exp:    time.Unix(int64(exp), 0).UTC(),
    }, nil
}

// IsExpiringSoon reports whether a valid token expires within the given
// threshold.  Clients use it to decide when to preemptively refresh; an
// invalid token counts as expiring so callers refresh rather than retry.
func IsExpiringSoon(secret, raw string, threshold time.Duration) bool {
    claims, err := VerifyAccessToken(secret, raw)
    if err != nil {
        return true
    }
    return time.Until(claims.Exp) <= threshold
}

// NewRefreshToken returns a cryptographically secure random token (raw) and
// its expiration time.  48 random bytes give 384 bits of entropy, encoded
// as 96 hex characters.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
    raw, err := randomHex(48)
    if err != nil {
        return RefreshToken{}, err
    }
    return RefreshToken{
        Raw: raw,
        Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
    }, nil
}

// HashRefreshRaw returns the HMAC-SHA256 of the raw refresh token keyed
// with the server secret, hex encoded.  Keying the hash means a leaked
// database alone is not enough to forge a stored token value.
func HashRefreshRaw(secret, raw string) string {
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write([]byte(raw))
    return hex.EncodeToString(mac.Sum(nil))
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
