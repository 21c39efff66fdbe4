package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets are enforced at startup: a missing JWT
// or refresh-hash secret aborts the process rather than failing lazily on
// the first request.
type Config struct {
    Env               string // application environment (e.g. "dev", "prod")
    Port              string // HTTP port to listen on
    DBUser            string // database username
    DBPass            string // database password (optional)
    DBHost            string // database host address
    DBPort            string // database port number
    DBName            string // database name
    JWTSecret         string // secret used to sign access tokens
    RefreshHashSecret string // secret used to HMAC refresh tokens before storage
    AccessTTLMin      int    // access token time-to-live in minutes
    RefreshTTLDays    int    // refresh token time-to-live in days
    BcryptCost        int    // bcrypt cost for password hashing
    MaxLoginAttempts  int    // consecutive failed logins before lockout
    LockoutMinutes    int    // how long a locked account stays locked
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:               must("APP_ENV"),
        Port:              must("APP_PORT"),
        DBUser:            must("DB_USER"),
        DBPass:            os.Getenv("DB_PASS"), // empty allowed
        DBHost:            must("DB_HOST"),
        DBPort:            must("DB_PORT"),
        DBName:            must("DB_NAME"),
        JWTSecret:         must("JWT_SECRET"),
        RefreshHashSecret: must("REFRESH_HASH_SECRET"),
        AccessTTLMin:      intOr("ACCESS_TOKEN_TTL_MIN", 15),
        RefreshTTLDays:    intOr("REFRESH_TOKEN_TTL_DAYS", 7),
        BcryptCost:        intOr("BCRYPT_COST", 12),
        MaxLoginAttempts:  intOr("MAX_LOGIN_ATTEMPTS", 5),
        LockoutMinutes:    intOr("LOCKOUT_MINUTES", 15),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// intOr converts an optional environment variable to an integer, falling
// back to def when unset.  An unparsable value is fatal so a typo in
// deployment config never silently changes a security threshold.
func intOr(key string, def int) int {
    s := os.Getenv(key)
    if s == "" {
        return def
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
