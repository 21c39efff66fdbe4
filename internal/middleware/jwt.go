package middleware // middleware provides reusable HTTP middleware for protected routes

import (
    "strings" // prefix checking and trimming for the Authorization header

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware

    "github.com/iliyamo/issue-tracker/internal/apperror"
    "github.com/iliyamo/issue-tracker/internal/utils"
)

// Context keys under which the authenticated identity is stored for the
// lifetime of the request.  Nothing here is persisted.
const (
    CtxUserID = "user_id"
    CtxEmail  = "email"
    CtxRole   = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the decoded identity into the request context.  Handlers read
// it via c.Get(CtxUserID) etc.  Missing header, malformed prefix, bad
// signature and expiry all produce the same authentication failure so the
// endpoint leaks nothing about which check failed.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return apperror.Authentication()
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            claims, err := utils.VerifyAccessToken(secret, raw)
            if err != nil {
                return apperror.Authentication()
            }

            c.Set(CtxUserID, claims.UserID)
            c.Set(CtxEmail, claims.Email)
            c.Set(CtxRole, claims.Role)
            return next(c)
        }
    }
}

// Identity extracts the authenticated user's id and role from context.
// ok is false when the auth middleware did not run for this route.
func Identity(c echo.Context) (userID uint64, role string, ok bool) {
    uid, okID := c.Get(CtxUserID).(uint64)
    r, okRole := c.Get(CtxRole).(string)
    if !okID || !okRole {
        return 0, "", false
    }
    return uid, r, true
}
