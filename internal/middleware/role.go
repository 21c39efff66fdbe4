package middleware

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/issue-tracker/internal/apperror"
)

// Authorize is the pure RBAC decision: it permits iff role is a member of
// allowed.  There is no role hierarchy — a check wanting "manager or admin"
// passes both explicitly.  The check is total: any role outside the allowed
// set, including the empty string, denies.
func Authorize(role string, allowed ...string) bool {
    for _, a := range allowed {
        if role == a {
            return true
        }
    }
    return false
}

// RequireRole returns a middleware enforcing that the authenticated user
// holds one of the given roles.  It assumes JWTAuth already stored the role
// in context; a missing role denies.  Denial short-circuits with 403 before
// the handler runs.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, _ := c.Get(CtxRole).(string)
            if !Authorize(role, roles...) {
                return apperror.Authorization("")
            }
            return next(c)
        }
    }
}
