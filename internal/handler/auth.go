package handler

import (
    "context"  // context with cancellation for DB calls
    "net/http" // HTTP status codes and cookie primitives
    "strings"  // string normalization for emails
    "time"     // timeouts for DB calls

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/issue-tracker/internal/apperror"
    "github.com/iliyamo/issue-tracker/internal/config"
    "github.com/iliyamo/issue-tracker/internal/middleware"
    "github.com/iliyamo/issue-tracker/internal/model"
    "github.com/iliyamo/issue-tracker/internal/repository"
    "github.com/iliyamo/issue-tracker/internal/utils"
)

// refreshCookieName is the cookie that transports the raw refresh token.
// HttpOnly + SameSite=Strict keeps it away from scripts and cross-site
// requests; Secure is added outside dev.
const refreshCookieName = "refreshToken"

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	User   userPart  `json:"user"`
	Access tokenPart `json:"access"`
}

// Register creates a credential record and returns an initial token pair.
// Every self-registered account starts as plain USER; roles are elevated
// through administration, never at signup.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid body", nil)
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return apperror.Validation("invalid request", map[string]any{"email": "valid email required"})
	}
	if len(req.Password) < 8 {
		return apperror.Validation("invalid request", map[string]any{"password": "minimum 8 characters"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, model.RoleUser, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return apperror.Conflict("email already registered")
		}
		return err
	}

	resp, err := h.issueTokenPair(ctx, c, uid, req.Email, model.RoleUser)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials, drives the lockout state machine and returns
// a fresh token pair.  Failure responses are deliberately uniform: wrong
// email and wrong password are indistinguishable.  The one exception is an
// active lock, which reports its remaining time.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid body", nil)
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return apperror.Validation("email/password required", nil)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperror.Authentication()
		}
		return err
	}
	if !u.IsActive {
		return apperror.Authentication()
	}

	now := time.Now().UTC()
	if u.IsLocked(now) {
		return apperror.AccountLocked(lockMinutes(u.LockRemaining(now)))
	}

	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		// Persist the transition before responding so concurrent attempts
		// cannot observe a stale counter.
		_, lockUntil, ferr := h.Users.RegisterFailedLogin(ctx, u.ID, h.Cfg.MaxLoginAttempts, time.Duration(h.Cfg.LockoutMinutes)*time.Minute)
		if ferr != nil {
			return ferr
		}
		if lockUntil != nil && now.Before(*lockUntil) {
			return apperror.AccountLocked(lockMinutes(lockUntil.Sub(now)))
		}
		return apperror.Authentication()
	}

	if err := h.Users.ResetLoginState(ctx, u.ID); err != nil {
		return err
	}

	resp, err := h.issueTokenPair(ctx, c, u.ID, u.Email, u.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh rotates the refresh token presented in the cookie and issues a
// new access token.  Rotation is single-use: the store-level claim is
// atomic, so a replayed token loses the race and gets an authentication
// failure.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := refreshCookieValue(c)
	if raw == "" {
		return apperror.Authentication()
	}
	hash := utils.HashRefreshRaw(h.Cfg.RefreshHashSecret, raw)

	ctx, cancel := reqCtx(c)
	defer cancel()

	userID, err := h.Tokens.Consume(ctx, hash)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperror.Authentication()
		}
		return err
	}

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperror.Authentication()
		}
		return err
	}
	if !u.IsActive {
		return apperror.Authentication()
	}

	// Opportunistic cleanup; expired rows are never valid anyway.
	_ = h.Tokens.PruneExpired(ctx, userID)

	resp, err := h.issueTokenPair(ctx, c, u.ID, u.Email, u.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the presented refresh token server-side and clears the
// cookie.  An already-invalid token still clears the cookie: logout is
// idempotent from the client's point of view.
func (h *AuthHandler) Logout(c echo.Context) error {
	if raw := refreshCookieValue(c); raw != "" {
		ctx, cancel := reqCtx(c)
		defer cancel()
		hash := utils.HashRefreshRaw(h.Cfg.RefreshHashSecret, raw)
		if _, err := h.Tokens.Consume(ctx, hash); err != nil && err != repository.ErrNotFound {
			return err
		}
	}
	clearRefreshCookie(c, h.Cfg)
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll revokes every active refresh token of the authenticated user,
// ending all of their sessions at once.  Outstanding access tokens stay
// valid until they expire; only refresh-based renewal is cut off.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	userID, _, ok := middleware.Identity(c)
	if !ok {
		return apperror.Authentication()
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Tokens.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}
	clearRefreshCookie(c, h.Cfg)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated identity from the request context.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, role, ok := middleware.Identity(c)
	if !ok {
		return apperror.Authentication()
	}
	email, _ := c.Get(middleware.CtxEmail).(string)
	return c.JSON(http.StatusOK, userPart{ID: userID, Email: email, Role: role})
}

// issueTokenPair mints an access token, stores a new refresh token hash and
// sets the refresh cookie on the response.
func (h *AuthHandler) issueTokenPair(ctx context.Context, c echo.Context, userID uint64, email, role string) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, email, role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, userID, utils.HashRefreshRaw(h.Cfg.RefreshHashSecret, refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	h.setRefreshCookie(c, refresh.Raw, refresh.Exp)
	return authResp{
		User:   userPart{ID: userID, Email: email, Role: role},
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	}, nil
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, raw string, exp time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    raw,
		Path:     "/",
		MaxAge:   int(time.Until(exp).Seconds()),
		HttpOnly: true,
		Secure:   h.Cfg.Env == "prod",
		SameSite: http.SameSiteStrictMode,
	})
}

func clearRefreshCookie(c echo.Context, cfg config.Config) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Env == "prod",
		SameSite: http.SameSiteStrictMode,
	})
}

func refreshCookieValue(c echo.Context) string {
	ck, err := c.Cookie(refreshCookieName)
	if err != nil || ck == nil {
		return ""
	}
	return strings.TrimSpace(ck.Value)
}

// lockMinutes rounds a remaining lock duration up to whole minutes for the
// client-facing message.
func lockMinutes(d time.Duration) int {
	mins := int(d / time.Minute)
	if d%time.Minute != 0 {
		mins++
	}
	if mins < 1 {
		mins = 1
	}
	return mins
}

// reqCtx bounds a handler's database work to five seconds.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
