package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/issue-tracker/internal/apperror"
	"github.com/iliyamo/issue-tracker/internal/middleware"
	"github.com/iliyamo/issue-tracker/internal/model"
	"github.com/iliyamo/issue-tracker/internal/repository"
)

// IssueHandler bundles repositories for the issue endpoints.
type IssueHandler struct {
	Issues *repository.IssueRepo
	Audit  *repository.AuditRepo
}

func NewIssueHandler(issues *repository.IssueRepo, audit *repository.AuditRepo) *IssueHandler {
	if issues == nil || audit == nil {
		panic("nil repository passed to NewIssueHandler")
	}
	return &IssueHandler{Issues: issues, Audit: audit}
}

// ----- DTOs -----

type createIssueReq struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Priority    string   `json:"priority"`
	AssigneeID  *uint64  `json:"assignee_id"`
	Tags        []string `json:"tags"`
}

// updateIssueReq distinguishes "field absent" from "field null" for the
// assignee: a nil RawMessage means the key was not sent, the literal null
// means unassign.
type updateIssueReq struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Type        *string         `json:"type"`
	Status      *string         `json:"status"`
	Priority    *string         `json:"priority"`
	AssigneeID  json.RawMessage `json:"assignee_id"`
	Tags        *[]string       `json:"tags"`
}

type issueResp struct {
	ID          uint64   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	ReporterID  uint64   `json:"reporter_id"`
	AssigneeID  *uint64  `json:"assignee_id"`
	Tags        []string `json:"tags"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

func toIssueResp(is model.Issue) issueResp {
	return issueResp{
		ID:          is.ID,
		Title:       is.Title,
		Description: is.Description,
		Type:        is.Type,
		Status:      is.Status,
		Priority:    is.Priority,
		ReporterID:  is.ReporterID,
		AssigneeID:  is.AssigneeID,
		Tags:        is.Tags,
		CreatedAt:   is.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   is.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Create inserts a new issue reported by the authenticated user and records
// the CREATED audit entry.
func (h *IssueHandler) Create(c echo.Context) error {
	userID, _, ok := middleware.Identity(c)
	if !ok {
		return apperror.Authentication()
	}
	var req createIssueReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid body", nil)
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return apperror.Validation("invalid request", map[string]any{"title": "required"})
	}
	if req.Type == "" {
		req.Type = model.TypeTask
	}
	if !model.ValidIssueType(req.Type) {
		return apperror.Validation("invalid request", map[string]any{"type": "unknown issue type"})
	}
	if req.Priority == "" {
		req.Priority = model.PriorityMedium
	}
	if !model.ValidPriority(req.Priority) {
		return apperror.Validation("invalid request", map[string]any{"priority": "unknown priority"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	is := model.Issue{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Status:      model.StatusOpen,
		Priority:    req.Priority,
		ReporterID:  userID,
		AssigneeID:  req.AssigneeID,
		Tags:        req.Tags,
	}
	if err := h.Issues.Create(ctx, &is); err != nil {
		return err
	}

	recordAudit(ctx, h.Audit, model.AuditEntry{
		IssueID:  is.ID,
		UserID:   userID,
		Action:   model.ActionCreated,
		Metadata: map[string]string{"issue_title": is.Title},
	})

	created, err := h.Issues.GetByID(ctx, is.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toIssueResp(created))
}

// List returns issues matching the query filters, newest first.
func (h *IssueHandler) List(c echo.Context) error {
	f := repository.IssueFilter{
		Status:   strings.ToUpper(c.QueryParam("status")),
		Priority: strings.ToUpper(c.QueryParam("priority")),
		Type:     strings.ToUpper(c.QueryParam("type")),
	}
	if v := c.QueryParam("assignee_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			f.AssigneeID = n
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Limit = n
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			f.Offset = n
		}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	issues, err := h.Issues.List(ctx, f)
	if err != nil {
		return err
	}
	out := make([]issueResp, 0, len(issues))
	for _, is := range issues {
		out = append(out, toIssueResp(is))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one issue.
func (h *IssueHandler) Get(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	is, err := h.Issues.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("issue not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, toIssueResp(is))
}

// Update applies a partial issue update.  Plain USERs may only change the
// status field; any other requested field rejects the whole operation
// before anything is written.  Each field that actually changes produces
// its own audit entry.
func (h *IssueHandler) Update(c echo.Context) error {
	userID, role, ok := middleware.Identity(c)
	if !ok {
		return apperror.Authentication()
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req updateIssueReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid body", nil)
	}
	upd, err := buildIssueUpdate(&req)
	if err != nil {
		return err
	}
	if len(upd.RequestedFields()) == 0 {
		return apperror.Validation("no fields to update", nil)
	}
	if denied := upd.RestrictedFields(role); len(denied) > 0 {
		return apperror.Authorization("role may not modify requested fields").
			WithDetails(map[string]any{"fields": denied})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	before, err := h.Issues.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("issue not found")
		}
		return err
	}

	entries := model.DiffIssueUpdate(&before, upd, userID)
	if err := h.Issues.ApplyUpdate(ctx, id, upd); err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("issue not found")
		}
		return err
	}
	recordAudit(ctx, h.Audit, entries...)

	after, err := h.Issues.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toIssueResp(after))
}

// Delete removes an issue.  Routing restricts this to MANAGER and ADMIN.
func (h *IssueHandler) Delete(c echo.Context) error {
	userID, _, ok := middleware.Identity(c)
	if !ok {
		return apperror.Authentication()
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	is, err := h.Issues.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("issue not found")
		}
		return err
	}
	if err := h.Issues.Delete(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("issue not found")
		}
		return err
	}
	recordAudit(ctx, h.Audit, model.AuditEntry{
		IssueID:  id,
		UserID:   userID,
		Action:   model.ActionDeleted,
		Metadata: map[string]string{"issue_title": is.Title},
	})
	return c.NoContent(http.StatusNoContent)
}

// Activity returns the issue's audit timeline, newest first, capped at 100
// entries regardless of the requested limit.
func (h *IssueHandler) Activity(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		if n, perr := strconv.Atoi(v); perr == nil {
			limit = n
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	entries, err := h.Audit.TimelineForIssue(ctx, id, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAuditResps(entries))
}

// buildIssueUpdate validates the request and converts it into the model's
// update representation.
func buildIssueUpdate(req *updateIssueReq) (*model.IssueUpdate, error) {
	upd := &model.IssueUpdate{}
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if t == "" {
			return nil, apperror.Validation("invalid request", map[string]any{"title": "must not be empty"})
		}
		upd.Title = &t
	}
	upd.Description = req.Description
	if req.Type != nil {
		if !model.ValidIssueType(*req.Type) {
			return nil, apperror.Validation("invalid request", map[string]any{"type": "unknown issue type"})
		}
		upd.Type = req.Type
	}
	if req.Status != nil {
		if !model.ValidStatus(*req.Status) {
			return nil, apperror.Validation("invalid request", map[string]any{"status": "unknown status"})
		}
		upd.Status = req.Status
	}
	if req.Priority != nil {
		if !model.ValidPriority(*req.Priority) {
			return nil, apperror.Validation("invalid request", map[string]any{"priority": "unknown priority"})
		}
		upd.Priority = req.Priority
	}
	if req.AssigneeID != nil {
		upd.SetAssignee = true
		if string(req.AssigneeID) != "null" {
			var n uint64
			if err := json.Unmarshal(req.AssigneeID, &n); err != nil {
				return nil, apperror.Validation("invalid request", map[string]any{"assignee_id": "must be a user id or null"})
			}
			upd.AssigneeID = &n
		}
	}
	if req.Tags != nil {
		upd.SetTags = true
		upd.Tags = *req.Tags
	}
	return upd, nil
}

// paramID parses the :id route parameter.
func paramID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation("invalid id", nil)
	}
	return id, nil
}
