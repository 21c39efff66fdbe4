package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/issue-tracker/internal/apperror"
	"github.com/iliyamo/issue-tracker/internal/middleware"
	"github.com/iliyamo/issue-tracker/internal/model"
	"github.com/iliyamo/issue-tracker/internal/repository"
)

// CommentHandler bundles repositories for the comment endpoints.
type CommentHandler struct {
	Issues   *repository.IssueRepo
	Comments *repository.CommentRepo
	Audit    *repository.AuditRepo
}

func NewCommentHandler(issues *repository.IssueRepo, comments *repository.CommentRepo, audit *repository.AuditRepo) *CommentHandler {
	if issues == nil || comments == nil || audit == nil {
		panic("nil repository passed to NewCommentHandler")
	}
	return &CommentHandler{Issues: issues, Comments: comments, Audit: audit}
}

type commentReq struct {
	Body string `json:"body"`
}

type commentResp struct {
	ID        uint64 `json:"id"`
	IssueID   uint64 `json:"issue_id"`
	AuthorID  uint64 `json:"author_id"`
	Body      string `json:"body"`
	Edited    bool   `json:"edited"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toCommentResp(cm model.Comment) commentResp {
	return commentResp{
		ID:        cm.ID,
		IssueID:   cm.IssueID,
		AuthorID:  cm.AuthorID,
		Body:      cm.Body,
		Edited:    cm.Edited,
		CreatedAt: cm.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: cm.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Create adds a comment to an issue and records the COMMENTED audit entry.
func (h *CommentHandler) Create(c echo.Context) error {
	userID, _, ok := middleware.Identity(c)
	if !ok {
		return apperror.Authentication()
	}
	issueID, err := paramID(c)
	if err != nil {
		return err
	}
	var req commentReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid body", nil)
	}
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" {
		return apperror.Validation("invalid request", map[string]any{"body": "required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Issues.GetByID(ctx, issueID); err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("issue not found")
		}
		return err
	}

	cm := model.Comment{IssueID: issueID, AuthorID: userID, Body: req.Body}
	if err := h.Comments.Create(ctx, &cm); err != nil {
		return err
	}
	recordAudit(ctx, h.Audit, model.AuditEntry{
		IssueID:  issueID,
		UserID:   userID,
		Action:   model.ActionCommented,
		Metadata: commentMeta(cm.ID),
	})

	created, err := h.Comments.GetByID(ctx, cm.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toCommentResp(created))
}

// List returns an issue's comments oldest first.
func (h *CommentHandler) List(c echo.Context) error {
	issueID, err := paramID(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	comments, err := h.Comments.ListByIssue(ctx, issueID)
	if err != nil {
		return err
	}
	out := make([]commentResp, 0, len(comments))
	for _, cm := range comments {
		out = append(out, toCommentResp(cm))
	}
	return c.JSON(http.StatusOK, out)
}

// Update edits a comment's body.  Authors may edit their own comments;
// MANAGER and ADMIN may edit any.
func (h *CommentHandler) Update(c echo.Context) error {
	userID, role, ok := middleware.Identity(c)
	if !ok {
		return apperror.Authentication()
	}
	commentID, err := paramID(c)
	if err != nil {
		return err
	}
	var req commentReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid body", nil)
	}
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" {
		return apperror.Validation("invalid request", map[string]any{"body": "required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cm, err := h.Comments.GetByID(ctx, commentID)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("comment not found")
		}
		return err
	}
	if cm.AuthorID != userID && !middleware.Authorize(role, model.RoleManager, model.RoleAdmin) {
		return apperror.Authorization("only the author may edit this comment")
	}

	// An unchanged body is not an edit: nothing to write, nothing to audit.
	if req.Body == cm.Body {
		return c.JSON(http.StatusOK, toCommentResp(cm))
	}

	if err := h.Comments.UpdateBody(ctx, commentID, req.Body); err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("comment not found")
		}
		return err
	}
	recordAudit(ctx, h.Audit, model.AuditEntry{
		IssueID:  cm.IssueID,
		UserID:   userID,
		Action:   model.ActionCommentEdited,
		OldValue: cm.Body,
		NewValue: req.Body,
		Metadata: commentMeta(cm.ID),
	})

	updated, err := h.Comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCommentResp(updated))
}

// Delete removes a comment.  Authors may delete their own; MANAGER and
// ADMIN may delete any.  The audit entry preserves what was removed.
func (h *CommentHandler) Delete(c echo.Context) error {
	userID, role, ok := middleware.Identity(c)
	if !ok {
		return apperror.Authentication()
	}
	commentID, err := paramID(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	cm, err := h.Comments.GetByID(ctx, commentID)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("comment not found")
		}
		return err
	}
	if cm.AuthorID != userID && !middleware.Authorize(role, model.RoleManager, model.RoleAdmin) {
		return apperror.Authorization("only the author may delete this comment")
	}

	if err := h.Comments.Delete(ctx, commentID); err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("comment not found")
		}
		return err
	}
	recordAudit(ctx, h.Audit, model.AuditEntry{
		IssueID:  cm.IssueID,
		UserID:   userID,
		Action:   model.ActionCommentDeleted,
		OldValue: cm.Body,
		Metadata: commentMeta(cm.ID),
	})
	return c.NoContent(http.StatusNoContent)
}

func commentMeta(id uint64) map[string]string {
	return map[string]string{"comment_id": formatID(id)}
}
