package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/issue-tracker/internal/model"
)

// CommentRepo provides CRUD operations for issue comments.
type CommentRepo struct{ DB *sql.DB }

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{DB: db} }

const commentColumns = "id,issue_id,author_id,body,edited,created_at,updated_at"

// Create inserts a comment and populates its generated ID.
func (r *CommentRepo) Create(ctx context.Context, c *model.Comment) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO comments (issue_id, author_id, body) VALUES (?,?,?)",
		c.IssueID, c.AuthorID, c.Body)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID fetches one comment.
func (r *CommentRepo) GetByID(ctx context.Context, id uint64) (model.Comment, error) {
	var c model.Comment
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE id=? LIMIT 1", id).
		Scan(&c.ID, &c.IssueID, &c.AuthorID, &c.Body, &c.Edited, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

// ListByIssue returns an issue's comments oldest first.
func (r *CommentRepo) ListByIssue(ctx context.Context, issueID uint64) ([]model.Comment, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE issue_id=? ORDER BY created_at ASC, id ASC", issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.IssueID, &c.AuthorID, &c.Body, &c.Edited, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateBody replaces a comment's text and marks it edited.
func (r *CommentRepo) UpdateBody(ctx context.Context, id uint64, body string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE comments SET body=?, edited=1 WHERE id=?", body, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// The MySQL driver reports changed rows, so a no-op edit of an
		// existing comment also lands here; verify before reporting.
		var exists uint64
		if qerr := r.DB.QueryRowContext(ctx, "SELECT id FROM comments WHERE id=? LIMIT 1", id).Scan(&exists); qerr == sql.ErrNoRows {
			return ErrNotFound
		}
	}
	return nil
}

// Delete removes a comment row.
func (r *CommentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM comments WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
