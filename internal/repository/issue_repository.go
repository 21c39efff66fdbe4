package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/iliyamo/issue-tracker/internal/model"
)

// IssueRepo provides CRUD operations for issues.  Tags are persisted as a
// JSON array column.  All timestamps are stored in UTC.
type IssueRepo struct{ DB *sql.DB }

func NewIssueRepo(db *sql.DB) *IssueRepo { return &IssueRepo{DB: db} }

const issueColumns = "id,title,description,type,status,priority,reporter_id,assignee_id,tags,created_at,updated_at"

// IssueFilter narrows List results.  Zero values mean "no constraint".
type IssueFilter struct {
	Status     string
	Priority   string
	Type       string
	AssigneeID uint64
	Limit      int
	Offset     int
}

// Create inserts an issue and populates its generated ID.
func (r *IssueRepo) Create(ctx context.Context, is *model.Issue) error {
	tags, err := json.Marshal(is.Tags)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO issues (title, description, type, status, priority, reporter_id, assignee_id, tags) VALUES (?,?,?,?,?,?,?,?)",
		is.Title, is.Description, is.Type, is.Status, is.Priority, is.ReporterID, is.AssigneeID, string(tags))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	is.ID = uint64(id)
	return nil
}

// GetByID fetches one issue.
func (r *IssueRepo) GetByID(ctx context.Context, id uint64) (model.Issue, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+issueColumns+" FROM issues WHERE id=? LIMIT 1", id)
	return scanIssue(row.Scan)
}

// List returns issues matching the filter, newest first.
func (r *IssueRepo) List(ctx context.Context, f IssueFilter) ([]model.Issue, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		where = append(where, "priority=?")
		args = append(args, f.Priority)
	}
	if f.Type != "" {
		where = append(where, "type=?")
		args = append(args, f.Type)
	}
	if f.AssigneeID != 0 {
		where = append(where, "assignee_id=?")
		args = append(args, f.AssigneeID)
	}
	q := "SELECT " + issueColumns + " FROM issues"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC"
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Issue
	for rows.Next() {
		is, err := scanIssue(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, is)
	}
	return out, rows.Err()
}

// ApplyUpdate persists the requested field changes.  Fields not present in
// the update keep their current value.  Returns ErrNotFound when the issue
// does not exist.
func (r *IssueRepo) ApplyUpdate(ctx context.Context, id uint64, upd *model.IssueUpdate) error {
	var (
		sets []string
		args []interface{}
	)
	if upd.Title != nil {
		sets = append(sets, "title=?")
		args = append(args, *upd.Title)
	}
	if upd.Description != nil {
		sets = append(sets, "description=?")
		args = append(args, *upd.Description)
	}
	if upd.Type != nil {
		sets = append(sets, "type=?")
		args = append(args, *upd.Type)
	}
	if upd.Status != nil {
		sets = append(sets, "status=?")
		args = append(args, *upd.Status)
	}
	if upd.Priority != nil {
		sets = append(sets, "priority=?")
		args = append(args, *upd.Priority)
	}
	if upd.SetAssignee {
		sets = append(sets, "assignee_id=?")
		args = append(args, upd.AssigneeID)
	}
	if upd.SetTags {
		tags, err := json.Marshal(upd.Tags)
		if err != nil {
			return err
		}
		sets = append(sets, "tags=?")
		args = append(args, string(tags))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE issues SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// The row may exist with identical values; verify before reporting.
		var exists uint64
		if qerr := r.DB.QueryRowContext(ctx, "SELECT id FROM issues WHERE id=? LIMIT 1", id).Scan(&exists); qerr == sql.ErrNoRows {
			return ErrNotFound
		}
	}
	return nil
}

// Delete removes an issue.  Comments cascade at the schema level; the audit
// trail keeps its rows.
func (r *IssueRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM issues WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanIssue(scan func(dest ...interface{}) error) (model.Issue, error) {
	var (
		is       model.Issue
		assignee sql.NullInt64
		tags     sql.NullString
	)
	err := scan(&is.ID, &is.Title, &is.Description, &is.Type, &is.Status, &is.Priority,
		&is.ReporterID, &assignee, &tags, &is.CreatedAt, &is.UpdatedAt)
	if err == sql.ErrNoRows {
		return is, ErrNotFound
	}
	if err != nil {
		return is, err
	}
	if assignee.Valid {
		v := uint64(assignee.Int64)
		is.AssigneeID = &v
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &is.Tags); err != nil {
			return is, err
		}
	}
	return is, nil
}
