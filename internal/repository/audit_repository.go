package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/iliyamo/issue-tracker/internal/model"
)

// maxTimelineLimit caps timeline page size regardless of what the client
// requested.
const maxTimelineLimit = 100

// AuditRepo appends and reads the immutable audit trail.  There are no
// update or delete operations on audit_log by design.
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Append inserts one audit entry and populates its generated ID.
func (r *AuditRepo) Append(ctx context.Context, e *model.AuditEntry) error {
	var meta interface{}
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		meta = string(b)
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO audit_log (issue_id, user_id, action, field, old_value, new_value, metadata) VALUES (?,?,?,?,?,?,?)",
		e.IssueID, e.UserID, string(e.Action), e.Field, e.OldValue, e.NewValue, meta)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// TimelineForIssue returns an issue's audit entries newest first, capped at
// maxTimelineLimit entries.
func (r *AuditRepo) TimelineForIssue(ctx context.Context, issueID uint64, limit int) ([]model.AuditEntry, error) {
	return r.timeline(ctx, "WHERE issue_id=?", []interface{}{issueID}, limit)
}

// RecentActivity returns the newest audit entries across all issues, for
// the dashboard feed.
func (r *AuditRepo) RecentActivity(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	return r.timeline(ctx, "", nil, limit)
}

func (r *AuditRepo) timeline(ctx context.Context, where string, args []interface{}, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 || limit > maxTimelineLimit {
		limit = maxTimelineLimit
	}
	q := "SELECT id,issue_id,user_id,action,field,old_value,new_value,metadata,created_at FROM audit_log"
	if where != "" {
		q += " " + where
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var (
			e    model.AuditEntry
			act  string
			meta sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.IssueID, &e.UserID, &act, &e.Field,
			&e.OldValue, &e.NewValue, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = model.AuditAction(act)
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &e.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
