package handler

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/iliyamo/issue-tracker/internal/model"
	"github.com/iliyamo/issue-tracker/internal/queue"
	"github.com/iliyamo/issue-tracker/internal/repository"
	queue_publisher "github.com/iliyamo/issue-tracker/internal/service"
)

// recordAudit appends audit entries after a mutation succeeded.  The policy
// is best-effort: a failed append is logged, mirrored to the durable event
// queue and the business operation still counts as done.  Entries that do
// persist are also published so consumers get the full trail.
func recordAudit(ctx context.Context, audit *repository.AuditRepo, entries ...model.AuditEntry) {
	for i := range entries {
		e := &entries[i]
		if err := audit.Append(ctx, e); err != nil {
			log.Printf("audit: append failed (action=%s issue=%d user=%d): %v", e.Action, e.IssueID, e.UserID, err)
		}
		ev := queue.IssueActivityEvent{
			IssueID:    e.IssueID,
			UserID:     e.UserID,
			Action:     string(e.Action),
			Field:      e.Field,
			OldValue:   e.OldValue,
			NewValue:   e.NewValue,
			Metadata:   e.Metadata,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		}
		// Publish failures are already logged by the publisher.
		_ = queue_publisher.PublishIssueActivity(ctx, ev)
	}
}

type auditResp struct {
	ID        uint64            `json:"id"`
	IssueID   uint64            `json:"issue_id"`
	UserID    uint64            `json:"user_id"`
	Action    string            `json:"action"`
	Field     string            `json:"field,omitempty"`
	OldValue  string            `json:"old_value,omitempty"`
	NewValue  string            `json:"new_value,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt string            `json:"created_at"`
}

func toAuditResps(entries []model.AuditEntry) []auditResp {
	out := make([]auditResp, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditResp{
			ID:        e.ID,
			IssueID:   e.IssueID,
			UserID:    e.UserID,
			Action:    string(e.Action),
			Field:     e.Field,
			OldValue:  e.OldValue,
			NewValue:  e.NewValue,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func formatID(id uint64) string { return strconv.FormatUint(id, 10) }
