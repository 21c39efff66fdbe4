package model

import (
    "strconv"
    "strings"
    "time"
)

// AuditAction is the closed set of recordable actions.  Values are stored
// verbatim; adding a member is backwards compatible, renaming one is not.
type AuditAction string

const (
    ActionCreated         AuditAction = "CREATED"
    ActionUpdated         AuditAction = "UPDATED"
    ActionDeleted         AuditAction = "DELETED"
    ActionAssigned        AuditAction = "ASSIGNED"
    ActionUnassigned      AuditAction = "UNASSIGNED"
    ActionStatusChanged   AuditAction = "STATUS_CHANGED"
    ActionPriorityChanged AuditAction = "PRIORITY_CHANGED"
    ActionCommented       AuditAction = "COMMENTED"
    ActionCommentEdited   AuditAction = "COMMENT_EDITED"
    ActionCommentDeleted  AuditAction = "COMMENT_DELETED"
)

// AuditEntry is one immutable row of the `audit_log` table.  Entries are
// only ever inserted, never updated or deleted.  A multi-field issue update
// produces one entry per changed field.
//
// Fields:
//  ID        – primary key identifier.
//  IssueID   – issue the change belongs to.
//  UserID    – actor who made the change.
//  Action    – member of the AuditAction enum.
//  Field     – changed field name, empty for whole-entity actions.
//  OldValue  – previous value rendered as a string, empty when none.
//  NewValue  – new value rendered as a string, empty when none.
//  Metadata  – closed key/value bag, persisted as JSON.  Documented keys:
//              "comment_id" for comment actions, "assignee_id" for
//              (un)assignment, "issue_title" for CREATED/DELETED.
//  CreatedAt – when the change was recorded.
type AuditEntry struct {
    ID        uint64            // audit_log.id
    IssueID   uint64            // audit_log.issue_id
    UserID    uint64            // audit_log.user_id
    Action    AuditAction       // audit_log.action
    Field     string            // audit_log.field
    OldValue  string            // audit_log.old_value
    NewValue  string            // audit_log.new_value
    Metadata  map[string]string // audit_log.metadata (JSON)
    CreatedAt time.Time         // audit_log.created_at
}

// DiffIssueUpdate compares an issue against a requested update and returns
// one audit entry per field that actually changes.  Status and priority get
// their specific actions, assignment maps to ASSIGNED or UNASSIGNED and the
// remaining fields to generic UPDATED.  Fields whose requested value equals
// the current value produce no entry.
func DiffIssueUpdate(issue *Issue, upd *IssueUpdate, actorID uint64) []AuditEntry {
    var entries []AuditEntry

    add := func(action AuditAction, field, oldV, newV string, meta map[string]string) {
        entries = append(entries, AuditEntry{
            IssueID:  issue.ID,
            UserID:   actorID,
            Action:   action,
            Field:    field,
            OldValue: oldV,
            NewValue: newV,
            Metadata: meta,
        })
    }

    if upd.Title != nil && *upd.Title != issue.Title {
        add(ActionUpdated, FieldTitle, issue.Title, *upd.Title, nil)
    }
    if upd.Description != nil && *upd.Description != issue.Description {
        add(ActionUpdated, FieldDescription, issue.Description, *upd.Description, nil)
    }
    if upd.Type != nil && *upd.Type != issue.Type {
        add(ActionUpdated, FieldType, issue.Type, *upd.Type, nil)
    }
    if upd.Status != nil && *upd.Status != issue.Status {
        add(ActionStatusChanged, FieldStatus, issue.Status, *upd.Status, nil)
    }
    if upd.Priority != nil && *upd.Priority != issue.Priority {
        add(ActionPriorityChanged, FieldPriority, issue.Priority, *upd.Priority, nil)
    }
    if upd.SetAssignee && !sameAssignee(issue.AssigneeID, upd.AssigneeID) {
        oldV := assigneeString(issue.AssigneeID)
        newV := assigneeString(upd.AssigneeID)
        if upd.AssigneeID == nil {
            add(ActionUnassigned, FieldAssignee, oldV, "", map[string]string{"assignee_id": oldV})
        } else {
            add(ActionAssigned, FieldAssignee, oldV, newV, map[string]string{"assignee_id": newV})
        }
    }
    if upd.SetTags {
        oldTags := strings.Join(issue.Tags, ",")
        newTags := strings.Join(upd.Tags, ",")
        if oldTags != newTags {
            add(ActionUpdated, FieldTags, oldTags, newTags, nil)
        }
    }
    return entries
}

func sameAssignee(a, b *uint64) bool {
    if a == nil || b == nil {
        return a == b
    }
    return *a == *b
}

func assigneeString(id *uint64) string {
    if id == nil {
        return ""
    }
    return strconv.FormatUint(*id, 10)
}
