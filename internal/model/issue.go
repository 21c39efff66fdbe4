package model

import "time"

// Issue status, priority and type enums.  Values are stored verbatim in
// the database and in audit entries, so they never change meaning.
const (
    StatusOpen       = "OPEN"
    StatusInProgress = "IN_PROGRESS"
    StatusResolved   = "RESOLVED"
    StatusClosed     = "CLOSED"
)

const (
    PriorityLow      = "LOW"
    PriorityMedium   = "MEDIUM"
    PriorityHigh     = "HIGH"
    PriorityCritical = "CRITICAL"
)

const (
    TypeBug     = "BUG"
    TypeTask    = "TASK"
    TypeFeature = "FEATURE"
)

func ValidStatus(s string) bool {
    switch s {
    case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
        return true
    }
    return false
}

func ValidPriority(s string) bool {
    switch s {
    case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
        return true
    }
    return false
}

func ValidIssueType(s string) bool {
    switch s {
    case TypeBug, TypeTask, TypeFeature:
        return true
    }
    return false
}

// Issue mirrors the `issues` table.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – short summary.
//  Description – long-form body.
//  Type        – BUG, TASK or FEATURE.
//  Status      – OPEN, IN_PROGRESS, RESOLVED or CLOSED.
//  Priority    – LOW, MEDIUM, HIGH or CRITICAL.
//  ReporterID  – user who created the issue.
//  AssigneeID  – user currently assigned, nil when unassigned.
//  Tags        – free-form labels, persisted as a JSON array column.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Issue struct {
    ID          uint64     // issues.id
    Title       string     // issues.title
    Description string     // issues.description
    Type        string     // issues.type
    Status      string     // issues.status
    Priority    string     // issues.priority
    ReporterID  uint64     // issues.reporter_id
    AssigneeID  *uint64    // issues.assignee_id (nullable)
    Tags        []string   // issues.tags (JSON)
    CreatedAt   time.Time  // issues.created_at
    UpdatedAt   time.Time  // issues.updated_at
}

// IssueUpdate carries the requested changes of a PATCH.  Nil pointer means
// "leave unchanged".  AssigneeID distinguishes three cases: field absent
// (SetAssignee false), explicit null (SetAssignee true, AssigneeID nil)
// and a new assignee (both set).
type IssueUpdate struct {
    Title       *string
    Description *string
    Type        *string
    Status      *string
    Priority    *string
    SetAssignee bool
    AssigneeID  *uint64
    Tags        []string
    SetTags     bool
}

// Field names as they appear in audit entries and permission checks.
const (
    FieldTitle       = "title"
    FieldDescription = "description"
    FieldType        = "type"
    FieldStatus      = "status"
    FieldPriority    = "priority"
    FieldAssignee    = "assignee"
    FieldTags        = "tags"
)

// RequestedFields lists every field the update touches.
func (u *IssueUpdate) RequestedFields() []string {
    var fields []string
    if u.Title != nil {
        fields = append(fields, FieldTitle)
    }
    if u.Description != nil {
        fields = append(fields, FieldDescription)
    }
    if u.Type != nil {
        fields = append(fields, FieldType)
    }
    if u.Status != nil {
        fields = append(fields, FieldStatus)
    }
    if u.Priority != nil {
        fields = append(fields, FieldPriority)
    }
    if u.SetAssignee {
        fields = append(fields, FieldAssignee)
    }
    if u.SetTags {
        fields = append(fields, FieldTags)
    }
    return fields
}

// userEditableFields is the allow-list for the plain USER role.  Everything
// not listed here requires MANAGER or ADMIN.
var userEditableFields = map[string]bool{
    FieldStatus: true,
}

// RestrictedFields returns the subset of the update's fields that the given
// role may not change.  An empty result means the whole update is allowed.
// Updates are all-or-nothing: callers reject the entire operation when any
// restricted field is present rather than applying a partial change.
func (u *IssueUpdate) RestrictedFields(role string) []string {
    if role == RoleManager || role == RoleAdmin {
        return nil
    }
    var denied []string
    for _, f := range u.RequestedFields() {
        if !userEditableFields[f] {
            denied = append(denied, f)
        }
    }
    return denied
}
