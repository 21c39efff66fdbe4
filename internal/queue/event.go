// Package queue defines message payloads exchanged over the message broker.
package queue

// IssueActivityEvent mirrors one audit entry and is published after the
// entry is recorded.  Downstream consumers get a durable copy of the trail
// without querying the primary database, which also serves as the
// out-of-band fallback when an audit insert fails.
type IssueActivityEvent struct {
    IssueID    uint64            `json:"issue_id"`
    UserID     uint64            `json:"user_id"`
    Action     string            `json:"action"`
    Field      string            `json:"field,omitempty"`
    OldValue   string            `json:"old_value,omitempty"`
    NewValue   string            `json:"new_value,omitempty"`
    Metadata   map[string]string `json:"metadata,omitempty"`
    OccurredAt string            `json:"occurred_at"`
}
