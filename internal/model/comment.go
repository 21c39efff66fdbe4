package model

import "time"

// Comment mirrors the `comments` table.  Edits flip the Edited flag so the
// UI can mark amended comments; deletion removes the row while the audit
// trail keeps the COMMENT_DELETED record.
//
// Fields:
//  ID        – primary key identifier.
//  IssueID   – issue the comment belongs to.
//  AuthorID  – user who wrote the comment.
//  Body      – comment text.
//  Edited    – whether the body was changed after creation.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Comment struct {
    ID        uint64    // comments.id
    IssueID   uint64    // comments.issue_id
    AuthorID  uint64    // comments.author_id
    Body      string    // comments.body
    Edited    bool      // comments.edited
    CreatedAt time.Time // comments.created_at
    UpdatedAt time.Time // comments.updated_at
}
