package handler

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/issue-tracker/internal/apperror"
	"github.com/iliyamo/issue-tracker/internal/middleware"
	"github.com/iliyamo/issue-tracker/internal/model"
	"github.com/iliyamo/issue-tracker/internal/repository"
)

func newIssueHandler(t *testing.T) (*IssueHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewIssueHandler(repository.NewIssueRepo(db), repository.NewAuditRepo(db)), mock
}

// A USER asking for anything beyond a status change must be rejected
// before the handler touches the database: no read, no write, no audit.
func TestUpdateRestrictedFieldRejectedBeforeAnyWrite(t *testing.T) {
	h, mock := newIssueHandler(t)

	c, _ := jsonCtx(http.MethodPatch, "/v1/issues/3", `{"title":"hijacked","status":"CLOSED"}`)
	c.SetParamNames("id")
	c.SetParamValues("3")
	c.Set(middleware.CtxUserID, uint64(5))
	c.Set(middleware.CtxRole, model.RoleUser)

	err := h.Update(c)
	ae, ok := err.(*apperror.Error)
	if !ok || ae.Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	fields, ok := ae.Details["fields"].([]string)
	if !ok || len(fields) != 1 || fields[0] != model.FieldTitle {
		t.Fatalf("denied fields = %v", ae.Details["fields"])
	}
	// Zero expectations registered: any DB call would fail the mock.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateWithNoFields(t *testing.T) {
	h, _ := newIssueHandler(t)

	c, _ := jsonCtx(http.MethodPatch, "/v1/issues/3", `{}`)
	c.SetParamNames("id")
	c.SetParamValues("3")
	c.Set(middleware.CtxUserID, uint64(5))
	c.Set(middleware.CtxRole, model.RoleAdmin)

	err := h.Update(c)
	ae, ok := err.(*apperror.Error)
	if !ok || ae.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestUpdateRejectsInvalidEnum(t *testing.T) {
	h, _ := newIssueHandler(t)

	c, _ := jsonCtx(http.MethodPatch, "/v1/issues/3", `{"status":"REOPENED"}`)
	c.SetParamNames("id")
	c.SetParamValues("3")
	c.Set(middleware.CtxUserID, uint64(5))
	c.Set(middleware.CtxRole, model.RoleAdmin)

	err := h.Update(c)
	ae, ok := err.(*apperror.Error)
	if !ok || ae.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestBuildIssueUpdateAssigneeNullVersusAbsent(t *testing.T) {
	upd, err := buildIssueUpdate(&updateIssueReq{})
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if upd.SetAssignee {
		t.Fatalf("absent assignee_id must not request a change")
	}

	upd, err = buildIssueUpdate(&updateIssueReq{AssigneeID: []byte("null")})
	if err != nil {
		t.Fatalf("null assignee: %v", err)
	}
	if !upd.SetAssignee || upd.AssigneeID != nil {
		t.Fatalf("null assignee_id must request an unassign, got %+v", upd)
	}

	upd, err = buildIssueUpdate(&updateIssueReq{AssigneeID: []byte("12")})
	if err != nil {
		t.Fatalf("numeric assignee: %v", err)
	}
	if !upd.SetAssignee || upd.AssigneeID == nil || *upd.AssigneeID != 12 {
		t.Fatalf("assignee_id=12 not parsed, got %+v", upd)
	}
}

func TestParamIDRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"", "abc", "0", "-1"} {
		c, _ := jsonCtx(http.MethodGet, "/v1/issues/x", "")
		c.SetParamNames("id")
		c.SetParamValues(bad)
		if _, err := paramID(c); err == nil {
			t.Fatalf("paramID(%q) should fail", bad)
		}
	}
}
