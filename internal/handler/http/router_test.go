package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/leave"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/notification"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/user"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/jwt"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/storage"
	"github.com/cmlabs-hris/leave-approval-backend/internal/service/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUserID    = "0190a7e2-0000-7000-8000-0000000000aa"
	testRequestID = "0190a7e2-0000-7000-8000-0000000000bb"
	testAttachID  = "0190a7e2-0000-7000-8000-0000000000cc"
	testCronToken = "cron-secret"
)

type fakeLeaveService struct {
	leave.LeaveService

	submitted []leave.CreateLeaveRequestRequest
	approved  []leave.ApprovalActionRequest
	rejected  []leave.ApprovalActionRequest
	cancelled []leave.CancelLeaveRequestRequest
	viewer    leave.Viewer
	err       error

	files      storage.FileStorage
	attachment leave.LeaveAttachment
}

func (f *fakeLeaveService) Submit(_ context.Context, req leave.CreateLeaveRequestRequest) (leave.LeaveRequestResponse, error) {
	f.submitted = append(f.submitted, req)
	return leave.LeaveRequestResponse{ID: testRequestID, RequesterID: req.RequesterID, Status: "pending"}, f.err
}

func (f *fakeLeaveService) Approve(_ context.Context, req leave.ApprovalActionRequest) (leave.LeaveRequestResponse, error) {
	f.approved = append(f.approved, req)
	return leave.LeaveRequestResponse{ID: req.RequestID, Status: "in_progress"}, f.err
}

func (f *fakeLeaveService) Reject(_ context.Context, req leave.ApprovalActionRequest) (leave.LeaveRequestResponse, error) {
	f.rejected = append(f.rejected, req)
	return leave.LeaveRequestResponse{ID: req.RequestID, Status: "rejected"}, f.err
}

func (f *fakeLeaveService) Cancel(_ context.Context, req leave.CancelLeaveRequestRequest) (leave.LeaveRequestResponse, error) {
	f.cancelled = append(f.cancelled, req)
	return leave.LeaveRequestResponse{ID: req.RequestID, Status: "cancelled"}, f.err
}

func (f *fakeLeaveService) Split(_ context.Context, _ leave.SplitLeaveRequestRequest) (leave.SplitLeaveRequestResponse, error) {
	return leave.SplitLeaveRequestResponse{}, f.err
}

func (f *fakeLeaveService) GetLeaveRequest(_ context.Context, id string, viewer leave.Viewer) (leave.LeaveRequestResponse, error) {
	f.viewer = viewer
	return leave.LeaveRequestResponse{ID: id}, f.err
}

func (f *fakeLeaveService) ListMyLeaveRequests(_ context.Context, _ string, filter leave.MyLeaveRequestFilter) (leave.ListLeaveRequestResponse, error) {
	return leave.ListLeaveRequestResponse{TotalCount: 1, Page: filter.Page, Limit: filter.Limit, TotalPages: 1,
		LeaveRequests: []leave.LeaveRequestResponse{{ID: testRequestID}}}, f.err
}

func (f *fakeLeaveService) OpenAttachment(ctx context.Context, _, attachmentID string, viewer leave.Viewer) (leave.LeaveAttachment, io.ReadSeekCloser, error) {
	f.viewer = viewer
	if f.err != nil {
		return leave.LeaveAttachment{}, nil, f.err
	}
	if attachmentID != f.attachment.ID {
		return leave.LeaveAttachment{}, nil, leave.ErrLeaveAttachmentNotFound
	}
	content, err := f.files.Open(ctx, f.attachment.FilePath)
	return f.attachment, content, err
}

type fakeEscalationService struct {
	runs int
}

func (f *fakeEscalationService) RunSweep(context.Context) leave.SweepResult {
	f.runs++
	return leave.SweepResult{Escalated: 2, Reminded: 1}
}

type fakeNotificationService struct {
	notification.Service
	unread int
}

func (f *fakeNotificationService) GetUnreadCount(context.Context, string) (int, error) {
	return f.unread, nil
}

type testServer struct {
	handler    http.Handler
	jwt        *jwt.JWTService
	leave      *fakeLeaveService
	escalation *fakeEscalationService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ts := &testServer{
		jwt:        jwt.NewJWTService("router-test-secret", "1h"),
		leave:      &fakeLeaveService{files: local},
		escalation: &fakeEscalationService{},
	}
	ts.handler = NewRouter(RouterConfig{Env: "test", CronSecret: testCronToken}, ts.jwt, Handlers{
		Leave:        NewLeaveHandler(ts.leave, file.NewFileService(local)),
		Escalation:   NewEscalationHandler(ts.escalation),
		Notification: NewNotificationHandler(&fakeNotificationService{unread: 3}),
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, target string, role user.Role, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		token, _, err := ts.jwt.GenerateAccessToken(testUserID, "company-1", role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := decodeEnvelope(t, rec)["error"].(map[string]any)
	require.True(t, ok, "response has no error object: %s", rec.Body.String())
	code, _ := errObj["code"].(string)
	return code
}

func TestRouter_RequiresToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/leave-requests/my", "", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_CreateRequestUsesTokenIdentity(t *testing.T) {
	ts := newTestServer(t)
	body := `{"leave_type_id":"0190a7e2-0000-7000-8000-0000000000cc","start_date":"2025-02-03","end_date":"2025-02-04","total_days":2,"reason":"family"}`

	rec := ts.do(t, http.MethodPost, "/api/v1/leave-requests", user.RoleEmployee, body)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, ts.leave.submitted, 1)
	assert.Equal(t, testUserID, ts.leave.submitted[0].RequesterID)
	assert.Equal(t, "2", ts.leave.submitted[0].TotalDays.String())
}

func TestRouter_CreateRequestMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/leave-requests", user.RoleEmployee, `{"leave_type_id":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ts.leave.submitted)
}

func TestRouter_ActionDispatch(t *testing.T) {
	ts := newTestServer(t)
	target := "/api/v1/leave-requests/" + testRequestID + "/action"

	rec := ts.do(t, http.MethodPost, target, user.RoleDeptManager, `{"action":"approve","comment":"ok"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ts.leave.approved, 1)
	assert.Equal(t, testRequestID, ts.leave.approved[0].RequestID)
	assert.Equal(t, testUserID, ts.leave.approved[0].ApproverID)

	rec = ts.do(t, http.MethodPost, target, user.RoleDeptManager, `{"action":"reject"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, ts.leave.rejected, 1)

	rec = ts.do(t, http.MethodPost, target, user.RoleDeptManager, `{"action":"maybe"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestRouter_InvalidRequestID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/leave-requests/not-a-uuid", user.RoleEmployee, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_GetRequestPassesViewer(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/leave-requests/"+testRequestID, user.RoleHR, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, leave.Viewer{UserID: testUserID, Role: user.RoleHR}, ts.leave.viewer)
}

func TestRouter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		path string
		body string
		want int
	}{
		{"not current approver", leave.ErrNotCurrentApprover, "/action", `{"action":"approve"}`, http.StatusForbidden},
		{"already processed", leave.ErrLeaveRequestAlreadyProcessed, "/action", `{"action":"approve"}`, http.StatusConflict},
		{"not owner", leave.ErrNotRequestOwner, "/cancel", `{"cancel_reason":"x"}`, http.StatusForbidden},
		{"cancel not allowed", leave.ErrCancelNotAllowed, "/cancel", `{"cancel_reason":"x"}`, http.StatusConflict},
		{"hr manager required", leave.ErrHRManagerRequired, "/split", `{}`, http.StatusForbidden},
		{"split mismatch", leave.ErrSplitTotalMismatch, "/split", `{}`, http.StatusUnprocessableEntity},
		{"split parts", leave.ErrSplitPartsRequired, "/split", `{}`, http.StatusUnprocessableEntity},
		{"not found", leave.ErrLeaveRequestNotFound, "/cancel", `{"cancel_reason":"x"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.leave.err = tt.err

			rec := ts.do(t, http.MethodPost, "/api/v1/leave-requests/"+testRequestID+tt.path, user.RoleHRManager, tt.body)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRouter_NoApproverAvailable(t *testing.T) {
	ts := newTestServer(t)
	ts.leave.err = leave.ErrNoApproverAvailable

	rec := ts.do(t, http.MethodPost, "/api/v1/leave-requests", user.RoleEmployee, `{}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "NO_APPROVER_AVAILABLE", errorCode(t, rec))
}

func TestRouter_MyRequestsMeta(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/leave-requests/my?page=2&limit=5", user.RoleEmployee, "")

	require.Equal(t, http.StatusOK, rec.Code)
	meta, ok := decodeEnvelope(t, rec)["meta"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, meta["page"])
	assert.EqualValues(t, 5, meta["limit"])
}

func TestRouter_CronEscalations(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/cron/escalations", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, ts.escalation.runs)

	rec = ts.do(t, http.MethodGet, "/api/v1/cron/escalations?token="+testCronToken, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ts.escalation.runs)

	data, ok := decodeEnvelope(t, rec)["data"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, data["escalated"])
	assert.EqualValues(t, 1, data["reminded"])
	assert.Equal(t, []any{}, data["errors"])
}

func TestRouter_AdminEscalationRun(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/admin/escalations/run", user.RoleHRManager, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/admin/escalations/run", user.RoleAdmin, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ts.escalation.runs)
}

func TestRouter_UnreadCount(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/notifications/unread-count", user.RoleEmployee, "")

	require.Equal(t, http.StatusOK, rec.Code)
	data, ok := decodeEnvelope(t, rec)["data"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 3, data["unread_count"])
}

func TestRouter_UploadAttachmentAndDownload(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "certificate.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	token, _, err := ts.jwt.GenerateAccessToken(testUserID, "company-1", user.RoleEmployee)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/leave-requests/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data, ok := decodeEnvelope(t, rec)["data"].(map[string]any)
	require.True(t, ok)
	filePath, _ := data["file_path"].(string)
	assert.True(t, strings.HasPrefix(filePath, "leave/"+testUserID+"/"))

	ts.leave.attachment = leave.LeaveAttachment{ID: testAttachID, LeaveRequestID: testRequestID, FilePath: filePath, FileName: "certificate.pdf"}
	download := "/api/v1/leave-requests/" + testRequestID + "/attachments/" + testAttachID

	// Test GetAttachment - viewer of the request receives the file
	rec = ts.do(t, http.MethodGet, download, user.RoleEmployee, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "certificate.pdf")
	assert.Equal(t, leave.Viewer{UserID: testUserID, Role: user.RoleEmployee}, ts.leave.viewer)

	// Test GetAttachment - no token
	rec = ts.do(t, http.MethodGet, download, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Test GetAttachment - unknown attachment
	rec = ts.do(t, http.MethodGet, "/api/v1/leave-requests/"+testRequestID+"/attachments/"+testRequestID, user.RoleEmployee, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Test GetAttachment - malformed attachment id
	rec = ts.do(t, http.MethodGet, "/api/v1/leave-requests/"+testRequestID+"/attachments/not-a-uuid", user.RoleEmployee, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Test GetAttachment - caller may not view the request
	ts.leave.err = leave.ErrLeaveRequestAccessDenied
	rec = ts.do(t, http.MethodGet, download, user.RoleEmployee, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_NoStaticUploads(t *testing.T) {
	ts := newTestServer(t)

	for _, target := range []string{"/uploads/", "/uploads/leave/" + testUserID + "/", "/uploads/leave/" + testUserID + "/note.pdf"} {
		rec := ts.do(t, http.MethodGet, target, user.RoleAdmin, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}
}

func TestRouter_AttachmentNotOwned(t *testing.T) {
	ts := newTestServer(t)
	ts.leave.err = leave.ErrAttachmentNotOwned

	rec := ts.do(t, http.MethodPost, "/api/v1/leave-requests/", user.RoleEmployee, `{"leave_type_id":"x"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
