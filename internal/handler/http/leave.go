package http

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/leave"
	"github.com/cmlabs-hris/leave-approval-backend/internal/handler/http/response"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/jwt"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/validator"
	"github.com/cmlabs-hris/leave-approval-backend/internal/service/file"
	"github.com/go-chi/chi/v5"
)

// maxUploadMemory bounds the multipart form kept in memory while parsing an upload.
const maxUploadMemory = 10 << 20

type LeaveHandler interface {
	CreateRequest(w http.ResponseWriter, r *http.Request)
	GetMyRequests(w http.ResponseWriter, r *http.Request)
	GetRequest(w http.ResponseWriter, r *http.Request)
	ActOnRequest(w http.ResponseWriter, r *http.Request)
	CancelRequest(w http.ResponseWriter, r *http.Request)
	SplitRequest(w http.ResponseWriter, r *http.Request)
	ListPendingApprovals(w http.ResponseWriter, r *http.Request)
	UploadAttachment(w http.ResponseWriter, r *http.Request)
	GetAttachment(w http.ResponseWriter, r *http.Request)
}

type LeaveHandlerImpl struct {
	leaveService leave.LeaveService
	fileService  file.FileService
}

func NewLeaveHandler(leaveService leave.LeaveService, fileService file.FileService) LeaveHandler {
	return &LeaveHandlerImpl{
		leaveService: leaveService,
		fileService:  fileService,
	}
}

// requestID reads the {id} path parameter. It writes the error response itself when the id is unusable.
func requestID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !validator.IsValidUUID(id) {
		response.BadRequest(w, "Invalid leave request ID", nil)
		return "", false
	}
	return id, true
}

// CreateRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) CreateRequest(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req leave.CreateLeaveRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("CreateRequest decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	// Requester always comes from the token.
	req.RequesterID = claims.UserID

	leaveRequest, err := l.leaveService.Submit(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Leave request created successfully", leaveRequest)
}

// GetMyRequests implements LeaveHandler.
func (l *LeaveHandlerImpl) GetMyRequests(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	query := r.URL.Query()
	var filter leave.MyLeaveRequestFilter
	if status := query.Get("status"); status != "" {
		filter.Status = &status
	}
	if page, err := strconv.Atoi(query.Get("page")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		filter.Limit = limit
	}

	result, err := l.leaveService.ListMyLeaveRequests(r.Context(), claims.UserID, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.LeaveRequests, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

// GetRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) GetRequest(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	id, ok := requestID(w, r)
	if !ok {
		return
	}

	leaveRequest, err := l.leaveService.GetLeaveRequest(r.Context(), id, leave.Viewer{UserID: claims.UserID, Role: claims.Role})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, leaveRequest)
}

// ActOnRequest implements LeaveHandler. The body's action picks approve or reject.
func (l *LeaveHandlerImpl) ActOnRequest(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	id, ok := requestID(w, r)
	if !ok {
		return
	}

	var req leave.ApprovalActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("ActOnRequest decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	req.RequestID = id
	req.ApproverID = claims.UserID

	var (
		result  leave.LeaveRequestResponse
		message string
	)
	switch req.Action {
	case leave.ActionApprove:
		result, err = l.leaveService.Approve(r.Context(), req)
		message = "Leave request approved successfully"
	default:
		result, err = l.leaveService.Reject(r.Context(), req)
		message = "Leave request rejected successfully"
	}
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, message, result)
}

// CancelRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) CancelRequest(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	id, ok := requestID(w, r)
	if !ok {
		return
	}

	var req leave.CancelLeaveRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("CancelRequest decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	req.RequestID = id
	req.RequesterID = claims.UserID

	result, err := l.leaveService.Cancel(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave request cancelled successfully", result)
}

// SplitRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) SplitRequest(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	id, ok := requestID(w, r)
	if !ok {
		return
	}

	var req leave.SplitLeaveRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("SplitRequest decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	req.RequestID = id
	req.HRManagerID = claims.UserID

	result, err := l.leaveService.Split(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Leave request split successfully", result)
}

// ListPendingApprovals implements LeaveHandler.
func (l *LeaveHandlerImpl) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	pending, err := l.leaveService.ListPendingApprovals(r.Context(), claims.UserID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, pending)
}

// UploadAttachment implements LeaveHandler. The returned file_path goes into a later CreateRequest body.
func (l *LeaveHandlerImpl) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		slog.Error("Failed to parse multipart form", "error", err)
		response.BadRequest(w, "Failed to parse form data", nil)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "Field 'file' is required", nil)
		return
	}
	defer f.Close()

	uploaded, err := l.fileService.UploadLeaveAttachment(r.Context(), claims.UserID, f, header.Filename, header.Size)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Attachment uploaded successfully", uploaded)
}

// GetAttachment implements LeaveHandler. Only viewers of the leave request receive the file.
func (l *LeaveHandlerImpl) GetAttachment(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	id, ok := requestID(w, r)
	if !ok {
		return
	}
	attachmentID := chi.URLParam(r, "attachmentID")
	if !validator.IsValidUUID(attachmentID) {
		response.BadRequest(w, "Invalid attachment ID", nil)
		return
	}

	attachment, content, err := l.leaveService.OpenAttachment(r.Context(), id, attachmentID, leave.Viewer{UserID: claims.UserID, Role: claims.Role})
	if err != nil {
		response.HandleError(w, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": attachment.FileName}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, attachment.FileName, attachment.CreatedAt, content)
}
