package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/leave"
	"github.com/cmlabs-hris/leave-approval-backend/internal/handler/http/response"
)

type EscalationHandler interface {
	RunSweep(w http.ResponseWriter, r *http.Request)
}

type escalationHandlerImpl struct {
	escalationService leave.EscalationService
}

func NewEscalationHandler(escalationService leave.EscalationService) EscalationHandler {
	return &escalationHandlerImpl{escalationService: escalationService}
}

// RunSweep runs one escalation and reminder sweep and reports its outcome. Per-request failures
// are listed in the result and do not change the status code.
func (h *escalationHandlerImpl) RunSweep(w http.ResponseWriter, r *http.Request) {
	// A dropped connection must not abort a sweep halfway through its batch.
	ctx := context.WithoutCancel(r.Context())

	result := h.escalationService.RunSweep(ctx)
	if result.Errors == nil {
		result.Errors = []string{}
	}

	slog.Info("Escalation sweep triggered over HTTP",
		"path", r.URL.Path,
		"escalated", result.Escalated,
		"reminded", result.Reminded,
		"errors", len(result.Errors),
	)

	response.SuccessWithMessage(w, "Escalation sweep completed", result)
}
