package cron

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/leave"
)

// EscalationJobs runs the leave escalation and reminder sweep in-process.
type EscalationJobs struct {
	escalationService leave.EscalationService
	interval          time.Duration
}

func NewEscalationJobs(escalationService leave.EscalationService, interval time.Duration) *EscalationJobs {
	return &EscalationJobs{
		escalationService: escalationService,
		interval:          interval,
	}
}

func (j *EscalationJobs) RegisterJobs(scheduler *Scheduler) error {
	return scheduler.AddJob(Job{
		Name:     "leave_escalation_sweep",
		Interval: j.interval,
		Timeout:  j.interval,
		Fn:       j.RunSweep,
	})
}

// RunSweep fails the run only to surface per-request errors in the scheduler log.
func (j *EscalationJobs) RunSweep(ctx context.Context) error {
	result := j.escalationService.RunSweep(ctx)
	if result.Escalated > 0 || result.Reminded > 0 {
		slog.Info("Leave escalation sweep", "escalated", result.Escalated, "reminded", result.Reminded)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d sweep errors: %s", len(result.Errors), strings.Join(result.Errors, "; "))
	}
	return nil
}
