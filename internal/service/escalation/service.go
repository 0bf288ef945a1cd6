package escalation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/leave"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/notification"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/user"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/workflow"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/database"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/lock"
)

const sweepLockKey = "leave:escalation-sweep"

var ErrNoHRManager = errors.New("no hr manager available for escalation")

// ApproverResolver finds the HR manager a request escalates to.
type ApproverResolver interface {
	Resolve(ctx context.Context, role workflow.ApproverRole, requester user.User) (*user.User, error)
}

type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (*lock.Lock, bool, error)
}

type Config struct {
	ReminderWindow time.Duration
	ReminderMax    int
	LockTTL        time.Duration
}

type Service struct {
	tx        database.Transactor
	requests  leave.LeaveRequestRepository
	approvals leave.LeaveApprovalRepository
	users     user.UserRepository
	resolver  ApproverResolver
	notifier  notification.Notifier
	locker    Locker
	config    Config
	now       func() time.Time
}

func NewEscalationService(
	tx database.Transactor,
	requests leave.LeaveRequestRepository,
	approvals leave.LeaveApprovalRepository,
	users user.UserRepository,
	resolver ApproverResolver,
	notifier notification.Notifier,
	locker Locker,
	cfg Config,
) *Service {
	if cfg.ReminderWindow == 0 {
		cfg.ReminderWindow = 24 * time.Hour
	}
	if cfg.ReminderMax == 0 {
		cfg.ReminderMax = 2
	}
	if cfg.LockTTL == 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	return &Service{
		tx:        tx,
		requests:  requests,
		approvals: approvals,
		users:     users,
		resolver:  resolver,
		notifier:  notifier,
		locker:    locker,
		config:    cfg,
		now:       time.Now,
	}
}

var _ leave.EscalationService = (*Service)(nil)

// RunSweep escalates overdue requests to HR and reminds approvers of upcoming deadlines.
// Per-request failures are collected in the result; the sweep itself never fails.
func (s *Service) RunSweep(ctx context.Context) leave.SweepResult {
	result := leave.SweepResult{Errors: []string{}}

	if s.locker != nil {
		lk, ok, err := s.locker.TryLock(ctx, sweepLockKey, s.config.LockTTL)
		switch {
		case err != nil:
			// Row locks keep escalation correct without it.
			slog.Warn("Sweep lock unavailable, continuing without it", "error", err)
		case !ok:
			slog.Info("Escalation sweep already running, skipping")
			return result
		default:
			defer func() {
				if err := lk.Release(context.WithoutCancel(ctx)); err != nil {
					slog.Warn("Failed to release sweep lock", "error", err)
				}
			}()
		}
	}

	now := s.now()
	s.escalateOverdue(ctx, now, &result)
	s.remindApprovers(ctx, now, &result)

	slog.Info("Escalation sweep finished",
		"escalated", result.Escalated,
		"reminded", result.Reminded,
		"errors", len(result.Errors),
	)
	return result
}

func (s *Service) escalateOverdue(ctx context.Context, now time.Time, result *leave.SweepResult) {
	candidates, err := s.requests.FindEscalationCandidates(ctx, now)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to find escalation candidates: %v", err))
		return
	}

	for _, c := range candidates {
		var notes []notification.CreateNotificationRequest
		err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			var err error
			notes, err = s.escalate(ctx, c.ID, now)
			return err
		})
		if err != nil {
			slog.Error("Failed to escalate leave request", "leave_request_id", c.ID, "leave_code", c.LeaveCode, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("escalate %s: %v", c.LeaveCode, err))
			continue
		}
		if len(notes) == 0 {
			continue
		}
		result.Escalated++
		s.dispatch(ctx, notes)
	}
}

// escalate returns no notifications when another worker got there first.
func (s *Service) escalate(ctx context.Context, requestID string, now time.Time) ([]notification.CreateNotificationRequest, error) {
	request, err := s.requests.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock leave request: %w", err)
	}
	if !request.Status.IsActive() || request.IsEscalated || request.EscalationDeadline.After(now) {
		return nil, nil
	}

	requester, err := s.users.GetByID(ctx, request.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get requester: %w", err)
	}
	hr, err := s.resolver.Resolve(ctx, workflow.ApproverRoleHRManager, requester)
	if err != nil {
		return nil, err
	}
	if hr == nil {
		return nil, ErrNoHRManager
	}

	approvals, err := s.approvals.GetByRequestID(ctx, request.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get leave approvals: %w", err)
	}

	// Reuse the HR manager's own pending step when the chain already has one.
	var hrStep *leave.LeaveApproval
	for i := range approvals {
		a := &approvals[i]
		if a.Status == leave.ApprovalStatusPending && a.ApproverID == hr.ID {
			hrStep = a
			break
		}
	}

	skipBelow := math.MaxInt
	if hrStep != nil {
		skipBelow = hrStep.Level
	}
	for i := range approvals {
		a := &approvals[i]
		if a.Status != leave.ApprovalStatusPending || a.Level >= skipBelow {
			continue
		}
		comment := "Skipped: escalated to HR due to timeout"
		a.Status = leave.ApprovalStatusSkipped
		a.Comment = &comment
		a.ActionAt = &now
		a.UpdatedAt = now
		if err := s.approvals.Update(ctx, *a); err != nil {
			return nil, fmt.Errorf("failed to skip leave approval: %w", err)
		}
	}

	if hrStep != nil {
		hrStep.NotifiedAt = &now
		hrStep.UpdatedAt = now
		if err := s.approvals.Update(ctx, *hrStep); err != nil {
			return nil, fmt.Errorf("failed to update hr approval: %w", err)
		}
		request.CurrentLevel = hrStep.Level
	} else {
		_, err := s.approvals.Create(ctx, leave.LeaveApproval{
			LeaveRequestID: request.ID,
			Level:          leave.HRLevel,
			ApproverID:     hr.ID,
			Status:         leave.ApprovalStatusPending,
			NotifiedAt:     &now,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create hr approval: %w", err)
		}
		request.CurrentLevel = leave.HRLevel
	}

	request.IsEscalated = true
	request.UpdatedAt = now
	if err := s.requests.Update(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to update leave request: %w", err)
	}

	return []notification.CreateNotificationRequest{
		leave.EscalatedToHRNotification(hr.ID, request),
		leave.EscalatedRequesterNotification(request),
	}, nil
}

func (s *Service) remindApprovers(ctx context.Context, now time.Time, result *leave.SweepResult) {
	candidates, err := s.requests.FindReminderCandidates(ctx, now, now.Add(s.config.ReminderWindow))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to find reminder candidates: %v", err))
		return
	}

	for _, c := range candidates {
		var note *notification.CreateNotificationRequest
		err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			var err error
			note, err = s.remind(ctx, c.ID, now)
			return err
		})
		if err != nil {
			slog.Warn("Failed to send approval reminder", "leave_request_id", c.ID, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("remind %s: %v", c.LeaveCode, err))
			continue
		}
		if note == nil {
			continue
		}
		result.Reminded++
		s.dispatch(ctx, []notification.CreateNotificationRequest{*note})
	}
}

func (s *Service) remind(ctx context.Context, requestID string, now time.Time) (*notification.CreateNotificationRequest, error) {
	request, err := s.requests.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock leave request: %w", err)
	}
	if !request.Status.IsActive() || request.IsEscalated ||
		!request.EscalationDeadline.After(now) || request.EscalationDeadline.After(now.Add(s.config.ReminderWindow)) {
		return nil, nil
	}

	approvals, err := s.approvals.GetByRequestID(ctx, request.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get leave approvals: %w", err)
	}
	step := leave.ActiveStep(approvals, request.CurrentLevel)
	if step == nil || step.ReminderCount >= s.config.ReminderMax {
		return nil, nil
	}

	step.ReminderCount++
	step.NotifiedAt = &now
	step.UpdatedAt = now
	if err := s.approvals.Update(ctx, *step); err != nil {
		return nil, fmt.Errorf("failed to update leave approval: %w", err)
	}

	hoursLeft := int(math.Ceil(request.EscalationDeadline.Sub(now).Hours()))
	note := leave.ReminderNotification(step.ApproverID, request, hoursLeft)
	return &note, nil
}

func (s *Service) dispatch(ctx context.Context, notes []notification.CreateNotificationRequest) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, notes...); err != nil {
		slog.Warn("Failed to dispatch escalation notifications", "count", len(notes), "error", err)
	}
}
