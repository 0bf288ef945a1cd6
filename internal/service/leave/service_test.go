package leave

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/leave"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/notification"
	notificationmock "github.com/cmlabs-hris/leave-approval-backend/internal/domain/notification/mock"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/user"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/workflow"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/storage"
	"github.com/cmlabs-hris/leave-approval-backend/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	annualLeaveID  = "0192f1a2-7b8c-7b4a-8a2b-000000000001"
	sickLeaveID    = "0192f1a2-7b8c-7b4a-8a2b-000000000002"
	inactiveTypeID = "0192f1a2-7b8c-7b4a-8a2b-000000000003"
)

type stubChain struct {
	chain workflow.Chain
	err   error
}

func (s *stubChain) BuildChain(context.Context, user.User) (workflow.Chain, error) {
	return s.chain, s.err
}

type stubFiles struct {
	existing map[string]bool
	contents map[string]string
}

func (s *stubFiles) Exists(_ context.Context, path string) (bool, error) {
	return s.existing[path], nil
}

func (s *stubFiles) Open(_ context.Context, path string) (io.ReadSeekCloser, error) {
	content, ok := s.contents[path]
	if !ok {
		return nil, storage.ErrFileNotFound
	}
	return nopSeekCloser{strings.NewReader(content)}, nil
}

type nopSeekCloser struct{ io.ReadSeeker }

func (nopSeekCloser) Close() error { return nil }

type testEnv struct {
	store *memory.Store
	svc   *LeaveServiceImpl
	chain *stubChain
	files *stubFiles
	now   time.Time
	sent  []notification.CreateNotificationRequest
}

func setupLeaveService(t *testing.T) *testEnv {
	t.Helper()
	ctrl := gomock.NewController(t)

	store := memory.NewStore()
	store.AddUsers(
		user.User{ID: "emp", CompanyID: "c1", DepartmentID: "d1", Role: user.RoleEmployee, IsActive: true},
		user.User{ID: "emp-2", CompanyID: "c1", DepartmentID: "d1", Role: user.RoleEmployee, IsActive: true},
		user.User{ID: "sup", CompanyID: "c1", DepartmentID: "d1", Role: user.RoleShiftSupervisor, IsActive: true},
		user.User{ID: "mgr", CompanyID: "c1", DepartmentID: "d1", Role: user.RoleDeptManager, IsActive: true},
		user.User{ID: "hrm", CompanyID: "c1", DepartmentID: "hr", Role: user.RoleHRManager, IsActive: true},
		user.User{ID: "hr", CompanyID: "c1", DepartmentID: "hr", Role: user.RoleHR, IsActive: true},
	)
	maxDays := 12
	store.AddLeaveType(leave.LeaveType{ID: annualLeaveID, CompanyID: "c1", Code: "AL", Name: "Annual Leave", IsActive: true, MaxDaysPerRequest: &maxDays})
	store.AddLeaveType(leave.LeaveType{ID: sickLeaveID, CompanyID: "c1", Code: "SL", Name: "Sick Leave", IsActive: true, RequiresAttachment: true})
	store.AddLeaveType(leave.LeaveType{ID: inactiveTypeID, CompanyID: "c1", Code: "XL", Name: "Retired", IsActive: false})

	env := &testEnv{
		store: store,
		chain: &stubChain{chain: workflow.Chain{{Level: 1, ApproverID: "sup"}, {Level: 2, ApproverID: "mgr"}}},
		files: &stubFiles{
			existing: map[string]bool{"leave/emp/note.pdf": true},
			contents: map[string]string{"leave/emp/note.pdf": "%PDF-1.4"},
		},
		now:   time.Date(2025, time.January, 14, 10, 0, 0, 0, time.UTC),
	}

	notifier := notificationmock.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, reqs ...notification.CreateNotificationRequest) error {
			env.sent = append(env.sent, reqs...)
			return nil
		}).AnyTimes()

	env.svc = NewLeaveService(
		store.Transactor(),
		Repositories{
			LeaveTypes:   store.LeaveTypes(),
			Requests:     store.LeaveRequests(),
			Approvals:    store.LeaveApprovals(),
			Attachments:  store.LeaveAttachments(),
			CodeSequence: store.LeaveCodeSequences(),
			Users:        store.Users(),
		},
		env.chain,
		notifier,
		env.files,
		Config{Location: time.UTC, DeadlineDays: 2, DeadlineHour: 8},
	)
	env.svc.now = func() time.Time { return env.now }
	return env
}

func annualRequest(requesterID, days string) leave.CreateLeaveRequestRequest {
	return leave.CreateLeaveRequestRequest{
		RequesterID: requesterID,
		LeaveTypeID: annualLeaveID,
		StartDate:   "2025-02-03",
		EndDate:     "2025-02-05",
		TotalDays:   decimal.RequireFromString(days),
		Reason:      "Family trip",
	}
}

func (e *testEnv) submit(t *testing.T) leave.LeaveRequestResponse {
	t.Helper()
	resp, err := e.svc.Submit(context.Background(), annualRequest("emp", "3"))
	require.NoError(t, err)
	e.sent = nil
	return resp
}

func (e *testEnv) act(action, requestID, approverID string) (leave.LeaveRequestResponse, error) {
	req := leave.ApprovalActionRequest{RequestID: requestID, ApproverID: approverID, Action: action}
	if action == leave.ActionReject {
		reason := "Team is short-staffed"
		req.Comment = &reason
		return e.svc.Reject(context.Background(), req)
	}
	return e.svc.Approve(context.Background(), req)
}

func kinds(notes []notification.CreateNotificationRequest) map[string]notification.NotificationType {
	out := make(map[string]notification.NotificationType, len(notes))
	for _, n := range notes {
		out[n.RecipientID] = n.Type
	}
	return out
}
