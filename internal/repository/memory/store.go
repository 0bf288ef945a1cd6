// Package memory holds in-memory implementations of the leave repositories for service tests.
// It is test support only: cmd/api wires the postgresql repositories, and only _test.go files
// import this package. Transactions are emulated with snapshot and restore.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/leave"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/user"
)

type Store struct {
	mu          sync.Mutex
	nextID      int
	users       []user.User
	leaveTypes  map[string]leave.LeaveType
	requests    map[string]leave.LeaveRequest
	approvals   []leave.LeaveApproval
	attachments []leave.LeaveAttachment
	sequences   map[string]int
}

func NewStore() *Store {
	return &Store{
		leaveTypes: make(map[string]leave.LeaveType),
		requests:   make(map[string]leave.LeaveRequest),
		sequences:  make(map[string]int),
	}
}

func (s *Store) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

type snapshot struct {
	nextID      int
	leaveTypes  map[string]leave.LeaveType
	requests    map[string]leave.LeaveRequest
	approvals   []leave.LeaveApproval
	attachments []leave.LeaveAttachment
	sequences   map[string]int
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		nextID:      s.nextID,
		leaveTypes:  maps.Clone(s.leaveTypes),
		requests:    maps.Clone(s.requests),
		approvals:   slices.Clone(s.approvals),
		attachments: slices.Clone(s.attachments),
		sequences:   maps.Clone(s.sequences),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.leaveTypes = snap.leaveTypes
	s.requests = snap.requests
	s.approvals = snap.approvals
	s.attachments = snap.attachments
	s.sequences = snap.sequences
}

// Seeding helpers.

func (s *Store) AddUsers(users ...user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, users...)
}

func (s *Store) AddLeaveType(t leave.LeaveType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaveTypes[t.ID] = t
}

func (s *Store) PutRequest(r leave.LeaveRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[r.ID] = r
}

func (s *Store) AddApprovals(approvals ...leave.LeaveApproval) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range approvals {
		if a.ID == "" {
			a.ID = s.newID("la")
		}
		s.approvals = append(s.approvals, a)
	}
}

func (s *Store) AddAttachments(attachments ...leave.LeaveAttachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments = append(s.attachments, attachments...)
}

// Inspection helpers.

func (s *Store) Request(id string) (leave.LeaveRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	return r, ok
}

func (s *Store) Requests() []leave.LeaveRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Collect(maps.Values(s.requests))
	slices.SortFunc(out, func(a, b leave.LeaveRequest) int { return compareString(a.ID, b.ID) })
	return out
}

func (s *Store) ApprovalsOf(requestID string) []leave.LeaveApproval {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.approvalsOf(requestID)
}

func (s *Store) approvalsOf(requestID string) []leave.LeaveApproval {
	var out []leave.LeaveApproval
	for _, a := range s.approvals {
		if a.LeaveRequestID == requestID {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b leave.LeaveApproval) int { return a.Level - b.Level })
	return out
}

func (s *Store) AttachmentsOf(requestID string) []leave.LeaveAttachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []leave.LeaveAttachment
	for _, a := range s.attachments {
		if a.LeaveRequestID == requestID {
			out = append(out, a)
		}
	}
	return out
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

type txMarker struct{}

// Transactor emulates database.Transactor: state is restored when fn fails.
type Transactor struct {
	store *Store
}

func (s *Store) Transactor() *Transactor { return &Transactor{store: s} }

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}
	snap := t.store.snapshot()
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}
