package fund

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hulugan-ph/hulugan/internal/db/models"
	"github.com/hulugan-ph/hulugan/internal/repository"
	"github.com/hulugan-ph/hulugan/internal/services/iam"
)

// Casbin object and actions governing fund data.
const (
	ObjectFund  = "fund"
	ActionRead  = "read"
	ActionWrite = "write"
)

var (
	// ErrPermissionDenied is returned when the principal's role does not
	// permit the operation. The check happens here, above the repositories,
	// so no write can bypass it regardless of entry point.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUpdateInFlight is returned when a second mutation targets a group
	// whose previous mutation has not completed yet.
	ErrUpdateInFlight = errors.New("update already in flight for this group")
)

// Snapshot is the full collection state returned from every read and from
// every successful mutation: the caller always re-renders from store-side
// truth instead of patching locally.
type Snapshot struct {
	Stats  FundStats   `json:"stats"`
	Groups []GroupView `json:"groups"`
}

// Service owns fund reads and the authorization-gated mutation path.
type Service struct {
	groups repository.GroupRepository
	iam    iam.Authorizer
	logger *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewService constructs the fund service.
func NewService(groups repository.GroupRepository, iamService iam.Authorizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		groups:   groups,
		iam:      iamService,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// Snapshot loads the whole collection ordered by updated_at descending and
// derives all display metrics. Public: no principal required.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}

	return &Snapshot{
		Stats:  ComputeStats(groups),
		Groups: BuildViews(groups),
	}, nil
}

// SetPaidWeeks updates a group's paid-weeks counter and returns the reloaded
// collection.
//
// The write is gated on the admin role here at the store boundary; handler
// checks are a UX affordance only. Values outside [0, weeks_total] are
// rejected, never clamped. Submitting the same value twice is safe and
// stamps a fresh updated_at each time.
func (s *Service) SetPaidWeeks(ctx context.Context, principal *iam.Principal, groupID string, newValue int) (*Snapshot, error) {
	if err := s.authorizeWrite(ctx, principal); err != nil {
		return nil, err
	}

	if err := s.beginUpdate(groupID); err != nil {
		return nil, err
	}
	defer s.endUpdate(groupID)

	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := group.ValidatePaidWeeks(newValue); err != nil {
		return nil, err
	}

	if err := s.groups.SetPaidWeeks(ctx, groupID, newValue); err != nil {
		return nil, err
	}

	s.logger.Info("paid weeks updated",
		"group_id", groupID,
		"paid_weeks", newValue,
		"by", principal.Email,
	)

	return s.Snapshot(ctx)
}

// CreateGroup adds a new group to the fund and returns the reloaded
// collection. Admin only.
func (s *Service) CreateGroup(ctx context.Context, principal *iam.Principal, group *models.Group) (*Snapshot, error) {
	if err := s.authorizeWrite(ctx, principal); err != nil {
		return nil, err
	}

	if err := s.groups.Create(ctx, group); err != nil {
		return nil, err
	}

	s.logger.Info("group created",
		"group_id", group.ID,
		"name", group.Name,
		"by", principal.Email,
	)

	return s.Snapshot(ctx)
}

func (s *Service) authorizeWrite(ctx context.Context, principal *iam.Principal) error {
	if principal == nil {
		return ErrPermissionDenied
	}

	allowed, err := s.iam.Authorize(ctx, principal, ObjectFund, ActionWrite)
	if err != nil {
		return fmt.Errorf("authorize write: %w", err)
	}
	if !allowed {
		return ErrPermissionDenied
	}
	return nil
}

// beginUpdate reserves the per-group mutation slot, mirroring the disabled
// edit control while a write is in flight.
func (s *Service) beginUpdate(groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[groupID]; busy {
		return ErrUpdateInFlight
	}
	s.inFlight[groupID] = struct{}{}
	return nil
}

func (s *Service) endUpdate(groupID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, groupID)
}
