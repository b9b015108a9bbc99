package cycles

import (
	"context"
	"fmt"
	"strings"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

// Create opens a new cycle in draft; it carries no instances until activated.
func (s *Service) Create(ctx context.Context, orgID string, cycle Cycle) (Cycle, error) {
	if strings.TrimSpace(cycle.Name) == "" {
		return Cycle{}, fmt.Errorf("%w: cycle name required", ErrValidation)
	}
	if cycle.StartDate != nil && cycle.EndDate != nil && cycle.EndDate.Before(*cycle.StartDate) {
		return Cycle{}, fmt.Errorf("%w: end date before start date", ErrValidation)
	}
	cycle.OrgID = orgID
	cycle.Status = StatusDraft
	return s.store.Create(ctx, cycle)
}

func (s *Service) Get(ctx context.Context, orgID, cycleID string) (Cycle, error) {
	return s.store.Get(ctx, orgID, cycleID)
}

func (s *Service) List(ctx context.Context, orgID string) ([]Cycle, error) {
	return s.store.List(ctx, orgID)
}

// Activate opens a draft cycle for evaluations. Only one cycle may be active
// per organization, so activation fails while another is open.
func (s *Service) Activate(ctx context.Context, orgID, cycleID string) (Cycle, error) {
	cycle, err := s.store.Get(ctx, orgID, cycleID)
	if err != nil {
		return Cycle{}, err
	}
	switch cycle.Status {
	case StatusActive:
		return cycle, nil
	case StatusDraft:
	default:
		return Cycle{}, fmt.Errorf("%w: cannot activate a %s cycle", ErrValidation, cycle.Status)
	}

	active, err := s.store.HasActive(ctx, orgID)
	if err != nil {
		return Cycle{}, err
	}
	if active {
		return Cycle{}, ErrCycleConflict
	}
	return s.store.UpdateStatus(ctx, orgID, cycleID, StatusActive)
}

// Close ends the cycle. Closing is terminal; instances in the cycle keep
// their state but no new ones can be opened.
func (s *Service) Close(ctx context.Context, orgID, cycleID string) (Cycle, error) {
	cycle, err := s.store.Get(ctx, orgID, cycleID)
	if err != nil {
		return Cycle{}, err
	}
	switch cycle.Status {
	case StatusClosed:
		return cycle, nil
	case StatusActive:
	default:
		return Cycle{}, fmt.Errorf("%w: cannot close a %s cycle", ErrValidation, cycle.Status)
	}
	return s.store.UpdateStatus(ctx, orgID, cycleID, StatusClosed)
}

// ActiveCycleID resolves the open period new evaluations attach to.
func (s *Service) ActiveCycleID(ctx context.Context, orgID string) (string, error) {
	cycle, err := s.store.ActiveCycle(ctx, orgID)
	if err != nil {
		return "", err
	}
	return cycle.ID, nil
}
