package cycles

import "context"

type StoreAPI interface {
	Create(ctx context.Context, cycle Cycle) (Cycle, error)
	Get(ctx context.Context, orgID, id string) (Cycle, error)
	List(ctx context.Context, orgID string) ([]Cycle, error)
	UpdateStatus(ctx context.Context, orgID, id, status string) (Cycle, error)
	// ActiveCycle returns the single active cycle, or ErrNoActiveCycle.
	ActiveCycle(ctx context.Context, orgID string) (Cycle, error)
	HasActive(ctx context.Context, orgID string) (bool, error)
}
