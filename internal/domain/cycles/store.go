package cycles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"evalhub/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const cycleColumns = "id, org_id, name, status, start_date, end_date, created_at"

func scanCycle(row pgx.Row) (Cycle, error) {
	var c Cycle
	err := row.Scan(&c.ID, &c.OrgID, &c.Name, &c.Status, &c.StartDate, &c.EndDate, &c.CreatedAt)
	return c, err
}

func (s *Store) Create(ctx context.Context, cycle Cycle) (Cycle, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO evaluation_cycles (org_id, name, status, start_date, end_date)
    VALUES ($1, $2, $3, $4, $5)
    RETURNING `+cycleColumns+`
  `, cycle.OrgID, cycle.Name, cycle.Status, cycle.StartDate, cycle.EndDate)
	return scanCycle(row)
}

func (s *Store) Get(ctx context.Context, orgID, id string) (Cycle, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+cycleColumns+`
    FROM evaluation_cycles
    WHERE org_id = $1 AND id = $2
  `, orgID, id)
	cycle, err := scanCycle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cycle{}, ErrNotFound
		}
		return Cycle{}, err
	}
	return cycle, nil
}

func (s *Store) List(ctx context.Context, orgID string) ([]Cycle, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+cycleColumns+`
    FROM evaluation_cycles
    WHERE org_id = $1
    ORDER BY created_at DESC
  `, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Cycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cycle)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, orgID, id, status string) (Cycle, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE evaluation_cycles
    SET status = $3
    WHERE org_id = $1 AND id = $2
    RETURNING `+cycleColumns+`
  `, orgID, id, status)
	cycle, err := scanCycle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cycle{}, ErrNotFound
		}
		// The partial unique index on (org_id) WHERE status = 'active' backs
		// the one-active-cycle rule against concurrent activations.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Cycle{}, ErrCycleConflict
		}
		return Cycle{}, err
	}
	return cycle, nil
}

func (s *Store) ActiveCycle(ctx context.Context, orgID string) (Cycle, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+cycleColumns+`
    FROM evaluation_cycles
    WHERE org_id = $1 AND status = 'active'
  `, orgID)
	cycle, err := scanCycle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cycle{}, ErrNoActiveCycle
		}
		return Cycle{}, err
	}
	return cycle, nil
}

func (s *Store) HasActive(ctx context.Context, orgID string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM evaluation_cycles
    WHERE org_id = $1 AND status = 'active'
  `, orgID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
