package auth

import (
	"context"

	"evalhub/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

type AuthUser struct {
	ID         string
	OrgID      string
	EmployeeID string
	Role       string
	Password   string
}

func (s *Store) FindActiveUserByEmail(ctx context.Context, email, status string) (AuthUser, error) {
	var out AuthUser
	err := s.DB.QueryRow(ctx, `
    SELECT u.id, u.org_id, COALESCE(e.id, ''), u.role, u.password_hash
    FROM users u
    LEFT JOIN employees e ON e.user_id = u.id
    WHERE u.email = $1 AND u.status = $2
  `, email, status).Scan(&out.ID, &out.OrgID, &out.EmployeeID, &out.Role, &out.Password)
	return out, err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}
