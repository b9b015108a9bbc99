package notifications

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"evalhub/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) CreateNotification(ctx context.Context, orgID, userID, ntype, title, body string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO notifications (org_id, user_id, type, title, body)
    VALUES ($1, $2, $3, $4, $5)
  `, orgID, userID, ntype, title, body)
	return err
}

func (s *Store) BroadcastNotification(ctx context.Context, orgID, ntype, title, body string) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO notifications (org_id, user_id, type, title, body)
    SELECT u.org_id, u.id, $2, $3, $4
    FROM users u
    WHERE u.org_id = $1 AND u.status = 'active'
  `, orgID, ntype, title, body)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) UserEmailByEmployee(ctx context.Context, orgID, employeeID string) (string, string, error) {
	var userID, email string
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(u.id::text, ''), COALESCE(u.email, '')
    FROM employees e
    LEFT JOIN users u ON u.id = e.user_id
    WHERE e.org_id = $1 AND e.id = $2
  `, orgID, employeeID).Scan(&userID, &email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", nil
	}
	return userID, email, err
}

func (s *Store) ListNotifications(ctx context.Context, orgID, userID string, unreadOnly bool, limit, offset int) ([]Notification, error) {
	query := `
    SELECT id, org_id, user_id, type, title, body, read_at, created_at
    FROM notifications
    WHERE org_id = $1 AND user_id = $2`
	if unreadOnly {
		query += " AND read_at IS NULL"
	}
	query += " ORDER BY created_at DESC LIMIT $3 OFFSET $4"

	rows, err := s.DB.Query(ctx, query, orgID, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.OrgID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CountUnread(ctx context.Context, orgID, userID string) (int, error) {
	var total int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM notifications
    WHERE org_id = $1 AND user_id = $2 AND read_at IS NULL
  `, orgID, userID).Scan(&total)
	return total, err
}

func (s *Store) MarkRead(ctx context.Context, orgID, userID, notificationID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = now()
    WHERE org_id = $1 AND user_id = $2 AND id = $3 AND read_at IS NULL
  `, orgID, userID, notificationID)
	return err
}

func (s *Store) EmailSettings(ctx context.Context, orgID string) (bool, string, error) {
	var enabled bool
	var from string
	err := s.DB.QueryRow(ctx, `
    SELECT email_notifications_enabled, COALESCE(email_from, '')
    FROM org_settings
    WHERE org_id = $1
  `, orgID).Scan(&enabled, &from)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, "", nil
	}
	return enabled, from, err
}

func (s *Store) UpdateSettings(ctx context.Context, orgID string, enabled bool, from string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO org_settings (org_id, email_notifications_enabled, email_from)
    VALUES ($1, $2, $3)
    ON CONFLICT (org_id) DO UPDATE
      SET email_notifications_enabled = EXCLUDED.email_notifications_enabled,
          email_from = EXCLUDED.email_from,
          updated_at = now()
  `, orgID, enabled, nullIfEmpty(from))
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
