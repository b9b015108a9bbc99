package notifications

import "context"

type StoreAPI interface {
	CreateNotification(ctx context.Context, orgID, userID, ntype, title, body string) error
	// BroadcastNotification writes one in-app row per active user in the org
	// and reports how many rows it created.
	BroadcastNotification(ctx context.Context, orgID, ntype, title, body string) (int, error)
	// UserEmailByEmployee resolves the login email behind an employee so
	// evaluation events addressed to employees reach the right inbox.
	UserEmailByEmployee(ctx context.Context, orgID, employeeID string) (string, string, error)
	ListNotifications(ctx context.Context, orgID, userID string, unreadOnly bool, limit, offset int) ([]Notification, error)
	CountUnread(ctx context.Context, orgID, userID string) (int, error)
	MarkRead(ctx context.Context, orgID, userID, notificationID string) error
	EmailSettings(ctx context.Context, orgID string) (bool, string, error)
	UpdateSettings(ctx context.Context, orgID string, enabled bool, from string) error
}
