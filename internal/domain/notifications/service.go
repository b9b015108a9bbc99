package notifications

import (
	"context"
	"log/slog"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	DefaultFrom string
}

func New(store StoreAPI, mailer Mailer, defaultFrom string) *Service {
	if defaultFrom == "" {
		defaultFrom = "no-reply@example.com"
	}
	return &Service{store: store, Mailer: mailer, DefaultFrom: defaultFrom}
}

// NotifyUser stores an in-app notification and, when org email settings allow
// it, mirrors it to the user's inbox. Email failures are logged, never
// surfaced; the in-app record is the source of truth.
func (s *Service) NotifyUser(ctx context.Context, orgID, userID, email, ntype, title, body string) error {
	if err := s.store.CreateNotification(ctx, orgID, userID, ntype, title, body); err != nil {
		return err
	}
	s.sendEmail(ctx, orgID, email, title, body)
	return nil
}

// NotifyEmployee addresses the notification by employee id, resolving the
// login behind it. Employees without a login are skipped silently.
func (s *Service) NotifyEmployee(ctx context.Context, orgID, employeeID, ntype, title, body string) error {
	userID, email, err := s.store.UserEmailByEmployee(ctx, orgID, employeeID)
	if err != nil {
		slog.Warn("notification user lookup failed", "employeeID", employeeID, "err", err)
		return nil
	}
	if userID == "" {
		return nil
	}
	return s.NotifyUser(ctx, orgID, userID, email, ntype, title, body)
}

// NotifyOrg fans an announcement out to every active user in the org, in-app
// only. Cycle openings and closings use this path.
func (s *Service) NotifyOrg(ctx context.Context, orgID, ntype, title, body string) (int, error) {
	return s.store.BroadcastNotification(ctx, orgID, ntype, title, body)
}

func (s *Service) List(ctx context.Context, orgID, userID string, unreadOnly bool, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, orgID, userID, unreadOnly, limit, offset)
}

func (s *Service) CountUnread(ctx context.Context, orgID, userID string) (int, error) {
	return s.store.CountUnread(ctx, orgID, userID)
}

func (s *Service) MarkRead(ctx context.Context, orgID, userID, notificationID string) error {
	return s.store.MarkRead(ctx, orgID, userID, notificationID)
}

func (s *Service) GetSettings(ctx context.Context, orgID string) (bool, string, error) {
	return s.store.EmailSettings(ctx, orgID)
}

func (s *Service) UpdateSettings(ctx context.Context, orgID string, enabled bool, from string) error {
	return s.store.UpdateSettings(ctx, orgID, enabled, from)
}

func (s *Service) sendEmail(ctx context.Context, orgID, to, subject, body string) {
	if s.Mailer == nil || to == "" {
		return
	}
	enabled, from, err := s.store.EmailSettings(ctx, orgID)
	if err != nil || !enabled {
		return
	}
	if from == "" {
		from = s.DefaultFrom
	}
	if err := s.Mailer.Send(ctx, from, to, subject, body); err != nil {
		slog.Warn("notification email send failed", "err", err)
	}
}
