package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"evalhub/internal/platform/querier"
)

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  any             `json:"createdAt"`
	Details    json.RawMessage `json:"details,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	ActorUser  string
}

type Service struct {
	DB querier.Querier
}

func New(db querier.Querier) *Service {
	return &Service{DB: db}
}

// Record writes one audit row. Details is marshalled as-is; a nil details
// stores NULL.
func (s *Service) Record(ctx context.Context, orgID, actorID, action, entityType, entityID, requestID, ip string, details any) error {
	var detailsJSON []byte
	if details != nil {
		payload, err := json.Marshal(details)
		if err != nil {
			return err
		}
		detailsJSON = payload
	}

	_, err := s.DB.Exec(ctx, `
    INSERT INTO audit_events (org_id, actor_user_id, action, entity_type, entity_id, details, request_id, ip)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
  `, orgID, actorID, action, entityType, entityID, detailsJSON, requestID, ip)
	return err
}

func (s *Service) Count(ctx context.Context, orgID string, filter Filter) (int, error) {
	query, args := s.buildBaseQuery("SELECT COUNT(1)", orgID, filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Service) List(ctx context.Context, orgID string, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	selectCols := "id, actor_user_id, action, entity_type, entity_id, COALESCE(request_id, ''), COALESCE(ip, ''), created_at"
	if includeDetails {
		selectCols += ", details"
	}
	query, args := s.buildBaseQuery("SELECT "+selectCols, orgID, filter)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var evt Event
		if includeDetails {
			err = rows.Scan(&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt, &evt.Details)
		} else {
			err = rows.Scan(&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (s *Service) buildBaseQuery(prefix, orgID string, filter Filter) (string, []any) {
	query := prefix + " FROM audit_events WHERE org_id = $1"
	args := []any{orgID}
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", len(args)+1)
		args = append(args, filter.Action)
	}
	if filter.EntityType != "" {
		query += fmt.Sprintf(" AND entity_type = $%d", len(args)+1)
		args = append(args, filter.EntityType)
	}
	if filter.ActorUser != "" {
		query += fmt.Sprintf(" AND actor_user_id::text = $%d", len(args)+1)
		args = append(args, filter.ActorUser)
	}
	return query, args
}
