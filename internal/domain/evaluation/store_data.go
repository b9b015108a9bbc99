package evaluation

import (
	"context"
	"fmt"
	"strconv"
)

const instanceColumns = `id, org_id, cycle_id, type, kind, employee_id, COALESCE(assessor_id::text, ''), status, created_at, started_at, completed_at`

func (s *Store) CreateInstance(ctx context.Context, inst Instance) (Instance, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO evaluation_instances (org_id, cycle_id, type, kind, employee_id, assessor_id, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id, created_at
  `, inst.OrgID, inst.CycleID, inst.Type, inst.Kind, inst.EmployeeID, nullIfEmpty(inst.AssessorID), inst.Status).Scan(&inst.ID, &inst.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Instance{}, fmt.Errorf("%w: evaluation already exists for this cycle", ErrValidation)
		}
		return Instance{}, err
	}
	return inst, nil
}

func (s *Store) CreateAssessorInstanceIfAbsent(ctx context.Context, inst Instance) (Instance, bool, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO evaluation_instances (org_id, cycle_id, type, kind, employee_id, assessor_id, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (org_id, cycle_id, kind, employee_id, assessor_id) WHERE type = 'assessor'
    DO NOTHING
    RETURNING id
  `, inst.OrgID, inst.CycleID, inst.Type, inst.Kind, inst.EmployeeID, nullIfEmpty(inst.AssessorID), inst.Status).Scan(&id)
	if err == nil {
		created, getErr := s.GetInstance(ctx, inst.OrgID, id)
		return created, true, getErr
	}
	// No row returned means the instance already exists: a concurrent or
	// earlier fan-out won the insert. Load and return it.
	existing := Instance{}
	getErr := s.DB.QueryRow(ctx, `
    SELECT `+instanceColumns+`
    FROM evaluation_instances
    WHERE org_id = $1 AND cycle_id = $2 AND kind = $3 AND employee_id = $4 AND assessor_id = $5 AND type = 'assessor'
  `, inst.OrgID, inst.CycleID, inst.Kind, inst.EmployeeID, inst.AssessorID).Scan(
		&existing.ID, &existing.OrgID, &existing.CycleID, &existing.Type, &existing.Kind,
		&existing.EmployeeID, &existing.AssessorID, &existing.Status,
		&existing.CreatedAt, &existing.StartedAt, &existing.CompletedAt)
	if getErr != nil {
		return Instance{}, false, notFoundOr(getErr)
	}
	return existing, false, nil
}

func (s *Store) GetInstance(ctx context.Context, orgID, id string) (Instance, error) {
	return s.getInstance(ctx, orgID, id, "")
}

func (s *Store) GetInstanceForUpdate(ctx context.Context, orgID, id string) (Instance, error) {
	return s.getInstance(ctx, orgID, id, " FOR UPDATE")
}

func (s *Store) getInstance(ctx context.Context, orgID, id, suffix string) (Instance, error) {
	var inst Instance
	err := s.DB.QueryRow(ctx, `
    SELECT `+instanceColumns+`
    FROM evaluation_instances
    WHERE org_id = $1 AND id = $2`+suffix,
		orgID, id).Scan(
		&inst.ID, &inst.OrgID, &inst.CycleID, &inst.Type, &inst.Kind,
		&inst.EmployeeID, &inst.AssessorID, &inst.Status,
		&inst.CreatedAt, &inst.StartedAt, &inst.CompletedAt)
	if err != nil {
		return Instance{}, notFoundOr(err)
	}
	return inst, nil
}

func (s *Store) UpdateInstanceStatus(ctx context.Context, inst Instance) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluation_instances
    SET status = $1, started_at = $2, completed_at = $3
    WHERE org_id = $4 AND id = $5
  `, inst.Status, inst.StartedAt, inst.CompletedAt, inst.OrgID, inst.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListInstances(ctx context.Context, orgID string, f InstanceFilter) ([]Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM evaluation_instances WHERE org_id = $1`
	args := []any{orgID}
	query, args = applyInstanceFilter(query, args, f)
	query += " ORDER BY created_at DESC"
	return s.scanInstances(ctx, query, args)
}

func (s *Store) ListAssessorVisible(ctx context.Context, orgID, assessorID string, f InstanceFilter) ([]Instance, error) {
	query := `
    SELECT ` + instanceColumns + `
    FROM evaluation_instances
    WHERE org_id = $1
      AND (
        (type = 'assessor' AND assessor_id = $2)
        OR (type = 'self' AND employee_id = $2)
        OR (type = 'self' AND status IN ('completed','reviewed') AND EXISTS (
          SELECT 1 FROM assessor_assignments a
          WHERE a.org_id = evaluation_instances.org_id
            AND a.assessor_id = $2
            AND a.employee_id = evaluation_instances.employee_id
        ))
      )`
	args := []any{orgID, assessorID}
	query, args = applyInstanceFilter(query, args, f)
	query += " ORDER BY created_at DESC"
	return s.scanInstances(ctx, query, args)
}

func applyInstanceFilter(query string, args []any, f InstanceFilter) (string, []any) {
	if f.EmployeeID != "" {
		args = append(args, f.EmployeeID)
		query += " AND employee_id = $" + strconv.Itoa(len(args))
	}
	if f.AssessorID != "" {
		args = append(args, f.AssessorID)
		query += " AND assessor_id = $" + strconv.Itoa(len(args))
	}
	if f.Kind != "" {
		args = append(args, f.Kind)
		query += " AND kind = $" + strconv.Itoa(len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += " AND status = $" + strconv.Itoa(len(args))
	}
	if f.CycleID != "" {
		args = append(args, f.CycleID)
		query += " AND cycle_id = $" + strconv.Itoa(len(args))
	}
	return query, args
}

func (s *Store) scanInstances(ctx context.Context, query string, args []any) ([]Instance, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []Instance
	for rows.Next() {
		var inst Instance
		if err := rows.Scan(
			&inst.ID, &inst.OrgID, &inst.CycleID, &inst.Type, &inst.Kind,
			&inst.EmployeeID, &inst.AssessorID, &inst.Status,
			&inst.CreatedAt, &inst.StartedAt, &inst.CompletedAt); err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

func (s *Store) RecordRating(ctx context.Context, orgID, instanceID, competencyID string, rating int, comment string) (RatingEntry, error) {
	entry := RatingEntry{InstanceID: instanceID, CompetencyID: competencyID, Rating: rating, Comment: comment}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO rating_entries (instance_id, competency_id, rating, comment)
    SELECT i.id, $3, $4, $5
    FROM evaluation_instances i
    WHERE i.org_id = $1 AND i.id = $2
    ON CONFLICT (instance_id, competency_id)
    DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment
    RETURNING id, created_at
  `, orgID, instanceID, competencyID, rating, comment).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return RatingEntry{}, notFoundOr(err)
	}
	return entry, nil
}

func (s *Store) ListRatings(ctx context.Context, orgID, instanceID string) ([]RatingEntry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.id, r.instance_id, r.competency_id, r.rating, COALESCE(r.comment, ''), r.created_at
    FROM rating_entries r
    JOIN evaluation_instances i ON r.instance_id = i.id
    WHERE i.org_id = $1 AND i.id = $2
    ORDER BY r.created_at
  `, orgID, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []RatingEntry
	for rows.Next() {
		var entry RatingEntry
		if err := rows.Scan(&entry.ID, &entry.InstanceID, &entry.CompetencyID, &entry.Rating, &entry.Comment, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) UpsertQuestionResponse(ctx context.Context, orgID, cycleID, employeeID, questionID, side string, rating int, comment string) (QuestionResponse, error) {
	// Both sides share one row per (employee, question, cycle); each write
	// touches only its own side's columns.
	var query string
	if side == SideAssessor {
		query = `
      INSERT INTO question_responses (org_id, cycle_id, employee_id, question_id, assessor_rating, assessor_comment)
      VALUES ($1,$2,$3,$4,$5,$6)
      ON CONFLICT (org_id, cycle_id, employee_id, question_id)
      DO UPDATE SET assessor_rating = EXCLUDED.assessor_rating, assessor_comment = EXCLUDED.assessor_comment, updated_at = now()
      RETURNING id, org_id, cycle_id, employee_id, question_id, employee_rating, COALESCE(employee_comment, ''), assessor_rating, COALESCE(assessor_comment, ''), updated_at`
	} else {
		query = `
      INSERT INTO question_responses (org_id, cycle_id, employee_id, question_id, employee_rating, employee_comment)
      VALUES ($1,$2,$3,$4,$5,$6)
      ON CONFLICT (org_id, cycle_id, employee_id, question_id)
      DO UPDATE SET employee_rating = EXCLUDED.employee_rating, employee_comment = EXCLUDED.employee_comment, updated_at = now()
      RETURNING id, org_id, cycle_id, employee_id, question_id, employee_rating, COALESCE(employee_comment, ''), assessor_rating, COALESCE(assessor_comment, ''), updated_at`
	}

	var resp QuestionResponse
	err := s.DB.QueryRow(ctx, query, orgID, cycleID, employeeID, questionID, rating, comment).Scan(
		&resp.ID, &resp.OrgID, &resp.CycleID, &resp.EmployeeID, &resp.QuestionID,
		&resp.EmployeeRating, &resp.EmployeeComment, &resp.AssessorRating, &resp.AssessorComment, &resp.UpdatedAt)
	if err != nil {
		return QuestionResponse{}, err
	}
	return resp, nil
}

func (s *Store) ListResponses(ctx context.Context, orgID, cycleID, employeeID string) ([]QuestionResponse, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, org_id, cycle_id, employee_id, question_id, employee_rating, COALESCE(employee_comment, ''), assessor_rating, COALESCE(assessor_comment, ''), updated_at
    FROM question_responses
    WHERE org_id = $1 AND cycle_id = $2 AND employee_id = $3
    ORDER BY question_id
  `, orgID, cycleID, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []QuestionResponse
	for rows.Next() {
		var resp QuestionResponse
		if err := rows.Scan(
			&resp.ID, &resp.OrgID, &resp.CycleID, &resp.EmployeeID, &resp.QuestionID,
			&resp.EmployeeRating, &resp.EmployeeComment, &resp.AssessorRating, &resp.AssessorComment, &resp.UpdatedAt); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

func (s *Store) CreateAssignment(ctx context.Context, orgID, assessorID, employeeID string) (Assignment, error) {
	assignment := Assignment{OrgID: orgID, AssessorID: assessorID, EmployeeID: employeeID}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO assessor_assignments (org_id, assessor_id, employee_id)
    VALUES ($1,$2,$3)
    ON CONFLICT (org_id, assessor_id, employee_id) DO UPDATE SET assessor_id = EXCLUDED.assessor_id
    RETURNING id, created_at
  `, orgID, assessorID, employeeID).Scan(&assignment.ID, &assignment.CreatedAt)
	if err != nil {
		return Assignment{}, err
	}
	return assignment, nil
}

func (s *Store) DeleteAssignment(ctx context.Context, orgID, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM assessor_assignments WHERE org_id = $1 AND id = $2", orgID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListAssignments(ctx context.Context, orgID, assessorID, employeeID string) ([]Assignment, error) {
	query := "SELECT id, org_id, assessor_id, employee_id, created_at FROM assessor_assignments WHERE org_id = $1"
	args := []any{orgID}
	if assessorID != "" {
		args = append(args, assessorID)
		query += " AND assessor_id = $" + strconv.Itoa(len(args))
	}
	if employeeID != "" {
		args = append(args, employeeID)
		query += " AND employee_id = $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []Assignment
	for rows.Next() {
		var assignment Assignment
		if err := rows.Scan(&assignment.ID, &assignment.OrgID, &assignment.AssessorID, &assignment.EmployeeID, &assignment.CreatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}
	return assignments, rows.Err()
}

func (s *Store) IsAssigned(ctx context.Context, orgID, assessorID, employeeID string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM assessor_assignments
    WHERE org_id = $1 AND assessor_id = $2 AND employee_id = $3
  `, orgID, assessorID, employeeID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) AssignedAssessorIDs(ctx context.Context, orgID, employeeID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT assessor_id FROM assessor_assignments
    WHERE org_id = $1 AND employee_id = $2
    ORDER BY created_at
  `, orgID, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) RatingRows(ctx context.Context, orgID string, f PopulationFilter) ([]RatingRow, error) {
	if f.Kind == KindAppraisal {
		return s.appraisalRatingRows(ctx, orgID, f)
	}
	return s.competencyRatingRows(ctx, orgID, f)
}

func (s *Store) competencyRatingRows(ctx context.Context, orgID string, f PopulationFilter) ([]RatingRow, error) {
	query := `
    SELECT r.competency_id, i.type, r.rating
    FROM rating_entries r
    JOIN evaluation_instances i ON r.instance_id = i.id
    JOIN employees e ON i.employee_id = e.id
    WHERE i.org_id = $1 AND i.kind = 'competency' AND i.status IN ('completed','reviewed')`
	args := []any{orgID}
	query, args = applyPopulationFilter(query, args, f)
	query += " ORDER BY r.competency_id"
	return s.scanRatingRows(ctx, query, args)
}

func (s *Store) appraisalRatingRows(ctx context.Context, orgID string, f PopulationFilter) ([]RatingRow, error) {
	// Shared response rows carry both sides: count the employee side when the
	// employee's self appraisal is finished, the assessor side when at least
	// one assessor appraisal for that employee is.
	selfQuery := `
    SELECT qr.question_id, 'self', qr.employee_rating
    FROM question_responses qr
    JOIN evaluation_instances i ON i.org_id = qr.org_id AND i.cycle_id = qr.cycle_id
      AND i.employee_id = qr.employee_id AND i.type = 'self' AND i.kind = 'appraisal'
    JOIN employees e ON i.employee_id = e.id
    WHERE i.org_id = $1 AND qr.employee_rating IS NOT NULL AND i.status IN ('completed','reviewed')`
	assessorQuery := `
    SELECT qr.question_id, 'assessor', qr.assessor_rating
    FROM question_responses qr
    JOIN evaluation_instances i ON i.org_id = qr.org_id AND i.cycle_id = qr.cycle_id
      AND i.employee_id = qr.employee_id AND i.type = 'assessor' AND i.kind = 'appraisal'
    JOIN employees e ON i.employee_id = e.id
    WHERE i.org_id = $1 AND qr.assessor_rating IS NOT NULL AND i.status IN ('completed','reviewed')`

	// Both halves append the same filters in the same order, so they share
	// one placeholder numbering and one argument list.
	args := []any{orgID}
	selfQuery, args = applyPopulationFilter(selfQuery, args, f)
	assessorQuery, _ = applyPopulationFilter(assessorQuery, []any{orgID}, f)

	return s.scanRatingRows(ctx, selfQuery+" UNION ALL "+assessorQuery, args)
}

func applyPopulationFilter(query string, args []any, f PopulationFilter) (string, []any) {
	if f.CycleID != "" {
		args = append(args, f.CycleID)
		query += " AND i.cycle_id = $" + strconv.Itoa(len(args))
	}
	if f.EmployeeID != "" {
		args = append(args, f.EmployeeID)
		query += " AND i.employee_id = $" + strconv.Itoa(len(args))
	}
	if f.JobID != "" {
		args = append(args, f.JobID)
		query += " AND e.job_id = $" + strconv.Itoa(len(args))
	}
	if f.DepartmentID != "" {
		args = append(args, f.DepartmentID)
		query += " AND e.department_id = $" + strconv.Itoa(len(args))
	}
	return query, args
}

func (s *Store) scanRatingRows(ctx context.Context, query string, args []any) ([]RatingRow, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RatingRow
	for rows.Next() {
		var row RatingRow
		if err := rows.Scan(&row.DimensionID, &row.Side, &row.Rating); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
