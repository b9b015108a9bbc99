package directory

import "context"

func (s *Store) ListDepartments(ctx context.Context, orgID string) ([]Department, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, org_id, name, created_at
    FROM departments
    WHERE org_id = $1
    ORDER BY name
  `, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var dep Department
		if err := rows.Scan(&dep.ID, &dep.OrgID, &dep.Name, &dep.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, rows.Err()
}

func (s *Store) CreateDepartment(ctx context.Context, orgID, name string) (Department, error) {
	var dep Department
	err := s.DB.QueryRow(ctx, `
    INSERT INTO departments (org_id, name)
    VALUES ($1, $2)
    RETURNING id, org_id, name, created_at
  `, orgID, name).Scan(&dep.ID, &dep.OrgID, &dep.Name, &dep.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return Department{}, ErrConflict
	}
	return dep, err
}

func (s *Store) DepartmentHasEmployees(ctx context.Context, orgID, departmentID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM employees
    WHERE org_id = $1 AND department_id = $2
  `, orgID, departmentID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) DeleteDepartment(ctx context.Context, orgID, departmentID string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM departments WHERE org_id = $1 AND id = $2", orgID, departmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListJobs(ctx context.Context, orgID string) ([]Job, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, org_id, title, created_at
    FROM jobs
    WHERE org_id = $1
    ORDER BY title
  `, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.OrgID, &job.Title, &job.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (s *Store) CreateJob(ctx context.Context, orgID, title string) (Job, error) {
	var job Job
	err := s.DB.QueryRow(ctx, `
    INSERT INTO jobs (org_id, title)
    VALUES ($1, $2)
    RETURNING id, org_id, title, created_at
  `, orgID, title).Scan(&job.ID, &job.OrgID, &job.Title, &job.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return Job{}, ErrConflict
	}
	return job, err
}

func (s *Store) ListCompetencies(ctx context.Context, orgID string) ([]Competency, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, org_id, name, COALESCE(description, ''), position, created_at
    FROM competencies
    WHERE org_id = $1
    ORDER BY position, created_at
  `, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Competency
	for rows.Next() {
		var comp Competency
		if err := rows.Scan(&comp.ID, &comp.OrgID, &comp.Name, &comp.Description, &comp.Position, &comp.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, comp)
	}
	return out, rows.Err()
}

func (s *Store) CreateCompetency(ctx context.Context, orgID string, comp Competency) (Competency, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO competencies (org_id, name, description, position)
    VALUES ($1, $2, $3, COALESCE(NULLIF($4, 0), (SELECT COALESCE(MAX(position), 0) + 1 FROM competencies WHERE org_id = $1)))
    RETURNING id, org_id, name, COALESCE(description, ''), position, created_at
  `, orgID, comp.Name, nullIfEmpty(comp.Description), comp.Position).
		Scan(&comp.ID, &comp.OrgID, &comp.Name, &comp.Description, &comp.Position, &comp.CreatedAt)
	return comp, err
}

func (s *Store) UpdateCompetency(ctx context.Context, orgID, competencyID string, comp Competency) (Competency, error) {
	err := s.DB.QueryRow(ctx, `
    UPDATE competencies
    SET name = $3, description = $4, position = $5
    WHERE org_id = $1 AND id = $2
    RETURNING id, org_id, name, COALESCE(description, ''), position, created_at
  `, orgID, competencyID, comp.Name, nullIfEmpty(comp.Description), comp.Position).
		Scan(&comp.ID, &comp.OrgID, &comp.Name, &comp.Description, &comp.Position, &comp.CreatedAt)
	if err != nil {
		return Competency{}, notFoundOr(err)
	}
	return comp, nil
}

func (s *Store) CompetencyHasRatings(ctx context.Context, orgID, competencyID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM rating_entries re
    JOIN evaluation_instances ei ON ei.id = re.instance_id
    WHERE ei.org_id = $1 AND re.competency_id = $2
  `, orgID, competencyID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) DeleteCompetency(ctx context.Context, orgID, competencyID string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM competencies WHERE org_id = $1 AND id = $2", orgID, competencyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListQuestions(ctx context.Context, orgID string) ([]Question, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, org_id, text, position, created_at
    FROM questions
    WHERE org_id = $1
    ORDER BY position, created_at
  `, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.OrgID, &q.Text, &q.Position, &q.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) CreateQuestion(ctx context.Context, orgID string, q Question) (Question, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO questions (org_id, text, position)
    VALUES ($1, $2, COALESCE(NULLIF($3, 0), (SELECT COALESCE(MAX(position), 0) + 1 FROM questions WHERE org_id = $1)))
    RETURNING id, org_id, text, position, created_at
  `, orgID, q.Text, q.Position).Scan(&q.ID, &q.OrgID, &q.Text, &q.Position, &q.CreatedAt)
	return q, err
}

func (s *Store) QuestionHasResponses(ctx context.Context, orgID, questionID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM question_responses
    WHERE org_id = $1 AND question_id = $2
  `, orgID, questionID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) DeleteQuestion(ctx context.Context, orgID, questionID string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM questions WHERE org_id = $1 AND id = $2", orgID, questionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
