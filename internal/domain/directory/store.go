package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"evalhub/internal/domain/auth"
	"evalhub/internal/platform/querier"
)

type Store struct {
	DB   querier.Querier
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool, pool: pool}
}

const employeeColumns = `
    e.id, e.org_id,
    COALESCE(e.user_id::text, ''),
    COALESCE(e.employee_number, ''),
    e.first_name, e.last_name, e.email,
    COALESCE(e.department_id::text, ''),
    COALESCE(e.job_id::text, ''),
    COALESCE(e.manager_id::text, ''),
    COALESCE(u.role, ''),
    e.status, e.created_at, e.updated_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(
		&emp.ID, &emp.OrgID, &emp.UserID, &emp.Number,
		&emp.FirstName, &emp.LastName, &emp.Email,
		&emp.DepartmentID, &emp.JobID, &emp.ManagerID,
		&emp.Role, &emp.Status, &emp.CreatedAt, &emp.UpdatedAt,
	)
	return emp, err
}

func (s *Store) GetEmployee(ctx context.Context, orgID, employeeID string) (Employee, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees e
    LEFT JOIN users u ON u.id = e.user_id
    WHERE e.org_id = $1 AND e.id = $2
  `, orgID, employeeID)
	emp, err := scanEmployee(row)
	if err != nil {
		return Employee{}, notFoundOr(err)
	}
	return emp, nil
}

func (s *Store) GetEmployeeByUserID(ctx context.Context, orgID, userID string) (Employee, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees e
    LEFT JOIN users u ON u.id = e.user_id
    WHERE e.org_id = $1 AND e.user_id = $2
  `, orgID, userID)
	emp, err := scanEmployee(row)
	if err != nil {
		return Employee{}, notFoundOr(err)
	}
	return emp, nil
}

func (s *Store) ListEmployees(ctx context.Context, orgID, departmentID, jobID string, limit, offset int) ([]Employee, error) {
	query := `
    SELECT ` + employeeColumns + `
    FROM employees e
    LEFT JOIN users u ON u.id = e.user_id
    WHERE e.org_id = $1`
	args := []any{orgID}
	if departmentID != "" {
		query += fmt.Sprintf(" AND e.department_id = $%d", len(args)+1)
		args = append(args, departmentID)
	}
	if jobID != "" {
		query += fmt.Sprintf(" AND e.job_id = $%d", len(args)+1)
		args = append(args, jobID)
	}
	query += fmt.Sprintf(" ORDER BY e.last_name, e.first_name LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

// CreateEmployeeWithUser inserts the login and the employee row in one
// transaction so a failed employee insert never leaves an orphan user.
func (s *Store) CreateEmployeeWithUser(ctx context.Context, orgID string, emp Employee, passwordHash string) (Employee, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Employee{}, err
	}
	defer tx.Rollback(ctx)

	var userID string
	err = tx.QueryRow(ctx, `
    INSERT INTO users (org_id, email, password_hash, role, status)
    VALUES ($1, $2, $3, $4, 'active')
    RETURNING id
  `, orgID, emp.Email, passwordHash, emp.Role).Scan(&userID)
	if err != nil {
		if isUniqueViolation(err) {
			return Employee{}, fmt.Errorf("%w: email already registered", ErrValidation)
		}
		return Employee{}, err
	}

	row := tx.QueryRow(ctx, `
    INSERT INTO employees (org_id, user_id, employee_number, first_name, last_name, email, department_id, job_id, manager_id, status)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    RETURNING id, created_at, updated_at
  `, orgID, userID, nullIfEmpty(emp.Number), emp.FirstName, emp.LastName, emp.Email,
		nullIfEmpty(emp.DepartmentID), nullIfEmpty(emp.JobID), nullIfEmpty(emp.ManagerID), emp.Status)
	if err := row.Scan(&emp.ID, &emp.CreatedAt, &emp.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return Employee{}, fmt.Errorf("%w: employee number already in use", ErrValidation)
		}
		return Employee{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Employee{}, err
	}
	emp.OrgID = orgID
	emp.UserID = userID
	return emp, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, orgID, employeeID string, emp Employee) (Employee, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET first_name = $3, last_name = $4, email = $5,
        department_id = $6, job_id = $7, manager_id = $8,
        status = $9, updated_at = now()
    WHERE org_id = $1 AND id = $2
  `, orgID, employeeID, emp.FirstName, emp.LastName, emp.Email,
		nullIfEmpty(emp.DepartmentID), nullIfEmpty(emp.JobID), nullIfEmpty(emp.ManagerID), emp.Status)
	if err != nil {
		return Employee{}, err
	}
	if tag.RowsAffected() == 0 {
		return Employee{}, ErrNotFound
	}
	return s.GetEmployee(ctx, orgID, employeeID)
}

func (s *Store) SetEmployeeStatus(ctx context.Context, orgID, employeeID, status string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees SET status = $3, updated_at = now()
    WHERE org_id = $1 AND id = $2
  `, orgID, employeeID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) OrgAssessors(ctx context.Context, orgID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.id
    FROM employees e
    JOIN users u ON u.id = e.user_id
    WHERE e.org_id = $1 AND e.status = 'active' AND u.role = $2
    ORDER BY e.id
  `, orgID, auth.RoleAssessor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) OrgName(ctx context.Context, orgID string) (string, error) {
	var name string
	err := s.DB.QueryRow(ctx, `SELECT name FROM orgs WHERE id = $1`, orgID).Scan(&name)
	if err != nil {
		return "", notFoundOr(err)
	}
	return name, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func notFoundOr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
