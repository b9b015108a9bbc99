package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"evalhub/internal/domain/auth"
	"evalhub/internal/platform/config"
)

var defaultCompetencies = []struct {
	Name        string
	Description string
}{
	{"Communication", "Shares information clearly and listens actively"},
	{"Collaboration", "Works effectively with others toward shared goals"},
	{"Problem Solving", "Breaks down problems and drives them to resolution"},
	{"Accountability", "Owns outcomes and follows through on commitments"},
	{"Technical Expertise", "Maintains the depth of knowledge the role requires"},
}

var defaultQuestions = []string{
	"How well did the employee meet the goals set for this period?",
	"How effectively does the employee manage their workload and priorities?",
	"How does the employee contribute to the team beyond their own tasks?",
	"What is the overall quality of the employee's work?",
}

func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	orgID, err := ensureOrg(ctx, pool, cfg.SeedOrgName)
	if err != nil {
		return err
	}

	if err := ensureAdmin(ctx, pool, orgID, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return err
	}

	if cfg.SeedCatalogue {
		if err := ensureCatalogue(ctx, pool, orgID); err != nil {
			return err
		}
	}

	return nil
}

func ensureOrg(ctx context.Context, pool *pgxpool.Pool, name string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM orgs WHERE name = $1", name).Scan(&id)
	if err == nil {
		return id, nil
	}

	if err := pool.QueryRow(ctx, "INSERT INTO orgs (name) VALUES ($1) RETURNING id", name).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// ensureAdmin creates the HR login plus its employee record. A blank email or
// password skips seeding entirely.
func ensureAdmin(ctx context.Context, pool *pgxpool.Pool, orgID, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE org_id = $1 AND email = $2", orgID, email).Scan(&id)
	if err == nil {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	var userID string
	err = pool.QueryRow(ctx, `
    INSERT INTO users (org_id, email, password_hash, role, status)
    VALUES ($1, $2, $3, $4, 'active')
    RETURNING id
  `, orgID, email, hash, auth.RoleHR).Scan(&userID)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
    INSERT INTO employees (org_id, user_id, first_name, last_name, email, status)
    VALUES ($1, $2, 'HR', 'Admin', $3, 'active')
  `, orgID, userID, email)
	return err
}

func ensureCatalogue(ctx context.Context, pool *pgxpool.Pool, orgID string) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM competencies WHERE org_id = $1", orgID).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		for i, comp := range defaultCompetencies {
			_, err := pool.Exec(ctx, `
        INSERT INTO competencies (org_id, name, description, position)
        VALUES ($1, $2, $3, $4)
      `, orgID, comp.Name, comp.Description, i+1)
			if err != nil {
				return err
			}
		}
	}

	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM questions WHERE org_id = $1", orgID).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		for i, text := range defaultQuestions {
			_, err := pool.Exec(ctx, `
        INSERT INTO questions (org_id, text, position)
        VALUES ($1, $2, $3)
      `, orgID, text, i+1)
			if err != nil {
				return err
			}
		}
	}

	return nil
}
