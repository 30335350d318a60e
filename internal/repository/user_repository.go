package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"docflow/internal/models"
	"docflow/internal/service"
)

// UserRepository is the Postgres backed user directory
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userSelect = `
	SELECT u.id, u.name, u.email, r.name, u.department_id, COALESCE(dep.name, ''), u.created_at
	FROM users u
	JOIN roles r ON r.id = u.role_id
	LEFT JOIN departments dep ON dep.id = u.department_id
`

// Create inserts a user, creating its department on first use
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	var departmentID *int64
	if user.Department != "" {
		var id int64
		err := r.db.QueryRowContext(ctx, `
			INSERT INTO departments (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, user.Department).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to upsert department: %w", err)
		}
		departmentID = &id
	}

	query := `
		INSERT INTO users (email, name, role_id, department_id)
		SELECT $1, $2, r.id, $4 FROM roles r WHERE r.name = $3
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, user.Email, user.Name, string(user.Role), departmentID).
		Scan(&user.ID, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to create user: unknown role %q", user.Role)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.DepartmentID = departmentID
	return nil
}

// GetUser retrieves a user by ID; nil, nil when missing
func (r *UserRepository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE u.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// FindUsers returns the users matching filter ordered by id
func (r *UserRepository) FindUsers(ctx context.Context, filter service.UserFilter) ([]models.User, error) {
	query := userSelect + ` WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if len(filter.IDs) > 0 {
		query += fmt.Sprintf(` AND u.id = ANY($%d)`, argPos)
		args = append(args, pq.Array(filter.IDs))
		argPos++
	}

	// Roles and departments are alternatives
	var criteria []string
	if len(filter.Roles) > 0 {
		roles := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			roles[i] = string(role)
		}
		criteria = append(criteria, fmt.Sprintf(`r.name = ANY($%d)`, argPos))
		args = append(args, pq.Array(roles))
		argPos++
	}
	if len(filter.Departments) > 0 {
		criteria = append(criteria, fmt.Sprintf(`dep.name = ANY($%d)`, argPos))
		args = append(args, pq.Array(filter.Departments))
		argPos++
	}
	if len(criteria) > 0 {
		query += ` AND (` + strings.Join(criteria, ` OR `) + `)`
	}

	query += ` ORDER BY u.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}

	return users, rows.Err()
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.DepartmentID,
		&user.Department,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
