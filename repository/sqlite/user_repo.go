package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/repository"
)

const userColumns = `telegram_id, full_name, department, role, is_active`

type userRepository struct {
	db *sql.DB
}

// NewUserRepository instantiates a SQLite-backed user repository.
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = ?`, id)
	return scanUser(row)
}

func (r *userRepository) EnsureAdmin(ctx context.Context, id int64) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO users (telegram_id, full_name, department, role, is_active)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT (telegram_id) DO NOTHING
	`, id, domain.AdminFullName, domain.AdminDepartment, string(domain.RoleAdmin))
	return err
}

func (r *userRepository) UpsertEmployee(ctx context.Context, id int64, fullName, department string) (*domain.User, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO users (telegram_id, full_name, department, role, is_active)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT (telegram_id) DO UPDATE
		SET full_name = excluded.full_name,
			department = excluded.department,
			is_active = 1
		WHERE users.role = excluded.role
		RETURNING `+userColumns,
		id, fullName, department, string(domain.RoleEmployee))
	user, err := scanUser(row)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrRoleImmutable
	}
	return user, err
}

func (r *userRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE users SET is_active = ? WHERE telegram_id = ? AND role = ?`,
		active, id, string(domain.RoleEmployee))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) ListEmployees(ctx context.Context, activeOnly bool) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY is_active DESC, department, full_name`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, string(domain.RoleEmployee))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func scanUser(row scanner) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	if err := row.Scan(&user.ID, &user.FullName, &user.Department, &role, &user.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	user.Role = domain.Role(role)
	return &user, nil
}
