package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/repository"
)

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates a Postgres-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `
		SELECT telegram_id, full_name, department, role, is_active
		FROM users
		WHERE telegram_id = $1
	`
	return scanUser(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *userRepository) EnsureAdmin(ctx context.Context, id int64) error {
	const query = `
	INSERT INTO users (telegram_id, full_name, department, role, is_active)
	VALUES ($1, $2, $3, $4, TRUE)
	ON CONFLICT (telegram_id) DO NOTHING
	`
	_, err := conn(ctx, r.pool).Exec(ctx, query, id, domain.AdminFullName, domain.AdminDepartment, string(domain.RoleAdmin))
	return err
}

func (r *userRepository) UpsertEmployee(ctx context.Context, id int64, fullName, department string) (*domain.User, error) {
	const query = `
	INSERT INTO users (telegram_id, full_name, department, role, is_active)
	VALUES ($1, $2, $3, $4, TRUE)
	ON CONFLICT (telegram_id) DO UPDATE
	SET full_name = EXCLUDED.full_name,
		department = EXCLUDED.department,
		is_active = TRUE
	WHERE users.role = EXCLUDED.role
	RETURNING telegram_id, full_name, department, role, is_active
	`
	user, err := scanUser(conn(ctx, r.pool).QueryRow(ctx, query, id, fullName, department, string(domain.RoleEmployee)))
	if errors.Is(err, domain.ErrUserNotFound) {
		// the conflicting row is the admin: DO UPDATE was skipped
		return nil, domain.ErrRoleImmutable
	}
	return user, err
}

func (r *userRepository) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE users SET is_active = $2 WHERE telegram_id = $1 AND role = $3`
	tag, err := conn(ctx, r.pool).Exec(ctx, query, id, active, string(domain.RoleEmployee))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) ListEmployees(ctx context.Context, activeOnly bool) ([]domain.User, error) {
	const query = `
	SELECT telegram_id, full_name, department, role, is_active
	FROM users
	WHERE role = $1 AND (NOT $2 OR is_active)
	ORDER BY is_active DESC, department, full_name
	`
	rows, err := conn(ctx, r.pool).Query(ctx, query, string(domain.RoleEmployee), activeOnly)
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

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	if err := row.Scan(&user.ID, &user.FullName, &user.Department, &role, &user.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	user.Role = domain.Role(role)
	return &user, nil
}
