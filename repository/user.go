package repository

import (
	"context"

	"github.com/fastygo/taskdesk/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// EnsureAdmin inserts the administrator row when it does not exist yet.
	EnsureAdmin(ctx context.Context, id int64) error
	// UpsertEmployee creates or refreshes an employee and re-activates it.
	UpsertEmployee(ctx context.Context, id int64, fullName, department string) (*domain.User, error)
	SetActive(ctx context.Context, id int64, active bool) error
	ListEmployees(ctx context.Context, activeOnly bool) ([]domain.User, error)
}
