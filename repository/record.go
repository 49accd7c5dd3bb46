package repository

import (
	"context"

	"github.com/fastygo/taskdesk/domain"
)

type CommentRepository interface {
	Insert(ctx context.Context, comment *domain.Comment) error
	ListByTask(ctx context.Context, taskID int64) ([]domain.Comment, error)
}

type FileRepository interface {
	Insert(ctx context.Context, file *domain.Attachment) error
	ListByTask(ctx context.Context, taskID int64) ([]domain.Attachment, error)
}

type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	ListByTask(ctx context.Context, taskID int64) ([]domain.AuditEntry, error)
}

// Transactor runs fn inside one store transaction. Repositories called with the
// context passed to fn take part in that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles the record store repositories of one backend.
type Store struct {
	Users    UserRepository
	Tasks    TaskRepository
	Comments CommentRepository
	Files    FileRepository
	Audit    AuditRepository
	Tx       Transactor

	// Ping reports backend health; Close releases it.
	Ping  func(ctx context.Context) error
	Close func() error
}
