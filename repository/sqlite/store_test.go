package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/internal/infrastructure/sqlite"
	"github.com/fastygo/taskdesk/repository"
)

const (
	adminID = int64(100)
	aliceID = int64(201)
	bobID   = int64(202)
)

func setupStore(t *testing.T) *repository.Store {
	t.Helper()

	db, err := sqlite.Open(context.Background(), sqlite.MemoryPath, nil)
	require.NoError(t, err)
	store := NewStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func insertTask(t *testing.T, store *repository.Store, owner int64, status domain.Status, deadline time.Time) *domain.Task {
	t.Helper()

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	task := &domain.Task{
		Title:       "Отчет",
		Description: "Собрать отчет",
		Status:      status,
		Deadline:    deadline,
		OwnerID:     owner,
		Department:  "IT",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := store.Tasks.Insert(context.Background(), task)
	require.NoError(t, err)
	return task
}

func TestUserRepository_AdminAndEmployees(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	require.NoError(t, store.Users.EnsureAdmin(ctx, adminID))
	require.NoError(t, store.Users.EnsureAdmin(ctx, adminID), "EnsureAdmin is idempotent")

	admin, err := store.Users.GetByID(ctx, adminID)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.Equal(t, domain.AdminFullName, admin.FullName)

	_, err = store.Users.UpsertEmployee(ctx, adminID, "Самозванец", "IT")
	assert.ErrorIs(t, err, domain.ErrRoleImmutable)

	alice, err := store.Users.UpsertEmployee(ctx, aliceID, "Алиса", "IT")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEmployee, alice.Role)
	assert.True(t, alice.IsActive)

	require.NoError(t, store.Users.SetActive(ctx, aliceID, false))
	active, err := store.Users.ListEmployees(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Re-adding re-activates and refreshes the profile.
	alice, err = store.Users.UpsertEmployee(ctx, aliceID, "Алиса Петрова", "Продажи")
	require.NoError(t, err)
	assert.True(t, alice.IsActive)
	assert.Equal(t, "Продажи", alice.Department)
	assert.Equal(t, "Алиса Петрова", alice.FullName)

	assert.ErrorIs(t, store.Users.SetActive(ctx, 999, false), domain.ErrUserNotFound)
	_, err = store.Users.GetByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestTaskRepository_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	deadline := time.Date(2026, 3, 5, 23, 59, 0, 0, time.UTC)
	task := insertTask(t, store, aliceID, domain.StatusNew, deadline)

	at := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Tasks.UpdateStatus(ctx, task.ID, domain.StatusNew, domain.StatusInProgress, at))
	assert.ErrorIs(t, store.Tasks.UpdateStatus(ctx, task.ID, domain.StatusNew, domain.StatusInProgress, at), domain.ErrStaleTask)
	assert.ErrorIs(t, store.Tasks.UpdateStatus(ctx, 4242, domain.StatusNew, domain.StatusInProgress, at), domain.ErrTaskNotFound)

	got, err := store.Tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status)
	assert.True(t, got.UpdatedAt.Equal(at), "updated_at %v", got.UpdatedAt)
	assert.True(t, got.Deadline.Equal(deadline), "deadline round trip %v", got.Deadline)

	newDeadline := deadline.AddDate(0, 0, 3)
	require.NoError(t, store.Tasks.UpdateDeadline(ctx, task.ID, newDeadline, domain.ActiveStatuses, at))
	require.NoError(t, store.Tasks.UpdateStatus(ctx, task.ID, domain.StatusInProgress, domain.StatusCanceled, at))
	assert.ErrorIs(t, store.Tasks.UpdateDeadline(ctx, task.ID, deadline, domain.ActiveStatuses, at), domain.ErrStaleTask)
}

func TestTaskRepository_ListAndCount(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	base := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)

	late := insertTask(t, store, aliceID, domain.StatusInProgress, base.AddDate(0, 0, -5))
	soon := insertTask(t, store, aliceID, domain.StatusNew, base.AddDate(0, 0, 1))
	insertTask(t, store, bobID, domain.StatusOnReview, base.AddDate(0, 0, -1))
	insertTask(t, store, bobID, domain.StatusDone, base.AddDate(0, 0, -9))

	own, err := store.Tasks.List(ctx, repository.TaskFilter{
		Statuses: domain.ActiveStatuses,
		OwnerID:  aliceID,
	})
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, late.ID, own[0].ID, "ordered by deadline")
	assert.Equal(t, soon.ID, own[1].ID)

	overdue, err := store.Tasks.Count(ctx, repository.TaskFilter{
		Statuses:       domain.ActiveStatuses,
		DeadlineBefore: &base,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, overdue)

	limited, err := store.Tasks.List(ctx, repository.TaskFilter{Limit: 1, OrderBy: repository.OrderByUpdatedDesc})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	task := insertTask(t, store, aliceID, domain.StatusNew, time.Date(2026, 3, 5, 23, 59, 0, 0, time.UTC))
	at := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	boom := errors.New("boom")

	err := store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := store.Tasks.UpdateStatus(ctx, task.ID, domain.StatusNew, domain.StatusInProgress, at); err != nil {
			return err
		}
		if err := store.Audit.Append(ctx, domain.TaskAudit(task.ID, aliceID, domain.AuditStatus, "x", at)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, got.Status, "status is rolled back")

	entries, err := store.Audit.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, entries, "audit is rolled back")
}

func TestRecordRepositories(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	task := insertTask(t, store, aliceID, domain.StatusInProgress, time.Date(2026, 3, 5, 23, 59, 0, 0, time.UTC))
	at := time.Date(2026, 3, 3, 12, 30, 0, 0, time.UTC)

	comment := &domain.Comment{TaskID: task.ID, AuthorID: aliceID, Text: "готово наполовину", CreatedAt: at}
	require.NoError(t, store.Comments.Insert(ctx, comment))
	assert.NotZero(t, comment.ID)

	file := &domain.Attachment{TaskID: task.ID, UploaderID: aliceID, FileRef: "AgAD-file", CreatedAt: at}
	require.NoError(t, store.Files.Insert(ctx, file))
	assert.ErrorIs(t, store.Files.Insert(ctx, &domain.Attachment{TaskID: task.ID}), domain.ErrInvalidPayload)

	userEntry := &domain.AuditEntry{ActorID: adminID, Action: domain.AuditAddUser, Details: "201", CreatedAt: at}
	require.NoError(t, store.Audit.Append(ctx, userEntry))
	require.NoError(t, store.Audit.Append(ctx, domain.TaskAudit(task.ID, aliceID, domain.AuditComment, "", at)))

	comments, err := store.Comments.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, comment.Text, comments[0].Text)
	assert.True(t, comments[0].CreatedAt.Equal(at))

	files, err := store.Files.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Empty(t, files[0].FileName)
	assert.Equal(t, "AgAD-file", files[0].FileRef)

	entries, err := store.Audit.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].TaskID)
	assert.Equal(t, task.ID, *entries[0].TaskID)
	assert.Equal(t, domain.AuditComment, entries[0].Action)
}
