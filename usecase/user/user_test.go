package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/internal/infrastructure/sqlite"
	"github.com/fastygo/taskdesk/repository"
	"github.com/fastygo/taskdesk/repository/memory"
	sqliterepo "github.com/fastygo/taskdesk/repository/sqlite"
	"github.com/fastygo/taskdesk/usecase/conversation"
	"github.com/fastygo/taskdesk/usecase/notify"
	"github.com/fastygo/taskdesk/usecase/notify/notifytest"
	"github.com/fastygo/taskdesk/usecase/task"
	"github.com/fastygo/taskdesk/usecase/user"
)

const adminID = int64(1)

var departments = []string{"Снабжение", "Финансы", "Бухгалтерия"}

type fixture struct {
	store  *repository.Store
	rec    *notifytest.Recorder
	tasks  *task.UseCase
	engine *conversation.Engine
	uc     *user.UseCase
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.MemoryPath, nil)
	require.NoError(t, err)
	store := sqliterepo.NewStore(db)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Users.EnsureAdmin(ctx, adminID))

	f := &fixture{store: store, rec: notifytest.NewRecorder()}
	dispatcher := notify.NewDispatcher(f.rec, adminID, nil)
	f.tasks = task.New(store, dispatcher, nil)
	f.engine = conversation.New(memory.NewConversationRepository(), store.Users, f.tasks, nil)
	f.uc = user.New(store, dispatcher, f.engine, departments, nil)
	return f
}

func (f *fixture) newTask(t *testing.T, ownerID int64) *domain.Task {
	t.Helper()
	res, err := f.tasks.Create(context.Background(), adminID, domain.NewTask{
		OwnerID: ownerID, Title: "T", Description: "D", Deadline: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return res.Task
}

func TestAddEmployee(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u, res, err := f.uc.AddEmployee(ctx, adminID, " 55 | Иван Петров | Финансы ")
	require.NoError(t, err)
	assert.Equal(t, int64(55), u.ID)
	assert.Equal(t, "Иван Петров", u.FullName)
	assert.Equal(t, "Финансы", u.Department)
	assert.True(t, u.IsActive)
	assert.True(t, res.Delivered, "employee greeting delivered")

	msgs := f.rec.To(adminID)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "id=55")

	cases := map[string]error{
		"55|Иван":           user.ErrBadFormat,
		"abc|Иван|Финансы":  user.ErrBadFormat,
		"56|Иван|Маркетинг": domain.ErrUnknownDepartment,
		"1|Админ|Финансы":   domain.ErrRoleImmutable,
	}
	for payload, want := range cases {
		_, _, err := f.uc.AddEmployee(ctx, adminID, payload)
		assert.ErrorIs(t, err, want, "AddEmployee(%q)", payload)
	}

	_, _, err = f.uc.AddEmployee(ctx, adminID, "57||Финансы")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid), "empty name: %v", err)

	_, _, err = f.uc.AddEmployee(ctx, 55, "58|Пётр|Финансы")
	assert.ErrorIs(t, err, domain.ErrAdminOnly)
}

func TestSetActive_DropsConversationAndNotifies(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, err := f.uc.AddEmployee(ctx, adminID, "55|Иван|Финансы")
	require.NoError(t, err)
	created := f.newTask(t, 55)
	_, err = f.engine.BeginComment(ctx, 55, created.ID)
	require.NoError(t, err)
	f.rec.Reset()

	u, res, err := f.uc.SetActive(ctx, adminID, 55, false)
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	assert.True(t, res.Delivered)

	state, _ := f.engine.Active(ctx, 55)
	assert.Nil(t, state, "deactivation drops the employee's dialogue")

	employee := f.rec.To(55)
	require.Len(t, employee, 1)
	assert.Equal(t, "Твой доступ отключен админом.", employee[0].Text)

	admin := f.rec.To(adminID)
	require.Len(t, admin, 1)
	assert.Contains(t, admin[0].Text, "ОТКЛЮЧЕН")

	_, _, err = f.uc.SetActive(ctx, adminID, adminID, false)
	assert.ErrorIs(t, err, domain.ErrRoleImmutable)
	_, _, err = f.uc.SetActive(ctx, adminID, 999, true)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	u, _, err = f.uc.SetActive(ctx, adminID, 55, true)
	require.NoError(t, err)
	assert.True(t, u.IsActive)
}

func TestCard_CountsTasks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, err := f.uc.AddEmployee(ctx, adminID, "55|Иван|Финансы")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		f.newTask(t, 55)
	}
	_, err = f.tasks.Transition(ctx, 1, adminID, domain.ActionCancel)
	require.NoError(t, err)
	_, err = f.tasks.Transition(ctx, 2, 55, domain.ActionStart)
	require.NoError(t, err)
	_, err = f.tasks.Transition(ctx, 2, 55, domain.ActionSubmit)
	require.NoError(t, err)

	u, stats, err := f.uc.Card(ctx, adminID, 55)
	require.NoError(t, err)
	assert.Equal(t, int64(55), u.ID)
	assert.Equal(t, domain.EmployeeStats{Total: 3, Active: 2, OnReview: 1, Done: 0}, stats)

	_, _, err = f.uc.Card(ctx, adminID, adminID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestListEmployees(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, err := f.uc.AddEmployee(ctx, adminID, "55|Иван|Финансы")
	require.NoError(t, err)
	_, _, err = f.uc.AddEmployee(ctx, adminID, "56|Мария|Снабжение")
	require.NoError(t, err)
	_, _, err = f.uc.SetActive(ctx, adminID, 56, false)
	require.NoError(t, err)

	all, err := f.uc.ListEmployees(ctx, adminID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := f.uc.ListEmployees(ctx, adminID, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, int64(55), active[0].ID)

	_, err = f.uc.ListEmployees(ctx, 55, false)
	assert.ErrorIs(t, err, domain.ErrAdminOnly)
	assert.Equal(t, departments, f.uc.Departments())
}
