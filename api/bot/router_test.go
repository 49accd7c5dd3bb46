package bot_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskdesk/api/bot"
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

const (
	adminID = int64(1)
	aliceID = int64(10)
	bobID   = int64(20)
)

type edit struct {
	chatID    int64
	messageID int64
	msg       notify.Message
}

type fakeResponder struct {
	mu       sync.Mutex
	sent     []notifytest.Sent
	edits    []edit
	answered []string
	editErr  error
}

func (f *fakeResponder) Send(_ context.Context, chatID int64, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notifytest.Sent{ChatID: chatID, Message: msg})
	return nil
}

func (f *fakeResponder) Edit(_ context.Context, chatID, messageID int64, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, edit{chatID: chatID, messageID: messageID, msg: msg})
	return nil
}

func (f *fakeResponder) AnswerCallback(_ context.Context, callbackID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, callbackID)
	return nil
}

type fixture struct {
	store  *repository.Store
	pushes *notifytest.Recorder
	tasks  *task.UseCase
	router *bot.Router
	out    *fakeResponder
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.MemoryPath, nil)
	require.NoError(t, err)
	store := sqliterepo.NewStore(db)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Users.EnsureAdmin(ctx, adminID))
	_, err = store.Users.UpsertEmployee(ctx, aliceID, "Алиса", "Снабжение")
	require.NoError(t, err)

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.Local)
	f := &fixture{
		store:  store,
		pushes: notifytest.NewRecorder(),
		out:    &fakeResponder{},
	}
	dispatcher := notify.NewDispatcher(f.pushes, adminID, nil)
	f.tasks = task.New(store, dispatcher, nil, task.WithClock(func() time.Time { return now }))
	engine := conversation.New(memory.NewConversationRepository(), store.Users, f.tasks, nil)
	users := user.New(store, dispatcher, engine, []string{"Снабжение", "Финансы", "Бухгалтерия"}, nil)
	f.router = bot.New(f.tasks, users, engine, f.out, nil)
	return f
}

func (f *fixture) command(t *testing.T, actorID int64, name, args string) []bot.Reply {
	t.Helper()
	replies, err := f.router.Handle(context.Background(), bot.Event{Kind: bot.KindCommand, ActorID: actorID, Command: name, Text: args})
	require.NoError(t, err)
	return replies
}

func (f *fixture) press(t *testing.T, actorID int64, tag string) []bot.Reply {
	t.Helper()
	replies, err := f.router.Handle(context.Background(), bot.Event{Kind: bot.KindButton, ActorID: actorID, Tag: tag})
	require.NoError(t, err)
	return replies
}

func (f *fixture) text(t *testing.T, actorID int64, text string) []bot.Reply {
	t.Helper()
	replies, err := f.router.Handle(context.Background(), bot.Event{Kind: bot.KindText, ActorID: actorID, Text: text})
	require.NoError(t, err)
	return replies
}

func lastText(replies []bot.Reply) string {
	if len(replies) == 0 {
		return ""
	}
	return replies[len(replies)-1].Text
}

func tags(msg notify.Message) []string {
	var out []string
	for _, row := range msg.Controls {
		for _, c := range row {
			out = append(out, c.Tag)
		}
	}
	return out
}

func TestRouter_Start(t *testing.T) {
	f := setup(t)

	replies := f.command(t, adminID, "start", "")
	require.Len(t, replies, 1)
	assert.Equal(t, "Админ-режим.", replies[0].Text)
	assert.Contains(t, tags(replies[0].Message), notify.TagAdminNewTask)

	replies = f.command(t, aliceID, "START", "")
	require.Len(t, replies, 1)
	assert.Equal(t, "Режим сотрудника: Алиса (Снабжение)", replies[0].Text)
	assert.Contains(t, tags(replies[0].Message), notify.TagEmployeeActive)

	replies = f.command(t, 777, "start", "")
	assert.Contains(t, lastText(replies), "777")

	require.NoError(t, f.store.Users.SetActive(context.Background(), aliceID, false))
	assert.Equal(t, "Твой доступ отключен админом.", lastText(f.command(t, aliceID, "start", "")))
}

func TestRouter_TaskLifecycleThroughButtons(t *testing.T) {
	f := setup(t)

	assert.Equal(t, "Выбери сотрудника:", lastText(f.press(t, adminID, notify.TagAdminNewTask)))
	assert.Contains(t, lastText(f.press(t, adminID, notify.PrefixAdminPick+"10")), "Название задачи:")
	assert.Equal(t, "Описание задачи:", lastText(f.text(t, adminID, "Закупка")))
	f.text(t, adminID, "Бумага A4")
	assert.Equal(t, "✅ Создана задача #1.", lastText(f.text(t, adminID, "days 3")))

	pushed := f.pushes.To(aliceID)
	require.Len(t, pushed, 2)
	assert.Contains(t, pushed[0].Text, "НОВАЯ ЗАДАЧА #1")
	assert.Contains(t, tags(pushed[1]), notify.TaskTag(1, notify.OpStart))

	replies := f.press(t, aliceID, notify.TaskTag(1, notify.OpStart))
	require.Len(t, replies, 1)
	assert.True(t, replies[0].Replace)
	assert.Contains(t, replies[0].Text, "Статус: В процессе")
	assert.Contains(t, tags(replies[0].Message), notify.TaskTag(1, notify.OpSubmit))

	f.press(t, aliceID, notify.TaskTag(1, notify.OpSubmit))
	assert.Contains(t, lastText(f.press(t, adminID, notify.TagAdminReview)), "Статус: На проверке")

	replies = f.press(t, adminID, notify.TaskTag(1, notify.OpAccept))
	assert.Contains(t, lastText(replies), "Статус: Готово")
	assert.Empty(t, replies[0].Controls)

	assert.Equal(t, "Активных задач нет.", lastText(f.press(t, adminID, notify.TagAdminActive)))
	assert.Equal(t, "Нет активных задач.", lastText(f.press(t, aliceID, notify.TagEmployeeActive)))
	done := f.press(t, aliceID, notify.TagEmployeeDone)
	assert.Contains(t, lastText(done), "Задача #1")
	assert.Contains(t, tags(done[len(done)-1].Message), notify.TaskTag(1, notify.OpComment), "owner keeps comment on a finished task")
	assert.Equal(t, notify.TextOwnerOnly, lastText(f.press(t, adminID, notify.TaskTag(1, notify.OpComment))))
}

func TestRouter_InvalidTransitionRerendersCard(t *testing.T) {
	f := setup(t)
	res, err := f.tasks.Create(context.Background(), adminID, domain.NewTask{
		OwnerID: aliceID, Title: "T", Description: "D", Deadline: f.tasks.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	replies := f.press(t, aliceID, notify.TaskTag(res.Task.ID, notify.OpSubmit))
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "Статус: Новая")
}

func TestRouter_Denials(t *testing.T) {
	f := setup(t)
	_, err := f.store.Users.UpsertEmployee(context.Background(), bobID, "Боб", "Финансы")
	require.NoError(t, err)
	res, err := f.tasks.Create(context.Background(), adminID, domain.NewTask{
		OwnerID: aliceID, Title: "T", Description: "D", Deadline: f.tasks.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, notify.TextAdminOnly, lastText(f.press(t, aliceID, notify.TagAdminActive)))
	assert.Equal(t, notify.TextAccessDisabled, lastText(f.press(t, 777, notify.TagEmployeeActive)))
	assert.Equal(t, notify.TextNotYourTask, lastText(f.press(t, bobID, notify.TaskTag(res.Task.ID, notify.OpStart))))
	assert.Equal(t, notify.TextTaskNotFound, lastText(f.press(t, adminID, notify.TaskTag(99, notify.OpCancel))))
	assert.Equal(t, "Нельзя отключить админа.", lastText(f.press(t, adminID, notify.PrefixAdminDeactivate+"1")))
}

func TestRouter_AddUser(t *testing.T) {
	f := setup(t)

	assert.Equal(t, "Формат: /add_user 111|ФИО|Отдел", lastText(f.command(t, adminID, "add_user", "oops")))
	assert.Equal(t, "Отдел: Снабжение / Финансы / Бухгалтерия", lastText(f.command(t, adminID, "add_user", "20|Боб|Склад")))
	assert.Equal(t, "Ок. Добавлен/обновлён: Боб (Финансы)", lastText(f.command(t, adminID, "add_user", "20|Боб|Финансы")))
	assert.Equal(t, notify.TextAdminOnly, lastText(f.command(t, aliceID, "add_user", "30|Ева|Финансы")))

	bob, err := f.store.Users.GetByID(context.Background(), bobID)
	require.NoError(t, err)
	assert.True(t, bob.IsActive)
	assert.Len(t, f.pushes.To(bobID), 1)
}

func TestRouter_EmployeeManagement(t *testing.T) {
	f := setup(t)

	list := f.press(t, adminID, notify.TagAdminUsers)
	require.Len(t, list, 1)
	assert.Contains(t, tags(list[0].Message), notify.PrefixAdminUser+"10")

	card := f.press(t, adminID, notify.PrefixAdminUser+"10")
	assert.Contains(t, lastText(card), "Статус: АКТИВЕН")

	replies := f.press(t, adminID, notify.PrefixAdminDeactivate+"10")
	assert.True(t, strings.HasPrefix(lastText(replies), "✅ УСПЕШНО: сотрудник отключен"))
	assert.Equal(t, notify.TextAccessDisabled, lastText(f.press(t, aliceID, notify.TagEmployeeActive)))

	replies = f.press(t, adminID, notify.PrefixAdminActivate+"10")
	assert.True(t, strings.HasPrefix(lastText(replies), "✅ УСПЕШНО: сотрудник активирован"))
}

func TestRouter_TextOutsideDialogueIsIgnored(t *testing.T) {
	f := setup(t)
	assert.Empty(t, f.text(t, aliceID, "привет"))
	assert.Empty(t, f.press(t, aliceID, "zz:unknown"))

	replies, err := f.router.Handle(context.Background(), bot.Event{Kind: bot.KindCommand, ActorID: aliceID, Command: "help"})
	require.NoError(t, err)
	assert.Empty(t, replies)
}

func TestRouter_CancelCommandDropsDialogue(t *testing.T) {
	f := setup(t)
	f.press(t, adminID, notify.TagAdminNewTask)
	f.press(t, adminID, notify.PrefixAdminPick+"10")

	assert.Equal(t, notify.TextCanceled, lastText(f.command(t, adminID, "cancel", "")))
	assert.Empty(t, f.text(t, adminID, "Закупка"))
}

func TestRouter_DispatchDeliversReplies(t *testing.T) {
	f := setup(t)
	res, err := f.tasks.Create(context.Background(), adminID, domain.NewTask{
		OwnerID: aliceID, Title: "T", Description: "D", Deadline: f.tasks.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	ev := bot.Event{
		Kind:       bot.KindButton,
		ActorID:    aliceID,
		Tag:        notify.TaskTag(res.Task.ID, notify.OpStart),
		CallbackID: "cb-1",
		MessageID:  55,
	}
	require.NoError(t, f.router.Dispatch(context.Background(), ev))
	assert.Equal(t, []string{"cb-1"}, f.out.answered)
	require.Len(t, f.out.edits, 1)
	assert.Equal(t, int64(55), f.out.edits[0].messageID)
	assert.Equal(t, aliceID, f.out.edits[0].chatID)
	assert.Empty(t, f.out.sent)

	f.out.editErr = errors.New("message to edit not found")
	ev.Tag = notify.TaskTag(res.Task.ID, notify.OpSubmit)
	require.NoError(t, f.router.Dispatch(context.Background(), ev))
	require.Len(t, f.out.sent, 1)
	assert.Contains(t, f.out.sent[0].Message.Text, "Статус: На проверке")
}

func TestRouter_CustomRoutes(t *testing.T) {
	f := setup(t)
	f.router.Command("ping", func(context.Context, bot.Event) ([]bot.Reply, error) {
		return []bot.Reply{{Message: notify.Text("pong")}}, nil
	})
	f.router.ButtonPrefix("x:", func(context.Context, bot.Event) ([]bot.Reply, error) {
		return nil, errors.New("boom")
	})

	assert.Equal(t, "pong", lastText(f.command(t, aliceID, "/Ping", "")))

	replies, err := f.router.Handle(context.Background(), bot.Event{Kind: bot.KindButton, ActorID: aliceID, Tag: "x:1"})
	require.Error(t, err)
	assert.Equal(t, notify.TextInternalError, lastText(replies))
}
