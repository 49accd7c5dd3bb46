package bot

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/usecase/notify"
	"github.com/fastygo/taskdesk/usecase/task"
)

const (
	CommandStart   = "start"
	CommandAddUser = "add_user"
	CommandCancel  = "cancel"
)

const (
	textAdminMode      = "Админ-режим."
	textAccessRevoked  = "Твой доступ отключен админом."
	textUnknownUser    = "Ты не добавлен в систему.\nОтправь админу свой Telegram ID:\n%d\nПосле добавления напиши /start."
	textAddUserUsage   = "Формат: /add_user 111|ФИО|Отдел"
	textAdminImmutable = "Нельзя изменить админа."
	textCannotDisable  = "Нельзя отключить админа."
	textNoEmployees    = "Сотрудников нет. Добавь через /add_user."
)

type listView struct {
	view  task.View
	empty string
}

func (r *Router) registerRoutes() {
	r.Command(CommandStart, r.start)
	r.Command(CommandAddUser, r.addUser)
	r.Command(CommandCancel, r.cancel)

	r.Button(notify.TagAdminBackMain, r.adminOnly(r.adminMenu))
	r.Button(notify.TagAdminUsers, r.adminOnly(r.employees))
	r.Button(notify.TagAdminNewTask, r.newTask)
	r.Button(notify.TagAdminPickCancel, r.cancel)
	r.Button(notify.TagAdminActive, r.adminOnly(r.taskList(listView{task.ViewActive, "Активных задач нет."})))
	r.Button(notify.TagAdminReview, r.adminOnly(r.taskList(listView{task.ViewReview, "Нет задач на проверке."})))
	r.Button(notify.TagAdminDone, r.adminOnly(r.taskList(listView{task.ViewDone, "Завершенных нет."})))
	r.Button(notify.TagAdminOverdue, r.adminOnly(r.taskList(listView{task.ViewOverdue, "Просроченных нет."})))

	r.Button(notify.TagEmployeeActive, r.taskList(listView{task.ViewActive, "Нет активных задач."}))
	r.Button(notify.TagEmployeeReview, r.taskList(listView{task.ViewReview, "Нет задач на проверке."}))
	r.Button(notify.TagEmployeeDone, r.taskList(listView{task.ViewDone, "Завершенных задач нет."}))

	r.ButtonPrefix(notify.PrefixAdminPick, r.pickEmployee)
	r.ButtonPrefix(notify.PrefixAdminUser, r.employeeCard)
	r.ButtonPrefix(notify.PrefixAdminDeactivate, r.setActive(false))
	r.ButtonPrefix(notify.PrefixAdminActivate, r.setActive(true))
	r.ButtonPrefix(notify.PrefixTask, r.taskControl)
}

func (r *Router) start(ctx context.Context, ev Event) ([]Reply, error) {
	user, err := r.users.Whoami(ctx, ev.ActorID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return text(textUnknownUser, ev.ActorID), nil
	}
	if err != nil {
		return nil, err
	}
	switch {
	case user.IsAdmin():
		menu := notify.AdminMenu()
		menu.Text = textAdminMode
		return []Reply{{Message: menu}}, nil
	case !user.CanAct():
		return text(textAccessRevoked), nil
	}
	return []Reply{{Message: notify.EmployeeMenu(user)}}, nil
}

func (r *Router) addUser(ctx context.Context, ev Event) ([]Reply, error) {
	user, _, err := r.users.AddEmployee(ctx, ev.ActorID, ev.Text)
	switch {
	case err == nil:
		return text("Ок. Добавлен/обновлён: %s", user.DisplayName()), nil
	case errors.Is(err, domain.ErrUnknownDepartment):
		return text("Отдел: %s", strings.Join(r.users.Departments(), " / ")), nil
	case errors.Is(err, domain.ErrRoleImmutable):
		return text(textAdminImmutable), nil
	case domain.IsDomainError(err, domain.ErrCodeInvalid):
		return text(textAddUserUsage), nil
	}
	return nil, err
}

func (r *Router) cancel(ctx context.Context, ev Event) ([]Reply, error) {
	return fromOutcome(r.dialogues.Cancel(ctx, ev.ActorID))
}

func (r *Router) adminMenu(context.Context, Event) ([]Reply, error) {
	return []Reply{{Message: notify.AdminMenu()}}, nil
}

func (r *Router) employees(ctx context.Context, ev Event) ([]Reply, error) {
	users, err := r.users.ListEmployees(ctx, ev.ActorID, false)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return text(textNoEmployees), nil
	}
	return []Reply{{Message: notify.EmployeeList(users)}}, nil
}

func (r *Router) employeeCard(ctx context.Context, ev Event) ([]Reply, error) {
	targetID, ok := notify.ParseIDTag(ev.Tag, notify.PrefixAdminUser)
	if !ok {
		return nil, nil
	}
	user, stats, err := r.users.Card(ctx, ev.ActorID, targetID)
	if err != nil {
		return nil, err
	}
	return []Reply{{Message: notify.EmployeeCard(user, stats)}}, nil
}

func (r *Router) setActive(active bool) HandlerFunc {
	prefix := notify.PrefixAdminDeactivate
	if active {
		prefix = notify.PrefixAdminActivate
	}
	return func(ctx context.Context, ev Event) ([]Reply, error) {
		targetID, ok := notify.ParseIDTag(ev.Tag, prefix)
		if !ok {
			return nil, nil
		}
		user, _, err := r.users.SetActive(ctx, ev.ActorID, targetID, active)
		if errors.Is(err, domain.ErrRoleImmutable) {
			return text(textCannotDisable), nil
		}
		if err != nil {
			return nil, err
		}
		if active {
			return text("✅ УСПЕШНО: сотрудник активирован.\n%s — %s", user.FullName, user.Department), nil
		}
		return text("✅ УСПЕШНО: сотрудник отключен (удален из доступа).\n%s — %s", user.FullName, user.Department), nil
	}
}

func (r *Router) newTask(ctx context.Context, ev Event) ([]Reply, error) {
	return fromOutcome(r.dialogues.BeginTaskCreation(ctx, ev.ActorID))
}

func (r *Router) pickEmployee(ctx context.Context, ev Event) ([]Reply, error) {
	targetID, ok := notify.ParseIDTag(ev.Tag, notify.PrefixAdminPick)
	if !ok {
		return nil, nil
	}
	return fromOutcome(r.dialogues.PickEmployee(ctx, ev.ActorID, targetID))
}

func (r *Router) taskList(lv listView) HandlerFunc {
	return func(ctx context.Context, ev Event) ([]Reply, error) {
		actor, err := r.tasks.Actor(ctx, ev.ActorID)
		if err != nil {
			return nil, err
		}
		tasks, err := r.tasks.List(ctx, ev.ActorID, lv.view)
		if err != nil {
			return nil, err
		}
		if len(tasks) == 0 {
			return text("%s", lv.empty), nil
		}
		replies := make([]Reply, 0, len(tasks))
		for i := range tasks {
			replies = append(replies, Reply{Message: notify.TaskMessage(&tasks[i], actor.Role)})
		}
		return replies, nil
	}
}

// taskControl handles "t:<id>:<op>". Lifecycle controls re-render the card in
// place; dialogue controls open the matching conversation.
func (r *Router) taskControl(ctx context.Context, ev Event) ([]Reply, error) {
	taskID, op, ok := notify.ParseTaskTag(ev.Tag)
	if !ok {
		return nil, nil
	}
	switch op {
	case notify.OpComment:
		return fromOutcome(r.dialogues.BeginComment(ctx, ev.ActorID, taskID))
	case notify.OpFile:
		return fromOutcome(r.dialogues.BeginFile(ctx, ev.ActorID, taskID))
	case notify.OpChangeDeadline:
		return fromOutcome(r.dialogues.BeginDeadlineChange(ctx, ev.ActorID, taskID))
	}

	action, ok := op.Action()
	if !ok {
		r.logger.Debug("unknown task control", zap.String("tag", ev.Tag))
		return nil, nil
	}
	res, err := r.tasks.Transition(ctx, taskID, ev.ActorID, action)
	if err != nil {
		return nil, err
	}
	actor, err := r.tasks.Actor(ctx, ev.ActorID)
	if err != nil {
		return nil, err
	}
	return []Reply{{Message: notify.TaskMessage(res.Task, actor.Role), Replace: true}}, nil
}

func (r *Router) onText(ctx context.Context, ev Event) ([]Reply, error) {
	out, err := r.dialogues.HandleText(ctx, ev.ActorID, ev.Text)
	if err != nil {
		return nil, err
	}
	if !out.Handled {
		return nil, nil
	}
	return fromOutcome(out, nil)
}

// onUnknownCommand passes unregistered commands to an open dialogue as plain text.
func (r *Router) onUnknownCommand(ctx context.Context, ev Event) ([]Reply, error) {
	raw := "/" + ev.Command
	if ev.Text != "" {
		raw += " " + ev.Text
	}
	ev.Text = raw
	return r.onText(ctx, ev)
}

func (r *Router) onFile(ctx context.Context, ev Event) ([]Reply, error) {
	out, err := r.dialogues.HandleFile(ctx, ev.ActorID, ev.File)
	if err != nil {
		return nil, err
	}
	if !out.Handled {
		return nil, nil
	}
	return fromOutcome(out, nil)
}

func (r *Router) adminOnly(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, ev Event) ([]Reply, error) {
		actor, err := r.tasks.Actor(ctx, ev.ActorID)
		if err != nil {
			return nil, err
		}
		if !actor.IsAdmin() {
			return nil, domain.ErrAdminOnly
		}
		return next(ctx, ev)
	}
}
