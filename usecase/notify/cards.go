package notify

import (
	"fmt"
	"strconv"

	"github.com/fastygo/taskdesk/domain"
)

// TaskCard renders the full task text.
func TaskCard(task *domain.Task) string {
	return fmt.Sprintf("Задача #%d\nОтдел: %s\nСтатус: %s\nСрок: %s\nНазвание: %s\nОписание: %s",
		task.ID,
		task.Department,
		task.Status.Label(),
		domain.FormatDeadline(task.Deadline),
		task.Title,
		task.Description,
	)
}

// TaskMessage renders the card with the controls the viewer may use in the task's current status.
func TaskMessage(task *domain.Task, viewer domain.Role) Message {
	msg := Message{Text: TaskCard(task)}
	if viewer == domain.RoleAdmin {
		msg.Controls = AdminTaskControls(task)
	} else {
		msg.Controls = EmployeeTaskControls(task)
	}
	return msg
}

// EmployeeTaskControls lists the owner's actions. Comment and file stay
// available on finished tasks.
func EmployeeTaskControls(task *domain.Task) [][]Control {
	var controls []Control
	switch task.Status {
	case domain.StatusNew:
		controls = append(controls, Control{Text: "▶️ В процессе", Tag: TaskTag(task.ID, OpStart)})
	case domain.StatusInProgress:
		controls = append(controls, Control{Text: "🟨 На проверке", Tag: TaskTag(task.ID, OpSubmit)})
	}
	controls = append(controls,
		Control{Text: "💬 Комментарий", Tag: TaskTag(task.ID, OpComment)},
		Control{Text: "📎 Файл", Tag: TaskTag(task.ID, OpFile)},
	)
	return rows(controls, 2)
}

// AdminTaskControls lists the administrator's actions. Finished tasks have none.
func AdminTaskControls(task *domain.Task) [][]Control {
	if !task.Status.IsActive() {
		return nil
	}
	var controls []Control
	if task.Status == domain.StatusOnReview {
		controls = append(controls,
			Control{Text: "✅ Принять (Готово)", Tag: TaskTag(task.ID, OpAccept)},
			Control{Text: "↩️ Вернуть (В процессе)", Tag: TaskTag(task.ID, OpReject)},
		)
	}
	controls = append(controls,
		Control{Text: "🗓 Изменить срок", Tag: TaskTag(task.ID, OpChangeDeadline)},
		Control{Text: "🗑 Отменить задачу", Tag: TaskTag(task.ID, OpCancel)},
	)
	return rows(controls, 2)
}

func AdminMenu() Message {
	return Message{
		Text: "Админ-меню:",
		Controls: rows([]Control{
			{Text: "➕ Создать задачу", Tag: TagAdminNewTask},
			{Text: "📌 Все активные", Tag: TagAdminActive},
			{Text: "🟨 На проверке", Tag: TagAdminReview},
			{Text: "✅ Завершенные", Tag: TagAdminDone},
			{Text: "🟥 Просроченные", Tag: TagAdminOverdue},
			{Text: "👥 Пользователи", Tag: TagAdminUsers},
		}, 2),
	}
}

func EmployeeMenu(user *domain.User) Message {
	return Message{
		Text: "Режим сотрудника: " + user.DisplayName(),
		Controls: rows([]Control{
			{Text: "📌 Мои задачи", Tag: TagEmployeeActive},
			{Text: "🟨 Мои на проверке", Tag: TagEmployeeReview},
			{Text: "✅ Завершенные", Tag: TagEmployeeDone},
		}, 1),
	}
}

// PickEmployee renders the assignee choice that opens task creation.
func PickEmployee(users []domain.User) Message {
	controls := make([]Control, 0, len(users)+1)
	for _, u := range users {
		controls = append(controls, Control{Text: u.DisplayName(), Tag: PrefixAdminPick + strconv.FormatInt(u.ID, 10)})
	}
	controls = append(controls, Control{Text: "❌ Отмена", Tag: TagAdminPickCancel})
	return Message{Text: "Выбери сотрудника:", Controls: rows(controls, 1)}
}

func EmployeeList(users []domain.User) Message {
	controls := make([]Control, 0, len(users)+1)
	for _, u := range users {
		icon := "🔴"
		if u.IsActive {
			icon = "🟢"
		}
		controls = append(controls, Control{
			Text: fmt.Sprintf("%s %s — %s", icon, u.FullName, u.Department),
			Tag:  PrefixAdminUser + strconv.FormatInt(u.ID, 10),
		})
	}
	controls = append(controls, Control{Text: "⬅️ Назад в меню", Tag: TagAdminBackMain})
	return Message{Text: "Сотрудники (нажми на человека):", Controls: rows(controls, 1)}
}

// EmployeeCard renders the profile with task counters and the access toggle.
func EmployeeCard(user *domain.User, stats domain.EmployeeStats) Message {
	state := "ОТКЛЮЧЕН"
	toggle := Control{Text: "✅ Активировать сотрудника", Tag: PrefixAdminActivate + strconv.FormatInt(user.ID, 10)}
	if user.IsActive {
		state = "АКТИВЕН"
		toggle = Control{Text: "🗑 Удалить сотрудника (отключить)", Tag: PrefixAdminDeactivate + strconv.FormatInt(user.ID, 10)}
	}
	text := fmt.Sprintf("Сотрудник:\nФИО: %s\nОтдел: %s\nTelegram ID: %d\nСтатус: %s\n\n"+
		"Задачи:\nВсего: %d\nАктивные: %d\nНа проверке: %d\nЗавершенные: %d\n\n"+
		"Удаление = отключение доступа. История сохраняется.",
		user.FullName, user.Department, user.ID, state,
		stats.Total, stats.Active, stats.OnReview, stats.Done)
	return Message{
		Text: text,
		Controls: rows([]Control{
			toggle,
			{Text: "⬅️ К списку сотрудников", Tag: TagAdminUsers},
		}, 1),
	}
}

func rows(controls []Control, width int) [][]Control {
	if len(controls) == 0 {
		return nil
	}
	out := make([][]Control, 0, (len(controls)+width-1)/width)
	for start := 0; start < len(controls); start += width {
		end := min(start+width, len(controls))
		out = append(out, controls[start:end])
	}
	return out
}
