package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskdesk/domain"
)

var errNoSender = errors.New("no sender configured")

// Dispatcher delivers best-effort notifications. Delivery errors are logged and
// returned as a Result, never as an error.
type Dispatcher struct {
	sender  Sender
	adminID int64
	logger  *zap.Logger
}

func NewDispatcher(sender Sender, adminID int64, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sender:  sender,
		adminID: adminID,
		logger:  logger,
	}
}

// AdminID returns the administrator chat.
func (d *Dispatcher) AdminID() int64 {
	return d.adminID
}

// Notify sends one message to target.
func (d *Dispatcher) Notify(ctx context.Context, target int64, msg Message) Result {
	res := Result{Target: target}
	if d.sender == nil {
		res.Err = errNoSender
		return res
	}
	if err := d.sender.Send(ctx, target, msg); err != nil {
		d.logger.Warn("notification not delivered", zap.Int64("target", target), zap.Error(err))
		res.Err = err
		return res
	}
	res.Delivered = true
	return res
}

func (d *Dispatcher) NotifyAdmin(ctx context.Context, msg Message) Result {
	return d.Notify(ctx, d.adminID, msg)
}

// TaskAssigned pushes the alert line, then the card with the owner's controls.
// The card is skipped when the alert could not be delivered.
func (d *Dispatcher) TaskAssigned(ctx context.Context, task *domain.Task) Result {
	alert := Text("🔔 НОВАЯ ЗАДАЧА #%d\nСрок: %s\nНазвание: %s", task.ID, domain.FormatDeadline(task.Deadline), task.Title)
	if res := d.Notify(ctx, task.OwnerID, alert); res.Failed() {
		return res
	}
	return d.Notify(ctx, task.OwnerID, TaskMessage(task, domain.RoleEmployee))
}

// TaskStatusChanged informs the counterpart of a transition: the admin on submit,
// the owner on accept, reject and cancel. Starting a task notifies nobody.
func (d *Dispatcher) TaskStatusChanged(ctx context.Context, task *domain.Task, from domain.Status) Result {
	switch task.Status {
	case domain.StatusOnReview:
		return d.NotifyAdmin(ctx, Text("🟨 На проверке: задача #%d", task.ID))
	case domain.StatusDone:
		return d.Notify(ctx, task.OwnerID, Text("✅ Задача #%d принята. Статус: Готово.", task.ID))
	case domain.StatusCanceled:
		return d.Notify(ctx, task.OwnerID, Text("🗑 Задача #%d отменена админом.", task.ID))
	case domain.StatusInProgress:
		if from == domain.StatusOnReview {
			return d.Notify(ctx, task.OwnerID, Text("↩️ Задача #%d возвращена: В процессе.", task.ID))
		}
	}
	return Result{}
}

func (d *Dispatcher) DeadlineChanged(ctx context.Context, task *domain.Task, previous time.Time) Result {
	return d.Notify(ctx, task.OwnerID, Text("🗓 Срок задачи #%d изменён: %s → %s",
		task.ID, domain.FormatDeadline(previous), domain.FormatDeadline(task.Deadline)))
}

// UserAdded tells the employee and mirrors the event to the admin.
func (d *Dispatcher) UserAdded(ctx context.Context, user *domain.User) Result {
	d.NotifyAdmin(ctx, Text("✅ УСПЕШНО: сотрудник добавлен/обновлён — %s id=%d", user.DisplayName(), user.ID))
	return d.Notify(ctx, user.ID, Text("Тебя добавили в систему. Напиши /start."))
}

func (d *Dispatcher) UserDeactivated(ctx context.Context, user *domain.User) Result {
	d.NotifyAdmin(ctx, Text("✅ УСПЕШНО: сотрудник ОТКЛЮЧЕН — %s id=%d", user.FullName, user.ID))
	return d.Notify(ctx, user.ID, Text("Твой доступ отключен админом."))
}

func (d *Dispatcher) UserActivated(ctx context.Context, user *domain.User) Result {
	d.NotifyAdmin(ctx, Text("✅ УСПЕШНО: сотрудник ВКЛЮЧЕН — %s id=%d", user.FullName, user.ID))
	return d.Notify(ctx, user.ID, Text("Твой доступ включен. Напиши /start."))
}

// DeliveryWarning escalates a failed push to the admin.
func (d *Dispatcher) DeliveryWarning(ctx context.Context, target int64) Result {
	return d.NotifyAdmin(ctx, Text("⚠️ PUSH НЕ ДОСТАВЛЕН сотруднику id=%d (он мог не нажать /start или заблокировал бота).", target))
}

func (d *Dispatcher) DailyReport(ctx context.Context, text string) Result {
	return d.NotifyAdmin(ctx, Message{Text: text})
}
