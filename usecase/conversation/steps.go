package conversation

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/usecase/notify"
)

// prompt is the question asked while the dialogue sits in its current step.
func prompt(state *domain.Conversation) notify.Message {
	switch state.Step {
	case domain.StepPickEmployee:
		return notify.Text("Выбери сотрудника кнопкой или напиши /cancel.")
	case domain.StepCollectTitle:
		return notify.Text("Название задачи:")
	case domain.StepCollectDesc:
		return notify.Text("Описание задачи:")
	case domain.StepCollectDeadline:
		return notify.Text("Срок: today / week / days N (пример: days 5)")
	case domain.StepCollectComment:
		return notify.Text("Напиши комментарий для задачи #%d:", state.TaskID)
	case domain.StepCollectFile:
		return notify.Text("Отправь файл для задачи #%d:", state.TaskID)
	case domain.StepCollectNewDeadline:
		return notify.Text("Новый срок: YYYY-MM-DD или YYYY-MM-DD HH:MM")
	}
	return notify.Text("/cancel — отменить.")
}

func (e *Engine) awaitPick(_ context.Context, _ *domain.User, state *domain.Conversation, _ string) (Outcome, error) {
	return reply(prompt(state)), nil
}

func (e *Engine) awaitFile(_ context.Context, _ *domain.User, state *domain.Conversation, _ string) (Outcome, error) {
	return reply(notify.Text("Нужен файл: документ или фото."), prompt(state)), nil
}

func (e *Engine) collectTitle(ctx context.Context, _ *domain.User, state *domain.Conversation, text string) (Outcome, error) {
	title := strings.TrimSpace(text)
	if msg, ok := checkLength(title, "Название", domain.MaxTitleRunes); !ok {
		return reply(msg, prompt(state)), nil
	}
	state.Title = title
	state.Step = domain.StepCollectDesc
	return e.advance(ctx, state)
}

func (e *Engine) collectDescription(ctx context.Context, _ *domain.User, state *domain.Conversation, text string) (Outcome, error) {
	description := strings.TrimSpace(text)
	if msg, ok := checkLength(description, "Описание", domain.MaxDescriptionRunes); !ok {
		return reply(msg, prompt(state)), nil
	}
	state.Description = description
	state.Step = domain.StepCollectDeadline
	return e.advance(ctx, state)
}

func (e *Engine) collectDeadline(ctx context.Context, actor *domain.User, state *domain.Conversation, text string) (Outcome, error) {
	deadline, err := domain.ResolveDeadline(text, e.tasks.Now())
	if err != nil {
		if domain.IsDaysPhrase(text) {
			return reply(notify.Text("Неверно. Пример: days 5 (1..60)")), nil
		}
		return reply(notify.Text("Напиши: today / week / days N")), nil
	}

	res, err := e.tasks.Create(ctx, actor.ID, domain.NewTask{
		OwnerID:     state.TargetID,
		Title:       state.Title,
		Description: state.Description,
		Deadline:    deadline,
	})
	if err != nil {
		return e.fail(ctx, actor.ID, err)
	}
	e.finish(ctx, actor.ID)
	return reply(notify.Text("✅ Создана задача #%d.", res.Task.ID)), nil
}

func (e *Engine) collectComment(ctx context.Context, actor *domain.User, state *domain.Conversation, text string) (Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return reply(notify.Text("Комментарий пустой."), prompt(state)), nil
	}
	if _, err := e.tasks.AddComment(ctx, state.TaskID, actor.ID, text); err != nil {
		return e.refuse(ctx, actor.ID, err)
	}
	e.finish(ctx, actor.ID)
	return reply(notify.Text("Комментарий добавлен.")), nil
}

func (e *Engine) collectNewDeadline(ctx context.Context, actor *domain.User, state *domain.Conversation, text string) (Outcome, error) {
	deadline, err := domain.ParseDeadline(text, e.tasks.Now().Location())
	if err != nil {
		return reply(notify.Text("Формат: 2026-01-20 или 2026-01-20 18:00")), nil
	}

	res, err := e.tasks.ChangeDeadline(ctx, state.TaskID, actor.ID, deadline)
	if err != nil {
		return e.fail(ctx, actor.ID, err)
	}
	e.finish(ctx, actor.ID)
	if !res.Changed {
		return reply(notify.Text("Срок не изменён: задача уже не активна."), notify.TaskMessage(res.Task, domain.RoleAdmin)), nil
	}
	return reply(notify.Text("Ок. Срок обновлен: %s → %s",
		domain.FormatDeadline(res.Previous), domain.FormatDeadline(res.Task.Deadline))), nil
}

func checkLength(value, field string, limit int) (notify.Message, bool) {
	if value == "" {
		return notify.Text("%s не может быть пустым.", field), false
	}
	if utf8.RuneCountInString(value) > limit {
		return notify.Text("%s длиннее %d символов.", field, limit), false
	}
	return notify.Message{}, true
}
