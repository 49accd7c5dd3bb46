package notify

import (
	"errors"

	"github.com/fastygo/taskdesk/domain"
)

const (
	TextAccessDisabled = "Доступ отключен."
	TextAdminOnly      = "Только для администратора."
	TextNotYourTask    = "Это не твоя задача."
	TextTaskNotFound   = "Задача не найдена."
	TextNoEmployee     = "Сотрудник не найден/не активен."
	TextUserNotFound   = "Сотрудник не найден."
	TextCanceled       = "Отменено."
	TextOwnerOnly      = "Комментарии и файлы добавляет исполнитель задачи."
	TextInternalError  = "Что-то пошло не так. Попробуй ещё раз."
)

// DenialText maps authorization and lookup failures to the short reply shown to the actor.
func DenialText(err error) (string, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, domain.ErrAccessDisabled):
		return TextAccessDisabled, true
	case errors.Is(err, domain.ErrAdminOnly):
		return TextAdminOnly, true
	case errors.Is(err, domain.ErrNotTaskOwner):
		return TextNotYourTask, true
	case errors.Is(err, domain.ErrOwnerOnly):
		return TextOwnerOnly, true
	case errors.Is(err, domain.ErrTaskNotFound):
		return TextTaskNotFound, true
	case errors.Is(err, domain.ErrEmployeeUnavailable):
		return TextNoEmployee, true
	case errors.Is(err, domain.ErrUserNotFound):
		return TextUserNotFound, true
	}
	return "", false
}
