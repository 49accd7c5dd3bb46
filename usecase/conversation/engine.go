package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/repository"
	"github.com/fastygo/taskdesk/usecase/notify"
	"github.com/fastygo/taskdesk/usecase/task"
)

// Lifecycle is the part of the task use case the dialogues complete into.
type Lifecycle interface {
	Actor(ctx context.Context, actorID int64) (*domain.User, error)
	Get(ctx context.Context, actorID, taskID int64) (*domain.Task, error)
	Create(ctx context.Context, adminID int64, input domain.NewTask) (*task.CreateResult, error)
	ChangeDeadline(ctx context.Context, taskID, adminID int64, deadline time.Time) (*task.DeadlineResult, error)
	AddComment(ctx context.Context, taskID, actorID int64, text string) (*domain.Comment, error)
	AttachFile(ctx context.Context, taskID, actorID int64, fileRef, fileName string) (*domain.Attachment, error)
	Now() time.Time
}

// File is an uploaded document or photo.
type File struct {
	Ref  string
	Name string
}

// Outcome tells the caller whether the engine consumed the event and what to answer.
type Outcome struct {
	Handled bool
	Replies []notify.Message
}

func reply(msgs ...notify.Message) Outcome {
	return Outcome{Handled: true, Replies: msgs}
}

type stepHandler func(ctx context.Context, actor *domain.User, state *domain.Conversation, text string) (Outcome, error)

// Engine runs the multi-step dialogues. Each actor has at most one dialogue and
// events of one actor are processed one at a time.
type Engine struct {
	states repository.ConversationRepository
	users  repository.UserRepository
	tasks  Lifecycle
	steps  map[domain.Step]stepHandler
	locks  *keyedMutex
	logger *zap.Logger
}

func New(states repository.ConversationRepository, users repository.UserRepository, tasks Lifecycle, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		states: states,
		users:  users,
		tasks:  tasks,
		locks:  newKeyedMutex(),
		logger: logger,
	}
	e.steps = map[domain.Step]stepHandler{
		domain.StepPickEmployee:       e.awaitPick,
		domain.StepCollectTitle:       e.collectTitle,
		domain.StepCollectDesc:        e.collectDescription,
		domain.StepCollectDeadline:    e.collectDeadline,
		domain.StepCollectComment:     e.collectComment,
		domain.StepCollectFile:        e.awaitFile,
		domain.StepCollectNewDeadline: e.collectNewDeadline,
	}
	return e
}

// BeginTaskCreation opens the assignee choice.
func (e *Engine) BeginTaskCreation(ctx context.Context, adminID int64) (Outcome, error) {
	defer e.locks.Lock(adminID)()

	if _, err := e.admin(ctx, adminID); err != nil {
		return e.refuse(ctx, adminID, err)
	}
	employees, err := e.users.ListEmployees(ctx, true)
	if err != nil {
		return Outcome{}, err
	}
	if len(employees) == 0 {
		return reply(notify.Text("Нет активных сотрудников. Добавь через /add_user.")), nil
	}
	if err := e.start(ctx, &domain.Conversation{ActorID: adminID, Step: domain.StepPickEmployee}); err != nil {
		return Outcome{}, err
	}
	return reply(notify.PickEmployee(employees)), nil
}

// PickEmployee fixes the assignee and asks for the title.
func (e *Engine) PickEmployee(ctx context.Context, adminID, targetID int64) (Outcome, error) {
	defer e.locks.Lock(adminID)()

	if _, err := e.admin(ctx, adminID); err != nil {
		return e.refuse(ctx, adminID, err)
	}
	target, err := e.users.GetByID(ctx, targetID)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return Outcome{}, err
	}
	if target == nil || target.Role != domain.RoleEmployee || !target.IsActive {
		e.finish(ctx, adminID)
		return reply(notify.Text(notify.TextNoEmployee)), nil
	}

	state := &domain.Conversation{
		ActorID:    adminID,
		Step:       domain.StepCollectTitle,
		TargetID:   target.ID,
		Department: target.Department,
	}
	if err := e.start(ctx, state); err != nil {
		return Outcome{}, err
	}
	return reply(notify.Text("Выбран: %s\n%s", target.DisplayName(), prompt(state).Text)), nil
}

// BeginComment asks the task's owner for a comment text.
func (e *Engine) BeginComment(ctx context.Context, actorID, taskID int64) (Outcome, error) {
	return e.beginTaskStep(ctx, actorID, taskID, domain.StepCollectComment)
}

// BeginFile asks the task's owner for an attachment.
func (e *Engine) BeginFile(ctx context.Context, actorID, taskID int64) (Outcome, error) {
	return e.beginTaskStep(ctx, actorID, taskID, domain.StepCollectFile)
}

// BeginDeadlineChange asks the admin for a new deadline. Finished tasks are
// re-rendered unchanged.
func (e *Engine) BeginDeadlineChange(ctx context.Context, adminID, taskID int64) (Outcome, error) {
	defer e.locks.Lock(adminID)()

	if _, err := e.admin(ctx, adminID); err != nil {
		return e.refuse(ctx, adminID, err)
	}
	t, err := e.tasks.Get(ctx, adminID, taskID)
	if err != nil {
		return e.refuse(ctx, adminID, err)
	}
	if !domain.DeadlineChangeAllowed(t.Status) {
		return reply(notify.TaskMessage(t, domain.RoleAdmin)), nil
	}

	state := &domain.Conversation{ActorID: adminID, Step: domain.StepCollectNewDeadline, TaskID: t.ID}
	if err := e.start(ctx, state); err != nil {
		return Outcome{}, err
	}
	return reply(prompt(state)), nil
}

// Cancel drops any dialogue of the actor.
func (e *Engine) Cancel(ctx context.Context, actorID int64) (Outcome, error) {
	defer e.locks.Lock(actorID)()

	if err := e.states.Delete(ctx, actorID); err != nil {
		return Outcome{}, err
	}
	return reply(notify.Text(notify.TextCanceled)), nil
}

// Reset drops the dialogue without answering, e.g. when the actor loses access.
func (e *Engine) Reset(ctx context.Context, actorID int64) error {
	defer e.locks.Lock(actorID)()
	return e.states.Delete(ctx, actorID)
}

// Active returns the actor's dialogue or nil.
func (e *Engine) Active(ctx context.Context, actorID int64) (*domain.Conversation, error) {
	state, err := e.states.Get(ctx, actorID)
	if errors.Is(err, domain.ErrConversationNotFound) {
		return nil, nil
	}
	return state, err
}

// HandleText routes free text to the current step. Without a dialogue the event
// is left to the caller.
func (e *Engine) HandleText(ctx context.Context, actorID int64, text string) (Outcome, error) {
	defer e.locks.Lock(actorID)()

	state, actor, out, err := e.resume(ctx, actorID)
	if state == nil {
		return out, err
	}
	handler, ok := e.steps[state.Step]
	if !ok {
		e.finish(ctx, actorID)
		return Outcome{}, fmt.Errorf("unknown conversation step %q", state.Step)
	}
	return handler(ctx, actor, state, text)
}

// HandleFile completes a file dialogue. Other steps re-prompt.
func (e *Engine) HandleFile(ctx context.Context, actorID int64, file File) (Outcome, error) {
	defer e.locks.Lock(actorID)()

	state, actor, out, err := e.resume(ctx, actorID)
	if state == nil {
		return out, err
	}
	if state.Step != domain.StepCollectFile {
		return reply(notify.Text("Сейчас нужен текст."), prompt(state)), nil
	}
	if file.Ref == "" {
		return reply(prompt(state)), nil
	}

	if _, err := e.tasks.AttachFile(ctx, state.TaskID, actor.ID, file.Ref, file.Name); err != nil {
		return e.refuse(ctx, actorID, err)
	}
	e.finish(ctx, actorID)
	return reply(notify.Text("Файл прикреплён.")), nil
}

func (e *Engine) beginTaskStep(ctx context.Context, actorID, taskID int64, step domain.Step) (Outcome, error) {
	defer e.locks.Lock(actorID)()

	actor, err := e.tasks.Actor(ctx, actorID)
	if err != nil {
		return e.refuse(ctx, actorID, err)
	}
	if actor.IsAdmin() {
		return e.refuse(ctx, actorID, domain.ErrOwnerOnly)
	}
	t, err := e.tasks.Get(ctx, actorID, taskID)
	if err != nil {
		return e.refuse(ctx, actorID, err)
	}
	state := &domain.Conversation{ActorID: actorID, Step: step, TaskID: t.ID}
	if err := e.start(ctx, state); err != nil {
		return Outcome{}, err
	}
	return reply(prompt(state)), nil
}

// resume loads the dialogue and re-checks that its actor may still continue it.
// A nil state means the caller must return the accompanying outcome.
func (e *Engine) resume(ctx context.Context, actorID int64) (*domain.Conversation, *domain.User, Outcome, error) {
	state, err := e.states.Get(ctx, actorID)
	if errors.Is(err, domain.ErrConversationNotFound) {
		return nil, nil, Outcome{}, nil
	}
	if err != nil {
		return nil, nil, Outcome{}, err
	}

	actor, err := e.tasks.Actor(ctx, actorID)
	if err == nil && state.Step.AdminOnly() && !actor.IsAdmin() {
		err = domain.ErrAccessDisabled
	}
	if err != nil {
		e.logger.Info("conversation aborted", zap.Int64("actor_id", actorID), zap.String("step", string(state.Step)), zap.Error(err))
		out, err := e.fail(ctx, actorID, err)
		return nil, nil, out, err
	}
	return state, actor, Outcome{}, nil
}

func (e *Engine) admin(ctx context.Context, actorID int64) (*domain.User, error) {
	actor, err := e.tasks.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, domain.ErrAdminOnly
	}
	return actor, nil
}

func (e *Engine) start(ctx context.Context, state *domain.Conversation) error {
	state.UpdatedAt = e.tasks.Now()
	return e.states.Save(ctx, state)
}

func (e *Engine) advance(ctx context.Context, state *domain.Conversation) (Outcome, error) {
	if err := e.start(ctx, state); err != nil {
		return Outcome{}, err
	}
	return reply(prompt(state)), nil
}

// finish clears a completed dialogue. The durable work is already done, so a
// failure here is only logged.
func (e *Engine) finish(ctx context.Context, actorID int64) {
	if err := e.states.Delete(ctx, actorID); err != nil {
		e.logger.Warn("failed to clear conversation", zap.Int64("actor_id", actorID), zap.Error(err))
	}
}

// abort clears the dialogue and answers with the denial for err.
func (e *Engine) abort(ctx context.Context, actorID int64, err error) (Outcome, error) {
	e.finish(ctx, actorID)
	if text, ok := notify.DenialText(err); ok {
		return reply(notify.Text("%s", text)), nil
	}
	return Outcome{}, err
}

// fail ends the dialogue on a denial and keeps it for a retry on store errors.
func (e *Engine) fail(ctx context.Context, actorID int64, err error) (Outcome, error) {
	if _, ok := notify.DenialText(err); ok {
		return e.abort(ctx, actorID, err)
	}
	return Outcome{}, err
}

// refuse answers a denied request. Losing access or the task also ends any dialogue.
func (e *Engine) refuse(ctx context.Context, actorID int64, err error) (Outcome, error) {
	if errors.Is(err, domain.ErrAccessDisabled) || errors.Is(err, domain.ErrTaskNotFound) || errors.Is(err, domain.ErrNotTaskOwner) {
		return e.abort(ctx, actorID, err)
	}
	if text, ok := notify.DenialText(err); ok {
		return reply(notify.Text("%s", text)), nil
	}
	return Outcome{}, err
}
