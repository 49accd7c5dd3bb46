package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/repository"
	"github.com/fastygo/taskdesk/usecase/notify"
)

// ListLimit caps every task list view.
const ListLimit = 30

const auditTextLimit = 200

// View names a task list snapshot.
type View string

const (
	ViewActive  View = "active"
	ViewReview  View = "review"
	ViewDone    View = "done"
	ViewOverdue View = "overdue"
)

// ParseView validates a view name coming from a transport.
func ParseView(raw string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(raw))); v {
	case ViewActive, ViewReview, ViewDone, ViewOverdue:
		return v, nil
	case "":
		return ViewActive, nil
	}
	return "", domain.WrapError(domain.ErrCodeInvalid, "unknown view", fmt.Errorf("%q", raw))
}

// TransitionResult carries the task as it is after the call. Changed is false for
// no-op requests; Delivery reports the best-effort notification.
type TransitionResult struct {
	Task     *domain.Task
	Changed  bool
	Delivery notify.Result
}

type CreateResult struct {
	Task     *domain.Task
	Delivery notify.Result
}

type DeadlineResult struct {
	Task     *domain.Task
	Previous time.Time
	Changed  bool
	Delivery notify.Result
}

// UseCase is the task lifecycle machine. It owns every task mutation.
type UseCase struct {
	users    repository.UserRepository
	tasks    repository.TaskRepository
	comments repository.CommentRepository
	files    repository.FileRepository
	audit    repository.AuditRepository
	tx       repository.Transactor
	notifier *notify.Dispatcher
	validate *validator.Validate
	now      func() time.Time
	logger   *zap.Logger
}

// Option customizes a UseCase.
type Option func(*UseCase)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

func New(store *repository.Store, notifier *notify.Dispatcher, logger *zap.Logger, opts ...Option) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &UseCase{
		users:    store.Users,
		tasks:    store.Tasks,
		comments: store.Comments,
		files:    store.Files,
		audit:    store.Audit,
		tx:       store.Tx,
		notifier: notifier,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Now exposes the clock used for deadlines and timestamps.
func (uc *UseCase) Now() time.Time {
	return uc.now()
}

// Transition applies action to the task on behalf of actorID. Authorization failures
// are errors; a move that the table does not allow is a no-op with Changed=false.
func (uc *UseCase) Transition(ctx context.Context, taskID, actorID int64, action domain.TaskAction) (*TransitionResult, error) {
	if !action.Valid() {
		return nil, domain.ErrInvalidPayload
	}
	actor, err := uc.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	task, err := uc.taskFor(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}

	from := task.Status
	next, ok := domain.NextStatus(from, action, actor.Role)
	if !ok {
		return &TransitionResult{Task: task}, nil
	}

	at := uc.now()
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.tasks.UpdateStatus(ctx, task.ID, from, next, at); err != nil {
			return err
		}
		return uc.audit.Append(ctx, domain.TaskAudit(task.ID, actor.ID, domain.AuditStatus, domain.TransitionDetail(from, next), at))
	})
	if errors.Is(err, domain.ErrStaleTask) {
		uc.logger.Info("transition lost a race", zap.Int64("task_id", task.ID), zap.String("action", string(action)))
		current, err := uc.tasks.GetByID(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		return &TransitionResult{Task: current}, nil
	}
	if err != nil {
		return nil, err
	}

	task.Status = next
	task.UpdatedAt = at
	uc.logger.Info("task status changed",
		zap.Int64("task_id", task.ID),
		zap.Int64("actor_id", actor.ID),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
	)

	return &TransitionResult{
		Task:     task,
		Changed:  true,
		Delivery: uc.notifier.TaskStatusChanged(ctx, task, from),
	}, nil
}

// Create assigns a new task to an active employee. A failed push to the owner is
// escalated to the admin and reported in the result; the task stays created.
func (uc *UseCase) Create(ctx context.Context, adminID int64, input domain.NewTask) (*CreateResult, error) {
	admin, err := uc.requireAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if err := uc.validate.Struct(input); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "invalid task", err)
	}

	owner, err := uc.users.GetByID(ctx, input.OwnerID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrEmployeeUnavailable
		}
		return nil, err
	}
	if owner.Role != domain.RoleEmployee || !owner.IsActive {
		return nil, domain.ErrEmployeeUnavailable
	}

	at := uc.now()
	task := &domain.Task{
		Title:       input.Title,
		Description: input.Description,
		Status:      domain.StatusNew,
		Deadline:    input.Deadline,
		OwnerID:     owner.ID,
		Department:  owner.Department,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := uc.tasks.Insert(ctx, task); err != nil {
			return err
		}
		details := fmt.Sprintf("to=%d deadline=%s", owner.ID, domain.FormatDeadline(task.Deadline))
		return uc.audit.Append(ctx, domain.TaskAudit(task.ID, admin.ID, domain.AuditCreateTask, details, at))
	})
	if err != nil {
		return nil, err
	}
	uc.logger.Info("task created", zap.Int64("task_id", task.ID), zap.Int64("owner_id", owner.ID))

	delivery := uc.notifier.TaskAssigned(ctx, task)
	if delivery.Failed() {
		uc.notifier.DeliveryWarning(ctx, owner.ID)
	}
	return &CreateResult{Task: task, Delivery: delivery}, nil
}

// ChangeDeadline moves the deadline of an active task. Finished tasks keep theirs
// and the call is a no-op.
func (uc *UseCase) ChangeDeadline(ctx context.Context, taskID, adminID int64, deadline time.Time) (*DeadlineResult, error) {
	admin, err := uc.requireAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !domain.DeadlineChangeAllowed(task.Status) {
		return &DeadlineResult{Task: task, Previous: task.Deadline}, nil
	}

	previous := task.Deadline
	at := uc.now()
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.tasks.UpdateDeadline(ctx, task.ID, deadline, domain.ActiveStatuses, at); err != nil {
			return err
		}
		details := domain.FormatDeadline(previous) + "→" + domain.FormatDeadline(deadline)
		return uc.audit.Append(ctx, domain.TaskAudit(task.ID, admin.ID, domain.AuditChangeDeadline, details, at))
	})
	if errors.Is(err, domain.ErrStaleTask) {
		current, err := uc.tasks.GetByID(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		return &DeadlineResult{Task: current, Previous: current.Deadline}, nil
	}
	if err != nil {
		return nil, err
	}

	task.Deadline = deadline
	task.UpdatedAt = at
	uc.logger.Info("task deadline changed", zap.Int64("task_id", task.ID), zap.Time("deadline", deadline))

	return &DeadlineResult{
		Task:     task,
		Previous: previous,
		Changed:  true,
		Delivery: uc.notifier.DeadlineChanged(ctx, task, previous),
	}, nil
}

// AddComment appends a note from the owner or the admin.
func (uc *UseCase) AddComment(ctx context.Context, taskID, actorID int64, text string) (*domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrInvalidPayload
	}
	actor, err := uc.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	task, err := uc.ownedTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{TaskID: task.ID, AuthorID: actor.ID, Text: text, CreatedAt: uc.now()}
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.comments.Insert(ctx, comment); err != nil {
			return err
		}
		return uc.audit.Append(ctx, domain.TaskAudit(task.ID, actor.ID, domain.AuditComment, truncate(text, auditTextLimit), comment.CreatedAt))
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// AttachFile records a messenger file reference on the task.
func (uc *UseCase) AttachFile(ctx context.Context, taskID, actorID int64, fileRef, fileName string) (*domain.Attachment, error) {
	if strings.TrimSpace(fileRef) == "" {
		return nil, domain.ErrInvalidPayload
	}
	actor, err := uc.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	task, err := uc.ownedTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}

	file := &domain.Attachment{
		TaskID:     task.ID,
		UploaderID: actor.ID,
		FileRef:    fileRef,
		FileName:   strings.TrimSpace(fileName),
		CreatedAt:  uc.now(),
	}
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.files.Insert(ctx, file); err != nil {
			return err
		}
		return uc.audit.Append(ctx, domain.TaskAudit(task.ID, actor.ID, domain.AuditAddFile, file.FileName, file.CreatedAt))
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (uc *UseCase) Get(ctx context.Context, actorID, taskID int64) (*domain.Task, error) {
	actor, err := uc.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return uc.taskFor(ctx, actor, taskID)
}

// List returns a snapshot view. Employees only see their own tasks; the overdue
// view belongs to the admin.
func (uc *UseCase) List(ctx context.Context, actorID int64, view View) ([]domain.Task, error) {
	actor, err := uc.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	filter := repository.TaskFilter{Limit: ListLimit}
	switch view {
	case ViewActive:
		filter.Statuses = domain.ActiveStatuses
	case ViewReview:
		filter.Statuses = []domain.Status{domain.StatusOnReview}
	case ViewDone:
		filter.Statuses = []domain.Status{domain.StatusDone}
		filter.OrderBy = repository.OrderByUpdatedDesc
	case ViewOverdue:
		if !actor.IsAdmin() {
			return nil, domain.ErrAdminOnly
		}
		now := uc.now()
		filter.Statuses = domain.ActiveStatuses
		filter.DeadlineBefore = &now
	default:
		return nil, domain.ErrInvalidPayload
	}
	if !actor.IsAdmin() {
		filter.OwnerID = actor.ID
	}
	return uc.tasks.List(ctx, filter)
}

// Details loads the task with its comments, attachments and audit trail.
func (uc *UseCase) Details(ctx context.Context, actorID, taskID int64) (*domain.TaskDetails, error) {
	task, err := uc.Get(ctx, actorID, taskID)
	if err != nil {
		return nil, err
	}
	comments, err := uc.comments.ListByTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	files, err := uc.files.ListByTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	audit, err := uc.audit.ListByTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	return &domain.TaskDetails{
		Task:        *task,
		Comments:    comments,
		Attachments: files,
		Audit:       audit,
	}, nil
}

// Actor loads the acting user and refuses unknown and deactivated actors.
func (uc *UseCase) Actor(ctx context.Context, actorID int64) (*domain.User, error) {
	user, err := uc.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrAccessDisabled
		}
		return nil, err
	}
	if !user.CanAct() {
		return nil, domain.ErrAccessDisabled
	}
	return user, nil
}

func (uc *UseCase) requireAdmin(ctx context.Context, actorID int64) (*domain.User, error) {
	actor, err := uc.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, domain.ErrAdminOnly
	}
	return actor, nil
}

func (uc *UseCase) taskFor(ctx context.Context, actor *domain.User, taskID int64) (*domain.Task, error) {
	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !task.IsOwnedBy(actor.ID) {
		return nil, domain.ErrNotTaskOwner
	}
	return task, nil
}

// ownedTask restricts comments and files to the task's owner.
func (uc *UseCase) ownedTask(ctx context.Context, actor *domain.User, taskID int64) (*domain.Task, error) {
	if actor.IsAdmin() {
		return nil, domain.ErrOwnerOnly
	}
	return uc.taskFor(ctx, actor, taskID)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
