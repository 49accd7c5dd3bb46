package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/pkg/logger"
	"github.com/fastygo/taskdesk/usecase/conversation"
	"github.com/fastygo/taskdesk/usecase/notify"
	"github.com/fastygo/taskdesk/usecase/task"
)

// HandlerFunc answers one routed event.
type HandlerFunc func(ctx context.Context, ev Event) ([]Reply, error)

// Tasks is the part of the task lifecycle the router drives directly.
type Tasks interface {
	Actor(ctx context.Context, actorID int64) (*domain.User, error)
	Transition(ctx context.Context, taskID, actorID int64, action domain.TaskAction) (*task.TransitionResult, error)
	List(ctx context.Context, actorID int64, view task.View) ([]domain.Task, error)
}

// Users is the employee management surface.
type Users interface {
	Whoami(ctx context.Context, actorID int64) (*domain.User, error)
	AddEmployee(ctx context.Context, adminID int64, payload string) (*domain.User, notify.Result, error)
	SetActive(ctx context.Context, adminID, targetID int64, active bool) (*domain.User, notify.Result, error)
	Card(ctx context.Context, adminID, targetID int64) (*domain.User, domain.EmployeeStats, error)
	ListEmployees(ctx context.Context, adminID int64, activeOnly bool) ([]domain.User, error)
	Departments() []string
}

// Dialogues is the conversation engine.
type Dialogues interface {
	BeginTaskCreation(ctx context.Context, adminID int64) (conversation.Outcome, error)
	PickEmployee(ctx context.Context, adminID, targetID int64) (conversation.Outcome, error)
	BeginComment(ctx context.Context, actorID, taskID int64) (conversation.Outcome, error)
	BeginFile(ctx context.Context, actorID, taskID int64) (conversation.Outcome, error)
	BeginDeadlineChange(ctx context.Context, adminID, taskID int64) (conversation.Outcome, error)
	Cancel(ctx context.Context, actorID int64) (conversation.Outcome, error)
	HandleText(ctx context.Context, actorID int64, text string) (conversation.Outcome, error)
	HandleFile(ctx context.Context, actorID int64, file conversation.File) (conversation.Outcome, error)
}

type prefixRoute struct {
	prefix  string
	handler HandlerFunc
}

// Router maps commands and button tags to handlers and sends their replies.
type Router struct {
	tasks     Tasks
	users     Users
	dialogues Dialogues
	responder Responder

	mu       sync.RWMutex
	commands map[string]HandlerFunc
	buttons  map[string]HandlerFunc
	prefixes []prefixRoute

	logger *zap.Logger
}

// New builds a router with every bot route registered.
func New(tasks Tasks, users Users, dialogues Dialogues, responder Responder, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		tasks:     tasks,
		users:     users,
		dialogues: dialogues,
		responder: responder,
		commands:  make(map[string]HandlerFunc),
		buttons:   make(map[string]HandlerFunc),
		logger:    logger,
	}
	r.registerRoutes()
	return r
}

// Command registers a handler for "/name". Names are matched case-insensitively.
func (r *Router) Command(name string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[foldCommand(name)] = handler
}

// Button registers a handler for an exact control tag.
func (r *Router) Button(tag string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buttons[tag] = handler
}

// ButtonPrefix registers a handler for every tag starting with prefix.
// Exact tags win over prefixes.
func (r *Router) ButtonPrefix(prefix string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefixes = append(r.prefixes, prefixRoute{prefix: prefix, handler: handler})
}

// Dispatch handles ev and delivers the replies. The returned error is the
// unexpected failure, if any; the actor has already been answered.
func (r *Router) Dispatch(ctx context.Context, ev Event) error {
	log := r.eventLogger(ctx, ev)
	started := time.Now()

	if ev.CallbackID != "" && r.responder != nil {
		if err := r.responder.AnswerCallback(ctx, ev.CallbackID); err != nil {
			log.Debug("answer callback failed", zap.Error(err))
		}
	}

	replies, err := r.Handle(ctx, ev)
	for _, reply := range replies {
		r.deliver(ctx, ev, reply, log)
	}
	if err != nil {
		log.Error("event failed", zap.Error(err), zap.Duration("took", time.Since(started)))
		return err
	}
	log.Debug("event handled", zap.Int("replies", len(replies)), zap.Duration("took", time.Since(started)))
	return nil
}

// Handle routes ev and returns the replies without sending them. Denials become
// replies; any other failure is returned together with a generic apology.
func (r *Router) Handle(ctx context.Context, ev Event) ([]Reply, error) {
	handler := r.route(ev)
	if handler == nil {
		return nil, nil
	}
	replies, err := handler(ctx, ev)
	if err == nil {
		return replies, nil
	}
	if denial, ok := notify.DenialText(err); ok {
		return text("%s", denial), nil
	}
	return text(notify.TextInternalError), err
}

func (r *Router) route(ev Event) HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch ev.Kind {
	case KindCommand:
		if handler, ok := r.commands[foldCommand(ev.Command)]; ok {
			return handler
		}
		return r.onUnknownCommand
	case KindButton:
		if handler, ok := r.buttons[ev.Tag]; ok {
			return handler
		}
		for _, route := range r.prefixes {
			if strings.HasPrefix(ev.Tag, route.prefix) {
				return route.handler
			}
		}
	case KindText:
		return r.onText
	case KindFile:
		return r.onFile
	}
	return nil
}

func (r *Router) deliver(ctx context.Context, ev Event, reply Reply, log *zap.Logger) {
	if r.responder == nil {
		return
	}
	if reply.Replace && ev.MessageID != 0 {
		err := r.responder.Edit(ctx, ev.chat(), ev.MessageID, reply.Message)
		if err == nil {
			return
		}
		log.Debug("edit failed, sending a new message", zap.Error(err))
	}
	if err := r.responder.Send(ctx, ev.chat(), reply.Message); err != nil {
		log.Warn("reply not delivered", zap.Error(err))
	}
}

func (r *Router) eventLogger(ctx context.Context, ev Event) *zap.Logger {
	log := logger.WithRequestID(ctx, r.logger).With(
		zap.String("kind", string(ev.Kind)),
		zap.Int64("actor_id", ev.ActorID),
	)
	if ev.ID != "" {
		log = log.With(zap.String("event_id", ev.ID))
	}
	switch ev.Kind {
	case KindCommand:
		log = log.With(zap.String("command", ev.Command))
	case KindButton:
		log = log.With(zap.String("tag", ev.Tag))
	}
	return log
}

func foldCommand(name string) string {
	return cases.Fold().String(strings.TrimPrefix(strings.TrimSpace(name), "/"))
}
