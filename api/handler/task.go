package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskdesk/api/transport"
	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/pkg/httpcontext"
	taskUC "github.com/fastygo/taskdesk/usecase/task"
)

// TaskReader is the read side of the task lifecycle machine.
type TaskReader interface {
	List(ctx context.Context, actorID int64, view taskUC.View) ([]domain.Task, error)
	Details(ctx context.Context, actorID, taskID int64) (*domain.TaskDetails, error)
}

type TaskHandler struct {
	baseHandler
	tasks TaskReader
}

func NewTaskHandler(tasks TaskReader, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		tasks:       tasks,
	}
}

// @Summary List tasks of a view (active, review, done, overdue)
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actorID, ok := h.actorID(ctx, stdCtx)
	if !ok {
		return
	}

	query := transport.ParseTaskListQuery(ctx.QueryArgs())
	view, err := taskUC.ParseView(query.View)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	tasks, err := h.tasks.List(stdCtx, actorID, view)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	h.respondSuccess(ctx, http.StatusOK, tasks, transport.ListMeta{View: string(view), Count: len(tasks)})
}

// @Summary Task with comments, attachments and audit trail
// @Tags tasks
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) GetTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actorID, ok := h.actorID(ctx, stdCtx)
	if !ok {
		return
	}

	taskID, ok := transport.ParseID(ctx.UserValue("id"))
	if !ok {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid task id", nil))
		return
	}

	details, err := h.tasks.Details(stdCtx, actorID, taskID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, details, nil)
}
