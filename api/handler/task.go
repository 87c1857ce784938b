package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/todo/api/transport"
	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/pkg/httpcontext"
	taskUC "github.com/fastygo/todo/usecase/task"
)

type TaskHandler struct {
	baseHandler
	uc *taskUC.UseCase
}

func NewTaskHandler(uc *taskUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List tasks
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) ListTasks(ctx *fasthttp.RequestCtx) {
	filter, err := domain.ParseFilter(string(ctx.QueryArgs().Peek("filter")))
	if err != nil {
		h.respondInvalid(ctx, err.Error())
		return
	}
	refresh := parseBool(string(ctx.QueryArgs().Peek("refresh")))

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tasks, err := h.uc.ListTasks(stdCtx, filter, refresh)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(tasks, transport.ListMeta{
		Filter: string(filter),
		Count:  len(tasks),
	}))
}

// @Summary Create task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	var req transport.TaskRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.CreateTask(stdCtx, req.Title, req.Description)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, task)
}

// @Summary Get task
// @Tags tasks
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) GetTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.GetTask(stdCtx, taskID(ctx))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Save task
// @Tags tasks
// @Router /api/v1/tasks/{id} [put]
func (h *TaskHandler) SaveTask(ctx *fasthttp.RequestCtx) {
	var req transport.SaveTaskRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.SaveTask(stdCtx, domain.Task{
		ID:          taskID(ctx),
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Complete task
// @Tags tasks
// @Router /api/v1/tasks/{id}/complete [post]
func (h *TaskHandler) CompleteTask(ctx *fasthttp.RequestCtx) {
	h.byID(ctx, h.uc.CompleteTask)
}

// @Summary Activate task
// @Tags tasks
// @Router /api/v1/tasks/{id}/activate [post]
func (h *TaskHandler) ActivateTask(ctx *fasthttp.RequestCtx) {
	h.byID(ctx, h.uc.ActivateTask)
}

// @Summary Delete task
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	h.byID(ctx, h.uc.DeleteTask)
}

// DeleteTasks clears completed tasks when status=completed and removes every task otherwise.
//
// @Summary Delete tasks
// @Tags tasks
// @Router /api/v1/tasks [delete]
func (h *TaskHandler) DeleteTasks(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var err error
	switch status := string(ctx.QueryArgs().Peek("status")); status {
	case string(domain.FilterCompleted):
		err = h.uc.ClearCompletedTasks(stdCtx)
	case "":
		err = h.uc.DeleteAllTasks(stdCtx)
	default:
		h.respondInvalid(ctx, "unsupported status "+status)
		return
	}
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary Refresh tasks from the remote store on next read
// @Tags tasks
// @Router /api/v1/refresh [post]
func (h *TaskHandler) Refresh(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	h.uc.Refresh(stdCtx)
	h.respondSuccess(ctx, http.StatusAccepted, nil)
}

// @Summary Task statistics
// @Tags tasks
// @Router /api/v1/stats [get]
func (h *TaskHandler) Stats(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	stats, err := h.uc.Statistics(stdCtx)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, stats)
}

func (h *TaskHandler) byID(ctx *fasthttp.RequestCtx, op func(stdCtx context.Context, id string) error) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := op(stdCtx, taskID(ctx)); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// decode unmarshals and validates the request body, answering 400 on failure.
func (h *TaskHandler) decode(ctx *fasthttp.RequestCtx, req interface{}) bool {
	if err := json.Unmarshal(ctx.PostBody(), req); err != nil {
		h.respondInvalid(ctx, domain.ErrInvalidPayload.Error())
		return false
	}
	if err := transport.Validate(req); err != nil {
		h.respondInvalid(ctx, err.Error())
		return false
	}
	return true
}

func taskID(ctx *fasthttp.RequestCtx) string {
	id, _ := ctx.UserValue("id").(string)
	return id
}

func parseBool(value string) bool {
	parsed, err := strconv.ParseBool(value)
	return err == nil && parsed
}
