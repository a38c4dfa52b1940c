package handler

import (
	"net/http"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskledger/api/transport"
	"github.com/fastygo/taskledger/domain"
	"github.com/fastygo/taskledger/pkg/httpcontext"
	taskUC "github.com/fastygo/taskledger/usecase/task"
)

type TaskHandler struct {
	baseHandler
	uc     *taskUC.UseCase
	admins AdminChecker
}

func NewTaskHandler(uc *taskUC.UseCase, admins AdminChecker, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		admins:      admins,
	}
}

// @Summary List one assignee's tasks for a day
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) ListTasks(ctx *fasthttp.RequestCtx) {
	actor := h.actor(ctx)
	if actor == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	assigneeID := strings.TrimSpace(string(ctx.QueryArgs().Peek("assignee_id")))
	if assigneeID == "" {
		assigneeID = actor
	}
	if assigneeID != actor {
		admin, err := h.admins.IsAdmin(stdCtx, actor)
		if err != nil {
			h.respondError(ctx, err)
			return
		}
		if !admin {
			h.respondError(ctx, domain.ErrForbidden)
			return
		}
	}

	date, err := dateArg(ctx, "date", h.uc.Today())
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	tasks, err := h.uc.Inbox(stdCtx, assigneeID, date)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondWithMeta(ctx, http.StatusOK, tasks, transport.DayMeta{
		AssigneeID: assigneeID,
		Date:       date.String(),
		Count:      len(tasks),
	})
}

// @Summary Assign tasks to an assignee for a day
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTasks(ctx *fasthttp.RequestCtx) {
	actor := h.actor(ctx)
	if actor == "" {
		return
	}

	var req transport.AssignRequest
	if !h.decode(ctx, &req) {
		return
	}

	var date domain.Date
	if req.Date != "" {
		parsed, err := domain.ParseDate(req.Date)
		if err != nil {
			h.respondError(ctx, err)
			return
		}
		date = parsed
	}

	titles := append([]string(nil), req.Titles...)
	titles = append(titles, taskUC.ParseLines(req.Text)...)
	if len(titles) == 0 {
		h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "titles or text required"))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.Assign(stdCtx, actor, req.AssigneeID, date, titles)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Toggle a task between open and done
// @Tags tasks
// @Router /api/v1/tasks/{id}/toggle [post]
func (h *TaskHandler) ToggleTask(ctx *fasthttp.RequestCtx) {
	actor := h.actor(ctx)
	if actor == "" {
		return
	}

	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "missing task id"))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.GetTask(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if task.AssigneeID != actor {
		admin, err := h.admins.IsAdmin(stdCtx, actor)
		if err != nil {
			h.respondError(ctx, err)
			return
		}
		if !admin {
			h.respondError(ctx, domain.ErrForbidden)
			return
		}
	}

	result, err := h.uc.Toggle(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.requestLogger(stdCtx).Debug("task toggled",
		zap.String("task_id", id),
		zap.String("status", string(result.Task.Status)))
	h.respondSuccess(ctx, http.StatusOK, result)
}
