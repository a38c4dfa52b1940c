package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskledger/api/transport"
	"github.com/fastygo/taskledger/domain"
	"github.com/fastygo/taskledger/pkg/httpcontext"
	identityUC "github.com/fastygo/taskledger/usecase/identity"
	materializeUC "github.com/fastygo/taskledger/usecase/materialize"
	rolloverUC "github.com/fastygo/taskledger/usecase/rollover"
)

type AdminHandler struct {
	baseHandler
	materializer *materializeUC.UseCase
	roller       *rolloverUC.UseCase
	identity     *identityUC.UseCase
	clock        Clock
}

func NewAdminHandler(
	materializer *materializeUC.UseCase,
	roller *rolloverUC.UseCase,
	identity *identityUC.UseCase,
	clock Clock,
	adapter *httpcontext.Adapter,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		baseHandler:  newBaseHandler(adapter, logger),
		materializer: materializer,
		roller:       roller,
		identity:     identity,
		clock:        clock,
	}
}

type materializeResult struct {
	AssigneeID string        `json:"assignee_id"`
	Configured bool          `json:"configured"`
	Created    []domain.Task `json:"created"`
	Error      string        `json:"error,omitempty"`
}

// @Summary Create the day's recurring tasks now
// @Tags admin
// @Router /api/v1/admin/materialize [post]
func (h *AdminHandler) Materialize(ctx *fasthttp.RequestCtx) {
	date, err := dateArg(ctx, "date", h.clock.Today())
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	results := h.materializer.RunAll(stdCtx, date)
	out := make([]materializeResult, 0, len(results))
	for _, r := range results {
		item := materializeResult{AssigneeID: r.AssigneeID, Configured: r.Configured(), Created: r.Created}
		if item.Created == nil {
			item.Created = []domain.Task{}
		}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		out = append(out, item)
	}
	h.requestLogger(stdCtx).Info("manual materialization", zap.String("date", date.String()))
	h.respondWithMeta(ctx, http.StatusOK, out, map[string]interface{}{"date": date})
}

// @Summary Carry open tasks forward now
// @Tags admin
// @Router /api/v1/admin/rollover [post]
func (h *AdminHandler) RollOver(ctx *fasthttp.RequestCtx) {
	from, err := dateArg(ctx, "from", h.clock.Today())
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	to, err := dateArg(ctx, "to", from.AddDays(1))
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	carried, err := h.roller.RollOver(stdCtx, from, to)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondWithMeta(ctx, http.StatusOK, carried, map[string]interface{}{
		"from":   from,
		"to":     to,
		"count":  len(carried),
		"policy": h.roller.Policy(),
	})
}

// @Summary List admins
// @Tags admin
// @Router /api/v1/admin/admins [get]
func (h *AdminHandler) ListAdmins(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	admins, err := h.identity.ListAdmins(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, admins)
}

// @Summary Grant admin rights
// @Tags admin
// @Router /api/v1/admin/admins [post]
func (h *AdminHandler) AddAdmin(ctx *fasthttp.RequestCtx) {
	var req transport.AdminRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	admins, err := h.identity.AddAdmin(stdCtx, req.ID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, admins)
}

// @Summary Revoke admin rights
// @Tags admin
// @Router /api/v1/admin/admins/{id} [delete]
func (h *AdminHandler) RemoveAdmin(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	admins, err := h.identity.RemoveAdmin(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, admins)
}
