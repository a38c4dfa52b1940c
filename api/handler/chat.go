package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskledger/api/transport"
	"github.com/fastygo/taskledger/domain"
	"github.com/fastygo/taskledger/pkg/httpcontext"
	chatUC "github.com/fastygo/taskledger/usecase/chat"
)

type ChatHandler struct {
	baseHandler
	uc     *chatUC.UseCase
	admins AdminChecker
}

func NewChatHandler(uc *chatUC.UseCase, admins AdminChecker, adapter *httpcontext.Adapter, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		admins:      admins,
	}
}

// Handle runs the message as the token's user. Relaying for a different
// actor_id requires an admin token, which is what the chat gateway holds.
//
// @Summary Run a chat command on behalf of a user
// @Tags chat
// @Router /api/v1/chat [post]
func (h *ChatHandler) Handle(ctx *fasthttp.RequestCtx) {
	actor := h.actor(ctx)
	if actor == "" {
		return
	}

	var req transport.ChatRequest
	if !h.decode(ctx, &req) {
		return
	}
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if req.ActorID == "" {
		req.ActorID = actor
	}
	if req.ActorID != actor {
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

	reply, err := h.uc.Handle(stdCtx, chatUC.Message{
		ActorID:  req.ActorID,
		Username: req.Username,
		FullName: req.FullName,
		Text:     req.Text,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, reply)
}
