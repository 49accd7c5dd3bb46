package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskdesk/api/bot"
	"github.com/fastygo/taskdesk/api/transport"
	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/internal/gateway/telegram"
	"github.com/fastygo/taskdesk/pkg/httpcontext"
	appLogger "github.com/fastygo/taskdesk/pkg/logger"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// EventDispatcher handles one decoded chat event.
type EventDispatcher interface {
	Dispatch(ctx context.Context, ev bot.Event) error
}

// WebhookHandler receives Bot API updates pushed by Telegram.
type WebhookHandler struct {
	baseHandler
	dispatcher EventDispatcher
	secret     string
}

func NewWebhookHandler(dispatcher EventDispatcher, secret string, adapter *httpcontext.Adapter, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		baseHandler: newBaseHandler(adapter, logger),
		dispatcher:  dispatcher,
		secret:      secret,
	}
}

// Receive always acknowledges decodable updates with 200 so Telegram does not
// redeliver them; handling failures are logged instead.
//
// @Summary Telegram webhook
// @Tags bot
// @Router /telegram/webhook [post]
func (h *WebhookHandler) Receive(ctx *fasthttp.RequestCtx) {
	if h.secret != "" {
		got := ctx.Request.Header.Peek(secretHeader)
		if subtle.ConstantTimeCompare(got, []byte(h.secret)) != 1 {
			h.respondJSON(ctx, http.StatusUnauthorized, transport.NewError(string(domain.ErrCodeUnauthorized), "invalid secret token", nil))
			return
		}
	}

	var update telegram.Update
	if err := json.Unmarshal(ctx.PostBody(), &update); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid update", nil))
		return
	}

	ctx.SetStatusCode(http.StatusOK)
	ev, ok := telegram.Decode(update)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.dispatcher.Dispatch(stdCtx, ev); err != nil {
		appLogger.WithRequestID(stdCtx, h.logger).Warn("webhook update failed",
			zap.Int64("update_id", update.UpdateID),
			zap.Error(err),
		)
	}
}
