package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskdesk/pkg/httpcontext"
	reportUC "github.com/fastygo/taskdesk/usecase/report"
)

type SummaryBuilder interface {
	Build(ctx context.Context, now time.Time) (*reportUC.Summary, error)
}

type ReportHandler struct {
	baseHandler
	reports SummaryBuilder
	now     func() time.Time
}

func NewReportHandler(reports SummaryBuilder, adapter *httpcontext.Adapter, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		baseHandler: newBaseHandler(adapter, logger),
		reports:     reports,
		now:         time.Now,
	}
}

// @Summary Current overdue, on-review and active counts
// @Tags report
// @Router /api/v1/report [get]
func (h *ReportHandler) GetReport(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, ok := h.actorID(ctx, stdCtx); !ok {
		return
	}

	summary, err := h.reports.Build(stdCtx, h.now())
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, summary, nil)
}
