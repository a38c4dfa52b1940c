package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskledger/api/transport"
	"github.com/fastygo/taskledger/domain"
	"github.com/fastygo/taskledger/pkg/httpcontext"
	statsUC "github.com/fastygo/taskledger/usecase/stats"
)

// Clock yields the current calendar day in the service timezone.
type Clock interface {
	Today() domain.Date
}

type ReportHandler struct {
	baseHandler
	uc    *statsUC.UseCase
	clock Clock
}

func NewReportHandler(uc *statsUC.UseCase, clock Clock, adapter *httpcontext.Adapter, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		clock:       clock,
	}
}

// @Summary Per-assignee totals for a day
// @Tags reports
// @Router /api/v1/stats [get]
func (h *ReportHandler) Stats(ctx *fasthttp.RequestCtx) {
	date, err := dateArg(ctx, "date", h.clock.Today())
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	stats, err := h.uc.StatsForDate(stdCtx, date)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondWithMeta(ctx, http.StatusOK, stats, map[string]interface{}{
		"date":  date,
		"total": stats.Sum(),
	})
}

// @Summary Export tasks for a period as JSON or CSV
// @Tags reports
// @Router /api/v1/export [get]
func (h *ReportHandler) Export(ctx *fasthttp.RequestCtx) {
	from, to, err := h.exportRange(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	rows, err := h.uc.Export(stdCtx, from, to)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	if strings.EqualFold(string(ctx.QueryArgs().Peek("format")), "csv") {
		var buf bytes.Buffer
		if err := statsUC.WriteCSV(&buf, rows); err != nil {
			h.respondError(ctx, err)
			return
		}
		ctx.Response.Header.SetContentType("text/csv; charset=utf-8")
		ctx.Response.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"tasks_%s_%s.csv\"", from, to))
		ctx.SetStatusCode(http.StatusOK)
		ctx.SetBody(buf.Bytes())
		return
	}

	h.respondWithMeta(ctx, http.StatusOK, rows, transport.RangeMeta{
		From:  from.String(),
		To:    to.String(),
		Count: len(rows),
	})
}

func (h *ReportHandler) exportRange(ctx *fasthttp.RequestCtx) (domain.Date, domain.Date, error) {
	args := ctx.QueryArgs()
	if args.Has("from") || args.Has("to") {
		from, err := domain.ParseDate(string(args.Peek("from")))
		if err != nil {
			return "", "", err
		}
		to, err := domain.ParseDate(string(args.Peek("to")))
		if err != nil {
			return "", "", err
		}
		return from, to, nil
	}
	return statsUC.PeriodRange(string(args.Peek("period")), h.clock.Today())
}
