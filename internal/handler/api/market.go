package api

import (
	"net/http"
	"time"

	models "MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	"MacroPulse/internal/service/metrics"
	"MacroPulse/internal/usecase"
	xhttp "MacroPulse/pkg/http"
	xlogger "MacroPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketHandler serves the snapshot, candles and the static side documents.
type MarketHandler struct {
	logger   *xlogger.Logger
	snap     *usecase.SnapshotHolder
	agg      *usecase.CandleAggregator
	store    domrepo.TickStore
	news     *usecase.NewsUseCase
	reserves *usecase.ReservesReader
	metrics  *metrics.EndpointMetrics
}

func NewMarketHandler(
	logger *xlogger.Logger,
	snap *usecase.SnapshotHolder,
	agg *usecase.CandleAggregator,
	store domrepo.TickStore,
	news *usecase.NewsUseCase,
	reserves *usecase.ReservesReader,
	m *metrics.EndpointMetrics,
) *MarketHandler {
	return &MarketHandler{
		logger:   logger,
		snap:     snap,
		agg:      agg,
		store:    store,
		news:     news,
		reserves: reserves,
		metrics:  m,
	}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/snapshot", h.Snapshot)
	g.GET("/candles", h.Candles)
	g.GET("/news", h.News)
	g.GET("/reserves", h.Reserves)
}

func (h *MarketHandler) Snapshot(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, h.snap.Load())
}

func (h *MarketHandler) Candles(c echo.Context) error {
	start := time.Now()
	req := &models.CandlesRequest{}
	if verr := xhttp.RejectEmptyQuery(c, "indicator", "interval", "range"); verr != nil {
		return xhttp.ErrorsResponse(c, verr)
	}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ErrorsResponse(c, verr)
	}
	interval, aerr := xhttp.ParseSpanParam("interval", req.Interval)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}
	rng, aerr := xhttp.ParseSpanParam("range", req.Range)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	candles, err := h.agg.Aggregate(c.Request().Context(), req.Indicator, interval.Milliseconds(), rng.Milliseconds())
	h.metrics.Observe("candles", start, err != nil)
	if err != nil {
		h.logger.Error("candles usecase error",
			xlogger.String("indicator", req.Indicator),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, candles)
}

func (h *MarketHandler) News(c echo.Context) error {
	start := time.Now()
	req := &models.NewsRequest{}
	if verr := xhttp.RejectEmptyQuery(c, "limit"); verr != nil {
		return xhttp.ErrorsResponse(c, verr)
	}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ErrorsResponse(c, verr)
	}
	hs, err := h.news.Headlines(c.Request().Context(), req.Limit)
	h.metrics.Observe("news", start, err != nil)
	if err != nil {
		h.logger.Warn("news unavailable", xlogger.Error(err))
		// degrade to an empty list
		hs = []models.Headline{}
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=60")
	return xhttp.SuccessResponse(c, hs)
}

func (h *MarketHandler) Reserves(c echo.Context) error {
	doc, err := h.reserves.Read()
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, doc)
}

func (h *MarketHandler) Health(c echo.Context) error {
	if err := h.store.Health(c.Request().Context()); err != nil {
		h.logger.Error("tick store unhealthy", xlogger.Error(err))
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{"store": err.Error()})
	}
	return xhttp.SuccessResponse(c, map[string]string{"store": "ok"})
}
