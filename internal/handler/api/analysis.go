package api

import (
	"net/http"
	"strconv"
	"time"

	models "MacroPulse/internal/domain/models"
	"MacroPulse/internal/service/metrics"
	"MacroPulse/internal/service/ratelimit"
	"MacroPulse/internal/usecase"
	xhttp "MacroPulse/pkg/http"
	xlogger "MacroPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AnalysisHandler exposes the analysis guard. Clients are limited
// individually on top of the guard's global cooldown.
type AnalysisHandler struct {
	logger  *xlogger.Logger
	guard   *usecase.AnalysisGuard
	limiter *ratelimit.Limiter
	metrics *metrics.EndpointMetrics
}

func NewAnalysisHandler(logger *xlogger.Logger, guard *usecase.AnalysisGuard, limiter *ratelimit.Limiter, m *metrics.EndpointMetrics) *AnalysisHandler {
	return &AnalysisHandler{logger: logger, guard: guard, limiter: limiter, metrics: m}
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/analysis/:subject", h.Analysis)
}

func (h *AnalysisHandler) Analysis(c echo.Context) error {
	start := time.Now()
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ErrorsResponse(c, verr)
	}
	if !h.guard.KnownSubject(req.Subject) {
		return xhttp.AppErrorResponse(c,
			xhttp.InvalidParameterError("subject", "unknown subject").WithParam("value", req.Subject))
	}

	if h.limiter != nil {
		if ok, wait := h.limiter.Allow(c.RealIP()); !ok {
			setRetryAfter(c, wait)
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("client rate limit exceeded"))
		}
	}

	res := h.guard.GetAnalysis(c.Request().Context(), req.Subject)
	h.metrics.Observe("analysis", start, res.Status == models.AnalysisDegraded)

	if res.Status == models.AnalysisWait {
		setRetryAfter(c, res.RetryAfter)
		return xhttp.DataResponse(c, http.StatusTooManyRequests, res)
	}
	return xhttp.SuccessResponse(c, res)
}

func setRetryAfter(c echo.Context, wait time.Duration) {
	c.Response().Header().Set("Retry-After", strconv.FormatInt(retryAfterSeconds(wait), 10))
}

// retryAfterSeconds rounds wait up to whole seconds, at least 1.
func retryAfterSeconds(wait time.Duration) int64 {
	secs := int64(wait / time.Second)
	if wait%time.Second > 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}
