package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"BoltX/internal/domain/models"
	"BoltX/internal/domain/service"
	"BoltX/internal/service/metrics"
	"BoltX/internal/service/ratelimit"
	"BoltX/internal/usecase"
	xhttp "BoltX/pkg/http"
	xlogger "BoltX/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RiskService is the use case surface the HTTP layer needs.
type RiskService interface {
	Evaluate(ctx context.Context, customerID, sessionID string) (*models.RiskResult, error)
	History(ctx context.Context, customerID, sessionID string, limit int) ([]*models.PersistedPrediction, error)
}

var _ RiskService = (*usecase.RiskUseCase)(nil)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

const identityKey = "identity"

// RiskEchoHandler serves the checkout risk endpoints.
type RiskEchoHandler struct {
	logger     *xlogger.Logger
	risk       RiskService
	auth       service.IdentityResolver
	authHeader string
	limiter    *ratelimit.Limiter
	checks     map[string]HealthCheck
	stream     StreamConfig
}

// HandlerOption configures RiskEchoHandler.
type HandlerOption func(*RiskEchoHandler)

// WithRateLimiter enables per-customer rate limiting.
func WithRateLimiter(l *ratelimit.Limiter) HandlerOption {
	return func(h *RiskEchoHandler) { h.limiter = l }
}

// WithHealthCheck adds a named dependency check to /healthz.
func WithHealthCheck(name string, check HealthCheck) HandlerOption {
	return func(h *RiskEchoHandler) { h.checks[name] = check }
}

// WithStream configures the websocket stream.
func WithStream(cfg StreamConfig) HandlerOption {
	return func(h *RiskEchoHandler) {
		if cfg.Interval > 0 {
			h.stream.Interval = cfg.Interval
		}
		if cfg.WriteTimeout > 0 {
			h.stream.WriteTimeout = cfg.WriteTimeout
		}
	}
}

func NewRiskEchoHandler(logger *xlogger.Logger, risk RiskService, auth service.IdentityResolver, authHeader string, opts ...HandlerOption) *RiskEchoHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	if authHeader == "" {
		authHeader = echo.HeaderAuthorization
	}
	h := &RiskEchoHandler{
		logger:     logger,
		risk:       risk,
		auth:       auth,
		authHeader: authHeader,
		checks:     make(map[string]HealthCheck),
		stream:     StreamConfig{Interval: 5 * time.Second, WriteTimeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *RiskEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api/checkout", h.authenticate, h.rateLimit)
	g.GET("/risk", h.Risk)
	g.GET("/risk/history", h.RiskHistory)
	g.GET("/risk/stream", h.RiskStream)
}

func (h *RiskEchoHandler) Risk(c echo.Context) error {
	const endpoint = "risk"
	defer metrics.ObserveSince(endpoint, time.Now())

	req := &models.RiskRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.EndpointErrors.WithLabelValues(endpoint, "400").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	id := identityFrom(c)

	res, err := h.risk.Evaluate(c.Request().Context(), id.CustomerID, req.SessionID)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, res)
}

func (h *RiskEchoHandler) RiskHistory(c echo.Context) error {
	const endpoint = "risk_history"
	defer metrics.ObserveSince(endpoint, time.Now())

	req := &models.RiskHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.EndpointErrors.WithLabelValues(endpoint, "400").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	id := identityFrom(c)

	rows, err := h.risk.History(c.Request().Context(), id.CustomerID, req.SessionID, req.Limit)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *RiskEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	out := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("health check failed", xlogger.String("dependency", name), xlogger.Error(err))
			out[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		out[name] = "up"
	}
	return xhttp.DataResponse(c, status, out)
}

// authenticate resolves the caller from the configured header.
func (h *RiskEchoHandler) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cred := c.Request().Header.Get(h.authHeader)
		id, err := h.auth.Resolve(c.Request().Context(), cred)
		if err != nil {
			return h.fail(c, "auth", err)
		}
		if !id.Entitled {
			return h.fail(c, "auth", xhttp.ForbiddenError("checkout risk is not enabled for this account"))
		}
		c.Set(identityKey, id)
		return next(c)
	}
}

func (h *RiskEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter == nil {
			return next(c)
		}
		id := identityFrom(c)
		if !h.limiter.Allow(id.CustomerID) {
			h.logger.Warn("rate limited", xlogger.String("customer_id", id.CustomerID))
			return h.fail(c, "rate_limit", xhttp.TooManyRequestsError("too many requests"))
		}
		return next(c)
	}
}

func identityFrom(c echo.Context) service.Identity {
	id, _ := c.Get(identityKey).(service.Identity)
	return id
}

// toAppError maps use case and identity errors onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, usecase.ErrMissingCustomer):
		return xhttp.BadRequestError("customerId", "customer id is required").WithError(err)
	case errors.Is(err, usecase.ErrMissingSession):
		return xhttp.BadRequestError("sessionId", "sessionId is required").WithError(err)
	case errors.Is(err, usecase.ErrSessionNotFound):
		return xhttp.NotFoundError("checkout session not found").WithError(err)
	case errors.Is(err, service.ErrMissingCredential):
		return xhttp.UnauthorizedError("missing credential").WithError(err)
	case errors.Is(err, service.ErrInvalidCredential):
		return xhttp.UnauthorizedError("invalid credential").WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}

func (h *RiskEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := toAppError(err)
	metrics.EndpointErrors.WithLabelValues(endpoint, strconv.Itoa(appErr.Status)).Inc()
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error("risk endpoint error", xlogger.String("endpoint", endpoint), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
