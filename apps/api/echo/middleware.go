package echoapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aulanet/campus/core/authz"
)

var (
	reqCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "code"})

	reqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "campus",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	deniedCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus",
		Subsystem: "authz",
		Name:      "denials_total",
		Help:      "Permission denials by route.",
	}, []string{"route"})
)

func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)

		route := ctx.Path()
		method := ctx.Request().Method
		code := ctx.Response().Status
		if err != nil {
			if herr, ok := errors.Cause(err).(*echo.HTTPError); ok {
				code = herr.Code
			} else if authz.IsPermissionError(errors.Cause(err)) {
				code = http.StatusForbidden
			}
		}
		if code == http.StatusForbidden {
			deniedCount.WithLabelValues(route).Inc()
		}
		reqCount.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
		reqDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

// maintenanceMiddleware rejects everything but /metrics and / with 503 while
// the persisted maintenance flag is on. The settings route stays reachable so
// an admin can turn the flag back off.
func (s *server) maintenanceMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if strings.HasPrefix(ctx.Request().URL.Path, "/v1/settings") {
			return next(ctx)
		}
		settings, err := s.opts.SettingsSvc.Get(ctx.Request().Context())
		if err != nil {
			// settings row unavailable: fail open, a broken settings table
			// must not take the API down
			return next(ctx)
		}
		if settings.MaintenanceMode {
			ctx.Response().Header().Set("Retry-After", strconv.Itoa(settings.RetryAfterSecs))
			return ctx.JSON(http.StatusServiceUnavailable, echo.Map{
				"error": "El campus está en mantenimiento, reintentá más tarde",
			})
		}
		return next(ctx)
	}
}

// roleMiddleware gates a route on the caller's (fresh) role.
func (s *server) roleMiddleware(allowed ...authz.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ident, err := s.getContextIdentity(ctx)
			if err != nil {
				return err
			}
			if err := authz.RequireRole(ident, allowed...); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}
