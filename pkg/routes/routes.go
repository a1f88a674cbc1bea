// Package routes assembles the HTTP API
package routes

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/routes/analysis"
	"github.com/Ramsey-B/clover/pkg/routes/health"
	"github.com/Ramsey-B/clover/pkg/routes/splits"
)

// Options configures the server
type Options struct {
	ServiceName  string
	MaxBodySize  string
	AllowOrigins []string
	AllowMethods []string
	Tracing      bool
}

// NewServer builds the echo server with middleware and every route registered
func NewServer(opts Options, logger ectologger.Logger, checker *health.Checker, splitHandler *splits.Handler, analysisHandler *analysis.Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	if opts.Tracing {
		e.Use(otelecho.Middleware(opts.ServiceName))
	}
	e.Use(echomiddleware.Recover())
	if opts.MaxBodySize != "" {
		e.Use(echomiddleware.BodyLimit(opts.MaxBodySize))
	}
	if len(opts.AllowOrigins) > 0 {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins: opts.AllowOrigins,
			AllowMethods: opts.AllowMethods,
		}))
	}
	e.Use(middleware.Context(), middleware.Logger(logger))

	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	splitHandler.Register(api)
	analysisHandler.Register(api)
	return e
}
