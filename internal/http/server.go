package httpapp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/archmap/archmap/internal/auth"
	"github.com/archmap/archmap/internal/config"
	"github.com/archmap/archmap/internal/diagram"
	"github.com/archmap/archmap/internal/http/authn"
	"github.com/archmap/archmap/internal/http/handlers"
	"github.com/archmap/archmap/internal/metrics"
)

const (
	readHeaderTimeout = 5 * time.Second
	maxRequestIDLen   = 128
)

// EchoServer is the HTTP server wrapper.
type EchoServer struct {
	h *handlers.Handlers
	e *echo.Echo
}

// NewEchoServer creates a new HTTP server.
func NewEchoServer(cfg config.Config, svc handlers.DiagramService, logger *slog.Logger) *EchoServer {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.Logger = logger
	es := &EchoServer{h: handlers.New(svc), e: e}
	e.HTTPErrorHandler = es.httpErrorHandler

	e.Use(requestID)
	e.Use(middleware.Recover())
	e.Use(observe)
	e.Use(authn.Principal(authn.Options{
		TrustHeaders:  cfg.TrustedAuthHeaders,
		AnonymousRole: cfg.AnonymousRole,
	}))
	es.registerRoutes()
	return es
}

func (es *EchoServer) registerRoutes() {
	es.e.GET("/healthz", es.h.HandleHealthz)

	api := es.e.Group("/api")
	api.GET("/diagrams/:ref", es.h.HandleGetDiagram)
	api.GET("/streams/:name/diagram", es.h.HandleStreamDiagram)
	api.GET("/apps/:id/diagram", es.h.HandleAppDiagram)

	admin := api.Group("", authn.RequireRole(auth.RoleAdmin))
	admin.PUT("/layouts/:kind/:key", es.h.HandleSaveLayout)
	admin.DELETE("/layouts/:kind/:key", es.h.HandleResetLayout)
	admin.POST("/streams/:name/refresh", es.h.HandleRefreshStream)
	admin.POST("/refresh", es.h.HandleRefreshAll)
	admin.PATCH("/connection-types/:id", es.h.HandleUpdateConnectionType)
	admin.DELETE("/connection-types/:id", es.h.HandleDeleteConnectionType)
	admin.PATCH("/streams/:id/color", es.h.HandleUpdateStreamColor)
	admin.POST("/integrations", es.h.HandleCreateIntegration)
	admin.DELETE("/integrations/:id", es.h.HandleDeleteIntegration)
}

// Handler exposes the router for an http.Server or tests.
func (es *EchoServer) Handler() http.Handler {
	return es.e
}

// ListenAndServe serves addr until ctx is done, then shuts down within
// shutdownTimeout.
func (es *EchoServer) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           es.e,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		es.e.Logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// httpErrorHandler renders errors that escaped the handlers. Client errors
// get their status text only; anything else is a generic internal error.
func (es *EchoServer) httpErrorHandler(c *echo.Context, err error) {
	status := httpStatusFromError(err)
	var writeErr error
	switch {
	case status >= http.StatusInternalServerError:
		writeErr = es.h.RenderError(c, err)
	case status == http.StatusNotFound:
		writeErr = handlers.RenderNotFound(c)
	default:
		writeErr = c.JSON(status, map[string]string{"error": http.StatusText(status)})
	}
	if writeErr != nil {
		es.e.Logger.Error("write error response", "err", writeErr)
	}
}

type statusCoder interface {
	StatusCode() int
}

func httpStatusFromError(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	switch {
	case diagram.IsNotFound(err):
		return http.StatusNotFound
	case diagram.IsValidation(err):
		return http.StatusUnprocessableEntity
	case diagram.IsConflict(err):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// requestID reuses a sane inbound X-Request-ID or mints one.
func requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := strings.TrimSpace(c.Request().Header.Get(echo.HeaderXRequestID))
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		c.Set(handlers.ContextKeyRequestID, id)
		c.Response().Header().Set(echo.HeaderXRequestID, id)
		return next(c)
	}
}

// observe records request counts and latency by route pattern.
func observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		start := time.Now()
		err := next(c)

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		code := http.StatusOK
		if resp, uerr := echo.UnwrapResponse(c.Response()); uerr == nil && resp.Status != 0 {
			code = resp.Status
		}
		if err != nil {
			code = httpStatusFromError(err)
		}
		method := c.Request().Method
		metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}
