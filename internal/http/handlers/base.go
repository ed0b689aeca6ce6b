// Package handlers contains the JSON API handlers split by resource.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v5"

	"github.com/archmap/archmap/internal/diagram"
	"github.com/archmap/archmap/internal/layoutsync"
)

const (
	// ContextKeyRequestID stores the request id (X-Request-ID) for logging and client error references.
	ContextKeyRequestID = "request_id"

	// InternalErrorCode is a stable error code safe to return to clients.
	InternalErrorCode = "INTERNAL_ERROR"
)

// DiagramService is the subset of layoutsync.Service the API exposes.
type DiagramService interface {
	GetDiagram(ctx context.Context, ref, role string) (layoutsync.Diagram, error)
	GetStreamDiagram(ctx context.Context, name, role string) (layoutsync.Diagram, error)
	GetAppDiagram(ctx context.Context, appID int64, role string) (layoutsync.Diagram, error)
	SaveLayout(ctx context.Context, req layoutsync.SaveLayoutRequest) (layoutsync.SaveLayoutResult, error)
	ResetLayout(ctx context.Context, key diagram.LayoutKey) (bool, error)
	RefreshStream(ctx context.Context, name string) (layoutsync.RefreshResult, error)
	RefreshAll(ctx context.Context) (layoutsync.RefreshResult, error)
	UpdateConnectionType(ctx context.Context, id int64, name, color string) (diagram.ConnectionType, error)
	DeleteConnectionType(ctx context.Context, id int64) error
	UpdateStreamColor(ctx context.Context, id int64, color string) (diagram.Stream, error)
	CreateIntegration(ctx context.Context, sourceAppID, targetAppID int64, connectionTypeIDs []int64) (diagram.Integration, error)
	DeleteIntegration(ctx context.Context, id int64) error
}

// Handlers groups all HTTP handlers and shared dependencies.
type Handlers struct {
	Service  DiagramService
	Validate *validator.Validate
}

func New(svc DiagramService) *Handlers {
	return &Handlers{Service: svc, Validate: NewValidator()}
}

// NewValidator reports field errors under their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type errorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind,omitempty"`
	Field  string            `json:"field,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// HandleHealthz reports liveness.
func (h *Handlers) HandleHealthz(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// RenderError logs err and returns a generic 500 that carries only the
// request id and a stable code.
func (h *Handlers) RenderError(c *echo.Context, err error) error {
	requestID, _ := c.Get(ContextKeyRequestID).(string)
	path := ""
	if req := c.Request(); req != nil && req.URL != nil {
		path = req.URL.Path
	}
	method := ""
	if req := c.Request(); req != nil {
		method = req.Method
	}
	c.Logger().Error("http error",
		"request_id", requestID,
		"method", method,
		"path", path,
		"ip", c.RealIP(),
		"err", err,
	)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: InternalErrorMessage(requestID)})
}

// InternalErrorMessage is the client-facing text of an internal error.
func InternalErrorMessage(requestID string) string {
	msg := "Internal server error."
	if requestID != "" {
		msg = fmt.Sprintf("%s Reference: %s.", msg, requestID)
	}
	return fmt.Sprintf("%s Code: %s.", msg, InternalErrorCode)
}

// RenderNotFound returns a 404 response.
func RenderNotFound(c *echo.Context) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: "not found", Kind: "not_found"})
}

// renderServiceError maps domain errors to 404, 422 and 409. Anything else
// is an internal error.
func (h *Handlers) renderServiceError(c *echo.Context, err error) error {
	var notFound *diagram.NotFoundError
	var invalid *diagram.ValidationError
	var conflict *diagram.ConflictError
	switch {
	case errors.As(err, &notFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: notFound.Error(), Kind: "not_found"})
	case errors.As(err, &invalid):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: invalid.Error(), Kind: "validation", Field: invalid.Field})
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, errorResponse{Error: conflict.Error(), Kind: "conflict"})
	default:
		return h.RenderError(c, err)
	}
}

// bindAndValidate decodes the JSON body into dst and checks its tags.
// It writes the error response itself and returns false on failure.
func (h *Handlers) bindAndValidate(c *echo.Context, dst any) (bool, error) {
	if err := c.Bind(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body", Kind: "bad_request"})
	}
	v := h.Validate
	if v == nil {
		v = NewValidator()
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return false, h.RenderError(c, err)
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fieldPath(fe)] = fe.Tag()
		}
		return false, c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Kind: "validation", Fields: fields})
	}
	return true, nil
}

// fieldPath drops the top-level struct name from a namespace such as
// "integrationRequest.source_app_id".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// pathID parses a positive integer path parameter.
func pathID(c *echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func renderBadID(c *echo.Context, what string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid " + what + " id", Kind: "bad_request"})
}
