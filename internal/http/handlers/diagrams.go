package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/archmap/archmap/internal/http/authn"
)

// HandleGetDiagram serves GET /api/diagrams/:ref where ref is a stream name
// or an app id.
func (h *Handlers) HandleGetDiagram(c *echo.Context) error {
	d, err := h.Service.GetDiagram(c.Request().Context(), c.Param("ref"), authn.RoleFromContext(c))
	if err != nil {
		return h.renderServiceError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handlers) HandleStreamDiagram(c *echo.Context) error {
	d, err := h.Service.GetStreamDiagram(c.Request().Context(), c.Param("name"), authn.RoleFromContext(c))
	if err != nil {
		return h.renderServiceError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handlers) HandleAppDiagram(c *echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return renderBadID(c, "app")
	}
	d, err := h.Service.GetAppDiagram(c.Request().Context(), id, authn.RoleFromContext(c))
	if err != nil {
		return h.renderServiceError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}
