package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"
)

// HandleRefreshStream serves POST /api/streams/:name/refresh.
func (h *Handlers) HandleRefreshStream(c *echo.Context) error {
	res, err := h.Service.RefreshStream(c.Request().Context(), c.Param("name"))
	if err != nil {
		return h.renderServiceError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// HandleRefreshAll serves POST /api/refresh.
func (h *Handlers) HandleRefreshAll(c *echo.Context) error {
	res, err := h.Service.RefreshAll(c.Request().Context())
	if err != nil {
		return h.renderServiceError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
