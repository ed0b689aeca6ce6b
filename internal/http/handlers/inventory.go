package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/archmap/archmap/internal/diagram"
)

type connectionTypeRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Color string `json:"color" validate:"required,hexcolor"`
}

type connectionTypeResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type streamColorRequest struct {
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

type streamResponse struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Color             string `json:"color,omitempty"`
	AllowedForDiagram bool   `json:"allowed_for_diagram"`
}

type integrationRequest struct {
	SourceAppID       int64   `json:"source_app_id" validate:"required,gt=0"`
	TargetAppID       int64   `json:"target_app_id" validate:"required,gt=0,nefield=SourceAppID"`
	ConnectionTypeIDs []int64 `json:"connection_type_ids" validate:"omitempty,dive,gt=0"`
}

type integrationResponse struct {
	ID                int64   `json:"id"`
	SourceAppID       int64   `json:"source_app_id"`
	TargetAppID       int64   `json:"target_app_id"`
	ConnectionTypeIDs []int64 `json:"connection_type_ids"`
}

// HandleUpdateConnectionType serves PATCH /api/connection-types/:id.
func (h *Handlers) HandleUpdateConnectionType(c *echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return renderBadID(c, "connection type")
	}
	var req connectionTypeRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}
	ct, err := h.Service.UpdateConnectionType(c.Request().Context(), id, req.Name, req.Color)
	if err != nil {
		return h.renderServiceError(c, err)
	}
	return c.JSON(http.StatusOK, connectionTypeResponse{ID: ct.ID, Name: ct.Name, Color: ct.Color})
}

// HandleDeleteConnectionType serves DELETE /api/connection-types/:id.
func (h *Handlers) HandleDeleteConnectionType(c *echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return renderBadID(c, "connection type")
	}
	if err := h.Service.DeleteConnectionType(c.Request().Context(), id); err != nil {
		return h.renderServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleUpdateStreamColor serves PATCH /api/streams/:id/color. An empty
// color clears it.
func (h *Handlers) HandleUpdateStreamColor(c *echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return renderBadID(c, "stream")
	}
	var req streamColorRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}
	st, err := h.Service.UpdateStreamColor(c.Request().Context(), id, req.Color)
	if err != nil {
		return h.renderServiceError(c, err)
	}
	return c.JSON(http.StatusOK, streamResponse{
		ID:                st.ID,
		Name:              st.Name,
		Color:             st.Color,
		AllowedForDiagram: st.AllowedForDiagram,
	})
}

// HandleCreateIntegration serves POST /api/integrations.
func (h *Handlers) HandleCreateIntegration(c *echo.Context) error {
	var req integrationRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}
	in, err := h.Service.CreateIntegration(c.Request().Context(), req.SourceAppID, req.TargetAppID, req.ConnectionTypeIDs)
	if err != nil {
		return h.renderServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, integrationFromDomain(in))
}

// HandleDeleteIntegration serves DELETE /api/integrations/:id.
func (h *Handlers) HandleDeleteIntegration(c *echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return renderBadID(c, "integration")
	}
	if err := h.Service.DeleteIntegration(c.Request().Context(), id); err != nil {
		return h.renderServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func integrationFromDomain(in diagram.Integration) integrationResponse {
	out := integrationResponse{
		ID:                in.ID,
		SourceAppID:       in.SourceAppID,
		TargetAppID:       in.TargetAppID,
		ConnectionTypeIDs: []int64{},
	}
	for _, c := range in.Connections {
		if c.ConnectionTypeID != nil {
			out.ConnectionTypeIDs = append(out.ConnectionTypeIDs, *c.ConnectionTypeID)
		}
	}
	return out
}
