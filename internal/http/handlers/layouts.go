package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/archmap/archmap/internal/diagram"
	"github.com/archmap/archmap/internal/layoutsync"
)

type saveLayoutRequest struct {
	NodesLayout     map[string]diagram.NodeLayout `json:"nodes_layout" validate:"dive,keys,required,endkeys"`
	EdgesLayout     []diagram.Edge                `json:"edges_layout"`
	Config          map[string]any                `json:"config"`
	ExpectedVersion *int64                        `json:"expected_version" validate:"omitempty,min=0"`
}

type resetLayoutResponse struct {
	Kind    diagram.LayoutKind `json:"kind"`
	Key     string             `json:"key"`
	Deleted bool               `json:"deleted"`
}

// HandleSaveLayout serves PUT /api/layouts/:kind/:key.
func (h *Handlers) HandleSaveLayout(c *echo.Context) error {
	key, err := diagram.ParseLayoutKey(c.Param("kind"), c.Param("key"))
	if err != nil {
		return h.renderServiceError(c, err)
	}
	var req saveLayoutRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.Service.SaveLayout(c.Request().Context(), layoutsync.SaveLayoutRequest{
		Key:             key,
		NodesLayout:     req.NodesLayout,
		EdgesLayout:     req.EdgesLayout,
		Config:          req.Config,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		return h.renderServiceError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// HandleResetLayout serves DELETE /api/layouts/:kind/:key.
func (h *Handlers) HandleResetLayout(c *echo.Context) error {
	key, err := diagram.ParseLayoutKey(c.Param("kind"), c.Param("key"))
	if err != nil {
		return h.renderServiceError(c, err)
	}
	deleted, err := h.Service.ResetLayout(c.Request().Context(), key)
	if err != nil {
		return h.renderServiceError(c, err)
	}
	return c.JSON(http.StatusOK, resetLayoutResponse{Kind: key.Kind, Key: key.Key, Deleted: deleted})
}
