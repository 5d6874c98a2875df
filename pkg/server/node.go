package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"osdsched/pkg/log"
	"osdsched/pkg/models"
	"osdsched/pkg/osd"
)

// listNodes handles GET /osd.
func (srv *SchedulerServer) listNodes(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, models.NodeList{Nodes: srv.registry.Statuses()})
}

// getNode handles GET /osd/{id}.
func (srv *SchedulerServer) getNode(ctx echo.Context) error {
	id := ctx.Param("id")

	status, err := srv.registry.Status(id)
	if err != nil {
		return registryError(ctx, id, err)
	}
	return ctx.JSON(http.StatusOK, status)
}

// deleteNode handles DELETE /osd/{id}.
func (srv *SchedulerServer) deleteNode(ctx echo.Context) error {
	id := ctx.Param("id")

	if !srv.registry.Unregister(id) {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "OSD not found",
		})
	}
	return ctx.JSON(http.StatusOK, map[string]string{
		"message":    "OSD unregistered",
		"identifier": id,
	})
}

// getFreeResources handles GET /osd/{id}/free.
func (srv *SchedulerServer) getFreeResources(ctx echo.Context) error {
	id := ctx.Param("id")

	free, err := srv.registry.FreeResources(id)
	if err != nil {
		return registryError(ctx, id, err)
	}
	return ctx.JSON(http.StatusOK, free)
}

// resetNode handles POST /osd/{id}/reset.
func (srv *SchedulerServer) resetNode(ctx echo.Context) error {
	id := ctx.Param("id")

	if err := srv.registry.Reset(id); err != nil {
		return registryError(ctx, id, err)
	}
	return ctx.JSON(http.StatusOK, map[string]string{
		"message":    "OSD reset",
		"identifier": id,
	})
}

// putUsage handles PUT /osd/{id}/usage.
func (srv *SchedulerServer) putUsage(ctx echo.Context) error {
	id := ctx.Param("id")

	var req models.UsageRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	usage, ok := osd.ParseUsage(req.Usage)
	if !ok {
		log.Warn().Str("osd", id).Str("usage", req.Usage).Msg("Unknown usage")
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "unknown usage " + req.Usage,
		})
	}

	if err := srv.registry.SetUsage(id, usage); err != nil {
		return registryError(ctx, id, err)
	}
	return ctx.JSON(http.StatusOK, map[string]string{
		"identifier": id,
		"usage":      usage.String(),
	})
}
