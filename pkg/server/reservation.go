package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"osdsched/pkg/log"
	"osdsched/pkg/models"
	"osdsched/pkg/osd"
)

// createReservation handles POST /osd/{id}/reservations.
// Admission and allocation happen as one step in the registry.
func (srv *SchedulerServer) createReservation(ctx echo.Context) error {
	id := ctx.Param("id")

	var req models.ReservationRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}
	if !req.Valid() {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "claims must not be negative",
		})
	}

	stored, ok, err := srv.registry.Reserve(id, osd.Reservation{
		ID:                  req.ID,
		Capacity:            req.Capacity,
		RandomThroughput:    req.RandomThroughput,
		StreamingThroughput: req.StreamingThroughput,
	})
	if err != nil {
		return registryError(ctx, id, err)
	}
	if !ok {
		log.Info().Str("osd", id).Msg("Reservation does not fit")
		return ctx.JSON(http.StatusConflict, map[string]string{
			"error": "insufficient resources",
		})
	}

	return ctx.JSON(http.StatusCreated, stored)
}

// deleteReservation handles DELETE /osd/{id}/reservations/{rid}.
func (srv *SchedulerServer) deleteReservation(ctx echo.Context) error {
	id := ctx.Param("id")
	reservationID := ctx.Param("rid")

	released, err := srv.registry.Release(id, reservationID)
	if err != nil {
		return registryError(ctx, id, err)
	}
	if !released {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "reservation not found",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]string{
		"message":     "Reservation released",
		"reservation": reservationID,
	})
}
