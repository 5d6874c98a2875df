package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"osdsched/pkg/log"
	"osdsched/pkg/osd"
	"osdsched/pkg/registry"
)

// putDescriptor handles PUT /osd/{id}/descriptor. The body is an encoded descriptor.
func (srv *SchedulerServer) putDescriptor(ctx echo.Context) error {
	id := ctx.Param("id")

	payload, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxDescriptorSize+1))
	if err != nil {
		log.Error().Err(err).Str("osd", id).Msg("Failed to read descriptor")
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to read descriptor",
		})
	}
	if len(payload) > maxDescriptorSize {
		log.Warn().Str("osd", id).Int("size", len(payload)).Msg("Descriptor too large")
		return ctx.JSON(http.StatusRequestEntityTooLarge, map[string]string{
			"error": "descriptor too large",
		})
	}

	status, err := srv.registry.Announce(id, payload)
	if err != nil {
		switch {
		case errors.Is(err, osd.ErrUnsupportedVersion), errors.Is(err, osd.ErrMalformedPayload),
			errors.Is(err, osd.ErrInvalidProfile):
			return ctx.JSON(http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		case errors.Is(err, registry.ErrIdentifierMismatch):
			return ctx.JSON(http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		default:
			return registryError(ctx, id, err)
		}
	}

	return ctx.JSON(http.StatusOK, status)
}

// getDescriptor handles GET /osd/{id}/descriptor. Reservations are not part of the payload.
func (srv *SchedulerServer) getDescriptor(ctx echo.Context) error {
	id := ctx.Param("id")

	payload, err := srv.registry.Encode(id)
	if err != nil {
		return registryError(ctx, id, err)
	}

	return ctx.Blob(http.StatusOK, echo.MIMEOctetStream, payload)
}
