package responses

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/janhq/room-bridge/internal/domain/room"
	"github.com/janhq/room-bridge/internal/utils/platformerrors"
)

// HandleError maps domain errors onto platform error responses.
func HandleError(c *gin.Context, err error, message string) {
	logger := log.With().Str("path", c.Request.URL.Path).Logger()
	platformerrors.WriteError(c, toPlatformError(c, err, message), logger)
}

func toPlatformError(c *gin.Context, err error, message string) error {
	if platformerrors.GetPlatformError(err) != nil {
		return err
	}
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, room.ErrNotFound), errors.Is(err, room.ErrSnapshotNotFound):
		return platformerrors.NewError(ctx, platformerrors.LayerRoute, platformerrors.ErrorTypeNotFound, message, err)
	case errors.Is(err, room.ErrAuthFailure):
		return platformerrors.NewError(ctx, platformerrors.LayerRoute, platformerrors.ErrorTypeInternal, message, err)
	case errors.Is(err, room.ErrRegistryClosed):
		return platformerrors.NewError(ctx, platformerrors.LayerRoute, platformerrors.ErrorTypeUnavailable, message, err)
	case errors.Is(err, room.ErrSessionClosed):
		return platformerrors.NewError(ctx, platformerrors.LayerRoute, platformerrors.ErrorTypeConflict, message, err)
	case errors.Is(err, context.DeadlineExceeded):
		return platformerrors.NewError(ctx, platformerrors.LayerRoute, platformerrors.ErrorTypeTimeout, message, err)
	default:
		return platformerrors.NewError(ctx, platformerrors.LayerRoute, platformerrors.ErrorTypeInternal, message, err)
	}
}
