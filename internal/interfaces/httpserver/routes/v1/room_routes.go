package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janhq/room-bridge/internal/interfaces/httpserver/handlers"
	"github.com/janhq/room-bridge/internal/interfaces/httpserver/responses"
	"github.com/janhq/room-bridge/internal/interfaces/httpserver/responses/roomres"
)

// RegisterRoomRoutes registers the room session admin routes.
func RegisterRoomRoutes(router gin.IRoutes, handler *handlers.RoomHandler) {
	router.GET("/rooms", listSessions(handler))
	router.GET("/rooms/:roomId", getSession(handler))
	router.GET("/rooms/:roomId/snapshot", getSnapshot(handler))
	router.DELETE("/rooms/:roomId", evictSession(handler))
}

// listSessions godoc
// @Summary      List room sessions
// @Description  Lists every room that currently has a bridging session on this replica
// @Tags         Rooms API
// @Produce      json
// @Success      200 {object} roomres.ListSessionsResponse
// @Failure      401 {object} responses.ErrorResponse
// @Failure      500 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /rooms [get]
func listSessions(handler *handlers.RoomHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions, err := handler.ListSessions(c.Request.Context())
		if err != nil {
			responses.HandleError(c, err, "failed to list sessions")
			return
		}

		c.JSON(http.StatusOK, roomres.NewListSessionsResponse(sessions))
	}
}

// getSession godoc
// @Summary      Get a room session
// @Description  Retrieves the bridging session of a room
// @Tags         Rooms API
// @Produce      json
// @Param        roomId path string true "Room ID"
// @Success      200 {object} roomres.SessionResponse
// @Failure      401 {object} responses.ErrorResponse
// @Failure      404 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /rooms/{roomId} [get]
func getSession(handler *handlers.RoomHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := handler.GetSession(c.Request.Context(), c.Param("roomId"))
		if err != nil {
			responses.HandleError(c, err, "failed to get session")
			return
		}

		c.JSON(http.StatusOK, roomres.NewSessionResponse(info))
	}
}

// getSnapshot godoc
// @Summary      Get a room snapshot
// @Description  Retrieves the latest persisted list of a room
// @Tags         Rooms API
// @Produce      json
// @Param        roomId path string true "Room ID"
// @Success      200 {object} roomres.SnapshotResponse
// @Failure      401 {object} responses.ErrorResponse
// @Failure      404 {object} responses.ErrorResponse
// @Failure      500 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /rooms/{roomId}/snapshot [get]
func getSnapshot(handler *handlers.RoomHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := handler.GetSnapshot(c.Request.Context(), c.Param("roomId"))
		if err != nil {
			responses.HandleError(c, err, "failed to get snapshot")
			return
		}

		c.JSON(http.StatusOK, roomres.NewSnapshotResponse(snap))
	}
}

// evictSession godoc
// @Summary      Evict a room session
// @Description  Tears down the bridging session of a room. A later lifecycle request starts a fresh one.
// @Tags         Rooms API
// @Produce      json
// @Param        roomId path string true "Room ID"
// @Success      200 {object} roomres.EvictSessionResponse
// @Failure      401 {object} responses.ErrorResponse
// @Failure      404 {object} responses.ErrorResponse
// @Failure      500 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /rooms/{roomId} [delete]
func evictSession(handler *handlers.RoomHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Param("roomId")
		if err := handler.EvictSession(c.Request.Context(), roomID); err != nil {
			responses.HandleError(c, err, "failed to evict session")
			return
		}

		c.JSON(http.StatusOK, roomres.NewEvictSessionResponse(roomID))
	}
}
