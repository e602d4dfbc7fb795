// Package bridge registers the room bridge entry point.
package bridge

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janhq/room-bridge/internal/domain/room"
	"github.com/janhq/room-bridge/internal/interfaces/httpserver/handlers"
	"github.com/janhq/room-bridge/internal/interfaces/httpserver/requests"
	"github.com/janhq/room-bridge/internal/interfaces/httpserver/responses"
	"github.com/janhq/room-bridge/internal/interfaces/httpserver/responses/roomres"
)

// Routes holds the bridge route configuration.
type Routes struct {
	handler *handlers.RoomHandler
}

// NewRoutes creates a new bridge routes instance.
func NewRoutes(handlerProvider *handlers.Provider) *Routes {
	return &Routes{handler: handlerProvider.Room}
}

// Register registers the bridge entry point on the engine.
func (r *Routes) Register(engine *gin.Engine) {
	engine.GET("/", dispatch(r.handler))
}

// dispatch godoc
// @Summary      Room bridge entry point
// @Description  With roomId and userId, mints a participant credential. With roomId only,
// @Description  starts the room's bridging session or reports that one is already running.
// @Tags         Bridge
// @Produce      json
// @Produce      plain
// @Param        roomId query string false "Room identifier"
// @Param        userId query string false "Participant identifier"
// @Success      200 {object} roomres.CredentialResponse
// @Failure      404 {string} string "Not Found"
// @Failure      500 {object} responses.ErrorResponse "Credential minting failed"
// @Router       / [get]
func dispatch(handler *handlers.RoomHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var query requests.BridgeQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			c.String(http.StatusNotFound, http.StatusText(http.StatusNotFound))
			return
		}
		roomID, userID := query.RoomID, query.UserID

		res, err := handler.Dispatch(c.Request.Context(), roomID, userID)
		if err != nil {
			switch {
			case errors.Is(err, room.ErrNotFound):
				c.String(http.StatusNotFound, http.StatusText(http.StatusNotFound))
			case userID == "":
				// The service has logged the failure; the caller only sees the room's handle.
				c.String(http.StatusOK, "Status Ok "+room.Handle(roomID))
			default:
				responses.HandleError(c, err, "failed to handle room request")
			}
			return
		}

		switch {
		case res.Credential != nil:
			c.Header("Access-Control-Allow-Origin", "*")
			c.JSON(http.StatusOK, roomres.NewCredentialResponse(res.Credential))
		case res.Acquire != nil:
			c.String(http.StatusOK, statusLine(res.Acquire))
		default:
			c.String(http.StatusNotFound, http.StatusText(http.StatusNotFound))
		}
	}
}

func statusLine(res *room.AcquireResult) string {
	if res.Status == room.AcquireNotEvicted {
		return "Not Evicted " + res.Handle
	}
	return "Status Ok " + res.Handle
}
