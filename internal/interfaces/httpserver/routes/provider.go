package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"

	"github.com/janhq/room-bridge/internal/infrastructure/auth"
	"github.com/janhq/room-bridge/internal/interfaces/httpserver/handlers"
	"github.com/janhq/room-bridge/internal/interfaces/httpserver/routes/bridge"
	v1 "github.com/janhq/room-bridge/internal/interfaces/httpserver/routes/v1"
)

// Provider holds all route providers.
type Provider struct {
	Bridge        *bridge.Routes
	V1            *v1.Routes
	authValidator *auth.Validator
}

// NewProvider creates a new route provider.
func NewProvider(handlerProvider *handlers.Provider, authValidator *auth.Validator) *Provider {
	return &Provider{
		Bridge:        bridge.NewRoutes(handlerProvider),
		V1:            v1.NewRoutes(handlerProvider),
		authValidator: authValidator,
	}
}

// Register registers all routes on the engine.
func (p *Provider) Register(engine *gin.Engine) {
	// The bridge entry point is public; room clients call it directly.
	p.Bridge.Register(engine)

	if p.authValidator != nil {
		p.V1.Register(engine, p.authValidator.Middleware())
	} else {
		p.V1.Register(engine, nil)
	}
}

// RouteProvider provides all routes for wire.
var RouteProvider = wire.NewSet(
	NewProvider,
)
