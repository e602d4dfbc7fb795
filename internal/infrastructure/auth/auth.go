package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/room-bridge/internal/config"
	"github.com/janhq/room-bridge/internal/utils/platformerrors"
)

// TokenValidator validates a raw bearer token.
type TokenValidator interface {
	Validate(ctx context.Context, rawToken string) (*PrincipalClaims, error)
}

// Validator guards the admin API with JWT bearer tokens.
type Validator struct {
	enabled bool
	log     zerolog.Logger
	tokens  TokenValidator
}

// NewValidator initializes KeycloakValidator when auth is enabled.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	log = log.With().Str("component", "auth").Logger()
	if !cfg.AuthEnabled {
		return &Validator{log: log}, nil
	}

	keycloak, err := NewKeycloakValidator(
		ctx,
		cfg.AuthJWKSURL,
		cfg.AuthIssuer,
		cfg.AuthAudience,
		5*time.Minute, // refreshEvery
		time.Minute,   // clockSkew
		log,
	)
	if err != nil {
		return nil, err
	}

	return NewValidatorWith(keycloak, log), nil
}

// NewValidatorWith creates an enabled validator around tokens.
func NewValidatorWith(tokens TokenValidator, log zerolog.Logger) *Validator {
	return &Validator{enabled: true, log: log, tokens: tokens}
}

// Middleware enforces JWT auth when enabled.
func (v *Validator) Middleware() gin.HandlerFunc {
	if v == nil || !v.enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			platformerrors.WriteUnauthorized(c, "missing bearer token")
			return
		}

		claims, err := v.tokens.Validate(c.Request.Context(), tokenString)
		if err != nil {
			v.log.Debug().Err(err).Msg("jwt validation failed")
			platformerrors.WriteUnauthorized(c, "invalid token")
			return
		}

		c.Set("user_id", claims.Subject)
		c.Set("principal_claims", claims)
		c.Next()
	}
}

// Ready reports an error while an enabled validator cannot verify tokens yet.
func (v *Validator) Ready(_ context.Context) error {
	if v == nil || !v.enabled {
		return nil
	}
	if r, ok := v.tokens.(interface{ Ready() bool }); ok && !r.Ready() {
		return errors.New("jwks not loaded")
	}
	return nil
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
