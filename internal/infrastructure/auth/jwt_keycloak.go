package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// PrincipalClaims represent the subset of JWT claims the admin API uses.
type PrincipalClaims struct {
	Subject           string
	Issuer            string
	Audience          []string
	PreferredUsername string
	Email             string
	Roles             []string
	ExpiresAt         time.Time
	NotBefore         time.Time
}

// KeycloakValidator validates JWT tokens against Keycloak JWKS.
type KeycloakValidator struct {
	issuer       string
	audience     string
	jwksURL      string
	logger       zerolog.Logger
	refreshEvery time.Duration
	clockSkew    time.Duration
	jwks         atomic.Pointer[keyfunc.JWKS]
	lastErr      atomic.Value // stores lastErrWrap
}

// lastErrWrap avoids storing a bare nil in atomic.Value.
type lastErrWrap struct{ Err error }

const (
	jwksInitialRetryInterval   = time.Second
	jwksInitialRetryMaxBackoff = 10 * time.Second
	jwksInitialRetryTimeout    = 2 * time.Minute
)

// NewKeycloakValidator fetches the JWKS and returns a validator.
func NewKeycloakValidator(
	ctx context.Context,
	jwksURL,
	issuer,
	audience string,
	refreshEvery,
	clockSkew time.Duration,
	logger zerolog.Logger,
) (*KeycloakValidator, error) {
	if jwksURL == "" {
		return nil, errors.New("jwks url is required")
	}

	validator := &KeycloakValidator{
		issuer:       issuer,
		audience:     audience,
		jwksURL:      jwksURL,
		logger:       logger,
		refreshEvery: refreshEvery,
		clockSkew:    clockSkew,
	}
	validator.lastErr.Store(lastErrWrap{Err: nil})

	if err := validator.initJWKS(ctx); err != nil {
		return nil, err
	}

	return validator, nil
}

func (v *KeycloakValidator) initJWKS(ctx context.Context) error {
	options := keyfunc.Options{
		Ctx: ctx,
		RefreshErrorHandler: func(err error) {
			v.lastErr.Store(lastErrWrap{Err: err})
			if err != nil {
				v.logger.Error().Err(err).Msg("jwks refresh failed")
			}
		},
		RefreshInterval:   v.refreshEvery,
		RefreshUnknownKID: true,
	}

	backoff := jwksInitialRetryInterval
	deadline := time.Now().Add(jwksInitialRetryTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	for attempt := 1; ; attempt++ {
		jwks, err := keyfunc.Get(v.jwksURL, options)
		if err == nil {
			v.lastErr.Store(lastErrWrap{Err: nil})
			v.jwks.Store(jwks)
			return nil
		}

		v.logger.Warn().
			Err(err).
			Str("jwks_url", v.jwksURL).
			Int("attempt", attempt).
			Msg("initial jwks fetch failed, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("fetch jwks: %w", ctx.Err())
		case <-time.After(backoff):
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("fetch jwks: %w", err)
		}
		backoff = min(backoff*2, jwksInitialRetryMaxBackoff)
	}
}

// Validate parses and validates the given JWT returning principal claims.
func (v *KeycloakValidator) Validate(_ context.Context, rawToken string) (*PrincipalClaims, error) {
	jwks := v.jwks.Load()
	if jwks == nil {
		return nil, errors.New("jwks not initialised")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	token, err := parser.ParseWithClaims(rawToken, jwt.MapClaims{}, jwks.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return principalFromClaims(mapClaims, v.issuer, v.audience, v.clockSkew, time.Now().UTC())
}

// Ready indicates whether JWKS has been successfully loaded.
func (v *KeycloakValidator) Ready() bool {
	if v.jwks.Load() == nil {
		return false
	}
	if wrap, ok := v.lastErr.Load().(lastErrWrap); ok && wrap.Err != nil {
		return false
	}
	return true
}

func principalFromClaims(claims jwt.MapClaims, issuer, audience string, clockSkew time.Duration, now time.Time) (*PrincipalClaims, error) {
	iss, _ := claims["iss"].(string)
	if iss != issuer {
		return nil, fmt.Errorf("issuer mismatch %s", iss)
	}

	var audiences []string
	switch val := claims["aud"].(type) {
	case nil:
	case string:
		audiences = append(audiences, val)
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				audiences = append(audiences, s)
			}
		}
	default:
		return nil, fmt.Errorf("aud claim unsupported type %T", val)
	}
	if audiences != nil && !contains(audiences, audience) {
		return nil, errors.New("audience mismatch")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.New("sub claim missing")
	}

	var roles []string
	if realmAccess, ok := claims["realm_access"].(map[string]any); ok {
		if rawRoles, ok := realmAccess["roles"].([]any); ok {
			for _, role := range rawRoles {
				if s, ok := role.(string); ok {
					roles = append(roles, s)
				}
			}
		}
	}

	expires := jwtNumericTime(claims["exp"])
	notBefore := jwtNumericTime(claims["nbf"])
	if !expires.IsZero() && now.After(expires.Add(clockSkew)) {
		return nil, errors.New("token expired")
	}
	if !notBefore.IsZero() && now.Add(clockSkew).Before(notBefore) {
		return nil, errors.New("token not yet valid")
	}

	username, _ := claims["preferred_username"].(string)
	email, _ := claims["email"].(string)
	return &PrincipalClaims{
		Subject:           sub,
		Issuer:            iss,
		Audience:          audiences,
		PreferredUsername: username,
		Email:             email,
		Roles:             roles,
		ExpiresAt:         expires,
		NotBefore:         notBefore,
	}, nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func jwtNumericTime(value any) time.Time {
	switch timeValue := value.(type) {
	case float64:
		return time.Unix(int64(timeValue), 0).UTC()
	case int64:
		return time.Unix(timeValue, 0).UTC()
	case json.Number:
		if unixTime, err := timeValue.Int64(); err == nil {
			return time.Unix(unixTime, 0).UTC()
		}
	}
	return time.Time{}
}
