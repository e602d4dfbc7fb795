package livekit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"

	"github.com/janhq/room-bridge/internal/config"
	"github.com/janhq/room-bridge/internal/domain/room"
)

// TokenGenerator generates LiveKit access tokens. It implements room.Authorizer.
type TokenGenerator struct {
	apiKey    string
	apiSecret string
	wsURL     string
	ttl       time.Duration
	now       func() time.Time
}

// NewTokenGenerator creates a new token generator.
func NewTokenGenerator(cfg *config.Config) *TokenGenerator {
	ttl := cfg.LiveKitTokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenGenerator{
		apiKey:    cfg.LiveKitAPIKey,
		apiSecret: cfg.LiveKitAPISecret,
		wsURL:     cfg.LiveKitWsURL,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Mint creates a credential scoped to one participant of one room. Bot
// participants join hidden so they never appear in other participants' lists.
// Humans get room admin on their own room, which lets them update the room
// metadata that carries the shared list.
func (g *TokenGenerator) Mint(roomID, participantID string, info *room.ParticipantInfo) (*room.Credential, error) {
	if roomID == "" || participantID == "" {
		return nil, fmt.Errorf("%w: room and participant are required", room.ErrAuthFailure)
	}

	at := auth.NewAccessToken(g.apiKey, g.apiSecret)

	canPublish := true
	canSubscribe := true
	canPublishData := true

	grant := &auth.VideoGrant{
		RoomJoin:       true,
		Room:           roomID,
		CanPublish:     &canPublish,
		CanSubscribe:   &canSubscribe,
		CanPublishData: &canPublishData,
	}
	if info != nil && info.Bot {
		canPublish = false
		grant.Hidden = true
	} else {
		grant.RoomAdmin = true
	}

	at.AddGrant(grant).
		SetIdentity(participantID).
		SetValidFor(g.ttl)

	if info != nil {
		meta, err := json.Marshal(info)
		if err != nil {
			return nil, fmt.Errorf("%w: encode participant info: %w", room.ErrAuthFailure, err)
		}
		at.SetMetadata(string(meta))
		if info.Name != "" {
			at.SetName(info.Name)
		}
	}

	issuedAt := g.now()
	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("%w: sign token: %w", room.ErrAuthFailure, err)
	}

	return &room.Credential{
		Token:         token,
		RoomID:        roomID,
		ParticipantID: participantID,
		WsURL:         g.wsURL,
		ExpiresAt:     issuedAt.Add(g.ttl).Unix(),
	}, nil
}
