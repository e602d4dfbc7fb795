package livekit

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/janhq/room-bridge/internal/config"
	"github.com/janhq/room-bridge/internal/domain/room"
)

const (
	testAPIKey    = "APItestkey"
	testAPISecret = "test-secret-with-enough-entropy-0123456789"
)

func newTestGenerator() *TokenGenerator {
	g := NewTokenGenerator(&config.Config{
		LiveKitWsURL:     "ws://livekit.test:7880",
		LiveKitAPIKey:    testAPIKey,
		LiveKitAPISecret: testAPISecret,
		LiveKitTokenTTL:  30 * time.Minute,
	})
	g.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return g
}

func parseClaims(t *testing.T, token string) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(testAPISecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
	if err != nil {
		t.Fatalf("ParseWithClaims() error: %v", err)
	}
	return claims
}

func TestTokenGenerator_Mint(t *testing.T) {
	tests := []struct {
		name       string
		room       string
		identity   string
		info       *room.ParticipantInfo
		wantHidden bool
		wantAdmin  bool
		wantMeta   bool
	}{
		{name: "human participant", room: "r1", identity: "alice", wantAdmin: true},
		{name: "bot participant", room: "r1", identity: "bridge-worker-r1", info: &room.ParticipantInfo{Bot: true}, wantHidden: true, wantMeta: true},
		{name: "named participant", room: "r2", identity: "bob", info: &room.ParticipantInfo{Name: "Bob"}, wantAdmin: true, wantMeta: true},
	}

	g := newTestGenerator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := g.Mint(tt.room, tt.identity, tt.info)
			if err != nil {
				t.Fatalf("Mint() error: %v", err)
			}
			if cred.RoomID != tt.room || cred.ParticipantID != tt.identity {
				t.Fatalf("credential scoped to (%s, %s), want (%s, %s)", cred.RoomID, cred.ParticipantID, tt.room, tt.identity)
			}
			if cred.WsURL != "ws://livekit.test:7880" {
				t.Errorf("WsURL = %q", cred.WsURL)
			}
			if want := time.Unix(1_700_000_000, 0).Add(30 * time.Minute).Unix(); cred.ExpiresAt != want {
				t.Errorf("ExpiresAt = %d, want %d", cred.ExpiresAt, want)
			}

			claims := parseClaims(t, cred.Token)
			if claims["sub"] != tt.identity {
				t.Errorf("sub = %v, want %s", claims["sub"], tt.identity)
			}
			if claims["iss"] != testAPIKey {
				t.Errorf("iss = %v, want %s", claims["iss"], testAPIKey)
			}
			video, ok := claims["video"].(map[string]any)
			if !ok {
				t.Fatalf("video grant missing: %v", claims)
			}
			if video["room"] != tt.room || video["roomJoin"] != true {
				t.Errorf("video grant = %v", video)
			}
			hidden, _ := video["hidden"].(bool)
			if hidden != tt.wantHidden {
				t.Errorf("hidden = %v, want %v", hidden, tt.wantHidden)
			}
			admin, _ := video["roomAdmin"].(bool)
			if admin != tt.wantAdmin {
				t.Errorf("roomAdmin = %v, want %v", admin, tt.wantAdmin)
			}
			meta, _ := claims["metadata"].(string)
			if tt.wantMeta {
				var info room.ParticipantInfo
				if err := json.Unmarshal([]byte(meta), &info); err != nil {
					t.Fatalf("metadata %q: %v", meta, err)
				}
				if info != *tt.info {
					t.Errorf("metadata = %+v, want %+v", info, *tt.info)
				}
			} else if meta != "" {
				t.Errorf("metadata = %q, want empty", meta)
			}
		})
	}
}

func TestTokenGenerator_MintRequiresScope(t *testing.T) {
	g := newTestGenerator()
	for _, tc := range [][2]string{{"", "alice"}, {"r1", ""}, {"", ""}} {
		if _, err := g.Mint(tc[0], tc[1], nil); !errors.Is(err, room.ErrAuthFailure) {
			t.Errorf("Mint(%q, %q) error = %v, want ErrAuthFailure", tc[0], tc[1], err)
		}
	}
}

func TestTokenGenerator_BotInfoSerialization(t *testing.T) {
	g := newTestGenerator()
	cred, err := g.Mint("r1", "bridge-worker-r1", &room.ParticipantInfo{Bot: true})
	if err != nil {
		t.Fatalf("Mint() error: %v", err)
	}
	meta, _ := parseClaims(t, cred.Token)["metadata"].(string)
	if meta != `{"bot":true,"isTyping":false}` {
		t.Errorf("metadata = %s", meta)
	}
}

func TestTokenGenerator_HumanCanEditRoomDocument(t *testing.T) {
	g := newTestGenerator()
	cred, err := g.Mint("r1", "u1", nil)
	if err != nil {
		t.Fatalf("Mint() error: %v", err)
	}
	video, _ := parseClaims(t, cred.Token)["video"].(map[string]any)
	if video["roomAdmin"] != true || video["room"] != "r1" {
		t.Fatalf("video grant = %v, want room admin scoped to r1", video)
	}
}
