package livekit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/rs/zerolog"

	"github.com/janhq/room-bridge/internal/config"
	"github.com/janhq/room-bridge/internal/domain/room"
)

// roomHandle is the part of a joined LiveKit room the connector relies on.
type roomHandle interface {
	Metadata() string
	Identities() []string
	Disconnect()
}

// dialFunc joins a room with a token and the given callbacks.
type dialFunc func(url, token string, cb *lksdk.RoomCallback) (roomHandle, error)

// MetadataUpdater writes room metadata through the server API.
type MetadataUpdater interface {
	UpdateRoomMetadata(ctx context.Context, roomName, metadata string) error
}

// Connector enters LiveKit rooms as a bot participant. It implements room.Connector.
type Connector struct {
	wsURL   string
	updater MetadataUpdater
	dial    dialFunc
	log     zerolog.Logger
}

// NewConnector creates a connector that joins rooms through the LiveKit SDK.
func NewConnector(cfg *config.Config, updater MetadataUpdater, log zerolog.Logger) *Connector {
	return &Connector{
		wsURL:   cfg.LiveKitWsURL,
		updater: updater,
		dial:    dialSDK,
		log:     log.With().Str("component", "livekit-connector").Logger(),
	}
}

func dialSDK(url, token string, cb *lksdk.RoomCallback) (roomHandle, error) {
	r, err := lksdk.ConnectToRoomWithToken(url, token, cb, lksdk.WithAutoSubscribe(false))
	if err != nil {
		return nil, err
	}
	return sdkRoom{r}, nil
}

type sdkRoom struct {
	*lksdk.Room
}

func (r sdkRoom) Identities() []string {
	participants := r.GetRemoteParticipants()
	out := make([]string, 0, len(participants))
	for _, p := range participants {
		out = append(out, p.Identity())
	}
	return out
}

// Enter joins the room and forwards room callbacks to sink as events.
func (c *Connector) Enter(ctx context.Context, roomID string, opts room.EnterOptions, sink room.EventSink) (room.Connection, error) {
	if opts.Credential == nil {
		return nil, errors.New("credential is required")
	}
	url := opts.Credential.WsURL
	if url == "" {
		url = c.wsURL
	}

	conn := &connection{
		roomID:  roomID,
		updater: c.updater,
		sink:    sink,
		log:     c.log.With().Str("room_id", roomID).Str("identity", opts.Identity).Logger(),
	}
	cb := conn.callbacks()

	sink(room.ConnectionStatus{Status: room.StatusConnecting})

	type result struct {
		handle roomHandle
		err    error
	}
	done := make(chan result, 1)
	go func() {
		h, err := c.dial(url, opts.Credential.Token, cb)
		done <- result{handle: h, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("connect to room %s: %w", roomID, res.err)
		}
		conn.handle.Store(&res.handle)
		sink(room.ConnectionStatus{Status: room.StatusConnected})
		return conn, nil
	case <-ctx.Done():
		// Leave the room if the join completes after the caller gave up.
		go func() {
			if res := <-done; res.err == nil {
				res.handle.Disconnect()
			}
		}()
		return nil, ctx.Err()
	}
}

type connection struct {
	roomID  string
	updater MetadataUpdater
	sink    room.EventSink
	log     zerolog.Logger

	handle    atomic.Pointer[roomHandle]
	closeOnce sync.Once
	closed    atomic.Bool
}

func (c *connection) current() roomHandle {
	h := c.handle.Load()
	if h == nil {
		return nil
	}
	return *h
}

func (c *connection) emit(ev room.Event) {
	if c.closed.Load() {
		return
	}
	c.sink(ev)
}

func (c *connection) callbacks() *lksdk.RoomCallback {
	cb := lksdk.NewRoomCallback()
	cb.OnRoomMetadataChanged = func(metadata string) {
		root, err := decodeDocument(metadata)
		if err != nil {
			c.log.Warn().Err(err).Msg("ignoring malformed room document")
			return
		}
		c.emit(room.StorageChanged{Todos: root.Todos})
	}
	cb.OnParticipantConnected = func(*lksdk.RemoteParticipant) {
		c.emitPresence("")
	}
	cb.OnParticipantDisconnected = func(p *lksdk.RemoteParticipant) {
		leaving := ""
		if p != nil {
			leaving = p.Identity()
		}
		c.emitPresence(leaving)
	}
	cb.OnReconnecting = func() {
		c.emit(room.ConnectionStatus{Status: room.StatusReconnecting})
		c.emit(room.ConnectionLost{Kind: room.LostConnection})
	}
	cb.OnReconnected = func() {
		c.emit(room.ConnectionStatus{Status: room.StatusConnected})
		c.emit(room.ConnectionLost{Kind: room.RestoredConnection})
	}
	cb.OnDisconnected = func() {
		c.emit(room.ConnectionStatus{Status: room.StatusDisconnected})
		c.emit(room.ConnectionLost{Kind: room.FailedConnection, Err: errors.New("disconnected from room")})
	}
	return cb
}

// emitPresence publishes the current participant list, leaving out an identity
// that is in the middle of disconnecting.
func (c *connection) emitPresence(leaving string) {
	h := c.current()
	if h == nil {
		// Not joined yet; the session reads presence once it activates.
		return
	}
	ids := h.Identities()
	others := make([]string, 0, len(ids))
	for _, id := range ids {
		if leaving != "" && id == leaving {
			continue
		}
		others = append(others, id)
	}
	c.emit(room.PresenceChanged{Others: others})
}

// Storage reads the room document. Rooms without a document get an empty list.
func (c *connection) Storage(ctx context.Context) (*room.StorageRoot, error) {
	h := c.current()
	if h == nil {
		return nil, errors.New("not connected")
	}
	metadata := h.Metadata()
	root, err := decodeDocument(metadata)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(metadata) == "" && c.updater != nil {
		if err := c.updater.UpdateRoomMetadata(ctx, c.roomID, emptyDocument); err != nil {
			return nil, fmt.Errorf("initialize room document: %w", err)
		}
		root.Todos = room.List{}
	}
	return root, nil
}

// Others returns the identities of the other participants in the room.
func (c *connection) Others() []string {
	h := c.current()
	if h == nil {
		return nil
	}
	return h.Identities()
}

// Close leaves the room. Calling it again is a no-op.
func (c *connection) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if h := c.current(); h != nil {
			h.Disconnect()
		}
	})
}
