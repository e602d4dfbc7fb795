// Package roomtest provides in-memory fakes of the room ports for tests.
package roomtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/janhq/room-bridge/internal/domain/room"
)

// Authorizer is a fake room.Authorizer.
type Authorizer struct {
	MintFunc func(roomID, participantID string, info *room.ParticipantInfo) (*room.Credential, error)

	mu    sync.Mutex
	calls []string
}

// Mint records the call and returns a deterministic credential unless MintFunc is set.
func (a *Authorizer) Mint(roomID, participantID string, info *room.ParticipantInfo) (*room.Credential, error) {
	a.mu.Lock()
	a.calls = append(a.calls, roomID+"/"+participantID)
	a.mu.Unlock()
	if a.MintFunc != nil {
		return a.MintFunc(roomID, participantID, info)
	}
	return &room.Credential{
		Token:         "token-" + roomID + "-" + participantID,
		RoomID:        roomID,
		ParticipantID: participantID,
		ExpiresAt:     1_900_000_000,
	}, nil
}

// Calls returns the "room/participant" pairs minted so far.
func (a *Authorizer) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

// Writer is a fake room.SnapshotStore that records every upsert.
type Writer struct {
	UpsertFunc func(ctx context.Context, snap *room.Snapshot) error

	mu      sync.Mutex
	writes  []room.Snapshot
	current map[string]room.Snapshot
}

// Upsert records the snapshot; a failing UpsertFunc leaves the store unchanged.
func (w *Writer) Upsert(ctx context.Context, snap *room.Snapshot) error {
	if w.UpsertFunc != nil {
		if err := w.UpsertFunc(ctx, snap); err != nil {
			return err
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		w.current = make(map[string]room.Snapshot)
	}
	w.writes = append(w.writes, *snap)
	w.current[snap.RoomID] = *snap
	return nil
}

// Get returns the stored snapshot of a room.
func (w *Writer) Get(_ context.Context, roomID string) (*room.Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap, ok := w.current[roomID]
	if !ok {
		return nil, room.ErrSnapshotNotFound
	}
	return &snap, nil
}

// Writes returns the number of successful upserts for a room.
func (w *Writer) Writes(roomID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, s := range w.writes {
		if s.RoomID == roomID {
			n++
		}
	}
	return n
}

// Value returns the stored list of a room, or "" when none was written.
func (w *Writer) Value(roomID string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current[roomID].Todos
}

// Conn is a fake room.Connection backed by in-memory room state.
type Conn struct {
	RoomID   string
	Identity string
	Info     room.ParticipantInfo

	mu         sync.Mutex
	sink       room.EventSink
	todos      room.List
	others     []string
	closed     bool
	storageErr error
}

// Storage returns the current list.
func (c *Conn) Storage(context.Context) (*room.StorageRoot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.storageErr != nil {
		return nil, c.storageErr
	}
	return &room.StorageRoot{Todos: append(room.List(nil), c.todos...)}, nil
}

// Others returns the other participants.
func (c *Conn) Others() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.others...)
}

// Close marks the connection closed.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SetTodos replaces the list and emits StorageChanged.
func (c *Conn) SetTodos(items ...string) {
	list := List(items...)
	c.mu.Lock()
	c.todos = list
	sink := c.sink
	c.mu.Unlock()
	sink(room.StorageChanged{Todos: list})
}

// SetOthers replaces the participant list and emits PresenceChanged.
func (c *Conn) SetOthers(ids ...string) {
	c.mu.Lock()
	c.others = append([]string(nil), ids...)
	sink := c.sink
	c.mu.Unlock()
	sink(room.PresenceChanged{Others: ids})
}

// Emit forwards an arbitrary event to the session.
func (c *Conn) Emit(ev room.Event) {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	sink(ev)
}

// Room is the server-side state of a fake room, shared by its connections.
type Room struct {
	Todos      room.List
	Others     []string
	StorageErr error
}

// Connector is a fake room.Connector.
type Connector struct {
	// EnterFunc, when set, is called before a connection is created; a non-nil
	// error fails the join.
	EnterFunc func(ctx context.Context, roomID string, opts room.EnterOptions) error

	mu    sync.Mutex
	rooms map[string]*Room
	conns map[string][]*Conn
}

// SetRoom seeds the state a connection to roomID starts with.
func (c *Connector) SetRoom(roomID string, r Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rooms == nil {
		c.rooms = make(map[string]*Room)
	}
	c.rooms[roomID] = &r
}

// Enter creates a connection seeded from the room state.
func (c *Connector) Enter(ctx context.Context, roomID string, opts room.EnterOptions, sink room.EventSink) (room.Connection, error) {
	if c.EnterFunc != nil {
		if err := c.EnterFunc(ctx, roomID, opts); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	conn := &Conn{RoomID: roomID, Identity: opts.Identity, Info: opts.Info, sink: sink}
	if r, ok := c.rooms[roomID]; ok {
		conn.todos = append(room.List(nil), r.Todos...)
		conn.others = append([]string(nil), r.Others...)
		conn.storageErr = r.StorageErr
	}
	if c.conns == nil {
		c.conns = make(map[string][]*Conn)
	}
	c.conns[roomID] = append(c.conns[roomID], conn)
	return conn, nil
}

// Conns returns every connection opened to a room.
func (c *Connector) Conns(roomID string) []*Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Conn(nil), c.conns[roomID]...)
}

// Last returns the newest connection to a room, or nil.
func (c *Connector) Last(roomID string) *Conn {
	conns := c.Conns(roomID)
	if len(conns) == 0 {
		return nil
	}
	return conns[len(conns)-1]
}

// List builds a list of JSON string items.
func List(items ...string) room.List {
	list := make(room.List, 0, len(items))
	for _, it := range items {
		raw, err := json.Marshal(it)
		if err != nil {
			panic(fmt.Sprintf("marshal %q: %v", it, err))
		}
		list = append(list, raw)
	}
	return list
}

// JSON returns the serialized form of List(items...).
func JSON(items ...string) string {
	data, err := json.Marshal(List(items...))
	if err != nil {
		panic(err)
	}
	return string(data)
}
