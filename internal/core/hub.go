package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Hub is the signaling coordinator. A single goroutine owns the
// connection and room registries and processes every client command in
// turn, so registry invariants hold without per-room locks. Clients talk
// to the hub through their Commands channel and hear back on Events.
type Hub struct {
	log       *zerolog.Logger
	directory MeetingDirectory

	register   chan *Client
	unregister chan *Client
	commands   chan clientCommand
	closeRooms chan string

	clients  map[string]*clientState
	sessions *ConnectionRegistry
	rooms    *RoomRegistry
}

type clientState struct {
	client *Client
	stop   chan struct{}
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

// NewHub creates a new hub. directory may be nil, in which case every
// meeting id is treated as active with no owner (used in tests).
func NewHub(directory MeetingDirectory, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		log:        logger,
		directory:  directory,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan clientCommand, 64),
		closeRooms: make(chan string, 8),
		clients:    make(map[string]*clientState),
		sessions:   NewConnectionRegistry(),
		rooms:      NewRoomRegistry(),
	}
}

// RegisterClient hands a new connection to the hub.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

// UnregisterClient removes a connection; the hub cleans up any room
// membership and notifies remaining members.
func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// CloseRoom ends a meeting for everyone: members get a meeting-ended
// event and the room is removed. Called when the owner ends the meeting
// through the REST API.
func (h *Hub) CloseRoom(roomID string) {
	h.closeRooms <- roomID
}

// Run processes hub traffic until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.handleRegister(ctx, c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case roomID := <-h.closeRooms:
			h.handleCloseRoom(roomID)
		case cc := <-h.commands:
			h.dispatch(ctx, cc.client, cc.cmd)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handleRegister(ctx context.Context, c *Client) {
	if prev, ok := h.clients[c.ConnID]; ok {
		// Duplicate connection id: drop the stale entry first.
		close(prev.stop)
		h.cleanupConnection(prev.client)
	}

	state := &clientState{client: c, stop: make(chan struct{})}
	h.clients[c.ConnID] = state
	h.sessions.Register(c.ConnID, c.UserID)

	// Pump the client's commands into the single dispatch loop.
	go func() {
		for {
			select {
			case cmd, ok := <-c.Commands:
				if !ok {
					return
				}
				select {
				case h.commands <- clientCommand{client: c, cmd: cmd}:
				case <-state.stop:
					return
				case <-ctx.Done():
					return
				}
			case <-state.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	h.log.Debug().Str("conn_id", c.ConnID).Msg("client registered")
}

func (h *Hub) handleUnregister(c *Client) {
	state, ok := h.clients[c.ConnID]
	if !ok || state.client != c {
		return
	}
	close(state.stop)
	h.cleanupConnection(c)
	h.log.Debug().Str("conn_id", c.ConnID).Msg("client unregistered")
}

// cleanupConnection removes the session and, if the connection was in a
// room, removes the participant and fans out user-left.
func (h *Hub) cleanupConnection(c *Client) {
	delete(h.clients, c.ConnID)

	roomID, _, bound := h.sessions.Unregister(c.ConnID)
	if !bound {
		close(c.Events)
		return
	}

	if h.rooms.Leave(roomID, c.ConnID) {
		h.broadcast(roomID, "", &Event{
			Kind: EventUserLeft,
			Room: roomID,
			Conn: c.ConnID,
		})
	}
	close(c.Events)
}

func (h *Hub) handleCloseRoom(roomID string) {
	room := h.rooms.Room(roomID)
	if room == nil {
		return
	}

	ended := &Event{Kind: EventMeetingEnded, Room: roomID}
	for _, p := range room.Others("") {
		h.sendTo(p.ConnID, ended)
		h.sessions.Unbind(p.ConnID)
	}
	h.rooms.Delete(roomID)
	h.log.Info().Str("room", roomID).Msg("meeting ended for all participants")
}

func (h *Hub) dispatch(ctx context.Context, c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandJoinRoom:
		h.handleJoin(ctx, c, cmd)
	case CommandLeaveRoom:
		h.handleLeave(c, cmd)
	case CommandOffer:
		h.relay(c, cmd, EventOffer)
	case CommandAnswer:
		h.relay(c, cmd, EventAnswer)
	case CommandICECandidate:
		h.relay(c, cmd, EventICECandidate)
	case CommandRequestReconnect:
		h.relay(c, cmd, EventRequestReconnect)
	case CommandSendMessage:
		h.handleChat(c, cmd)
	case CommandToggleMute:
		h.handleToggle(c, cmd, EventToggleMute)
	case CommandToggleVideo:
		h.handleToggle(c, cmd, EventToggleVideo)
	case CommandToggleScreenShare:
		h.handleToggle(c, cmd, EventToggleScreenShare)
	case CommandOwnerToggleMute:
		h.handleOwnerToggle(c, cmd, EventOwnerToggleMute)
	case CommandOwnerToggleVideo:
		h.handleOwnerToggle(c, cmd, EventOwnerToggleVideo)
	default:
		h.sendError(c, ErrCodeInvalidMessage, "unknown command")
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *Client, cmd *Command) {
	if cmd.Room == "" || cmd.DisplayName == "" {
		h.sendError(c, ErrCodeInvalidJoin, "room and display name are required")
		return
	}

	var owner int64
	if h.directory != nil {
		info, err := h.directory.Resolve(ctx, cmd.Room)
		if err != nil {
			h.log.Warn().Err(err).Str("room", cmd.Room).Msg("meeting lookup failed")
			h.sendError(c, ErrCodeMeetingClosed, "meeting not found")
			return
		}
		if !info.Active {
			h.sendError(c, ErrCodeMeetingClosed, "meeting has ended")
			return
		}
		owner = info.OwnerUserID
	}

	// A connection lives in at most one room; joining a new one leaves
	// the old one first.
	if s := h.sessions.Get(c.ConnID); s != nil && s.Bound() && s.RoomID != cmd.Room {
		h.leaveRoom(c, s.RoomID)
	}

	existing := h.rooms.Join(cmd.Room, c.ConnID, cmd.DisplayName, time.Now())
	h.sessions.Bind(c.ConnID, cmd.Room, cmd.DisplayName)

	room := h.rooms.Room(cmd.Room)
	if owner != 0 && c.UserID == owner {
		room.SetOwnerConn(c.ConnID)
	}

	h.sendTo(c.ConnID, &Event{
		Kind:         EventJoined,
		Room:         cmd.Room,
		SelfID:       c.ConnID,
		Participants: existing,
	})

	h.broadcast(cmd.Room, c.ConnID, &Event{
		Kind:        EventUserJoined,
		Room:        cmd.Room,
		Conn:        c.ConnID,
		DisplayName: cmd.DisplayName,
	})

	h.log.Info().
		Str("room", cmd.Room).
		Str("conn_id", c.ConnID).
		Str("name", cmd.DisplayName).
		Int("others", len(existing)).
		Msg("participant joined")
}

func (h *Hub) handleLeave(c *Client, cmd *Command) {
	s := h.sessions.Get(c.ConnID)
	if s == nil || !s.Bound() {
		h.sendError(c, ErrCodeNotInRoom, "not in a room")
		return
	}
	if cmd.Room != "" && cmd.Room != s.RoomID {
		h.sendError(c, ErrCodeBadRequest, "not in that room")
		return
	}
	h.leaveRoom(c, s.RoomID)
}

func (h *Hub) leaveRoom(c *Client, roomID string) {
	if h.rooms.Leave(roomID, c.ConnID) {
		h.broadcast(roomID, c.ConnID, &Event{
			Kind: EventUserLeft,
			Room: roomID,
			Conn: c.ConnID,
		})
	}
	h.sessions.Unbind(c.ConnID)
	h.log.Info().Str("room", roomID).Str("conn_id", c.ConnID).Msg("participant left")
}

// relay forwards an opaque negotiation payload to one connection. The
// payload is never inspected; an unknown target is reported back to the
// sender as a routing miss, not treated as fatal.
func (h *Hub) relay(c *Client, cmd *Command, kind EventKind) {
	if cmd.To == "" {
		h.sendError(c, ErrCodeBadRequest, "target is required")
		return
	}
	if _, ok := h.clients[cmd.To]; !ok {
		h.log.Warn().
			Str("from", c.ConnID).
			Str("to", cmd.To).
			Int("kind", int(kind)).
			Msg("relay target not found")
		h.sendError(c, ErrCodeRoutingMiss, "target connection not found")
		return
	}
	h.sendTo(cmd.To, &Event{
		Kind:    kind,
		From:    c.ConnID,
		Payload: cmd.Payload,
	})
}

func (h *Hub) handleChat(c *Client, cmd *Command) {
	if cmd.Chat == nil || cmd.Chat.Text == "" {
		h.sendError(c, ErrCodeBadRequest, "message text is required")
		return
	}

	s := h.sessions.Get(c.ConnID)
	if s == nil || !s.Bound() {
		h.sendError(c, ErrCodeNotInRoom, "not in a room")
		return
	}

	msg := *cmd.Chat
	msg.RoomID = s.RoomID
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if msg.Sender == "" {
		msg.Sender = s.DisplayName
	}

	ev := &Event{Kind: EventChatMessage, Room: s.RoomID, Chat: &msg}

	if msg.IsPrivate && msg.To != "" {
		if h.rooms.Room(s.RoomID) == nil || h.rooms.Room(s.RoomID).Get(msg.To) == nil {
			h.sendError(c, ErrCodeRoutingMiss, "recipient not in room")
			return
		}
		// Recipient plus an echo so the sender's UI can confirm delivery.
		h.sendTo(msg.To, ev)
		h.sendTo(c.ConnID, ev)
		return
	}

	// Public: everyone in the room including the sender.
	h.broadcast(s.RoomID, "", ev)
}

// handleToggle broadcasts a participant's own state change to the rest
// of the room. The sender already knows its own state.
func (h *Hub) handleToggle(c *Client, cmd *Command, kind EventKind) {
	s := h.sessions.Get(c.ConnID)
	if s == nil || !s.Bound() {
		h.sendError(c, ErrCodeNotInRoom, "not in a room")
		return
	}
	h.broadcast(s.RoomID, c.ConnID, &Event{
		Kind:  kind,
		Room:  s.RoomID,
		Conn:  c.ConnID,
		State: cmd.State,
	})
}

// handleOwnerToggle verifies the sender is the meeting owner's live
// connection, then broadcasts to the whole room including the target so
// every client converges on the same participant state. Unauthorized
// commands are dropped without a reply.
func (h *Hub) handleOwnerToggle(c *Client, cmd *Command, kind EventKind) {
	s := h.sessions.Get(c.ConnID)
	if s == nil || !s.Bound() {
		h.sendError(c, ErrCodeNotInRoom, "not in a room")
		return
	}
	room := h.rooms.Room(s.RoomID)
	if room == nil || room.OwnerConn() != c.ConnID {
		h.log.Debug().
			Str("conn_id", c.ConnID).
			Str("room", s.RoomID).
			Msg("owner control from non-owner dropped")
		return
	}
	if cmd.To == "" || room.Get(cmd.To) == nil {
		h.sendError(c, ErrCodeRoutingMiss, "target not in room")
		return
	}
	h.broadcast(s.RoomID, "", &Event{
		Kind:  kind,
		Room:  s.RoomID,
		Conn:  cmd.To,
		State: cmd.State,
	})
}

// broadcast sends an event to every participant in a room except
// excludeConnID (empty string excludes no one).
func (h *Hub) broadcast(roomID, excludeConnID string, ev *Event) {
	room := h.rooms.Room(roomID)
	if room == nil {
		return
	}
	for _, p := range room.Others(excludeConnID) {
		h.sendTo(p.ConnID, ev)
	}
}

// sendTo delivers an event without blocking the hub loop. Slow consumers
// lose events rather than stalling the whole room.
func (h *Hub) sendTo(connID string, ev *Event) {
	state, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case state.client.Events <- ev:
	default:
		h.log.Warn().Str("conn_id", connID).Msg("dropping event for slow consumer")
	}
}

func (h *Hub) sendError(c *Client, code, msg string) {
	h.sendTo(c.ConnID, &Event{
		Kind:  EventError,
		Error: coreError(code, msg),
	})
}
