package core

// Session is the per-transport-connection state the registry keeps.
// A session exists from transport accept to transport close, whether or
// not the connection ever joins a room.
type Session struct {
	ConnID      string
	UserID      int64
	RoomID      string
	DisplayName string
}

// Bound reports whether the session is currently joined to a room.
func (s *Session) Bound() bool {
	return s.RoomID != ""
}

// ConnectionRegistry maps connection ids to session state.
// It is owned by the hub actor and must only be touched from its loop.
type ConnectionRegistry struct {
	sessions map[string]*Session
}

// NewConnectionRegistry constructs an empty registry.
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		sessions: make(map[string]*Session),
	}
}

// Register creates a session record with no room binding.
func (r *ConnectionRegistry) Register(connID string, userID int64) {
	r.sessions[connID] = &Session{ConnID: connID, UserID: userID}
}

// Bind associates a connection with a room and display name, overwriting
// any prior binding for the same connection.
func (r *ConnectionRegistry) Bind(connID, roomID, displayName string) {
	s, ok := r.sessions[connID]
	if !ok {
		s = &Session{ConnID: connID}
		r.sessions[connID] = s
	}
	s.RoomID = roomID
	s.DisplayName = displayName
}

// Unbind clears the room binding but keeps the session alive.
func (r *ConnectionRegistry) Unbind(connID string) {
	if s, ok := r.sessions[connID]; ok {
		s.RoomID = ""
		s.DisplayName = ""
	}
}

// Get returns the session for a connection, or nil.
func (r *ConnectionRegistry) Get(connID string) *Session {
	return r.sessions[connID]
}

// Unregister returns the last known binding, then deletes the session.
// The caller is responsible for propagating the removal to the room
// registry.
func (r *ConnectionRegistry) Unregister(connID string) (roomID, displayName string, bound bool) {
	s, ok := r.sessions[connID]
	if !ok {
		return "", "", false
	}
	delete(r.sessions, connID)
	return s.RoomID, s.DisplayName, s.Bound()
}

// Len returns the number of live sessions.
func (r *ConnectionRegistry) Len() int {
	return len(r.sessions)
}
