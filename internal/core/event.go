package core

import "encoding/json"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventJoined acknowledges a join and carries the snapshot of
	// participants that were already in the room.
	EventJoined EventKind = iota
	// EventUserJoined notifies room members about a new participant.
	EventUserJoined
	// EventUserLeft notifies room members that a participant left.
	EventUserLeft
	// EventOffer delivers a relayed SDP offer.
	EventOffer
	// EventAnswer delivers a relayed SDP answer.
	EventAnswer
	// EventICECandidate delivers a relayed ICE candidate.
	EventICECandidate
	// EventRequestReconnect delivers a relayed reconnect request.
	EventRequestReconnect
	// EventChatMessage delivers a chat message.
	EventChatMessage
	// EventToggleMute broadcasts a participant's mute state.
	EventToggleMute
	// EventToggleVideo broadcasts a participant's camera state.
	EventToggleVideo
	// EventToggleScreenShare broadcasts a participant's screen-share state.
	EventToggleScreenShare
	// EventOwnerToggleMute broadcasts an owner-issued mute.
	EventOwnerToggleMute
	// EventOwnerToggleVideo broadcasts an owner-issued camera toggle.
	EventOwnerToggleVideo
	// EventMeetingEnded tells every member the meeting was ended for all.
	EventMeetingEnded
	// EventError notifies a client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind EventKind
	Room string

	// Conn is the subject connection id: the joiner/leaver for
	// user-joined/user-left, the toggled participant for control events.
	Conn        string
	DisplayName string

	// From is the originating connection id for relayed signaling.
	From string

	// SelfID and Participants are set on EventJoined.
	SelfID       string
	Participants []Participant

	State   bool
	Payload json.RawMessage
	Chat    *ChatMessage
	Error   *CoreError
}
