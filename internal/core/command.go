package core

import "encoding/json"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom subscribes the client to a meeting room.
	CommandJoinRoom CommandKind = iota
	// CommandLeaveRoom unsubscribes the client from its room.
	CommandLeaveRoom
	// CommandOffer relays an SDP offer to one peer.
	CommandOffer
	// CommandAnswer relays an SDP answer to one peer.
	CommandAnswer
	// CommandICECandidate relays an ICE candidate to one peer.
	CommandICECandidate
	// CommandRequestReconnect asks one peer to rebuild its peer link.
	CommandRequestReconnect
	// CommandSendMessage delivers a chat message, public or private.
	CommandSendMessage
	// CommandToggleMute broadcasts the sender's mute state.
	CommandToggleMute
	// CommandToggleVideo broadcasts the sender's camera state.
	CommandToggleVideo
	// CommandToggleScreenShare broadcasts the sender's screen-share state.
	CommandToggleScreenShare
	// CommandOwnerToggleMute is an owner-issued mute of another participant.
	CommandOwnerToggleMute
	// CommandOwnerToggleVideo is an owner-issued camera toggle of another
	// participant.
	CommandOwnerToggleVideo
)

// Command represents an action requested by a client. Which fields are
// set depends on Kind; Payload stays an opaque blob throughout.
type Command struct {
	Kind        CommandKind
	Room        string
	DisplayName string
	To          string // relay target or owner-toggle target connection id
	State       bool
	Payload     json.RawMessage
	Chat        *ChatMessage
}
