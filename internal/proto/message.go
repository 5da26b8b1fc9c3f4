package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeJoinRoom          = "join-room"
	InboundTypeLeaveRoom         = "leave-room"
	InboundTypeOffer             = "offer"
	InboundTypeAnswer            = "answer"
	InboundTypeICECandidate      = "ice-candidate"
	InboundTypeRequestReconnect  = "request-reconnect"
	InboundTypeSendMessage       = "send-message"
	InboundTypeToggleMute        = "toggle-mute"
	InboundTypeToggleVideo       = "toggle-video"
	InboundTypeToggleScreenShare = "toggle-screen-share"
	InboundTypeOwnerToggleMute   = "owner-toggle-mute"
	InboundTypeOwnerToggleVideo  = "owner-toggle-video"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventJoined            = "joined"
	EventUserJoined        = "user-joined"
	EventUserLeft          = "user-left"
	EventOffer             = "offer"
	EventAnswer            = "answer"
	EventICECandidate      = "ice-candidate"
	EventRequestReconnect  = "request-reconnect"
	EventChatMessage       = "chat-message"
	EventToggleMute        = "toggle-mute"
	EventToggleVideo       = "toggle-video"
	EventToggleScreenShare = "toggle-screen-share"
	EventOwnerToggleMute   = "owner-toggle-mute"
	EventOwnerToggleVideo  = "owner-toggle-video"
	EventMeetingEnded      = "meeting-ended"
)

// JoinRoomData requests to join a meeting.
type JoinRoomData struct {
	RoomID      string `json:"room_id"`
	DisplayName string `json:"display_name"`
}

// LeaveRoomData requests to leave the current meeting.
type LeaveRoomData struct {
	RoomID string `json:"room_id"`
}

// SignalData carries an opaque negotiation payload to one peer. The
// server copies Payload through untouched; it is SDP or an ICE
// candidate and none of its fields matter here.
type SignalData struct {
	To      string          `json:"to"`
	From    string          `json:"from,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ChatMessageData is a chat message, client to server and back out.
type ChatMessageData struct {
	ID        string `json:"id,omitempty"`
	RoomID    string `json:"room_id,omitempty"`
	Sender    string `json:"sender,omitempty"`
	Text      string `json:"text"`
	TS        int64  `json:"ts,omitempty"`
	IsPrivate bool   `json:"is_private,omitempty"`
	To        string `json:"to,omitempty"`
}

// ToggleData is a self-issued media state change.
type ToggleData struct {
	State bool `json:"state"`
}

// OwnerToggleData is an owner-issued media state change for another
// participant.
type OwnerToggleData struct {
	Target string `json:"target"`
	State  bool   `json:"state"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// ParticipantData describes one room member.
type ParticipantData struct {
	ConnID      string `json:"conn_id"`
	DisplayName string `json:"display_name"`
	JoinedAt    int64  `json:"joined_at"`
}

// EventJoinedData acknowledges a join with the pre-existing members.
type EventJoinedData struct {
	RoomID       string            `json:"room_id"`
	SelfID       string            `json:"self_id"`
	Participants []ParticipantData `json:"participants"`
}

// EventUserJoinedData notifies that a participant joined the room.
type EventUserJoinedData struct {
	ConnID      string `json:"conn_id"`
	DisplayName string `json:"display_name"`
}

// EventUserLeftData notifies that a participant left the room.
type EventUserLeftData struct {
	ConnID string `json:"conn_id"`
}

// EventToggleData broadcasts a participant's media state.
type EventToggleData struct {
	ConnID string `json:"conn_id"`
	State  bool   `json:"state"`
}

// EventMeetingEndedData notifies that the meeting was ended for all.
type EventMeetingEndedData struct {
	RoomID string `json:"room_id"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
