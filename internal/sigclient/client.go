// Package sigclient is a Go client for the signaling WebSocket. The
// negotiation coordinator drives it on one side and the smoke script on
// the other; browsers speak the same protocol from JS.
package sigclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/meetsig/meetsig-server/internal/proto"
)

// Event is a decoded server message. Type is the wire event name;
// exactly one of the typed fields is set, matching Type.
type Event struct {
	Type         string
	Joined       *proto.EventJoinedData
	UserJoined   *proto.EventUserJoinedData
	UserLeft     *proto.EventUserLeftData
	Signal       *proto.SignalData
	Chat         *proto.ChatMessageData
	Toggle       *proto.EventToggleData
	MeetingEnded *proto.EventMeetingEndedData
	Err          *proto.Error
}

// ErrorType marks an Event carrying a protocol error.
const ErrorType = "error"

// Client is a connected signaling session.
type Client struct {
	conn *websocket.Conn
	log  *zerolog.Logger
}

// Dial opens a signaling connection. The token authenticates the
// session; serverURL is the ws:// or wss:// endpoint without query.
func Dial(ctx context.Context, serverURL, token string, logger *zerolog.Logger) (*Client, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	return &Client{conn: conn, log: logger}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (c *Client) send(ctx context.Context, msgType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msgType, err)
	}
	return wsjson.Write(ctx, c.conn, proto.Inbound{Type: msgType, Data: payload})
}

// Join enters a meeting under the given display name.
func (c *Client) Join(ctx context.Context, roomID, displayName string) error {
	return c.send(ctx, proto.InboundTypeJoinRoom, proto.JoinRoomData{RoomID: roomID, DisplayName: displayName})
}

// Leave exits the meeting.
func (c *Client) Leave(ctx context.Context, roomID string) error {
	return c.send(ctx, proto.InboundTypeLeaveRoom, proto.LeaveRoomData{RoomID: roomID})
}

// SendOffer relays an SDP offer to one peer.
func (c *Client) SendOffer(ctx context.Context, to string, payload json.RawMessage) error {
	return c.send(ctx, proto.InboundTypeOffer, proto.SignalData{To: to, Payload: payload})
}

// SendAnswer relays an SDP answer to one peer.
func (c *Client) SendAnswer(ctx context.Context, to string, payload json.RawMessage) error {
	return c.send(ctx, proto.InboundTypeAnswer, proto.SignalData{To: to, Payload: payload})
}

// SendCandidate relays an ICE candidate to one peer.
func (c *Client) SendCandidate(ctx context.Context, to string, payload json.RawMessage) error {
	return c.send(ctx, proto.InboundTypeICECandidate, proto.SignalData{To: to, Payload: payload})
}

// RequestReconnect asks one peer to restart negotiation with us.
func (c *Client) RequestReconnect(ctx context.Context, to string) error {
	return c.send(ctx, proto.InboundTypeRequestReconnect, proto.SignalData{To: to})
}

// SendChat sends a chat message to the room, or privately when
// msg.IsPrivate is set and msg.To names the recipient.
func (c *Client) SendChat(ctx context.Context, msg proto.ChatMessageData) error {
	return c.send(ctx, proto.InboundTypeSendMessage, msg)
}

// ToggleMute publishes our mute state.
func (c *Client) ToggleMute(ctx context.Context, muted bool) error {
	return c.send(ctx, proto.InboundTypeToggleMute, proto.ToggleData{State: muted})
}

// ToggleVideo publishes our camera state.
func (c *Client) ToggleVideo(ctx context.Context, on bool) error {
	return c.send(ctx, proto.InboundTypeToggleVideo, proto.ToggleData{State: on})
}

// ToggleScreenShare publishes our screen-share state.
func (c *Client) ToggleScreenShare(ctx context.Context, on bool) error {
	return c.send(ctx, proto.InboundTypeToggleScreenShare, proto.ToggleData{State: on})
}

// OwnerToggleMute mutes or unmutes another participant. The server
// drops it unless we own the meeting.
func (c *Client) OwnerToggleMute(ctx context.Context, target string, muted bool) error {
	return c.send(ctx, proto.InboundTypeOwnerToggleMute, proto.OwnerToggleData{Target: target, State: muted})
}

// OwnerToggleVideo turns another participant's camera off or on.
func (c *Client) OwnerToggleVideo(ctx context.Context, target string, on bool) error {
	return c.send(ctx, proto.InboundTypeOwnerToggleVideo, proto.OwnerToggleData{Target: target, State: on})
}

// Read blocks for the next server message and decodes it.
func (c *Client) Read(ctx context.Context) (*Event, error) {
	var outbound struct {
		Type  string          `json:"type"`
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
		Error *proto.Error    `json:"error"`
	}
	if err := wsjson.Read(ctx, c.conn, &outbound); err != nil {
		return nil, err
	}

	if outbound.Type == proto.OutboundTypeError {
		return &Event{Type: ErrorType, Err: outbound.Error}, nil
	}

	ev := &Event{Type: outbound.Event}
	var err error
	switch outbound.Event {
	case proto.EventJoined:
		ev.Joined = &proto.EventJoinedData{}
		err = json.Unmarshal(outbound.Data, ev.Joined)
	case proto.EventUserJoined:
		ev.UserJoined = &proto.EventUserJoinedData{}
		err = json.Unmarshal(outbound.Data, ev.UserJoined)
	case proto.EventUserLeft:
		ev.UserLeft = &proto.EventUserLeftData{}
		err = json.Unmarshal(outbound.Data, ev.UserLeft)
	case proto.EventOffer, proto.EventAnswer, proto.EventICECandidate, proto.EventRequestReconnect:
		ev.Signal = &proto.SignalData{}
		err = json.Unmarshal(outbound.Data, ev.Signal)
	case proto.EventChatMessage:
		ev.Chat = &proto.ChatMessageData{}
		err = json.Unmarshal(outbound.Data, ev.Chat)
	case proto.EventToggleMute, proto.EventToggleVideo, proto.EventToggleScreenShare,
		proto.EventOwnerToggleMute, proto.EventOwnerToggleVideo:
		ev.Toggle = &proto.EventToggleData{}
		err = json.Unmarshal(outbound.Data, ev.Toggle)
	case proto.EventMeetingEnded:
		ev.MeetingEnded = &proto.EventMeetingEndedData{}
		err = json.Unmarshal(outbound.Data, ev.MeetingEnded)
	default:
		c.log.Debug().Str("event", outbound.Event).Msg("unknown server event")
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", outbound.Event, err)
	}
	return ev, nil
}
