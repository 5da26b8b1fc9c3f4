package http

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/meetsig/meetsig-server/internal/proto"
)

type rawOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func wsURL(env *testEnv, token string) string {
	return strings.Replace(env.server.URL, "http", "ws", 1) + "/ws?token=" + token
}

func dialWS(ctx context.Context, t *testing.T, env *testEnv, token string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, wsURL(env, token), nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func sendInbound(ctx context.Context, t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", msgType, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func readOutbound(ctx context.Context, t *testing.T, conn *websocket.Conn) rawOutbound {
	t.Helper()

	var out rawOutbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()

	out := readOutbound(ctx, t, conn)
	if out.Type != proto.OutboundTypeEvent || out.Event != event {
		t.Fatalf("expected event %q, got type=%s event=%s error=%+v", event, out.Type, out.Event, out.Error)
	}
	return out.Data
}

func joinMeeting(ctx context.Context, t *testing.T, conn *websocket.Conn, roomID, name string) proto.EventJoinedData {
	t.Helper()

	sendInbound(ctx, t, conn, proto.InboundTypeJoinRoom, proto.JoinRoomData{RoomID: roomID, DisplayName: name})
	var ack proto.EventJoinedData
	if err := json.Unmarshal(readEvent(ctx, t, conn, proto.EventJoined), &ack); err != nil {
		t.Fatalf("unmarshal joined ack: %v", err)
	}
	return ack
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	env := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL(env, "not-a-token"), nil)
	if err == nil {
		t.Fatal("dial with bad token succeeded")
	}
	if resp != nil && resp.StatusCode != 401 {
		t.Fatalf("expected 401 handshake, got %d", resp.StatusCode)
	}
}

func TestWebSocketJoinAndSignal(t *testing.T) {
	env := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tokenA, uidA := guestToken(t, env)
	tokenB, _ := guestToken(t, env)

	m, err := env.meetings.Create(context.Background(), uidA)
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}

	connA := dialWS(ctx, t, env, tokenA)
	connB := dialWS(ctx, t, env, tokenB)

	ackA := joinMeeting(ctx, t, connA, m.ID, "Alice")
	if ackA.SelfID == "" || ackA.RoomID != m.ID {
		t.Fatalf("bad join ack: %+v", ackA)
	}
	if len(ackA.Participants) != 0 {
		t.Fatalf("first joiner saw participants: %+v", ackA.Participants)
	}

	ackB := joinMeeting(ctx, t, connB, m.ID, "Bob")
	if len(ackB.Participants) != 1 || ackB.Participants[0].ConnID != ackA.SelfID {
		t.Fatalf("bad second join ack: %+v", ackB)
	}

	var joined proto.EventUserJoinedData
	if err := json.Unmarshal(readEvent(ctx, t, connA, proto.EventUserJoined), &joined); err != nil {
		t.Fatalf("unmarshal user-joined: %v", err)
	}
	if joined.ConnID != ackB.SelfID || joined.DisplayName != "Bob" {
		t.Fatalf("unexpected user-joined: %+v", joined)
	}

	// Offer passes through untouched, stamped with the sender's id.
	sdp := json.RawMessage(`{"type":"offer","sdp":"v=0 fake"}`)
	sendInbound(ctx, t, connA, proto.InboundTypeOffer, proto.SignalData{To: ackB.SelfID, Payload: sdp})

	var offer proto.SignalData
	if err := json.Unmarshal(readEvent(ctx, t, connB, proto.EventOffer), &offer); err != nil {
		t.Fatalf("unmarshal offer: %v", err)
	}
	if offer.From != ackA.SelfID {
		t.Fatalf("offer from %q, want %q", offer.From, ackA.SelfID)
	}
	if string(offer.Payload) != string(sdp) {
		t.Fatalf("offer payload mangled: %s", offer.Payload)
	}
}

func TestWebSocketChatFanout(t *testing.T) {
	env := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tokenA, uidA := guestToken(t, env)
	tokenB, _ := guestToken(t, env)

	m, err := env.meetings.Create(context.Background(), uidA)
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}

	connA := dialWS(ctx, t, env, tokenA)
	connB := dialWS(ctx, t, env, tokenB)

	joinMeeting(ctx, t, connA, m.ID, "Alice")
	joinMeeting(ctx, t, connB, m.ID, "Bob")
	readEvent(ctx, t, connA, proto.EventUserJoined)

	sendInbound(ctx, t, connA, proto.InboundTypeSendMessage, proto.ChatMessageData{Sender: "Alice", Text: "hi there"})

	for _, conn := range []*websocket.Conn{connA, connB} {
		var msg proto.ChatMessageData
		if err := json.Unmarshal(readEvent(ctx, t, conn, proto.EventChatMessage), &msg); err != nil {
			t.Fatalf("unmarshal chat: %v", err)
		}
		if msg.Text != "hi there" || msg.Sender != "Alice" {
			t.Fatalf("unexpected chat message: %+v", msg)
		}
		if msg.ID == "" || msg.TS == 0 {
			t.Fatalf("chat message missing server-filled fields: %+v", msg)
		}
	}
}

func TestWebSocketDisconnectNotifiesRoom(t *testing.T) {
	env := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tokenA, uidA := guestToken(t, env)
	tokenB, _ := guestToken(t, env)

	m, err := env.meetings.Create(context.Background(), uidA)
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}

	connA := dialWS(ctx, t, env, tokenA)
	connB := dialWS(ctx, t, env, tokenB)

	joinMeeting(ctx, t, connA, m.ID, "Alice")
	ackB := joinMeeting(ctx, t, connB, m.ID, "Bob")
	readEvent(ctx, t, connA, proto.EventUserJoined)

	if err := connB.Close(websocket.StatusNormalClosure, "bye"); err != nil {
		t.Fatalf("close B: %v", err)
	}

	var left proto.EventUserLeftData
	if err := json.Unmarshal(readEvent(ctx, t, connA, proto.EventUserLeft), &left); err != nil {
		t.Fatalf("unmarshal user-left: %v", err)
	}
	if left.ConnID != ackB.SelfID {
		t.Fatalf("user-left for %q, want %q", left.ConnID, ackB.SelfID)
	}
}

func TestWebSocketJoinEndedMeeting(t *testing.T) {
	env := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, uid := guestToken(t, env)

	m, err := env.meetings.Create(context.Background(), uid)
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}
	if err := env.meetings.End(context.Background(), m.ID, uid); err != nil {
		t.Fatalf("end meeting: %v", err)
	}

	conn := dialWS(ctx, t, env, token)
	sendInbound(ctx, t, conn, proto.InboundTypeJoinRoom, proto.JoinRoomData{RoomID: m.ID, DisplayName: "Alice"})

	out := readOutbound(ctx, t, conn)
	if out.Type != proto.OutboundTypeError || out.Error == nil {
		t.Fatalf("expected error outbound, got %+v", out)
	}
	if out.Error.Code != "meeting_closed" {
		t.Fatalf("unexpected error code: %s", out.Error.Code)
	}
}
