package http

import (
	"encoding/json"
	"time"

	"github.com/meetsig/meetsig-server/internal/core"
	"github.com/meetsig/meetsig-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoinRoom:
		var join proto.JoinRoomData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.RoomID == "" || join.DisplayName == "" {
			return nil, &proto.Error{Code: core.ErrCodeInvalidJoin, Msg: "room_id and display_name are required"}, nil
		}
		return &core.Command{
			Kind:        core.CommandJoinRoom,
			Room:        join.RoomID,
			DisplayName: join.DisplayName,
		}, nil, nil

	case proto.InboundTypeLeaveRoom:
		var leave proto.LeaveRoomData
		if err := json.Unmarshal(inbound.Data, &leave); err != nil {
			return nil, nil, err
		}
		return &core.Command{
			Kind: core.CommandLeaveRoom,
			Room: leave.RoomID,
		}, nil, nil

	case proto.InboundTypeOffer, proto.InboundTypeAnswer,
		proto.InboundTypeICECandidate, proto.InboundTypeRequestReconnect:
		var sig proto.SignalData
		if err := json.Unmarshal(inbound.Data, &sig); err != nil {
			return nil, nil, err
		}
		if sig.To == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "to is required"}, nil
		}
		return &core.Command{
			Kind:    signalKind(inbound.Type),
			To:      sig.To,
			Payload: sig.Payload,
		}, nil, nil

	case proto.InboundTypeSendMessage:
		var msg proto.ChatMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		if msg.Text == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "text is required"}, nil
		}
		chat := &core.ChatMessage{
			ID:        msg.ID,
			Sender:    msg.Sender,
			Text:      msg.Text,
			IsPrivate: msg.IsPrivate,
			To:        msg.To,
		}
		if msg.TS != 0 {
			chat.Timestamp = time.UnixMilli(msg.TS)
		}
		return &core.Command{
			Kind: core.CommandSendMessage,
			Chat: chat,
		}, nil, nil

	case proto.InboundTypeToggleMute, proto.InboundTypeToggleVideo, proto.InboundTypeToggleScreenShare:
		var toggle proto.ToggleData
		if err := json.Unmarshal(inbound.Data, &toggle); err != nil {
			return nil, nil, err
		}
		return &core.Command{
			Kind:  toggleKind(inbound.Type),
			State: toggle.State,
		}, nil, nil

	case proto.InboundTypeOwnerToggleMute, proto.InboundTypeOwnerToggleVideo:
		var toggle proto.OwnerToggleData
		if err := json.Unmarshal(inbound.Data, &toggle); err != nil {
			return nil, nil, err
		}
		if toggle.Target == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "target is required"}, nil
		}
		kind := core.CommandOwnerToggleMute
		if inbound.Type == proto.InboundTypeOwnerToggleVideo {
			kind = core.CommandOwnerToggleVideo
		}
		return &core.Command{
			Kind:  kind,
			To:    toggle.Target,
			State: toggle.State,
		}, nil, nil

	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}, nil
	}
}

func signalKind(inboundType string) core.CommandKind {
	switch inboundType {
	case proto.InboundTypeOffer:
		return core.CommandOffer
	case proto.InboundTypeAnswer:
		return core.CommandAnswer
	case proto.InboundTypeICECandidate:
		return core.CommandICECandidate
	default:
		return core.CommandRequestReconnect
	}
}

func toggleKind(inboundType string) core.CommandKind {
	switch inboundType {
	case proto.InboundTypeToggleMute:
		return core.CommandToggleMute
	case proto.InboundTypeToggleVideo:
		return core.CommandToggleVideo
	default:
		return core.CommandToggleScreenShare
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventJoined:
		participants := make([]proto.ParticipantData, 0, len(event.Participants))
		for _, p := range event.Participants {
			participants = append(participants, proto.ParticipantData{
				ConnID:      p.ConnID,
				DisplayName: p.DisplayName,
				JoinedAt:    p.JoinedAt.UnixMilli(),
			})
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventJoined,
			Data: proto.EventJoinedData{
				RoomID:       event.Room,
				SelfID:       event.SelfID,
				Participants: participants,
			},
		}

	case core.EventUserJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserJoined,
			Data: proto.EventUserJoinedData{
				ConnID:      event.Conn,
				DisplayName: event.DisplayName,
			},
		}

	case core.EventUserLeft:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserLeft,
			Data:  proto.EventUserLeftData{ConnID: event.Conn},
		}

	case core.EventOffer, core.EventAnswer, core.EventICECandidate, core.EventRequestReconnect:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: signalEventName(event.Kind),
			Data: proto.SignalData{
				From:    event.From,
				Payload: event.Payload,
			},
		}

	case core.EventChatMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventChatMessage,
			Data: proto.ChatMessageData{
				ID:        event.Chat.ID,
				RoomID:    event.Chat.RoomID,
				Sender:    event.Chat.Sender,
				Text:      event.Chat.Text,
				TS:        event.Chat.Timestamp.UnixMilli(),
				IsPrivate: event.Chat.IsPrivate,
				To:        event.Chat.To,
			},
		}

	case core.EventToggleMute, core.EventToggleVideo, core.EventToggleScreenShare,
		core.EventOwnerToggleMute, core.EventOwnerToggleVideo:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: toggleEventName(event.Kind),
			Data: proto.EventToggleData{
				ConnID: event.Conn,
				State:  event.State,
			},
		}

	case core.EventMeetingEnded:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMeetingEnded,
			Data:  proto.EventMeetingEndedData{RoomID: event.Room},
		}

	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}

	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func signalEventName(kind core.EventKind) string {
	switch kind {
	case core.EventOffer:
		return proto.EventOffer
	case core.EventAnswer:
		return proto.EventAnswer
	case core.EventICECandidate:
		return proto.EventICECandidate
	default:
		return proto.EventRequestReconnect
	}
}

func toggleEventName(kind core.EventKind) string {
	switch kind {
	case core.EventToggleMute:
		return proto.EventToggleMute
	case core.EventToggleVideo:
		return proto.EventToggleVideo
	case core.EventToggleScreenShare:
		return proto.EventToggleScreenShare
	case core.EventOwnerToggleMute:
		return proto.EventOwnerToggleMute
	default:
		return proto.EventOwnerToggleVideo
	}
}
