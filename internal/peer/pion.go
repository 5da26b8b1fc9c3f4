package peer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// PionConn adapts a pion PeerConnection to RTCConn.
type PionConn struct {
	pc *webrtc.PeerConnection
}

// NewPionFactory returns a ConnFactory that builds pion-backed
// connections with the given ICE configuration and local tracks. The
// same track set is attached to every connection built by the factory;
// sharing local track objects across peer connections is safe.
func NewPionFactory(config webrtc.Configuration, tracks []webrtc.TrackLocal) ConnFactory {
	return func(obs ConnObserver) (RTCConn, error) {
		pc, err := webrtc.NewPeerConnection(config)
		if err != nil {
			return nil, fmt.Errorf("new peer connection: %w", err)
		}

		for _, track := range tracks {
			if _, err := pc.AddTrack(track); err != nil {
				_ = pc.Close()
				return nil, fmt.Errorf("add track: %w", err)
			}
		}

		pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
			if candidate == nil || obs.OnLocalCandidate == nil {
				return
			}
			payload, err := json.Marshal(candidate.ToJSON())
			if err != nil {
				return
			}
			obs.OnLocalCandidate(payload)
		})

		pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
			switch state {
			case webrtc.PeerConnectionStateConnected:
				if obs.OnConnected != nil {
					obs.OnConnected()
				}
			case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateDisconnected:
				if obs.OnFailure != nil {
					obs.OnFailure()
				}
			}
		})

		return &PionConn{pc: pc}, nil
	}
}

func (c *PionConn) CreateOffer(ctx context.Context) (json.RawMessage, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return json.Marshal(offer)
}

func (c *PionConn) AcceptOffer(ctx context.Context, offer json.RawMessage) (json.RawMessage, error) {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(offer, &desc); err != nil {
		return nil, fmt.Errorf("decode offer: %w", err)
	}
	if err := c.pc.SetRemoteDescription(desc); err != nil {
		return nil, fmt.Errorf("set remote description: %w", err)
	}

	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return json.Marshal(answer)
}

func (c *PionConn) AcceptAnswer(ctx context.Context, answer json.RawMessage) error {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(answer, &desc); err != nil {
		return fmt.Errorf("decode answer: %w", err)
	}
	if err := c.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	return nil
}

func (c *PionConn) AddCandidate(candidate json.RawMessage) error {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(candidate, &init); err != nil {
		return fmt.Errorf("decode candidate: %w", err)
	}
	return c.pc.AddICECandidate(init)
}

func (c *PionConn) Close() error {
	return c.pc.Close()
}

var _ RTCConn = (*PionConn)(nil)
