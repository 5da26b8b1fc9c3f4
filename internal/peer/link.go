package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// NegState is the negotiation state of one PeerLink.
type NegState int

const (
	StateIdle NegState = iota
	StateOfferSent
	StateAnswerPending
	StateConnected
	StateFailed
)

func (s NegState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOfferSent:
		return "offer-sent"
	case StateAnswerPending:
		return "answer-pending"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PeerLink tracks negotiation with one remote participant. Candidates
// arriving before the remote description are queued and flushed in
// receipt order once it is applied. The link is not self-locking; the
// Coordinator serializes all access.
type PeerLink struct {
	RemoteID string
	JoinedAt time.Time

	state         NegState
	remoteDescSet bool
	pending       []json.RawMessage
	conn          RTCConn
	epoch         uint64
}

func newPeerLink(remoteID string, conn RTCConn) *PeerLink {
	return &PeerLink{
		RemoteID: remoteID,
		JoinedAt: time.Now(),
		state:    StateIdle,
		conn:     conn,
	}
}

// State returns the current negotiation state.
func (l *PeerLink) State() NegState { return l.state }

// startOffer produces an offer and moves to offer-sent. Legal only
// from idle.
func (l *PeerLink) startOffer(ctx context.Context) (json.RawMessage, error) {
	if l.state != StateIdle {
		return nil, fmt.Errorf("offer from state %s", l.state)
	}
	offer, err := l.conn.CreateOffer(ctx)
	if err != nil {
		l.state = StateFailed
		return nil, err
	}
	l.state = StateOfferSent
	return offer, nil
}

// acceptOffer applies a remote offer and returns the answer. The link
// moves to answer-pending; it counts as connected once ICE completes.
func (l *PeerLink) acceptOffer(ctx context.Context, offer json.RawMessage) (json.RawMessage, error) {
	if l.state != StateIdle {
		return nil, fmt.Errorf("offer received in state %s", l.state)
	}
	answer, err := l.conn.AcceptOffer(ctx, offer)
	if err != nil {
		l.state = StateFailed
		return nil, err
	}
	l.remoteDescSet = true
	l.state = StateAnswerPending
	if err := l.flushCandidates(); err != nil {
		return nil, err
	}
	return answer, nil
}

// acceptAnswer applies a remote answer to our outstanding offer.
func (l *PeerLink) acceptAnswer(ctx context.Context, answer json.RawMessage) error {
	if l.state != StateOfferSent {
		return fmt.Errorf("answer received in state %s", l.state)
	}
	if err := l.conn.AcceptAnswer(ctx, answer); err != nil {
		l.state = StateFailed
		return err
	}
	l.remoteDescSet = true
	return l.flushCandidates()
}

// addCandidate applies a remote candidate, queueing it if the remote
// description is not set yet. Candidates are never dropped for
// arriving early.
func (l *PeerLink) addCandidate(candidate json.RawMessage) error {
	if !l.remoteDescSet {
		l.pending = append(l.pending, candidate)
		return nil
	}
	return l.conn.AddCandidate(candidate)
}

func (l *PeerLink) flushCandidates() error {
	for _, candidate := range l.pending {
		if err := l.conn.AddCandidate(candidate); err != nil {
			return fmt.Errorf("flush candidate: %w", err)
		}
	}
	l.pending = nil
	return nil
}

// markConnected records ICE completion.
func (l *PeerLink) markConnected() {
	if l.state == StateOfferSent || l.state == StateAnswerPending || l.state == StateIdle {
		l.state = StateConnected
	}
}

// markFailed records negotiation failure. Terminal until the link is
// torn down and recreated.
func (l *PeerLink) markFailed() {
	l.state = StateFailed
}

// close releases the connection and queued candidates.
func (l *PeerLink) close() {
	l.pending = nil
	if l.conn != nil {
		_ = l.conn.Close()
	}
}
