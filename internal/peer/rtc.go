// Package peer implements the client-side negotiation coordinator: one
// PeerLink state machine per remote participant, a deterministic
// initiator tie-break so exactly one side of a pair sends the initial
// offer, candidate queueing until the remote description is applied,
// and bounded reconnection on negotiation failure.
package peer

import (
	"context"
	"encoding/json"
)

// RTCConn abstracts one peer connection. The production implementation
// wraps pion's PeerConnection; tests substitute a fake. Payloads are
// the JSON forms browsers produce (RTCSessionDescription and
// RTCIceCandidateInit) and stay opaque to everything above this
// interface.
type RTCConn interface {
	// CreateOffer produces an offer and records it as the local
	// description.
	CreateOffer(ctx context.Context) (json.RawMessage, error)

	// AcceptOffer applies a remote offer and returns an answer,
	// recorded as the local description.
	AcceptOffer(ctx context.Context, offer json.RawMessage) (json.RawMessage, error)

	// AcceptAnswer applies a remote answer.
	AcceptAnswer(ctx context.Context, answer json.RawMessage) error

	// AddCandidate applies a remote ICE candidate. Callers must only
	// invoke it after a remote description has been applied.
	AddCandidate(candidate json.RawMessage) error

	// Close releases the connection and its track attachments.
	Close() error
}

// ConnObserver receives connection-level callbacks. Callbacks fire
// from transport goroutines; implementations must be safe for that.
type ConnObserver struct {
	// OnLocalCandidate fires for each locally gathered ICE candidate
	// that should be relayed to the remote peer.
	OnLocalCandidate func(candidate json.RawMessage)

	// OnConnected fires once the underlying transport reaches a
	// connected state.
	OnConnected func()

	// OnFailure fires when the underlying transport fails or
	// disconnects without recovering.
	OnFailure func()
}

// ConnFactory builds an RTCConn for a new PeerLink, wiring the
// observer before any negotiation begins.
type ConnFactory func(obs ConnObserver) (RTCConn, error)
