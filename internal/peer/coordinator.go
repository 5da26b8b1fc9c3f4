package peer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Signaler is the relay transport the coordinator negotiates through.
// sigclient.Client satisfies it.
type Signaler interface {
	SendOffer(ctx context.Context, to string, payload json.RawMessage) error
	SendAnswer(ctx context.Context, to string, payload json.RawMessage) error
	SendCandidate(ctx context.Context, to string, payload json.RawMessage) error
	RequestReconnect(ctx context.Context, to string) error
}

// Config configures a Coordinator.
type Config struct {
	Signaler Signaler
	Factory  ConnFactory

	// ReconnectDelay is the wait before the first reconnect attempt
	// after a failure; it doubles per attempt.
	ReconnectDelay time.Duration

	// MaxReconnects caps reconnect attempts per peer. Once exhausted
	// the link is dropped and OnPeerLost fires.
	MaxReconnects int

	// OfferTimeout bounds how long an unanswered offer may sit before
	// the link is treated as failed.
	OfferTimeout time.Duration

	// OnPeerLost reports a peer whose reconnect budget ran out.
	OnPeerLost func(remoteID string)

	Logger *zerolog.Logger
}

const (
	defaultReconnectDelay = 2 * time.Second
	defaultMaxReconnects  = 5
	defaultOfferTimeout   = 15 * time.Second
)

// Coordinator owns one PeerLink per remote participant and decides,
// per pair, which side sends the initial offer: the connection id that
// sorts lexicographically lower initiates. Both sides evaluate the
// same comparison, so exactly one offer is produced per pair and glare
// cannot occur.
type Coordinator struct {
	mu      sync.Mutex
	selfID  string
	links   map[string]*PeerLink
	retries map[string]int
	epoch   uint64
	closed  bool

	ctx            context.Context
	signaler       Signaler
	factory        ConnFactory
	reconnectDelay time.Duration
	maxReconnects  int
	offerTimeout   time.Duration
	onPeerLost     func(string)
	log            *zerolog.Logger
}

// NewCoordinator builds a coordinator. ctx bounds background sends
// (reconnect requests, relayed candidates) for the coordinator's
// lifetime.
func NewCoordinator(ctx context.Context, cfg Config) *Coordinator {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.MaxReconnects <= 0 {
		cfg.MaxReconnects = defaultMaxReconnects
	}
	if cfg.OfferTimeout <= 0 {
		cfg.OfferTimeout = defaultOfferTimeout
	}
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}

	return &Coordinator{
		links:          make(map[string]*PeerLink),
		retries:        make(map[string]int),
		ctx:            ctx,
		signaler:       cfg.Signaler,
		factory:        cfg.Factory,
		reconnectDelay: cfg.ReconnectDelay,
		maxReconnects:  cfg.MaxReconnects,
		offerTimeout:   cfg.OfferTimeout,
		onPeerLost:     cfg.OnPeerLost,
		log:            cfg.Logger,
	}
}

// SetSelfID records our own connection id from the join ack. Must be
// called before any peer is handled.
func (c *Coordinator) SetSelfID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selfID = id
}

// LinkState reports the negotiation state for a remote peer.
func (c *Coordinator) LinkState(remoteID string) (NegState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	link, ok := c.links[remoteID]
	if !ok {
		return 0, false
	}
	return link.state, true
}

// HandlePeerJoined reacts to a user-joined notification: create the
// link and, when the tie-break picks us, send the initial offer.
func (c *Coordinator) HandlePeerJoined(ctx context.Context, remoteID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}

	link, err := c.ensureLink(remoteID)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	var offer json.RawMessage
	if c.isInitiator(remoteID) && link.state == StateIdle {
		offer, err = c.prepareOffer(ctx, link)
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}
	if offer != nil {
		return c.signaler.SendOffer(ctx, remoteID, offer)
	}
	return nil
}

// HandleOffer reacts to a relayed offer. The offer may arrive before
// the join notification for its sender; the link is created on demand.
// An offer landing on a link past idle means the remote restarted
// negotiation, so the stale link is torn down first.
func (c *Coordinator) HandleOffer(ctx context.Context, from string, payload json.RawMessage) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}

	if link, ok := c.links[from]; ok && link.state != StateIdle {
		link.close()
		delete(c.links, from)
	}
	link, err := c.ensureLink(from)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	answer, err := link.acceptOffer(ctx, payload)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.signaler.SendAnswer(ctx, from, answer)
}

// HandleAnswer reacts to a relayed answer. Answers for unknown or
// torn-down links are dropped silently.
func (c *Coordinator) HandleAnswer(ctx context.Context, from string, payload json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}

	link, ok := c.links[from]
	if !ok {
		c.log.Debug().Str("from", from).Msg("answer for unknown peer dropped")
		return nil
	}
	return link.acceptAnswer(ctx, payload)
}

// HandleCandidate reacts to a relayed ICE candidate. Candidates for
// unknown links are dropped; early candidates queue inside the link.
func (c *Coordinator) HandleCandidate(from string, payload json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}

	link, ok := c.links[from]
	if !ok {
		c.log.Debug().Str("from", from).Msg("candidate for unknown peer dropped")
		return nil
	}
	return link.addCandidate(payload)
}

// HandleReconnectRequest tears down the link to the requester and
// re-runs discovery and the tie-break from scratch.
func (c *Coordinator) HandleReconnectRequest(ctx context.Context, from string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}

	if link, ok := c.links[from]; ok {
		link.close()
		delete(c.links, from)
	}

	link, err := c.ensureLink(from)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	var offer json.RawMessage
	if c.isInitiator(from) {
		offer, err = c.prepareOffer(ctx, link)
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}
	if offer != nil {
		return c.signaler.SendOffer(ctx, from, offer)
	}
	return nil
}

// HandlePeerLeft tears down the link for a departed participant.
// Further messages naming it are dropped by the unknown-link paths.
func (c *Coordinator) HandlePeerLeft(remoteID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if link, ok := c.links[remoteID]; ok {
		link.close()
		delete(c.links, remoteID)
	}
	delete(c.retries, remoteID)
}

// Close tears down every link. The coordinator drops all subsequent
// messages.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for id, link := range c.links {
		link.close()
		delete(c.links, id)
	}
}

// isInitiator applies the tie-break: the lexicographically lower
// connection id offers.
func (c *Coordinator) isInitiator(remoteID string) bool {
	return c.selfID < remoteID
}

// ensureLink returns the existing link for remoteID or builds one.
// Caller holds c.mu.
func (c *Coordinator) ensureLink(remoteID string) (*PeerLink, error) {
	if link, ok := c.links[remoteID]; ok {
		return link, nil
	}

	// Observer callbacks outlive link teardown; the epoch check in
	// lookupLink keeps a stale connection from acting on its
	// replacement.
	c.epoch++
	epoch := c.epoch

	conn, err := c.factory(ConnObserver{
		OnLocalCandidate: func(candidate json.RawMessage) {
			if err := c.signaler.SendCandidate(c.ctx, remoteID, candidate); err != nil {
				c.log.Warn().Err(err).Str("to", remoteID).Msg("send candidate")
			}
		},
		OnConnected: func() {
			c.handleConnected(remoteID, epoch)
		},
		OnFailure: func() {
			c.handleFailure(remoteID, epoch)
		},
	})
	if err != nil {
		return nil, err
	}

	link := newPeerLink(remoteID, conn)
	link.epoch = epoch
	c.links[remoteID] = link
	return link, nil
}

// lookupLink resolves a callback's (remoteID, epoch) pair to the live
// link, or nil when the callback belongs to a torn-down link. Caller
// holds c.mu.
func (c *Coordinator) lookupLink(remoteID string, epoch uint64) *PeerLink {
	link, ok := c.links[remoteID]
	if !ok || link.epoch != epoch {
		return nil
	}
	return link
}

// initiate sends our offer and arms the answer timeout. Caller holds
// c.mu.
// prepareOffer creates the local offer and arms the answer timeout.
// The caller sends the returned payload after releasing c.mu so a slow
// signaler cannot hold up other handlers.
func (c *Coordinator) prepareOffer(ctx context.Context, link *PeerLink) (json.RawMessage, error) {
	offer, err := link.startOffer(ctx)
	if err != nil {
		return nil, err
	}

	remoteID, epoch := link.RemoteID, link.epoch
	time.AfterFunc(c.offerTimeout, func() {
		c.mu.Lock()
		pending := c.lookupLink(remoteID, epoch)
		stale := c.closed || pending == nil || pending.state != StateOfferSent
		c.mu.Unlock()
		if !stale {
			c.log.Warn().Str("peer", remoteID).Msg("offer unanswered, treating as failed")
			c.handleFailure(remoteID, epoch)
		}
	})
	return offer, nil
}

func (c *Coordinator) handleConnected(remoteID string, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	link := c.lookupLink(remoteID, epoch)
	if c.closed || link == nil {
		return
	}
	link.markConnected()
	delete(c.retries, remoteID)
	c.log.Info().Str("peer", remoteID).Msg("peer connected")
}

/// handleFailure runs the reconnection policy: mark the link failed,
// wait a delay that doubles per attempt, then tear down, recreate, and
// ask the remote to do the same. A peer that exhausts the budget is
// reported lost.
func (c *Coordinator) handleFailure(remoteID string, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	link := c.lookupLink(remoteID, epoch)
	if c.closed || link == nil || link.state == StateFailed {
		return
	}
	link.markFailed()

	attempt := c.retries[remoteID] + 1
	if attempt > c.maxReconnects {
		c.log.Warn().Str("peer", remoteID).Msg("reconnect budget exhausted, dropping peer")
		link.close()
		delete(c.links, remoteID)
		delete(c.retries, remoteID)
		if c.onPeerLost != nil {
			go c.onPeerLost(remoteID)
		}
		return
	}
	c.retries[remoteID] = attempt

	delay := c.reconnectDelay << (attempt - 1)
	c.log.Info().Str("peer", remoteID).Int("attempt", attempt).Dur("delay", delay).Msg("scheduling reconnect")
	time.AfterFunc(delay, func() {
		c.reconnect(remoteID, epoch)
	})
}

func (c *Coordinator) reconnect(remoteID string, epoch uint64) {
	c.mu.Lock()
	failed := c.lookupLink(remoteID, epoch)
	if c.closed || failed == nil {
		c.mu.Unlock()
		return
	}

	failed.close()
	delete(c.links, remoteID)

	link, err := c.ensureLink(remoteID)
	if err != nil {
		c.mu.Unlock()
		c.log.Error().Err(err).Str("peer", remoteID).Msg("recreate link")
		return
	}
	var offer json.RawMessage
	if c.isInitiator(remoteID) {
		offer, err = c.prepareOffer(c.ctx, link)
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Error().Err(err).Str("peer", remoteID).Msg("reoffer")
		return
	}
	if reqErr := c.signaler.RequestReconnect(c.ctx, remoteID); reqErr != nil {
		c.log.Warn().Err(reqErr).Str("peer", remoteID).Msg("send reconnect request")
	}
	if offer != nil {
		if sendErr := c.signaler.SendOffer(c.ctx, remoteID, offer); sendErr != nil {
			c.log.Error().Err(sendErr).Str("peer", remoteID).Msg("reoffer")
		}
	}
}
