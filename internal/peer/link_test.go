package peer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinkOfferAnswerSequencing(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{}
	link := newPeerLink("b2", conn)

	// An answer before an offer was sent is a protocol violation.
	err := link.acceptAnswer(ctx, json.RawMessage(`{}`))
	require.Error(t, err)

	_, err = link.startOffer(ctx)
	require.NoError(t, err)
	require.Equal(t, StateOfferSent, link.State())

	// A second offer from offer-sent is rejected.
	_, err = link.startOffer(ctx)
	require.Error(t, err)

	require.NoError(t, link.acceptAnswer(ctx, json.RawMessage(`{}`)))
	link.markConnected()
	require.Equal(t, StateConnected, link.State())
}

func TestLinkAnswererPath(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{}
	link := newPeerLink("a1", conn)

	answer, err := link.acceptOffer(ctx, json.RawMessage(`{"type":"offer"}`))
	require.NoError(t, err)
	require.NotEmpty(t, answer)
	require.Equal(t, StateAnswerPending, link.State())

	// Another offer while answer-pending is rejected at the link
	// level; the coordinator handles restarts by recreating the link.
	_, err = link.acceptOffer(ctx, json.RawMessage(`{"type":"offer"}`))
	require.Error(t, err)
}

func TestLinkFailedFromAnyState(t *testing.T) {
	link := newPeerLink("b2", &fakeConn{})
	link.markFailed()
	require.Equal(t, StateFailed, link.State())

	ctx := context.Background()
	link = newPeerLink("b2", &fakeConn{})
	_, err := link.startOffer(ctx)
	require.NoError(t, err)
	link.markConnected()
	link.markFailed()
	require.Equal(t, StateFailed, link.State())
}

func TestLinkCloseDiscardsQueuedCandidates(t *testing.T) {
	conn := &fakeConn{}
	link := newPeerLink("b2", conn)

	require.NoError(t, link.addCandidate(json.RawMessage(`{"candidate":"c0"}`)))
	link.close()

	require.True(t, conn.isClosed())
	require.Empty(t, link.pending)
}
