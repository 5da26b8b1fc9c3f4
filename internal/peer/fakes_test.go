package peer

import (
	"context"
	"encoding/json"
	"sync"
)

// fakeConn is a scriptable RTCConn. Observer callbacks are fired by
// tests, never from inside the conn's own methods.
type fakeConn struct {
	mu         sync.Mutex
	obs        ConnObserver
	offers     int
	answers    int
	candidates []string
	closed     bool
}

func (f *fakeConn) CreateOffer(context.Context) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offers++
	return json.RawMessage(`{"type":"offer","sdp":"fake"}`), nil
}

func (f *fakeConn) AcceptOffer(context.Context, json.RawMessage) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers++
	return json.RawMessage(`{"type":"answer","sdp":"fake"}`), nil
}

func (f *fakeConn) AcceptAnswer(context.Context, json.RawMessage) error {
	return nil
}

func (f *fakeConn) AddCandidate(candidate json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candidates = append(f.candidates, string(candidate))
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) appliedCandidates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.candidates...)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeConnFactory records every conn it builds so tests can reach the
// observers.
type fakeConnFactory struct {
	mu    sync.Mutex
	conns []*fakeConn
}

func (f *fakeConnFactory) build(obs ConnObserver) (RTCConn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn := &fakeConn{obs: obs}
	f.conns = append(f.conns, conn)
	return conn, nil
}

func (f *fakeConnFactory) latest() *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.conns) == 0 {
		return nil
	}
	return f.conns[len(f.conns)-1]
}

func (f *fakeConnFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

type sigMsg struct {
	kind    string // "offer", "answer", "candidate", "reconnect"
	to      string
	payload json.RawMessage
}

// fakeSignaler queues outgoing messages instead of delivering them, so
// tests pump them between coordinators without lock reentrancy.
type fakeSignaler struct {
	mu   sync.Mutex
	sent []sigMsg
}

func (f *fakeSignaler) push(kind, to string, payload json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sigMsg{kind: kind, to: to, payload: payload})
	return nil
}

func (f *fakeSignaler) SendOffer(_ context.Context, to string, payload json.RawMessage) error {
	return f.push("offer", to, payload)
}

func (f *fakeSignaler) SendAnswer(_ context.Context, to string, payload json.RawMessage) error {
	return f.push("answer", to, payload)
}

func (f *fakeSignaler) SendCandidate(_ context.Context, to string, payload json.RawMessage) error {
	return f.push("candidate", to, payload)
}

func (f *fakeSignaler) RequestReconnect(_ context.Context, to string) error {
	return f.push("reconnect", to, nil)
}

// drain returns and clears the queued messages.
func (f *fakeSignaler) drain() []sigMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sent
	f.sent = nil
	return out
}

func (f *fakeSignaler) countKind(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.sent {
		if m.kind == kind {
			n++
		}
	}
	return n
}
