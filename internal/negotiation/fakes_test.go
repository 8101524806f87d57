package negotiation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/BioHazard786/warpmesh/internal/signaling"
)

const waitTimeout = 2 * time.Second

type sentMessage struct {
	Type string
	To   string
	Data any
}

// memBus is an in-process stand-in for the relay.
type memBus struct {
	mu       sync.Mutex
	members  map[string]*fakeChannel
	rooms    map[string][]string
	nextRoom int
}

func newMemBus() *memBus {
	return &memBus{
		members: make(map[string]*fakeChannel),
		rooms:   make(map[string][]string),
	}
}

func (b *memBus) connect(id string) *fakeChannel {
	ch := newFakeChannel(id)
	ch.bus = b
	b.mu.Lock()
	b.members[id] = ch
	b.mu.Unlock()
	return ch
}

func (b *memBus) handle(from *fakeChannel, msgType string, data any) {
	b.mu.Lock()
	var deliveries []func()
	switch msgType {
	case signaling.MessageTypeCreate:
		b.nextRoom++
		roomID := fmt.Sprintf("R%d", b.nextRoom)
		b.rooms[roomID] = nil
		deliveries = append(deliveries, func() { from.deliver(signaling.RoomCreated{RoomID: roomID}) })
	case signaling.MessageTypeJoin:
		roomID, _ := data.(string)
		for _, id := range b.rooms[roomID] {
			to := b.members[id]
			deliveries = append(deliveries, func() { to.deliver(signaling.ClientJoin{PeerID: from.id}) })
		}
		b.rooms[roomID] = append(b.rooms[roomID], from.id)
	case signaling.MessageTypeLeave:
		roomID, _ := data.(string)
		var rest []string
		for _, id := range b.rooms[roomID] {
			if id == from.id {
				continue
			}
			rest = append(rest, id)
			to := b.members[id]
			deliveries = append(deliveries, func() { to.deliver(signaling.ClientLeave{PeerID: from.id}) })
		}
		b.rooms[roomID] = rest
	}
	b.mu.Unlock()

	for _, d := range deliveries {
		d()
	}
}

func (b *memBus) route(from *fakeChannel, to, msgType string, data any) error {
	b.mu.Lock()
	target := b.members[to]
	b.mu.Unlock()
	if target == nil {
		return nil
	}

	msg, err := signaling.NewMessage(msgType, data)
	if err != nil {
		return err
	}
	msg.SenderID = from.id
	msg.ReceiverID = to
	ev, err := signaling.Decode(msg)
	if err != nil {
		return err
	}
	target.deliver(ev)
	return nil
}

// fakeChannel records everything emitted and lets tests inject events.
type fakeChannel struct {
	id      string
	bus     *memBus
	handler *signaling.Handler
	sentCh  chan sentMessage

	mu      sync.Mutex
	sent    []sentMessage
	emitErr error
}

func newFakeChannel(id string) *fakeChannel {
	return &fakeChannel{
		id:      id,
		handler: signaling.NewHandler(),
		sentCh:  make(chan sentMessage, 256),
	}
}

func (f *fakeChannel) LocalID() string {
	return f.id
}

func (f *fakeChannel) Subscribe() *signaling.Subscription {
	return f.handler.Subscribe()
}

func (f *fakeChannel) Emit(ctx context.Context, msgType string, data any) error {
	if err := f.record(sentMessage{Type: msgType, Data: data}); err != nil {
		return err
	}
	if f.bus != nil {
		f.bus.handle(f, msgType, data)
	}
	return nil
}

func (f *fakeChannel) EmitTo(ctx context.Context, receiverID, msgType string, data any) error {
	if err := f.record(sentMessage{Type: msgType, To: receiverID, Data: data}); err != nil {
		return err
	}
	if f.bus != nil {
		return f.bus.route(f, receiverID, msgType, data)
	}
	return nil
}

func (f *fakeChannel) record(m sentMessage) error {
	f.mu.Lock()
	err := f.emitErr
	if err == nil {
		f.sent = append(f.sent, m)
	}
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.sentCh <- m
	return nil
}

func (f *fakeChannel) setEmitErr(err error) {
	f.mu.Lock()
	f.emitErr = err
	f.mu.Unlock()
}

func (f *fakeChannel) deliver(ev signaling.Event) {
	f.handler.Dispatch(ev)
}

// next returns the next emitted message.
func (f *fakeChannel) next(t *testing.T) sentMessage {
	t.Helper()
	select {
	case m := <-f.sentCh:
		return m
	case <-time.After(waitTimeout):
		t.Fatalf("%s: timed out waiting for an outgoing message", f.id)
		return sentMessage{}
	}
}

// expect returns the next emitted message and checks its type and receiver.
func (f *fakeChannel) expect(t *testing.T, msgType, to string) sentMessage {
	t.Helper()
	m := f.next(t)
	if m.Type != msgType || m.To != to {
		t.Fatalf("%s: sent %q to %q, want %q to %q", f.id, m.Type, m.To, msgType, to)
	}
	return m
}

// expectQuiet asserts nothing is emitted for d.
func (f *fakeChannel) expectQuiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case m := <-f.sentCh:
		t.Fatalf("%s: unexpected %q to %q", f.id, m.Type, m.To)
	case <-time.After(d):
	}
}

func (f *fakeChannel) count(msgType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.sent {
		if m.Type == msgType {
			n++
		}
	}
	return n
}

// fakePeer is a PeerConnection whose descriptions are plain strings.
type fakePeer struct {
	id string

	mu              sync.Mutex
	calls           []string
	offers          int
	closed          bool
	failCreateOffer error
	failSetRemote   error

	onNegotiation func()
	onCandidate   func(signaling.Candidate)
	onTrack       func(Track)
	onState       func(ConnectionState)
}

func (p *fakePeer) record(call string) {
	p.mu.Lock()
	p.calls = append(p.calls, call)
	p.mu.Unlock()
}

func (p *fakePeer) CreateOffer() (signaling.SessionDescription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "create-offer")
	if p.failCreateOffer != nil {
		return signaling.SessionDescription{}, p.failCreateOffer
	}
	p.offers++
	return signaling.SessionDescription{Type: signaling.SDPTypeOffer, SDP: fmt.Sprintf("offer-%s-%d", p.id, p.offers)}, nil
}

func (p *fakePeer) CreateAnswer() (signaling.SessionDescription, error) {
	p.record("create-answer")
	return signaling.SessionDescription{Type: signaling.SDPTypeAnswer, SDP: "answer-" + p.id}, nil
}

func (p *fakePeer) SetLocalDescription(desc signaling.SessionDescription) error {
	p.record("local:" + desc.Type)
	return nil
}

func (p *fakePeer) SetRemoteDescription(desc signaling.SessionDescription) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "remote:"+desc.Type)
	return p.failSetRemote
}

func (p *fakePeer) AddICECandidate(c signaling.Candidate) error {
	p.record("candidate:" + c.Candidate)
	return nil
}

func (p *fakePeer) AddStream(stream LocalStream) error {
	p.record("stream:" + stream.ID())
	return nil
}

func (p *fakePeer) OnNegotiationNeeded(f func()) {
	p.mu.Lock()
	p.onNegotiation = f
	p.mu.Unlock()
}

func (p *fakePeer) OnICECandidate(f func(signaling.Candidate)) {
	p.mu.Lock()
	p.onCandidate = f
	p.mu.Unlock()
}

func (p *fakePeer) OnTrack(f func(Track)) {
	p.mu.Lock()
	p.onTrack = f
	p.mu.Unlock()
}

func (p *fakePeer) OnConnectionStateChange(f func(ConnectionState)) {
	p.mu.Lock()
	p.onState = f
	p.mu.Unlock()
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.calls = append(p.calls, "close")
	onState := p.onState
	p.mu.Unlock()

	if onState != nil {
		onState(ConnectionStateClosed)
	}
	return nil
}

func (p *fakePeer) fireNegotiationNeeded() {
	p.mu.Lock()
	f := p.onNegotiation
	p.mu.Unlock()
	f()
}

func (p *fakePeer) fireCandidate(c signaling.Candidate) {
	p.mu.Lock()
	f := p.onCandidate
	p.mu.Unlock()
	f(c)
}

func (p *fakePeer) fireTrack(t Track) {
	p.mu.Lock()
	f := p.onTrack
	p.mu.Unlock()
	f(t)
}

func (p *fakePeer) fireState(s ConnectionState) {
	p.mu.Lock()
	f := p.onState
	p.mu.Unlock()
	f(s)
}

func (p *fakePeer) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePeer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type fakeFactory struct {
	mu        sync.Mutex
	peers     map[string]*fakePeer
	created   map[string]int
	configure func(*fakePeer)
	err       error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		peers:   make(map[string]*fakePeer),
		created: make(map[string]int),
	}
}

func (f *fakeFactory) NewPeerConnection(peerID string) (PeerConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p := &fakePeer{id: peerID}
	if f.configure != nil {
		f.configure(p)
	}
	f.peers[peerID] = p
	f.created[peerID]++
	return p, nil
}

func (f *fakeFactory) peer(t *testing.T, peerID string) *fakePeer {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.peers[peerID]
	if !ok {
		t.Fatalf("no connection was created for %q", peerID)
	}
	return p
}

func (f *fakeFactory) createdFor(peerID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[peerID]
}

func (f *fakeFactory) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.created {
		n += c
	}
	return n
}

type fakeStream string

func (s fakeStream) ID() string { return string(s) }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitPhase(t *testing.T, c *Coordinator, peerID string, want Phase) {
	t.Helper()
	waitFor(t, fmt.Sprintf("%s to reach %s", peerID, want), func() bool {
		for _, p := range c.Peers() {
			if p.ID == peerID {
				return p.Phase == want
			}
		}
		return false
	})
}

// waitEvent drains c.Events until match returns true.
func waitEvent(t *testing.T, c *Coordinator, match func(Event) bool) Event {
	t.Helper()
	timeout := time.After(waitTimeout)
	for {
		select {
		case ev := <-c.Events():
			if match(ev) {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for event")
			return nil
		}
	}
}
