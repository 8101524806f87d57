package negotiation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BioHazard786/warpmesh/internal/signaling"
)

const (
	DefaultNegotiationTimeout = 30 * time.Second
	DefaultEventBuffer        = 128
)

// Options tunes a Coordinator.
type Options struct {
	// NegotiationTimeout bounds how long a session may sit in an in-flight
	// phase before it is failed and released. Zero disables the timeout.
	NegotiationTimeout time.Duration

	// EventBuffer is the capacity of the Events channel. Events are dropped
	// when the consumer falls this far behind.
	EventBuffer int

	Logger *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		NegotiationTimeout: DefaultNegotiationTimeout,
		EventBuffer:        DefaultEventBuffer,
	}
}

// PeerInfo is a point-in-time view of one session.
type PeerInfo struct {
	ID      string
	Phase   Phase
	Since   time.Time
	Streams []Track
}

// Coordinator owns the peer registry of one room and drives the offer/answer
// exchange with every remote participant.
type Coordinator struct {
	channel Channel
	factory PeerFactory
	stream  LocalStream
	opts    Options
	log     *slog.Logger
	events  chan Event

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	bound    bool
	roomID   string
	sub      *signaling.Subscription
	stop     chan struct{}
	loopDone chan struct{}
	sessions map[string]*Session
}

// NewCoordinator returns a coordinator bound to channel. stream may be nil
// for a receive-only participant.
func NewCoordinator(channel Channel, factory PeerFactory, stream LocalStream, opts Options) *Coordinator {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}
	if opts.NegotiationTimeout < 0 {
		opts.NegotiationTimeout = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		channel:  channel,
		factory:  factory,
		stream:   stream,
		opts:     opts,
		log:      logger.With("component", "negotiation"),
		events:   make(chan Event, opts.EventBuffer),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// Events delivers room and peer lifecycle notifications. The channel is
// never closed.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// RoomID returns the joined room, or "" when unbound.
func (c *Coordinator) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

// Peers returns a snapshot of the live sessions ordered by peer id.
func (c *Coordinator) Peers() []PeerInfo {
	c.mu.Lock()
	sessions := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.mu.Unlock()

	peers := make([]PeerInfo, 0, len(sessions))
	for _, s := range sessions {
		peers = append(peers, s.info())
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].ID < peers[j].ID })
	return peers
}

// CreateRoom asks the relay for a fresh room and joins it. It returns once
// the relay has confirmed the room and the join request was sent.
func (c *Coordinator) CreateRoom(ctx context.Context) (string, error) {
	if c.isBound() {
		return "", newError("create room", ErrAlreadyBound)
	}

	sub := c.channel.Subscribe()
	defer sub.Close()

	if err := c.channel.Emit(ctx, signaling.MessageTypeCreate, nil); err != nil {
		return "", newError("create room", err)
	}

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return "", newError("create room", ErrChannelClosed)
			}
			switch e := ev.(type) {
			case signaling.RoomCreated:
				sub.Close()
				if err := c.Join(ctx, e.RoomID); err != nil {
					return "", err
				}
				return e.RoomID, nil
			case signaling.RelayError:
				return "", newError("create room", fmt.Errorf("%w: %s", ErrRelay, e.Message))
			case signaling.Disconnected:
				err := e.Err
				if err == nil {
					err = ErrChannelClosed
				}
				return "", newError("create room", err)
			}
		case <-ctx.Done():
			return "", newError("create room", ctx.Err())
		}
	}
}

// Join binds the coordinator to the channel and announces the local
// participant in roomID. A second Join without an intervening Leave fails
// with ErrAlreadyBound and binds nothing.
func (c *Coordinator) Join(ctx context.Context, roomID string) error {
	c.mu.Lock()
	if c.bound {
		c.mu.Unlock()
		return newError("join", ErrAlreadyBound)
	}
	c.bound = true
	c.roomID = roomID
	c.sub = c.channel.Subscribe()
	c.stop = make(chan struct{})
	c.loopDone = make(chan struct{})
	go c.listen(c.sub, c.stop, c.loopDone)
	c.mu.Unlock()

	if err := c.channel.Emit(ctx, signaling.MessageTypeJoin, roomID); err != nil {
		c.unbind()
		return newError("join", err)
	}
	c.log.Info("joined room", "room", roomID, "local", c.channel.LocalID())
	c.publish(Joined{RoomID: roomID, LocalID: c.channel.LocalID()})
	return nil
}

// Leave tears down every session, unbinds from the channel and tells the
// relay. The coordinator can Join again afterwards.
func (c *Coordinator) Leave(ctx context.Context) error {
	roomID, ok := c.unbind()
	if !ok {
		return newError("leave", ErrNotBound)
	}
	c.log.Info("left room", "room", roomID)
	c.publish(Left{RoomID: roomID})
	if err := c.channel.Emit(ctx, signaling.MessageTypeLeave, roomID); err != nil {
		return newError("leave", err)
	}
	return nil
}

// Close leaves the room if joined and stops all in-flight sends.
func (c *Coordinator) Close() error {
	var err error
	if c.isBound() {
		ctx, cancel := context.WithTimeout(c.ctx, time.Second)
		err = c.Leave(ctx)
		cancel()
	}
	c.cancel()
	return err
}

func (c *Coordinator) isBound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bound
}

// unbind stops the event loop and closes every session.
func (c *Coordinator) unbind() (string, bool) {
	c.mu.Lock()
	if !c.bound {
		c.mu.Unlock()
		return "", false
	}
	roomID := c.roomID
	sub, stop, done := c.sub, c.stop, c.loopDone
	sessions := c.sessions
	c.bound = false
	c.roomID = ""
	c.sub, c.stop, c.loopDone = nil, nil, nil
	c.sessions = make(map[string]*Session)
	c.mu.Unlock()

	sub.Close()
	close(stop)
	<-done

	for _, s := range sessions {
		s.close(PhaseClosed)
		c.publish(PeerRemoved{PeerID: s.peerID})
	}
	return roomID, true
}

func (c *Coordinator) listen(sub *signaling.Subscription, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			c.handle(ev)
		case <-stop:
			return
		}
	}
}

func (c *Coordinator) handle(ev signaling.Event) {
	switch e := ev.(type) {
	case signaling.ClientJoin:
		s, created := c.session(e.PeerID)
		if s == nil {
			return
		}
		if !created {
			c.log.Debug("duplicate join notification", "peer", e.PeerID)
			return
		}
		s.enqueue(s.offer)

	case signaling.Offer:
		s, _ := c.session(e.SenderID)
		if s == nil {
			return
		}
		s.enqueue(func() { s.handleOffer(e.Description) })

	case signaling.Answer:
		s := c.lookup(e.SenderID)
		if s == nil {
			c.log.Debug("ignoring answer from unknown peer", "peer", e.SenderID)
			return
		}
		s.enqueue(func() { s.handleAnswer(e.Description) })

	case signaling.ICECandidate:
		s := c.lookup(e.SenderID)
		if s == nil {
			c.log.Debug("ignoring candidate from unknown peer", "peer", e.SenderID)
			return
		}
		s.enqueue(func() { s.remoteCandidate(e.Candidate) })

	case signaling.ClientLeave:
		if s := c.lookup(e.PeerID); s != nil {
			c.log.Info("peer left", "peer", e.PeerID)
			c.removeSession(s, nil)
		}

	case signaling.RoomCreated:
		// Consumed by CreateRoom.

	case signaling.RelayError:
		c.log.Warn("relay reported an error", "err", e.Message)

	case signaling.Connected:
		c.log.Debug("signaling connected", "local", e.LocalID)

	case signaling.ChannelError:
		c.log.Error("signaling channel error", "err", e.Err)

	case signaling.Disconnected:
		c.log.Warn("signaling disconnected", "err", e.Err)

	default:
		c.log.Warn("unhandled signaling event", "event", fmt.Sprintf("%T", ev))
	}
}

// session returns the session for peerID, creating it when none exists.
// It returns nil for our own id or when the connection cannot be created.
func (c *Coordinator) session(peerID string) (*Session, bool) {
	if peerID == "" || peerID == c.channel.LocalID() {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.bound {
		return nil, false
	}
	if s, ok := c.sessions[peerID]; ok {
		return s, false
	}

	pc, err := c.factory.NewPeerConnection(peerID)
	if err != nil {
		c.log.Error("failed to create peer connection", "err", newPeerError("create session", peerID, err))
		return nil, false
	}
	if c.stream != nil {
		if err := pc.AddStream(c.stream); err != nil {
			c.log.Error("failed to attach local stream", "err", newPeerError("create session", peerID, err))
			pc.Close()
			return nil, false
		}
	}

	s := newSession(c, peerID, pc)
	s.wire()
	c.sessions[peerID] = s
	go s.run()

	c.log.Info("peer added", "peer", peerID)
	c.publish(PeerAdded{PeerID: peerID})
	return s, true
}

func (c *Coordinator) lookup(peerID string) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[peerID]
}

// removeSession drops s from the registry and closes it. A non-nil cause
// marks the session failed.
func (c *Coordinator) removeSession(s *Session, cause error) {
	c.mu.Lock()
	if cur, ok := c.sessions[s.peerID]; !ok || cur != s {
		c.mu.Unlock()
		return
	}
	delete(c.sessions, s.peerID)
	c.mu.Unlock()

	if cause != nil {
		s.close(PhaseFailed)
		c.log.Warn("peer failed", "peer", s.peerID, "err", cause)
		c.publish(PeerFailed{PeerID: s.peerID, Err: cause})
		return
	}
	s.close(PhaseClosed)
	c.publish(PeerRemoved{PeerID: s.peerID})
}

// polite reports whether we yield when our offer collides with one from
// peerID. The side with the smaller id rolls back.
func (c *Coordinator) polite(peerID string) bool {
	return c.channel.LocalID() < peerID
}

func (c *Coordinator) publish(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Debug("event dropped, consumer is behind", "event", fmt.Sprintf("%T", ev))
	}
}
