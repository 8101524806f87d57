package negotiation

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BioHazard786/warpmesh/internal/signaling"
)

// Session holds the negotiation state for one remote peer. Every step runs on
// the session's own goroutine, in the order it was queued, so steps for one
// peer never interleave while different peers progress independently.
type Session struct {
	peerID  string
	pc      PeerConnection
	coord   *Coordinator
	log     *slog.Logger
	created time.Time
	tasks   *taskQueue
	closed  atomic.Bool

	mu       sync.Mutex
	phase    Phase
	streams  []Track
	timer    *time.Timer
	timerGen uint64

	// Owned by the session goroutine.
	established   bool
	remoteApplied bool
	remoteQueue   []signaling.Candidate
	localQueue    []signaling.Candidate
}

func newSession(c *Coordinator, peerID string, pc PeerConnection) *Session {
	return &Session{
		peerID:  peerID,
		pc:      pc,
		coord:   c,
		log:     c.log.With("peer", peerID),
		created: time.Now(),
		tasks:   newTaskQueue(),
	}
}

// PeerID returns the remote participant's identifier.
func (s *Session) PeerID() string {
	return s.peerID
}

// Phase returns the current negotiation phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) info() PeerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return PeerInfo{
		ID:      s.peerID,
		Phase:   s.phase,
		Since:   s.created,
		Streams: append([]Track(nil), s.streams...),
	}
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	from := s.phase
	if from.Terminal() {
		s.mu.Unlock()
		return
	}
	s.phase = p
	s.mu.Unlock()
	if from == p {
		return
	}
	s.log.Debug("phase changed", "from", from, "to", p)
	s.coord.publish(PhaseChanged{PeerID: s.peerID, From: from, To: p})
}

// wire registers the connection callbacks. Each one enqueues a step.
func (s *Session) wire() {
	s.pc.OnNegotiationNeeded(func() {
		s.enqueue(s.renegotiate)
	})
	s.pc.OnICECandidate(func(c signaling.Candidate) {
		s.enqueue(func() { s.localCandidate(c) })
	})
	s.pc.OnTrack(func(t Track) {
		s.mu.Lock()
		s.streams = append(s.streams, t)
		s.mu.Unlock()
		s.log.Info("remote track", "stream", t.StreamID, "kind", t.Kind)
		s.coord.publish(StreamAdded{PeerID: s.peerID, Track: t})
	})
	s.pc.OnConnectionStateChange(func(state ConnectionState) {
		s.log.Debug("connection state", "state", state)
		switch state {
		case ConnectionStateFailed:
			s.enqueue(func() { s.coord.removeSession(s, newPeerError("connect", s.peerID, ErrConnectionFailed)) })
		case ConnectionStateClosed:
			s.enqueue(func() { s.coord.removeSession(s, nil) })
		}
	})
}

func (s *Session) enqueue(task func()) {
	if !s.tasks.Push(task) {
		s.log.Debug("session closed, dropping step")
	}
}

func (s *Session) run() {
	for {
		task, ok := s.tasks.Pop()
		if !ok {
			return
		}
		task()
	}
}

// close releases the connection. It is safe to call from any goroutine and
// more than once.
func (s *Session) close(final Phase) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.tasks.Close()
	s.stopTimer()
	if err := s.pc.Close(); err != nil {
		s.log.Warn("failed to close peer connection", "err", err)
	}
	s.setPhase(final)
}

// offer runs New|Stable → OfferPending → LocalOfferSet.
func (s *Session) offer() {
	if s.closed.Load() {
		return
	}
	prior := s.Phase()
	s.armTimer()
	s.setPhase(PhaseOfferPending)

	desc, err := s.pc.CreateOffer()
	if err != nil {
		s.abort("create offer", err, prior)
		return
	}
	if err := s.pc.SetLocalDescription(desc); err != nil {
		s.abort("set local description", err, prior)
		return
	}
	s.setPhase(PhaseLocalOfferSet)
	s.send(signaling.MessageTypeOffer, desc)
}

// renegotiate re-enters the offer flow. Signals that arrive mid-negotiation
// are dropped; the connection raises them again once it is stable.
func (s *Session) renegotiate() {
	if phase := s.Phase(); phase != PhaseStable {
		s.log.Debug("ignoring negotiation-needed", "phase", phase)
		return
	}
	s.offer()
}

// handleOffer runs New|Stable → RemoteOfferApplied → AnswerPending → Stable.
func (s *Session) handleOffer(desc signaling.SessionDescription) {
	if s.closed.Load() {
		return
	}
	prior := s.Phase()
	if prior == PhaseLocalOfferSet {
		if !s.coord.polite(s.peerID) {
			s.log.Debug("ignoring colliding offer")
			return
		}
		if err := s.pc.SetLocalDescription(signaling.SessionDescription{Type: signaling.SDPTypeRollback}); err != nil {
			s.abort("rollback", err, prior)
			return
		}
		s.log.Debug("rolled back local offer for colliding remote offer")
		prior = PhaseNew
		if s.established {
			prior = PhaseStable
		}
	}

	s.armTimer()
	if err := s.pc.SetRemoteDescription(desc); err != nil {
		s.abort("set remote description", err, prior)
		return
	}
	s.setPhase(PhaseRemoteOfferApplied)
	s.remoteDescriptionApplied()

	answer, err := s.pc.CreateAnswer()
	if err != nil {
		s.abort("create answer", err, PhaseRemoteOfferApplied)
		return
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		s.abort("set local description", err, PhaseRemoteOfferApplied)
		return
	}
	s.setPhase(PhaseAnswerPending)
	s.send(signaling.MessageTypeAnswer, answer)
	s.stable()
}

// handleAnswer runs LocalOfferSet → Stable.
func (s *Session) handleAnswer(desc signaling.SessionDescription) {
	if s.closed.Load() {
		return
	}
	if phase := s.Phase(); phase != PhaseLocalOfferSet {
		s.log.Warn("ignoring answer without outstanding offer", "phase", phase)
		return
	}
	if err := s.pc.SetRemoteDescription(desc); err != nil {
		s.abort("set remote description", err, PhaseLocalOfferSet)
		return
	}
	s.remoteDescriptionApplied()
	s.stable()
}

func (s *Session) stable() {
	s.established = true
	s.stopTimer()
	s.setPhase(PhaseStable)
}

// remoteCandidate adds c, or queues it until a remote description is applied.
func (s *Session) remoteCandidate(c signaling.Candidate) {
	if s.closed.Load() {
		return
	}
	if !s.remoteApplied {
		s.remoteQueue = append(s.remoteQueue, c)
		return
	}
	if err := s.pc.AddICECandidate(c); err != nil {
		s.log.Warn("failed to add ICE candidate", "err", err)
	}
}

// localCandidate forwards c to the peer, or holds it until a remote
// description is applied.
func (s *Session) localCandidate(c signaling.Candidate) {
	if s.closed.Load() {
		return
	}
	if !s.remoteApplied {
		s.localQueue = append(s.localQueue, c)
		return
	}
	s.send(signaling.MessageTypeICECandidate, c)
}

func (s *Session) remoteDescriptionApplied() {
	if s.remoteApplied {
		return
	}
	s.remoteApplied = true

	remote := s.remoteQueue
	s.remoteQueue = nil
	for _, c := range remote {
		if err := s.pc.AddICECandidate(c); err != nil {
			s.log.Warn("failed to add queued ICE candidate", "err", err)
		}
	}
	local := s.localQueue
	s.localQueue = nil
	for _, c := range local {
		s.send(signaling.MessageTypeICECandidate, c)
	}
}

func (s *Session) send(msgType string, data any) {
	if s.closed.Load() {
		return
	}
	if err := s.coord.channel.EmitTo(s.coord.ctx, s.peerID, msgType, data); err != nil {
		s.log.Error("failed to send", "type", msgType, "err", err)
	}
}

// abort logs a failed step and puts the session back where it was.
func (s *Session) abort(op string, err error, prior Phase) {
	s.log.Error("negotiation step failed", "err", newPeerError(op, s.peerID, err))
	if prior == PhaseStable {
		s.stopTimer()
	}
	s.setPhase(prior)
}

func (s *Session) armTimer() {
	timeout := s.coord.opts.NegotiationTimeout
	if timeout <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		return
	}
	gen := s.timerGen
	s.timer = time.AfterFunc(timeout, func() {
		s.enqueue(func() { s.expire(gen) })
	})
}

func (s *Session) stopTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return
	}
	s.timer.Stop()
	s.timer = nil
	s.timerGen++
}

func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	current := gen == s.timerGen
	phase := s.phase
	s.mu.Unlock()
	if !current || phase == PhaseStable {
		return
	}
	s.log.Warn("negotiation timed out", "phase", phase)
	s.coord.removeSession(s, newPeerError("negotiate", s.peerID, ErrNegotiationTimeout))
}
