package rtc

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/BioHazard786/warpmesh/internal/config"
	"github.com/BioHazard786/warpmesh/internal/negotiation"
	"github.com/BioHazard786/warpmesh/internal/signaling"
	"github.com/pion/webrtc/v4"
)

var (
	ErrInvalidDescription = errors.New("invalid session description")
	ErrUnsupportedStream  = errors.New("local stream has no pion tracks")
)

// trackSource is implemented by *LocalStream.
type trackSource interface {
	Tracks() []webrtc.TrackLocal
}

// Factory creates pion connections configured from cfg.
type Factory struct {
	api   *webrtc.API
	cfg   *config.Config
	hello Hello
	log   *slog.Logger

	mu      sync.Mutex
	onHello func(peerID string, h Hello)
}

func NewFactory(api *webrtc.API, cfg *config.Config, hello Hello, log *slog.Logger) *Factory {
	if log == nil {
		log = slog.Default()
	}
	return &Factory{api: api, cfg: cfg, hello: hello, log: log}
}

// OnHello sets the callback run when a peer introduces itself on the control channel.
func (f *Factory) OnHello(fn func(peerID string, h Hello)) {
	f.mu.Lock()
	f.onHello = fn
	f.mu.Unlock()
}

func (f *Factory) deliverHello(peerID string, h Hello) {
	f.mu.Lock()
	fn := f.onHello
	f.mu.Unlock()
	if fn != nil {
		fn(peerID, h)
	}
}

func (f *Factory) configuration() webrtc.Configuration {
	var iceServers []webrtc.ICEServer
	if stun := f.cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: stun})
	}

	turnServers := f.cfg.GetTURNServers()
	if turnServers != nil {
		username, password := f.cfg.GetTURNCredentials()
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := webrtc.ICETransportPolicyAll
	if turnServers != nil && (f.cfg.ForceRelay || restrictedNetwork()) {
		policy = webrtc.ICETransportPolicyRelay
	}

	return webrtc.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	}
}

// NewPeerConnection creates the connection for peerID together with its
// negotiated control channel.
func (f *Factory) NewPeerConnection(peerID string) (negotiation.PeerConnection, error) {
	pc, err := f.api.NewPeerConnection(f.configuration())
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	p := &Peer{
		id:  peerID,
		pc:  pc,
		log: f.log.With("peer", peerID),
	}
	if err := p.openControl(f.hello, func(h Hello) { f.deliverHello(peerID, h) }); err != nil {
		pc.Close()
		return nil, err
	}
	return p, nil
}

// Peer adapts a pion PeerConnection to negotiation.PeerConnection.
type Peer struct {
	id      string
	pc      *webrtc.PeerConnection
	control *webrtc.DataChannel
	log     *slog.Logger
}

// openControl creates the control channel. Both sides create it with the same
// id, so it needs no in-band announcement.
func (p *Peer) openControl(hello Hello, onHello func(Hello)) error {
	negotiated := true
	id := controlChannelID
	dc, err := p.pc.CreateDataChannel(controlLabel, &webrtc.DataChannelInit{
		Negotiated: &negotiated,
		ID:         &id,
	})
	if err != nil {
		return fmt.Errorf("create control channel: %w", err)
	}
	p.control = dc

	dc.OnOpen(func() {
		data, err := encodeMessage(MessageTypeHello, hello)
		if err != nil {
			p.log.Error("failed to encode hello", "err", err)
			return
		}
		if err := dc.Send(data); err != nil {
			p.log.Warn("failed to send hello", "err", err)
		}
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		m, err := decodeMessage(msg.Data)
		if err != nil {
			p.log.Warn("malformed control message", "err", err)
			return
		}
		switch m.Type {
		case MessageTypeHello:
			var h Hello
			if err := m.DecodePayload(&h); err != nil {
				p.log.Warn("malformed hello", "err", err)
				return
			}
			onHello(h)
		default:
			p.log.Debug("unknown control message", "type", m.Type)
		}
	})
	return nil
}

func toPion(desc signaling.SessionDescription) webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: webrtc.NewSDPType(desc.Type), SDP: desc.SDP}
}

func fromPion(desc webrtc.SessionDescription) signaling.SessionDescription {
	return signaling.SessionDescription{Type: desc.Type.String(), SDP: desc.SDP}
}

func (p *Peer) CreateOffer() (signaling.SessionDescription, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return signaling.SessionDescription{}, err
	}
	return fromPion(offer), nil
}

func (p *Peer) CreateAnswer() (signaling.SessionDescription, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return signaling.SessionDescription{}, err
	}
	return fromPion(answer), nil
}

func (p *Peer) SetLocalDescription(desc signaling.SessionDescription) error {
	return p.pc.SetLocalDescription(toPion(desc))
}

// SetRemoteDescription rejects unparsable SDP before handing it to pion.
func (p *Peer) SetRemoteDescription(desc signaling.SessionDescription) error {
	if desc.Type != signaling.SDPTypeRollback {
		parsed, err := parseDescription(desc)
		if err != nil {
			return err
		}
		p.log.Debug("remote description", "type", desc.Type, "media", summarize(parsed))
	}
	return p.pc.SetRemoteDescription(toPion(desc))
}

func (p *Peer) AddICECandidate(c signaling.Candidate) error {
	return p.pc.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	})
}

// AddStream attaches every track of stream. Incoming RTCP is drained so the
// interceptors keep running.
func (p *Peer) AddStream(stream negotiation.LocalStream) error {
	src, ok := stream.(trackSource)
	if !ok {
		return ErrUnsupportedStream
	}
	for _, track := range src.Tracks() {
		sender, err := p.pc.AddTrack(track)
		if err != nil {
			return fmt.Errorf("add %s track: %w", track.Kind(), err)
		}
		go func() {
			buf := make([]byte, 1500)
			for {
				if _, _, err := sender.Read(buf); err != nil {
					return
				}
			}
		}()
	}
	return nil
}

func (p *Peer) OnNegotiationNeeded(f func()) {
	p.pc.OnNegotiationNeeded(f)
}

func (p *Peer) OnICECandidate(f func(signaling.Candidate)) {
	p.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		// nil marks the end of gathering.
		if c == nil {
			return
		}
		init := c.ToJSON()
		f(signaling.Candidate{
			Candidate:        init.Candidate,
			SDPMid:           init.SDPMid,
			SDPMLineIndex:    init.SDPMLineIndex,
			UsernameFragment: init.UsernameFragment,
		})
	})
}

// OnTrack reports each remote track and keeps reading it so the jitter
// buffers and interceptors do not stall. Playback is left to the caller.
func (p *Peer) OnTrack(f func(negotiation.Track)) {
	p.pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		f(negotiation.Track{
			StreamID: remote.StreamID(),
			TrackID:  remote.ID(),
			Kind:     remote.Kind().String(),
		})
		go func() {
			buf := make([]byte, 1500)
			for {
				if _, _, err := remote.Read(buf); err != nil {
					return
				}
			}
		}()
	})
}

func (p *Peer) OnConnectionStateChange(f func(negotiation.ConnectionState)) {
	p.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		f(connectionState(state))
	})
}

func connectionState(state webrtc.PeerConnectionState) negotiation.ConnectionState {
	switch state {
	case webrtc.PeerConnectionStateConnecting:
		return negotiation.ConnectionStateConnecting
	case webrtc.PeerConnectionStateConnected:
		return negotiation.ConnectionStateConnected
	case webrtc.PeerConnectionStateDisconnected:
		return negotiation.ConnectionStateDisconnected
	case webrtc.PeerConnectionStateFailed:
		return negotiation.ConnectionStateFailed
	case webrtc.PeerConnectionStateClosed:
		return negotiation.ConnectionStateClosed
	}
	return negotiation.ConnectionStateNew
}

func (p *Peer) Close() error {
	return p.pc.Close()
}
