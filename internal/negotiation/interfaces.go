package negotiation

import (
	"context"

	"github.com/BioHazard786/warpmesh/internal/signaling"
)

// Channel is the signaling channel the coordinator is bound to.
// *signaling.Client implements it.
type Channel interface {
	// LocalID is the identifier assigned by the relay on connect.
	LocalID() string

	// Subscribe binds a listener; Close on the subscription removes it.
	Subscribe() *signaling.Subscription

	// Emit sends a message decorated with the local identifier.
	Emit(ctx context.Context, msgType string, data any) error

	// EmitTo sends a message addressed to receiverID.
	EmitTo(ctx context.Context, receiverID, msgType string, data any) error
}

// LocalStream is the caller's capture handle. The coordinator only forwards it
// to each new connection and never inspects or mutates it.
type LocalStream interface {
	ID() string
}

// Track describes a remote media track that arrived on a connection.
type Track struct {
	StreamID string
	TrackID  string
	Kind     string
}

// ConnectionState mirrors RTCPeerConnectionState.
type ConnectionState int

const (
	ConnectionStateNew ConnectionState = iota
	ConnectionStateConnecting
	ConnectionStateConnected
	ConnectionStateDisconnected
	ConnectionStateFailed
	ConnectionStateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionStateNew:
		return "new"
	case ConnectionStateConnecting:
		return "connecting"
	case ConnectionStateConnected:
		return "connected"
	case ConnectionStateDisconnected:
		return "disconnected"
	case ConnectionStateFailed:
		return "failed"
	case ConnectionStateClosed:
		return "closed"
	}
	return "unknown"
}

// PeerConnection is the negotiation-capable connection owned by one session.
// Implementations must be safe for concurrent use; callbacks may run on any goroutine.
type PeerConnection interface {
	CreateOffer() (signaling.SessionDescription, error)
	CreateAnswer() (signaling.SessionDescription, error)
	SetLocalDescription(desc signaling.SessionDescription) error
	SetRemoteDescription(desc signaling.SessionDescription) error
	AddICECandidate(c signaling.Candidate) error
	AddStream(stream LocalStream) error

	OnNegotiationNeeded(f func())
	OnICECandidate(f func(signaling.Candidate))
	OnTrack(f func(Track))
	OnConnectionStateChange(f func(ConnectionState))

	Close() error
}

// PeerFactory creates one connection per remote peer.
type PeerFactory interface {
	NewPeerConnection(peerID string) (PeerConnection, error)
}

// PeerFactoryFunc adapts a function to PeerFactory.
type PeerFactoryFunc func(peerID string) (PeerConnection, error)

func (f PeerFactoryFunc) NewPeerConnection(peerID string) (PeerConnection, error) {
	return f(peerID)
}
